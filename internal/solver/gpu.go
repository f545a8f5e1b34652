package solver

import (
	"context"

	"hydroengine/internal/apperror"
	"hydroengine/internal/lp"
)

// GPUInteriorPoint represents the compute-API offload path: one work
// item per scenario, a kernel source parameterised by scalar type and
// tolerances, a single command queue with per-iteration readback of
// the status buffer. No GPU compute API (CUDA/OpenCL/Vulkan compute)
// is reachable from this build, so the driver reports CodeSolverFailed
// rather than silently falling back to the CPU path.
type GPUInteriorPoint struct {
	NumChunks int
}

// Name implements Driver.
func (g *GPUInteriorPoint) Name() string { return "interior_point_gpu" }

// Solve always fails: see the type doc comment.
func (g *GPUInteriorPoint) Solve(ctx context.Context, m *lp.Model) (*Result, error) {
	return nil, apperror.New(apperror.CodeSolverFailed, "GPU interior-point driver is unavailable: no compute API reachable from this build").
		WithDetails("kind", "unsupported_driver")
}
