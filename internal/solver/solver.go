// Package solver implements the two solver drivers the engine can
// select between: a per-scenario simplex driver and a batched
// multi-scenario interior-point path-following driver. Both consume
// an lp.Model and return the primal column values the run loop writes
// back as edge flows.
//
// The simplex driver wraps gonum's simplex implementation
// (gonum.org/v1/gonum/optimize/convex/lp), owning only the
// standard-form conversion and the branch-and-bound shell the
// exclusive-relationship binaries need. The interior-point driver's
// normal-equations core is original code: its shared symbolic
// structure is the defining feature of the batched design and no
// library exposes that amortised refactor shape.
package solver

import (
	"context"
	"time"

	"hydroengine/internal/apperror"
	"hydroengine/internal/lp"
)

// bigBound is the solver-specific large number the LP builder's
// numerical policy expects: lp.Model upper bounds at or above this
// threshold are treated as unbounded rather than folded into a
// constraint row verbatim (numeric.Infinity is math.MaxFloat64, which
// overflows ordinary arithmetic long before a pivot would need it).
const bigBound = 1e12

// Result is the outcome of one Solve call: the primal column values
// (edge flows, in column order, followed by any binary indicators),
// the achieved objective, and solver diagnostics.
type Result struct {
	Primal     []float64
	Objective  float64
	Iterations int
	Duration   time.Duration
	Status     Status
}

// Status classifies a solve outcome at the result level.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusIterationLimit
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusIterationLimit:
		return "iteration_limit"
	default:
		return "unknown"
	}
}

// Driver is implemented by every solver backend the engine can
// select through SolverConfig.
type Driver interface {
	// Name identifies the driver for configuration/logging.
	Name() string
	// Solve returns the primal solution for m, or a *apperror.Error
	// with CodeSolverFailed if the model is infeasible/unbounded or
	// the driver failed to converge within its iteration cap.
	Solve(ctx context.Context, m *lp.Model) (*Result, error)
}

// ErrSolverFailed builds the typed error for a failed solve.
func ErrSolverFailed(kind string, detail string) *apperror.Error {
	return apperror.New(apperror.CodeSolverFailed, detail).WithDetails("kind", kind)
}

func clampBound(ub float64) float64 {
	if ub >= bigBound {
		return bigBound
	}
	return ub
}

// errSingular signals a numerically non-positive-definite
// normal-equations matrix during an interior-point refactor.
var errSingular = apperror.New(apperror.CodeInternal, "singular linear system")
