package solver

import (
	"fmt"

	"hydroengine/pkg/config"
)

// NewFromConfig builds the configured Driver: one discriminated
// record in, one concrete collaborator out.
func NewFromConfig(cfg config.SolverConfig) (Driver, error) {
	switch cfg.Driver {
	case "", "simplex":
		return NewSimplex(), nil
	case "interior_point":
		ipmCfg := IPMConfig{
			PrimalTolerance:     cfg.PrimalTolerance,
			DualTolerance:       cfg.DualTolerance,
			OptimalityTolerance: cfg.OptimalityTolerance,
			MaxIterations:       cfg.MaxIterations,
			SIMDWidth:           cfg.SIMDWidth,
		}
		if ipmCfg.PrimalTolerance <= 0 {
			ipmCfg.PrimalTolerance = DefaultIPMConfig().PrimalTolerance
		}
		if ipmCfg.DualTolerance <= 0 {
			ipmCfg.DualTolerance = DefaultIPMConfig().DualTolerance
		}
		if ipmCfg.OptimalityTolerance <= 0 {
			ipmCfg.OptimalityTolerance = DefaultIPMConfig().OptimalityTolerance
		}
		if ipmCfg.MaxIterations <= 0 {
			ipmCfg.MaxIterations = DefaultIPMConfig().MaxIterations
		}
		if ipmCfg.SIMDWidth <= 0 {
			ipmCfg.SIMDWidth = DefaultIPMConfig().SIMDWidth
		}
		return NewInteriorPoint(ipmCfg), nil
	case "interior_point_gpu":
		chunks := cfg.NumChunks
		if chunks <= 0 {
			chunks = 1
		}
		return &GPUInteriorPoint{NumChunks: chunks}, nil
	default:
		return nil, fmt.Errorf("solver: unknown driver %q", cfg.Driver)
	}
}
