package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydroengine/internal/apperror"
	"hydroengine/internal/lp"
)

func TestInteriorPoint_MatchesSimplex(t *testing.T) {
	m := chainModel()

	sRes, err := NewSimplex().Solve(context.Background(), m)
	require.NoError(t, err)

	ipRes, err := NewInteriorPoint(DefaultIPMConfig()).Solve(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, StatusOptimal, ipRes.Status)
	for j := range sRes.Primal {
		assert.InDelta(t, sRes.Primal[j], ipRes.Primal[j], 1e-3, "column %d", j)
	}
	assert.InDelta(t, sRes.Objective, ipRes.Objective, 1e-2)
}

func TestInteriorPoint_SplitPath(t *testing.T) {
	m := &lp.Model{
		NumFlowVars: 2,
		NumVars:     2,
		LowerBounds: []float64{0, 0},
		UpperBounds: []float64{1e30, 1e30},
		Cost:        []float64{-20, -10},
		Rows: []lp.Row{
			{Coeffs: map[int]float64{0: 1, 1: 1}, Sense: lp.SenseLessEqual, RHS: 15},
			{Coeffs: map[int]float64{0: 1}, Sense: lp.SenseLessEqual, RHS: 5},
		},
	}
	res, err := NewInteriorPoint(DefaultIPMConfig()).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, res.Primal[0], 1e-3)
	assert.InDelta(t, 10.0, res.Primal[1], 1e-3)
}

func TestInteriorPoint_IterationCap(t *testing.T) {
	cfg := DefaultIPMConfig()
	cfg.MaxIterations = 1
	_, err := NewInteriorPoint(cfg).Solve(context.Background(), chainModel())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeSolverFailed))
}

func TestInteriorPoint_Deterministic(t *testing.T) {
	drv := NewInteriorPoint(DefaultIPMConfig())

	a, err := drv.Solve(context.Background(), chainModel())
	require.NoError(t, err)
	b, err := drv.Solve(context.Background(), chainModel())
	require.NoError(t, err)

	// Bit-identical across runs for fixed tolerances and inputs.
	assert.Equal(t, a.Primal, b.Primal)
	assert.Equal(t, a.Objective, b.Objective)
	assert.Equal(t, a.Iterations, b.Iterations)
}

func TestInteriorPoint_BatchSolve(t *testing.T) {
	cfg := DefaultIPMConfig()
	cfg.SIMDWidth = 4
	drv := NewInteriorPoint(cfg)

	models := []*lp.Model{chainModel(), chainModel(), chainModel(), chainModel(), chainModel()}
	results, err := drv.BatchSolve(context.Background(), models)
	require.NoError(t, err)
	require.Len(t, results, len(models))
	for i, res := range results {
		require.NotNil(t, res, "scenario %d", i)
		assert.InDelta(t, 15.0, res.Primal[0], 1e-3, "scenario %d", i)
	}
}

func TestInteriorPoint_BatchFailureIsHard(t *testing.T) {
	cfg := DefaultIPMConfig()
	cfg.MaxIterations = 1
	drv := NewInteriorPoint(cfg)

	_, err := drv.BatchSolve(context.Background(), []*lp.Model{chainModel(), chainModel()})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeSolverFailed),
		"one unconverged scenario fails the whole batch")
}

func TestInteriorPoint_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewInteriorPoint(DefaultIPMConfig()).Solve(ctx, chainModel())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGPUInteriorPoint_Unsupported(t *testing.T) {
	drv := &GPUInteriorPoint{NumChunks: 2}
	assert.Equal(t, "interior_point_gpu", drv.Name())

	_, err := drv.Solve(context.Background(), chainModel())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeSolverFailed))
}
