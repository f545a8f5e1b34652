package solver

import (
	"context"
	"errors"
	"time"

	"gonum.org/v1/gonum/mat"
	golp "gonum.org/v1/gonum/optimize/convex/lp"

	"hydroengine/internal/lp"
)

// maxBranchNodes bounds the branch-and-bound search the exclusive
// relationship's binary indicators require; this is the only integer
// encoding the engine supports, so a small bounded search around the
// LP solver suffices.
const maxBranchNodes = 512

// Simplex is the per-scenario solver driver. The LP relaxations
// themselves are solved by gonum's simplex
// (gonum.org/v1/gonum/optimize/convex/lp); this driver owns only the
// standard-form conversion and the branch-and-bound shell around the
// exclusive-relationship binaries. It holds no state, so Pool's
// workers share one instance, and each step's relaxations are solved
// from scratch rather than from a warm-started basis.
type Simplex struct{}

// NewSimplex constructs a Simplex driver.
func NewSimplex() *Simplex { return &Simplex{} }

// Name implements Driver.
func (s *Simplex) Name() string { return "simplex" }

// Solve implements Driver. It relaxes any exclusive-relationship
// binary variables to [0,1] continuous, solves, and branches on the
// first fractional binary found until every binary is integral or the
// branch node cap is hit.
func (s *Simplex) Solve(ctx context.Context, m *lp.Model) (*Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nodes := 0
	best, status, err := branchAndBound(m, nil, &nodes)
	dur := time.Since(start)
	if err != nil {
		return nil, err
	}
	if status != StatusOptimal {
		return nil, ErrSolverFailed(status.String(), "simplex driver did not find an optimal solution")
	}
	return &Result{
		Primal:     best.primal,
		Objective:  best.objective,
		Iterations: nodes,
		Duration:   dur,
		Status:     StatusOptimal,
	}, nil
}

type branchResult struct {
	primal    []float64
	objective float64
}

// branchAndBound depth-first searches fixed-value assignments for
// fractional binary columns, keeping the lowest-objective integral
// incumbent found within maxBranchNodes relaxations.
func branchAndBound(m *lp.Model, fixed map[int]float64, nodes *int) (*branchResult, Status, error) {
	if *nodes >= maxBranchNodes {
		return nil, StatusIterationLimit, nil
	}
	*nodes++

	res, status, err := solveRelaxation(m, fixed)
	if err != nil {
		return nil, status, err
	}
	if status != StatusOptimal {
		return nil, status, nil
	}

	branchCol := firstFractionalBinary(m, res.primal)
	if branchCol < 0 {
		return res, StatusOptimal, nil
	}

	var best *branchResult
	for _, v := range [2]float64{0, 1} {
		childFixed := make(map[int]float64, len(fixed)+1)
		for k, val := range fixed {
			childFixed[k] = val
		}
		childFixed[branchCol] = v
		child, childStatus, err := branchAndBound(m, childFixed, nodes)
		if err != nil {
			return nil, StatusInfeasible, err
		}
		if childStatus != StatusOptimal {
			continue
		}
		if best == nil || child.objective < best.objective {
			best = child
		}
	}
	if best == nil {
		return nil, StatusInfeasible, nil
	}
	return best, StatusOptimal, nil
}

// firstFractionalBinary returns the first binary column whose
// relaxed value is not within tolerance of 0 or 1, or -1 if every
// binary is already integral. The tolerance must stay well below
// flow/lp.BigM for any flow the network carries, or an indicator held
// at its coupling bound would be misread as integral zero.
func firstFractionalBinary(m *lp.Model, primal []float64) int {
	const eps = 1e-9
	for _, col := range m.BinaryVars {
		if col >= len(primal) {
			continue
		}
		v := primal[col]
		if v > eps && v < 1-eps {
			return col
		}
	}
	return -1
}

// solveRelaxation folds the model's rows, finite column upper bounds,
// and any branch-and-bound fixings into standard form and hands the
// result to gonum's simplex.
func solveRelaxation(m *lp.Model, fixed map[int]float64) (*branchResult, Status, error) {
	rows := make([]lp.Row, 0, len(m.Rows)+len(m.UpperBounds)+len(fixed))
	rows = append(rows, m.Rows...)
	for j, ub := range m.UpperBounds {
		if ub < bigBound {
			rows = append(rows, lp.Row{Coeffs: map[int]float64{j: 1}, Sense: lp.SenseLessEqual, RHS: clampBound(ub)})
		}
	}
	for col, v := range fixed {
		rows = append(rows, lp.Row{Coeffs: map[int]float64{col: 1}, Sense: lp.SenseEqual, RHS: v})
	}

	if len(rows) == 0 {
		// A model with no constraints at all: every column sits at
		// zero unless its cost rewards unbounded growth.
		for _, c := range m.Cost {
			if c < 0 {
				return nil, StatusUnbounded, nil
			}
		}
		return &branchResult{primal: make([]float64, m.NumVars)}, StatusOptimal, nil
	}

	sf := standardFormFromRows(m.NumVars, rows, m.Cost)

	dense := mat.NewDense(len(sf.a), sf.numCols, nil)
	for i, row := range sf.a {
		dense.SetRow(i, row)
	}

	optF, optX, err := golp.Simplex(sf.c, dense, sf.b, 0, nil)
	if err != nil {
		switch {
		case errors.Is(err, golp.ErrInfeasible):
			return nil, StatusInfeasible, nil
		case errors.Is(err, golp.ErrUnbounded):
			return nil, StatusUnbounded, nil
		default:
			return nil, StatusInfeasible, ErrSolverFailed("numerical", err.Error())
		}
	}

	primal := make([]float64, m.NumVars)
	copy(primal, optX[:m.NumVars])
	return &branchResult{primal: primal, objective: optF}, StatusOptimal, nil
}
