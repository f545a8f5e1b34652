package solver

import "hydroengine/internal/lp"

// standardForm is Ax=b, x>=0, minimize c^T x: the equality-only shape
// both drivers operate on. Every lp.Model row and finite column upper
// bound is folded into it via slack/surplus columns appended after
// the model's own NumVars columns.
type standardForm struct {
	numVars int // original model columns
	numCols int // numVars + slack/surplus columns
	a       [][]float64
	b       []float64
	c       []float64
}

func toStandardForm(m *lp.Model) *standardForm {
	rows := make([]lp.Row, 0, len(m.Rows)+len(m.UpperBounds))
	rows = append(rows, m.Rows...)
	for j, ub := range m.UpperBounds {
		if ub < bigBound {
			rows = append(rows, lp.Row{Coeffs: map[int]float64{j: 1}, Sense: lp.SenseLessEqual, RHS: clampBound(ub)})
		}
	}
	return standardFormFromRows(m.NumVars, rows, m.Cost)
}

// standardFormFromRows folds an explicit row list (the model's own
// rows plus any caller-added bound or branching rows) into standard
// form.
func standardFormFromRows(numVars int, rows []lp.Row, cost []float64) *standardForm {
	extra := 0
	for _, r := range rows {
		if r.Sense != lp.SenseEqual {
			extra++
		}
	}
	numCols := numVars + extra
	sf := &standardForm{
		numVars: numVars,
		numCols: numCols,
		a:       make([][]float64, len(rows)),
		b:       make([]float64, len(rows)),
		c:       make([]float64, numCols),
	}
	copy(sf.c, cost)

	nextCol := numVars
	for i, r := range rows {
		row := make([]float64, numCols)
		for col, coeff := range r.Coeffs {
			row[col] = coeff
		}
		switch r.Sense {
		case lp.SenseLessEqual:
			row[nextCol] = 1
			nextCol++
		case lp.SenseGreaterEqual:
			row[nextCol] = -1
			nextCol++
		}
		sf.a[i] = row
		sf.b[i] = r.RHS
	}
	return sf
}
