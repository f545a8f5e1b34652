package solver

import (
	"context"
	"math"
	"sort"
	"sync"

	"hydroengine/internal/lp"
)

// IPMConfig carries the tolerances and batching parameters of the
// interior-point driver. The tolerances are split into primal, dual,
// and optimality; a single-epsilon configuration maps onto all
// three.
type IPMConfig struct {
	PrimalTolerance     float64
	DualTolerance       float64
	OptimalityTolerance float64
	MaxIterations       int

	// SIMDWidth is honoured as a batching parameter only: portable Go
	// has no accessible SIMD intrinsics, so scenarios are grouped into
	// lanes of this width and solved concurrently rather than packed
	// into literal vector registers.
	SIMDWidth int
}

// DefaultIPMConfig matches pkg/config.Default()'s solver defaults.
func DefaultIPMConfig() IPMConfig {
	return IPMConfig{
		PrimalTolerance:     1e-6,
		DualTolerance:       1e-6,
		OptimalityTolerance: 1e-6,
		MaxIterations:       200,
		SIMDWidth:           1,
	}
}

// sigma is the fixed centering parameter for the short-step
// path-following scheme below; a constant value in (0,1) keeps the
// iterate inside the central-path neighbourhood without the extra
// affine-scaling predictor pass a Mehrotra corrector would add.
const sigma = 0.1

// InteriorPoint is the batched multi-scenario path-following driver.
// Every scenario shares one constraint matrix A whose sparsity is
// fixed by the network; only the RHS b, cost c, and the current path
// variables vary per scenario. The normal-equations sparsity (A·Aᵀ)
// and the Cholesky factor L's sparsity are computed symbolically ONCE
// per batch (ipmStructure); each scenario then only refactors
// numerically into its own ldata array every iteration. Inequality
// rows are folded to equalities through explicit slack columns, so
// the (x, z) pair of a slack column carries what the split-form
// path-following literature calls the (w, path) variables of the
// inequality rows.
type InteriorPoint struct {
	cfg IPMConfig
}

// NewInteriorPoint builds an InteriorPoint driver with cfg.
func NewInteriorPoint(cfg IPMConfig) *InteriorPoint {
	return &InteriorPoint{cfg: cfg}
}

// Name implements Driver.
func (ip *InteriorPoint) Name() string { return "interior_point" }

// Solve implements Driver for a single scenario's model: a batch of one.
func (ip *InteriorPoint) Solve(ctx context.Context, m *lp.Model) (*Result, error) {
	results, err := ip.BatchSolve(ctx, []*lp.Model{m})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// BatchSolve solves every model in models against one shared symbolic
// structure, grouping scenarios into SIMDWidth-wide lanes solved
// concurrently. Each scenario's status byte drops to 0 once primal
// feasibility, dual feasibility, and optimality all fall below their
// tolerances; failure to converge every scenario within MaxIterations
// is a hard error.
func (ip *InteriorPoint) BatchSolve(ctx context.Context, models []*lp.Model) ([]*Result, error) {
	if len(models) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	structure := newIPMStructure(models[0])

	scenarios := make([]*ipmScenario, len(models))
	for i, m := range models {
		sc, err := structure.bindScenario(m)
		if err != nil {
			return nil, err
		}
		scenarios[i] = sc
	}

	lane := ip.cfg.SIMDWidth
	if lane < 1 {
		lane = 1
	}
	results := make([]*Result, len(models))
	errs := make([]error, len(models))
	status := make([]uint8, len(models))
	for i := range status {
		status[i] = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, lane)
	for i := range scenarios {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			res, err := ip.solveScenario(structure, scenarios[i])
			if err == nil {
				status[i] = 0
			}
			results[i] = res
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// csrMatrix is a compressed-sparse-row matrix with sorted column
// indices per row, the representation the symbolic analysis scans.
type csrMatrix struct {
	rows, cols int
	indptr     []int
	indices    []int
	values     []float64
}

func csrFromDense(rows [][]float64, cols int) *csrMatrix {
	m := &csrMatrix{rows: len(rows), cols: cols, indptr: make([]int, 1, len(rows)+1)}
	for _, row := range rows {
		for j := 0; j < cols; j++ {
			if row[j] != 0 {
				m.indices = append(m.indices, j)
				m.values = append(m.values, row[j])
			}
		}
		m.indptr = append(m.indptr, len(m.indices))
	}
	return m
}

// mulVec computes y = A·x.
func (m *csrMatrix) mulVec(x, y []float64) {
	for i := 0; i < m.rows; i++ {
		sum := 0.0
		for t := m.indptr[i]; t < m.indptr[i+1]; t++ {
			sum += m.values[t] * x[m.indices[t]]
		}
		y[i] = sum
	}
}

// mulVecT computes y = Aᵀ·x.
func (m *csrMatrix) mulVecT(x, y []float64) {
	for j := range y {
		y[j] = 0
	}
	for i := 0; i < m.rows; i++ {
		xi := x[i]
		if xi == 0 {
			continue
		}
		for t := m.indptr[i]; t < m.indptr[i+1]; t++ {
			y[m.indices[t]] += m.values[t] * xi
		}
	}
}

// normalCholeskyIndices holds the precomputed index lists for
// assembling M = A·D·Aᵀ and factoring it with a fixed-structure
// Cholesky, one entry group per nonzero of the lower factor L. The
// arrays and their construction mirror the index sets a batched
// normal-equations solver carries per LP fleet (anorm_indptr/ij/
// indices for the A·Aᵀ products, ldecomp_* for the L[i,k]·L[j,k]
// inner products, lindptr/ldiag_indptr/lindices for L itself, and
// ltindptr/ltindices/ltmap for the transposed sweep).
type normalCholeskyIndices struct {
	anormIndptr  []int
	anormIndptrI []int
	anormIndptrJ []int
	anormIndices []int

	ldecompIndptr  []int
	ldecompIndptrI []int
	ldecompIndptrJ []int

	lindptr     []int
	ldiagIndptr []int
	lindices    []int
	lrow        []int // row of each L entry, for the transposed sweep

	ltindptr  []int
	ltindices []int
	ltmap     []int
}

// newNormalCholeskyIndices scans A once and records, for every
// structurally nonzero entry of the Cholesky factor of A·D·Aᵀ, which
// A-value pairs form its normal-matrix entry and which prior L-entry
// pairs its elimination subtracts. Fill-in is discovered in the same
// pass: an (i, j) entry exists if either scan finds a match.
func newNormalCholeskyIndices(a *csrMatrix) *normalCholeskyIndices {
	s := &normalCholeskyIndices{
		anormIndptr:   []int{0},
		ldecompIndptr: []int{0},
		lindptr:       []int{0},
	}

	for i := 0; i < a.rows; i++ {
		for j := 0; j <= i; j++ {
			nonZero := false

			// Matching column indices of rows i and j give the
			// A·D·Aᵀ[i, j] products.
			ii, jj := a.indptr[i], a.indptr[j]
			for ii < a.indptr[i+1] && jj < a.indptr[j+1] {
				ik, jk := a.indices[ii], a.indices[jj]
				switch {
				case ik == jk:
					s.anormIndptrI = append(s.anormIndptrI, ii)
					s.anormIndptrJ = append(s.anormIndptrJ, jj)
					s.anormIndices = append(s.anormIndices, ik)
					nonZero = true
					ii++
					jj++
				case ik < jk:
					ii++
				default:
					jj++
				}
			}

			// Matching columns of L rows i and j (entries with k < j)
			// give the L[i,k]·L[j,k] elimination products, including
			// any fill-in they imply.
			li, lj := s.lindptr[i], s.lindptr[j]
			liMax := len(s.lindices)
			ljMax := liMax
			if i != j {
				ljMax = s.lindptr[j+1]
			}
			for li < liMax && lj < ljMax {
				lk, rk := s.lindices[li], s.lindices[lj]
				switch {
				case lk == rk:
					s.ldecompIndptrI = append(s.ldecompIndptrI, li)
					s.ldecompIndptrJ = append(s.ldecompIndptrJ, lj)
					nonZero = true
					li++
					lj++
				case lk < rk:
					li++
				default:
					lj++
				}
			}

			if nonZero {
				s.anormIndptr = append(s.anormIndptr, len(s.anormIndptrI))
				s.ldecompIndptr = append(s.ldecompIndptr, len(s.ldecompIndptrI))
				s.lindices = append(s.lindices, j)
				s.lrow = append(s.lrow, i)
			}
			if i == j {
				s.ldiagIndptr = append(s.ldiagIndptr, len(s.lindices)-1)
			}
		}
		s.lindptr = append(s.lindptr, len(s.lindices))
	}

	// The transposed factor's sweep order: L entries stably sorted by
	// column. ltmap sends each Lᵀ position back to its L data slot.
	nnz := len(s.lindices)
	s.ltmap = make([]int, nnz)
	for t := range s.ltmap {
		s.ltmap[t] = t
	}
	sort.SliceStable(s.ltmap, func(p, q int) bool {
		return s.lindices[s.ltmap[p]] < s.lindices[s.ltmap[q]]
	})

	s.ltindptr = make([]int, a.rows+1)
	s.ltindices = make([]int, nnz)
	for p, t := range s.ltmap {
		s.ltindices[p] = s.lrow[t]
		s.ltindptr[s.lindices[t]+1]++
	}
	for i := 0; i < a.rows; i++ {
		s.ltindptr[i+1] += s.ltindptr[i]
	}

	return s
}

// ipmStructure is the per-batch shared symbolic side: the standard
// form layout, A's sparsity, and the normal-equations/Cholesky index
// lists. It is immutable for the life of the batch.
type ipmStructure struct {
	numVars int
	numCols int
	numRows int
	a       *csrMatrix
	sym     *normalCholeskyIndices
}

// ipmScenario is one scenario's numeric side: its A values in the
// shared sparsity order, RHS, cost, and the path/factor work arrays.
type ipmScenario struct {
	a     *csrMatrix // shares indptr/indices with the structure's matrix
	b     []float64
	c     []float64
	ldata []float64
}

func newIPMStructure(m *lp.Model) *ipmStructure {
	sf := toStandardForm(m)
	a := csrFromDense(sf.a, sf.numCols)
	return &ipmStructure{
		numVars: sf.numVars,
		numCols: sf.numCols,
		numRows: len(sf.a),
		a:       a,
		sym:     newNormalCholeskyIndices(a),
	}
}

// bindScenario maps one scenario's model onto the shared sparsity,
// failing if the scenario's structure differs from the batch's.
func (s *ipmStructure) bindScenario(m *lp.Model) (*ipmScenario, error) {
	sf := toStandardForm(m)
	if sf.numCols != s.numCols || len(sf.a) != s.numRows || sf.numVars != s.numVars {
		return nil, ErrSolverFailed("structure_mismatch", "scenario does not share the batch's constraint-matrix shape")
	}

	values := make([]float64, len(s.a.values))
	for i := 0; i < s.numRows; i++ {
		nnz := 0
		for j := 0; j < s.numCols; j++ {
			if sf.a[i][j] != 0 {
				nnz++
			}
		}
		if nnz != s.a.indptr[i+1]-s.a.indptr[i] {
			return nil, ErrSolverFailed("structure_mismatch", "scenario constraint row has a different sparsity pattern")
		}
		for t := s.a.indptr[i]; t < s.a.indptr[i+1]; t++ {
			values[t] = sf.a[i][s.a.indices[t]]
		}
	}

	return &ipmScenario{
		a:     &csrMatrix{rows: s.numRows, cols: s.numCols, indptr: s.a.indptr, indices: s.a.indices, values: values},
		b:     sf.b,
		c:     sf.c,
		ldata: make([]float64, len(s.sym.lindices)),
	}, nil
}

// factorNormal assembles M = A·D·Aᵀ entry by entry in L order using
// the precomputed index lists and immediately eliminates it into the
// scenario's ldata (numerical Cholesky over the fixed symbolic
// structure).
func factorNormal(sym *normalCholeskyIndices, aVals, d, ldata []float64) error {
	for t := range sym.lindices {
		sum := 0.0
		for p := sym.anormIndptr[t]; p < sym.anormIndptr[t+1]; p++ {
			sum += aVals[sym.anormIndptrI[p]] * d[sym.anormIndices[p]] * aVals[sym.anormIndptrJ[p]]
		}
		for p := sym.ldecompIndptr[t]; p < sym.ldecompIndptr[t+1]; p++ {
			sum -= ldata[sym.ldecompIndptrI[p]] * ldata[sym.ldecompIndptrJ[p]]
		}

		j := sym.lindices[t]
		if t == sym.ldiagIndptr[sym.lrow[t]] {
			if sum <= 0 {
				return errSingular
			}
			ldata[t] = math.Sqrt(sum)
		} else {
			ldata[t] = sum / ldata[sym.ldiagIndptr[j]]
		}
	}
	return nil
}

// solveNormal solves L·Lᵀ·out = rhs with the factored ldata: a
// forward sweep over L's rows, then a backward sweep over Lᵀ via the
// transposed index lists.
func solveNormal(sym *normalCholeskyIndices, ldata, rhs, out []float64) {
	n := len(sym.ldiagIndptr)

	y := out // reuse out as the intermediate
	for i := 0; i < n; i++ {
		sum := rhs[i]
		diag := sym.ldiagIndptr[i]
		for t := sym.lindptr[i]; t < diag; t++ {
			sum -= ldata[t] * y[sym.lindices[t]]
		}
		y[i] = sum / ldata[diag]
	}

	for i := n - 1; i >= 0; i-- {
		sum := y[i]
		for p := sym.ltindptr[i]; p < sym.ltindptr[i+1]; p++ {
			row := sym.ltindices[p]
			if row > i {
				sum -= ldata[sym.ltmap[p]] * out[row]
			}
		}
		out[i] = sum / ldata[sym.ldiagIndptr[i]]
	}
}

// solveScenario runs the primal-dual path-following iteration for one
// scenario over the batch's shared structure.
func (ip *InteriorPoint) solveScenario(structure *ipmStructure, sc *ipmScenario) (*Result, error) {
	n := structure.numCols
	numRows := structure.numRows
	sym := structure.sym

	x := make([]float64, n)
	z := make([]float64, n)
	y := make([]float64, numRows)
	for j := range x {
		x[j] = 1
		z[j] = 1
	}

	maxIter := ip.cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 200
	}

	rp := make([]float64, numRows)
	rd := make([]float64, n)
	rc := make([]float64, n)
	d := make([]float64, n)
	aty := make([]float64, n)
	tmp := make([]float64, n)
	rhs := make([]float64, numRows)
	dy := make([]float64, numRows)
	atdy := make([]float64, n)
	dx := make([]float64, n)
	dz := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		sc.a.mulVec(x, rp)
		for i := 0; i < numRows; i++ {
			rp[i] = sc.b[i] - rp[i]
		}

		sc.a.mulVecT(y, aty)
		for j := 0; j < n; j++ {
			rd[j] = sc.c[j] - aty[j] - z[j]
		}

		mu := dot(x, z) / float64(n)

		if normInf(rp) <= ip.cfg.PrimalTolerance &&
			normInf(rd) <= ip.cfg.DualTolerance &&
			mu <= ip.cfg.OptimalityTolerance*(1+math.Abs(dot(sc.c, x))) {
			return ip.result(structure, sc, x, iter), nil
		}

		for j := 0; j < n; j++ {
			rc[j] = sigma*mu - x[j]*z[j]
			if z[j] <= 0 {
				z[j] = 1e-12
			}
			d[j] = x[j] / z[j]
			tmp[j] = rc[j]/z[j] - d[j]*rd[j]
		}

		// rhs = rp - A (Z^{-1} rc - D rd)
		sc.a.mulVec(tmp, rhs)
		for i := 0; i < numRows; i++ {
			rhs[i] = rp[i] - rhs[i]
		}

		if err := factorNormal(sym, sc.a.values, d, sc.ldata); err != nil {
			return nil, ErrSolverFailed(StatusInfeasible.String(), "interior-point normal equations are not positive definite")
		}
		solveNormal(sym, sc.ldata, rhs, dy)

		sc.a.mulVecT(dy, atdy)
		for j := 0; j < n; j++ {
			dx[j] = d[j]*atdy[j] + rc[j]/z[j] - d[j]*rd[j]
			dz[j] = rd[j] - atdy[j]
		}

		alphaP := stepLength(x, dx)
		alphaD := stepLength(z, dz)
		for j := 0; j < n; j++ {
			x[j] += alphaP * dx[j]
			z[j] += alphaD * dz[j]
		}
		for i := 0; i < numRows; i++ {
			y[i] += alphaD * dy[i]
		}
	}

	return nil, ErrSolverFailed(StatusIterationLimit.String(), "interior-point driver did not converge within the iteration cap")
}

func (ip *InteriorPoint) result(structure *ipmStructure, sc *ipmScenario, x []float64, iterations int) *Result {
	primal := make([]float64, structure.numVars)
	copy(primal, x[:structure.numVars])
	var obj float64
	for j := 0; j < structure.numVars; j++ {
		obj += sc.c[j] * primal[j]
	}
	return &Result{Primal: primal, Objective: obj, Iterations: iterations, Status: StatusOptimal}
}

// stepLength returns the largest alpha in (0, 0.995] such that
// v + alpha*dv stays strictly positive in every component.
func stepLength(v, dv []float64) float64 {
	alpha := 1.0
	for j := range v {
		if dv[j] < 0 {
			ratio := -v[j] / dv[j]
			if ratio < alpha {
				alpha = ratio
			}
		}
	}
	return 0.995 * alpha
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func normInf(v []float64) float64 {
	var m float64
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}
