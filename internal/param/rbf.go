package param

import (
	"math"

	"github.com/katalvlaran/lvlath/matrix"

	"hydroengine/internal/apperror"
	"hydroengine/internal/calendar"
	"hydroengine/internal/scenario"
)

// RbfKind selects the radial kernel used by RbfProfile.
type RbfKind int

const (
	RbfLinear RbfKind = iota
	RbfCubic
	RbfQuintic
	RbfThinPlateSpline
	RbfGaussian
	RbfMultiQuadric
	RbfInverseMultiQuadric
)

// rbfCompute evaluates the chosen kernel at radius r.
func rbfCompute(kind RbfKind, epsilon, r float64) float64 {
	switch kind {
	case RbfLinear:
		return r
	case RbfCubic:
		return r * r * r
	case RbfQuintic:
		return r * r * r * r * r
	case RbfThinPlateSpline:
		if r == 0 {
			return 0
		}
		return r * r * math.Log(r)
	case RbfGaussian:
		v := epsilon * r
		return math.Exp(-(v * v))
	case RbfMultiQuadric:
		v := epsilon * r
		return math.Sqrt(1.0 + v*v)
	case RbfInverseMultiQuadric:
		v := epsilon * r
		return math.Pow(1.0+v*v, -0.5)
	default:
		return r
	}
}

// RbfProfile builds a 366-day annual profile by radial-basis-function
// interpolation through a sparse set of (day_of_year, value) points,
// replicating the points a year before and after to make the fit
// cyclic, then reading day_of_year off the precomputed profile.
type RbfProfile struct {
	name    string
	points  [][2]float64 // (day_of_year, value)
	kind    RbfKind
	epsilon float64
}

// NewRbfProfile builds an RbfProfile parameter.
func NewRbfProfile(name string, points [][2]float64, kind RbfKind, epsilon float64) *RbfProfile {
	return &RbfProfile{name: name, points: points, kind: kind, epsilon: epsilon}
}

func (p *RbfProfile) Name() string         { return p.name }
func (p *RbfProfile) ValueKind() ValueKind { return ValueF64 }
func (p *RbfProfile) Dependencies() []int  { return nil }
func (p *RbfProfile) IsSimple() bool       { return true }

func (p *RbfProfile) Before(_ Context, _ Internal) (bool, float64, error) { return false, 0, nil }
func (p *RbfProfile) After(_ Context, _ Internal) error                   { return nil }

func (p *RbfProfile) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	profile, err := interpolateRbfProfile(p.points, p.kind, p.epsilon)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (p *RbfProfile) Compute(ctx Context, internal Internal) (Output, error) {
	profile := internal.([366]float64)
	return F64Output(profile[ctx.Step.DayOfYear()]), nil
}

// interpolateRbf solves the RBF weight system for the supplied points
// and evaluates the resulting function at every x in xs. The kernel
// matrix is eliminated with partial pivoting: the polyharmonic
// kernels (linear, cubic, quintic, thin-plate) are zero at radius
// zero, so the system carries a zero diagonal and an un-pivoted
// factorisation would hit a zero pivot in the very first step.
func interpolateRbf(points [][2]float64, kind RbfKind, epsilon float64, xs []float64) ([]float64, error) {
	n := len(points)
	a, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to allocate rbf matrix")
	}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			radius := math.Abs(points[c][0] - points[r][0])
			_ = a.Set(r, c, rbfCompute(kind, epsilon, radius))
		}
	}

	b := make([]float64, n)
	for i := range b {
		b[i] = points[i][1]
	}

	weights, err := solvePivoted(a, b)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to solve rbf weight system")
	}

	out := make([]float64, len(xs))
	for i, x := range xs {
		var v float64
		for j, pt := range points {
			radius := math.Abs(x - pt[0])
			v += rbfCompute(kind, epsilon, radius) * weights[j]
		}
		out[i] = v
	}
	return out, nil
}

// solvePivoted eliminates a*x = b with row-pivoted Gaussian
// elimination, reading the coefficient matrix through the same
// lvlath/matrix.Matrix surface the rest of the engine's dense algebra
// uses.
func solvePivoted(a matrix.Matrix, b []float64) ([]float64, error) {
	n := a.Rows()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n+1)
		for j := 0; j < n; j++ {
			v, err := a.At(i, j)
			if err != nil {
				return nil, err
			}
			rows[i][j] = v
		}
		rows[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(rows[r][col]) > math.Abs(rows[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(rows[pivot][col]) < 1e-14 {
			return nil, apperror.New(apperror.CodeInternal, "rbf matrix is singular")
		}
		rows[col], rows[pivot] = rows[pivot], rows[col]

		for r := col + 1; r < n; r++ {
			factor := rows[r][col] / rows[col][col]
			if factor == 0 {
				continue
			}
			for c := col; c <= n; c++ {
				rows[r][c] -= factor * rows[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := rows[i][n]
		for j := i + 1; j < n; j++ {
			sum -= rows[i][j] * x[j]
		}
		x[i] = sum / rows[i][i]
	}
	return x, nil
}

// interpolateRbfProfile repeats points a year before and after to
// make the fit cyclic and computes a 365-day profile whose slot d is
// day d of calendar.DayOfYearConsistent (leap day shares Feb 28's
// slot 58). The 366th slot repeats the last day's value.
func interpolateRbfProfile(points [][2]float64, kind RbfKind, epsilon float64) ([366]float64, error) {
	var out [366]float64

	expanded := make([][2]float64, 0, len(points)*3)
	for _, pt := range points {
		expanded = append(expanded, [2]float64{pt[0] - 365.0, pt[1]})
	}
	expanded = append(expanded, points...)
	for _, pt := range points {
		expanded = append(expanded, [2]float64{pt[0] + 365.0, pt[1]})
	}

	xs := make([]float64, 365)
	for i := range xs {
		xs[i] = float64(i)
	}

	short, err := interpolateRbf(expanded, kind, epsilon, xs)
	if err != nil {
		return out, err
	}

	copy(out[:365], short)
	out[365] = short[364]

	return out, nil
}
