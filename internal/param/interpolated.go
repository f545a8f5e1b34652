package param

import (
	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/scenario"
)

// Interpolated linearly interpolates a metric x against a table of
// (x, f) point metrics, all of which are re-resolved every step so the
// table itself may be driven by other parameters.
type Interpolated struct {
	name          string
	x             metric.Metric
	points        [][2]metric.Metric // (x, f) pairs
	errorOnBounds bool
}

// NewInterpolated builds an Interpolated parameter.
func NewInterpolated(name string, x metric.Metric, points [][2]metric.Metric, errorOnBounds bool) *Interpolated {
	return &Interpolated{name: name, x: x, points: points, errorOnBounds: errorOnBounds}
}

func (p *Interpolated) Name() string         { return p.name }
func (p *Interpolated) ValueKind() ValueKind { return ValueF64 }

func (p *Interpolated) Dependencies() []int {
	var deps []int
	add := func(m metric.Metric) {
		if m.Kind == metric.KindParameterValue {
			deps = append(deps, m.Index)
		}
	}
	add(p.x)
	for _, pt := range p.points {
		add(pt[0])
		add(pt[1])
	}
	return deps
}

func (p *Interpolated) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) { return nil, nil }
func (p *Interpolated) Before(_ Context, _ Internal) (bool, float64, error)         { return false, 0, nil }

func (p *Interpolated) Compute(ctx Context, _ Internal) (Output, error) {
	x, err := ctx.Resolver.ResolveF64(p.x, ctx.State)
	if err != nil {
		return Output{}, err
	}

	xs := make([]float64, len(p.points))
	fs := make([]float64, len(p.points))
	for i, pt := range p.points {
		xs[i], err = ctx.Resolver.ResolveF64(pt[0], ctx.State)
		if err != nil {
			return Output{}, err
		}
		fs[i], err = ctx.Resolver.ResolveF64(pt[1], ctx.State)
		if err != nil {
			return Output{}, err
		}
	}

	i, err := lookupBracket(xs, x, p.errorOnBounds)
	if err != nil {
		return Output{}, err
	}

	return F64Output(interpolate(x, xs[i], xs[i+1], fs[i], fs[i+1])), nil
}

func (p *Interpolated) After(_ Context, _ Internal) error { return nil }
