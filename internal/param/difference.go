package param

import (
	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/scenario"
)

// Difference computes a-b, optionally clamped to [min, max] when those
// bounding metrics are supplied.
type Difference struct {
	name     string
	a, b     metric.Metric
	min, max *metric.Metric
}

// NewDifference builds a Difference parameter. min/max may be nil.
func NewDifference(name string, a, b metric.Metric, min, max *metric.Metric) *Difference {
	return &Difference{name: name, a: a, b: b, min: min, max: max}
}

func (p *Difference) Name() string         { return p.name }
func (p *Difference) ValueKind() ValueKind { return ValueF64 }

func (p *Difference) IsSimple() bool {
	if !p.a.Simple() || !p.b.Simple() {
		return false
	}
	if p.min != nil && !p.min.Simple() {
		return false
	}
	if p.max != nil && !p.max.Simple() {
		return false
	}
	return true
}

func (p *Difference) Dependencies() []int {
	var deps []int
	add := func(m metric.Metric) {
		if m.Kind == metric.KindParameterValue {
			deps = append(deps, m.Index)
		}
	}
	add(p.a)
	add(p.b)
	if p.min != nil {
		add(*p.min)
	}
	if p.max != nil {
		add(*p.max)
	}
	return deps
}

func (p *Difference) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) { return nil, nil }
func (p *Difference) Before(_ Context, _ Internal) (bool, float64, error)         { return false, 0, nil }

func (p *Difference) Compute(ctx Context, _ Internal) (Output, error) {
	a, err := ctx.Resolver.ResolveF64(p.a, ctx.State)
	if err != nil {
		return Output{}, err
	}
	b, err := ctx.Resolver.ResolveF64(p.b, ctx.State)
	if err != nil {
		return Output{}, err
	}

	result := a - b

	if p.min != nil {
		min, err := ctx.Resolver.ResolveF64(*p.min, ctx.State)
		if err != nil {
			return Output{}, err
		}
		if result < min {
			result = min
		}
	}
	if p.max != nil {
		max, err := ctx.Resolver.ResolveF64(*p.max, ctx.State)
		if err != nil {
			return Output{}, err
		}
		if result > max {
			result = max
		}
	}

	return F64Output(result), nil
}

func (p *Difference) After(_ Context, _ Internal) error { return nil }
