package param

import (
	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/scenario"
)

// VolumeBetweenControlCurves returns the slice of a total volume that
// lies between two control curves: total * (upper - lower). A nil
// upper defaults to 1.0 (the top of the storage) and a nil lower to
// 0.0 (the bottom), so the ends of a piecewise storage stack need no
// synthetic curves.
type VolumeBetweenControlCurves struct {
	name  string
	total metric.Metric
	upper *metric.Metric
	lower *metric.Metric
}

// NewVolumeBetweenControlCurves builds the parameter. upper and lower
// may be nil.
func NewVolumeBetweenControlCurves(name string, total metric.Metric, upper, lower *metric.Metric) *VolumeBetweenControlCurves {
	return &VolumeBetweenControlCurves{name: name, total: total, upper: upper, lower: lower}
}

func (p *VolumeBetweenControlCurves) Name() string         { return p.name }
func (p *VolumeBetweenControlCurves) ValueKind() ValueKind { return ValueF64 }

func (p *VolumeBetweenControlCurves) IsSimple() bool {
	if !p.total.Simple() {
		return false
	}
	if p.upper != nil && !p.upper.Simple() {
		return false
	}
	if p.lower != nil && !p.lower.Simple() {
		return false
	}
	return true
}

func (p *VolumeBetweenControlCurves) Dependencies() []int {
	var deps []int
	add := func(m *metric.Metric) {
		if m != nil && m.Kind == metric.KindParameterValue {
			deps = append(deps, m.Index)
		}
	}
	add(&p.total)
	add(p.upper)
	add(p.lower)
	return deps
}

func (p *VolumeBetweenControlCurves) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return nil, nil
}
func (p *VolumeBetweenControlCurves) Before(_ Context, _ Internal) (bool, float64, error) {
	return false, 0, nil
}
func (p *VolumeBetweenControlCurves) After(_ Context, _ Internal) error { return nil }

func (p *VolumeBetweenControlCurves) Compute(ctx Context, _ Internal) (Output, error) {
	total, err := ctx.Resolver.ResolveF64(p.total, ctx.State)
	if err != nil {
		return Output{}, err
	}

	lower := 0.0
	if p.lower != nil {
		if lower, err = ctx.Resolver.ResolveF64(*p.lower, ctx.State); err != nil {
			return Output{}, err
		}
	}
	upper := 1.0
	if p.upper != nil {
		if upper, err = ctx.Resolver.ResolveF64(*p.upper, ctx.State); err != nil {
			return Output{}, err
		}
	}

	return F64Output(total * (upper - lower)), nil
}
