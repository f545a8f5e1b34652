package param

import (
	"hydroengine/internal/apperror"
	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/numeric"
	"hydroengine/internal/scenario"
)

// ControlCurveInterpolated interpolates between values bracketing the
// control curve(s) that a current storage proportion falls between.
// control_curves must be given most-senior-first (cc1 >= cc2 >= ...);
// values has one more entry than control_curves, with values[0] the
// level at full storage (proportion 1.0) and values[i] the level at
// curve i. Below the last curve it extrapolates toward a synthetic
// lower bound of 0 at empty storage.
type ControlCurveInterpolated struct {
	name          string
	metric        metric.Metric
	controlCurves []metric.Metric
	values        []metric.Metric
}

// NewControlCurveInterpolated builds the parameter; len(values) must
// equal len(controlCurves)+1.
func NewControlCurveInterpolated(name string, m metric.Metric, controlCurves, values []metric.Metric) *ControlCurveInterpolated {
	return &ControlCurveInterpolated{name: name, metric: m, controlCurves: controlCurves, values: values}
}

func (p *ControlCurveInterpolated) Name() string         { return p.name }
func (p *ControlCurveInterpolated) ValueKind() ValueKind { return ValueF64 }
func (p *ControlCurveInterpolated) IsSimple() bool {
	if !p.metric.Simple() {
		return false
	}
	for _, m := range p.controlCurves {
		if !m.Simple() {
			return false
		}
	}
	for _, m := range p.values {
		if !m.Simple() {
			return false
		}
	}
	return true
}

func (p *ControlCurveInterpolated) Dependencies() []int {
	var deps []int
	add := func(m metric.Metric) {
		if m.Kind == metric.KindParameterValue {
			deps = append(deps, m.Index)
		}
	}
	add(p.metric)
	for _, m := range p.controlCurves {
		add(m)
	}
	for _, m := range p.values {
		add(m)
	}
	return deps
}

func (p *ControlCurveInterpolated) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return nil, nil
}
func (p *ControlCurveInterpolated) Before(_ Context, _ Internal) (bool, float64, error) {
	return false, 0, nil
}

func (p *ControlCurveInterpolated) Compute(ctx Context, _ Internal) (Output, error) {
	if len(p.values) != len(p.controlCurves)+1 {
		return Output{}, apperror.New(apperror.CodeInvalidConstraintValue, "control curve interpolated needs one more value than control curve")
	}
	x, err := ctx.Resolver.ResolveF64(p.metric, ctx.State)
	if err != nil {
		return Output{}, err
	}

	ccPrev := 1.0
	for idx, cc := range p.controlCurves {
		ccValue, err := ctx.Resolver.ResolveF64(cc, ctx.State)
		if err != nil {
			return Output{}, err
		}
		if x >= ccValue {
			lower, err := ctx.Resolver.ResolveF64(p.values[idx+1], ctx.State)
			if err != nil {
				return Output{}, err
			}
			upper, err := ctx.Resolver.ResolveF64(p.values[idx], ctx.State)
			if err != nil {
				return Output{}, err
			}
			return F64Output(interpolate(x, ccValue, ccPrev, lower, upper)), nil
		}
		ccPrev = ccValue
	}

	n := len(p.values)
	upper, err := ctx.Resolver.ResolveF64(p.values[n-1], ctx.State)
	if err != nil {
		return Output{}, err
	}
	return F64Output(interpolate(x, 0.0, ccPrev, 0.0, upper)), nil
}

func (p *ControlCurveInterpolated) After(_ Context, _ Internal) error { return nil }

// ControlCurvePiecewiseInterpolated returns a value interpolated
// within the [upper,lower] bracket of the control curve the current
// storage proportion falls within, using configurable domain-end
// minimum/maximum.
type ControlCurvePiecewiseInterpolated struct {
	name          string
	metric        metric.Metric
	controlCurves []metric.Metric
	values        [][2]metric.Metric // [upper, lower] per curve
	minimum       float64
	maximum       float64
}

// NewControlCurvePiecewiseInterpolated builds the parameter.
func NewControlCurvePiecewiseInterpolated(name string, m metric.Metric, controlCurves []metric.Metric, values [][2]metric.Metric, minimum, maximum float64) *ControlCurvePiecewiseInterpolated {
	return &ControlCurvePiecewiseInterpolated{name: name, metric: m, controlCurves: controlCurves, values: values, minimum: minimum, maximum: maximum}
}

func (p *ControlCurvePiecewiseInterpolated) Name() string         { return p.name }
func (p *ControlCurvePiecewiseInterpolated) ValueKind() ValueKind { return ValueF64 }

func (p *ControlCurvePiecewiseInterpolated) Dependencies() []int {
	var deps []int
	add := func(m metric.Metric) {
		if m.Kind == metric.KindParameterValue {
			deps = append(deps, m.Index)
		}
	}
	add(p.metric)
	for _, m := range p.controlCurves {
		add(m)
	}
	for _, pair := range p.values {
		add(pair[0])
		add(pair[1])
	}
	return deps
}

func (p *ControlCurvePiecewiseInterpolated) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return nil, nil
}
func (p *ControlCurvePiecewiseInterpolated) Before(_ Context, _ Internal) (bool, float64, error) {
	return false, 0, nil
}

func (p *ControlCurvePiecewiseInterpolated) Compute(ctx Context, _ Internal) (Output, error) {
	if len(p.values) != len(p.controlCurves) {
		return Output{}, apperror.New(apperror.CodeInvalidConstraintValue, "piecewise control curve needs one value pair per curve")
	}
	x, err := ctx.Resolver.ResolveF64(p.metric, ctx.State)
	if err != nil {
		return Output{}, err
	}

	ccPrev := 1.0
	for idx, cc := range p.controlCurves {
		ccValue, err := ctx.Resolver.ResolveF64(cc, ctx.State)
		if err != nil {
			return Output{}, err
		}
		if x >= ccValue {
			upper, err := ctx.Resolver.ResolveF64(p.values[idx][0], ctx.State)
			if err != nil {
				return Output{}, err
			}
			lower, err := ctx.Resolver.ResolveF64(p.values[idx][1], ctx.State)
			if err != nil {
				return Output{}, err
			}
			return F64Output(interpolate(x, ccValue, ccPrev, lower, upper)), nil
		}
		ccPrev = ccValue
	}

	n := len(p.values)
	lower, err := ctx.Resolver.ResolveF64(p.values[n-1][1], ctx.State)
	if err != nil {
		return Output{}, err
	}
	return F64Output(interpolate(x, p.minimum, ccPrev, lower, p.maximum)), nil
}

func (p *ControlCurvePiecewiseInterpolated) After(_ Context, _ Internal) error { return nil }

// ControlCurveIndex returns the 0-based index of the first control
// curve the current storage proportion is at or above, or
// len(controlCurves) when it is below every curve.
type ControlCurveIndex struct {
	name          string
	metric        metric.Metric
	controlCurves []metric.Metric
}

// NewControlCurveIndex builds the parameter.
func NewControlCurveIndex(name string, m metric.Metric, controlCurves []metric.Metric) *ControlCurveIndex {
	return &ControlCurveIndex{name: name, metric: m, controlCurves: controlCurves}
}

func (p *ControlCurveIndex) Name() string         { return p.name }
func (p *ControlCurveIndex) ValueKind() ValueKind { return ValueU64 }

func (p *ControlCurveIndex) Dependencies() []int {
	var deps []int
	add := func(m metric.Metric) {
		if m.Kind == metric.KindParameterValue {
			deps = append(deps, m.Index)
		}
	}
	add(p.metric)
	for _, m := range p.controlCurves {
		add(m)
	}
	return deps
}

func (p *ControlCurveIndex) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return nil, nil
}
func (p *ControlCurveIndex) Before(_ Context, _ Internal) (bool, float64, error) {
	return false, 0, nil
}

func (p *ControlCurveIndex) Compute(ctx Context, _ Internal) (Output, error) {
	x, err := ctx.Resolver.ResolveF64(p.metric, ctx.State)
	if err != nil {
		return Output{}, err
	}
	for idx, cc := range p.controlCurves {
		ccValue, err := ctx.Resolver.ResolveF64(cc, ctx.State)
		if err != nil {
			return Output{}, err
		}
		if x >= ccValue {
			return U64Output(uint64(idx)), nil
		}
	}
	return U64Output(uint64(len(p.controlCurves))), nil
}

func (p *ControlCurveIndex) After(_ Context, _ Internal) error { return nil }

// Apportion splits a value into upper/lower shares given a proportion
// p in [0,1] (clamped): upper = (1-p)*v, lower = p*v.
type Apportion struct {
	name       string
	value      metric.Metric
	proportion metric.Metric
}

// NewApportion builds the parameter.
func NewApportion(name string, value, proportion metric.Metric) *Apportion {
	return &Apportion{name: name, value: value, proportion: proportion}
}

func (p *Apportion) Name() string         { return p.name }
func (p *Apportion) ValueKind() ValueKind { return ValueF64 }

func (p *Apportion) Dependencies() []int {
	var deps []int
	if p.value.Kind == metric.KindParameterValue {
		deps = append(deps, p.value.Index)
	}
	if p.proportion.Kind == metric.KindParameterValue {
		deps = append(deps, p.proportion.Index)
	}
	return deps
}

func (p *Apportion) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) { return nil, nil }
func (p *Apportion) Before(_ Context, _ Internal) (bool, float64, error)         { return false, 0, nil }

// Compute returns the (1-p)*v share; the p*v share is the second named
// output, exposed by the ApportionLower wrapper below. pywr's Apportion produces a
// named multi-value; this engine exposes the pair as two Parameter
// registrations sharing the same proportion/value metrics, Upper and
// Lower, rather than inventing a multi-output Parameter shape.
func (p *Apportion) Compute(ctx Context, _ Internal) (Output, error) {
	v, err := ctx.Resolver.ResolveF64(p.value, ctx.State)
	if err != nil {
		return Output{}, err
	}
	frac, err := ctx.Resolver.ResolveF64(p.proportion, ctx.State)
	if err != nil {
		return Output{}, err
	}
	frac = numeric.Clamp(frac, 0, 1)
	return F64Output((1 - frac) * v), nil
}

func (p *Apportion) After(_ Context, _ Internal) error { return nil }

// ApportionLower is the paired lower-share output of an Apportion.
type ApportionLower struct {
	*Apportion
	lowerName string
}

// NewApportionLower wraps base to expose the p*v share under its own name.
func NewApportionLower(base *Apportion, name string) *ApportionLower {
	return &ApportionLower{Apportion: base, lowerName: name}
}

func (p *ApportionLower) Name() string { return p.lowerName }

func (p *ApportionLower) Compute(ctx Context, _ Internal) (Output, error) {
	v, err := ctx.Resolver.ResolveF64(p.value, ctx.State)
	if err != nil {
		return Output{}, err
	}
	frac, err := ctx.Resolver.ResolveF64(p.proportion, ctx.State)
	if err != nil {
		return Output{}, err
	}
	frac = numeric.Clamp(frac, 0, 1)
	return F64Output(frac * v), nil
}
