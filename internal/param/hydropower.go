package param

import (
	"hydroengine/internal/apperror"
	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/scenario"
)

const gravity = 9.80665 // m/s^2

// hydropowerCalculation converts a turbined flow into generated power.
// flow is in the model's native flow units, converted to m^3/s by
// flowUnitConversion; the result is in native power units, converted
// from watts by energyUnitConversion.
func hydropowerCalculation(flow, head, efficiency, flowUnitConversion, energyUnitConversion, waterDensity float64) float64 {
	q := flow * flowUnitConversion
	watts := waterDensity * gravity * q * head * efficiency
	return watts * energyUnitConversion
}

// inverseHydropowerCalculation recovers the turbined flow (in the
// model's native flow units) required to generate the given power at
// head, the inverse of hydropowerCalculation.
func inverseHydropowerCalculation(power, head, efficiency, flowUnitConversion, energyUnitConversion, waterDensity float64) float64 {
	watts := power / energyUnitConversion
	q := watts / (waterDensity * gravity * head * efficiency)
	return q / flowUnitConversion
}

// hydropowerState carries no data; Setup returns it as the
// parameter's internal handle, and neither Before nor After reads it.
type hydropowerState struct{}

// HydropowerTarget derives, in Before, the turbine flow needed to meet
// a power target at the current head (bounded by optional min/max
// flow), and in After derives the power actually generated from the
// flow the solver settled on.
type HydropowerTarget struct {
	name                 string
	target               *metric.Metric
	actualFlow           *metric.Metric
	maxFlow              *metric.Metric
	minFlow              *metric.Metric
	waterElevation       *metric.Metric
	turbineElevation     float64
	turbineMinHead       float64
	turbineEfficiency    float64
	waterDensity         float64
	flowUnitConversion   float64
	energyUnitConversion float64
}

// HydropowerTargetConfig groups the construction parameters, mirroring
// the optional-field bundle the source parameter is built from.
type HydropowerTargetConfig struct {
	Target               *metric.Metric
	ActualFlow           *metric.Metric
	MaxFlow              *metric.Metric
	MinFlow              *metric.Metric
	WaterElevation       *metric.Metric
	TurbineElevation     float64
	TurbineMinHead       float64
	TurbineEfficiency    float64 // 0 defaults to 1.0
	WaterDensity         float64 // 0 defaults to 1000.0
	FlowUnitConversion   float64 // 0 defaults to 1.0
	EnergyUnitConversion float64 // 0 defaults to 1e-6
}

// NewHydropowerTarget builds a HydropowerTarget parameter.
func NewHydropowerTarget(name string, cfg HydropowerTargetConfig) *HydropowerTarget {
	efficiency := cfg.TurbineEfficiency
	if efficiency == 0 {
		efficiency = 1.0
	}
	density := cfg.WaterDensity
	if density == 0 {
		density = 1000.0
	}
	flowConv := cfg.FlowUnitConversion
	if flowConv == 0 {
		flowConv = 1.0
	}
	energyConv := cfg.EnergyUnitConversion
	if energyConv == 0 {
		energyConv = 1e-6
	}
	return &HydropowerTarget{
		name:                 name,
		target:               cfg.Target,
		actualFlow:           cfg.ActualFlow,
		maxFlow:              cfg.MaxFlow,
		minFlow:              cfg.MinFlow,
		waterElevation:       cfg.WaterElevation,
		turbineElevation:     cfg.TurbineElevation,
		turbineMinHead:       cfg.TurbineMinHead,
		turbineEfficiency:    efficiency,
		waterDensity:         density,
		flowUnitConversion:   flowConv,
		energyUnitConversion: energyConv,
	}
}

func (p *HydropowerTarget) Name() string         { return p.name }
func (p *HydropowerTarget) ValueKind() ValueKind { return ValueF64 }

func (p *HydropowerTarget) Dependencies() []int {
	var deps []int
	add := func(m *metric.Metric) {
		if m != nil && m.Kind == metric.KindParameterValue {
			deps = append(deps, m.Index)
		}
	}
	add(p.target)
	add(p.actualFlow)
	add(p.maxFlow)
	add(p.minFlow)
	add(p.waterElevation)
	return deps
}

func (p *HydropowerTarget) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return &hydropowerState{}, nil
}

// BeforeMetrics implements BeforeReader: everything Before resolves
// ahead of the solve. The actual-flow metric is deliberately absent —
// it is only read by After, once the solve has fixed the flows.
func (p *HydropowerTarget) BeforeMetrics() []metric.Metric {
	var ms []metric.Metric
	for _, m := range []*metric.Metric{p.target, p.maxFlow, p.minFlow, p.waterElevation} {
		if m != nil {
			ms = append(ms, *m)
		}
	}
	return ms
}

func (p *HydropowerTarget) head(ctx Context) (float64, error) {
	if p.waterElevation == nil {
		return numericMax(p.turbineElevation, 0), nil
	}
	elevation, err := ctx.Resolver.ResolveF64(*p.waterElevation, ctx.State)
	if err != nil {
		return 0, err
	}
	return numericMax(elevation-p.turbineElevation, 0), nil
}

func numericMax(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Before derives the flow required to hit the power target. When the
// head is at or below the turbine's minimum head it publishes zero
// flow; otherwise a parameter with no target metric produces no value
// here and Compute reports 0.
func (p *HydropowerTarget) Before(ctx Context, _ Internal) (bool, float64, error) {
	head, err := p.head(ctx)
	if err != nil {
		return false, 0, err
	}
	if head <= p.turbineMinHead {
		return true, 0, nil
	}
	if p.target == nil {
		return false, 0, nil
	}

	power, err := ctx.Resolver.ResolveF64(*p.target, ctx.State)
	if err != nil {
		return false, 0, err
	}
	q := inverseHydropowerCalculation(power, head, p.turbineEfficiency, p.flowUnitConversion, p.energyUnitConversion, p.waterDensity)

	if p.maxFlow != nil {
		maxFlow, err := ctx.Resolver.ResolveF64(*p.maxFlow, ctx.State)
		if err != nil {
			return false, 0, err
		}
		q = numericMin(q, maxFlow)
	}
	if p.minFlow != nil {
		minFlow, err := ctx.Resolver.ResolveF64(*p.minFlow, ctx.State)
		if err != nil {
			return false, 0, err
		}
		q = numericMax(q, minFlow)
	}

	if q < 0 {
		return false, 0, apperror.NewCritical(apperror.CodeInternal, "hydropower target flow is negative")
	}
	return true, q, nil
}

func numericMin(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func (p *HydropowerTarget) Compute(ctx Context, _ Internal) (Output, error) {
	has, v, err := p.Before(ctx, nil)
	if err != nil {
		return Output{}, err
	}
	if has {
		return F64Output(v), nil
	}
	return F64Output(0), nil
}

// After derives the power generated from the flow the solver actually
// routed through the turbine node.
func (p *HydropowerTarget) After(ctx Context, _ Internal) error {
	if p.actualFlow == nil {
		return nil
	}
	flow, err := ctx.Resolver.ResolveF64(*p.actualFlow, ctx.State)
	if err != nil {
		return err
	}
	head, err := p.head(ctx)
	if err != nil {
		return err
	}
	if head <= p.turbineMinHead {
		ctx.State.Derived[p.name] = 0
		return nil
	}
	power := hydropowerCalculation(flow, head, p.turbineEfficiency, p.flowUnitConversion, p.energyUnitConversion, p.waterDensity)
	ctx.State.Derived[p.name] = power
	return nil
}
