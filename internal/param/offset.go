package param

import (
	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/scenario"
)

// offsetState holds the current offset when it has been overridden
// through the Variable API; nil means the constructor's static offset
// still applies.
type offsetState struct {
	override *float64
}

// Offset adds a constant (optionally optimisable) offset to a metric.
type Offset struct {
	name       string
	metric     metric.Metric
	offset     float64
	activation *Activation
}

// NewOffset builds a static Offset parameter.
func NewOffset(name string, m metric.Metric, offset float64) *Offset {
	return &Offset{name: name, metric: m, offset: offset}
}

// NewOptimisableOffset builds an Offset whose value is driven by an
// outer optimiser through the Variable interface.
func NewOptimisableOffset(name string, m metric.Metric, act Activation) *Offset {
	return &Offset{name: name, metric: m, activation: &act}
}

func (p *Offset) Name() string         { return p.name }
func (p *Offset) ValueKind() ValueKind { return ValueF64 }

func (p *Offset) Dependencies() []int {
	if p.metric.Kind == metric.KindParameterValue {
		return []int{p.metric.Index}
	}
	return nil
}

func (p *Offset) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return &offsetState{}, nil
}

func (p *Offset) Before(_ Context, _ Internal) (bool, float64, error) { return false, 0, nil }

func (p *Offset) currentOffset(internal Internal) float64 {
	st := internal.(*offsetState)
	if st.override != nil {
		return *st.override
	}
	return p.offset
}

func (p *Offset) Compute(ctx Context, internal Internal) (Output, error) {
	x, err := ctx.Resolver.ResolveF64(p.metric, ctx.State)
	if err != nil {
		return Output{}, err
	}
	return F64Output(x + p.currentOffset(internal)), nil
}

func (p *Offset) After(_ Context, _ Internal) error { return nil }

func (p *Offset) Size(_ any) (int, int) {
	if p.activation == nil {
		return 0, 0
	}
	return 1, 0
}

func (p *Offset) SetVariables(f64s []float64, _ []uint64, _ any, internal Internal) error {
	if p.activation == nil || len(f64s) == 0 {
		return nil
	}
	st := internal.(*offsetState)
	v := p.activation.Apply(f64s[0])
	st.override = &v
	return nil
}

func (p *Offset) GetVariables(internal Internal) ([]float64, []uint64) {
	st := internal.(*offsetState)
	if st.override == nil {
		return nil, nil
	}
	return []float64{*st.override}, nil
}

func (p *Offset) LowerBounds() []float64 {
	if p.activation == nil {
		return nil
	}
	return []float64{p.activation.LowerBound()}
}

func (p *Offset) UpperBounds() []float64 {
	if p.activation == nil {
		return nil
	}
	return []float64{p.activation.UpperBound()}
}
