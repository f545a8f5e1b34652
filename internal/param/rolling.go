package param

import (
	"hydroengine/internal/apperror"
	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/scenario"
)

// rollingMemory is a FIFO of the window's last readings; push trims
// it so it never holds more than windowSize values.
type rollingMemory struct {
	values []float64
}

func (m *rollingMemory) push(v float64, windowSize int) {
	m.values = append(m.values, v)
	if len(m.values) > windowSize {
		m.values = m.values[1:]
	}
}

// Rolling aggregates the last window_size observed values of metric
// with agg_func, returning initial_value until min_values have been
// observed.
type Rolling struct {
	name         string
	metric       metric.Metric
	windowSize   int
	initialValue float64
	minValues    int
	fn           AggFunc
}

// NewRolling builds a Rolling parameter. A zero-length window is a
// construction error, not a runtime one.
func NewRolling(name string, m metric.Metric, windowSize int, initialValue float64, minValues int, fn AggFunc) (*Rolling, error) {
	if windowSize <= 0 {
		return nil, apperror.New(apperror.CodeInvalidConstraintValue, "zero-length rolling window").WithField(name)
	}
	if minValues < 0 {
		return nil, apperror.New(apperror.CodeInvalidConstraintValue, "rolling min_values must not be negative").WithField(name)
	}
	return &Rolling{name: name, metric: m, windowSize: windowSize, initialValue: initialValue, minValues: minValues, fn: fn}, nil
}

func (p *Rolling) Name() string         { return p.name }
func (p *Rolling) ValueKind() ValueKind { return ValueF64 }

func (p *Rolling) Dependencies() []int {
	if p.metric.Kind == metric.KindParameterValue {
		return []int{p.metric.Index}
	}
	return nil
}

func (p *Rolling) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return &rollingMemory{values: make([]float64, 0, p.windowSize)}, nil
}

func (p *Rolling) Before(_ Context, _ Internal) (bool, float64, error) { return false, 0, nil }

func (p *Rolling) Compute(_ Context, internal Internal) (Output, error) {
	mem := internal.(*rollingMemory)
	if len(mem.values) < p.minValues {
		return F64Output(p.initialValue), nil
	}
	return F64Output(aggregate(mem.values, p.fn)), nil
}

func (p *Rolling) After(ctx Context, internal Internal) error {
	v, err := ctx.Resolver.ResolveF64(p.metric, ctx.State)
	if err != nil {
		return err
	}
	internal.(*rollingMemory).push(v, p.windowSize)
	return nil
}
