package param

import (
	"container/list"

	"hydroengine/internal/apperror"
	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/scenario"
)

// Delay holds a delay-deep FIFO seeded with initial_value;
// Compute pops the oldest entry, After pushes today's reading. The
// queue is constructed at Setup with exactly `delay` entries and is
// never observed empty: `delay == 0` degenerates to returning today's
// value unchanged (identity), since a zero-length FIFO would always
// underflow on the first pop.
type Delay struct {
	name         string
	metric       metric.Metric
	delay        uint64
	initialValue float64
}

// NewDelay builds a Delay parameter.
func NewDelay(name string, m metric.Metric, delay uint64, initialValue float64) *Delay {
	return &Delay{name: name, metric: m, delay: delay, initialValue: initialValue}
}

func (p *Delay) Name() string         { return p.name }
func (p *Delay) ValueKind() ValueKind { return ValueF64 }

func (p *Delay) Dependencies() []int {
	if p.metric.Kind == metric.KindParameterValue {
		return []int{p.metric.Index}
	}
	return nil
}

func (p *Delay) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	fifo := list.New()
	for i := uint64(0); i < p.delay; i++ {
		fifo.PushBack(p.initialValue)
	}
	return fifo, nil
}

func (p *Delay) Before(_ Context, _ Internal) (bool, float64, error) { return false, 0, nil }

func (p *Delay) Compute(ctx Context, internal Internal) (Output, error) {
	if p.delay == 0 {
		v, err := ctx.Resolver.ResolveF64(p.metric, ctx.State)
		if err != nil {
			return Output{}, err
		}
		return F64Output(v), nil
	}
	fifo := internal.(*list.List)
	front := fifo.Front()
	if front == nil {
		return Output{}, apperror.NewCritical(apperror.CodeInternal, "delay parameter queue is empty")
	}
	fifo.Remove(front)
	return F64Output(front.Value.(float64)), nil
}

func (p *Delay) After(ctx Context, internal Internal) error {
	if p.delay == 0 {
		return nil
	}
	v, err := ctx.Resolver.ResolveF64(p.metric, ctx.State)
	if err != nil {
		return err
	}
	fifo := internal.(*list.List)
	fifo.PushBack(v)
	return nil
}
