package param

import (
	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/scenario"
)

// Predicate is a comparison applied between a metric and a threshold.
type Predicate int

const (
	PredicateGreaterThan Predicate = iota
	PredicateGreaterThanOrEqual
	PredicateLessThan
	PredicateLessThanOrEqual
	PredicateEqual
)

func (pr Predicate) apply(value, threshold float64) bool {
	switch pr {
	case PredicateGreaterThan:
		return value > threshold
	case PredicateGreaterThanOrEqual:
		return value >= threshold
	case PredicateLessThan:
		return value < threshold
	case PredicateLessThanOrEqual:
		return value <= threshold
	case PredicateEqual:
		return value == threshold
	default:
		return false
	}
}

// multiThresholdState is the ratchet's previous-maximum position.
type multiThresholdState struct {
	previousMax uint64
}

// MultiThreshold returns the index of the first threshold the metric
// satisfies under predicate, walking thresholds in the order given.
// When ratchet is set, the returned index never decreases across a
// scenario's run: once a higher band is reached, the parameter holds
// there even if the metric later falls back.
type MultiThreshold struct {
	name       string
	metric     metric.Metric
	thresholds []metric.Metric
	predicate  Predicate
	ratchet    bool
}

// NewMultiThreshold builds a MultiThreshold parameter.
func NewMultiThreshold(name string, m metric.Metric, thresholds []metric.Metric, predicate Predicate, ratchet bool) *MultiThreshold {
	return &MultiThreshold{name: name, metric: m, thresholds: thresholds, predicate: predicate, ratchet: ratchet}
}

func (p *MultiThreshold) Name() string         { return p.name }
func (p *MultiThreshold) ValueKind() ValueKind { return ValueU64 }

func (p *MultiThreshold) Dependencies() []int {
	var deps []int
	if p.metric.Kind == metric.KindParameterValue {
		deps = append(deps, p.metric.Index)
	}
	for _, t := range p.thresholds {
		if t.Kind == metric.KindParameterValue {
			deps = append(deps, t.Index)
		}
	}
	return deps
}

func (p *MultiThreshold) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return &multiThresholdState{}, nil
}

func (p *MultiThreshold) Before(_ Context, _ Internal) (bool, float64, error) { return false, 0, nil }

func (p *MultiThreshold) Compute(ctx Context, internal Internal) (Output, error) {
	st := internal.(*multiThresholdState)

	value, err := ctx.Resolver.ResolveF64(p.metric, ctx.State)
	if err != nil {
		return Output{}, err
	}

	var position uint64
	for _, threshold := range p.thresholds {
		t, err := ctx.Resolver.ResolveF64(threshold, ctx.State)
		if err != nil {
			return Output{}, err
		}
		if p.predicate.apply(value, t) {
			break
		}
		position++
	}

	if p.ratchet {
		if position > st.previousMax {
			st.previousMax = position
		} else {
			return U64Output(st.previousMax), nil
		}
	}

	return U64Output(position), nil
}

func (p *MultiThreshold) After(_ Context, _ Internal) error { return nil }
