package param

import (
	"hydroengine/internal/apperror"
	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/scenario"
)

// AggFunc is the closed set of aggregation functions shared by the
// Aggregated and Rolling parameters.
type AggFunc int

const (
	AggSum AggFunc = iota
	AggMean
	AggProduct
	AggMin
	AggMax
	AggCountNonZero
	AggAny
	AggAll
)

func aggregate(values []float64, fn AggFunc) float64 {
	if len(values) == 0 {
		return 0
	}
	switch fn {
	case AggSum:
		var s float64
		for _, v := range values {
			s += v
		}
		return s
	case AggMean:
		var s float64
		for _, v := range values {
			s += v
		}
		return s / float64(len(values))
	case AggProduct:
		p := 1.0
		for _, v := range values {
			p *= v
		}
		return p
	case AggMin:
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case AggMax:
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case AggCountNonZero:
		var c float64
		for _, v := range values {
			if v != 0 {
				c++
			}
		}
		return c
	case AggAny:
		for _, v := range values {
			if v != 0 {
				return 1
			}
		}
		return 0
	case AggAll:
		for _, v := range values {
			if v == 0 {
				return 0
			}
		}
		return 1
	default:
		return 0
	}
}

// durationWeightedAggregate applies the duration-weighted sum/mean
// variants available for PeriodValue inputs: Sum adds each value
// scaled by its own duration fraction, Mean divides that weighted sum
// by the total duration, and every other function aggregates the
// unscaled values.
func durationWeightedAggregate(values []float64, durations []float64, fn AggFunc) float64 {
	weighted := make([]float64, len(values))
	for i, v := range values {
		weighted[i] = v * durations[i]
	}
	switch fn {
	case AggSum:
		return aggregate(weighted, AggSum)
	case AggMean:
		var s, d float64
		for i := range weighted {
			s += weighted[i]
			d += durations[i]
		}
		if d == 0 {
			return 0
		}
		return s / d
	default:
		return aggregate(values, fn)
	}
}

// Aggregated combines several metric sources with a single AggFunc.
type Aggregated struct {
	name             string
	sources          []metric.Metric
	fn               AggFunc
	durationWeighted bool
}

// NewAggregated builds an Aggregated parameter over sources.
func NewAggregated(name string, sources []metric.Metric, fn AggFunc, durationWeighted bool) *Aggregated {
	return &Aggregated{name: name, sources: sources, fn: fn, durationWeighted: durationWeighted}
}

func (a *Aggregated) Name() string         { return a.name }
func (a *Aggregated) ValueKind() ValueKind { return ValueF64 }

func (a *Aggregated) Dependencies() []int {
	var deps []int
	for _, m := range a.sources {
		if m.Kind == metric.KindParameterValue {
			deps = append(deps, m.Index)
		}
	}
	return deps
}

func (a *Aggregated) IsSimple() bool {
	for _, m := range a.sources {
		if !m.Simple() {
			return false
		}
	}
	return true
}

func (a *Aggregated) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) { return nil, nil }
func (a *Aggregated) Before(_ Context, _ Internal) (bool, float64, error)         { return false, 0, nil }

func (a *Aggregated) Compute(ctx Context, _ Internal) (Output, error) {
	values := make([]float64, len(a.sources))
	for i, m := range a.sources {
		v, err := ctx.Resolver.ResolveF64(m, ctx.State)
		if err != nil {
			return Output{}, apperror.Wrap(err, apperror.CodeInternal, "aggregated parameter source failed")
		}
		values[i] = v
	}
	if a.durationWeighted {
		durations := make([]float64, len(a.sources))
		for i := range durations {
			durations[i] = ctx.Step.Duration.Fraction()
		}
		return F64Output(durationWeightedAggregate(values, durations, a.fn)), nil
	}
	return F64Output(aggregate(values, a.fn)), nil
}

func (a *Aggregated) After(_ Context, _ Internal) error { return nil }

// AggIndexFunc mirrors AggFunc for u64-valued aggregations (index
// parameters such as ControlCurveIndex, MultiThreshold).
type AggIndexFunc = AggFunc

// AggregatedIndex combines several u64 metric sources.
type AggregatedIndex struct {
	name    string
	sources []metric.Metric
	fn      AggIndexFunc
}

// NewAggregatedIndex builds an AggregatedIndex parameter over sources.
func NewAggregatedIndex(name string, sources []metric.Metric, fn AggIndexFunc) *AggregatedIndex {
	return &AggregatedIndex{name: name, sources: sources, fn: fn}
}

func (a *AggregatedIndex) Name() string         { return a.name }
func (a *AggregatedIndex) ValueKind() ValueKind { return ValueU64 }

func (a *AggregatedIndex) Dependencies() []int {
	var deps []int
	for _, m := range a.sources {
		if m.Kind == metric.KindParameterValue {
			deps = append(deps, m.Index)
		}
	}
	return deps
}

func (a *AggregatedIndex) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return nil, nil
}
func (a *AggregatedIndex) Before(_ Context, _ Internal) (bool, float64, error) { return false, 0, nil }

func (a *AggregatedIndex) Compute(ctx Context, _ Internal) (Output, error) {
	values := make([]float64, len(a.sources))
	for i, m := range a.sources {
		v, err := ctx.Resolver.ResolveU64(m, ctx.State)
		if err != nil {
			return Output{}, apperror.Wrap(err, apperror.CodeInternal, "aggregated index parameter source failed")
		}
		values[i] = float64(v)
	}
	return U64Output(uint64(aggregate(values, a.fn))), nil
}

func (a *AggregatedIndex) After(_ Context, _ Internal) error { return nil }
