package param

import (
	"math"

	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/scenario"
)

// DiscountFactor returns 1/(1+rate)^(year-baseYear), the present-value
// multiplier applied to costs and benefits accrued in the step's year.
type DiscountFactor struct {
	name         string
	discountRate metric.Metric
	baseYear     int
}

// NewDiscountFactor builds a DiscountFactor parameter.
func NewDiscountFactor(name string, discountRate metric.Metric, baseYear int) *DiscountFactor {
	return &DiscountFactor{name: name, discountRate: discountRate, baseYear: baseYear}
}

func (p *DiscountFactor) Name() string         { return p.name }
func (p *DiscountFactor) ValueKind() ValueKind { return ValueF64 }

func (p *DiscountFactor) Dependencies() []int {
	if p.discountRate.Kind == metric.KindParameterValue {
		return []int{p.discountRate.Index}
	}
	return nil
}

func (p *DiscountFactor) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return nil, nil
}
func (p *DiscountFactor) Before(_ Context, _ Internal) (bool, float64, error) { return false, 0, nil }

func (p *DiscountFactor) Compute(ctx Context, _ Internal) (Output, error) {
	year := ctx.Step.Date.Year() - p.baseYear
	rate, err := ctx.Resolver.ResolveF64(p.discountRate, ctx.State)
	if err != nil {
		return Output{}, err
	}
	return F64Output(1.0 / math.Pow(1.0+rate, float64(year))), nil
}

func (p *DiscountFactor) After(_ Context, _ Internal) error { return nil }
