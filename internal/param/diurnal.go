package param

import (
	"hydroengine/internal/calendar"
	"hydroengine/internal/scenario"
)

// DiurnalProfile holds 24 values, one per hour of the day.
type DiurnalProfile struct {
	name   string
	values [24]float64
}

// NewDiurnalProfile builds a DiurnalProfile parameter.
func NewDiurnalProfile(name string, values [24]float64) *DiurnalProfile {
	return &DiurnalProfile{name: name, values: values}
}

func (p *DiurnalProfile) Name() string         { return p.name }
func (p *DiurnalProfile) ValueKind() ValueKind { return ValueF64 }
func (p *DiurnalProfile) Dependencies() []int  { return nil }
func (p *DiurnalProfile) IsSimple() bool       { return true }

func (p *DiurnalProfile) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return nil, nil
}
func (p *DiurnalProfile) Before(_ Context, _ Internal) (bool, float64, error) { return false, 0, nil }
func (p *DiurnalProfile) After(_ Context, _ Internal) error                   { return nil }

func (p *DiurnalProfile) Compute(ctx Context, _ Internal) (Output, error) {
	return F64Output(p.values[ctx.Step.Date.Hour()]), nil
}
