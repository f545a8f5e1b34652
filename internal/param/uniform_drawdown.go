package param

import (
	"time"

	"hydroengine/internal/calendar"
	"hydroengine/internal/scenario"
)

// UniformDrawdownProfile produces a licence-style linear drawdown
// profile that resets to 1.0 on reset_day/reset_month each year and
// decays uniformly to residual_days/period_length by the end of the
// period, wrapping across the year boundary.
type UniformDrawdownProfile struct {
	name         string
	residualDays int
	resetDOY     int // 1-based day-of-year of the reset date, computed in a reference leap year
}

// NewUniformDrawdownProfile builds a UniformDrawdownProfile parameter.
// resetDay/resetMonth identify the annual reset date; residualDays is
// the proportion-equivalent number of days remaining at the end of
// the period, expressed as a day count over the period length.
func NewUniformDrawdownProfile(name string, resetDay int, resetMonth time.Month, residualDays int) *UniformDrawdownProfile {
	resetDOY := calendar.DayOfYearConsistent(time.Date(2016, resetMonth, resetDay, 0, 0, 0, 0, time.UTC)) + 1
	return &UniformDrawdownProfile{name: name, residualDays: residualDays, resetDOY: resetDOY}
}

func (p *UniformDrawdownProfile) Name() string         { return p.name }
func (p *UniformDrawdownProfile) ValueKind() ValueKind { return ValueF64 }
func (p *UniformDrawdownProfile) Dependencies() []int  { return nil }
func (p *UniformDrawdownProfile) IsSimple() bool       { return true }

func (p *UniformDrawdownProfile) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return nil, nil
}
func (p *UniformDrawdownProfile) Before(_ Context, _ Internal) (bool, float64, error) {
	return false, 0, nil
}
func (p *UniformDrawdownProfile) After(_ Context, _ Internal) error { return nil }

func (p *UniformDrawdownProfile) Compute(ctx Context, _ Internal) (Output, error) {
	date := ctx.Step.Date
	year := date.Year()

	currentDOY := calendar.DayOfYearConsistent(date) + 1
	daysIntoPeriod := currentDOY - p.resetDOY
	if daysIntoPeriod < 0 {
		year--
	}
	if p.resetDOY > 60 {
		year++
	}

	totalDaysInPeriod := 365
	if calendar.IsLeap(year) {
		totalDaysInPeriod = 366
	}

	if daysIntoPeriod < 0 {
		daysIntoPeriod += 366
		if !calendar.IsLeap(date.Year()) && currentDOY > 60 {
			daysIntoPeriod--
		}
	}

	residualProportion := float64(p.residualDays) / float64(totalDaysInPeriod)
	slope := (residualProportion - 1.0) / float64(totalDaysInPeriod)

	return F64Output(1.0 + slope*float64(daysIntoPeriod)), nil
}
