package param

import (
	"time"

	"hydroengine/internal/calendar"
	"hydroengine/internal/scenario"
)

// MonthlyInterp selects how MonthlyProfile bridges between months.
type MonthlyInterp int

const (
	// MonthlyNoInterp is a step function: the month's value holds for
	// every day in that month.
	MonthlyNoInterp MonthlyInterp = iota
	// MonthlyInterpFirst treats the current month's value as the day-1
	// reading and the next month's value as the reading on day 1 of
	// the following month, interpolating linearly between.
	MonthlyInterpFirst
	// MonthlyInterpLast treats the previous month's value as the
	// reading on the last day of that month and the current month's
	// value as the reading on the current month's last day,
	// interpolating linearly between.
	MonthlyInterpLast
)

// MonthlyProfile holds 12 values, one per calendar month.
type MonthlyProfile struct {
	name   string
	values [12]float64
	interp MonthlyInterp
}

// NewMonthlyProfile builds a MonthlyProfile parameter.
func NewMonthlyProfile(name string, values [12]float64, interp MonthlyInterp) *MonthlyProfile {
	return &MonthlyProfile{name: name, values: values, interp: interp}
}

func (p *MonthlyProfile) Name() string         { return p.name }
func (p *MonthlyProfile) ValueKind() ValueKind { return ValueF64 }
func (p *MonthlyProfile) Dependencies() []int  { return nil }
func (p *MonthlyProfile) IsSimple() bool       { return true }
func (p *MonthlyProfile) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return nil, nil
}
func (p *MonthlyProfile) Before(_ Context, _ Internal) (bool, float64, error) { return false, 0, nil }
func (p *MonthlyProfile) After(_ Context, _ Internal) error                   { return nil }

func (p *MonthlyProfile) Compute(ctx Context, _ Internal) (Output, error) {
	date := ctx.Step.Date
	month := int(date.Month()) // 1-based

	switch p.interp {
	case MonthlyInterpFirst:
		nextMonth0 := month % 12 // 0-based next month
		first := p.values[month-1]
		last := p.values[nextMonth0]
		return F64Output(interpolateFirst(date, first, last)), nil
	case MonthlyInterpLast:
		lastMonth := month - 1
		if lastMonth == 0 {
			lastMonth = 12
		}
		first := p.values[lastMonth-1]
		last := p.values[month-1]
		return F64Output(interpolateLast(date, first, last)), nil
	default:
		return F64Output(p.values[month-1]), nil
	}
}

func dayFraction(date time.Time) float64 {
	secs := date.Hour()*3600 + date.Minute()*60 + date.Second()
	return float64(secs) / 86400.0
}

func interpolateFirst(date time.Time, firstValue, lastValue float64) float64 {
	daysInMonth := calendar.DaysInMonth(date.Year(), date.Month())
	day := date.Day()
	switch {
	case day <= 1:
		return firstValue
	case day > daysInMonth:
		return lastValue
	default:
		frac := (float64(day) + dayFraction(date) - 1.0) / float64(daysInMonth)
		return firstValue + (lastValue-firstValue)*frac
	}
}

func interpolateLast(date time.Time, firstValue, lastValue float64) float64 {
	daysInMonth := calendar.DaysInMonth(date.Year(), date.Month())
	day := date.Day()
	switch {
	case day < 1:
		return firstValue
	case day >= daysInMonth:
		return lastValue
	default:
		frac := (float64(day) + dayFraction(date)) / float64(daysInMonth)
		return firstValue + (lastValue-firstValue)*frac
	}
}
