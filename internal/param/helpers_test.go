package param

import (
	"time"

	"hydroengine/internal/calendar"
	"hydroengine/internal/network"
	"hydroengine/internal/scenario"
	"hydroengine/internal/state"
)

// testContext builds a Context over an empty network, sized for
// numParams parameter outputs, at the given date with a one-day step.
func testContext(date time.Time, numParams int) Context {
	net := network.NewNetwork()
	return Context{
		Step:     calendar.Step{Index: 0, Ordinal: 1, Date: date, Duration: calendar.Duration{Days: 1}},
		Scenario: scenario.Index{},
		State:    state.New(0, 0, 0, 0, numParams),
		Resolver: network.NewResolver(net),
	}
}

// linspace mirrors numpy's endpoint-inclusive spacing, used by the
// delay/rolling end-to-end expectations.
func linspace(start, stop float64, num int) []float64 {
	out := make([]float64, num)
	if num == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(num-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

var testSteps = []calendar.Step{{Index: 0, Ordinal: 1, Date: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), Duration: calendar.Duration{Days: 1}}}
