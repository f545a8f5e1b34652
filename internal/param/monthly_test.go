package param

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monthValues = [12]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

func monthlyAt(t *testing.T, p *MonthlyProfile, date time.Time) float64 {
	t.Helper()
	ctx := testContext(date, 0)
	out, err := p.Compute(ctx, nil)
	require.NoError(t, err)
	return out.F64
}

func TestMonthlyProfile_StepFunction(t *testing.T) {
	p := NewMonthlyProfile("monthly", monthValues, MonthlyNoInterp)

	// Output depends only on month-of-date, not the day.
	for day := 1; day <= 28; day++ {
		assert.Equal(t, 3.0, monthlyAt(t, p, time.Date(2020, time.March, day, 0, 0, 0, 0, time.UTC)))
	}
	assert.Equal(t, 1.0, monthlyAt(t, p, time.Date(2020, time.January, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 12.0, monthlyAt(t, p, time.Date(2021, time.December, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMonthlyProfile_InterpFirst(t *testing.T) {
	p := NewMonthlyProfile("monthly", monthValues, MonthlyInterpFirst)

	// Day 1 reads the month's own value; the profile then climbs
	// toward the next month's day-1 value.
	assert.InDelta(t, 1.0, monthlyAt(t, p, time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)), 1e-12)
	assert.InDelta(t, 1.0+15.0/31.0, monthlyAt(t, p, time.Date(2015, time.January, 16, 0, 0, 0, 0, time.UTC)), 1e-12)

	// December bridges back onto January.
	dec16 := monthlyAt(t, p, time.Date(2015, time.December, 16, 0, 0, 0, 0, time.UTC))
	assert.Less(t, dec16, 12.0)

	// Leap February uses 29 days in the denominator.
	feb15 := monthlyAt(t, p, time.Date(2016, time.February, 15, 0, 0, 0, 0, time.UTC))
	assert.InDelta(t, 2.0+(15.0-1.0)/29.0, feb15, 1e-12)
}

func TestMonthlyProfile_InterpLast(t *testing.T) {
	p := NewMonthlyProfile("monthly", monthValues, MonthlyInterpLast)

	// The last day of the month lands exactly on the month's value.
	assert.InDelta(t, 1.0, monthlyAt(t, p, time.Date(2015, time.January, 31, 0, 0, 0, 0, time.UTC)), 1e-12)
	assert.InDelta(t, 2.0, monthlyAt(t, p, time.Date(2015, time.February, 28, 0, 0, 0, 0, time.UTC)), 1e-12)

	// Mid-month blends the previous month's value toward this one's.
	jan15 := monthlyAt(t, p, time.Date(2015, time.January, 15, 0, 0, 0, 0, time.UTC))
	assert.Greater(t, jan15, 1.0, "january blends down from december's 12.0")
}

func TestDiurnalProfile(t *testing.T) {
	var hours [24]float64
	for i := range hours {
		hours[i] = float64(i) * 10.0
	}
	p := NewDiurnalProfile("diurnal", hours)

	for _, h := range []int{0, 7, 13, 23} {
		ctx := testContext(time.Date(2020, time.June, 1, h, 0, 0, 0, time.UTC), 0)
		out, err := p.Compute(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, float64(h)*10.0, out.F64)
	}
}
