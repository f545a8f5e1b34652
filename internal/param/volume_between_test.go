package param

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydroengine/internal/metric"
)

func TestVolumeBetweenControlCurves(t *testing.T) {
	ctx := testContext(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), 1)

	upper := metric.Const(0.8)
	lower := metric.Const(0.3)
	p := NewVolumeBetweenControlCurves("band", metric.Const(200), &upper, &lower)

	out, err := p.Compute(ctx, nil)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, out.F64, 1e-12, "total * (upper - lower)")
	assert.True(t, p.IsSimple())
}

func TestVolumeBetweenControlCurves_DefaultEnds(t *testing.T) {
	ctx := testContext(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), 0)

	// Nil upper defaults to the top of the storage, nil lower to the
	// bottom, so the residual and bottom tranches need no synthetic
	// curves.
	lower := metric.Const(0.6)
	top := NewVolumeBetweenControlCurves("top", metric.Const(100), nil, &lower)
	out, err := top.Compute(ctx, nil)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, out.F64, 1e-12)

	upper := metric.Const(0.25)
	bottom := NewVolumeBetweenControlCurves("bottom", metric.Const(100), &upper, nil)
	out, err = bottom.Compute(ctx, nil)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, out.F64, 1e-12)

	whole := NewVolumeBetweenControlCurves("whole", metric.Const(100), nil, nil)
	out, err = whole.Compute(ctx, nil)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, out.F64, 1e-12)
}

func TestVolumeBetweenControlCurves_Dependencies(t *testing.T) {
	upper := metric.ParameterValue(2, metric.ValueF64)
	p := NewVolumeBetweenControlCurves("band", metric.ParameterValue(1, metric.ValueF64), &upper, nil)
	assert.ElementsMatch(t, []int{1, 2}, p.Dependencies())
	assert.True(t, p.IsSimple())

	live := metric.NodeVolume(0)
	notSimple := NewVolumeBetweenControlCurves("band", live, nil, nil)
	assert.False(t, notSimple.IsSimple())
}
