package vstorage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/network"
	"hydroengine/internal/state"
)

func licenceNetwork(t *testing.T, vs network.VirtualStorageNode) (*network.Network, *network.Resolver, *state.State) {
	t.Helper()
	net := network.NewNetwork()
	in := net.AddNode(network.Node{Kind: network.KindInput, Name: "abstraction",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(10), Cost: metric.Const(0)})
	out := net.AddNode(network.Node{Kind: network.KindOutput, Name: "demand",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(10), Cost: metric.Const(-1)})
	_, err := net.AddEdge(in, out)
	require.NoError(t, err)

	if vs.Members == nil {
		vs.Members = []network.MemberDrawdown{{Node: in, Factor: metric.Const(1)}}
	}
	net.AddVirtualStorageNode(vs)

	st := state.New(0, len(net.Nodes), len(net.Edges), 1, 0)
	return net, network.NewResolver(net), st
}

func stepAt(idx int, date time.Time) calendar.Step {
	return calendar.Step{Index: idx, Ordinal: idx + 1, Date: date, Duration: calendar.Duration{Days: 1}}
}

func TestInit_SeedsInitialVolume(t *testing.T) {
	net, res, st := licenceNetwork(t, network.VirtualStorageNode{
		Name:          "licence",
		MaxVolume:     metric.Const(200),
		InitialVolume: network.InitialVolume{Kind: network.InitialProportional, Value: 0.5},
		Window:        network.Window{Enabled: true, Steps: 4},
	})
	bk := NewBookkeeper(net, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, bk.Init(res, st))

	assert.Equal(t, 100.0, st.VirtualStorageVolume[0])
	assert.NotNil(t, st.VirtualStorageWindow[0])
	assert.Empty(t, st.VirtualStorageWindow[0])
	assert.Equal(t, 4, cap(st.VirtualStorageWindow[0]))
}

func TestAdvance_DrawdownBalance(t *testing.T) {
	net, res, st := licenceNetwork(t, network.VirtualStorageNode{
		Name:          "licence",
		MaxVolume:     metric.Const(100),
		InitialVolume: network.InitialVolume{Kind: network.InitialAbsolute, Value: 100},
		Members:       nil, // default single member, factor 1
	})
	bk := NewBookkeeper(net, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, bk.Init(res, st))

	// prev_vol - factor*flow = next_vol, step after step.
	for i := 0; i < 5; i++ {
		prev := st.VirtualStorageVolume[0]
		st.NodeOutFlow[0] = 7.0
		require.NoError(t, bk.Advance(stepAt(i, time.Date(2020, time.January, 1+i, 0, 0, 0, 0, time.UTC)), res, st))
		assert.InDelta(t, prev-7.0, st.VirtualStorageVolume[0], 1e-12)
	}
	assert.InDelta(t, 65.0, st.VirtualStorageVolume[0], 1e-12)
}

func TestAdvance_DrawdownFactor(t *testing.T) {
	net := network.NewNetwork()
	in := net.AddNode(network.Node{Kind: network.KindInput, Name: "a",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(10), Cost: metric.Const(0)})
	out := net.AddNode(network.Node{Kind: network.KindOutput, Name: "b",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(10), Cost: metric.Const(0)})
	_, err := net.AddEdge(in, out)
	require.NoError(t, err)
	net.AddVirtualStorageNode(network.VirtualStorageNode{
		Name:          "licence",
		MaxVolume:     metric.Const(100),
		InitialVolume: network.InitialVolume{Kind: network.InitialAbsolute, Value: 100},
		Members:       []network.MemberDrawdown{{Node: in, Factor: metric.Const(0.5)}},
	})
	res := network.NewResolver(net)
	st := state.New(0, len(net.Nodes), len(net.Edges), 1, 0)

	bk := NewBookkeeper(net, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, bk.Init(res, st))

	st.NodeOutFlow[0] = 8.0
	require.NoError(t, bk.Advance(stepAt(0, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)), res, st))
	assert.InDelta(t, 96.0, st.VirtualStorageVolume[0], 1e-12)
}

func TestAdvance_RollingWindowRecredits(t *testing.T) {
	net, res, st := licenceNetwork(t, network.VirtualStorageNode{
		Name:          "rolling licence",
		MaxVolume:     metric.Const(100),
		InitialVolume: network.InitialVolume{Kind: network.InitialAbsolute, Value: 100},
		Window:        network.Window{Enabled: true, Steps: 3},
	})
	bk := NewBookkeeper(net, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, bk.Init(res, st))

	flows := []float64{5, 4, 3, 2, 1}
	// Volumes: window of 3; once full, the expired drawdown is
	// re-credited as the new one is applied.
	want := []float64{95, 91, 88, 91, 94}
	for i, f := range flows {
		st.NodeOutFlow[0] = f
		require.NoError(t, bk.Advance(stepAt(i, time.Date(2020, time.January, 1+i, 0, 0, 0, 0, time.UTC)), res, st))
		assert.InDelta(t, want[i], st.VirtualStorageVolume[0], 1e-12, "step %d", i)
	}
}

func TestAdvance_DayOfYearReset(t *testing.T) {
	for _, year := range []int{2015, 2016} {
		net, res, st := licenceNetwork(t, network.VirtualStorageNode{
			Name:          "annual licence",
			MaxVolume:     metric.Const(100),
			InitialVolume: network.InitialVolume{Kind: network.InitialAbsolute, Value: 60},
			Reset:         network.Reset{Kind: network.ResetDayOfYear, Day: 1, Month: 3, Volume: network.ResetVolumeInitial},
		})
		bk := NewBookkeeper(net, time.Date(year, time.February, 26, 0, 0, 0, 0, time.UTC))
		require.NoError(t, bk.Init(res, st))

		start := time.Date(year, time.February, 26, 0, 0, 0, 0, time.UTC)
		end := time.Date(year, time.March, 2, 0, 0, 0, 0, time.UTC)
		i := 0
		var resetVolumes []float64
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			st.NodeOutFlow[0] = 2.0
			require.NoError(t, bk.Advance(stepAt(i, d), res, st))
			if d.Day() == 1 && d.Month() == time.March {
				resetVolumes = append(resetVolumes, st.VirtualStorageVolume[0])
			}
			i++
		}
		require.Len(t, resetVolumes, 1, "year %d", year)
		assert.Equal(t, 60.0, resetVolumes[0], "reset lands on March 1 in year %d", year)
	}
}

func TestAdvance_ResetToMax(t *testing.T) {
	net, res, st := licenceNetwork(t, network.VirtualStorageNode{
		Name:          "refill licence",
		MaxVolume:     metric.Const(100),
		InitialVolume: network.InitialVolume{Kind: network.InitialAbsolute, Value: 40},
		Reset:         network.Reset{Kind: network.ResetDayOfYear, Day: 2, Month: 1, Volume: network.ResetVolumeMax},
	})
	bk := NewBookkeeper(net, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, bk.Init(res, st))

	st.NodeOutFlow[0] = 5.0
	require.NoError(t, bk.Advance(stepAt(0, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)), res, st))
	assert.InDelta(t, 35.0, st.VirtualStorageVolume[0], 1e-12)

	require.NoError(t, bk.Advance(stepAt(1, time.Date(2020, time.January, 2, 0, 0, 0, 0, time.UTC)), res, st))
	assert.Equal(t, 100.0, st.VirtualStorageVolume[0])
}

func TestAdvance_SeasonalActivePeriod(t *testing.T) {
	net, res, st := licenceNetwork(t, network.VirtualStorageNode{
		Name:          "summer licence",
		MaxVolume:     metric.Const(100),
		InitialVolume: network.InitialVolume{Kind: network.InitialAbsolute, Value: 100},
		Reset: network.Reset{
			Kind:     network.ResetSeasonal,
			StartDay: 1, StartMonth: 6,
			EndDay: 1, EndMonth: 9,
			Volume: network.ResetVolumeInitial,
		},
	})
	bk := NewBookkeeper(net, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, bk.Init(res, st))

	st.NodeOutFlow[0] = 5.0

	// Outside the active period the licence does not draw down.
	require.NoError(t, bk.Advance(stepAt(0, time.Date(2020, time.May, 15, 0, 0, 0, 0, time.UTC)), res, st))
	assert.Equal(t, 100.0, st.VirtualStorageVolume[0])

	// Inside it, the drawdown applies.
	require.NoError(t, bk.Advance(stepAt(1, time.Date(2020, time.July, 15, 0, 0, 0, 0, time.UTC)), res, st))
	assert.InDelta(t, 95.0, st.VirtualStorageVolume[0], 1e-12)
}
