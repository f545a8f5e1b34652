package runloop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/network"
	"hydroengine/internal/numeric"
	"hydroengine/internal/param"
	"hydroengine/internal/recorder"
	"hydroengine/internal/scenario"
	"hydroengine/internal/solver"
	"hydroengine/internal/state"
	"hydroengine/internal/vstorage"
)

const tau = 1e-6

func dailySteps(t *testing.T, days int) []calendar.Step {
	t.Helper()
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	ts, err := calendar.NewTimestepper(start, start.AddDate(0, 0, days-1), calendar.Duration{Days: 1})
	require.NoError(t, err)
	return ts.Steps()
}

// newRun wires a single-scenario Run over net with the given
// parameters, seeding state through the engine's BuildStates path.
func newRun(t *testing.T, net *network.Network, params []param.Parameter, recorders ...recorder.Recorder) *Run {
	t.Helper()
	g, err := param.NewGraph(params)
	require.NoError(t, err)

	dom, err := scenario.NewDomain([]scenario.Group{{Name: "base", Size: 1}})
	require.NoError(t, err)
	require.NoError(t, g.Setup(dailySteps(t, 1), dom))

	bk := vstorage.NewBookkeeper(net, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))
	states, err := BuildStates(net, g, dom, bk)
	require.NoError(t, err)

	return NewRun(net, g, solver.NewSimplex(), bk, dom, states, recorders...)
}

// assertInvariants checks the per-step properties every solved state
// must satisfy: link mass balance, nonnegative edge flows, and storage
// volumes within bounds.
func assertInvariants(t *testing.T, net *network.Network, st *state.State) {
	t.Helper()
	res := network.NewResolver(net)
	for idx, node := range net.Nodes {
		if node.Kind == network.KindLink {
			assert.InDelta(t, st.NodeInFlow[idx], st.NodeOutFlow[idx], tau, "mass balance at %s", node.Name)
		}
		if node.Kind == network.KindStorage {
			minVol, err := res.ResolveF64(node.MinVolume, st)
			require.NoError(t, err)
			maxVol, err := res.ResolveF64(node.MaxVolume, st)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, st.StorageVolume[idx], minVol-tau, "storage %s below min", node.Name)
			assert.LessOrEqual(t, st.StorageVolume[idx], maxVol+tau, "storage %s above max", node.Name)
		}
	}
	for e, f := range st.EdgeFlow {
		assert.GreaterOrEqual(t, f, -tau, "edge %d flow must be nonnegative", e)
	}
}

func TestExecute_ThreeNodeChain(t *testing.T) {
	net := network.NewNetwork()
	catchment := net.AddNode(network.Node{Kind: network.KindInput, Name: "catchment",
		MinFlow: metric.Const(15), MaxFlow: metric.Const(15), Cost: metric.Const(0)})
	link := net.AddNode(network.Node{Kind: network.KindLink, Name: "river",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(numeric.Infinity), Cost: metric.Const(0)})
	demand := net.AddNode(network.Node{Kind: network.KindOutput, Name: "demand",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(15), Cost: metric.Const(-10)})
	_, err := net.AddEdge(catchment, link)
	require.NoError(t, err)
	_, err = net.AddEdge(link, demand)
	require.NoError(t, err)

	steps := 0
	run := newRun(t, net, nil, recorder.Func{
		FuncName: "probe",
		Fn: func(_ context.Context, _ calendar.Step, _ scenario.Index, st *state.State) error {
			steps++
			assert.InDelta(t, 15.0, st.EdgeFlow[0], tau)
			assert.InDelta(t, 15.0, st.EdgeFlow[1], tau)
			assert.InDelta(t, 15.0, st.NodeInFlow[demand], tau)
			assertInvariants(t, net, st)
			return nil
		},
	})

	require.NoError(t, run.Execute(context.Background(), dailySteps(t, 10)))
	assert.Equal(t, 10, steps)
}

func TestExecute_RiverWithMRF(t *testing.T) {
	net := network.NewNetwork()
	catchment := net.AddNode(network.Node{Kind: network.KindInput, Name: "catchment",
		MinFlow: metric.Const(15), MaxFlow: metric.Const(15), Cost: metric.Const(0)})
	net.AddRiverGauge("gauge", metric.Const(0), metric.Const(5), metric.Const(-20), metric.Const(numeric.Infinity))
	demand := net.AddNode(network.Node{Kind: network.KindOutput, Name: "demand",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(15), Cost: metric.Const(-10)})

	mrf, err := net.Slot("gauge", "mrf")
	require.NoError(t, err)
	bypass, err := net.Slot("gauge", "bypass")
	require.NoError(t, err)
	for _, to := range []network.NodeIndex{mrf, bypass} {
		_, err := net.AddEdge(catchment, to)
		require.NoError(t, err)
	}
	for _, from := range []network.NodeIndex{mrf, bypass} {
		_, err := net.AddEdge(from, demand)
		require.NoError(t, err)
	}

	run := newRun(t, net, nil, recorder.Func{
		FuncName: "probe",
		Fn: func(_ context.Context, _ calendar.Step, _ scenario.Index, st *state.State) error {
			assert.InDelta(t, 5.0, st.NodeInFlow[mrf], tau, "MRF path carries its capped preferred flow")
			assert.InDelta(t, 10.0, st.NodeInFlow[bypass], tau, "bypass carries the rest")
			assertInvariants(t, net, st)
			return nil
		},
	})

	require.NoError(t, run.Execute(context.Background(), dailySteps(t, 5)))
}

func TestExecute_ProportionalAggregated(t *testing.T) {
	net := network.NewNetwork()
	src := net.AddNode(network.Node{Kind: network.KindInput, Name: "source",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(10), Cost: metric.Const(0)})
	d1 := net.AddNode(network.Node{Kind: network.KindOutput, Name: "demand1",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(10), Cost: metric.Const(-10)})
	d2 := net.AddNode(network.Node{Kind: network.KindOutput, Name: "demand2",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(10), Cost: metric.Const(-10)})
	_, err := net.AddEdge(src, d1)
	require.NoError(t, err)
	_, err = net.AddEdge(src, d2)
	require.NoError(t, err)

	net.AddAggregatedNode(network.AggregatedNode{
		Name:    "share",
		MinFlow: metric.Const(0),
		MaxFlow: metric.Const(numeric.Infinity),
		Members: []network.NodeComponent{
			{Node: d1, Component: network.ComponentInflow},
			{Node: d2, Component: network.ComponentInflow},
		},
		Relation: network.Relationship{
			Kind:              network.RelationshipProportion,
			ProportionFactors: []metric.Metric{metric.Const(0.3)},
		},
	})

	run := newRun(t, net, nil, recorder.Func{
		FuncName: "probe",
		Fn: func(_ context.Context, _ calendar.Step, _ scenario.Index, st *state.State) error {
			assert.InDelta(t, 7.0, st.NodeInFlow[d1], tau)
			assert.InDelta(t, 3.0, st.NodeInFlow[d2], tau)
			return nil
		},
	})

	require.NoError(t, run.Execute(context.Background(), dailySteps(t, 3)))
}

func TestExecute_StorageDrawdown(t *testing.T) {
	net := network.NewNetwork()
	res := net.AddNode(network.Node{Kind: network.KindStorage, Name: "reservoir",
		MinVolume: metric.Const(0), MaxVolume: metric.Const(100), Cost: metric.Const(0),
		MinFlow: metric.Const(0), MaxFlow: metric.Const(numeric.Infinity),
		InitialVolume: network.InitialVolume{Kind: network.InitialProportional, Value: 0.5}})
	demand := net.AddNode(network.Node{Kind: network.KindOutput, Name: "demand",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(5), Cost: metric.Const(-10)})
	_, err := net.AddEdge(res, demand)
	require.NoError(t, err)

	var volumes []float64
	run := newRun(t, net, nil, recorder.Func{
		FuncName: "probe",
		Fn: func(_ context.Context, _ calendar.Step, _ scenario.Index, st *state.State) error {
			volumes = append(volumes, st.StorageVolume[res])
			assertInvariants(t, net, st)
			return nil
		},
	})

	assert.Equal(t, 50.0, run.States()[0].StorageVolume[res], "Proportional{0.5} resolves against max_volume")

	require.NoError(t, run.Execute(context.Background(), dailySteps(t, 10)))
	require.Len(t, volumes, 10)
	for i, v := range volumes {
		assert.InDelta(t, 50.0-5.0*float64(i+1), v, tau, "day %d", i+1)
	}
}

func TestExecute_InitialVolumeProportionalFull(t *testing.T) {
	net := network.NewNetwork()
	res := net.AddNode(network.Node{Kind: network.KindStorage, Name: "reservoir",
		MinVolume: metric.Const(0), MaxVolume: metric.Const(80), Cost: metric.Const(0),
		MinFlow: metric.Const(0), MaxFlow: metric.Const(numeric.Infinity),
		InitialVolume: network.InitialVolume{Kind: network.InitialProportional, Value: 1.0}})
	out := net.AddNode(network.Node{Kind: network.KindOutput, Name: "demand",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(1), Cost: metric.Const(-1)})
	_, err := net.AddEdge(res, out)
	require.NoError(t, err)

	run := newRun(t, net, nil)
	assert.Equal(t, 80.0, run.States()[0].StorageVolume[res], "first-step volume equals max_volume")
}

func TestExecute_VirtualStorageLimitsAbstraction(t *testing.T) {
	net := network.NewNetwork()
	in := net.AddNode(network.Node{Kind: network.KindInput, Name: "abstraction",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(10), Cost: metric.Const(0)})
	out := net.AddNode(network.Node{Kind: network.KindOutput, Name: "demand",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(10), Cost: metric.Const(-10)})
	_, err := net.AddEdge(in, out)
	require.NoError(t, err)

	net.AddVirtualStorageNode(network.VirtualStorageNode{
		Name:          "licence",
		Members:       []network.MemberDrawdown{{Node: in, Factor: metric.Const(1)}},
		MaxVolume:     metric.Const(25),
		InitialVolume: network.InitialVolume{Kind: network.InitialProportional, Value: 1.0},
	})

	var flows, volumes []float64
	run := newRun(t, net, nil, recorder.Func{
		FuncName: "probe",
		Fn: func(_ context.Context, _ calendar.Step, _ scenario.Index, st *state.State) error {
			flows = append(flows, st.EdgeFlow[0])
			volumes = append(volumes, st.VirtualStorageVolume[0])
			return nil
		},
	})

	require.NoError(t, run.Execute(context.Background(), dailySteps(t, 4)))

	// The licence bank covers two and a half days of full abstraction.
	assert.InDelta(t, 10.0, flows[0], tau)
	assert.InDelta(t, 10.0, flows[1], tau)
	assert.InDelta(t, 5.0, flows[2], tau, "third day is capped by the remaining licence volume")
	assert.InDelta(t, 0.0, flows[3], tau, "licence exhausted")
	assert.InDelta(t, 0.0, volumes[3], tau)
}

func TestExecute_PiecewiseStorageDrawdown(t *testing.T) {
	net := network.NewNetwork()
	// The bottom tranche carries a penalty cost on inflow so the
	// allocation never cycles water through it for free.
	agg, err := net.AddPiecewiseStorage("res", []network.PiecewiseStore{
		{MaxVolume: metric.Const(30), Cost: metric.Const(50)},
		{MaxVolume: metric.Const(70), Cost: metric.Const(0)},
	}, network.InitialVolume{Kind: network.InitialDistributedProportional, Value: 1.0})
	require.NoError(t, err)

	top, err := net.Slot("res", "store")
	require.NoError(t, err)
	demand := net.AddNode(network.Node{Kind: network.KindOutput, Name: "demand",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(10), Cost: metric.Const(-100)})
	_, err = net.AddEdge(top, demand)
	require.NoError(t, err)

	res := network.NewResolver(net)
	var totals []float64
	run := newRun(t, net, nil, recorder.Func{
		FuncName: "probe",
		Fn: func(_ context.Context, _ calendar.Step, _ scenario.Index, st *state.State) error {
			total, err := res.ResolveF64(metric.AggregatedStorageVolume(int(agg)), st)
			if err != nil {
				return err
			}
			totals = append(totals, total)
			assertInvariants(t, net, st)
			return nil
		},
	})

	// Full stack seeds bottom-up: the bottom tranche fills first.
	assert.Equal(t, 30.0, run.States()[0].StorageVolume[0])
	assert.Equal(t, 70.0, run.States()[0].StorageVolume[1])

	require.NoError(t, run.Execute(context.Background(), dailySteps(t, 5)))
	require.Len(t, totals, 5)
	for i, total := range totals {
		assert.InDelta(t, 100.0-10.0*float64(i+1), total, tau, "day %d aggregate volume", i+1)
	}
}

func TestExecute_DeterministicTrajectories(t *testing.T) {
	build := func() *Run {
		net := network.NewNetwork()
		res := net.AddNode(network.Node{Kind: network.KindStorage, Name: "reservoir",
			MinVolume: metric.Const(0), MaxVolume: metric.Const(100), Cost: metric.Const(0),
			MinFlow: metric.Const(0), MaxFlow: metric.Const(numeric.Infinity),
			InitialVolume: network.InitialVolume{Kind: network.InitialProportional, Value: 0.9}})
		demand := net.AddNode(network.Node{Kind: network.KindOutput, Name: "demand",
			MinFlow: metric.Const(0), MaxFlow: metric.Const(7), Cost: metric.Const(-10)})
		_, err := net.AddEdge(res, demand)
		require.NoError(t, err)
		return newRun(t, net, nil)
	}

	runA := build()
	runB := build()
	require.NoError(t, runA.Execute(context.Background(), dailySteps(t, 8)))
	require.NoError(t, runB.Execute(context.Background(), dailySteps(t, 8)))

	assert.Equal(t, runA.States()[0].StorageVolume, runB.States()[0].StorageVolume)
	assert.Equal(t, runA.States()[0].EdgeFlow, runB.States()[0].EdgeFlow)
}

func TestExecute_CancelledBetweenSteps(t *testing.T) {
	net := network.NewNetwork()
	in := net.AddNode(network.Node{Kind: network.KindInput, Name: "in",
		MinFlow: metric.Const(1), MaxFlow: metric.Const(1), Cost: metric.Const(0)})
	out := net.AddNode(network.Node{Kind: network.KindOutput, Name: "out",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(1), Cost: metric.Const(-1)})
	_, err := net.AddEdge(in, out)
	require.NoError(t, err)

	run := newRun(t, net, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = run.Execute(ctx, dailySteps(t, 5))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, run.States()[0].EdgeFlow[0], "no partial step was applied")
}

func TestExecute_ParameterDrivenMaxFlow(t *testing.T) {
	// A monthly profile drives the demand's max_flow through the
	// parameter graph: January allows 3, February allows 6.
	var monthly [12]float64
	monthly[0] = 3
	monthly[1] = 6
	profile := param.NewMonthlyProfile("demand cap", monthly, param.MonthlyNoInterp)

	net := network.NewNetwork()
	in := net.AddNode(network.Node{Kind: network.KindInput, Name: "in",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(10), Cost: metric.Const(0)})
	out := net.AddNode(network.Node{Kind: network.KindOutput, Name: "out",
		MinFlow: metric.Const(0), MaxFlow: metric.ParameterValue(0, metric.ValueF64), Cost: metric.Const(-10)})
	_, err := net.AddEdge(in, out)
	require.NoError(t, err)

	var flows []float64
	run := newRun(t, net, []param.Parameter{profile}, recorder.Func{
		FuncName: "probe",
		Fn: func(_ context.Context, step calendar.Step, _ scenario.Index, st *state.State) error {
			flows = append(flows, st.EdgeFlow[0])
			return nil
		},
	})

	start := time.Date(2020, time.January, 30, 0, 0, 0, 0, time.UTC)
	ts, err := calendar.NewTimestepper(start, start.AddDate(0, 0, 3), calendar.Duration{Days: 1})
	require.NoError(t, err)

	require.NoError(t, run.Execute(context.Background(), ts.Steps()))
	assert.InDelta(t, 3.0, flows[0], tau, "jan 30")
	assert.InDelta(t, 3.0, flows[1], tau, "jan 31")
	assert.InDelta(t, 6.0, flows[2], tau, "feb 1 picks up the new cap")
	assert.InDelta(t, 6.0, flows[3], tau, "feb 2")
}

func TestExecute_RecorderErrorAborts(t *testing.T) {
	net := network.NewNetwork()
	in := net.AddNode(network.Node{Kind: network.KindInput, Name: "in",
		MinFlow: metric.Const(1), MaxFlow: metric.Const(1), Cost: metric.Const(0)})
	out := net.AddNode(network.Node{Kind: network.KindOutput, Name: "out",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(1), Cost: metric.Const(-1)})
	_, err := net.AddEdge(in, out)
	require.NoError(t, err)

	run := newRun(t, net, nil, recorder.Func{
		FuncName: "boom",
		Fn: func(context.Context, calendar.Step, scenario.Index, *state.State) error {
			return assert.AnError
		},
	})

	err = run.Execute(context.Background(), dailySteps(t, 3))
	require.Error(t, err)
}

func TestExecute_MultiScenarioIndependence(t *testing.T) {
	net := network.NewNetwork()
	res := net.AddNode(network.Node{Kind: network.KindStorage, Name: "reservoir",
		MinVolume: metric.Const(0), MaxVolume: metric.Const(100), Cost: metric.Const(0),
		MinFlow: metric.Const(0), MaxFlow: metric.Const(numeric.Infinity),
		InitialVolume: network.InitialVolume{Kind: network.InitialProportional, Value: 0.5}})
	demand := net.AddNode(network.Node{Kind: network.KindOutput, Name: "demand",
		MinFlow: metric.Const(0), MaxFlow: metric.Const(5), Cost: metric.Const(-10)})
	_, err := net.AddEdge(res, demand)
	require.NoError(t, err)

	g, err := param.NewGraph(nil)
	require.NoError(t, err)
	dom, err := scenario.NewDomain([]scenario.Group{{Name: "climate", Size: 3}})
	require.NoError(t, err)
	require.NoError(t, g.Setup(dailySteps(t, 1), dom))

	states := make([]*state.State, dom.Size())
	for i := range states {
		states[i] = state.New(i, len(net.Nodes), len(net.Edges), 0, 0)
		states[i].StorageVolume[res] = 50.0
	}
	bk := vstorage.NewBookkeeper(net, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))
	run := NewRun(net, g, solver.NewSimplex(), bk, dom, states)

	require.NoError(t, run.Execute(context.Background(), dailySteps(t, 4)))
	for i, st := range run.States() {
		assert.InDelta(t, 30.0, st.StorageVolume[res], tau, "scenario %d evolves identically but independently", i)
	}
}
