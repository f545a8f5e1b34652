package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydroengine/internal/apperror"
	"hydroengine/internal/metric"
	"hydroengine/internal/numeric"
	"hydroengine/internal/state"
)

func TestAddEdge_ValidatesEndpoints(t *testing.T) {
	net := NewNetwork()
	a := net.AddNode(Node{Kind: KindInput, Name: "a"})
	b := net.AddNode(Node{Kind: KindOutput, Name: "b"})

	e, err := net.AddEdge(a, b)
	require.NoError(t, err)
	assert.Equal(t, EdgeIndex(0), e)
	assert.Equal(t, []EdgeIndex{e}, net.OutgoingEdges(a))
	assert.Equal(t, []EdgeIndex{e}, net.IncomingEdges(b))

	_, err = net.AddEdge(a, NodeIndex(99))
	assert.True(t, apperror.Is(err, apperror.CodeEdgeEndpointMissing))
	_, err = net.AddEdge(NodeIndex(-1), b)
	assert.True(t, apperror.Is(err, apperror.CodeEdgeEndpointMissing))
}

func TestSlots(t *testing.T) {
	net := NewNetwork()
	a := net.AddNode(Node{Kind: KindLink, Name: "gauge.mrf"})
	b := net.AddNode(Node{Kind: KindLink, Name: "gauge.bypass"})
	net.RegisterSlots("gauge", []NodeIndex{a, b}, map[string]NodeIndex{"mrf": a, "bypass": b})

	idx, err := net.Slot("gauge", "mrf")
	require.NoError(t, err)
	assert.Equal(t, a, idx)

	entries, err := net.Entry("gauge")
	require.NoError(t, err)
	assert.Equal(t, []NodeIndex{a, b}, entries)

	_, err = net.Slot("gauge", "spillway")
	assert.True(t, apperror.Is(err, apperror.CodeInvalidSlot))
	_, err = net.Slot("nowhere", "mrf")
	assert.True(t, apperror.Is(err, apperror.CodeInvalidSlot))
	_, err = net.Entry("nowhere")
	assert.True(t, apperror.Is(err, apperror.CodeInvalidSlot))
}

func TestStorageNodes(t *testing.T) {
	net := NewNetwork()
	net.AddNode(Node{Kind: KindInput, Name: "in"})
	s1 := net.AddNode(Node{Kind: KindStorage, Name: "res1"})
	net.AddNode(Node{Kind: KindLink, Name: "mid"})
	s2 := net.AddNode(Node{Kind: KindStorage, Name: "res2"})

	assert.Equal(t, []NodeIndex{s1, s2}, net.StorageNodes())
}

func TestResolveInitialVolume(t *testing.T) {
	tests := []struct {
		name string
		iv   InitialVolume
		max  float64
		want float64
	}{
		{"absolute", InitialVolume{Kind: InitialAbsolute, Value: 42}, 100, 42},
		{"proportional full", InitialVolume{Kind: InitialProportional, Value: 1.0}, 100, 100},
		{"proportional half", InitialVolume{Kind: InitialProportional, Value: 0.5}, 80, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveInitialVolume(tt.iv, tt.max)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// Distributed policies only make sense across a storage group.
	for _, kind := range []InitialVolumeKind{InitialDistributedProportional, InitialDistributedAbsolute} {
		_, err := ResolveInitialVolume(InitialVolume{Kind: kind, Value: 0.5}, 100)
		assert.True(t, apperror.Is(err, apperror.CodeInvalidConstraintValue))
	}
}

func TestSeedInitialVolumes(t *testing.T) {
	net := NewNetwork()
	lone := net.AddNode(Node{Kind: KindStorage, Name: "lone",
		MaxVolume:     metric.Const(100),
		InitialVolume: InitialVolume{Kind: InitialProportional, Value: 0.25}})

	st := state.New(0, len(net.Nodes), 0, 0, 0)
	require.NoError(t, net.SeedInitialVolumes(NewResolver(net), st))
	assert.Equal(t, 25.0, st.StorageVolume[lone])
}

func TestSeedInitialVolumes_UngroupedDistributedIsRejected(t *testing.T) {
	net := NewNetwork()
	net.AddNode(Node{Kind: KindStorage, Name: "orphan",
		MaxVolume:     metric.Const(100),
		InitialVolume: InitialVolume{Kind: InitialDistributedAbsolute, Value: 30}})

	st := state.New(0, len(net.Nodes), 0, 0, 0)
	err := net.SeedInitialVolumes(NewResolver(net), st)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidConstraintValue))
}

func TestSeedInitialVolumes_GroupFillsBottomUp(t *testing.T) {
	net := NewNetwork()
	bottom := net.AddNode(Node{Kind: KindStorage, Name: "s.store-00", MaxVolume: metric.Const(20)})
	middle := net.AddNode(Node{Kind: KindStorage, Name: "s.store-01", MaxVolume: metric.Const(30)})
	top := net.AddNode(Node{Kind: KindStorage, Name: "s.store-02", MaxVolume: metric.Const(50)})

	net.AddStorageGroup(StorageGroup{
		Name:    "s",
		Members: []NodeIndex{bottom, middle, top},
		Initial: InitialVolume{Kind: InitialDistributedProportional, Value: 0.45},
	})

	st := state.New(0, len(net.Nodes), 0, 0, 0)
	require.NoError(t, net.SeedInitialVolumes(NewResolver(net), st))

	// 45% of the 100 total fills the bottom store, then the middle
	// takes the remaining 25, leaving nothing for the top store.
	assert.Equal(t, 20.0, st.StorageVolume[bottom])
	assert.Equal(t, 25.0, st.StorageVolume[middle])
	assert.Equal(t, 0.0, st.StorageVolume[top])
}

func TestSeedInitialVolumes_GroupDistributedAbsolute(t *testing.T) {
	net := NewNetwork()
	bottom := net.AddNode(Node{Kind: KindStorage, Name: "s.store-00", MaxVolume: metric.Const(10)})
	top := net.AddNode(Node{Kind: KindStorage, Name: "s.store-01", MaxVolume: metric.Const(90)})

	net.AddStorageGroup(StorageGroup{
		Name:    "s",
		Members: []NodeIndex{bottom, top},
		Initial: InitialVolume{Kind: InitialDistributedAbsolute, Value: 60},
	})

	st := state.New(0, len(net.Nodes), 0, 0, 0)
	require.NoError(t, net.SeedInitialVolumes(NewResolver(net), st))

	assert.Equal(t, 10.0, st.StorageVolume[bottom])
	assert.Equal(t, 50.0, st.StorageVolume[top])
}

func TestAddPiecewiseStorage(t *testing.T) {
	net := NewNetwork()
	agg, err := net.AddPiecewiseStorage("res", []PiecewiseStore{
		{MaxVolume: metric.Const(30), Cost: metric.Const(-50)},
		{MaxVolume: metric.Const(30), Cost: metric.Const(-20)},
		{MaxVolume: metric.Const(40), Cost: metric.Const(0)},
	}, InitialVolume{Kind: InitialDistributedProportional, Value: 0.5})
	require.NoError(t, err)

	// Three stores, bi-directionally chained: two edge pairs.
	require.Len(t, net.Nodes, 3)
	assert.Len(t, net.Edges, 4)
	for _, n := range net.Nodes {
		assert.Equal(t, KindStorage, n.Kind)
	}

	require.Len(t, net.AggregatedStorage, 1)
	assert.Len(t, net.AggregatedStorage[int(agg)].Members, 3)

	require.Len(t, net.StorageGroups, 1)
	assert.Equal(t, InitialDistributedProportional, net.StorageGroups[0].Initial.Kind)

	// External connections attach to the top store only.
	topSlot, err := net.Slot("res", "store")
	require.NoError(t, err)
	assert.Equal(t, NodeIndex(2), topSlot)
	entries, err := net.Entry("res")
	require.NoError(t, err)
	assert.Equal(t, []NodeIndex{topSlot}, entries)

	// Seeding fills from the bottom tranche upward.
	st := state.New(0, len(net.Nodes), len(net.Edges), 0, 0)
	require.NoError(t, net.SeedInitialVolumes(NewResolver(net), st))
	assert.Equal(t, 30.0, st.StorageVolume[0])
	assert.Equal(t, 20.0, st.StorageVolume[1])
	assert.Equal(t, 0.0, st.StorageVolume[2])
}

func TestAddPiecewiseStorage_Empty(t *testing.T) {
	net := NewNetwork()
	_, err := net.AddPiecewiseStorage("res", nil, InitialVolume{})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidConstraintValue))
}

func TestAddRiverGauge(t *testing.T) {
	net := NewNetwork()
	net.AddRiverGauge("gauge", metric.Const(5), metric.Const(5), metric.Const(-20), metric.Const(numeric.Infinity))

	mrf, err := net.Slot("gauge", "mrf")
	require.NoError(t, err)
	bypass, err := net.Slot("gauge", "bypass")
	require.NoError(t, err)
	assert.NotEqual(t, mrf, bypass)
	assert.Equal(t, KindLink, net.Nodes[mrf].Kind)
	assert.Equal(t, KindLink, net.Nodes[bypass].Kind)

	entries, err := net.Entry("gauge")
	require.NoError(t, err)
	assert.ElementsMatch(t, []NodeIndex{mrf, bypass}, entries)
}

func TestAddWaterTreatmentWorks(t *testing.T) {
	net := NewNetwork()
	lossFactor := metric.Const(0.1)
	gross := net.AddWaterTreatmentWorks("wtw", metric.Const(2), metric.Const(-5), metric.Const(50), metric.Const(1), &lossFactor)

	entries, err := net.Entry("wtw")
	require.NoError(t, err)
	assert.Equal(t, []NodeIndex{gross}, entries)

	for _, slot := range []string{"soft_min", "above_soft_min", "loss"} {
		_, err := net.Slot("wtw", slot)
		assert.NoError(t, err, slot)
	}

	// gross -> net, net -> soft_min, net -> above_soft_min, gross -> loss.
	assert.Len(t, net.Edges, 4)
	require.Len(t, net.Aggregated, 1)
	agg := net.Aggregated[0]
	assert.Equal(t, RelationshipRatio, agg.Relation.Kind)
	require.Len(t, agg.Relation.RatioFactors, 2)

	loss, _ := net.Slot("wtw", "loss")
	assert.Equal(t, KindOutput, net.Nodes[loss].Kind)
	assert.NotEmpty(t, net.IncomingEdges(loss))
}

func TestAddWaterTreatmentWorks_NoLoss(t *testing.T) {
	net := NewNetwork()
	net.AddWaterTreatmentWorks("wtw", metric.Const(2), metric.Const(-5), metric.Const(50), metric.Const(1), nil)

	_, err := net.Slot("wtw", "loss")
	assert.True(t, apperror.Is(err, apperror.CodeInvalidSlot))
	assert.Empty(t, net.Aggregated)
}
