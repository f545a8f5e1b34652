package network

import (
	"fmt"

	"hydroengine/internal/apperror"
	"hydroengine/internal/metric"
	"hydroengine/internal/numeric"
)

// AddRiverGauge expands a river-gauge node into a parallel link pair:
// an MRF (minimum residual flow) link and a bypass link, aggregated
// under shared min/max-flow bookkeeping is left to the caller since
// the two links have independent bounds. Both internal nodes accept
// incoming connections and are both exposed as out-slots, matching the
// svgbob in the source this is grounded on (U -> {mrf, bypass} -> D).
//
// Required slots on connection: "mrf", "bypass". Both accept incoming
// connections; neither is optional.
func (n *Network) AddRiverGauge(name string, mrfMin, mrfMax, mrfCost metric.Metric, bypassMax metric.Metric) NodeIndex {
	mrf := n.AddNode(Node{Kind: KindLink, Name: name + ".mrf", MinFlow: mrfMin, MaxFlow: mrfMax, Cost: mrfCost})
	bypass := n.AddNode(Node{Kind: KindLink, Name: name + ".bypass", MinFlow: metric.Const(0), MaxFlow: bypassMax, Cost: metric.Const(0)})

	n.RegisterSlots(name, []NodeIndex{mrf, bypass}, map[string]NodeIndex{
		"mrf":    mrf,
		"bypass": bypass,
	})
	return mrf
}

// AddWaterTreatmentWorks expands a water-treatment-works node into a
// `gross -> {net, loss}` split followed by `net -> {soft_min,
// above_soft_min}`. When lossFactor is non-nil, an aggregated-node
// ratio ties the loss branch to the net branch (loss = factor * net);
// without it no loss node is created and gross == net. Entry is
// `gross`; exit slots are "soft_min", "above_soft_min", and (if
// present) "loss".
func (n *Network) AddWaterTreatmentWorks(name string, softMinFlow, softMinCost, maxFlow, cost metric.Metric, lossFactor *metric.Metric) NodeIndex {
	gross := n.AddNode(Node{Kind: KindLink, Name: name + ".gross", MinFlow: metric.Const(0), MaxFlow: metric.Const(numeric.Infinity), Cost: metric.Const(0)})
	net := n.AddNode(Node{Kind: KindLink, Name: name + ".net", MinFlow: metric.Const(0), MaxFlow: maxFlow, Cost: cost})
	softMin := n.AddNode(Node{Kind: KindLink, Name: name + ".net_soft_min_flow", MinFlow: metric.Const(0), MaxFlow: softMinFlow, Cost: softMinCost})
	aboveSoftMin := n.AddNode(Node{Kind: KindLink, Name: name + ".net_above_soft_min_flow", MinFlow: metric.Const(0), MaxFlow: metric.Const(numeric.Infinity), Cost: metric.Const(0)})

	mustAddEdge(n, gross, net)
	mustAddEdge(n, net, softMin)
	mustAddEdge(n, net, aboveSoftMin)

	slots := map[string]NodeIndex{
		"soft_min":       softMin,
		"above_soft_min": aboveSoftMin,
	}

	if lossFactor != nil {
		loss := n.AddNode(Node{Kind: KindOutput, Name: name + ".loss", MinFlow: metric.Const(0), MaxFlow: metric.Const(numeric.Infinity), Cost: metric.Const(0)})
		mustAddEdge(n, gross, loss)
		n.AddAggregatedNode(AggregatedNode{
			Name:    name + ".agg",
			MinFlow: metric.Const(0),
			MaxFlow: metric.Const(numeric.Infinity),
			Members: []NodeComponent{
				{Node: net, Component: ComponentInflow},
				{Node: loss, Component: ComponentInflow},
			},
			Relation: Relationship{
				Kind:         RelationshipRatio,
				RatioFactors: []metric.Metric{metric.Const(1.0), *lossFactor},
			},
		})
		slots["loss"] = loss
	}

	n.RegisterSlots(name, []NodeIndex{gross}, slots)
	return gross
}

// PiecewiseStore configures one tranche of a piecewise storage: the
// tranche's max volume (typically a volume-between-control-curves
// parameter over the composite's total volume) and the penalty cost
// that makes the allocation algorithm treat the tranche independently
// of the ones above and below it.
type PiecewiseStore struct {
	MaxVolume metric.Metric
	Cost      metric.Metric
}

// AddPiecewiseStorage expands a storage into a vertical series of
// sub-stores with separate costs, bi-directionally connected so
// volume can transfer between adjacent tranches, plus an aggregated
// storage node over the whole stack for reporting. The last store in
// the slice is the top tranche (the residual above the highest
// control curve) and is the one exposed for external connections.
// The composite's initial volume is distributed across the stores
// from the bottom up at seeding time via a StorageGroup.
func (n *Network) AddPiecewiseStorage(name string, stores []PiecewiseStore, initial InitialVolume) (AggregatedStorageIndex, error) {
	if len(stores) == 0 {
		return 0, apperror.New(apperror.CodeInvalidConstraintValue, "piecewise storage needs at least one store").WithField(name)
	}

	members := make([]NodeIndex, 0, len(stores))
	for i, store := range stores {
		idx := n.AddNode(Node{
			Kind:      KindStorage,
			Name:      fmt.Sprintf("%s.store-%02d", name, i),
			MinVolume: metric.Const(0),
			MaxVolume: store.MaxVolume,
			Cost:      store.Cost,
			MinFlow:   metric.Const(0),
			MaxFlow:   metric.Const(numeric.Infinity),
		})
		if len(members) > 0 {
			prev := members[len(members)-1]
			mustAddEdge(n, idx, prev)
			mustAddEdge(n, prev, idx)
		}
		members = append(members, idx)
	}

	n.AddStorageGroup(StorageGroup{Name: name, Members: members, Initial: initial})

	agg := n.AddAggregatedStorageNode(AggregatedStorageNode{
		Name:    name + ".agg-store",
		Members: members,
	})

	top := members[len(members)-1]
	n.RegisterSlots(name, []NodeIndex{top}, map[string]NodeIndex{"store": top})
	return agg, nil
}

// mustAddEdge adds an edge between nodes created moments earlier in
// the same composite constructor; these endpoints are always valid
// since both indices were just returned by AddNode, so the only
// possible error is a programming bug in this package.
func mustAddEdge(n *Network, from, to NodeIndex) EdgeIndex {
	idx, err := n.AddEdge(from, to)
	if err != nil {
		panic(err)
	}
	return idx
}
