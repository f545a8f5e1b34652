// Package network implements the flow-network abstraction: nodes,
// edges, aggregated/virtual storage, and the relationships between
// them. Nodes, edges, and aggregated/virtual storages are created once
// during network assembly and are immutable thereafter;
// indices returned at insertion are arena handles, never pointers.
package network

import "hydroengine/internal/metric"

// NodeKind is the closed set of physical node variants.
type NodeKind int

const (
	KindInput NodeKind = iota
	KindOutput
	KindLink
	KindStorage
)

func (k NodeKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	case KindLink:
		return "link"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// InitialVolumeKind selects how a storage node's first-step volume is
// resolved against its max/min volume.
type InitialVolumeKind int

const (
	// InitialAbsolute takes the configured value directly.
	InitialAbsolute InitialVolumeKind = iota
	// InitialProportional scales max_volume by a proportion in [0, 1].
	InitialProportional
	// InitialDistributedProportional applies a shared proportion to a
	// storage group's total max_volume and fills the members from the
	// bottom up, each to its max before the next receives anything.
	InitialDistributedProportional
	// InitialDistributedAbsolute fills a storage group's members from
	// the bottom up with a shared absolute volume, each to its max
	// before the next receives anything.
	InitialDistributedAbsolute
)

// InitialVolume describes a storage node's first-step volume.
type InitialVolume struct {
	Kind  InitialVolumeKind
	Value float64 // absolute volume or proportion, per Kind
}

// NodeIndex is an arena handle into Network.Nodes. It is never reused
// and never dereferenced as a pointer.
type NodeIndex int

// Node is a single physical network node. All fields besides Volume
// (which lives in State, not here, since Node is immutable after
// construction) are fixed at assembly time.
type Node struct {
	Kind NodeKind
	Name string

	// Input/Output/Link/Storage all carry min/max flow and cost.
	MinFlow metric.Metric
	MaxFlow metric.Metric
	Cost    metric.Metric

	// Storage-only fields.
	MinVolume     metric.Metric
	MaxVolume     metric.Metric
	InitialVolume InitialVolume
}

// EdgeIndex is an arena handle into Network.Edges.
type EdgeIndex int

// Edge is an ordered, directed link between two nodes. Flow lives in
// State.EdgeFlow, indexed by EdgeIndex; Edge itself is immutable.
type Edge struct {
	From NodeIndex
	To   NodeIndex
}
