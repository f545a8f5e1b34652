// Package metric provides the uniform read-only handle used throughout
// the engine to refer to a state, parameter, derived, or constant
// value without the reader needing to know which kind it resolved
// from.
package metric

// Kind discriminates the closed set of things a Metric can resolve to.
type Kind int

const (
	// KindConstant is a literal, always legal before the LP solve.
	KindConstant Kind = iota
	// KindNodeFlow reads a node's current-step edge-flow accumulator.
	// Requires the solve to have completed for the current step.
	KindNodeFlow
	// KindNodeVolume reads a storage node's absolute volume.
	KindNodeVolume
	// KindStorageProportionalVolume reads volume/max_volume for a storage node.
	KindStorageProportionalVolume
	// KindAggregatedNodeInFlow sums the inflow of an aggregated node's members.
	KindAggregatedNodeInFlow
	// KindAggregatedNodeOutFlow sums the outflow of an aggregated node's members.
	KindAggregatedNodeOutFlow
	// KindAggregatedStorageVolume sums member storage volumes.
	KindAggregatedStorageVolume
	// KindVirtualStorageVolume reads a virtual storage's current volume.
	KindVirtualStorageVolume
	// KindParameterValue reads another parameter's last computed output.
	KindParameterValue
	// KindDerivedMetric reads a named cached derived value off State.
	KindDerivedMetric
)

// liveNetworkKinds require the current step's flows/volumes and are
// therefore excluded from the "simple" subset usable before the solve.
var liveNetworkKinds = map[Kind]bool{
	KindNodeFlow:                  true,
	KindNodeVolume:                true,
	KindStorageProportionalVolume: true,
	KindAggregatedNodeInFlow:      true,
	KindAggregatedNodeOutFlow:     true,
	KindAggregatedStorageVolume:   true,
	KindVirtualStorageVolume:      true,
}

// ValueKind is the scalar type a metric ultimately produces.
type ValueKind int

const (
	ValueF64 ValueKind = iota
	ValueU64
)

// Metric is a tagged, read-only reference. It is pure data: resolving
// it to a concrete value is the job of a Resolver elsewhere, which
// keeps this package free of a dependency on the network/state types
// it describes.
type Metric struct {
	Kind      Kind
	Value     ValueKind
	Constant  float64
	ConstantU uint64

	// Index is interpreted according to Kind: a node index, aggregated
	// node index, aggregated storage index, virtual storage index, or
	// parameter index.
	Index int

	// DerivedKey names a cached derived metric on State when Kind is
	// KindDerivedMetric.
	DerivedKey string
}

// Const builds a constant f64 metric.
func Const(v float64) Metric { return Metric{Kind: KindConstant, Value: ValueF64, Constant: v} }

// ConstU builds a constant u64 metric.
func ConstU(v uint64) Metric { return Metric{Kind: KindConstant, Value: ValueU64, ConstantU: v} }

// NodeFlow builds a metric reading a node's current flow.
func NodeFlow(nodeIndex int) Metric {
	return Metric{Kind: KindNodeFlow, Value: ValueF64, Index: nodeIndex}
}

// NodeVolume builds a metric reading a storage node's absolute volume.
func NodeVolume(nodeIndex int) Metric {
	return Metric{Kind: KindNodeVolume, Value: ValueF64, Index: nodeIndex}
}

// StorageProportionalVolume builds a metric reading volume/max_volume.
func StorageProportionalVolume(nodeIndex int) Metric {
	return Metric{Kind: KindStorageProportionalVolume, Value: ValueF64, Index: nodeIndex}
}

// AggregatedNodeInFlow builds a metric summing an aggregated node's inflow.
func AggregatedNodeInFlow(aggIndex int) Metric {
	return Metric{Kind: KindAggregatedNodeInFlow, Value: ValueF64, Index: aggIndex}
}

// AggregatedNodeOutFlow builds a metric summing an aggregated node's outflow.
func AggregatedNodeOutFlow(aggIndex int) Metric {
	return Metric{Kind: KindAggregatedNodeOutFlow, Value: ValueF64, Index: aggIndex}
}

// AggregatedStorageVolume builds a metric summing an aggregated storage's members.
func AggregatedStorageVolume(aggIndex int) Metric {
	return Metric{Kind: KindAggregatedStorageVolume, Value: ValueF64, Index: aggIndex}
}

// VirtualStorageVolume builds a metric reading a virtual storage's volume.
func VirtualStorageVolume(vsIndex int) Metric {
	return Metric{Kind: KindVirtualStorageVolume, Value: ValueF64, Index: vsIndex}
}

// ParameterValue builds a metric reading another parameter's output.
func ParameterValue(paramIndex int, vk ValueKind) Metric {
	return Metric{Kind: KindParameterValue, Value: vk, Index: paramIndex}
}

// DerivedMetric builds a metric reading a named cached derived value.
func DerivedMetric(key string) Metric {
	return Metric{Kind: KindDerivedMetric, Value: ValueF64, DerivedKey: key}
}

// Simple reports whether the metric can be evaluated before the LP
// solve, i.e. it performs no live network read of the current step's
// unresolved flows or volumes. ParameterValue metrics are simple only
// if the referenced parameter itself is simple; that recursive check
// is performed by the parameter graph, which owns per-parameter
// simplicity, not by this package.
func (m Metric) Simple() bool {
	return !liveNetworkKinds[m.Kind]
}
