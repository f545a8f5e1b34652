package network

import "hydroengine/internal/metric"

// Component selects which side of a member node an aggregated node's
// relationship applies to.
type Component int

const (
	ComponentInflow Component = iota
	ComponentOutflow
	ComponentLoss
)

// NodeComponent references one member of an aggregated node: a node
// together with which of its flows (inflow/outflow/loss) is counted.
type NodeComponent struct {
	Node      NodeIndex
	Component Component
}

// RelationshipKind is the closed set of aggregated-node relationships.
type RelationshipKind int

const (
	RelationshipNone RelationshipKind = iota
	RelationshipProportion
	RelationshipRatio
	RelationshipCoefficient
	RelationshipExclusive
)

// Relationship constrains how flow is shared across an aggregated
// node's members.
type Relationship struct {
	Kind RelationshipKind

	// Proportion: one factor per non-first member; the first member
	// takes the residual (1 - sum(factors)).
	ProportionFactors []metric.Metric

	// Ratio: one factor per member, enforcing fixed flow ratios.
	RatioFactors []metric.Metric

	// Coefficient: sum(c_i * f_i) = rhs, currently at most 2 members.
	CoefficientFactors []metric.Metric
	CoefficientRHS     metric.Metric

	// Exclusive: between MinActive and MaxActive members may carry flow.
	MinActive int
	MaxActive int
}

// AggregatedIndex is an arena handle into Network.Aggregated.
type AggregatedIndex int

// AggregatedNode groups node components under a shared min/max flow
// and an optional Relationship.
type AggregatedNode struct {
	Name     string
	Members  []NodeComponent
	MinFlow  metric.Metric
	MaxFlow  metric.Metric
	Relation Relationship
}

// AggregatedStorageIndex is an arena handle into Network.AggregatedStorage.
type AggregatedStorageIndex int

// AggregatedStorageNode sums member storage volumes for reporting and
// derived metrics; it carries no constraints of its own.
type AggregatedStorageNode struct {
	Name    string
	Members []NodeIndex
}

// ResetKind is the closed set of virtual-storage reset schedules.
type ResetKind int

const (
	ResetNever ResetKind = iota
	ResetDayOfYear
	ResetNumberOfMonths
	ResetSeasonal
)

// ResetVolumeKind selects what a virtual storage resets to.
type ResetVolumeKind int

const (
	ResetVolumeInitial ResetVolumeKind = iota
	ResetVolumeMax
)

// Reset describes when and to what a virtual storage is replenished.
type Reset struct {
	Kind ResetKind

	// DayOfYear: reset day/month.
	Day   int
	Month int

	// NumberOfMonths: reset every N months from the run start.
	Months int

	// Seasonal: active period [StartDay,StartMonth)..[EndDay,EndMonth),
	// outside of which the virtual storage does not draw down.
	StartDay   int
	StartMonth int
	EndDay     int
	EndMonth   int

	Volume ResetVolumeKind
}

// Window describes a rolling virtual-storage window, expressed in
// timesteps once resolved from a day count via the model's calendar.
type Window struct {
	Enabled bool
	Steps   int
}

// MemberDrawdown references a node whose flow decrements a virtual
// storage, scaled by an optional per-node factor (default 1.0).
type MemberDrawdown struct {
	Node   NodeIndex
	Factor metric.Metric
}

// VirtualStorageIndex is an arena handle into Network.VirtualStorage.
type VirtualStorageIndex int

// VirtualStorageNode is a non-physical accounting storage drawn down
// by flows on named nodes.
type VirtualStorageNode struct {
	Name          string
	Members       []MemberDrawdown
	MaxVolume     metric.Metric
	MinVolume     metric.Metric
	Cost          metric.Metric
	InitialVolume InitialVolume
	Reset         Reset
	Window        Window
}
