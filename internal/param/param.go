// Package param implements the parameter recomputation graph: a
// topologically ordered set of per-step value computations, each
// holding opaque per-(parameter, scenario) internal state.
//
// Each parameter variant is its own Go type implementing Parameter,
// the same shape pywr-core's own parameter trait takes (dynamic
// dispatch over a closed-ish but source-extensible set of variants) -
// the heterogeneity of each variant's internal state (FIFOs, LU
// factorizations, ratchet counters) makes one flat tagged struct
// impractical, unlike metric.Metric's genuinely uniform shape.
package param

import (
	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/network"
	"hydroengine/internal/scenario"
	"hydroengine/internal/state"
)

// Internal is a parameter's opaque per-(parameter, scenario) state,
// allocated once at Setup and owned by the Graph for the run's
// duration. Concrete parameter types downcast it once and keep a
// typed handle for subsequent calls.
type Internal any

// Context bundles everything a parameter needs to evaluate itself at
// one (step, scenario) point: the resolver for reading metrics (which
// itself can read this same Graph for KindParameterValue lookups) and
// the mutable per-scenario State.
type Context struct {
	Step     calendar.Step
	Scenario scenario.Index
	State    *state.State
	Resolver *network.Resolver
}

// Parameter is the contract every parameter variant implements.
// Setup is called once per scenario before the run. Before is an
// optional pre-solve hook that may publish a value for dependents
// (e.g. hydropower-target precomputes a required flow); its result is
// written to State and then unconditionally overwritten by Compute in
// the same step, per the "before publishes, compute overwrites"
// decision recorded for the two-tolerance-vocabulary open question.
// After runs once the solve has completed and flows are known.
type Parameter interface {
	Name() string
	ValueKind() ValueKind
	// Dependencies lists the indices, into the same Graph, of every
	// other parameter this one reads via a KindParameterValue metric.
	// The Graph uses this to compute a topological evaluation order.
	Dependencies() []int
	Setup(steps []calendar.Step, sc scenario.Index) (Internal, error)
	Before(ctx Context, internal Internal) (has bool, value float64, err error)
	Compute(ctx Context, internal Internal) (Output, error)
	After(ctx Context, internal Internal) error
}

// ValueKind mirrors metric.ValueKind without importing it, so param's
// own exported API does not leak the metric package's internals to
// every parameter author.
type ValueKind int

const (
	ValueF64 ValueKind = iota
	ValueU64
)

// Output is a parameter's computed value, tagged by which field is live.
type Output struct {
	Kind ValueKind
	F64  float64
	U64  uint64
}

// F64Output wraps a float64 result.
func F64Output(v float64) Output { return Output{Kind: ValueF64, F64: v} }

// U64Output wraps a uint64 result.
func U64Output(v uint64) Output { return Output{Kind: ValueU64, U64: v} }

// Simple is implemented by parameters that can certify they perform no
// live-network read, so they may be evaluated before the LP solve
// (i.e. legally referenced from another parameter's Before hook).
// Parameters that don't implement it are conservatively treated as
// non-simple.
type Simple interface {
	IsSimple() bool
}

// BeforeReader must be implemented by any parameter whose Before hook
// resolves metrics. The Graph validates the declared metrics at
// construction: a Before hook runs before the step's LP solve, so
// every metric it reads must be simple (no live network reads), and
// any parameter it references must itself be transitively simple.
type BeforeReader interface {
	BeforeMetrics() []metric.Metric
}
