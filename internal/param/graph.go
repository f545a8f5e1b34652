package param

import (
	"hydroengine/internal/apperror"
	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/network"
	"hydroengine/internal/scenario"
	"hydroengine/internal/state"
)

// Graph holds every registered Parameter and the topological order in
// which they must be evaluated so that each parameter's dependencies
// (via KindParameterValue metrics) are computed before it.
type Graph struct {
	params []Parameter
	order  []int

	// internal is indexed [paramIndex][scenarioGlobalIndex].
	internal [][]Internal
}

// NewGraph registers params (index i becomes metric.ParameterValue's
// Index i) and computes the evaluation order, failing with
// CodeCircularReference if the dependency graph has a cycle. Before
// hooks run ahead of the step's LP solve, so every metric a
// BeforeReader declares must be simple; a violation is rejected here,
// at construction, rather than resolving a zeroed or stale value
// mid-run.
func NewGraph(params []Parameter) (*Graph, error) {
	order, err := topoSort(params)
	if err != nil {
		return nil, err
	}
	g := &Graph{params: params, order: order}
	if err := g.validateBeforeInputs(); err != nil {
		return nil, err
	}
	return g, nil
}

// validateBeforeInputs enforces the construction-time rule that only
// simple metrics are legal inputs to a parameter's Before hook.
func (g *Graph) validateBeforeInputs() error {
	for _, p := range g.params {
		br, ok := p.(BeforeReader)
		if !ok {
			continue
		}
		for _, m := range br.BeforeMetrics() {
			if !m.Simple() {
				return apperror.New(apperror.CodeInvalidConstraintValue,
					"before hook reads a live network metric; only simple metrics may be read before the solve").
					WithDetails("parameter", p.Name())
			}
			if m.Kind == metric.KindParameterValue && !g.IsSimple(m.Index) {
				return apperror.New(apperror.CodeInvalidConstraintValue,
					"before hook reads a non-simple parameter; only simple parameters may be read before the solve").
					WithDetails("parameter", p.Name()).
					WithDetails("dependency", g.params[m.Index].Name())
			}
		}
	}
	return nil
}

// Len returns the number of registered parameters.
func (g *Graph) Len() int { return len(g.params) }

// Order returns the evaluation order, parameter indices earliest-first.
func (g *Graph) Order() []int { return g.order }

// IsSimple reports whether parameter idx can be legally referenced
// from another parameter's Before hook: it must implement Simple and
// report true, and every parameter it (transitively) depends on must
// also be simple.
func (g *Graph) IsSimple(idx int) bool {
	seen := make(map[int]bool)
	var visit func(int) bool
	visit = func(i int) bool {
		if seen[i] {
			return true
		}
		seen[i] = true
		p := g.params[i]
		if s, ok := p.(Simple); !ok || !s.IsSimple() {
			return false
		}
		for _, dep := range p.Dependencies() {
			if !visit(dep) {
				return false
			}
		}
		return true
	}
	return visit(idx)
}

func topoSort(params []Parameter) ([]int, error) {
	n := len(params)
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, n)
	order := make([]int, 0, n)

	var visit func(i int) error
	visit = func(i int) error {
		switch color[i] {
		case black:
			return nil
		case gray:
			return apperror.New(apperror.CodeCircularReference, "parameter graph contains a cycle").
				WithDetails("parameter", params[i].Name())
		}
		color[i] = gray
		for _, dep := range params[i].Dependencies() {
			if dep < 0 || dep >= n {
				return apperror.New(apperror.CodeParameterNotFound, "parameter dependency out of range").
					WithDetails("parameter", params[i].Name()).WithDetails("dependency", dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[i] = black
		order = append(order, i)
		return nil
	}

	for i := range params {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Setup allocates each parameter's internal state for every scenario
// in dom, in dependency order. Internal state is owned by the Graph
// for the run's duration; it is never reallocated mid-run.
func (g *Graph) Setup(steps []calendar.Step, dom *scenario.Domain) error {
	g.internal = make([][]Internal, len(g.params))
	for _, idx := range g.order {
		g.internal[idx] = make([]Internal, dom.Size())
		for _, sc := range dom.Indices() {
			internal, err := g.params[idx].Setup(steps, sc)
			if err != nil {
				return apperror.Wrap(err, apperror.CodeInternal, "parameter setup failed").
					WithDetails("parameter", g.params[idx].Name())
			}
			g.internal[idx][sc.Global] = internal
		}
	}
	return nil
}

// RunBefore evaluates every parameter's Before hook in dependency
// order, publishing any produced value into st so later parameters'
// Compute calls (within this same Before pass, if they only depend on
// simple parameters) can read it via the network resolver.
func (g *Graph) RunBefore(step calendar.Step, sc scenario.Index, st *state.State, res *network.Resolver) error {
	for _, idx := range g.order {
		p := g.params[idx]
		ctx := Context{Step: step, Scenario: sc, State: st, Resolver: res}
		has, value, err := p.Before(ctx, g.internal[idx][sc.Global])
		if err != nil {
			return wrapParamErr(p, err)
		}
		if has {
			if p.ValueKind() == ValueU64 {
				st.ParamOutputU64[idx] = uint64(value)
			} else {
				st.ParamOutputF64[idx] = value
			}
		}
	}
	return nil
}

// RunCompute evaluates every parameter's Compute in dependency order,
// overwriting any value a Before hook published this same step.
func (g *Graph) RunCompute(step calendar.Step, sc scenario.Index, st *state.State, res *network.Resolver) error {
	for _, idx := range g.order {
		p := g.params[idx]
		ctx := Context{Step: step, Scenario: sc, State: st, Resolver: res}
		out, err := p.Compute(ctx, g.internal[idx][sc.Global])
		if err != nil {
			return wrapParamErr(p, err)
		}
		switch out.Kind {
		case ValueU64:
			st.ParamOutputU64[idx] = out.U64
		default:
			st.ParamOutputF64[idx] = out.F64
		}
	}
	return nil
}

// RunAfter evaluates every parameter's After hook, once flows are
// known, in dependency order.
func (g *Graph) RunAfter(step calendar.Step, sc scenario.Index, st *state.State, res *network.Resolver) error {
	for _, idx := range g.order {
		p := g.params[idx]
		ctx := Context{Step: step, Scenario: sc, State: st, Resolver: res}
		if err := p.After(ctx, g.internal[idx][sc.Global]); err != nil {
			return wrapParamErr(p, err)
		}
	}
	return nil
}

func wrapParamErr(p Parameter, err error) error {
	if ae, ok := err.(*apperror.Error); ok {
		return ae.WithDetails("parameter", p.Name())
	}
	return apperror.Wrap(err, apperror.CodeInternal, "parameter evaluation failed").WithDetails("parameter", p.Name())
}
