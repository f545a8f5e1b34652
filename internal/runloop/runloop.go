// Package runloop orchestrates one scenario's replay of the model
// calendar: the fixed per-step sequence of reset edge flows,
// parameter before hooks, parameter compute, LP build+solve, state
// writeback, virtual-storage advance, parameter after hooks, and
// recorder observation.
package runloop

import (
	"context"
	"time"

	"hydroengine/internal/apperror"
	"hydroengine/internal/calendar"
	"hydroengine/internal/lp"
	"hydroengine/internal/network"
	"hydroengine/internal/param"
	"hydroengine/internal/recorder"
	"hydroengine/internal/scenario"
	"hydroengine/internal/solver"
	"hydroengine/internal/state"
	"hydroengine/internal/vstorage"
	"hydroengine/pkg/metrics"
	"hydroengine/pkg/telemetry"
)

// Run owns everything one simulation replay needs: the immutable
// network and parameter graph shared read-only across scenarios, the
// per-scenario mutable State slice, and the collaborators (LP
// builder, solver driver, virtual-storage bookkeeper, recorders) the
// step sequence calls each timestep.
type Run struct {
	Net        *network.Network
	Resolver   *network.Resolver
	Params     *param.Graph
	Builder    *lp.Builder
	Driver     solver.Driver
	Bookkeeper *vstorage.Bookkeeper
	Recorders  []recorder.Recorder
	Domain     *scenario.Domain

	states []*state.State
}

// BuildStates allocates and seeds one State per scenario in dom: the
// storage volumes come from each node's initial-volume policy (with
// distributed policies spread across their StorageGroup from the
// bottom up) and the virtual-storage volumes and window histories
// from bookkeeper.Init. This is the engine's model-loading entry
// point for state; the returned slice is what NewRun expects, indexed
// by scenario global index.
func BuildStates(net *network.Network, params *param.Graph, dom *scenario.Domain, bookkeeper *vstorage.Bookkeeper) ([]*state.State, error) {
	res := network.NewResolver(net)
	states := make([]*state.State, dom.Size())
	for i := range states {
		st := state.New(i, len(net.Nodes), len(net.Edges), len(net.VirtualStorage), params.Len())
		if err := net.SeedInitialVolumes(res, st); err != nil {
			return nil, err
		}
		if bookkeeper != nil {
			if err := bookkeeper.Init(res, st); err != nil {
				return nil, err
			}
		}
		states[i] = st
	}
	return states, nil
}

// NewRun wires the collaborators above into a Run. States are
// allocated and seeded by BuildStates (param.Graph.Setup must have
// run first so each parameter's internal state exists).
func NewRun(net *network.Network, params *param.Graph, driver solver.Driver, bookkeeper *vstorage.Bookkeeper, dom *scenario.Domain, states []*state.State, recorders ...recorder.Recorder) *Run {
	return &Run{
		Net:        net,
		Resolver:   network.NewResolver(net),
		Params:     params,
		Builder:    lp.NewBuilder(net),
		Driver:     driver,
		Bookkeeper: bookkeeper,
		Recorders:  recorders,
		Domain:     dom,
		states:     states,
	}
}

// States returns the per-scenario state slice, indexed by scenario
// global index.
func (r *Run) States() []*state.State { return r.states }

// Execute replays every step in steps across every scenario in the
// run's domain. The time-step barrier serialises scenarios: within a
// step each scenario is independent (it owns its own State), so
// concurrent scenario execution is available to callers through
// RunScenario; this loop processes them sequentially.
//
// A cancellation observed at the start of a step aborts the run with
// the state left consistent as of the last completed step;
// partial-step cancellation is not attempted since the LP solve is an
// atomic unit.
func (r *Run) Execute(ctx context.Context, steps []calendar.Step) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, sc := range r.Domain.Indices() {
			if err := r.RunScenario(ctx, step, sc); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunScenario executes the fixed per-step sequence for one scenario.
// It is safe to call concurrently for distinct scenario indices:
// state is completely independent across scenarios except for the
// shared immutable network, and each sc reads only its own entry of
// r.states.
func (r *Run) RunScenario(ctx context.Context, step calendar.Step, sc scenario.Index) error {
	start := time.Now()
	attrs := telemetry.StepAttributes(step.Index, sc.Global)

	err := telemetry.WrapStep(ctx, "runloop.step", attrs, func(ctx context.Context) error {
		return r.runScenario(ctx, step, sc)
	})

	metrics.Get().RecordStep(err == nil, time.Since(start))
	return err
}

func (r *Run) runScenario(ctx context.Context, step calendar.Step, sc scenario.Index) error {
	st := r.states[sc.Global]

	// 1. Reset edge flows and node accumulators.
	st.ResetStep()

	// 2. Parameter before hooks.
	if err := r.Params.RunBefore(step, sc, st, r.Resolver); err != nil {
		metrics.Get().RecordParameterFailure("before")
		return err
	}

	// 3. Parameter compute.
	if err := r.Params.RunCompute(step, sc, st, r.Resolver); err != nil {
		metrics.Get().RecordParameterFailure("compute")
		return err
	}

	// 4. LP build + solve; write back edge flows, node accumulators,
	// storage volumes.
	model, err := r.Builder.Build(step, r.Resolver, st)
	if err != nil {
		return err
	}
	metrics.Get().RecordLPSize(model.NumVars, len(model.Rows))

	solveStart := time.Now()
	result, err := r.Driver.Solve(ctx, model)
	metrics.Get().RecordSolve(r.Driver.Name(), err == nil, time.Since(solveStart))
	if err != nil {
		return err
	}
	if result.Status == solver.StatusOptimal {
		telemetry.SetAttributes(ctx, telemetry.SolverAttributes(r.Driver.Name(), result.Iterations, result.Objective, result.Status.String())...)
	}
	r.writeBack(step, model, result, st)

	// 5. Virtual storages.
	if r.Bookkeeper != nil {
		if err := r.Bookkeeper.Advance(step, r.Resolver, st); err != nil {
			return err
		}
	}

	// 6. Parameter after hooks.
	if err := r.Params.RunAfter(step, sc, st, r.Resolver); err != nil {
		metrics.Get().RecordParameterFailure("after")
		return err
	}

	// 7. Recorders observe the finished step.
	for _, rec := range r.Recorders {
		if err := rec.Record(ctx, step, sc, st); err != nil {
			return apperror.Wrap(err, apperror.CodeInternal, "recorder failed").WithDetails("recorder", rec.Name())
		}
	}

	return nil
}

// writeBack copies the solver's primal column values into per-edge
// flow, accumulates each touched node's in/out-flow, and advances
// every storage node's volume by its net through-flow for the step.
func (r *Run) writeBack(step calendar.Step, model *lp.Model, result *solver.Result, st *state.State) {
	dt := step.Duration.Fraction()

	for e := 0; e < len(r.Net.Edges); e++ {
		flow := result.Primal[e]
		st.EdgeFlow[e] = flow
		edge := r.Net.Edges[e]
		st.NodeOutFlow[edge.From] += flow
		st.NodeInFlow[edge.To] += flow
	}

	for idx, node := range r.Net.Nodes {
		if node.Kind != network.KindStorage {
			continue
		}
		netThroughflow := (st.NodeInFlow[idx] - st.NodeOutFlow[idx]) * dt
		st.StorageVolume[idx] += netThroughflow
	}
}
