// Package recorder defines the observer collaborator interface:
// recorders are invoked after each step with references to the
// state. Concrete implementations live outside the core; pkg/recorder
// carries the Postgres-backed reference implementation.
package recorder

import (
	"context"

	"hydroengine/internal/calendar"
	"hydroengine/internal/scenario"
	"hydroengine/internal/state"
)

// Recorder observes state once per step, after every hook in the
// run-loop sequence has completed.
type Recorder interface {
	// Name identifies the recorder for error attribution and logging.
	Name() string
	// Record is called once per (step, scenario); it must not mutate st.
	Record(ctx context.Context, step calendar.Step, sc scenario.Index, st *state.State) error
}

// Func adapts a plain function to the Recorder interface.
type Func struct {
	FuncName string
	Fn       func(ctx context.Context, step calendar.Step, sc scenario.Index, st *state.State) error
}

// Name implements Recorder.
func (f Func) Name() string { return f.FuncName }

// Record implements Recorder.
func (f Func) Record(ctx context.Context, step calendar.Step, sc scenario.Index, st *state.State) error {
	return f.Fn(ctx, step, sc, st)
}
