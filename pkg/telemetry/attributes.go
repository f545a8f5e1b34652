package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Standard attribute keys attached to run-loop and solver spans.
const (
	// Network.
	AttrNetworkNodes = "network.nodes"
	AttrNetworkEdges = "network.edges"

	// Solver.
	AttrSolverDriver     = "solver.driver"
	AttrSolverIterations = "solver.iterations"
	AttrSolverObjective  = "solver.objective"
	AttrSolverStatus     = "solver.status"

	// Run loop.
	AttrStepIndex      = "runloop.step_index"
	AttrScenarioGlobal = "runloop.scenario_global_index"

	// Parameter graph.
	AttrParameterCount = "parameter.count"
)

// NetworkAttributes describes the compiled network a run is replaying.
func NetworkAttributes(nodes, edges int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrNetworkNodes, nodes),
		attribute.Int(AttrNetworkEdges, edges),
	}
}

// SolverAttributes describes one LP/IPM solve outcome.
func SolverAttributes(driver string, iterations int, objective float64, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSolverDriver, driver),
		attribute.Int(AttrSolverIterations, iterations),
		attribute.Float64(AttrSolverObjective, objective),
		attribute.String(AttrSolverStatus, status),
	}
}

// StepAttributes identifies the (step, scenario) pair a span covers.
func StepAttributes(stepIndex, scenarioGlobal int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrStepIndex, stepIndex),
		attribute.Int(AttrScenarioGlobal, scenarioGlobal),
	}
}
