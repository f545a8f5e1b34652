package param

// Variable is implemented by parameters an outer optimisation
// collaborator can drive. The engine itself never optimises; it only
// exposes this surface for such a collaborator to call.
type Variable interface {
	// Size reports how many f64 and u64 variable slots this parameter
	// exposes, which may depend on config (e.g. per-scenario sizing).
	Size(config any) (f64Count, u64Count int)
	// SetVariables installs new variable values, running them through
	// any configured Activation before they replace internal state.
	SetVariables(f64s []float64, u64s []uint64, config any, internal Internal) error
	// GetVariables reads back the currently installed variable values,
	// or (nil, nil) if none have been set yet.
	GetVariables(internal Internal) (f64s []float64, u64s []uint64)
	LowerBounds() []float64
	UpperBounds() []float64
}
