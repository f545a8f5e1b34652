// Package state holds the single mutable per-scenario container that
// is threaded through a timestep: edge flows, node accumulators,
// storage volumes, virtual-storage history, and parameter outputs.
package state

import "hydroengine/internal/apperror"

// State is exclusively owned by one scenario for the run's duration.
// Edge flows are reborn each step; storage volumes and parameter
// outputs persist across steps.
type State struct {
	ScenarioIndex int

	// EdgeFlow is reset to zero at the start of every step and written
	// once the LP solve returns primal column values.
	EdgeFlow []float64

	// NodeInFlow/NodeOutFlow accumulate per-node inflow/outflow over
	// the edges touching that node, rebuilt each step from EdgeFlow.
	NodeInFlow  []float64
	NodeOutFlow []float64

	// StorageVolume persists across steps. It is indexed by node arena
	// index (entries for non-storage nodes stay zero), so readers never
	// need a separate storage-ordinal mapping.
	StorageVolume []float64

	// VirtualStorageVolume and VirtualStorageWindow persist across
	// steps. VirtualStorageWindow is present only for windowed virtual
	// storages and holds the last N per-step drawdowns as a bounded
	// FIFO (oldest at index 0).
	VirtualStorageVolume []float64
	VirtualStorageWindow [][]float64

	// ParamOutputF64/ParamOutputU64 hold each parameter's last computed
	// value, indexed by parameter index, read by dependents via the
	// metric resolver's KindParameterValue case.
	ParamOutputF64 []float64
	ParamOutputU64 []uint64

	// Derived is a cache of named derived metrics, written during the
	// run by parameter After hooks (HydropowerTarget stores its power
	// output here) and read back through the metric resolver.
	Derived map[string]float64
}

// New allocates a State sized for the given node/edge/virtual-storage/
// parameter counts. Both parameter-output vectors are sized numParams
// since parameter indices are global across the f64 and u64 kinds.
// The top-level slices are never reallocated during a run; the
// per-virtual-storage windows are replaced by vstorage as they advance.
func New(scenarioIndex, numNodes, numEdges, numVirtualStorages, numParams int) *State {
	return &State{
		ScenarioIndex:        scenarioIndex,
		EdgeFlow:             make([]float64, numEdges),
		NodeInFlow:           make([]float64, numNodes),
		NodeOutFlow:          make([]float64, numNodes),
		StorageVolume:        make([]float64, numNodes),
		VirtualStorageVolume: make([]float64, numVirtualStorages),
		VirtualStorageWindow: make([][]float64, numVirtualStorages),
		ParamOutputF64:       make([]float64, numParams),
		ParamOutputU64:       make([]uint64, numParams),
		Derived:              make(map[string]float64),
	}
}

// ResetStep zeroes everything that is reborn each timestep: edge flows
// and node flow accumulators. Storage volumes, virtual storage, and
// parameter outputs persist.
func (s *State) ResetStep() {
	for i := range s.EdgeFlow {
		s.EdgeFlow[i] = 0
	}
	for i := range s.NodeInFlow {
		s.NodeInFlow[i] = 0
		s.NodeOutFlow[i] = 0
	}
}

// ParamF64 returns parameter idx's last computed f64 output.
func (s *State) ParamF64(idx int) (float64, error) {
	if idx < 0 || idx >= len(s.ParamOutputF64) {
		return 0, apperror.New(apperror.CodeParameterNotFound, "parameter index out of range").WithDetails("index", idx)
	}
	return s.ParamOutputF64[idx], nil
}

// ParamU64 returns parameter idx's last computed u64 output.
func (s *State) ParamU64(idx int) (uint64, error) {
	if idx < 0 || idx >= len(s.ParamOutputU64) {
		return 0, apperror.New(apperror.CodeParameterNotFound, "parameter index out of range").WithDetails("index", idx)
	}
	return s.ParamOutputU64[idx], nil
}
