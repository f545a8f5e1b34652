package network

import (
	"hydroengine/internal/apperror"
	"hydroengine/internal/state"
)

// StorageGroup ties an ordered set of storage nodes (bottom store
// first) to one shared initial-volume configuration. The group's
// volume is distributed across the members from the bottom up at
// seeding time; piecewise storage expansion registers one group per
// composite.
type StorageGroup struct {
	Name    string
	Members []NodeIndex
	Initial InitialVolume
}

// Network is the immutable-after-construction arena of nodes, edges,
// and aggregated/virtual storage. It is freely shared read-only across
// scenarios; per-scenario mutable state lives in state.State.
type Network struct {
	Nodes             []Node
	Edges             []Edge
	Aggregated        []AggregatedNode
	AggregatedStorage []AggregatedStorageNode
	VirtualStorage    []VirtualStorageNode
	StorageGroups     []StorageGroup

	// slots maps a composite's external name to its exposed internal
	// node indices per out-slot name: the connection contract of an
	// expanded composite node.
	slots map[string]map[string]NodeIndex
	// entries maps a composite's external name to the internal node(s)
	// that accept incoming connections.
	entries map[string][]NodeIndex

	outgoing map[NodeIndex][]EdgeIndex
	incoming map[NodeIndex][]EdgeIndex
}

// NewNetwork returns an empty, mutable-during-assembly Network. Populate
// it with AddNode, AddEdge and the composite constructors.
func NewNetwork() *Network {
	return &Network{
		slots:    make(map[string]map[string]NodeIndex),
		entries:  make(map[string][]NodeIndex),
		outgoing: make(map[NodeIndex][]EdgeIndex),
		incoming: make(map[NodeIndex][]EdgeIndex),
	}
}

// AddNode inserts a node and returns its stable NodeIndex.
func (n *Network) AddNode(node Node) NodeIndex {
	n.Nodes = append(n.Nodes, node)
	return NodeIndex(len(n.Nodes) - 1)
}

// AddEdge inserts a directed edge and returns its stable EdgeIndex.
func (n *Network) AddEdge(from, to NodeIndex) (EdgeIndex, error) {
	if int(from) < 0 || int(from) >= len(n.Nodes) {
		return 0, apperror.New(apperror.CodeEdgeEndpointMissing, "edge source node not found").WithDetails("node", from)
	}
	if int(to) < 0 || int(to) >= len(n.Nodes) {
		return 0, apperror.New(apperror.CodeEdgeEndpointMissing, "edge target node not found").WithDetails("node", to)
	}
	idx := EdgeIndex(len(n.Edges))
	n.Edges = append(n.Edges, Edge{From: from, To: to})
	n.outgoing[from] = append(n.outgoing[from], idx)
	n.incoming[to] = append(n.incoming[to], idx)
	return idx, nil
}

// AddAggregatedNode inserts an aggregated node and returns its index.
func (n *Network) AddAggregatedNode(agg AggregatedNode) AggregatedIndex {
	n.Aggregated = append(n.Aggregated, agg)
	return AggregatedIndex(len(n.Aggregated) - 1)
}

// AddAggregatedStorageNode inserts an aggregated storage node.
func (n *Network) AddAggregatedStorageNode(agg AggregatedStorageNode) AggregatedStorageIndex {
	n.AggregatedStorage = append(n.AggregatedStorage, agg)
	return AggregatedStorageIndex(len(n.AggregatedStorage) - 1)
}

// AddVirtualStorageNode inserts a virtual storage node.
func (n *Network) AddVirtualStorageNode(vs VirtualStorageNode) VirtualStorageIndex {
	n.VirtualStorage = append(n.VirtualStorage, vs)
	return VirtualStorageIndex(len(n.VirtualStorage) - 1)
}

// OutgoingEdges returns the edges leaving node.
func (n *Network) OutgoingEdges(node NodeIndex) []EdgeIndex { return n.outgoing[node] }

// IncomingEdges returns the edges entering node.
func (n *Network) IncomingEdges(node NodeIndex) []EdgeIndex { return n.incoming[node] }

// RegisterSlots records a composite's entry node(s) and named exit
// slots. Every expansion constructor (river-gauge, water-treatment
// works, ...) must call this so downstream connections can validate
// the slot contract instead of reaching into internal nodes directly.
func (n *Network) RegisterSlots(name string, entries []NodeIndex, slots map[string]NodeIndex) {
	n.entries[name] = entries
	cp := make(map[string]NodeIndex, len(slots))
	for k, v := range slots {
		cp[k] = v
	}
	n.slots[name] = cp
}

// Slot resolves a composite's named out-slot to its internal node.
// Supplying an unsupported slot name, or omitting a required one at
// connection time, is an error by construction: callers that look up
// an unregistered slot get CodeInvalidSlot rather than a zero value.
func (n *Network) Slot(composite, slot string) (NodeIndex, error) {
	slots, ok := n.slots[composite]
	if !ok {
		return 0, apperror.New(apperror.CodeInvalidSlot, "unknown composite node").WithField(composite)
	}
	idx, ok := slots[slot]
	if !ok {
		return 0, apperror.New(apperror.CodeInvalidSlot, "composite has no such out-slot").
			WithField(composite).WithDetails("slot", slot)
	}
	return idx, nil
}

// Entry resolves the node(s) that accept an incoming connection for a
// composite.
func (n *Network) Entry(composite string) ([]NodeIndex, error) {
	entries, ok := n.entries[composite]
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidSlot, "unknown composite node").WithField(composite)
	}
	return entries, nil
}

// StorageNodes returns the indices of every storage-kind node, in
// arena order, matching the indexing used by State.StorageVolume.
func (n *Network) StorageNodes() []NodeIndex {
	var out []NodeIndex
	for i, nd := range n.Nodes {
		if nd.Kind == KindStorage {
			out = append(out, NodeIndex(i))
		}
	}
	return out
}

// AddStorageGroup registers a distributed-initial-volume group over
// members (ordered bottom store first).
func (n *Network) AddStorageGroup(g StorageGroup) {
	n.StorageGroups = append(n.StorageGroups, g)
}

// ResolveInitialVolume computes a single storage's first-step volume
// from its InitialVolume policy and resolved max_volume. Distributed
// kinds are only meaningful across a StorageGroup and are rejected
// here; SeedInitialVolumes handles them.
func ResolveInitialVolume(iv InitialVolume, maxVolume float64) (float64, error) {
	switch iv.Kind {
	case InitialAbsolute:
		return iv.Value, nil
	case InitialProportional:
		return iv.Value * maxVolume, nil
	default:
		return 0, apperror.New(apperror.CodeInvalidConstraintValue,
			"distributed initial volume requires a storage group")
	}
}

// SeedInitialVolumes writes every storage node's first-step volume
// into st: ungrouped storages resolve their own policy directly, and
// each StorageGroup's shared volume is distributed across its members
// from the bottom up (each store fills to its max before the next one
// above receives anything).
func (n *Network) SeedInitialVolumes(res *Resolver, st *state.State) error {
	grouped := make(map[NodeIndex]bool)
	for _, g := range n.StorageGroups {
		for _, m := range g.Members {
			grouped[m] = true
		}
	}

	for idx, node := range n.Nodes {
		if node.Kind != KindStorage || grouped[NodeIndex(idx)] {
			continue
		}
		maxVol, err := res.ResolveF64(node.MaxVolume, st)
		if err != nil {
			return err
		}
		vol, err := ResolveInitialVolume(node.InitialVolume, maxVol)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeInvalidConstraintValue, "storage initial volume").WithField(node.Name)
		}
		st.StorageVolume[idx] = vol
	}

	for _, g := range n.StorageGroups {
		if err := n.seedGroup(g, res, st); err != nil {
			return err
		}
	}
	return nil
}

func (n *Network) seedGroup(g StorageGroup, res *Resolver, st *state.State) error {
	maxVols := make([]float64, len(g.Members))
	var totalMax float64
	for i, m := range g.Members {
		if int(m) < 0 || int(m) >= len(n.Nodes) || n.Nodes[m].Kind != KindStorage {
			return apperror.New(apperror.CodeNodeNotFound, "storage group member is not a storage node").WithField(g.Name)
		}
		v, err := res.ResolveF64(n.Nodes[m].MaxVolume, st)
		if err != nil {
			return err
		}
		maxVols[i] = v
		totalMax += v
	}

	var total float64
	switch g.Initial.Kind {
	case InitialDistributedProportional, InitialProportional:
		total = g.Initial.Value * totalMax
	default:
		total = g.Initial.Value
	}

	remaining := total
	for i, m := range g.Members {
		vol := remaining
		if vol > maxVols[i] {
			vol = maxVols[i]
		}
		if vol < 0 {
			vol = 0
		}
		st.StorageVolume[m] = vol
		remaining -= vol
	}
	return nil
}
