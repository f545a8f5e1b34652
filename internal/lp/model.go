// Package lp builds the per-step, per-scenario linear program that the
// solver drivers consume: one column per edge, mass-balance and
// storage rows per node, min/max flow bounds, and the relationship
// rows aggregated and virtual-storage nodes impose.
package lp

import (
	"hydroengine/internal/apperror"
	"hydroengine/internal/calendar"
	"hydroengine/internal/network"
	"hydroengine/internal/numeric"
	"hydroengine/internal/state"
)

// Sense is the comparison a Row's coefficients are checked against.
type Sense int

const (
	SenseEqual Sense = iota
	SenseLessEqual
	SenseGreaterEqual
)

// Row is one constraint: sum(Coeffs[i] * x[i]) <sense> RHS.
type Row struct {
	Coeffs map[int]float64
	Sense  Sense
	RHS    float64
}

// BigM bounds the coupling constraint for exclusive aggregated-node
// relationships; it must exceed any flow the network can carry, while
// staying small enough that a relaxed indicator flow/BigM is still
// distinguishable from zero by the branch-and-bound integrality
// tolerance.
const BigM = 1e6

// Model is the sparse LP a solver driver consumes. Columns 0..NumFlowVars-1
// are edge flows; columns NumFlowVars..NumVars-1 are the binary
// "active" indicators exclusive relationships introduce.
type Model struct {
	NumFlowVars int
	NumVars     int
	LowerBounds []float64
	UpperBounds []float64
	Cost        []float64
	Rows        []Row
	// BinaryVars marks which columns (at or beyond NumFlowVars) are
	// integer-constrained 0/1 indicators rather than continuous flows.
	BinaryVars []int
}

// Builder assembles a Model for a Network. Each Build call allocates a
// fresh Model with all rows and columns rebuilt; no row or column
// layout is cached between steps.
type Builder struct {
	net *network.Network
}

// NewBuilder builds an LP Builder over net.
func NewBuilder(net *network.Network) *Builder {
	return &Builder{net: net}
}

// Build assembles the LP for the given step and scenario state. res
// resolves metric reads (costs, bounds, relationship factors) against
// st; dt is the step's duration expressed as a fraction of a day.
func (b *Builder) Build(step calendar.Step, res *network.Resolver, st *state.State) (*Model, error) {
	dt := step.Duration.Fraction()
	net := b.net

	numEdges := len(net.Edges)
	m := &Model{
		NumFlowVars: numEdges,
		NumVars:     numEdges,
		LowerBounds: make([]float64, numEdges),
		UpperBounds: make([]float64, numEdges),
		Cost:        make([]float64, numEdges),
	}

	for e := range net.Edges {
		m.UpperBounds[e] = numeric.Infinity
	}

	if err := b.addNodeRows(m, res, st, dt); err != nil {
		return nil, err
	}
	if err := b.addAggregatedRows(m, res, st); err != nil {
		return nil, err
	}
	if err := b.addVirtualStorageRows(m, res, st, dt); err != nil {
		return nil, err
	}

	return m, nil
}

// addNodeRows adds the volume rows for storage nodes, a mass-balance
// row for link nodes and min/max throughflow bound rows for every
// non-storage node, and charges each node's cost to one side of its
// edges (an edge "routes through" every node it touches, so its total
// cost is the sum of the costs of the nodes along it).
func (b *Builder) addNodeRows(m *Model, res *network.Resolver, st *state.State, dt float64) error {
	net := b.net

	for idx := range net.Nodes {
		nodeIdx := network.NodeIndex(idx)
		node := net.Nodes[idx]

		cost, err := res.ResolveF64(node.Cost, st)
		if err != nil {
			return err
		}
		outgoing := net.OutgoingEdges(nodeIdx)
		incoming := net.IncomingEdges(nodeIdx)

		// A node's cost is routed onto whichever side represents "one
		// unit of flow through this node": the outgoing side for a
		// source (an input node has no incoming edge to charge), the
		// incoming side for everything else (link/storage pass-through
		// and output sinks alike, which have no outgoing edge). Using
		// a single side per node - rather than both - avoids charging
		// a pass-through node's cost twice over via its paired
		// incoming and outgoing edges.
		costEdges := incoming
		if node.Kind == network.KindInput {
			costEdges = outgoing
		}
		for _, e := range costEdges {
			m.Cost[e] += cost
		}

		minFlow, err := res.ResolveF64(node.MinFlow, st)
		if err != nil {
			return err
		}
		maxFlow, err := res.ResolveF64(node.MaxFlow, st)
		if err != nil {
			return err
		}

		if node.Kind == network.KindStorage {
			// volume(t+1) = volume(t) + inflow*dt - outflow*dt, expressed
			// as bounds on the net flow through the storage node.
			row := Row{Coeffs: make(map[int]float64)}
			for _, e := range incoming {
				row.Coeffs[int(e)] += dt
			}
			for _, e := range outgoing {
				row.Coeffs[int(e)] -= dt
			}
			row.Sense = SenseGreaterEqual
			minVol, err := res.ResolveF64(node.MinVolume, st)
			if err != nil {
				return err
			}
			maxVol, err := res.ResolveF64(node.MaxVolume, st)
			if err != nil {
				return err
			}
			current := st.StorageVolume[idx]
			row.RHS = minVol - current
			m.Rows = append(m.Rows, row)

			upperRow := Row{Coeffs: cloneCoeffs(row.Coeffs), Sense: SenseLessEqual, RHS: maxVol - current}
			m.Rows = append(m.Rows, upperRow)
			continue
		}

		// Non-storage pass-through: inflow == outflow. Input and output
		// nodes are flow boundaries (the source supplies, the sink
		// absorbs), so only link-kind nodes balance.
		if node.Kind == network.KindLink {
			balance := Row{Coeffs: make(map[int]float64), Sense: SenseEqual, RHS: 0}
			for _, e := range incoming {
				balance.Coeffs[int(e)] += 1
			}
			for _, e := range outgoing {
				balance.Coeffs[int(e)] -= 1
			}
			if len(balance.Coeffs) > 0 {
				m.Rows = append(m.Rows, balance)
			}
		}

		// Bound the node's total throughflow (outflow for input-kind
		// nodes, inflow otherwise, matching the resolver's convention).
		var throughEdges []network.EdgeIndex
		if node.Kind == network.KindInput {
			throughEdges = outgoing
		} else {
			throughEdges = incoming
		}
		if len(throughEdges) == 0 {
			continue
		}
		boundRow := Row{Coeffs: make(map[int]float64)}
		for _, e := range throughEdges {
			boundRow.Coeffs[int(e)] = 1
		}
		if maxFlow < minFlow {
			maxFlow = minFlow
		}
		if numeric.IsPositive(minFlow) {
			m.Rows = append(m.Rows, Row{Coeffs: cloneCoeffs(boundRow.Coeffs), Sense: SenseGreaterEqual, RHS: minFlow})
		}
		if maxFlow < numeric.Infinity {
			m.Rows = append(m.Rows, Row{Coeffs: cloneCoeffs(boundRow.Coeffs), Sense: SenseLessEqual, RHS: maxFlow})
		}
	}

	return nil
}

// addAggregatedRows adds min/max flow bounds and relationship rows
// for every aggregated node.
func (b *Builder) addAggregatedRows(m *Model, res *network.Resolver, st *state.State) error {
	net := b.net

	for _, agg := range net.Aggregated {
		flowCoeffs := make(map[int]float64)
		for _, member := range agg.Members {
			for _, e := range b.memberEdges(member) {
				flowCoeffs[int(e)] += 1
			}
		}

		minFlow, err := res.ResolveF64(agg.MinFlow, st)
		if err != nil {
			return err
		}
		maxFlow, err := res.ResolveF64(agg.MaxFlow, st)
		if err != nil {
			return err
		}
		if len(flowCoeffs) > 0 {
			if numeric.IsPositive(minFlow) {
				m.Rows = append(m.Rows, Row{Coeffs: cloneCoeffs(flowCoeffs), Sense: SenseGreaterEqual, RHS: minFlow})
			}
			if maxFlow < numeric.Infinity {
				m.Rows = append(m.Rows, Row{Coeffs: cloneCoeffs(flowCoeffs), Sense: SenseLessEqual, RHS: maxFlow})
			}
		}

		if err := b.addRelationshipRows(m, res, st, agg); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) memberEdges(member network.NodeComponent) []network.EdgeIndex {
	if member.Component == network.ComponentInflow {
		return b.net.IncomingEdges(member.Node)
	}
	return b.net.OutgoingEdges(member.Node)
}

// memberCoeffs accumulates coeff onto every edge column carrying the
// member's flow, so relationship rows work for members whose flow is
// split across several parallel edges.
func (b *Builder) memberCoeffs(dst map[int]float64, member network.NodeComponent, coeff float64) {
	for _, e := range b.memberEdges(member) {
		dst[int(e)] += coeff
	}
}

// addRelationshipRows adds the equality/coupling rows a Relationship
// imposes across an aggregated node's members.
func (b *Builder) addRelationshipRows(m *Model, res *network.Resolver, st *state.State, agg network.AggregatedNode) error {
	rel := agg.Relation
	switch rel.Kind {
	case network.RelationshipNone:
		return nil

	case network.RelationshipProportion:
		// Each non-first member carries a fixed proportion of the
		// group's total flow; the first member takes the residual.
		// Encoded as p_i * sum_j(f_j) - f_i = 0 per non-first member,
		// which avoids dividing by a possibly tiny residual.
		if len(agg.Members) < 2 {
			return nil
		}
		if len(rel.ProportionFactors) != len(agg.Members)-1 {
			return apperror.New(apperror.CodeInvalidConstraintValue, "proportion relationship needs one factor per non-first member").
				WithDetails("aggregated_node", agg.Name)
		}
		total := make(map[int]float64)
		for _, member := range agg.Members {
			b.memberCoeffs(total, member, 1)
		}
		for i := 1; i < len(agg.Members); i++ {
			factor, err := res.ResolveF64(rel.ProportionFactors[i-1], st)
			if err != nil {
				return err
			}
			coeffs := make(map[int]float64, len(total)+2)
			for col, c := range total {
				coeffs[col] += factor * c
			}
			b.memberCoeffs(coeffs, agg.Members[i], -1)
			m.Rows = append(m.Rows, Row{Coeffs: coeffs, Sense: SenseEqual, RHS: 0})
		}

	case network.RelationshipRatio:
		// factor_i * f_0 - factor_0 * f_i = 0, proven from the ratio
		// itself rather than dividing, so a near-zero factor doesn't
		// blow up the coefficient.
		if len(agg.Members) == 0 || len(rel.RatioFactors) != len(agg.Members) {
			return apperror.New(apperror.CodeInvalidConstraintValue, "ratio relationship needs one factor per member").
				WithDetails("aggregated_node", agg.Name)
		}
		baseFactor, err := res.ResolveF64(rel.RatioFactors[0], st)
		if err != nil {
			return err
		}
		for i := 1; i < len(agg.Members); i++ {
			factor, err := res.ResolveF64(rel.RatioFactors[i], st)
			if err != nil {
				return err
			}
			coeffs := make(map[int]float64)
			b.memberCoeffs(coeffs, agg.Members[0], factor)
			b.memberCoeffs(coeffs, agg.Members[i], -baseFactor)
			m.Rows = append(m.Rows, Row{Coeffs: coeffs, Sense: SenseEqual, RHS: 0})
		}

	case network.RelationshipCoefficient:
		row := Row{Coeffs: make(map[int]float64), Sense: SenseEqual}
		for i, member := range agg.Members {
			if i >= len(rel.CoefficientFactors) {
				continue
			}
			c, err := res.ResolveF64(rel.CoefficientFactors[i], st)
			if err != nil {
				return err
			}
			b.memberCoeffs(row.Coeffs, member, c)
		}
		rhs, err := res.ResolveF64(rel.CoefficientRHS, st)
		if err != nil {
			return err
		}
		row.RHS = rhs
		m.Rows = append(m.Rows, row)

	case network.RelationshipExclusive:
		// b_i*BigM >= f_i for each member, Σb_i in [MinActive, MaxActive].
		activeRow := Row{Coeffs: make(map[int]float64)}
		for _, member := range agg.Members {
			binCol := m.NumVars
			m.NumVars++
			m.LowerBounds = append(m.LowerBounds, 0)
			m.UpperBounds = append(m.UpperBounds, 1)
			m.Cost = append(m.Cost, 0)
			m.BinaryVars = append(m.BinaryVars, binCol)

			coupling := Row{Coeffs: map[int]float64{binCol: BigM}, Sense: SenseGreaterEqual, RHS: 0}
			b.memberCoeffs(coupling.Coeffs, member, -1)
			m.Rows = append(m.Rows, coupling)
			activeRow.Coeffs[binCol] = 1
		}
		if len(activeRow.Coeffs) > 0 {
			m.Rows = append(m.Rows, Row{Coeffs: cloneCoeffs(activeRow.Coeffs), Sense: SenseGreaterEqual, RHS: float64(rel.MinActive)})
			m.Rows = append(m.Rows, Row{Coeffs: cloneCoeffs(activeRow.Coeffs), Sense: SenseLessEqual, RHS: float64(rel.MaxActive)})
		}
	}

	return nil
}

// addVirtualStorageRows adds the single dynamic upper-bound row each
// virtual storage imposes: the drawdown this step cannot exceed the
// volume currently banked, expressed per unit time.
func (b *Builder) addVirtualStorageRows(m *Model, res *network.Resolver, st *state.State, dt float64) error {
	net := b.net

	for idx, vs := range net.VirtualStorage {
		row := Row{Coeffs: make(map[int]float64), Sense: SenseLessEqual}
		for _, member := range vs.Members {
			factor, err := res.ResolveF64(member.Factor, st)
			if err != nil {
				return err
			}
			edges := net.OutgoingEdges(member.Node)
			for _, e := range edges {
				row.Coeffs[int(e)] += factor
			}
		}
		if len(row.Coeffs) == 0 {
			continue
		}
		if dt <= 0 {
			return apperror.New(apperror.CodeDivisionByZero, "virtual storage row needs a positive timestep duration")
		}
		row.RHS = st.VirtualStorageVolume[idx] / dt
		m.Rows = append(m.Rows, row)
	}
	return nil
}

func cloneCoeffs(in map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
