// Package scenario models the Cartesian product of named scenario
// groups that the engine replays side by side at each timestep.
package scenario

import "hydroengine/internal/apperror"

// Group is a named axis of the scenario domain, e.g. "climate" with
// size 5 or "demand-growth" with size 3.
type Group struct {
	Name string
	Size int
}

// Index identifies one point in the Cartesian product: a global,
// flattened index plus the per-group index it decomposes into.
type Index struct {
	Global     int
	PerGroup   []int
	GroupNames []string
}

// GroupIndex returns the per-group index for the named group, or -1 if
// the group does not exist.
func (i Index) GroupIndex(name string) int {
	for n, gn := range i.GroupNames {
		if gn == name {
			return i.PerGroup[n]
		}
	}
	return -1
}

// Domain enumerates every Index in the Cartesian product of its
// groups. Group iteration order is fixed at construction time, which
// keeps Global indices stable across runs with the same group list.
type Domain struct {
	groups  []Group
	indices []Index
}

// NewDomain builds a Domain over the given groups, in the order given.
func NewDomain(groups []Group) (*Domain, error) {
	if len(groups) == 0 {
		return nil, apperror.New(apperror.CodeInvalidConstraintValue, "scenario domain requires at least one group")
	}
	total := 1
	for _, g := range groups {
		if g.Size <= 0 {
			return nil, apperror.New(apperror.CodeInvalidConstraintValue, "scenario group size must be positive").WithField(g.Name)
		}
		total *= g.Size
	}

	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}

	indices := make([]Index, total)
	perGroup := make([]int, len(groups))
	for g := 0; g < total; g++ {
		cur := make([]int, len(groups))
		copy(cur, perGroup)
		indices[g] = Index{Global: g, PerGroup: cur, GroupNames: names}

		// Odometer increment: last group varies fastest.
		for axis := len(groups) - 1; axis >= 0; axis-- {
			perGroup[axis]++
			if perGroup[axis] < groups[axis].Size {
				break
			}
			perGroup[axis] = 0
		}
	}

	return &Domain{groups: groups, indices: indices}, nil
}

// Groups returns the domain's group list.
func (d *Domain) Groups() []Group { return d.groups }

// Size returns the total number of scenario combinations.
func (d *Domain) Size() int { return len(d.indices) }

// Indices returns every Index in the domain, ordered by Global index.
func (d *Domain) Indices() []Index { return d.indices }

// At returns the Index for a given global index.
func (d *Domain) At(global int) (Index, error) {
	if global < 0 || global >= len(d.indices) {
		return Index{}, apperror.New(apperror.CodeOutOfRange, "scenario index out of range").
			WithDetails("index", global).WithDetails("length", len(d.indices))
	}
	return d.indices[global], nil
}
