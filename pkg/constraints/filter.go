package constraints

import (
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// Filter evaluates constraints against one graph snapshot. It is a pure
// function of (edge, query time, requester) and safe for concurrent use.
type Filter struct {
	graph *storage.Graph
	set   *Set
	loc   *time.Location
}

// NewFilter creates a filter. A nil set means no constraints; a nil
// location means UTC.
func NewFilter(g *storage.Graph, set *Set, loc *time.Location) *Filter {
	if set == nil {
		set = EmptySet()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Filter{graph: g, set: set, loc: loc}
}

// Graph returns the snapshot the filter evaluates against.
func (f *Filter) Graph() *storage.Graph { return f.graph }

// Set returns the constraints the filter applies.
func (f *Filter) Set() *Set { return f.set }

// Location returns the campus time zone.
func (f *Filter) Location() *time.Location { return f.loc }

// IsTraversable reports whether an edge may be used at the given time by
// the requester. An unknown edge is a not-found error.
func (f *Filter) IsTraversable(edgeID string, at time.Time, rc RequesterContext) (bool, error) {
	e, err := f.graph.GetEdge(edgeID)
	if err != nil {
		return false, err
	}
	return f.Allows(e, at, rc), nil
}

// Allows is IsTraversable for an edge already looked up.
func (f *Filter) Allows(e *storage.Edge, at time.Time, rc RequesterContext) bool {
	if rc.StepFree && f.hasSteps(e) {
		return false
	}
	if f.set.Len() == 0 {
		return true
	}
	local := at.In(f.loc)
	for _, c := range f.set.ForEdge(e.ID) {
		if c.Forbids(local, rc) {
			return false
		}
	}
	for _, id := range [2]string{e.From, e.To} {
		for _, c := range f.set.ForNode(id) {
			if c.Forbids(local, rc) {
				return false
			}
		}
	}
	return true
}

// Blocking returns the constraints that forbid an edge, plus a synthetic
// step-free entry when stairs rule it out.
func (f *Filter) Blocking(edgeID string, at time.Time, rc RequesterContext) ([]*Constraint, error) {
	e, err := f.graph.GetEdge(edgeID)
	if err != nil {
		return nil, err
	}

	out := make([]*Constraint, 0)
	if rc.StepFree && f.hasSteps(e) {
		out = append(out, &Constraint{ID: "step-free", Kind: KindClosure, EdgeID: e.ID, Reason: "stairs"})
	}
	local := at.In(f.loc)
	candidates := append([]*Constraint{}, f.set.ForEdge(e.ID)...)
	candidates = append(candidates, f.set.ForNode(e.From)...)
	candidates = append(candidates, f.set.ForNode(e.To)...)
	for _, c := range candidates {
		if c.Forbids(local, rc) {
			out = append(out, c)
		}
	}
	return out, nil
}

// FilteredNeighbors is GetNeighbors without the edges the requester may not use.
func (f *Filter) FilteredNeighbors(nodeID string, at time.Time, rc RequesterContext) ([]storage.Neighbor, error) {
	ns, err := f.graph.GetNeighbors(nodeID)
	if err != nil {
		return nil, err
	}

	out := make([]storage.Neighbor, 0, len(ns))
	for _, n := range ns {
		e, err := f.graph.GetEdge(n.EdgeID)
		if err != nil {
			return nil, err
		}
		if f.Allows(e, at, rc) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *Filter) hasSteps(e *storage.Edge) bool {
	if e.Kind == storage.EdgeStairs {
		return true
	}
	for _, id := range [2]string{e.From, e.To} {
		if n, err := f.graph.GetNode(id); err == nil && n.Type == storage.NodeStaircase {
			return true
		}
	}
	return false
}
