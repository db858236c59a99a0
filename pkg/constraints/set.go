package constraints

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// Set is an immutable collection of constraints indexed by target.
type Set struct {
	byID    map[string]*Constraint
	byEdge  map[string][]*Constraint
	byNode  map[string][]*Constraint
	version uint64
}

// EmptySet returns a set with no constraints
func EmptySet() *Set {
	return &Set{
		byID:   make(map[string]*Constraint),
		byEdge: make(map[string][]*Constraint),
		byNode: make(map[string][]*Constraint),
	}
}

// NewSet validates and indexes constraints
func NewSet(cs []*Constraint) (*Set, error) {
	s := EmptySet()
	for _, c := range cs {
		if c == nil {
			return nil, fmt.Errorf("%w: nil constraint", ErrInvalidConstraint)
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, ok := s.byID[c.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateConstraint, c.ID)
		}
		s.byID[c.ID] = c.clone()
	}
	s.reindex()
	return s, nil
}

// Version is the publish counter of the set.
func (s *Set) Version() uint64 { return s.version }

// Len returns the number of constraints
func (s *Set) Len() int { return len(s.byID) }

// Get returns a constraint by ID
func (s *Set) Get(id string) (*Constraint, error) {
	c, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrConstraintNotFound, id)
	}
	return c, nil
}

// All returns every constraint sorted by ID.
func (s *Set) All() []*Constraint {
	keys := slices.Sorted(maps.Keys(s.byID))
	out := make([]*Constraint, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.byID[k])
	}
	return out
}

// ForEdge returns the constraints keyed directly on an edge.
func (s *Set) ForEdge(edgeID string) []*Constraint { return s.byEdge[edgeID] }

// ForNode returns the constraints keyed on a node.
func (s *Set) ForNode(nodeID string) []*Constraint { return s.byNode[nodeID] }

// With returns a new set containing cs in addition to, or in place of, the
// constraints with the same IDs.
func (s *Set) With(cs ...*Constraint) (*Set, error) {
	next := s.clone()
	seen := make(map[string]bool)
	for _, c := range cs {
		if c == nil {
			return nil, fmt.Errorf("%w: nil constraint", ErrInvalidConstraint)
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateConstraint, c.ID)
		}
		seen[c.ID] = true
		next.byID[c.ID] = c.clone()
	}
	next.reindex()
	return next, nil
}

// Without returns a new set without the given constraints.
func (s *Set) Without(ids ...string) (*Set, error) {
	next := s.clone()
	for _, id := range ids {
		if _, ok := next.byID[id]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrConstraintNotFound, id)
		}
		delete(next.byID, id)
	}
	next.reindex()
	return next, nil
}

// CheckTargets verifies that every constraint refers to an edge or node in g.
func (s *Set) CheckTargets(g *storage.Graph) error {
	for _, c := range s.All() {
		if err := checkTarget(g, c); err != nil {
			return err
		}
	}
	return nil
}

// Prune returns a set without constraints whose target is missing from g,
// and the IDs that were dropped.
func (s *Set) Prune(g *storage.Graph) (*Set, []string) {
	var dropped []string
	for _, c := range s.All() {
		if checkTarget(g, c) != nil {
			dropped = append(dropped, c.ID)
		}
	}
	if len(dropped) == 0 {
		return s, nil
	}
	next, _ := s.Without(dropped...)
	return next, dropped
}

func checkTarget(g *storage.Graph, c *Constraint) error {
	var err error
	if c.EdgeID != "" {
		_, err = g.GetEdge(c.EdgeID)
	} else {
		_, err = g.GetNode(c.NodeID)
	}
	if err != nil {
		return fmt.Errorf("%w: constraint %q targets %s: %w", ErrUnknownTarget, c.ID, c.Target(), err)
	}
	return nil
}

func (s *Set) clone() *Set {
	return &Set{
		byID:    maps.Clone(s.byID),
		version: s.version,
	}
}

func (s *Set) reindex() {
	s.byEdge = make(map[string][]*Constraint)
	s.byNode = make(map[string][]*Constraint)
	for _, c := range s.All() {
		if c.EdgeID != "" {
			s.byEdge[c.EdgeID] = append(s.byEdge[c.EdgeID], c)
		} else {
			s.byNode[c.NodeID] = append(s.byNode[c.NodeID], c)
		}
	}
}
