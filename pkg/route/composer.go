package route

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

var (
	ErrEmptyRoute   = errors.New("route has no steps")
	ErrBrokenStep   = errors.New("step does not follow an edge of the graph")
	ErrNotAdmitted  = errors.New("step uses an edge that is not traversable")
	ErrCostOverflow = errors.New("route cost exceeds the representable maximum")
)

// Coster prices an edge traversal. algorithms.CostModel implements it.
type Coster interface {
	EdgeCost(from, to *storage.Node, e *storage.Edge) storage.Cost
}

type baseCost struct{}

func (baseCost) EdgeCost(_, _ *storage.Node, e *storage.Edge) storage.Cost { return e.Cost }

// Composer builds routes from walks.
type Composer struct {
	costs Coster
	admit func(*storage.Edge) bool
}

// NewComposer creates a composer. A nil coster prices edges at their base cost.
func NewComposer(costs Coster) *Composer {
	if costs == nil {
		costs = baseCost{}
	}
	return &Composer{costs: costs}
}

// WithAdmission returns a composer that also rejects walks using an edge
// for which admit returns false.
func (c *Composer) WithAdmission(admit func(*storage.Edge) bool) *Composer {
	cp := *c
	cp.admit = admit
	return &cp
}

// Compose validates a walk against g and builds the route. Each
// (node, edge, node) triple must exist in g with the edge walkable in that
// direction.
func (c *Composer) Compose(g *storage.Graph, steps []Step) (*Route, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyRoute
	}

	first, err := g.GetNode(steps[0].NodeID)
	if err != nil {
		return nil, err
	}

	r := &Route{
		Origin:       first.ID,
		Destination:  steps[len(steps)-1].NodeID,
		Nodes:        []string{first.ID},
		Segments:     make([]Segment, 0, len(steps)-1),
		GraphVersion: g.Version(),
	}

	prev := first
	for i, step := range steps[1:] {
		node, err := g.GetNode(step.NodeID)
		if err != nil {
			return nil, err
		}
		e, err := g.GetEdge(step.EdgeID)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrBrokenStep, i+1, err)
		}
		if !e.Connects(prev.ID, node.ID) {
			return nil, fmt.Errorf("%w: step %d: edge %s does not lead from %s to %s",
				ErrBrokenStep, i+1, e.ID, prev.ID, node.ID)
		}
		if c.admit != nil && !c.admit(e) {
			return nil, fmt.Errorf("%w: step %d: edge %s", ErrNotAdmitted, i+1, e.ID)
		}

		cost := c.costs.EdgeCost(prev, node, e)
		r.TotalCost = r.TotalCost.Add(cost)
		if r.TotalCost == storage.MaxCost {
			return nil, fmt.Errorf("%w: step %d: edge %s", ErrCostOverflow, i+1, e.ID)
		}
		seg := Segment{
			Index:      i,
			From:       prev.ID,
			To:         node.ID,
			EdgeID:     e.ID,
			Kind:       e.Kind,
			Cost:       cost,
			Cumulative: r.TotalCost,
		}
		tagLayer(&seg, prev, node, e)

		r.Segments = append(r.Segments, seg)
		r.Nodes = append(r.Nodes, node.ID)
		prev = node
	}

	r.Legs = buildLegs(g, r.Segments)
	return r, nil
}

// tagLayer assigns the segment's layer: outdoor when either endpoint is
// outdoor, transition when the floor changes or the edge is stairs or an
// elevator, indoor otherwise.
func tagLayer(seg *Segment, from, to *storage.Node, e *storage.Edge) {
	switch {
	case from.IsOutdoor() || to.IsOutdoor():
		seg.Layer = LayerOutdoor
	case from.Floor != to.Floor || e.Kind.Vertical():
		seg.Layer = LayerTransition
		seg.BuildingID = to.BuildingID
		seg.FromFloor, seg.ToFloor = from.Floor, to.Floor
	default:
		seg.Layer = LayerIndoor
		seg.BuildingID = to.BuildingID
		seg.FromFloor, seg.ToFloor = to.Floor, to.Floor
	}
}

// sameLeg reports whether b continues the leg that a belongs to.
func sameLeg(a, b Segment) bool {
	if a.Layer != b.Layer || a.BuildingID != b.BuildingID {
		return false
	}
	if a.Layer == LayerIndoor {
		return a.ToFloor == b.FromFloor
	}
	return true
}

func buildLegs(g *storage.Graph, segs []Segment) []Leg {
	legs := make([]Leg, 0)
	for i, s := range segs {
		if n := len(legs); n > 0 && sameLeg(segs[i-1], s) {
			leg := &legs[n-1]
			leg.To = s.To
			leg.ToFloor = s.ToFloor
			leg.Cost += s.Cost
			leg.LastSegment = i
			continue
		}
		legs = append(legs, Leg{
			Layer:        s.Layer,
			BuildingID:   s.BuildingID,
			FromFloor:    s.FromFloor,
			ToFloor:      s.ToFloor,
			From:         s.From,
			To:           s.To,
			Cost:         s.Cost,
			FirstSegment: i,
			LastSegment:  i,
		})
	}
	for i := range legs {
		legs[i].Instruction = instruction(g, &legs[i], segs)
	}
	return legs
}

func label(g *storage.Graph, nodeID string) string {
	if n, err := g.GetNode(nodeID); err == nil && n.Name != "" {
		return n.Name
	}
	return nodeID
}

func instruction(g *storage.Graph, leg *Leg, segs []Segment) string {
	from, to := label(g, leg.From), label(g, leg.To)
	switch leg.Layer {
	case LayerOutdoor:
		return fmt.Sprintf("Walk outside from %s to %s", from, to)
	case LayerTransition:
		via := "stairs"
		for _, s := range segs[leg.FirstSegment : leg.LastSegment+1] {
			if s.Kind == storage.EdgeElevator {
				via = "elevator"
			}
		}
		return fmt.Sprintf("Take the %s from floor %d to floor %d in %s", via, leg.FromFloor, leg.ToFloor, buildingLabel(g, leg.BuildingID))
	default:
		return fmt.Sprintf("Continue on floor %d of %s from %s to %s", leg.FromFloor, buildingLabel(g, leg.BuildingID), from, to)
	}
}

func buildingLabel(g *storage.Graph, buildingID string) string {
	if b, err := g.GetBuilding(buildingID); err == nil && b.Name != "" {
		return b.Name
	}
	return buildingID
}
