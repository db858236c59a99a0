package storage

import (
	"fmt"
	"strings"
)

// Batch is a set of graph changes applied all-or-nothing.
type Batch struct {
	// Replace discards the current graph before applying the batch.
	Replace bool

	Buildings []*Building
	Nodes     []*Node
	Edges     []*Edge

	DeleteBuildings []string
	DeleteNodes     []string // also removes incident edges
	DeleteEdges     []string
}

// NewBatch creates an empty merge batch
func NewBatch() *Batch {
	return &Batch{}
}

// AddBuilding queues a building upsert
func (b *Batch) AddBuilding(building *Building) *Batch {
	b.Buildings = append(b.Buildings, building)
	return b
}

// AddNode queues a node upsert
func (b *Batch) AddNode(node *Node) *Batch {
	b.Nodes = append(b.Nodes, node)
	return b
}

// AddEdge queues an edge upsert
func (b *Batch) AddEdge(edge *Edge) *Batch {
	b.Edges = append(b.Edges, edge)
	return b
}

// RemoveNode queues a node deletion
func (b *Batch) RemoveNode(nodeID string) *Batch {
	b.DeleteNodes = append(b.DeleteNodes, nodeID)
	return b
}

// RemoveEdge queues an edge deletion
func (b *Batch) RemoveEdge(edgeID string) *Batch {
	b.DeleteEdges = append(b.DeleteEdges, edgeID)
	return b
}

// RemoveBuilding queues a building deletion
func (b *Batch) RemoveBuilding(buildingID string) *Batch {
	b.DeleteBuildings = append(b.DeleteBuildings, buildingID)
	return b
}

// Size returns the number of operations in the batch
func (b *Batch) Size() int {
	return len(b.Buildings) + len(b.Nodes) + len(b.Edges) +
		len(b.DeleteBuildings) + len(b.DeleteNodes) + len(b.DeleteEdges)
}

// ApplyOptions controls batch validation
type ApplyOptions struct {
	// StrictTopology rejects batches that leave Error-severity topology violations.
	StrictTopology bool
}

// apply returns a new graph with the batch applied. g is never modified.
func (g *Graph) apply(b *Batch, opts ApplyOptions) (*Graph, error) {
	if b == nil || (b.Size() == 0 && !b.Replace) {
		return nil, NewError("apply").Batch().Cause(ErrEmptyBatch).Err()
	}

	next := g.clone()
	if b.Replace {
		next = emptyGraph()
		next.version = g.version
	}

	for _, id := range b.DeleteEdges {
		if _, ok := next.edges[id]; !ok {
			return nil, NewError("apply").Edge(id).Context("delete").Cause(ErrEdgeNotFound).Err()
		}
		delete(next.edges, id)
	}
	for _, id := range b.DeleteNodes {
		if _, ok := next.nodes[id]; !ok {
			return nil, NewError("apply").Node(id).Context("delete").Cause(ErrNodeNotFound).Err()
		}
		delete(next.nodes, id)
		for eid, e := range next.edges {
			if e.Touches(id) {
				delete(next.edges, eid)
			}
		}
	}
	for _, id := range b.DeleteBuildings {
		if _, ok := next.buildings[id]; !ok {
			return nil, NewError("apply").Building(id).Context("delete").Cause(ErrBuildingNotFound).Err()
		}
		delete(next.buildings, id)
	}

	seen := make(map[string]bool)
	for _, bl := range b.Buildings {
		if bl == nil || strings.TrimSpace(bl.ID) == "" {
			return nil, NewError("apply").Building("").Cause(ErrInvalidID).Err()
		}
		if seen["b:"+bl.ID] {
			return nil, NewError("apply").Building(bl.ID).Cause(ErrDuplicateID).Err()
		}
		seen["b:"+bl.ID] = true
		if len(bl.Floors) == 0 {
			return nil, NewError("apply").Building(bl.ID).Field("floors").Cause(ErrInvalidValue).Err()
		}
		c := bl.clone()
		c.Name = SanitizeName(c.Name)
		next.buildings[bl.ID] = c
	}
	for _, n := range b.Nodes {
		if n == nil || strings.TrimSpace(n.ID) == "" {
			return nil, NewError("apply").Node("").Cause(ErrInvalidID).Err()
		}
		if seen["n:"+n.ID] {
			return nil, NewError("apply").Node(n.ID).Cause(ErrDuplicateID).Err()
		}
		seen["n:"+n.ID] = true
		c := n.clone()
		c.Name = SanitizeName(c.Name)
		c.Tags = SanitizeTags(c.Tags)
		next.nodes[n.ID] = c
	}
	for _, e := range b.Edges {
		if e == nil || strings.TrimSpace(e.ID) == "" {
			return nil, NewError("apply").Edge("").Cause(ErrInvalidID).Err()
		}
		if seen["e:"+e.ID] {
			return nil, NewError("apply").Edge(e.ID).Cause(ErrDuplicateID).Err()
		}
		seen["e:"+e.ID] = true
		c := *e
		if c.Kind == "" {
			c.Kind = EdgeWalkway
		}
		next.edges[e.ID] = &c
	}

	if err := next.checkReferences(); err != nil {
		return nil, err
	}
	next.reindex()

	if opts.StrictTopology {
		if errs := Errors(CheckTopology(next)); len(errs) > 0 {
			return nil, NewError("apply").Batch().
				Context(fmt.Sprintf("%d topology errors, first: %s", len(errs), errs[0].Message)).
				Cause(ErrTopology).Err()
		}
	}
	return next, nil
}

// checkReferences validates every entity against the rest of the graph.
func (g *Graph) checkReferences() error {
	for _, n := range g.nodes {
		if !n.Type.Valid() {
			return NewError("apply").Node(n.ID).Field("type").Context(string(n.Type)).Cause(ErrInvalidValue).Err()
		}
		if n.IsOutdoor() {
			if n.Type != NodeJunction {
				return NewError("apply").Node(n.ID).Field("building_id").
					Context(string(n.Type) + " nodes must belong to a building").Cause(ErrInvalidReference).Err()
			}
			continue
		}
		if n.Type == NodeJunction {
			return NewError("apply").Node(n.ID).Field("building_id").
				Context("junction nodes are outdoor").Cause(ErrInvalidValue).Err()
		}
		b, ok := g.buildings[n.BuildingID]
		if !ok {
			return NewError("apply").Node(n.ID).Field("building_id").Context(n.BuildingID).Cause(ErrInvalidReference).Err()
		}
		if !b.HasFloor(n.Floor) {
			return NewError("apply").Node(n.ID).Field("floor").
				Context(fmt.Sprintf("building %s has no floor %d", b.ID, n.Floor)).Cause(ErrInvalidReference).Err()
		}
	}
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return NewError("apply").Edge(e.ID).Field("from").Context(e.From).Cause(ErrInvalidReference).Err()
		}
		if _, ok := g.nodes[e.To]; !ok {
			return NewError("apply").Edge(e.ID).Field("to").Context(e.To).Cause(ErrInvalidReference).Err()
		}
		if e.From == e.To {
			return NewError("apply").Edge(e.ID).Context("self loop").Cause(ErrInvalidReference).Err()
		}
		if e.Cost < 0 {
			return NewError("apply").Edge(e.ID).Field("cost").Cause(ErrInvalidValue).Err()
		}
		if e.Cost > MaxEdgeCost {
			return NewError("apply").Edge(e.ID).Field("cost").Context("exceeds " + MaxEdgeCost.String()).Cause(ErrInvalidValue).Err()
		}
		if !e.Kind.Valid() {
			return NewError("apply").Edge(e.ID).Field("kind").Context(string(e.Kind)).Cause(ErrInvalidValue).Err()
		}
	}
	return nil
}
