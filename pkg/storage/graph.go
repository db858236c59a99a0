package storage

import (
	"maps"
	"math"
	"slices"
	"time"
)

// Graph is an immutable snapshot of the campus graph. Readers share it
// without locking; writers build a new Graph and publish it.
type Graph struct {
	nodes     map[string]*Node
	edges     map[string]*Edge
	buildings map[string]*Building
	adjacency map[string][]Neighbor

	version        uint64
	committedAt    time.Time
	heuristicScale float64
}

func emptyGraph() *Graph {
	return &Graph{
		nodes:          make(map[string]*Node),
		edges:          make(map[string]*Edge),
		buildings:      make(map[string]*Building),
		adjacency:      make(map[string][]Neighbor),
		heuristicScale: 1,
	}
}

// NewGraph builds a standalone snapshot from a batch, without a store.
// Useful for one-off queries and tests.
func NewGraph(b *Batch) (*Graph, error) {
	g, err := emptyGraph().apply(b, ApplyOptions{})
	if err != nil {
		return nil, err
	}
	g.version = 1
	g.committedAt = time.Now()
	return g, nil
}

// Version is the monotonically increasing commit number of this snapshot.
func (g *Graph) Version() uint64 { return g.version }

// CommittedAt is when this snapshot was published.
func (g *Graph) CommittedAt() time.Time { return g.committedAt }

// HeuristicScale is the minimum cost per metre over all edges with a
// positive planar length, capped at 1. Scaling straight-line distance by it
// never overestimates the remaining cost.
func (g *Graph) HeuristicScale() float64 { return g.heuristicScale }

// GetNode returns a node by ID
func (g *Graph) GetNode(nodeID string) (*Node, error) {
	n, ok := g.nodes[nodeID]
	if !ok {
		return nil, NodeNotFoundError(nodeID)
	}
	return n, nil
}

// GetEdge returns an edge by ID
func (g *Graph) GetEdge(edgeID string) (*Edge, error) {
	e, ok := g.edges[edgeID]
	if !ok {
		return nil, EdgeNotFoundError(edgeID)
	}
	return e, nil
}

// GetBuilding returns a building by ID
func (g *Graph) GetBuilding(buildingID string) (*Building, error) {
	b, ok := g.buildings[buildingID]
	if !ok {
		return nil, BuildingNotFoundError(buildingID)
	}
	return b, nil
}

// GetNeighbors returns the edges leaving nodeID, sorted by edge ID.
// The returned slice is shared and must not be modified.
func (g *Graph) GetNeighbors(nodeID string) ([]Neighbor, error) {
	if _, ok := g.nodes[nodeID]; !ok {
		return nil, NodeNotFoundError(nodeID)
	}
	return g.adjacency[nodeID], nil
}

// Nodes returns all nodes sorted by ID.
func (g *Graph) Nodes() []*Node {
	return sortedValues(g.nodes)
}

// Edges returns all edges sorted by ID.
func (g *Graph) Edges() []*Edge {
	return sortedValues(g.edges)
}

// Buildings returns all buildings sorted by ID.
func (g *Graph) Buildings() []*Building {
	return sortedValues(g.buildings)
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// BuildingCount returns the number of buildings.
func (g *Graph) BuildingCount() int { return len(g.buildings) }

func sortedValues[V any](m map[string]V) []V {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// clone makes a shallow copy of the maps. Entities are immutable once
// published, so sharing pointers between versions is safe.
func (g *Graph) clone() *Graph {
	return &Graph{
		nodes:          maps.Clone(g.nodes),
		edges:          maps.Clone(g.edges),
		buildings:      maps.Clone(g.buildings),
		adjacency:      make(map[string][]Neighbor, len(g.nodes)),
		version:        g.version,
		heuristicScale: g.heuristicScale,
	}
}

// reindex rebuilds adjacency lists and the heuristic scale.
func (g *Graph) reindex() {
	adj := make(map[string][]Neighbor, len(g.nodes))
	scale := 1.0
	for _, e := range g.edges {
		adj[e.From] = append(adj[e.From], Neighbor{EdgeID: e.ID, NodeID: e.To, Cost: e.Cost})
		if !e.Directed && e.From != e.To {
			adj[e.To] = append(adj[e.To], Neighbor{EdgeID: e.ID, NodeID: e.From, Cost: e.Cost})
		}

		from, to := g.nodes[e.From], g.nodes[e.To]
		if d := from.Position.Distance(to.Position); d > 0 {
			scale = math.Min(scale, e.Cost.Float()/d)
		}
	}
	for id := range adj {
		slices.SortFunc(adj[id], func(a, b Neighbor) int {
			if a.EdgeID != b.EdgeID {
				if a.EdgeID < b.EdgeID {
					return -1
				}
				return 1
			}
			if a.NodeID < b.NodeID {
				return -1
			}
			if a.NodeID > b.NodeID {
				return 1
			}
			return 0
		})
	}
	g.adjacency = adj
	g.heuristicScale = math.Max(scale, 0)
}
