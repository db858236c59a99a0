package algorithms

import (
	"slices"

	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// Component is a strongly connected set of nodes.
type Component struct {
	ID    int      `json:"id"`
	Nodes []string `json:"nodes"`
	Size  int      `json:"size"`
}

// SCCResult holds the result of Tarjan's strongly connected components algorithm.
type SCCResult struct {
	Components     []*Component
	NodeComponent  map[string]int
	Largest        *Component
	SingletonCount int
}

// tarjanState holds per-node state during Tarjan's DFS.
type tarjanState struct {
	index   int
	lowlink int
	onStack bool
}

// StronglyConnectedComponents finds all SCCs of the walkable graph using
// Tarjan's algorithm in O(V+E) time. Edge direction is respected, so
// one-way edges can split a campus into several components.
func StronglyConnectedComponents(g *storage.Graph) *SCCResult {
	nodes := g.Nodes()

	state := make(map[string]*tarjanState, len(nodes))
	var stack []string
	indexCounter := 0
	var components []*Component
	nodeComponent := make(map[string]int, len(nodes))

	var strongconnect func(u string)
	strongconnect = func(u string) {
		state[u] = &tarjanState{
			index:   indexCounter,
			lowlink: indexCounter,
			onStack: true,
		}
		indexCounter++
		stack = append(stack, u)

		neighbors, _ := g.GetNeighbors(u)
		for _, nb := range neighbors {
			v := nb.NodeID
			if _, exists := state[v]; !exists {
				strongconnect(v)
				state[u].lowlink = min(state[u].lowlink, state[v].lowlink)
			} else if state[v].onStack {
				state[u].lowlink = min(state[u].lowlink, state[v].index)
			}
		}

		// u is a root: pop its component
		if state[u].lowlink == state[u].index {
			id := len(components)
			var members []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				state[w].onStack = false
				members = append(members, w)
				nodeComponent[w] = id
				if w == u {
					break
				}
			}
			slices.Sort(members)
			components = append(components, &Component{ID: id, Nodes: members, Size: len(members)})
		}
	}

	for _, n := range nodes {
		if _, exists := state[n.ID]; !exists {
			strongconnect(n.ID)
		}
	}

	result := &SCCResult{Components: components, NodeComponent: nodeComponent}
	for _, c := range components {
		if c.Size == 1 {
			result.SingletonCount++
		}
		if result.Largest == nil || c.Size > result.Largest.Size {
			result.Largest = c
		}
	}
	return result
}

// OneWayTraps returns the nodes outside the largest strongly connected
// component, sorted by ID. From such a node some part of the campus cannot
// be reached, or it cannot be reached from there.
func OneWayTraps(g *storage.Graph) []string {
	scc := StronglyConnectedComponents(g)
	traps := make([]string, 0)
	if scc.Largest == nil {
		return traps
	}
	for id, c := range scc.NodeComponent {
		if c != scc.Largest.ID {
			traps = append(traps, id)
		}
	}
	slices.Sort(traps)
	return traps
}
