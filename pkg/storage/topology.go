package storage

import (
	"fmt"
	"slices"
)

// Severity indicates the importance of a violation
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ViolationType categorizes topology problems
type ViolationType int

const (
	DisconnectedFloor ViolationType = iota
	MissingFloorLink
	FloorLinkWithoutVertical
	MissingEntrance
	EmptyFloor
)

func (vt ViolationType) String() string {
	switch vt {
	case DisconnectedFloor:
		return "DisconnectedFloor"
	case MissingFloorLink:
		return "MissingFloorLink"
	case FloorLinkWithoutVertical:
		return "FloorLinkWithoutVertical"
	case MissingEntrance:
		return "MissingEntrance"
	case EmptyFloor:
		return "EmptyFloor"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the violation type by name.
func (vt ViolationType) MarshalText() ([]byte, error) {
	return []byte(vt.String()), nil
}

// Violation is a topology problem found in a graph
type Violation struct {
	Type       ViolationType `json:"type"`
	Severity   Severity      `json:"severity"`
	BuildingID string        `json:"building_id"`
	Floor      *int          `json:"floor,omitempty"`
	NodeIDs    []string      `json:"node_ids,omitempty"`
	Message    string        `json:"message"`
}

// Errors filters violations down to Error severity
func Errors(violations []Violation) []Violation {
	out := make([]Violation, 0)
	for _, v := range violations {
		if v.Severity == Error {
			out = append(out, v)
		}
	}
	return out
}

// CheckTopology verifies the structural invariants of the campus graph:
// each building floor is internally connected, adjacent floors are linked
// through a staircase or elevator, and each building has an entrance
// connected to the outdoor network.
func CheckTopology(g *Graph) []Violation {
	violations := make([]Violation, 0)

	for _, b := range g.Buildings() {
		byFloor := make(map[int][]string)
		for _, n := range g.Nodes() {
			if n.BuildingID == b.ID {
				byFloor[n.Floor] = append(byFloor[n.Floor], n.ID)
			}
		}

		for _, floor := range b.Floors {
			ids := byFloor[floor]
			if len(ids) == 0 {
				violations = append(violations, Violation{
					Type: EmptyFloor, Severity: Warning, BuildingID: b.ID, Floor: intPtr(floor),
					Message: fmt.Sprintf("building %s floor %d has no nodes", b.ID, floor),
				})
				continue
			}
			if unreached := floorUnreached(g, b.ID, floor, ids); len(unreached) > 0 {
				violations = append(violations, Violation{
					Type: DisconnectedFloor, Severity: Error, BuildingID: b.ID, Floor: intPtr(floor),
					NodeIDs: unreached,
					Message: fmt.Sprintf("building %s floor %d is not connected: %d nodes unreachable from %s",
						b.ID, floor, len(unreached), ids[0]),
				})
			}
		}

		floors := slices.Clone(b.Floors)
		slices.Sort(floors)
		for i := 0; i+1 < len(floors); i++ {
			lower, upper := floors[i], floors[i+1]
			if len(byFloor[lower]) == 0 || len(byFloor[upper]) == 0 {
				continue
			}
			links, vertical := floorLinks(g, b.ID, lower, upper)
			switch {
			case links == 0:
				violations = append(violations, Violation{
					Type: MissingFloorLink, Severity: Error, BuildingID: b.ID, Floor: intPtr(lower),
					Message: fmt.Sprintf("building %s has no edge between floors %d and %d", b.ID, lower, upper),
				})
			case vertical == 0:
				violations = append(violations, Violation{
					Type: FloorLinkWithoutVertical, Severity: Warning, BuildingID: b.ID, Floor: intPtr(lower),
					Message: fmt.Sprintf("building %s links floors %d and %d without a staircase or elevator",
						b.ID, lower, upper),
				})
			}
		}

		if !hasConnectedEntrance(g, b.ID) {
			violations = append(violations, Violation{
				Type: MissingEntrance, Severity: Error, BuildingID: b.ID,
				Message: fmt.Sprintf("building %s has no entrance connected to an outdoor node", b.ID),
			})
		}
	}

	return violations
}

func intPtr(i int) *int { return &i }

// floorUnreached walks the floor ignoring direction and returns nodes not reached from the first.
func floorUnreached(g *Graph, buildingID string, floor int, ids []string) []string {
	onFloor := func(id string) bool {
		n := g.nodes[id]
		return n.BuildingID == buildingID && n.Floor == floor
	}

	undirected := make(map[string][]string)
	for _, e := range g.edges {
		if onFloor(e.From) && onFloor(e.To) {
			undirected[e.From] = append(undirected[e.From], e.To)
			undirected[e.To] = append(undirected[e.To], e.From)
		}
	}

	visited := map[string]bool{ids[0]: true}
	queue := []string{ids[0]}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range undirected[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	unreached := make([]string, 0)
	for _, id := range ids {
		if !visited[id] {
			unreached = append(unreached, id)
		}
	}
	slices.Sort(unreached)
	return unreached
}

func floorLinks(g *Graph, buildingID string, lower, upper int) (links, vertical int) {
	for _, e := range g.edges {
		from, to := g.nodes[e.From], g.nodes[e.To]
		if from.BuildingID != buildingID || to.BuildingID != buildingID {
			continue
		}
		if !(from.Floor == lower && to.Floor == upper) && !(from.Floor == upper && to.Floor == lower) {
			continue
		}
		links++
		if from.Type.Vertical() || to.Type.Vertical() || e.Kind.Vertical() {
			vertical++
		}
	}
	return links, vertical
}

func hasConnectedEntrance(g *Graph, buildingID string) bool {
	for _, e := range g.edges {
		from, to := g.nodes[e.From], g.nodes[e.To]
		if from.BuildingID == buildingID && from.Type == NodeEntrance && to.IsOutdoor() {
			return true
		}
		if to.BuildingID == buildingID && to.Type == NodeEntrance && from.IsOutdoor() {
			return true
		}
	}
	return false
}
