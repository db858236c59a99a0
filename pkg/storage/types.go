package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Cost is a fixed-point traversal cost with CostScale units per whole cost unit.
// Integer arithmetic keeps route totals exact.
type Cost int64

// CostScale is the declared precision of Cost: 0.001 cost units.
const CostScale = 1000

// MaxCost is larger than any reachable route cost. Sums that would pass it
// saturate to it.
const MaxCost = Cost(math.MaxInt64)

// MaxEdgeCost bounds the cost of a single edge: 1e12 cost units.
const MaxEdgeCost = Cost(1e12 * CostScale)

// Add returns c+d for non-negative costs, saturating at MaxCost.
func (c Cost) Add(d Cost) Cost {
	if c > MaxCost-d {
		return MaxCost
	}
	return c + d
}

// CostFromFloat converts a decimal cost to fixed point, rounding to the declared precision.
func CostFromFloat(f float64) Cost {
	return Cost(math.Round(f * CostScale))
}

// Float returns the cost as a decimal value.
func (c Cost) Float() float64 {
	return float64(c) / CostScale
}

func (c Cost) String() string {
	return strconv.FormatFloat(c.Float(), 'f', -1, 64)
}

// MarshalJSON encodes the cost as a decimal number.
func (c Cost) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON decodes a decimal number.
func (c *Cost) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = CostFromFloat(f)
	return nil
}

// NodeType is the semantic type of a node
type NodeType string

const (
	NodeEntrance  NodeType = "entrance"
	NodeRoom      NodeType = "room"
	NodeStaircase NodeType = "staircase"
	NodeElevator  NodeType = "elevator"
	NodeJunction  NodeType = "junction" // outdoor junction
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeEntrance, NodeRoom, NodeStaircase, NodeElevator, NodeJunction:
		return true
	}
	return false
}

// Vertical reports whether nodes of this type link floors.
func (t NodeType) Vertical() bool {
	return t == NodeStaircase || t == NodeElevator
}

// EdgeKind describes the physical connection an edge represents.
type EdgeKind string

const (
	EdgeWalkway  EdgeKind = "walkway"
	EdgeCorridor EdgeKind = "corridor"
	EdgeStairs   EdgeKind = "stairs"
	EdgeElevator EdgeKind = "elevator"
	EdgeDoor     EdgeKind = "door"
)

// Valid reports whether k is a known edge kind. The empty kind is accepted and means walkway.
func (k EdgeKind) Valid() bool {
	switch k {
	case "", EdgeWalkway, EdgeCorridor, EdgeStairs, EdgeElevator, EdgeDoor:
		return true
	}
	return false
}

// Vertical reports whether the edge kind is a stairs or elevator link.
func (k EdgeKind) Vertical() bool {
	return k == EdgeStairs || k == EdgeElevator
}

// Point is a position in the campus planar frame, in metres.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Distance returns the straight-line distance between two points.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Node is a navigable point: an outdoor junction, or an indoor location on a building floor.
type Node struct {
	ID         string   `json:"id"`
	Type       NodeType `json:"type"`
	Name       string   `json:"name,omitempty"`
	Position   Point    `json:"position"`
	Floor      int      `json:"floor"`
	BuildingID string   `json:"building_id,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// IsOutdoor reports whether the node belongs to no building.
func (n *Node) IsOutdoor() bool {
	return n.BuildingID == ""
}

// HasTag reports whether the node carries tag.
func (n *Node) HasTag(tag string) bool {
	return slices.Contains(n.Tags, tag)
}

func (n *Node) clone() *Node {
	c := *n
	c.Tags = slices.Clone(n.Tags)
	return &c
}

// Edge connects two nodes. Undirected unless Directed is set.
type Edge struct {
	ID       string   `json:"id"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Cost     Cost     `json:"cost"`
	Directed bool     `json:"directed,omitempty"`
	Kind     EdgeKind `json:"kind,omitempty"`
}

// Other returns the endpoint opposite nodeID.
func (e *Edge) Other(nodeID string) string {
	if e.From == nodeID {
		return e.To
	}
	return e.From
}

// Touches reports whether nodeID is one of the edge endpoints.
func (e *Edge) Touches(nodeID string) bool {
	return e.From == nodeID || e.To == nodeID
}

// Connects reports whether the edge may be walked from -> to.
func (e *Edge) Connects(from, to string) bool {
	if e.From == from && e.To == to {
		return true
	}
	return !e.Directed && e.From == to && e.To == from
}

// Building groups indoor nodes by floor.
type Building struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Floors []int  `json:"floors"`
}

// HasFloor reports whether floor is one of the building's floors.
func (b *Building) HasFloor(floor int) bool {
	return slices.Contains(b.Floors, floor)
}

func (b *Building) clone() *Building {
	c := *b
	c.Floors = slices.Clone(b.Floors)
	slices.Sort(c.Floors)
	return &c
}

// Neighbor is one adjacency entry: the edge used and the node reached.
type Neighbor struct {
	EdgeID string
	NodeID string
	Cost   Cost
}

func (n Neighbor) String() string {
	return fmt.Sprintf("%s via %s (%s)", n.NodeID, n.EdgeID, n.Cost)
}
