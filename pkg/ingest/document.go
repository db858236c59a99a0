// Package ingest reads campus maps into graph batches. Maps arrive as YAML
// or JSON documents, Tiled TMX files or rows in PostgreSQL.
package ingest

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/dd0wney/cluso-navigator/pkg/validation"
)

// FormatVersion is the document layout written by Encode.
const FormatVersion = 1

// ErrInvalidDocument wraps document-level validation failures.
var ErrInvalidDocument = errors.New("invalid map document")

// Mode selects how a document is applied to the committed graph.
type Mode string

const (
	// ModeReplace swaps the whole graph and constraint set.
	ModeReplace Mode = "replace"
	// ModeMerge upserts the document's entities and applies its deletes.
	ModeMerge Mode = "merge"
)

// ParseMode accepts "replace" or "merge"; empty means replace.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeReplace:
		return ModeReplace, nil
	case ModeMerge:
		return ModeMerge, nil
	}
	return "", fmt.Errorf("%w: unknown ingestion mode %q", ErrInvalidDocument, s)
}

// BuildingDoc describes a building and its floors.
type BuildingDoc struct {
	ID     string `json:"id" yaml:"id" validate:"required,max=128"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty" validate:"max=256"`
	Floors []int  `json:"floors" yaml:"floors" validate:"required,min=1"`
}

// NodeDoc describes a location. Outdoor nodes leave Building empty.
type NodeDoc struct {
	ID       string   `json:"id" yaml:"id" validate:"required,max=128"`
	Type     string   `json:"type" yaml:"type" validate:"required,oneof=entrance room staircase elevator junction"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty" validate:"max=256"`
	X        float64  `json:"x" yaml:"x"`
	Y        float64  `json:"y" yaml:"y"`
	Floor    int      `json:"floor,omitempty" yaml:"floor,omitempty"`
	Building string   `json:"building,omitempty" yaml:"building,omitempty" validate:"max=128"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty" validate:"max=32,dive,max=64"`
}

// EdgeDoc describes a traversable connection. A nil Cost defaults to the
// distance between the endpoints.
type EdgeDoc struct {
	ID       string   `json:"id" yaml:"id" validate:"required,max=128"`
	From     string   `json:"from" yaml:"from" validate:"required,max=128"`
	To       string   `json:"to" yaml:"to" validate:"required,max=128,nefield=From"`
	Cost     *float64 `json:"cost,omitempty" yaml:"cost,omitempty" validate:"omitempty,gte=0,lte=1000000000000"`
	Directed bool     `json:"directed,omitempty" yaml:"directed,omitempty"`
	Kind     string   `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=walkway corridor stairs elevator door"`
}

// Document is a campus map or a change to one.
type Document struct {
	Version     int                       `json:"version,omitempty" yaml:"version,omitempty"`
	Campus      string                    `json:"campus,omitempty" yaml:"campus,omitempty"`
	Buildings   []BuildingDoc             `json:"buildings,omitempty" yaml:"buildings,omitempty" validate:"dive"`
	Nodes       []NodeDoc                 `json:"nodes,omitempty" yaml:"nodes,omitempty" validate:"dive"`
	Edges       []EdgeDoc                 `json:"edges,omitempty" yaml:"edges,omitempty" validate:"dive"`
	Constraints []*constraints.Constraint `json:"constraints,omitempty" yaml:"constraints,omitempty"`

	DeleteBuildings   []string `json:"delete_buildings,omitempty" yaml:"delete_buildings,omitempty"`
	DeleteNodes       []string `json:"delete_nodes,omitempty" yaml:"delete_nodes,omitempty"`
	DeleteEdges       []string `json:"delete_edges,omitempty" yaml:"delete_edges,omitempty"`
	DeleteConstraints []string `json:"delete_constraints,omitempty" yaml:"delete_constraints,omitempty"`
}

// Validate checks field formats and intra-document consistency. References
// to entities that only exist in the committed graph are checked on apply.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if d.Version > FormatVersion {
		return fmt.Errorf("%w: version %d is newer than supported version %d", ErrInvalidDocument, d.Version, FormatVersion)
	}
	if err := validation.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	for _, c := range d.Constraints {
		if c == nil {
			return fmt.Errorf("%w: null constraint", ErrInvalidDocument)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}
	return nil
}

// Empty reports whether the document carries no entities and no deletes.
func (d *Document) Empty() bool {
	return len(d.Buildings)+len(d.Nodes)+len(d.Edges)+len(d.Constraints)+
		len(d.DeleteBuildings)+len(d.DeleteNodes)+len(d.DeleteEdges)+len(d.DeleteConstraints) == 0
}

// GraphChanges reports whether the document touches the graph itself.
func (d *Document) GraphChanges() bool {
	return len(d.Buildings)+len(d.Nodes)+len(d.Edges)+
		len(d.DeleteBuildings)+len(d.DeleteNodes)+len(d.DeleteEdges) > 0
}

// ToBatch converts the document's graph part to a storage batch. Edges
// without a cost take the distance between endpoints; base supplies
// positions of endpoints that the document does not define and may be nil.
func (d *Document) ToBatch(mode Mode, base *storage.Graph) (*storage.Batch, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	b := storage.NewBatch()
	b.Replace = mode == ModeReplace
	if !b.Replace {
		b.DeleteBuildings = slices.Clone(d.DeleteBuildings)
		b.DeleteNodes = slices.Clone(d.DeleteNodes)
		b.DeleteEdges = slices.Clone(d.DeleteEdges)
	}

	for _, bd := range d.Buildings {
		b.AddBuilding(&storage.Building{ID: bd.ID, Name: bd.Name, Floors: slices.Clone(bd.Floors)})
	}

	positions := make(map[string]storage.Point, len(d.Nodes))
	for _, nd := range d.Nodes {
		n := &storage.Node{
			ID:         nd.ID,
			Type:       storage.NodeType(nd.Type),
			Name:       nd.Name,
			Position:   storage.Point{X: nd.X, Y: nd.Y},
			Floor:      nd.Floor,
			BuildingID: nd.Building,
			Tags:       slices.Clone(nd.Tags),
		}
		positions[n.ID] = n.Position
		b.AddNode(n)
	}

	position := func(id string) (storage.Point, bool) {
		if p, ok := positions[id]; ok {
			return p, true
		}
		if base != nil && !b.Replace {
			if n, err := base.GetNode(id); err == nil {
				return n.Position, true
			}
		}
		return storage.Point{}, false
	}

	for _, ed := range d.Edges {
		e := &storage.Edge{
			ID:       ed.ID,
			From:     ed.From,
			To:       ed.To,
			Directed: ed.Directed,
			Kind:     storage.EdgeKind(ed.Kind),
		}
		if ed.Cost != nil {
			e.Cost = storage.CostFromFloat(*ed.Cost)
		} else {
			from, okFrom := position(ed.From)
			to, okTo := position(ed.To)
			if !okFrom || !okTo {
				return nil, fmt.Errorf("%w: edge %q has no cost and unknown endpoint positions", ErrInvalidDocument, ed.ID)
			}
			e.Cost = storage.CostFromFloat(from.Distance(to))
		}
		b.AddEdge(e)
	}
	return b, nil
}

// FromGraph renders a committed graph and constraint set as a document.
// The result round-trips through ToBatch with ModeReplace.
func FromGraph(g *storage.Graph, set *constraints.Set) *Document {
	d := &Document{Version: FormatVersion}
	for _, bl := range g.Buildings() {
		d.Buildings = append(d.Buildings, BuildingDoc{ID: bl.ID, Name: bl.Name, Floors: slices.Clone(bl.Floors)})
	}
	for _, n := range g.Nodes() {
		d.Nodes = append(d.Nodes, NodeDoc{
			ID:       n.ID,
			Type:     string(n.Type),
			Name:     n.Name,
			X:        n.Position.X,
			Y:        n.Position.Y,
			Floor:    n.Floor,
			Building: n.BuildingID,
			Tags:     slices.Clone(n.Tags),
		})
	}
	for _, e := range g.Edges() {
		cost := e.Cost.Float()
		d.Edges = append(d.Edges, EdgeDoc{
			ID:       e.ID,
			From:     e.From,
			To:       e.To,
			Cost:     &cost,
			Directed: e.Directed,
			Kind:     string(e.Kind),
		})
	}
	if set != nil {
		d.Constraints = set.All()
	}
	return d
}
