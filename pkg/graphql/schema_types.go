package graphql

import (
	"github.com/dd0wney/cluso-navigator/pkg/route"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/graphql-go/graphql"
)

// field builds a field whose value is read from a typed source.
func field[T any](typ graphql.Output, get func(T) any) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			src, ok := p.Source.(T)
			if !ok {
				return nil, nil
			}
			return get(src), nil
		},
	}
}

// types holds the object types of one schema.
type types struct {
	building *graphql.Object
	node     *graphql.Object
	edge     *graphql.Object
	segment  *graphql.Object
	leg      *graphql.Object
	route    *graphql.Object
}

func newTypes(r *resolver) *types {
	t := &types{}

	t.building = graphql.NewObject(graphql.ObjectConfig{
		Name: "Building",
		Fields: graphql.Fields{
			"id":     field(graphql.NewNonNull(graphql.ID), func(b *storage.Building) any { return b.ID }),
			"name":   field(graphql.String, func(b *storage.Building) any { return b.Name }),
			"floors": field(graphql.NewList(graphql.Int), func(b *storage.Building) any { return b.Floors }),
		},
	})

	t.node = graphql.NewObject(graphql.ObjectConfig{
		Name: "Node",
		Fields: graphql.Fields{
			"id":         field(graphql.NewNonNull(graphql.ID), func(n *storage.Node) any { return n.ID }),
			"type":       field(graphql.String, func(n *storage.Node) any { return string(n.Type) }),
			"name":       field(graphql.String, func(n *storage.Node) any { return n.Name }),
			"x":          field(graphql.Float, func(n *storage.Node) any { return n.Position.X }),
			"y":          field(graphql.Float, func(n *storage.Node) any { return n.Position.Y }),
			"floor":      field(graphql.Int, func(n *storage.Node) any { return n.Floor }),
			"buildingId": field(graphql.String, func(n *storage.Node) any { return n.BuildingID }),
			"tags":       field(graphql.NewList(graphql.String), func(n *storage.Node) any { return n.Tags }),
			"outdoor":    field(graphql.Boolean, func(n *storage.Node) any { return n.IsOutdoor() }),
			"building": {
				Type: t.building,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					n, ok := p.Source.(*storage.Node)
					if !ok || n.BuildingID == "" {
						return nil, nil
					}
					return r.nav.Graph().GetBuilding(n.BuildingID)
				},
			},
		},
	})

	t.edge = graphql.NewObject(graphql.ObjectConfig{
		Name: "Edge",
		Fields: graphql.Fields{
			"id":       field(graphql.NewNonNull(graphql.ID), func(e *storage.Edge) any { return e.ID }),
			"from":     field(graphql.String, func(e *storage.Edge) any { return e.From }),
			"to":       field(graphql.String, func(e *storage.Edge) any { return e.To }),
			"cost":     field(graphql.Float, func(e *storage.Edge) any { return e.Cost.Float() }),
			"directed": field(graphql.Boolean, func(e *storage.Edge) any { return e.Directed }),
			"kind":     field(graphql.String, func(e *storage.Edge) any { return string(e.Kind) }),
		},
	})

	t.segment = graphql.NewObject(graphql.ObjectConfig{
		Name: "Segment",
		Fields: graphql.Fields{
			"index":      field(graphql.Int, func(s route.Segment) any { return s.Index }),
			"from":       field(graphql.String, func(s route.Segment) any { return s.From }),
			"to":         field(graphql.String, func(s route.Segment) any { return s.To }),
			"edgeId":     field(graphql.String, func(s route.Segment) any { return s.EdgeID }),
			"kind":       field(graphql.String, func(s route.Segment) any { return string(s.Kind) }),
			"cost":       field(graphql.Float, func(s route.Segment) any { return s.Cost.Float() }),
			"cumulative": field(graphql.Float, func(s route.Segment) any { return s.Cumulative.Float() }),
			"layer":      field(graphql.String, func(s route.Segment) any { return string(s.Layer) }),
			"buildingId": field(graphql.String, func(s route.Segment) any { return s.BuildingID }),
			"fromFloor":  field(graphql.Int, func(s route.Segment) any { return s.FromFloor }),
			"toFloor":    field(graphql.Int, func(s route.Segment) any { return s.ToFloor }),
		},
	})

	t.leg = graphql.NewObject(graphql.ObjectConfig{
		Name: "Leg",
		Fields: graphql.Fields{
			"layer":       field(graphql.String, func(l route.Leg) any { return string(l.Layer) }),
			"buildingId":  field(graphql.String, func(l route.Leg) any { return l.BuildingID }),
			"fromFloor":   field(graphql.Int, func(l route.Leg) any { return l.FromFloor }),
			"toFloor":     field(graphql.Int, func(l route.Leg) any { return l.ToFloor }),
			"from":        field(graphql.String, func(l route.Leg) any { return l.From }),
			"to":          field(graphql.String, func(l route.Leg) any { return l.To }),
			"cost":        field(graphql.Float, func(l route.Leg) any { return l.Cost.Float() }),
			"instruction": field(graphql.String, func(l route.Leg) any { return l.Instruction }),
		},
	})

	t.route = graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"origin":       field(graphql.String, func(rt *route.Route) any { return rt.Origin }),
			"destination":  field(graphql.String, func(rt *route.Route) any { return rt.Destination }),
			"nodes":        field(graphql.NewList(graphql.String), func(rt *route.Route) any { return rt.Nodes }),
			"segments":     field(graphql.NewList(t.segment), func(rt *route.Route) any { return rt.Segments }),
			"legs":         field(graphql.NewList(t.leg), func(rt *route.Route) any { return rt.Legs }),
			"totalCost":    field(graphql.Float, func(rt *route.Route) any { return rt.TotalCost.Float() }),
			"graphVersion": field(graphql.Int, func(rt *route.Route) any { return int(rt.GraphVersion) }),
			"queryTime":    field(graphql.DateTime, func(rt *route.Route) any { return rt.QueryTime }),
		},
	})

	return t
}
