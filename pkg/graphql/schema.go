// Package graphql exposes read-only campus queries over GraphQL.
package graphql

import (
	"fmt"

	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/graphql-go/graphql"
)

// GenerateSchema builds the query schema served at /graphql.
func GenerateSchema(nav *navigator.Navigator) (graphql.Schema, error) {
	r := &resolver{nav: nav}
	t := newTypes(r)

	requesterArgs := func(args graphql.FieldConfigArgument) graphql.FieldConfigArgument {
		args["at"] = &graphql.ArgumentConfig{Type: graphql.DateTime}
		args["accessLevel"] = &graphql.ArgumentConfig{Type: graphql.String}
		args["stepFree"] = &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false}
		return args
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"route": &graphql.Field{
				Type:        t.route,
				Description: "Cheapest route between two nodes for the caller",
				Args: requesterArgs(graphql.FieldConfigArgument{
					"origin":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"destination": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				}),
				Resolve: r.route,
			},
			"nearest": &graphql.Field{
				Type:        t.route,
				Description: "Route to the cheapest reachable node of a type, tag or building",
				Args: requesterArgs(graphql.FieldConfigArgument{
					"origin":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"type":     &graphql.ArgumentConfig{Type: graphql.String},
					"tag":      &graphql.ArgumentConfig{Type: graphql.String},
					"building": &graphql.ArgumentConfig{Type: graphql.String},
				}),
				Resolve: r.nearest,
			},
			"node": &graphql.Field{
				Type: t.node,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.node,
			},
			"edge": &graphql.Field{
				Type: t.edge,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.edge,
			},
			"buildings": &graphql.Field{
				Type:    graphql.NewList(t.building),
				Resolve: r.buildings,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}
