package graphql

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/algorithms"
	"github.com/dd0wney/cluso-navigator/pkg/auth"
	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/dd0wney/cluso-navigator/pkg/validation"
	"github.com/graphql-go/graphql"
)

type resolver struct {
	nav *navigator.Navigator
}

func (r *resolver) route(p graphql.ResolveParams) (any, error) {
	origin, _ := p.Args["origin"].(string)
	dest, _ := p.Args["destination"].(string)
	if err := validation.ValidateID("origin", origin); err != nil {
		return nil, coded(err)
	}
	if err := validation.ValidateID("destination", dest); err != nil {
		return nil, coded(err)
	}
	rc, at, err := requester(p)
	if err != nil {
		return nil, coded(err)
	}

	rt, err := r.nav.FindPath(p.Context, navigator.Request{
		OriginID:  origin,
		DestID:    dest,
		QueryTime: at,
		Requester: rc,
	})
	if err != nil {
		return nil, coded(err)
	}
	return rt, nil
}

func (r *resolver) nearest(p graphql.ResolveParams) (any, error) {
	origin, _ := p.Args["origin"].(string)
	if err := validation.ValidateID("origin", origin); err != nil {
		return nil, coded(err)
	}

	var ms []algorithms.NodeMatcher
	if v, _ := p.Args["type"].(string); v != "" {
		ms = append(ms, algorithms.MatchType(storage.NodeType(v)))
	}
	if v, _ := p.Args["tag"].(string); v != "" {
		ms = append(ms, algorithms.MatchTag(v))
	}
	if v, _ := p.Args["building"].(string); v != "" {
		ms = append(ms, algorithms.MatchBuilding(v))
	}
	if len(ms) == 0 {
		return nil, coded(fmt.Errorf("%w: one of type, tag or building is required", validation.ErrValidation))
	}

	rc, at, err := requester(p)
	if err != nil {
		return nil, coded(err)
	}
	rt, err := r.nav.FindNearest(p.Context, navigator.NearestRequest{
		OriginID:  origin,
		Match:     algorithms.MatchAll(ms...),
		QueryTime: at,
		Requester: rc,
	})
	if err != nil {
		return nil, coded(err)
	}
	return rt, nil
}

func (r *resolver) node(p graphql.ResolveParams) (any, error) {
	id, _ := p.Args["id"].(string)
	n, err := r.nav.Graph().GetNode(id)
	if err != nil {
		return nil, coded(err)
	}
	return n, nil
}

func (r *resolver) edge(p graphql.ResolveParams) (any, error) {
	id, _ := p.Args["id"].(string)
	e, err := r.nav.Graph().GetEdge(id)
	if err != nil {
		return nil, coded(err)
	}
	return e, nil
}

func (r *resolver) buildings(p graphql.ResolveParams) (any, error) {
	return r.nav.Graph().Buildings(), nil
}

// requester reads at, accessLevel and stepFree, with the caller's claims
// as the access ceiling.
func requester(p graphql.ResolveParams) (constraints.RequesterContext, time.Time, error) {
	var at time.Time
	switch v := p.Args["at"].(type) {
	case time.Time:
		at = v
	case *time.Time:
		if v != nil {
			at = *v
		}
	}

	var level constraints.AccessLevel
	if s, _ := p.Args["accessLevel"].(string); s != "" {
		l, err := constraints.ParseAccessLevel(s)
		if err != nil {
			return constraints.RequesterContext{}, at, fmt.Errorf("%w: accessLevel: %v", validation.ErrValidation, err)
		}
		level = l
	}
	stepFree, _ := p.Args["stepFree"].(bool)

	rc, err := auth.Requester(auth.ClaimsFromContext(p.Context), level, stepFree)
	return rc, at, err
}
