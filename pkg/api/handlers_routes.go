package api

import (
	"net/http"

	"github.com/dd0wney/cluso-navigator/pkg/algorithms"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/dd0wney/cluso-navigator/pkg/validation"
)

func (s *Server) routeRequest(r *http.Request, req *validation.RouteRequest) (navigator.Request, error) {
	rc, err := requester(r, req.AccessLevel, req.StepFree)
	if err != nil {
		return navigator.Request{}, err
	}
	return navigator.Request{
		OriginID:  req.Origin,
		DestID:    req.Destination,
		QueryTime: optionalTime(req.At),
		Requester: rc,
		Timeout:   validation.Timeout(req.TimeoutMs, 0),
	}, nil
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req validation.RouteRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateRouteRequest(&req) })
	if decoder.RespondError() {
		return
	}

	nreq, err := s.routeRequest(r, &req)
	if err != nil {
		s.respondErr(w, r, "find route", err)
		return
	}
	rt, err := s.nav.FindPath(r.Context(), nreq)
	if err != nil {
		s.respondErr(w, r, "find route", err)
		return
	}
	s.respondJSON(w, http.StatusOK, rt)
}

// handleBatchRoutes answers every query independently. The response is 200
// even when some entries fail; each failure carries its own error.
func (s *Server) handleBatchRoutes(w http.ResponseWriter, r *http.Request) {
	var req validation.BatchRouteRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateBatchRouteRequest(&req) })
	if decoder.RespondError() {
		return
	}

	resp := BatchRouteResponse{Results: make([]BatchRouteResult, len(req.Requests))}
	reqs := make([]navigator.Request, 0, len(req.Requests))
	slots := make([]int, 0, len(req.Requests))
	for i := range req.Requests {
		resp.Results[i].Index = i
		nreq, err := s.routeRequest(r, &req.Requests[i])
		if err != nil {
			resp.Results[i].Error = errorBody(err)
			continue
		}
		reqs = append(reqs, nreq)
		slots = append(slots, i)
	}

	for j, res := range s.nav.FindPaths(r.Context(), reqs) {
		i := slots[j]
		if res.Err != nil {
			resp.Results[i].Error = errorBody(res.Err)
			continue
		}
		resp.Results[i].Route = res.Route
	}
	for _, res := range resp.Results {
		if res.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func errorBody(err error) *ErrorResponse {
	kind, status := Classify(err)
	msg := err.Error()
	if kind == KindInternal {
		msg = "route query failed"
	}
	return &ErrorResponse{Error: string(kind), Message: msg, Code: status}
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	var req validation.NearestRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateNearestRequest(&req) })
	if decoder.RespondError() {
		return
	}

	rc, err := requester(r, req.AccessLevel, req.StepFree)
	if err != nil {
		s.respondErr(w, r, "find nearest", err)
		return
	}

	rt, err := s.nav.FindNearest(r.Context(), navigator.NearestRequest{
		OriginID:  req.Origin,
		Match:     nearestMatcher(&req),
		QueryTime: optionalTime(req.At),
		Requester: rc,
		Timeout:   validation.Timeout(req.TimeoutMs, 0),
	})
	if err != nil {
		s.respondErr(w, r, "find nearest", err)
		return
	}
	s.respondJSON(w, http.StatusOK, rt)
}

// nearestMatcher requires every criterion the request sets.
func nearestMatcher(req *validation.NearestRequest) algorithms.NodeMatcher {
	var ms []algorithms.NodeMatcher
	if req.Type != "" {
		ms = append(ms, algorithms.MatchType(storage.NodeType(req.Type)))
	}
	if req.Tag != "" {
		ms = append(ms, algorithms.MatchTag(req.Tag))
	}
	if req.Building != "" {
		ms = append(ms, algorithms.MatchBuilding(req.Building))
	}
	return algorithms.MatchAll(ms...)
}

// handleReachable lists nodes within ?budget= of the origin.
func (s *Server) handleReachable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondErr(w, r, "reachable", err)
		return
	}
	q := params(r)
	budget := q.Float("budget", 100)
	limit := q.Int("limit", 0)
	at := q.Time("at")
	level := q.Level("access_level")
	stepFree := q.Bool("step_free")
	if err := q.Err(); err != nil {
		s.respondErr(w, r, "reachable", err)
		return
	}

	rc, err := requester(r, level.String(), stepFree)
	if err != nil {
		s.respondErr(w, r, "reachable", err)
		return
	}

	res, err := s.nav.Reachable(r.Context(), navigator.ReachRequest{
		OriginID:   id,
		Budget:     storage.CostFromFloat(budget),
		MaxResults: limit,
		QueryTime:  at,
		Requester:  rc,
	})
	if err != nil {
		s.respondErr(w, r, "reachable", err)
		return
	}

	resp := ReachableResponse{
		Origin:         id,
		Budget:         storage.CostFromFloat(budget),
		Nodes:          make([]ReachableNode, 0, len(res.Costs)),
		TotalReachable: res.TotalReachable,
	}
	for _, n := range res.Nodes() {
		resp.Nodes = append(resp.Nodes, ReachableNode{NodeID: n, Cost: res.Costs[n]})
	}
	s.respondJSON(w, http.StatusOK, resp)
}
