package api

import (
	"net/http"
)

func (s *Server) handleGetEdge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondErr(w, r, "get edge", err)
		return
	}
	v := s.nav.View()
	edge, err := v.Graph.GetEdge(id)
	if err != nil {
		s.respondErr(w, r, "get edge", err)
		return
	}
	s.respondJSON(w, http.StatusOK, EdgeResponse{Edge: edge, Constraints: v.Constraints.ForEdge(id)})
}

// handleTraversable reports whether the requester may walk the edge at
// ?at= and, when not, which constraints block it.
func (s *Server) handleTraversable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondErr(w, r, "traversable", err)
		return
	}
	q := params(r)
	at := s.at(q.Time("at"))
	level := q.Level("access_level")
	stepFree := q.Bool("step_free")
	if err := q.Err(); err != nil {
		s.respondErr(w, r, "traversable", err)
		return
	}
	rc, err := requester(r, level.String(), stepFree)
	if err != nil {
		s.respondErr(w, r, "traversable", err)
		return
	}

	blocking, err := s.nav.View().Filter.Blocking(id, at, rc)
	if err != nil {
		s.respondErr(w, r, "traversable", err)
		return
	}
	s.respondJSON(w, http.StatusOK, TraversableResponse{
		EdgeID:      id,
		At:          at,
		AccessLevel: rc.AccessLevel,
		Traversable: len(blocking) == 0,
		BlockedBy:   blocking,
	})
}
