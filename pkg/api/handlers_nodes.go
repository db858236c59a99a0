package api

import (
	"net/http"
	"time"
)

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondErr(w, r, "get node", err)
		return
	}
	g := s.nav.Graph()
	node, err := g.GetNode(id)
	if err != nil {
		s.respondErr(w, r, "get node", err)
		return
	}

	resp := NodeResponse{Node: node}
	if node.BuildingID != "" {
		if b, err := g.GetBuilding(node.BuildingID); err == nil {
			resp.BuildingName = b.Name
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleNeighbors lists the neighbors reachable in one step at ?at= for
// the requester.
func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondErr(w, r, "neighbors", err)
		return
	}
	q := params(r)
	at := s.at(q.Time("at"))
	level := q.Level("access_level")
	stepFree := q.Bool("step_free")
	if err := q.Err(); err != nil {
		s.respondErr(w, r, "neighbors", err)
		return
	}
	rc, err := requester(r, level.String(), stepFree)
	if err != nil {
		s.respondErr(w, r, "neighbors", err)
		return
	}

	neighbors, err := s.nav.View().Filter.FilteredNeighbors(id, at, rc)
	if err != nil {
		s.respondErr(w, r, "neighbors", err)
		return
	}

	resp := NeighborsResponse{NodeID: id, At: at, Neighbors: make([]NeighborResponse, len(neighbors))}
	for i, n := range neighbors {
		resp.Neighbors[i] = NeighborResponse{EdgeID: n.EdgeID, NodeID: n.NodeID, Cost: n.Cost}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	buildings := s.nav.Graph().Buildings()
	s.respondJSON(w, http.StatusOK, BuildingsResponse{Buildings: buildings, Count: len(buildings)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.nav.Stats())
}

// at resolves a zero query time to now in the campus time zone.
func (s *Server) at(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.In(s.nav.Location())
}
