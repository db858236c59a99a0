package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-navigator/pkg/api/middleware"
	"github.com/dd0wney/cluso-navigator/pkg/ingest"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/snapshot"
	"github.com/dd0wney/cluso-navigator/pkg/validation"
)

var errNoSnapshotStore = errors.New("snapshot storage is not configured")

// handleIngest applies a map document. The body is YAML when the content
// type says so and JSON otherwise; ?mode= selects replace (default) or merge.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	mode, err := ingest.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.respondErr(w, r, "ingest", err)
		return
	}
	doc, err := ingest.Decode(r.Body, ingest.FormatFromContentType(r.Header.Get("Content-Type")))
	if err != nil {
		s.respondErr(w, r, "ingest", err)
		return
	}

	res, err := s.nav.Ingest(r.Context(), doc, mode)
	if err != nil {
		s.respondErr(w, r, "ingest", err)
		return
	}

	resp := IngestResponse{IngestResult: res}
	if s.cfg.SaveOnIngest && s.cfg.Snapshots != nil {
		snap, err := s.saveSnapshot(r.Context())
		if err != nil {
			// The ingestion is committed either way.
			s.logger.Error("failed to save snapshot after ingestion",
				logging.RequestID(middleware.GetRequestID(r)),
				logging.Version(res.GraphVersion),
				logging.Error(err))
		}
		resp.Snapshot = snap
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleExport writes the current view as a map document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := ingest.FormatJSON
	switch f := r.URL.Query().Get("format"); f {
	case "", "json":
	case "yaml":
		format = ingest.FormatYAML
	default:
		s.respondErr(w, r, "export", fmt.Errorf("%w: format: must be one of [json yaml]", validation.ErrValidation))
		return
	}

	v := s.nav.View()
	doc := ingest.FromGraph(v.Graph, v.Constraints)
	if format == ingest.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	if err := ingest.Encode(w, doc, format); err != nil {
		s.logger.Warn("failed to encode export", logging.Error(err))
	}
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.nav.Topology())
}

func (s *Server) handleListConstraints(w http.ResponseWriter, r *http.Request) {
	set := s.nav.View().Constraints
	s.respondJSON(w, http.StatusOK, ConstraintsResponse{Version: set.Version(), Constraints: set.All()})
}

func (s *Server) handleAddConstraint(w http.ResponseWriter, r *http.Request) {
	var req validation.ConstraintRequest
	decoder := s.NewRequestDecoder(w, r)
	if decoder.DecodeJSON(&req).RespondError() {
		return
	}
	c, err := req.ToConstraint()
	if err != nil {
		s.respondErr(w, r, "add constraint", err)
		return
	}
	if _, err := s.nav.AddConstraints(c); err != nil {
		s.respondErr(w, r, "add constraint", err)
		return
	}
	s.logger.Info("constraint added",
		logging.String("constraint_id", c.ID),
		logging.String("kind", string(c.Kind)),
		logging.String("target", c.Target()))
	s.respondJSON(w, http.StatusCreated, c)
}

func (s *Server) handleRemoveConstraint(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondErr(w, r, "remove constraint", err)
		return
	}
	if _, err := s.nav.RemoveConstraints(id); err != nil {
		s.respondErr(w, r, "remove constraint", err)
		return
	}
	s.logger.Info("constraint removed", logging.String("constraint_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Snapshots == nil {
		s.respondError(w, http.StatusServiceUnavailable, KindUnavailable, errNoSnapshotStore.Error())
		return
	}
	snap, err := s.saveSnapshot(r.Context())
	if err != nil {
		s.respondErr(w, r, "snapshot", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, snap)
}

// saveSnapshot stores the current view and prunes old snapshots.
func (s *Server) saveSnapshot(ctx context.Context) (*SnapshotResponse, error) {
	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()

	v := s.nav.View()
	snap := snapshot.New(v.Graph, v.Constraints)
	name := snap.Name()
	timer := logging.StartTimer(s.logger, "snapshot saved",
		logging.String("name", name), logging.Version(snap.GraphVersion))

	data, err := snapshot.Encode(snap)
	if err != nil {
		timer.EndError(err)
		return nil, err
	}
	if err := s.cfg.Snapshots.Put(ctx, name, data); err != nil {
		err = fmt.Errorf("failed to store snapshot %s: %w", name, err)
		timer.EndError(err)
		return nil, err
	}

	pruned, err := snapshot.Prune(ctx, s.cfg.Snapshots, s.cfg.SnapshotKeep)
	if err != nil {
		s.logger.Warn("failed to prune snapshots", logging.Error(err))
	}
	if s.metrics != nil {
		s.metrics.SetSnapshotBytes(len(data))
	}
	timer.End()

	return &SnapshotResponse{
		Name:              name,
		GraphVersion:      snap.GraphVersion,
		ConstraintVersion: snap.ConstraintVersion,
		Bytes:             len(data),
		Pruned:            pruned,
	}, nil
}
