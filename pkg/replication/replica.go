package replication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/ingest"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/snapshot"
	"github.com/google/uuid"
)

// Target is the navigator side a replica applies snapshots to.
type Target interface {
	View() *navigator.View
	Ingest(ctx context.Context, doc *ingest.Document, mode ingest.Mode) (*navigator.IngestResult, error)
}

// Replica subscribes to a primary and applies each newer snapshot as a
// replace ingestion.
type Replica struct {
	config  Config
	factory SocketFactory
	target  Target
	logger  logging.Logger

	subscriber SubscribeSocket
	respondent DialSocket

	applyMu  sync.Mutex // serializes Apply
	mu       sync.RWMutex
	applied  Version
	primary  string
	lastSync time.Time

	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex
}

// NewReplica creates a replica that applies snapshots to target.
func NewReplica(factory SocketFactory, config Config, target Target) (*Replica, error) {
	if config.PublishAddr == "" {
		return nil, errors.New("replication: primary address is required")
	}
	config = config.withDefaults()
	if config.NodeID == "" {
		config.NodeID = uuid.NewString()
	}
	return &Replica{
		config:  config,
		factory: factory,
		target:  target,
		logger:  config.Logger.With(logging.Component("replication"), logging.String("role", string(RoleReplica))),
	}, nil
}

// Start connects to the primary. Connection happens in the background, so
// the primary need not be up yet.
func (r *Replica) Start() error {
	r.runningMu.Lock()
	defer r.runningMu.Unlock()

	if r.running {
		return fmt.Errorf("replica already running")
	}

	cleanup := newResourceCleanup(r.logger)
	defer cleanup.Cleanup()

	subSock, err := r.factory.NewSubSocket()
	if err != nil {
		return fmt.Errorf("failed to create SUB socket: %w", err)
	}
	cleanup.Add(subSock, "snapshot subscriber")
	if err := subSock.Subscribe(snapshotTopic); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := subSock.SetRecvDeadline(r.config.RecvTimeout); err != nil {
		return fmt.Errorf("failed to set receive deadline: %w", err)
	}
	if err := subSock.Dial(r.config.PublishAddr); err != nil {
		return fmt.Errorf("failed to connect to primary at %s: %w", r.config.PublishAddr, err)
	}

	var respSock DialSocket
	if r.config.HealthAddr != "" {
		respSock, err = r.factory.NewRespondentSocket()
		if err != nil {
			return fmt.Errorf("failed to create RESPONDENT socket: %w", err)
		}
		cleanup.Add(respSock, "health respondent")
		if err := respSock.SetRecvDeadline(r.config.RecvTimeout); err != nil {
			return fmt.Errorf("failed to set receive deadline: %w", err)
		}
		if err := respSock.Dial(r.config.HealthAddr); err != nil {
			return fmt.Errorf("failed to connect to health surveyor at %s: %w", r.config.HealthAddr, err)
		}
	}

	r.subscriber = subSock
	r.respondent = respSock
	r.stopCh = make(chan struct{})
	r.running = true

	r.wg.Add(1)
	go r.receiveLoop()
	if respSock != nil {
		r.wg.Add(1)
		go r.respondLoop()
	}

	r.logger.Info("replica started",
		logging.String("node_id", r.config.NodeID),
		logging.String("primary_addr", r.config.PublishAddr))

	cleanup.Clear()
	return nil
}

// Stop closes the sockets and waits for the loops to exit.
func (r *Replica) Stop() error {
	r.runningMu.Lock()
	defer r.runningMu.Unlock()

	if !r.running {
		return nil
	}
	r.running = false
	close(r.stopCh)

	var errs []error
	if err := r.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}
	if r.respondent != nil {
		if err := r.respondent.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close respondent: %w", err))
		}
	}
	r.wg.Wait()

	r.logger.Info("replica stopped")
	return errors.Join(errs...)
}

func (r *Replica) stopping() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

func (r *Replica) receiveLoop() {
	defer r.wg.Done()

	for !r.stopping() {
		msg, err := r.subscriber.Recv()
		if err != nil {
			if isClosed(err) {
				return
			}
			continue
		}

		err = r.Apply(msg)
		status := "ok"
		switch {
		case err == nil:
		case errors.Is(err, ErrDuplicate):
			status = "duplicate"
		case errors.Is(err, ErrStale):
			status = "rejected"
			r.logger.Warn("rejected stale snapshot", logging.Error(err))
		default:
			status = "error"
			r.logger.Error("failed to apply snapshot", logging.Error(err))
		}
		if m := r.config.Metrics; m != nil {
			m.RecordReplicationMessage("received", status, len(msg))
		}
	}
}

// Apply decodes one snapshot message and ingests it. Views not newer than
// the applied one fail with ErrDuplicate or ErrStale and change nothing.
func (r *Replica) Apply(msg []byte) error {
	data, err := decodeSnapshotMessage(msg)
	if err != nil {
		return err
	}
	snap, err := snapshot.Decode(data)
	if err != nil {
		return err
	}
	version := Version{Graph: snap.GraphVersion, Constraints: snap.ConstraintVersion}

	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	r.mu.RLock()
	applied := r.applied
	r.mu.RUnlock()
	switch version.Compare(applied) {
	case 0:
		return fmt.Errorf("%w: version %s", ErrDuplicate, version)
	case -1:
		return fmt.Errorf("%w: version %s is older than applied %s", ErrStale, version, applied)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.config.ApplyTimeout)
	defer cancel()
	res, err := r.target.Ingest(ctx, snap.Document, ingest.ModeReplace)
	if err != nil {
		return fmt.Errorf("apply snapshot %s: %w", version, err)
	}

	r.mu.Lock()
	r.applied = version
	r.lastSync = time.Now()
	r.mu.Unlock()

	if m := r.config.Metrics; m != nil {
		m.SetReplicationAppliedVersion(version.Graph)
	}
	r.logger.Info("snapshot applied",
		logging.String("version", version.String()),
		logging.String("ingestion_id", res.ID),
		logging.Int("nodes", res.Nodes),
		logging.Int("edges", res.Edges))
	return nil
}

func (r *Replica) respondLoop() {
	defer r.wg.Done()

	for !r.stopping() {
		msg, err := r.respondent.Recv()
		if err != nil {
			if isClosed(err) {
				return
			}
			continue
		}

		var survey Heartbeat
		if err := json.Unmarshal(msg, &survey); err != nil {
			r.logger.Warn("failed to parse health survey", logging.Error(err))
			continue
		}

		r.mu.Lock()
		r.primary = survey.From
		applied := r.applied
		r.mu.Unlock()

		v := r.target.View()
		reply, err := json.Marshal(Heartbeat{
			From:    r.config.NodeID,
			Role:    RoleReplica,
			Version: applied,
			Nodes:   v.Graph.NodeCount(),
			Edges:   v.Graph.EdgeCount(),
			SentAt:  time.Now(),
		})
		if err != nil {
			continue
		}
		if err := r.respondent.Send(reply); err != nil && !isClosed(err) {
			r.logger.Warn("failed to send health response", logging.Error(err))
		}
	}
}

// State returns the primary version this replica last applied.
func (r *Replica) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return State{
		Role:     RoleReplica,
		NodeID:   r.config.NodeID,
		Version:  r.applied,
		Primary:  r.primary,
		LastSync: r.lastSync,
	}
}
