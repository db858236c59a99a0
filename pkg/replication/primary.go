package replication

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/snapshot"
	"github.com/google/uuid"
)

// Source is the navigator side a primary streams from.
type Source interface {
	View() *navigator.View
	OnPublish(fn func(*navigator.View))
}

// Primary publishes every committed view as an encoded snapshot.
type Primary struct {
	config  Config
	factory SocketFactory
	source  Source
	logger  logging.Logger

	publisher ListenSocket
	surveyor  SurveySocket

	latest  atomic.Pointer[navigator.View]
	signal  chan struct{}
	encoded struct {
		version Version
		msg     []byte
	}

	replicas   map[string]*ReplicaStatus
	replicasMu sync.RWMutex

	stopCh     chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
	runningMu  sync.Mutex
	registered bool
}

// NewPrimary creates a primary that streams from source.
func NewPrimary(factory SocketFactory, config Config, source Source) (*Primary, error) {
	if config.PublishAddr == "" {
		return nil, errors.New("replication: publish address is required")
	}
	config = config.withDefaults()
	if config.NodeID == "" {
		config.NodeID = uuid.NewString()
	}
	return &Primary{
		config:   config,
		factory:  factory,
		source:   source,
		logger:   config.Logger.With(logging.Component("replication"), logging.String("role", string(RolePrimary))),
		signal:   make(chan struct{}, 1),
		replicas: make(map[string]*ReplicaStatus),
	}, nil
}

// Start binds the sockets and begins streaming.
func (p *Primary) Start() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running.Load() {
		return fmt.Errorf("replication primary already running")
	}

	cleanup := newResourceCleanup(p.logger)
	defer cleanup.Cleanup()

	pubSock, err := p.factory.NewPubSocket()
	if err != nil {
		return fmt.Errorf("failed to create PUB socket: %w", err)
	}
	cleanup.Add(pubSock, "snapshot publisher")
	if err := pubSock.SetSendDeadline(p.config.RecvTimeout); err != nil {
		return fmt.Errorf("failed to set send deadline: %w", err)
	}
	if err := pubSock.Listen(p.config.PublishAddr); err != nil {
		return fmt.Errorf("failed to bind PUB socket to %s: %w", p.config.PublishAddr, err)
	}

	var survSock SurveySocket
	if p.config.HealthAddr != "" {
		survSock, err = p.factory.NewSurveyorSocket()
		if err != nil {
			return fmt.Errorf("failed to create SURVEYOR socket: %w", err)
		}
		cleanup.Add(survSock, "health surveyor")
		if err := survSock.SetSurveyTime(p.config.SurveyTimeout); err != nil {
			return fmt.Errorf("failed to set survey time: %w", err)
		}
		if err := survSock.Listen(p.config.HealthAddr); err != nil {
			return fmt.Errorf("failed to bind SURVEYOR socket to %s: %w", p.config.HealthAddr, err)
		}
	}

	p.publisher = pubSock
	p.surveyor = survSock
	p.stopCh = make(chan struct{})
	p.running.Store(true)

	if !p.registered {
		p.source.OnPublish(p.notify)
		p.registered = true
	}
	p.notify(p.source.View())

	p.wg.Add(1)
	go p.publishLoop()
	if survSock != nil {
		p.wg.Add(1)
		go p.surveyLoop()
	}

	p.logger.Info("replication primary started",
		logging.String("node_id", p.config.NodeID),
		logging.String("publish_addr", p.config.PublishAddr),
		logging.String("health_addr", p.config.HealthAddr))

	cleanup.Clear()
	return nil
}

// Stop closes the sockets and waits for the loops to exit.
func (p *Primary) Stop() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if !p.running.Load() {
		return nil
	}
	p.running.Store(false)
	close(p.stopCh)

	var errs []error
	if err := p.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if p.surveyor != nil {
		if err := p.surveyor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close surveyor: %w", err))
		}
	}
	p.wg.Wait()

	p.logger.Info("replication primary stopped")
	return errors.Join(errs...)
}

// notify runs under the navigator's write lock and must not block.
func (p *Primary) notify(v *navigator.View) {
	if !p.running.Load() {
		return
	}
	p.latest.Store(v)
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *Primary) publishLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.RepublishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-p.signal:
		case <-ticker.C:
		}
		if err := p.publish(p.latest.Load()); err != nil {
			p.logger.Warn("failed to publish snapshot", logging.Error(err))
		}
	}
}

// publish sends v, reusing the previous encoding when v is unchanged.
func (p *Primary) publish(v *navigator.View) error {
	if v == nil || v.Graph.Version() == 0 {
		return nil
	}
	version := Version{Graph: v.Graph.Version(), Constraints: v.Constraints.Version()}

	if p.encoded.msg == nil || p.encoded.version != version {
		data, err := snapshot.Encode(snapshot.New(v.Graph, v.Constraints))
		if err != nil {
			return fmt.Errorf("encode snapshot %s: %w", version, err)
		}
		p.encoded.version = version
		p.encoded.msg = encodeSnapshotMessage(data)
		p.logger.Debug("snapshot encoded", logging.String("version", version.String()), logging.Int("bytes", len(data)))
	}

	err := p.publisher.Send(p.encoded.msg)
	if m := p.config.Metrics; m != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.RecordReplicationMessage("sent", status, len(p.encoded.msg))
	}
	if err != nil && !isClosed(err) {
		return err
	}
	return nil
}

func (p *Primary) surveyLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.SurveyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.survey(); err != nil {
				if isClosed(err) {
					return
				}
				p.logger.Warn("health survey failed", logging.Error(err))
			}
		}
	}
}

// survey broadcasts the primary's state and records every answer that
// arrives before the survey expires.
func (p *Primary) survey() error {
	v := p.source.View()
	hb := Heartbeat{
		From:    p.config.NodeID,
		Role:    RolePrimary,
		Version: Version{Graph: v.Graph.Version(), Constraints: v.Constraints.Version()},
		Nodes:   v.Graph.NodeCount(),
		Edges:   v.Graph.EdgeCount(),
		SentAt:  time.Now(),
	}
	data, err := json.Marshal(hb)
	if err != nil {
		return err
	}
	if err := p.surveyor.Send(data); err != nil {
		return err
	}

	for {
		msg, err := p.surveyor.Recv()
		if err != nil {
			if isTimeout(err) {
				return nil
			}
			return err
		}
		var reply Heartbeat
		if err := json.Unmarshal(msg, &reply); err != nil {
			p.logger.Warn("failed to parse survey reply", logging.Error(err))
			continue
		}
		p.recordReplica(reply, hb.Version)
	}
}

func (p *Primary) recordReplica(hb Heartbeat, current Version) {
	var lag uint64
	if current.Graph > hb.Version.Graph {
		lag = current.Graph - hb.Version.Graph
	}

	p.replicasMu.Lock()
	defer p.replicasMu.Unlock()
	p.replicas[hb.From] = &ReplicaStatus{
		ReplicaID: hb.From,
		Applied:   hb.Version,
		LastSeen:  time.Now(),
		Lag:       lag,
	}
}

// State returns the primary's version and the last known replica statuses.
func (p *Primary) State() State {
	v := p.source.View()

	p.replicasMu.RLock()
	defer p.replicasMu.RUnlock()

	replicas := make([]ReplicaStatus, 0, len(p.replicas))
	for _, id := range slices.Sorted(maps.Keys(p.replicas)) {
		replicas = append(replicas, *p.replicas[id])
	}
	return State{
		Role:     RolePrimary,
		NodeID:   p.config.NodeID,
		Version:  Version{Graph: v.Graph.Version(), Constraints: v.Constraints.Version()},
		Replicas: replicas,
	}
}
