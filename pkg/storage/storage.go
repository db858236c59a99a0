package storage

import (
	"sync"
	"sync/atomic"
	"time"
)

// GraphStorage holds the current campus graph. Reads go to an immutable
// snapshot and never block; writes are serialized and published atomically,
// so a reader sees either all of a batch or none of it.
type GraphStorage struct {
	current atomic.Pointer[Graph]
	mu      sync.Mutex // serializes writers

	opts ApplyOptions

	// Statistics (using atomic operations for thread-safety)
	commits   atomic.Uint64
	rejected  atomic.Uint64
	listeners []func(*Graph)
}

// StorageConfig holds configuration for GraphStorage
type StorageConfig struct {
	StrictTopology bool
}

// Statistics reports store counters
type Statistics struct {
	NodeCount     int
	EdgeCount     int
	BuildingCount int
	Version       uint64
	CommittedAt   time.Time
	Commits       uint64
	Rejected      uint64
}

// NewGraphStorage creates an empty store with default config
func NewGraphStorage() *GraphStorage {
	return NewGraphStorageWithConfig(StorageConfig{})
}

// NewGraphStorageWithConfig creates an empty store with custom config
func NewGraphStorageWithConfig(config StorageConfig) *GraphStorage {
	gs := &GraphStorage{opts: ApplyOptions{StrictTopology: config.StrictTopology}}
	g := emptyGraph()
	g.committedAt = time.Now()
	gs.current.Store(g)
	return gs
}

// Snapshot returns the current immutable graph
func (gs *GraphStorage) Snapshot() *Graph {
	return gs.current.Load()
}

// OnCommit registers fn to run after every published version. Listeners
// run synchronously on the writer goroutine and must not write to the store.
func (gs *GraphStorage) OnCommit(fn func(*Graph)) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.listeners = append(gs.listeners, fn)
}

// Apply validates and publishes a batch atomically
func (gs *GraphStorage) Apply(b *Batch) (*Graph, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	next, err := gs.stageLocked(b)
	if err != nil {
		return nil, err
	}
	gs.publishLocked(next)
	return next, nil
}

// Stage builds and validates the graph a batch would produce, without
// publishing it. Use Publish to commit it.
func (gs *GraphStorage) Stage(b *Batch) (*Graph, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.stageLocked(b)
}

// Publish commits a staged graph. It fails with ErrStaleSnapshot if
// another version was published after the graph was staged.
func (gs *GraphStorage) Publish(g *Graph) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if cur := gs.current.Load(); cur.version+1 != g.version {
		return NewError("publish").Batch().Cause(ErrStaleSnapshot).Err()
	}
	gs.publishLocked(g)
	return nil
}

func (gs *GraphStorage) stageLocked(b *Batch) (*Graph, error) {
	cur := gs.current.Load()
	next, err := cur.apply(b, gs.opts)
	if err != nil {
		gs.rejected.Add(1)
		return nil, err
	}
	next.version = cur.version + 1
	return next, nil
}

func (gs *GraphStorage) publishLocked(g *Graph) {
	g.committedAt = time.Now()
	gs.current.Store(g)
	gs.commits.Add(1)
	for _, fn := range gs.listeners {
		fn(g)
	}
}

// AddBuilding adds or replaces a building
func (gs *GraphStorage) AddBuilding(b *Building) error {
	_, err := gs.Apply(NewBatch().AddBuilding(b))
	return err
}

// AddNode adds or replaces a node
func (gs *GraphStorage) AddNode(n *Node) error {
	_, err := gs.Apply(NewBatch().AddNode(n))
	return err
}

// AddEdge adds or replaces an edge
func (gs *GraphStorage) AddEdge(e *Edge) error {
	_, err := gs.Apply(NewBatch().AddEdge(e))
	return err
}

// GetNode returns a node from the current snapshot
func (gs *GraphStorage) GetNode(nodeID string) (*Node, error) {
	return gs.Snapshot().GetNode(nodeID)
}

// GetEdge returns an edge from the current snapshot
func (gs *GraphStorage) GetEdge(edgeID string) (*Edge, error) {
	return gs.Snapshot().GetEdge(edgeID)
}

// GetNeighbors returns adjacency entries from the current snapshot
func (gs *GraphStorage) GetNeighbors(nodeID string) ([]Neighbor, error) {
	return gs.Snapshot().GetNeighbors(nodeID)
}

// GetStatistics returns current store statistics
func (gs *GraphStorage) GetStatistics() Statistics {
	g := gs.Snapshot()
	return Statistics{
		NodeCount:     g.NodeCount(),
		EdgeCount:     g.EdgeCount(),
		BuildingCount: g.BuildingCount(),
		Version:       g.Version(),
		CommittedAt:   g.CommittedAt(),
		Commits:       gs.commits.Load(),
		Rejected:      gs.rejected.Load(),
	}
}
