package constraints

import (
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// Registry holds the current constraint set. Reads are lock-free; updates
// are serialized and published atomically.
type Registry struct {
	current atomic.Pointer[Set]
	mu      sync.Mutex
}

// NewRegistry creates a registry with an empty set
func NewRegistry() *Registry {
	r := &Registry{}
	r.current.Store(EmptySet())
	return r
}

// Current returns the current immutable set
func (r *Registry) Current() *Set {
	return r.current.Load()
}

// Add inserts or replaces constraints after checking their targets exist in g.
func (r *Registry) Add(g *storage.Graph, cs ...*Constraint) (*Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.current.Load().With(cs...)
	if err != nil {
		return nil, err
	}
	if err := next.CheckTargets(g); err != nil {
		return nil, err
	}
	r.publishLocked(next)
	return next, nil
}

// Remove deletes constraints by ID
func (r *Registry) Remove(ids ...string) (*Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.current.Load().Without(ids...)
	if err != nil {
		return nil, err
	}
	r.publishLocked(next)
	return next, nil
}

// Replace swaps the whole set
func (r *Registry) Replace(g *storage.Graph, cs []*Constraint) (*Set, error) {
	next, err := r.Stage(g, cs, true)
	if err != nil {
		return nil, err
	}
	if err := r.Publish(next); err != nil {
		return nil, err
	}
	return next, nil
}

// Change describes an update to the constraint set.
type Change struct {
	Upsert  []*Constraint
	Remove  []string
	Replace bool // Upsert becomes the whole set
}

// Stage builds the set that would result from applying cs against g
// without publishing it. With replace, cs becomes the whole set; otherwise
// cs is merged into the current set and constraints whose target no longer
// exists in g are dropped.
func (r *Registry) Stage(g *storage.Graph, cs []*Constraint, replace bool) (*Set, error) {
	return r.StageChange(g, Change{Upsert: cs, Replace: replace})
}

// StageChange is Stage with removals. Removed IDs must exist in the current set.
func (r *Registry) StageChange(g *storage.Graph, ch Change) (*Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()
	var next *Set
	var err error
	if ch.Replace {
		next, err = NewSet(ch.Upsert)
	} else {
		base := cur
		if len(ch.Remove) > 0 {
			if base, err = base.Without(ch.Remove...); err != nil {
				return nil, err
			}
		}
		base, _ = base.Prune(g)
		next, err = base.With(ch.Upsert...)
	}
	if err != nil {
		return nil, err
	}
	if err := next.CheckTargets(g); err != nil {
		return nil, err
	}
	next.version = cur.version + 1
	return next, nil
}

// Publish commits a staged set. It fails with ErrStaleSet if another set
// was published after it was staged.
func (r *Registry) Publish(s *Set) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur := r.current.Load(); cur.version+1 != s.version {
		return ErrStaleSet
	}
	r.current.Store(s)
	return nil
}

func (r *Registry) publishLocked(next *Set) {
	next.version = r.current.Load().version + 1
	r.current.Store(next)
}
