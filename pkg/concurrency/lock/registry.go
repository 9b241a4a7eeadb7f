package lock

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"priosched/pkg/concurrency/sema"
	"priosched/pkg/primitives"
)

// Registry owns every PriorityLock record. Locks and threads refer to each
// other only by identifier; the registry provides the LockID lookup the
// donation protocol needs when it walks a wait chain.
type Registry struct {
	locks  map[primitives.LockID]*PriorityLock
	nextID uint64
	logger hclog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for donation trace output.
func WithLogger(logger hclog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty lock registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		locks:  make(map[primitives.LockID]*PriorityLock),
		logger: hclog.NewNullLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// New constructs a free, unowned lock and registers it.
func (r *Registry) New(name string) *PriorityLock {
	r.nextID++
	l := &PriorityLock{
		id:      primitives.LockID(r.nextID),
		name:    name,
		reg:     r,
		donated: primitives.NoDonation,
		sem:     sema.New(1),
	}
	r.locks[l.id] = l
	return l
}

// Lock looks up a lock record by ID.
func (r *Registry) Lock(id primitives.LockID) (*PriorityLock, error) {
	l, exists := r.locks[id]
	if !exists {
		return nil, fmt.Errorf("lock %s not found", id)
	}
	return l, nil
}

// Count returns the number of registered locks.
func (r *Registry) Count() int {
	return len(r.locks)
}

// lookup resolves a LockID found in a thread's wait edge. A dangling ID means
// the wait relation is corrupted, which is fatal.
func (r *Registry) lookup(id primitives.LockID) *PriorityLock {
	l, exists := r.locks[id]
	if !exists {
		panic(fmt.Sprintf("lock: dangling %s in wait chain", id))
	}
	return l
}
