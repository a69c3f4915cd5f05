// Package board holds the client-side task state: the Repository caches the
// collection, the Syncer keeps it fresh and reports connectivity, and the
// Board turns form submissions, moves and deletes into store calls.
package board

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// Repository is the in-memory copy of the task collection. The collection
// is replaced as a whole on every applied refresh; readers always see one
// complete snapshot.
type Repository struct {
	store types.Store
	now   func() time.Time

	seq atomic.Uint64 // last sequence number handed out

	mu          sync.RWMutex
	tasks       []types.Task // never mutated after publication
	applied     uint64       // sequence of the published snapshot
	lastRefresh time.Time
}

// NewRepository returns an empty Repository reading from store.
func NewRepository(store types.Store) *Repository {
	return &Repository{store: store, now: time.Now}
}

// Refresh lists the store and replaces the cached collection with the
// result. On error the cache is left untouched.
//
// Refreshes may overlap. A result is only published when no refresh that
// started later has been published already; a stale result is still
// returned to its caller.
func (r *Repository) Refresh(ctx context.Context) ([]types.Task, error) {
	tasks, _, err := r.refresh(ctx)
	return tasks, err
}

// refresh is Refresh that also reports whether the result was published.
func (r *Repository) refresh(ctx context.Context) ([]types.Task, bool, error) {
	seq := r.seq.Add(1)

	tasks, err := r.store.List(ctx)
	if err != nil {
		return nil, false, err
	}

	snapshot := cloneTasks(tasks)

	r.mu.Lock()
	published := seq > r.applied
	if published {
		r.tasks = snapshot
		r.applied = seq
		r.lastRefresh = r.now()
	}
	r.mu.Unlock()

	return cloneTasks(snapshot), published, nil
}

// All returns a copy of the cached collection in store order.
func (r *Repository) All() []types.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneTasks(r.tasks)
}

// ByStatus returns the cached tasks in the given column, in store order.
func (r *Repository) ByStatus(status types.Status) []types.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []types.Task{}
	for _, t := range r.tasks {
		if t.Status == status {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Counts returns the column totals of the cached collection.
func (r *Repository) Counts() types.Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return types.CountTasks(r.tasks)
}

// Get returns the cached task with the given ID.
func (r *Repository) Get(id string) (types.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return types.Task{}, false
}

// LastRefresh returns when the current snapshot was published, or the zero
// time if none has been.
func (r *Repository) LastRefresh() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastRefresh
}

func cloneTasks(tasks []types.Task) []types.Task {
	out := make([]types.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
