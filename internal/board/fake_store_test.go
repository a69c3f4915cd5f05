package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mesh-intelligence/taskboard/internal/transition"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

var errUnreachable = errors.New("connection refused")

// fakeStore is an in-memory types.Store that records calls and can be told
// to fail.
type fakeStore struct {
	mu      sync.Mutex
	tasks   []types.Task
	calls   map[string]int
	failAll error
	list    func(call int) ([]types.Task, error) // overrides List when set
	next    int
}

func newFakeStore(tasks ...types.Task) *fakeStore {
	return &fakeStore{tasks: tasks, calls: map[string]int{}}
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = err
}

func (f *fakeStore) List(ctx context.Context) ([]types.Task, error) {
	f.mu.Lock()
	f.calls["list"]++
	call := f.calls["list"]
	hook, fail := f.list, f.failAll
	out := cloneTasks(f.tasks)
	f.mu.Unlock()

	if hook != nil {
		return hook(call)
	}
	if fail != nil {
		return nil, fail
	}
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, task types.Task) (types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++
	if f.failAll != nil {
		return types.Task{}, f.failAll
	}
	f.next++
	task.ID = fmt.Sprintf("task-%d", f.next)
	task.Status = types.StatusTodo
	task.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, patch types.Patch) (types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	if f.failAll != nil {
		return types.Task{}, f.failAll
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			transition.Update(&f.tasks[i], patch, time.Now())
			return f.tasks[i].Clone(), nil
		}
	}
	return types.Task{}, types.ErrNotFound
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	if f.failAll != nil {
		return f.failAll
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return types.ErrNotFound
}

func (f *fakeStore) History(ctx context.Context) ([]types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["history"]++
	if f.failAll != nil {
		return nil, f.failAll
	}
	return types.History(f.tasks), nil
}

func (f *fakeStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["close"]++
	return nil
}

// recorder collects notices.
type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}
