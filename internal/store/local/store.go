// Package local implements the storage-backed Store: the whole task
// collection lives in one named slot, a JSON file in the data directory that
// is rewritten in full on every mutation.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/taskboard/internal/transition"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// Compile-time interface check: Store must implement types.Store.
var _ types.Store = (*Store)(nil)

// Options configures Open.
type Options struct {
	DataDir  string
	Slot     string
	Assignee string // owner of the seed tasks
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Store keeps the task collection in a single durable slot. The slot file is
// the source of truth: every operation reads it, and every mutation writes
// it back before returning.
type Store struct {
	mu     sync.Mutex
	path   string
	closed bool
	now    func() time.Time
	log    zerolog.Logger

	// lastWrite is the modification time of the slot after our own most
	// recent write, so the watcher can ignore it.
	lastWrite time.Time
	watchers  []*watcher
}

// Open reads the slot, creating DataDir if needed. A missing slot is seeded
// with a small starter collection and written immediately.
func Open(opts Options) (*Store, error) {
	if opts.Slot == "" {
		opts.Slot = types.DefaultSlot
	}
	if opts.DataDir == "" {
		opts.DataDir = "."
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	dataDir, err := filepath.Abs(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{
		path: slotFile(dataDir, opts.Slot),
		now:  opts.Now,
		log:  opts.Logger.With().Str("cmp", "local-store").Logger(),
	}

	_, exists, err := readSlot(s.path)
	if err != nil {
		return nil, err
	}
	if !exists {
		seed := seedTasks(s.now().UTC(), opts.Assignee)
		if err := s.write(seed); err != nil {
			return nil, fmt.Errorf("seed slot: %w", err)
		}
		s.log.Info().Str("path", s.path).Int("tasks", len(seed)).Msg("seeded new slot")
	}

	return s, nil
}

// Path returns the slot file location.
func (s *Store) Path() string { return s.path }

// List returns the stored collection in slot order.
func (s *Store) List(ctx context.Context) ([]types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []types.Task{}
	}
	return tasks, nil
}

// Create appends a new task. ID, CreatedAt and UpdatedAt are assigned here
// and Status is forced to TODO.
func (s *Store) Create(ctx context.Context, task types.Task) (types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load(ctx)
	if err != nil {
		return types.Task{}, err
	}

	now := s.now().UTC()
	task = task.Clone()
	task.ID = types.NewID()
	task.Status = types.StatusTodo
	task.CreatedAt = now
	task.StartedAt = nil
	task.CompletedAt = nil
	task.UpdatedAt = &now

	tasks = append(tasks, task)
	if err := s.write(tasks); err != nil {
		return types.Task{}, fmt.Errorf("persisting slot: %w", err)
	}
	return task.Clone(), nil
}

// Update merges patch into the task with the given ID.
func (s *Store) Update(ctx context.Context, id string, patch types.Patch) (types.Task, error) {
	if id == "" {
		return types.Task{}, types.ErrInvalidID
	}
	if err := patch.Validate(); err != nil {
		return types.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load(ctx)
	if err != nil {
		return types.Task{}, err
	}

	i := indexOf(tasks, id)
	if i < 0 {
		return types.Task{}, types.ErrNotFound
	}

	now := s.now().UTC()
	transition.Update(&tasks[i], patch, now)
	tasks[i].UpdatedAt = &now

	if err := s.write(tasks); err != nil {
		return types.Task{}, fmt.Errorf("persisting slot: %w", err)
	}
	return tasks[i].Clone(), nil
}

// Delete removes the task with the given ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load(ctx)
	if err != nil {
		return err
	}

	i := indexOf(tasks, id)
	if i < 0 {
		return types.ErrNotFound
	}
	tasks = append(tasks[:i], tasks[i+1:]...)

	if err := s.write(tasks); err != nil {
		return fmt.Errorf("persisting slot: %w", err)
	}
	return nil
}

// History returns the done tasks, most recently completed first.
func (s *Store) History(ctx context.Context) ([]types.Task, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return types.History(tasks), nil
}

// Close stops any watchers. Further operations return ErrStoreClosed.
// Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	watchers := s.watchers
	s.watchers = nil
	s.closed = true
	s.mu.Unlock()

	for _, w := range watchers {
		w.close()
	}
	return nil
}

// load reads the slot. The caller must hold s.mu.
func (s *Store) load(ctx context.Context) ([]types.Task, error) {
	if s.closed {
		return nil, types.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tasks, _, err := readSlot(s.path)
	return tasks, err
}

// write persists the collection and records the resulting modification time.
// The caller must hold s.mu, except during Open.
func (s *Store) write(tasks []types.Task) error {
	if err := writeSlot(s.path, tasks); err != nil {
		return err
	}
	if info, err := os.Stat(s.path); err == nil {
		s.lastWrite = info.ModTime()
	}
	return nil
}

func indexOf(tasks []types.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
