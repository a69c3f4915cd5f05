package board

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/taskboard/internal/transition"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// Options configures New.
type Options struct {
	Assignee     string
	SyncInterval time.Duration
	Notifier     Notifier
	Logger       zerolog.Logger
	Now          func() time.Time
}

// Board is the entry point for user actions. It owns the Store, the
// Repository and the Syncer built on top of it.
type Board struct {
	store    types.Store
	repo     *Repository
	syncer   *Syncer
	notifier Notifier
	assignee string
	log      zerolog.Logger
	now      func() time.Time
}

// DeleteRequest is the first half of a two-phase delete. Dropping it
// cancels the delete.
type DeleteRequest struct {
	ID    string
	Title string
}

// New wires a Board around store.
func New(store types.Store, opts Options) *Board {
	if opts.Assignee == "" {
		opts.Assignee = types.DefaultAssignee
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = discard
	}

	repo := NewRepository(store)
	repo.now = opts.Now
	syncer := NewSyncer(repo, opts.SyncInterval, opts.Logger)
	syncer.now = opts.Now

	return &Board{
		store:    store,
		repo:     repo,
		syncer:   syncer,
		notifier: opts.Notifier,
		assignee: opts.Assignee,
		log:      opts.Logger.With().Str("cmp", "board").Logger(),
		now:      opts.Now,
	}
}

// Repository returns the task cache.
func (b *Board) Repository() *Repository { return b.repo }

// Syncer returns the refresh controller.
func (b *Board) Syncer() *Syncer { return b.syncer }

// Store returns the store the board writes through.
func (b *Board) Store() types.Store { return b.store }

// Submit saves the task form. With an empty editingID it creates a task,
// otherwise it overwrites the form fields of the task with that ID. An
// invalid form is rejected before any store call.
func (b *Board) Submit(ctx context.Context, editingID string, draft types.Draft) (types.Task, error) {
	if err := draft.Validate(); err != nil {
		b.fail("Task not saved", err)
		return types.Task{}, err
	}

	var (
		task types.Task
		err  error
		verb string
	)
	if editingID == "" {
		verb = "created"
		task, err = b.store.Create(ctx, draft.Task(b.assignee))
	} else {
		verb = "updated"
		task, err = b.store.Update(ctx, editingID, draft.Patch(b.assignee))
	}
	if err != nil {
		b.fail("Task not saved", err)
		return types.Task{}, fmt.Errorf("save task: %w", err)
	}

	b.refreshAfterWrite(ctx)
	b.notify(NoticeSuccess, fmt.Sprintf("Task %q %s", task.Title, verb))
	return task, nil
}

// Move changes the status of a cached task. Moving a task to the status it
// already has writes nothing and reports false.
func (b *Board) Move(ctx context.Context, id string, target types.Status) (types.Task, bool, error) {
	if !target.Valid() {
		err := fmt.Errorf("%w: %q", types.ErrInvalidStatus, target)
		b.fail("Task not moved", err)
		return types.Task{}, false, err
	}
	task, ok := b.repo.Get(id)
	if !ok {
		b.fail("Task not moved", types.ErrNotFound)
		return types.Task{}, false, types.ErrNotFound
	}

	patch, changed := transition.Plan(task, target, b.now().UTC())
	if !changed {
		return task, false, nil
	}

	updated, err := b.store.Update(ctx, id, patch)
	if err != nil {
		b.fail("Task not moved", err)
		return types.Task{}, false, fmt.Errorf("move task: %w", err)
	}

	b.refreshAfterWrite(ctx)
	b.notify(NoticeSuccess, fmt.Sprintf("Task %q moved to %s", updated.Title, updated.Status))
	return updated, true, nil
}

// RequestDelete starts a delete for a cached task. Pass the request to
// ConfirmDelete to carry it out.
func (b *Board) RequestDelete(id string) (DeleteRequest, error) {
	task, ok := b.repo.Get(id)
	if !ok {
		return DeleteRequest{}, types.ErrNotFound
	}
	return DeleteRequest{ID: task.ID, Title: task.Title}, nil
}

// ConfirmDelete removes the task named by req.
func (b *Board) ConfirmDelete(ctx context.Context, req DeleteRequest) error {
	if err := b.store.Delete(ctx, req.ID); err != nil {
		b.fail("Task not deleted", err)
		return fmt.Errorf("delete task: %w", err)
	}

	b.refreshAfterWrite(ctx)
	b.notify(NoticeSuccess, fmt.Sprintf("Task %q deleted", req.Title))
	return nil
}

// History returns the completed tasks from the store, most recent first.
func (b *Board) History(ctx context.Context) ([]types.Task, error) {
	tasks, err := b.store.History(ctx)
	if err != nil {
		b.fail("History unavailable", err)
		return nil, fmt.Errorf("load history: %w", err)
	}
	return tasks, nil
}

// Close releases the store.
func (b *Board) Close() error {
	return b.store.Close()
}

// refreshAfterWrite reloads the cache after a successful write. A failed
// reload only affects connectivity; the write itself stands.
func (b *Board) refreshAfterWrite(ctx context.Context) {
	_ = b.syncer.Sync(ctx)
}

func (b *Board) notify(level NoticeLevel, msg string) {
	b.notifier.Notify(Notice{Level: level, Message: msg})
}

func (b *Board) fail(msg string, err error) {
	b.log.Error().Err(err).Msg(msg)
	b.notifier.Notify(Notice{Level: NoticeError, Message: fmt.Sprintf("%s: %v", msg, err), Err: err})
}
