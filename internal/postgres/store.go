// Package postgres implements the server-side task store on PostgreSQL
// through lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/taskboard/internal/transition"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// Compile-time interface check: Store must implement types.Store.
var _ types.Store = (*Store)(nil)

const createTasks = `CREATE TABLE IF NOT EXISTS tasks (
    seq BIGSERIAL UNIQUE,
    task_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK (status IN ('TODO', 'DOING', 'DONE')),
    priority INTEGER NOT NULL DEFAULT 0,
    urgent BOOLEAN NOT NULL DEFAULT FALSE,
    important BOOLEAN NOT NULL DEFAULT FALSE,
    auto_executable BOOLEAN NOT NULL DEFAULT FALSE,
    execution_command TEXT NOT NULL DEFAULT '',
    assignee TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    started_at TIMESTAMPTZ,
    completed_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ
)`

const taskColumns = `task_id, title, description, status, priority, urgent, important,
    auto_executable, execution_command, assignee, created_at, started_at, completed_at, updated_at`

// Store keeps tasks in a PostgreSQL table.
type Store struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Connect opens dsn, checks the connection and creates the tasks table if
// it does not exist.
func Connect(ctx context.Context, dsn string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTasks); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{
		db:  db,
		now: time.Now,
		log: logger.With().Str("cmp", "postgres").Logger(),
	}
	s.log.Info().Msg("connected")
	return s, nil
}

// List returns every task in insertion order.
func (s *Store) List(ctx context.Context) ([]types.Task, error) {
	if s.closed.Load() {
		return nil, types.ErrStoreClosed
	}
	return s.query(ctx, "SELECT "+taskColumns+" FROM tasks ORDER BY seq ASC")
}

// Create inserts a new TODO task with a fresh ID.
func (s *Store) Create(ctx context.Context, task types.Task) (types.Task, error) {
	if s.closed.Load() {
		return types.Task{}, types.ErrStoreClosed
	}
	now := s.timestamp()
	task = task.Clone()
	task.ID = types.NewID()
	task.Status = types.StatusTodo
	task.CreatedAt = now
	task.StartedAt = nil
	task.CompletedAt = nil
	task.UpdatedAt = &now

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)",
		taskArgs(task)...,
	)
	if err != nil {
		return types.Task{}, fmt.Errorf("inserting task: %w", err)
	}
	return task, nil
}

// Update merges patch into the stored task inside a transaction. The row is
// locked for the duration so concurrent updates apply in turn.
func (s *Store) Update(ctx context.Context, id string, patch types.Patch) (types.Task, error) {
	if id == "" {
		return types.Task{}, types.ErrInvalidID
	}
	if err := patch.Validate(); err != nil {
		return types.Task{}, err
	}
	if s.closed.Load() {
		return types.Task{}, types.ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Task{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := scanTask(tx.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE task_id = $1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Task{}, types.ErrNotFound
	}
	if err != nil {
		return types.Task{}, fmt.Errorf("getting task %s: %w", id, err)
	}

	now := s.timestamp()
	transition.Update(&task, patch, now)
	task.UpdatedAt = &now

	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET
    title = $2, description = $3, status = $4, priority = $5, urgent = $6, important = $7,
    auto_executable = $8, execution_command = $9, assignee = $10, created_at = $11,
    started_at = $12, completed_at = $13, updated_at = $14
    WHERE task_id = $1`, taskArgs(task)...); err != nil {
		return types.Task{}, fmt.Errorf("updating task %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return types.Task{}, fmt.Errorf("committing task: %w", err)
	}
	return task, nil
}

// Delete removes a task. Returns ErrNotFound when no row matched.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	if s.closed.Load() {
		return types.ErrStoreClosed
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE task_id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// History returns done tasks, most recently completed first.
func (s *Store) History(ctx context.Context) ([]types.Task, error) {
	if s.closed.Load() {
		return nil, types.ErrStoreClosed
	}
	return s.query(ctx, "SELECT "+taskColumns+` FROM tasks
    WHERE status = 'DONE'
    ORDER BY completed_at DESC NULLS LAST, seq ASC`)
}

// Close closes the connection pool. Close is idempotent.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *Store) query(ctx context.Context, query string) ([]types.Task, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []types.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// timestamp returns now at the microsecond precision of TIMESTAMPTZ.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (types.Task, error) {
	var (
		t                                 types.Task
		status                            string
		startedAt, completedAt, updatedAt sql.NullTime
	)
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &status, &t.Priority,
		&t.Urgent, &t.Important, &t.AutoExecutable, &t.ExecutionCommand,
		&t.Assignee, &t.CreatedAt, &startedAt, &completedAt, &updatedAt,
	); err != nil {
		return types.Task{}, err
	}
	t.Status = types.Status(status)
	if !t.Status.Valid() {
		return types.Task{}, fmt.Errorf("task %s: %w: %q", t.ID, types.ErrInvalidStatus, status)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.StartedAt = nullTime(startedAt)
	t.CompletedAt = nullTime(completedAt)
	t.UpdatedAt = nullTime(updatedAt)
	return t, nil
}

func taskArgs(t types.Task) []any {
	return []any{
		t.ID, t.Title, t.Description, string(t.Status), t.Priority,
		t.Urgent, t.Important, t.AutoExecutable, t.ExecutionCommand,
		t.Assignee, t.CreatedAt, t.StartedAt, t.CompletedAt, t.UpdatedAt,
	}
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time.UTC()
	return &v
}
