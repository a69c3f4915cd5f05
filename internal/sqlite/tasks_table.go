package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/taskboard/internal/transition"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// List returns every task in insertion order.
func (b *Backend) List(ctx context.Context) ([]types.Task, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreClosed
	}
	return queryTasks(ctx, b.db, "SELECT "+taskColumns+" FROM tasks ORDER BY rowid ASC")
}

// Create inserts a new task with a fresh UUID v7, status TODO and
// createdAt/updatedAt set to now.
func (b *Backend) Create(ctx context.Context, task types.Task) (types.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.Task{}, types.ErrStoreClosed
	}

	now := b.now().UTC()
	task = task.Clone()
	task.ID = types.NewID()
	task.Status = types.StatusTodo
	task.CreatedAt = now
	task.StartedAt = nil
	task.CompletedAt = nil
	task.UpdatedAt = &now

	if _, err := b.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		taskArgs(task)...,
	); err != nil {
		return types.Task{}, fmt.Errorf("inserting task: %w", err)
	}

	if err := b.persistAllTasksJSONL(ctx); err != nil {
		return types.Task{}, fmt.Errorf("persisting %s: %w", tasksJSONL, err)
	}
	return task, nil
}

// Update merges patch into the stored task, stamps lifecycle timestamps for
// a status change and refreshes updatedAt.
func (b *Backend) Update(ctx context.Context, id string, patch types.Patch) (types.Task, error) {
	if id == "" {
		return types.Task{}, types.ErrInvalidID
	}
	if err := patch.Validate(); err != nil {
		return types.Task{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.Task{}, types.ErrStoreClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Task{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := hydrateTask(tx.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE task_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Task{}, types.ErrNotFound
	}
	if err != nil {
		return types.Task{}, fmt.Errorf("getting task %s: %w", id, err)
	}

	now := b.now().UTC()
	transition.Update(&task, patch, now)
	task.UpdatedAt = &now

	args := append(taskArgs(task)[1:], task.ID)
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET
    title = ?, description = ?, status = ?, priority = ?, urgent = ?, important = ?,
    auto_executable = ?, execution_command = ?, assignee = ?, created_at = ?,
    started_at = ?, completed_at = ?, updated_at = ?
    WHERE task_id = ?`, args...); err != nil {
		return types.Task{}, fmt.Errorf("updating task %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return types.Task{}, fmt.Errorf("committing task: %w", err)
	}

	if err := b.persistAllTasksJSONL(ctx); err != nil {
		return types.Task{}, fmt.Errorf("persisting %s: %w", tasksJSONL, err)
	}
	return task, nil
}

// Delete removes a task. A second delete of the same ID returns ErrNotFound.
func (b *Backend) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreClosed
	}

	res, err := b.db.ExecContext(ctx, "DELETE FROM tasks WHERE task_id = ?", id)
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

	if err := b.persistAllTasksJSONL(ctx); err != nil {
		return fmt.Errorf("persisting %s: %w", tasksJSONL, err)
	}
	return nil
}

// History returns the done tasks, most recently completed first. Tasks
// without a completion time sort last.
func (b *Backend) History(ctx context.Context) ([]types.Task, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreClosed
	}
	return queryTasks(ctx, b.db, "SELECT "+taskColumns+` FROM tasks
    WHERE status = 'DONE'
    ORDER BY completed_at IS NULL, completed_at DESC, rowid ASC`)
}

// persistAllTasksJSONL reads all tasks from SQLite and rewrites tasks.jsonl.
// The caller must hold b.mu.
func (b *Backend) persistAllTasksJSONL(ctx context.Context) error {
	tasks, err := queryTasks(ctx, b.db, "SELECT "+taskColumns+" FROM tasks ORDER BY rowid ASC")
	if err != nil {
		return err
	}

	records := make([]json.RawMessage, 0, len(tasks))
	for _, t := range tasks {
		data, err := json.Marshal(recordFromTask(t))
		if err != nil {
			return fmt.Errorf("marshaling task for JSONL: %w", err)
		}
		records = append(records, data)
	}
	return persistTasksJSONL(b.dataDir, records)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryTasks(ctx context.Context, q queryer, query string) ([]types.Task, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []types.Task{}
	for rows.Next() {
		t, err := hydrateTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// hydrateTask converts a row selected with taskColumns into a types.Task.
func hydrateTask(row scanner) (types.Task, error) {
	var (
		rec                             taskRecord
		startedAt, completedAt, updated sql.NullString
	)
	if err := row.Scan(
		&rec.TaskID, &rec.Title, &rec.Description, &rec.Status, &rec.Priority,
		&rec.Urgent, &rec.Important, &rec.AutoExecutable, &rec.ExecutionCommand,
		&rec.Assignee, &rec.CreatedAt, &startedAt, &completedAt, &updated,
	); err != nil {
		return types.Task{}, err
	}
	rec.StartedAt = nullString(startedAt)
	rec.CompletedAt = nullString(completedAt)
	rec.UpdatedAt = nullString(updated)
	return rec.task()
}

// taskArgs returns the insert arguments in taskColumns order.
func taskArgs(t types.Task) []any {
	r := recordFromTask(t)
	return []any{
		r.TaskID, r.Title, r.Description, r.Status, r.Priority,
		r.Urgent, r.Important, r.AutoExecutable, r.ExecutionCommand,
		r.Assignee, r.CreatedAt, r.StartedAt, r.CompletedAt, r.UpdatedAt,
	}
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
