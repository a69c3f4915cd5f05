package sqlite

import "errors"

// ErrAlreadyAttached is returned by Attach on an attached backend.
var ErrAlreadyAttached = errors.New("backend already attached")

// Schema DDL. Rows are listed in rowid order, which is insertion order.
const (
	createTasks = `CREATE TABLE tasks (
    task_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK (status IN ('TODO', 'DOING', 'DONE')),
    priority INTEGER NOT NULL DEFAULT 0,
    urgent INTEGER NOT NULL DEFAULT 0,
    important INTEGER NOT NULL DEFAULT 0,
    auto_executable INTEGER NOT NULL DEFAULT 0,
    execution_command TEXT NOT NULL DEFAULT '',
    assignee TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    started_at TEXT,
    completed_at TEXT,
    updated_at TEXT
);`

	idxTasksStatus = `CREATE INDEX idx_tasks_status ON tasks(status);`
)

// taskColumns lists the columns in the order every query selects them.
const taskColumns = `task_id, title, description, status, priority, urgent, important,
    auto_executable, execution_command, assignee, created_at, started_at, completed_at, updated_at`

var schemaDDL = []string{createTasks}

var indexDDL = []string{idxTasksStatus}
