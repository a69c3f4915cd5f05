package sqlite

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// timeLayout is RFC 3339 with fixed-width nanoseconds so that stored
// timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// taskRecord is one line of tasks.jsonl. Unknown fields are ignored on load.
type taskRecord struct {
	TaskID           string  `json:"task_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Status           string  `json:"status"`
	Priority         int     `json:"priority"`
	Urgent           bool    `json:"urgent"`
	Important        bool    `json:"important"`
	AutoExecutable   bool    `json:"auto_executable"`
	ExecutionCommand string  `json:"execution_command"`
	Assignee         string  `json:"assignee"`
	CreatedAt        string  `json:"created_at"`
	StartedAt        *string `json:"started_at"`
	CompletedAt      *string `json:"completed_at"`
	UpdatedAt        *string `json:"updated_at"`
}

func recordFromTask(t types.Task) taskRecord {
	return taskRecord{
		TaskID:           t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Status:           string(t.Status),
		Priority:         t.Priority,
		Urgent:           t.Urgent,
		Important:        t.Important,
		AutoExecutable:   t.AutoExecutable,
		ExecutionCommand: t.ExecutionCommand,
		Assignee:         t.Assignee,
		CreatedAt:        formatTime(t.CreatedAt),
		StartedAt:        formatTimePtr(t.StartedAt),
		CompletedAt:      formatTimePtr(t.CompletedAt),
		UpdatedAt:        formatTimePtr(t.UpdatedAt),
	}
}

func (r taskRecord) task() (types.Task, error) {
	status := types.Status(r.Status)
	if !status.Valid() {
		return types.Task{}, fmt.Errorf("task %s: %w: %q", r.TaskID, types.ErrInvalidStatus, r.Status)
	}
	t := types.Task{
		ID:               r.TaskID,
		Title:            r.Title,
		Description:      r.Description,
		Status:           status,
		Priority:         r.Priority,
		Urgent:           r.Urgent,
		Important:        r.Important,
		AutoExecutable:   r.AutoExecutable,
		ExecutionCommand: r.ExecutionCommand,
		Assignee:         r.Assignee,
	}

	var err error
	if t.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return types.Task{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if t.StartedAt, err = parseTimePtr(r.StartedAt); err != nil {
		return types.Task{}, fmt.Errorf("parsing started_at: %w", err)
	}
	if t.CompletedAt, err = parseTimePtr(r.CompletedAt); err != nil {
		return types.Task{}, fmt.Errorf("parsing completed_at: %w", err)
	}
	if t.UpdatedAt, err = parseTimePtr(r.UpdatedAt); err != nil {
		return types.Task{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
