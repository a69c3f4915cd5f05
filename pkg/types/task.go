package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the board column a task sits in.
type Status string

// Task statuses. A task is created in StatusTodo and may move between any
// two statuses.
const (
	StatusTodo  Status = "TODO"
	StatusDoing Status = "DOING"
	StatusDone  Status = "DONE"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusTodo, StatusDoing, StatusDone}

// Valid reports whether s is one of the three board statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusDone:
		return true
	}
	return false
}

// ParseStatus converts user input to a Status. Matching is case-insensitive.
// Returns ErrInvalidStatus for anything outside the three board statuses.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// UnmarshalJSON rejects statuses outside the board set so that no decoded
// task can carry one.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Task is the unit of work tracked by the board.
type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           Status     `json:"status"`
	Priority         int        `json:"priority"`
	Urgent           bool       `json:"urgent"`
	Important        bool       `json:"important"`
	AutoExecutable   bool       `json:"autoExecutable"`
	ExecutionCommand string     `json:"executionCommand,omitempty"`
	Assignee         string     `json:"assignee,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy of the task. Timestamp pointers are not shared.
func (t Task) Clone() Task {
	t.StartedAt = cloneTime(t.StartedAt)
	t.CompletedAt = cloneTime(t.CompletedAt)
	t.UpdatedAt = cloneTime(t.UpdatedAt)
	return t
}

// AutoExecPending reports whether the task counts toward the auto-exec
// pending total: flagged auto-executable and not yet done.
func (t Task) AutoExecPending() bool {
	return t.AutoExecutable && t.Status != StatusDone
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Patch is a partial task update. Nil fields are left untouched. ID and
// CreatedAt are immutable and have no patch field.
type Patch struct {
	Title            *string    `json:"title,omitempty"`
	Description      *string    `json:"description,omitempty"`
	Status           *Status    `json:"status,omitempty"`
	Priority         *int       `json:"priority,omitempty"`
	Urgent           *bool      `json:"urgent,omitempty"`
	Important        *bool      `json:"important,omitempty"`
	AutoExecutable   *bool      `json:"autoExecutable,omitempty"`
	ExecutionCommand *string    `json:"executionCommand,omitempty"`
	Assignee         *string    `json:"assignee,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Apply merges the non-nil editable fields of p into t. StartedAt and
// CompletedAt are left alone: they are stamped by a status transition, never
// copied from an edit.
func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Urgent != nil {
		t.Urgent = *p.Urgent
	}
	if p.Important != nil {
		t.Important = *p.Important
	}
	if p.AutoExecutable != nil {
		t.AutoExecutable = *p.AutoExecutable
	}
	if p.ExecutionCommand != nil {
		t.ExecutionCommand = *p.ExecutionCommand
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
}

// Validate checks the fields a patch may carry.
func (p Patch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return newValidationError("title", ErrTitleRequired)
	}
	return nil
}

// Counts holds the per-column totals shown on the board.
type Counts struct {
	Todo            int `json:"todo"`
	Doing           int `json:"doing"`
	Done            int `json:"done"`
	AutoExecPending int `json:"autoExecPending"`
}

// CountTasks computes the column totals for a task collection.
func CountTasks(tasks []Task) Counts {
	var c Counts
	for _, t := range tasks {
		switch t.Status {
		case StatusTodo:
			c.Todo++
		case StatusDoing:
			c.Doing++
		case StatusDone:
			c.Done++
		}
		if t.AutoExecPending() {
			c.AutoExecPending++
		}
	}
	return c
}
