package types

import (
	"strings"

	"github.com/hay-kot/criterio"
)

// DefaultPriority is the priority a new form starts with.
const DefaultPriority = 75

// UrgentThreshold is the priority at or above which a new task is marked urgent.
const UrgentThreshold = 75

// Draft is the task form: the fields a user fills in to create or edit a task.
type Draft struct {
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	Priority         int    `json:"priority"`
	AutoExecutable   bool   `json:"autoExecutable"`
	ExecutionCommand string `json:"executionCommand,omitempty"`
}

// Normalize trims free-text fields and drops the execution command when the
// task is not auto-executable.
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.ExecutionCommand = strings.TrimSpace(d.ExecutionCommand)
	if !d.AutoExecutable {
		d.ExecutionCommand = ""
	}
	return d
}

// Validate returns a *ValidationError when the title is empty after trimming
// or the priority is negative.
func (d Draft) Validate() error {
	d = d.Normalize()
	err := criterio.ValidateStruct(
		criterio.Run("title", d.Title, requireTitle),
		criterio.Run("priority", d.Priority, nonNegative),
	)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// Task builds the task a create request sends to the store. Urgency derives
// from the priority; Important is always set, as the board form does.
func (d Draft) Task(assignee string) Task {
	d = d.Normalize()
	return Task{
		Title:            d.Title,
		Description:      d.Description,
		Status:           StatusTodo,
		Priority:         d.Priority,
		Urgent:           d.Priority >= UrgentThreshold,
		Important:        true,
		AutoExecutable:   d.AutoExecutable,
		ExecutionCommand: d.ExecutionCommand,
		Assignee:         assignee,
	}
}

// Patch builds the update an edit submission sends to the store. Every form
// field is resubmitted, so the patch overwrites them all.
func (d Draft) Patch(assignee string) Patch {
	t := d.Task(assignee)
	return Patch{
		Title:            &t.Title,
		Description:      &t.Description,
		Priority:         &t.Priority,
		Urgent:           &t.Urgent,
		Important:        &t.Important,
		AutoExecutable:   &t.AutoExecutable,
		ExecutionCommand: &t.ExecutionCommand,
		Assignee:         &t.Assignee,
	}
}

// DraftFrom prefills a form from an existing task.
func DraftFrom(t Task) Draft {
	return Draft{
		Title:            t.Title,
		Description:      t.Description,
		Priority:         t.Priority,
		AutoExecutable:   t.AutoExecutable,
		ExecutionCommand: t.ExecutionCommand,
	}
}

func requireTitle(title string) error {
	if title == "" {
		return ErrTitleRequired
	}
	return nil
}

func nonNegative(n int) error {
	if n < 0 {
		return ErrNegativePriority
	}
	return nil
}
