package types

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hay-kot/criterio"
)

// Store is the persistence boundary of the board. Implementations are
// interchangeable and chosen once at startup.
type Store interface {
	// List returns every task in the order the store keeps them.
	List(ctx context.Context) ([]Task, error)

	// Create persists a new task. The store assigns ID and CreatedAt and
	// forces Status to StatusTodo regardless of the input.
	Create(ctx context.Context, task Task) (Task, error)

	// Update merges patch into the task with the given ID and returns the
	// result. Returns ErrNotFound if no task has that ID.
	Update(ctx context.Context, id string, patch Patch) (Task, error)

	// Delete removes the task with the given ID. Returns ErrNotFound if no
	// task has that ID, including on a second delete of the same ID.
	Delete(ctx context.Context, id string) error

	// History returns done tasks, most recently completed first.
	History(ctx context.Context) ([]Task, error)

	// Close releases the resources held by the store.
	Close() error
}

// Store operation errors.
var (
	ErrNotFound    = errors.New("task not found")
	ErrInvalidID   = errors.New("invalid task ID")
	ErrStoreClosed = errors.New("store is closed")
)

// Task validation errors.
var (
	ErrValidation       = errors.New("validation failed")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrTitleRequired    = errors.New("title is required")
	ErrNegativePriority = errors.New("priority must not be negative")
)

// ValidationError reports form input rejected before any store call. It
// matches ErrValidation with errors.Is and exposes the criterio field errors
// with errors.As.
type ValidationError struct {
	Err error
}

func newValidationError(field string, err error) *ValidationError {
	return &ValidationError{Err: criterio.NewFieldErrors(field, err)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// TransportError reports a failed exchange with the remote API: either a
// non-2xx response (StatusCode and Status set) or a network failure (Err set).
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d: %s (%s %s)", e.StatusCode, e.Status, e.Method, e.URL)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap exposes the network error, or ErrNotFound for a 404 response so
// that callers can treat a missing remote task like a missing local one.
func (e *TransportError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return e.Err
}
