// Package api implements the remote Store: every operation is one HTTP
// exchange with the task API (GET/POST /tasks, PUT/DELETE /tasks/{id},
// GET /history).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// Compile-time interface check: Store must implement types.Store.
var _ types.Store = (*Store)(nil)

// maxErrorBody bounds how much of a failed response is kept for logging.
const maxErrorBody = 4 << 10

// Options configures New.
type Options struct {
	BaseURL string
	Timeout time.Duration // 0 uses the transport default
	Client  *http.Client  // overrides Timeout when set
	Logger  zerolog.Logger
}

// Store talks to a remote task API.
type Store struct {
	base   string
	client *http.Client
	log    zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// New returns a Store for the API rooted at opts.BaseURL.
func New(opts Options) (*Store, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = types.DefaultBaseURL
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse base URL %q: %w", opts.BaseURL, types.ErrBaseURLInvalid)
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Store{
		base:   strings.TrimRight(opts.BaseURL, "/"),
		client: client,
		log:    opts.Logger.With().Str("cmp", "api-store").Logger(),
	}, nil
}

// BaseURL returns the API root requests are sent to.
func (s *Store) BaseURL() string { return s.base }

// List fetches the whole collection.
func (s *Store) List(ctx context.Context) ([]types.Task, error) {
	var tasks []types.Task
	if err := s.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []types.Task{}
	}
	return tasks, nil
}

// Create posts a new task. The server assigns ID and CreatedAt and forces
// the status to TODO.
func (s *Store) Create(ctx context.Context, task types.Task) (types.Task, error) {
	task.ID = ""
	task.Status = types.StatusTodo

	var created types.Task
	if err := s.do(ctx, http.MethodPost, "/tasks", task, &created); err != nil {
		return types.Task{}, err
	}
	return created, nil
}

// Update sends patch as a partial PUT.
func (s *Store) Update(ctx context.Context, id string, patch types.Patch) (types.Task, error) {
	if id == "" {
		return types.Task{}, types.ErrInvalidID
	}
	if err := patch.Validate(); err != nil {
		return types.Task{}, err
	}

	var updated types.Task
	if err := s.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), patch, &updated); err != nil {
		return types.Task{}, err
	}
	return updated, nil
}

// Delete removes a task. The API answers 204 with no body.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	return s.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// History fetches completed tasks, most recently completed first.
func (s *Store) History(ctx context.Context) ([]types.Task, error) {
	var tasks []types.Task
	if err := s.do(ctx, http.MethodGet, "/history", nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []types.Task{}
	}
	return tasks, nil
}

// Close drops idle connections. Further operations return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.client.CloseIdleConnections()
	return nil
}

// do performs one request. A network failure or a non-2xx answer becomes a
// *types.TransportError; out may be nil when no body is expected.
func (s *Store) do(ctx context.Context, method, path string, in, out any) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return types.ErrStoreClosed
	}

	endpoint := s.base + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Debug().Err(err).Str("method", method).Str("url", endpoint).Msg("request failed")
		return &types.TransportError{Method: method, URL: endpoint, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.log.Debug().Err(err).Msg("close response body")
		}
	}()

	s.log.Debug().
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.log.Debug().Int("status", resp.StatusCode).Bytes("body", bytes.TrimSpace(msg)).Msg("non-2xx response")
		return &types.TransportError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
