package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskboard/internal/server"
	"github.com/mesh-intelligence/taskboard/internal/store/local"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

func ptr[T any](v T) *T { return &v }

// newRemote starts the reference server over a temp local store and returns
// an api Store pointed at it.
func newRemote(t *testing.T) *Store {
	t.Helper()
	backing, err := local.Open(local.Options{DataDir: t.TempDir(), Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { backing.Close() })

	ts := httptest.NewServer(server.New(backing, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)

	s, err := New(Options{BaseURL: ts.URL + "/api/", Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{"default", "", types.DefaultBaseURL, false},
		{"trailing slash", "http://localhost:3001/api/", "http://localhost:3001/api", false},
		{"relative", "/api", "", true},
		{"garbage", "::", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(Options{BaseURL: tt.baseURL})
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrBaseURLInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.BaseURL())
		})
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newRemote(t)

	tasks, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	created, err := s.Create(ctx, types.Task{Title: "remote", Status: types.StatusDone, Priority: 60})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, types.StatusTodo, created.Status)

	updated, err := s.Update(ctx, created.ID, types.Patch{Status: ptr(types.StatusDone)})
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	history, err := s.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, created.ID, history[0].ID)

	require.NoError(t, s.Delete(ctx, created.ID))

	err = s.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, types.ErrNotFound, "deleting twice fails")

	var te *types.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Equal(t, "Not Found", te.Status)
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	s := newRemote(t)
	_, err := s.Update(context.Background(), "missing", types.Patch{Title: ptr("x")})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestServerErrorIsTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer ts.Close()

	s, err := New(Options{BaseURL: ts.URL + "/api"})
	require.NoError(t, err)

	_, err = s.List(context.Background())
	var te *types.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Equal(t, "Internal Server Error", te.Status)
	assert.Equal(t, http.MethodGet, te.Method)
	assert.Equal(t, ts.URL+"/api/tasks", te.URL)
	assert.False(t, errors.Is(err, types.ErrNotFound))
}

func TestUnreachableIsTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	s, err := New(Options{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = s.List(context.Background())
	var te *types.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.Error(t, te.Err)
}

func TestRequestShape(t *testing.T) {
	var gotMethod, gotPath, gotType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"a b","title":"t","status":"DOING","createdAt":"2026-01-01T00:00:00Z"}`))
	}))
	defer ts.Close()

	s, err := New(Options{BaseURL: ts.URL + "/api"})
	require.NoError(t, err)

	task, err := s.Update(context.Background(), "a b", types.Patch{Status: ptr(types.StatusDoing)})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/tasks/a b", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, types.StatusDoing, task.Status)
}

func TestValidationBeforeRequest(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer ts.Close()

	s, err := New(Options{BaseURL: ts.URL})
	require.NoError(t, err)

	_, err = s.Update(context.Background(), "x", types.Patch{Status: ptr(types.Status("LATER"))})
	assert.ErrorIs(t, err, types.ErrInvalidStatus)
	assert.ErrorIs(t, s.Delete(context.Background(), ""), types.ErrInvalidID)
	assert.Zero(t, calls)
}

func TestClosed(t *testing.T) {
	s, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.List(context.Background())
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}
