package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskboard/internal/logging"
	"github.com/mesh-intelligence/taskboard/internal/server"
	"github.com/mesh-intelligence/taskboard/internal/store/local"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// env is an isolated pair of config and data directories.
type env struct {
	configDir string
	dataDir   string
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (r result) code() int { return exitCode(r.err) }

func newEnv(t *testing.T) env {
	t.Helper()
	for _, key := range []string{"TASKBOARD_BACKEND", "TASKBOARD_API_BASE_URL", "TASKBOARD_LOG_FILE", "TASKBOARD_DATA_DIR"} {
		t.Setenv(key, "")
	}
	root := t.TempDir()
	return env{
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
	}
}

func (e env) runCtx(t *testing.T, ctx context.Context, stdin string, args ...string) result {
	t.Helper()
	return e.runApp(t, ctx, newApp(), stdin, args...)
}

func (e env) runApp(t *testing.T, ctx context.Context, a *app, stdin string, args ...string) result {
	t.Helper()
	root := a.rootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := a.execute(ctx, root)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (e env) run(t *testing.T, args ...string) result {
	t.Helper()
	return e.runCtx(t, context.Background(), "", args...)
}

func decode[T any](t *testing.T, r result) T {
	t.Helper()
	require.NoError(t, r.err, r.stderr)
	var v T
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &v), r.stdout)
	return v
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	r := e.run(t, "version")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "taskboard "+Version)
	assert.Contains(t, r.stdout, modulePath)

	_, err := os.Stat(e.configDir)
	assert.True(t, os.IsNotExist(err), "version does not touch the config dir")
}

func TestFirstRunWritesDefaultConfig(t *testing.T) {
	e := newEnv(t)
	cfg := decode[map[string]any](t, e.run(t, "--json", "config"))

	assert.Equal(t, types.BackendLocal, cfg["backend"])
	assert.Equal(t, e.dataDir, cfg["data_dir"])
	assert.Equal(t, e.configDir, cfg["config_dir"])

	data, err := os.ReadFile(filepath.Join(e.configDir, configFileExt))
	require.NoError(t, err)
	assert.Equal(t, defaultConfigYAML, string(data))
}

func TestEnvOverridesConfig(t *testing.T) {
	e := newEnv(t)
	t.Setenv("TASKBOARD_BOARD_ASSIGNEE", "Ana")
	t.Setenv("TASKBOARD_SYNC_INTERVAL", "5s")

	cfg := decode[fileConfig](t, e.run(t, "--json", "config"))
	assert.Equal(t, "Ana", cfg.Board.Assignee)
	assert.Equal(t, "5s", cfg.Sync.Interval)
}

func TestInit(t *testing.T) {
	e := newEnv(t)

	r := e.run(t, "init")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Wrote")
	assert.Contains(t, r.stdout, "Taskboard initialized")

	data, err := os.ReadFile(filepath.Join(e.configDir, configFileExt))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: local")
	assert.Contains(t, string(data), "data_dir: "+e.dataDir)
	assert.Contains(t, string(data), "interval: 30s")

	_, err = os.Stat(filepath.Join(e.dataDir, types.DefaultSlot+".json"))
	assert.NoError(t, err, "local slot seeded")

	r = e.run(t, "init")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Kept existing")
}

func TestListSeededBoard(t *testing.T) {
	e := newEnv(t)

	tasks := decode[[]types.Task](t, e.run(t, "--json", "list"))
	assert.Len(t, tasks, 3)

	doing := decode[[]types.Task](t, e.run(t, "--json", "list", "--status", "doing"))
	require.Len(t, doing, 1)
	assert.Equal(t, types.StatusDoing, doing[0].Status)

	r := e.run(t, "list", "--status", "later")
	assert.Equal(t, exitUserError, r.code())
	assert.ErrorIs(t, r.err, types.ErrInvalidStatus)
}

func TestTaskLifecycle(t *testing.T) {
	e := newEnv(t)

	created := decode[types.Task](t, e.run(t, "--json", "add", "--title", "Write report", "--priority", "60"))
	assert.Equal(t, types.StatusTodo, created.Status)
	assert.False(t, created.Urgent)
	assert.True(t, created.Important)
	assert.Equal(t, types.DefaultAssignee, created.Assignee)

	doing := decode[types.Task](t, e.run(t, "--json", "move", created.ID, "doing"))
	assert.Equal(t, types.StatusDoing, doing.Status)
	require.NotNil(t, doing.StartedAt)

	r := e.run(t, "move", created.ID, "DOING")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "already DOING")

	done := decode[types.Task](t, e.run(t, "--json", "move", created.ID, "done"))
	require.NotNil(t, done.CompletedAt)

	back := decode[types.Task](t, e.run(t, "--json", "move", created.ID, "doing"))
	assert.True(t, back.StartedAt.Equal(*doing.StartedAt))
	assert.True(t, back.CompletedAt.Equal(*done.CompletedAt))

	history := decode[[]types.Task](t, e.run(t, "--json", "history"))
	for _, task := range history {
		assert.NotEqual(t, created.ID, task.ID, "back in DOING, out of history")
	}

	counts := decode[types.Counts](t, e.run(t, "--json", "stats"))
	assert.Equal(t, types.Counts{Todo: 1, Doing: 2, Done: 1, AutoExecPending: 1}, counts)
}

func TestAddPrintsID(t *testing.T) {
	e := newEnv(t)
	r := e.run(t, "add", "--title", "Plain output")
	require.NoError(t, r.err)
	id := strings.TrimSpace(r.stdout)
	assert.NotEmpty(t, id)
	assert.Contains(t, r.stderr, `Task "Plain output" created`)
}

func TestAddRejectsInvalidForm(t *testing.T) {
	e := newEnv(t)
	before := decode[[]types.Task](t, e.run(t, "--json", "list"))

	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"empty title", []string{"add", "--title", "   "}, "title"},
		{"missing title", []string{"add"}, "title"},
		{"negative priority", []string{"add", "--title", "x", "--priority", "-1"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.run(t, tt.args...)
			assert.Equal(t, exitUserError, r.code())
			assert.ErrorIs(t, r.err, types.ErrValidation)

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, r.err, &fieldErrs)
			assert.Equal(t, tt.field, fieldErrs[0].Field)
		})
	}

	after := decode[[]types.Task](t, e.run(t, "--json", "list"))
	assert.Len(t, after, len(before))
}

func TestRejectedAddLeavesDataDirUntouched(t *testing.T) {
	e := newEnv(t)
	r := e.run(t, "add", "--title", "  ")
	assert.Equal(t, exitUserError, r.code())

	_, err := os.Stat(filepath.Join(e.dataDir, types.DefaultSlot+".json"))
	assert.True(t, os.IsNotExist(err), "no slot written: %v", err)
}

func TestLogFileClosedWhenCommandFails(t *testing.T) {
	e := newEnv(t)
	a := newApp()
	closed := 0
	a.newLogger = func(level, file string) (zerolog.Logger, func(), error) {
		l, closer, err := logging.New(level, file)
		return l, func() { closed++; closer() }, err
	}

	logFile := filepath.Join(t.TempDir(), "taskboard.log")
	r := e.runApp(t, context.Background(), a, "", "--log-file", logFile, "move", "missing", "DOING")
	require.Error(t, r.err)
	assert.Equal(t, 1, closed)
}

func TestEditKeepsUnsetFields(t *testing.T) {
	e := newEnv(t)
	created := decode[types.Task](t, e.run(t, "--json", "add",
		"--title", "Backup", "--description", "nightly", "--priority", "80",
		"--auto-exec", "--command", "make backup"))

	edited := decode[types.Task](t, e.run(t, "--json", "edit", created.ID, "--title", "Nightly backup"))
	assert.Equal(t, "Nightly backup", edited.Title)
	assert.Equal(t, "nightly", edited.Description)
	assert.Equal(t, 80, edited.Priority)
	assert.Equal(t, "make backup", edited.ExecutionCommand)

	cleared := decode[types.Task](t, e.run(t, "--json", "edit", created.ID, "--auto-exec=false"))
	assert.False(t, cleared.AutoExecutable)
	assert.Empty(t, cleared.ExecutionCommand, "command dropped with auto-exec")

	r := e.run(t, "edit", "missing", "--title", "x")
	assert.Equal(t, exitUserError, r.code())
	assert.ErrorIs(t, r.err, types.ErrNotFound)
}

func TestDeleteIsTwoPhase(t *testing.T) {
	e := newEnv(t)
	created := decode[types.Task](t, e.run(t, "--json", "add", "--title", "Disposable"))

	r := e.runCtx(t, context.Background(), "n\n", "delete", created.ID)
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, `Delete task "Disposable"?`)
	assert.Contains(t, r.stderr, "cancelled")
	tasks := decode[[]types.Task](t, e.run(t, "--json", "list"))
	assert.Len(t, tasks, 4)

	r = e.runCtx(t, context.Background(), "y\n", "delete", created.ID)
	require.NoError(t, r.err)
	assert.Equal(t, created.ID, strings.TrimSpace(r.stdout))

	r = e.run(t, "delete", "--yes", created.ID)
	assert.Equal(t, exitUserError, r.code())
	assert.ErrorIs(t, r.err, types.ErrNotFound)
}

func TestBoardText(t *testing.T) {
	e := newEnv(t)
	r := e.run(t, "board")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "connected")
	assert.Contains(t, r.stdout, "To do (1)")
	assert.Contains(t, r.stdout, "Doing (1)")
	assert.Contains(t, r.stdout, "Done (1)")
	assert.Contains(t, r.stdout, "AUTO-EXEC")
}

func TestBoardJSON(t *testing.T) {
	e := newEnv(t)
	view := decode[struct {
		Tasks        []types.Task   `json:"tasks"`
		Counts       types.Counts   `json:"counts"`
		Connectivity map[string]any `json:"connectivity"`
	}](t, e.run(t, "--json", "board"))

	assert.Len(t, view.Tasks, 3)
	assert.Equal(t, 1, view.Counts.AutoExecPending)
	assert.Equal(t, "connected", view.Connectivity["state"])
}

func TestAPIBackend(t *testing.T) {
	s, err := local.Open(local.Options{DataDir: t.TempDir(), Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ts := httptest.NewServer(server.New(s, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)

	e := newEnv(t)
	t.Setenv("TASKBOARD_BACKEND", types.BackendAPI)
	t.Setenv("TASKBOARD_API_BASE_URL", ts.URL+"/api")

	created := decode[types.Task](t, e.run(t, "--json", "add", "--title", "Remote"))
	moved := decode[types.Task](t, e.run(t, "--json", "move", created.ID, "done"))
	require.NotNil(t, moved.CompletedAt)

	history := decode[[]types.Task](t, e.run(t, "--json", "history"))
	require.NotEmpty(t, history)
	assert.Equal(t, created.ID, history[0].ID)

	stored, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestUnreachableAPIIsSystemError(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	e := newEnv(t)
	t.Setenv("TASKBOARD_BACKEND", types.BackendAPI)
	t.Setenv("TASKBOARD_API_BASE_URL", url+"/api")

	r := e.run(t, "board")
	assert.Equal(t, exitSysError, r.code())
	var te *types.TransportError
	assert.ErrorAs(t, r.err, &te)
}

func TestInvalidConfigIsUserError(t *testing.T) {
	e := newEnv(t)
	t.Setenv("TASKBOARD_BACKEND", "carrier-pigeon")

	r := e.run(t, "list")
	assert.Equal(t, exitUserError, r.code())
	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, r.err, &fieldErrs)
	assert.ErrorIs(t, fieldErrs[0].Err, types.ErrBackendUnknown)
}

func TestWatchRendersUntilCancelled(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := e.runCtx(t, ctx, "", "--json", "watch")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, `"connectivity"`)
}

func TestServeStopsOnCancel(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := e.runCtx(t, ctx, "", "serve", "--addr", "127.0.0.1:0")
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.stderr, "driver sqlite")

	_, err := os.Stat(filepath.Join(e.dataDir, serverDataDir, "tasks.jsonl"))
	assert.NoError(t, err)
}

func TestServePostgresNeedsDSN(t *testing.T) {
	e := newEnv(t)
	t.Setenv("TASKBOARD_SERVER_DRIVER", types.DriverPostgres)
	t.Setenv("TASKBOARD_SERVER_DSN", "")

	r := e.run(t, "serve")
	assert.Equal(t, exitUserError, r.code())
	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, r.err, &fieldErrs)
	assert.ErrorIs(t, fieldErrs[0].Err, types.ErrDSNRequired)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"cobra error", errors.New(`unknown command "x" for "taskboard"`), exitUserError},
		{"not found", classify(fmt.Errorf("task x: %w", types.ErrNotFound)), exitUserError},
		{"validation", classify(&types.ValidationError{Err: types.ErrTitleRequired}), exitUserError},
		{"transport 404", classify(&types.TransportError{StatusCode: 404}), exitUserError},
		{"transport 500", classify(&types.TransportError{StatusCode: 500}), exitSysError},
		{"storage", classify(errors.New("disk full")), exitSysError},
		{"usage", usageErrorf("bad %s", "input"), exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	e := newEnv(t)
	r := e.run(t, "frobnicate")
	assert.Error(t, r.err)
	assert.Equal(t, exitUserError, r.code())
}
