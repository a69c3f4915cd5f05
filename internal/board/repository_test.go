package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

func sampleTasks() []types.Task {
	return []types.Task{
		{ID: "a", Title: "A", Status: types.StatusTodo},
		{ID: "b", Title: "B", Status: types.StatusDoing, AutoExecutable: true},
		{ID: "c", Title: "C", Status: types.StatusTodo, AutoExecutable: true},
		{ID: "d", Title: "D", Status: types.StatusDone, AutoExecutable: true},
	}
}

func TestRepositoryViews(t *testing.T) {
	repo := NewRepository(newFakeStore(sampleTasks()...))

	got, err := repo.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 4)

	todo := repo.ByStatus(types.StatusTodo)
	require.Len(t, todo, 2)
	assert.Equal(t, "a", todo[0].ID, "store order is kept")
	assert.Equal(t, "c", todo[1].ID)

	assert.Equal(t, types.Counts{Todo: 2, Doing: 1, Done: 1, AutoExecPending: 2}, repo.Counts())

	task, ok := repo.Get("b")
	require.True(t, ok)
	assert.Equal(t, "B", task.Title)
	_, ok = repo.Get("zzz")
	assert.False(t, ok)

	assert.False(t, repo.LastRefresh().IsZero())
}

func TestRepositoryReturnsCopies(t *testing.T) {
	repo := NewRepository(newFakeStore(sampleTasks()...))
	_, err := repo.Refresh(context.Background())
	require.NoError(t, err)

	all := repo.All()
	all[0].Title = "changed"
	byStatus := repo.ByStatus(types.StatusTodo)
	byStatus[0].Title = "changed"

	task, _ := repo.Get("a")
	assert.Equal(t, "A", task.Title)
}

func TestRepositoryFailedRefreshKeepsCache(t *testing.T) {
	store := newFakeStore(sampleTasks()...)
	repo := NewRepository(store)
	_, err := repo.Refresh(context.Background())
	require.NoError(t, err)
	before := repo.LastRefresh()

	store.setFail(errUnreachable)
	_, err = repo.Refresh(context.Background())
	assert.ErrorIs(t, err, errUnreachable)

	assert.Len(t, repo.All(), 4)
	assert.Equal(t, before, repo.LastRefresh())
}

func TestRepositoryDiscardsStaleRefresh(t *testing.T) {
	old := []types.Task{{ID: "old", Title: "old", Status: types.StatusTodo}}
	fresh := []types.Task{{ID: "new", Title: "new", Status: types.StatusTodo}}

	release := make(chan struct{})
	started := make(chan struct{})
	store := newFakeStore()
	store.list = func(call int) ([]types.Task, error) {
		if call == 1 {
			close(started)
			<-release
			return old, nil
		}
		return fresh, nil
	}
	repo := NewRepository(store)

	type result struct {
		tasks []types.Task
		err   error
	}
	slow := make(chan result, 1)
	go func() {
		tasks, err := repo.Refresh(context.Background())
		slow <- result{tasks, err}
	}()
	<-started

	_, err := repo.Refresh(context.Background())
	require.NoError(t, err)
	close(release)

	var r result
	select {
	case r = <-slow:
	case <-time.After(2 * time.Second):
		t.Fatal("slow refresh did not return")
	}
	require.NoError(t, r.err)
	require.Len(t, r.tasks, 1)
	assert.Equal(t, "old", r.tasks[0].ID, "the stale result still reaches its caller")

	all := repo.All()
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].ID, "the newer snapshot is kept")
}
