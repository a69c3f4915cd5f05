package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncerStates(t *testing.T) {
	store := newFakeStore(sampleTasks()...)
	s := NewSyncer(NewRepository(store), time.Hour, zerolog.Nop())

	assert.Equal(t, StateConnecting, s.Status().State)

	require.NoError(t, s.Sync(context.Background()))
	st := s.Status()
	assert.Equal(t, StateConnected, st.State)
	assert.False(t, st.LastSync.IsZero())
	assert.Equal(t, 2, st.AutoExecPending)
	assert.NoError(t, st.Err)

	store.setFail(errUnreachable)
	err := s.Sync(context.Background())
	assert.ErrorIs(t, err, errUnreachable)

	offline := s.Status()
	assert.Equal(t, StateOffline, offline.State)
	assert.ErrorIs(t, offline.Err, errUnreachable)
	assert.Equal(t, st.LastSync, offline.LastSync, "last sync time is kept")
	assert.Equal(t, 2, offline.AutoExecPending)
	assert.Len(t, s.repo.All(), 4, "failing refresh keeps the cache")

	store.setFail(nil)
	require.NoError(t, s.Sync(context.Background()))
	assert.Equal(t, StateConnected, s.Status().State)
}

func TestSyncerOnChange(t *testing.T) {
	store := newFakeStore(sampleTasks()...)
	s := NewSyncer(NewRepository(store), time.Hour, zerolog.Nop())

	var got []State
	s.OnChange(func(c Connectivity) { got = append(got, c.State) })

	require.NoError(t, s.Sync(context.Background()))
	store.setFail(errUnreachable)
	_ = s.Sync(context.Background())

	assert.Equal(t, []State{StateConnected, StateOffline}, got)
}

func TestSyncerRunTicksAndTriggers(t *testing.T) {
	store := newFakeStore(sampleTasks()...)
	s := NewSyncer(NewRepository(store), 50*time.Millisecond, zerolog.Nop())

	trigger := make(chan struct{}, 1)
	s.AddTrigger(trigger)

	var mu sync.Mutex
	syncs := 0
	s.OnChange(func(Connectivity) {
		mu.Lock()
		syncs++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return store.count("list") >= 3 }, 2*time.Second, 10*time.Millisecond,
		"initial sync plus ticks")

	trigger <- struct{}{}
	before := store.count("list")
	require.Eventually(t, func() bool { return store.count("list") > before }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, syncs, 3)
}

func TestSyncerRunSurvivesClosedTrigger(t *testing.T) {
	store := newFakeStore()
	s := NewSyncer(NewRepository(store), time.Hour, zerolog.Nop())

	trigger := make(chan struct{})
	close(trigger)
	s.AddTrigger(trigger)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, store.count("list"))
}

func TestNewSyncerDefaultInterval(t *testing.T) {
	s := NewSyncer(NewRepository(newFakeStore()), 0, zerolog.Nop())
	assert.Equal(t, 30*time.Second, s.interval)
}
