package board

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// State is the connectivity indicator shown next to the board.
type State string

// Connectivity states. A Syncer starts in StateConnecting until its first
// refresh completes.
const (
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateOffline    State = "offline"
)

// Connectivity is the outcome of the most recent refresh.
type Connectivity struct {
	State           State     `json:"state"`
	LastSync        time.Time `json:"lastSync,omitzero"`
	Err             error     `json:"-"`
	AutoExecPending int       `json:"autoExecPending"`
}

// Syncer refreshes a Repository on start, on a fixed interval, after every
// write and whenever a trigger channel fires.
type Syncer struct {
	repo     *Repository
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	status   Connectivity
	subs     []func(Connectivity)
	triggers []<-chan struct{}
}

// NewSyncer returns a Syncer for repo. A non-positive interval uses
// types.DefaultSyncInterval.
func NewSyncer(repo *Repository, interval time.Duration, logger zerolog.Logger) *Syncer {
	if interval <= 0 {
		interval = types.DefaultSyncInterval
	}
	return &Syncer{
		repo:     repo,
		interval: interval,
		log:      logger.With().Str("cmp", "sync").Logger(),
		now:      time.Now,
		status:   Connectivity{State: StateConnecting},
	}
}

// AddTrigger registers a channel whose values request an early refresh,
// such as a store's change watcher. Call before Run.
func (s *Syncer) AddTrigger(ch <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers = append(s.triggers, ch)
}

// OnChange registers fn to be called after every published snapshot and
// after every failed refresh, with the resulting connectivity.
func (s *Syncer) OnChange(fn func(Connectivity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Status returns the current connectivity.
func (s *Syncer) Status() Connectivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Sync refreshes the Repository once and updates the connectivity
// indicator. A failure marks the board offline and keeps the cached tasks.
func (s *Syncer) Sync(ctx context.Context) error {
	_, published, err := s.repo.refresh(ctx)

	s.mu.Lock()
	if err != nil {
		s.status.State = StateOffline
		s.status.Err = err
	} else {
		s.status.State = StateConnected
		s.status.Err = nil
		s.status.LastSync = s.now()
		s.status.AutoExecPending = s.repo.Counts().AutoExecPending
	}
	status := s.status
	subs := append([]func(Connectivity){}, s.subs...)
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Msg("refresh failed")
	} else if !published {
		s.log.Debug().Msg("discarded stale refresh")
		return nil
	} else {
		s.log.Debug().Int("autoExecPending", status.AutoExecPending).Msg("refreshed")
	}

	for _, fn := range subs {
		fn(status)
	}
	return err
}

// Run performs an initial Sync, then syncs on every tick and trigger until
// ctx is cancelled. Refresh errors are reported through Status, not
// returned; Run returns ctx.Err() on exit.
func (s *Syncer) Run(ctx context.Context) error {
	s.mu.RLock()
	triggers := append([]<-chan struct{}{}, s.triggers...)
	s.mu.RUnlock()

	kick := make(chan struct{}, 1)
	var wg sync.WaitGroup
	for _, ch := range triggers {
		wg.Add(1)
		go func(ch <-chan struct{}) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-ch:
					if !ok {
						return
					}
					select {
					case kick <- struct{}{}:
					default:
					}
				}
			}
		}(ch)
	}
	defer wg.Wait()

	_ = s.Sync(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = s.Sync(ctx)
		case <-kick:
			s.log.Debug().Msg("triggered refresh")
			_ = s.Sync(ctx)
		}
	}
}
