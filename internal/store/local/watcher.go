package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

const debounceDur = 200 * time.Millisecond

// watcher forwards external rewrites of the slot file as change signals.
type watcher struct {
	fs        *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

func (w *watcher) close() {
	w.closeOnce.Do(func() {
		close(w.done)
		_ = w.fs.Close()
	})
}

// Watch reports changes made to the slot by another process. The returned
// channel receives one value per settled burst of file events and is closed
// when ctx is cancelled or the store is closed. Writes made through this
// Store are not reported.
//
// The data directory is watched rather than the file itself because the
// slot is replaced by rename on every write.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(s.path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	w := &watcher{fs: fsw, done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		w.close()
		return nil, fmt.Errorf("watch slot: %w", types.ErrStoreClosed)
	}
	s.watchers = append(s.watchers, w)
	s.mu.Unlock()

	out := make(chan struct{}, 1)
	go s.watchLoop(ctx, w, out)
	return out, nil
}

func (s *Store) watchLoop(ctx context.Context, w *watcher, out chan<- struct{}) {
	defer close(out)
	defer w.close()

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			s.log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("slot event")

			// Debounce: wait for changes to settle
			if debounce == nil {
				debounce = time.NewTimer(debounceDur)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(debounceDur)
			}
			fire = debounce.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("slot watcher error")
		case <-fire:
			fire = nil
			if s.isOwnWrite() {
				continue
			}
			select {
			case out <- struct{}{}:
			default:
				// A change signal is already pending.
			}
		}
	}
}

// isOwnWrite reports whether the slot on disk is the one this Store last wrote.
func (s *Store) isOwnWrite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return false
	}
	return !s.lastWrite.IsZero() && info.ModTime().Equal(s.lastWrite)
}
