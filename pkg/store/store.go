// Package store is the public entry point for opening a task store. The
// variant is chosen once from Config.Backend; callers only see types.Store.
//
// Example:
//
//	s, err := store.Open(types.Config{Backend: types.BackendLocal, DataDir: dir}, logger)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/taskboard/internal/store/api"
	"github.com/mesh-intelligence/taskboard/internal/store/local"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// Open validates cfg and returns the Store it selects. Defaults are applied
// before validation.
func Open(cfg types.Config, logger zerolog.Logger) (types.Store, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch cfg.Backend {
	case types.BackendAPI:
		s, err := api.New(api.Options{
			BaseURL: cfg.API.BaseURL,
			Timeout: cfg.API.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case types.BackendLocal:
		s, err := local.Open(local.Options{
			DataDir:  cfg.DataDir,
			Slot:     cfg.Local.Slot,
			Assignee: cfg.Assignee,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("open store %q: %w", cfg.Backend, types.ErrBackendUnknown)
}

// Watcher is implemented by stores that can report changes made outside
// this process. The local store is one; the API store is not.
type Watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}
