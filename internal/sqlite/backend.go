// Package sqlite implements the server-side task store. SQLite (modernc, no
// cgo) is the query engine and tasks.jsonl in the data directory is the
// source of truth: the database is rebuilt from the file on Attach and the
// file is rewritten after every mutation.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// Compile-time interface check: Backend must implement types.Store.
var _ types.Store = (*Backend)(nil)

const dbFile = "taskboard.db"

// Backend implements types.Store using SQLite as the query engine and a
// JSONL file as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	dataDir  string
	db       *sql.DB
	now      func() time.Time
	log      zerolog.Logger
}

// NewBackend creates a backend that is not attached yet; call Attach.
func NewBackend(logger zerolog.Logger) *Backend {
	return &Backend{
		now: time.Now,
		log: logger.With().Str("cmp", "sqlite").Logger(),
	}
}

// Open is NewBackend followed by Attach.
func Open(dataDir string, logger zerolog.Logger) (*Backend, error) {
	b := NewBackend(logger)
	if err := b.Attach(dataDir); err != nil {
		return nil, err
	}
	return b, nil
}

// Attach creates dataDir if needed, builds a fresh database from tasks.jsonl
// and makes the backend usable. Returns ErrAlreadyAttached on a second call.
func (b *Backend) Attach(dataDir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return ErrAlreadyAttached
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// The database is a cache of the JSONL file; start from scratch.
	dbPath := filepath.Join(dataDir, dbFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, ddl := range append(schemaDDL, indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}

	if err := initTasksJSONL(dataDir); err != nil {
		db.Close()
		return err
	}
	loaded, err := loadTasksJSONL(db, dataDir)
	if err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.dataDir = dataDir
	b.attached = true
	b.log.Info().Str("dir", dataDir).Int("tasks", loaded).Msg("attached")
	return nil
}

// Detach closes the database. After Detach every operation returns
// ErrStoreClosed. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return fmt.Errorf("close sqlite: %w", err)
		}
		b.db = nil
	}
	return nil
}

// Close implements types.Store.
func (b *Backend) Close() error {
	return b.Detach()
}

// DataDir returns the directory holding tasks.jsonl.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dataDir
}
