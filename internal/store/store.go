// Package store is the durable home of every item: the source of truth for
// the FTS mirror, the guarantor of canonical tags, and the place writes
// become atomic, linearizable transactions against a single SQLite file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/bkmr/bkmr/internal/apperr"
)

// Store wraps a SQLite connection configured for WAL-mode single-writer
// access, matching the driver and pragma set the rest of the corpus uses
// for embedded SQLite (modernc.org/sqlite, no CGO).
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open creates or opens the bkmr store at path. An empty path opens an
// in-memory database, used by tests. Migrations run automatically; a file
// that already records a schema version is backed up first (see migrate.go).
func Open(path string) (*Store, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperr.New(apperr.CodeSchemaError, fmt.Sprintf("failed to create store directory %s", dir), err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperr.New(apperr.CodeSchemaError, "failed to open store", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, apperr.New(apperr.CodeSchemaError, "failed to set pragma", err)
		}
	}

	s := &Store{db: db, path: path}

	var lock *flock.Flock
	if path != "" {
		lock = flock.New(path + ".migrate.lock")
		locked, err := lock.TryLock()
		if err != nil {
			_ = db.Close()
			return nil, apperr.New(apperr.CodeSchemaError, "failed to acquire migration lock", err)
		}
		if locked {
			defer func() { _ = lock.Unlock() }()
		}
	}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the filesystem path the store was opened with, or "" for
// an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the underlying handle for components that need read-only
// access outside the Store's own operations (e.g. the vector index
// bootstrap, which streams every embedding once at startup).
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}
