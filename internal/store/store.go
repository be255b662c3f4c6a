// Package store is the durable record of Sources, Profiles, Workers and
// Jobs. It is the single source of truth for the pipeline; every other
// component's in-memory state is advisory and reconciled against it at
// suspension points.
//
// The embedded engine is SQLite via modernc.org/sqlite (pure Go, no cgo),
// reached through database/sql with the same Open/ping/pool-tuning shape as
// any database/sql-backed service, adapted to the embedded-database
// invariants SQLite needs: a single connection serializes writers so
// ClaimNextPendingJob's select-then-update needs no explicit row locking,
// and a busy_timeout absorbs the brief contention that remains during WAL
// checkpoints.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open creates the embedded SQLite database at path (creating the file if
// absent), ensures the schema exists, applies additive migrations and
// verifies connectivity.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", url.PathEscape(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection turns the claim step's select-then-update into an
	// atomic operation without hand-rolled locking: SQLite serializes all
	// writers anyway, so pretending otherwise only buys SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for read-only access beyond the Store's
// own query surface.
func (s *Store) DB() *sql.DB {
	return s.db
}
