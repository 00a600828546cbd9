// Package sqlite implements the resource repository on an embedded SQLite
// database.
//
// Production data lives in the hosted document store (see repository/mongo).
// SQLite backs local development and single-box deployments, and ":memory:"
// gives every repository test a fresh database.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no CGo is needed.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/resources.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection. Pinning the pool to one
	// connection keeps every query on the same database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
//
// created_at is stored as Unix milliseconds rather than DATETIME text so the
// keyset comparisons used for pagination are plain integer comparisons.
// tags holds a JSON array; the search over it happens in Go, not SQL.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS resources (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL,
			media_url    TEXT NOT NULL,
			media_type   TEXT NOT NULL,
			category     TEXT NOT NULL,
			tags         TEXT NOT NULL DEFAULT '[]',
			resource_url TEXT NOT NULL,
			created_at   INTEGER NOT NULL,
			is_published INTEGER NOT NULL DEFAULT 0,
			featured     INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_resources_published
			ON resources(is_published, category, created_at DESC, id DESC);
		CREATE INDEX IF NOT EXISTS idx_resources_featured
			ON resources(is_published, featured, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_resources_created_at
			ON resources(created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating resources table: %w", err)
	}
	return nil
}
