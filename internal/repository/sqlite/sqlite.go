// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// The result history is written by one runner process at a time and read by
// the results API. An embedded database file next to the test tree is all
// that needs: no server to install, and ":memory:" for tests.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the runner
// cross-compiles to cluster login nodes without a C toolchain.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "out/results.db"  → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Ping verifies the connection actually works.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets the results API read while a runner is writing.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Concurrent slots finishing at once may contend for the write lock.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
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

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is idempotent, so it is safe on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			id              TEXT PRIMARY KEY,
			test_path       TEXT NOT NULL,
			num_procs       INTEGER NOT NULL,
			passed          INTEGER NOT NULL,
			skipped         INTEGER NOT NULL DEFAULT 0,
			skip_reason     TEXT NOT NULL DEFAULT '',
			annotations     TEXT NOT NULL DEFAULT '[]',
			exit_code       INTEGER NOT NULL DEFAULT 0,
			command         TEXT NOT NULL DEFAULT '',
			elapsed_seconds REAL NOT NULL DEFAULT 0,
			duration_ns     INTEGER NOT NULL DEFAULT 0,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_results_created_at ON results(created_at);
		CREATE INDEX IF NOT EXISTS idx_results_test_path ON results(test_path);
	`)
	if err != nil {
		return fmt.Errorf("creating results table: %w", err)
	}

	return nil
}
