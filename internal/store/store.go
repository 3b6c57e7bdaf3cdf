// Package store provides the embedded SQLite database backing the BigTime
// client: employees, time logs, settings, and the sync-changes ledger.
//
// The database runs in embedded mode with WAL so the interactive path and
// the background sync worker can read concurrently. Multi-row operations
// that must be atomic (badge rename touching employee and logs, employee
// delete cascading to its logs) run inside explicit transactions; no
// transaction is ever held open across a network call.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrOpenShift is returned when a clock-in would create a second open log
// for the same badge.
var ErrOpenShift = errors.New("badge already has an open shift")

// DB wraps the embedded SQLite connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the database at path and applies the pragmas the
// client relies on (WAL, busy timeout, foreign keys). The caller must call
// Close when done.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// RawDB exposes the underlying sql.DB for integration points that need it.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.conn = nil
	return nil
}

// InitSchema creates all tables and indexes. Idempotent.
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		badge TEXT UNIQUE NOT NULL,
		phone_number TEXT,
		pin TEXT,
		department TEXT,
		date_of_birth TEXT,
		hire_date TEXT,
		deactivated INTEGER NOT NULL DEFAULT 0,
		ssn TEXT,
		period TEXT NOT NULL DEFAULT 'hourly',
		rate REAL NOT NULL DEFAULT 0.0
	);

	CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id TEXT,
		remote_id INTEGER,
		badge TEXT NOT NULL,
		clock_in TEXT NOT NULL,
		clock_out TEXT,
		device_id TEXT,
		device_ts TEXT,
		sync_state TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT
	);

	CREATE TABLE IF NOT EXISTS sync_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		change_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		change_data TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(change_type, entity_id)
	);

	CREATE INDEX IF NOT EXISTS idx_logs_badge ON logs(badge);
	CREATE INDEX IF NOT EXISTS idx_logs_client_id ON logs(client_id);
	CREATE INDEX IF NOT EXISTS idx_logs_sync_state ON logs(sync_state);
	CREATE INDEX IF NOT EXISTS idx_logs_open ON logs(badge, clock_out) WHERE clock_out IS NULL;
	CREATE INDEX IF NOT EXISTS idx_changes_created ON sync_changes(created_at);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// now returns the canonical timestamp format stored in the database.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// timeToNullString converts a time pointer to a nullable string for SQL.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// nullStringToTime converts a nullable SQL string to a time pointer.
func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// parseTime parses a stored timestamp, returning the zero time on failure.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
