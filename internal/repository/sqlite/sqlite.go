// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means a C compiler at build time and
// painful cross-compilation. modernc.org/sqlite is a pure Go translation of
// the SQLite sources — works everywhere Go works.
//
// The UNIQUE constraints declared in the schema below are load-bearing:
// the service's pre-insert existence checks (url uniqueness, short-code
// availability) are advisory, and these constraints are what actually close
// the check-then-insert races described in the repository package.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements both repository
// interfaces (bookmark methods in bookmark.go, user methods in user.go).
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// Use ":memory:" in tests for a throwaway database.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Single connection in the pool. SQLite allows one writer at a time and
	// the modernc driver surfaces a second one as SQLITE_BUSY; serializing
	// through one connection pushes that queueing into database/sql. It also
	// keeps ":memory:" databases sane — each pool connection would otherwise
	// get its own, separate in-memory database.
	conn.SetMaxOpenConns(1)

	// sql.Open doesn't touch the file; Ping forces a real connection so a
	// bad path or permissions problem surfaces here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — without it every
	// redirect's visit increment would block concurrent lookups.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite; we want bookmarks.user_id
	// to actually reference users.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Defer it right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS bookmarks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			url        TEXT NOT NULL UNIQUE,
			body       TEXT NOT NULL DEFAULT '',
			short_url  TEXT NOT NULL UNIQUE,
			visits     INTEGER NOT NULL DEFAULT 0,
			user_id    INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_bookmarks_user_id ON bookmarks(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating bookmarks table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// table.column.
//
// modernc.org/sqlite doesn't export a typed constraint error we can match
// with errors.Is, but it does include the canonical
// "UNIQUE constraint failed: <table>.<column>" text, which is stable SQLite
// wording. Matching on it lets Create tell a short-code race apart from a
// duplicate url without a second round-trip.
func isUniqueViolation(err error, table, column string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(),
		fmt.Sprintf("UNIQUE constraint failed: %s.%s", table, column))
}
