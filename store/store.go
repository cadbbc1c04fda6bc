// Package store persists hourmaster's account-side state in SQLite: users,
// API tokens, evaluation settings, provider credentials, manual activity
// overrides and the short-lived provider response cache.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a unique constraint (username, email) is hit.
var ErrConflict = errors.New("store: already exists")

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
// Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection opens its own empty in-memory database;
		// pin the pool to the single connection the migration runs on.
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    username        TEXT NOT NULL UNIQUE,
    email           TEXT NOT NULL UNIQUE,
    email_verified  INTEGER NOT NULL DEFAULT 0,
    email_token     TEXT NOT NULL,
    passwd_hash     BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS tokens (
    token           TEXT PRIMARY KEY,
    user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    user_id                 INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    hourly_activity_goal    INTEGER NOT NULL,
    day_starts_at           TEXT NOT NULL,
    day_ends_at             TEXT NOT NULL,
    day_length              INTEGER,
    hourly_debt_limit       INTEGER,
    hourly_activity_limit   INTEGER
);

CREATE TABLE IF NOT EXISTS provider_credentials (
    user_id         INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    client_id       TEXT NOT NULL,
    client_secret   TEXT NOT NULL,
    client_token    TEXT
);

CREATE TABLE IF NOT EXISTS active_hours_overrides (
    user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    override_date   TEXT NOT NULL,
    override_hour   INTEGER NOT NULL,
    is_active       INTEGER NOT NULL,
    PRIMARY KEY (user_id, override_date, override_hour)
);

CREATE TABLE IF NOT EXISTS response_cache (
    user_id         INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    created_at      INTEGER NOT NULL,
    payload         TEXT NOT NULL
);
`
	_, err := s.db.Exec(ddl)
	return err
}

// mapConflict converts a SQLite unique-constraint failure into ErrConflict.
func mapConflict(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
