// Package sqlite implements the repository interfaces on SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the server builds without CGo and
// tests can run against ":memory:" with no setup.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB      : a connection pool (NOT a single connection!)
//   - sql.Row     : a single result row
//   - sql.Rows    : multiple result rows (must be closed!)
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/commit-karma/internal/repository"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// compile-time check that *DB is a complete backend
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements the interaction and
// installation repositories.
type DB struct {
	conn *sql.DB
}

// connPragmas are applied by the driver to every connection it opens, so each
// pooled connection waits on a locked database instead of failing with
// SQLITE_BUSY.
var connPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

// dsn appends connPragmas to dbPath as _pragma query parameters.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(dbPath)
	for _, p := range connPragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/karma.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a separate, empty database.
	// Pinning the pool to one connection keeps the schema visible.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
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

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it safe to run
// on every start.
//
// The unique indexes are the natural keys the upserts conflict on. The other
// indexes back the lookups: installations by repository, interactions by
// (state, user_id) for karma and by (kind, external_id) for SearchOne.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS interactions (
			id            TEXT PRIMARY KEY,
			kind          TEXT NOT NULL,
			state         TEXT NOT NULL DEFAULT 'active',
			repository_id INTEGER NOT NULL,
			number        INTEGER NOT NULL,
			external_id   INTEGER NOT NULL,
			user_id       INTEGER NOT NULL,
			user_login    TEXT NOT NULL DEFAULT '',
			score         REAL NOT NULL DEFAULT 0,
			ts            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_interactions_natural_key
			ON interactions(kind, repository_id, number, external_id, user_id);
		CREATE INDEX IF NOT EXISTS idx_interactions_state_user ON interactions(state, user_id);
		CREATE INDEX IF NOT EXISTS idx_interactions_kind_external ON interactions(kind, external_id);
	`)
	if err != nil {
		return fmt.Errorf("creating interactions table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS installations (
			id              TEXT PRIMARY KEY,
			installation_id INTEGER NOT NULL,
			target_id       INTEGER NOT NULL,
			target_type     TEXT NOT NULL DEFAULT '',
			repository_id   INTEGER NOT NULL,
			repository_name TEXT NOT NULL DEFAULT '',
			state           TEXT NOT NULL DEFAULT 'active',
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_installations_natural_key
			ON installations(installation_id, repository_id, target_id);
		CREATE INDEX IF NOT EXISTS idx_installations_repository ON installations(repository_id);
	`)
	if err != nil {
		return fmt.Errorf("creating installations table: %w", err)
	}

	return nil
}
