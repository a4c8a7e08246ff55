// Package postgres implements the repository interfaces on PostgreSQL
// through the pgx database/sql driver. It mirrors the sqlite package
// statement for statement; only placeholders and column types differ.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "pgx" driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sakif/commit-karma/internal/repository"
)

var _ repository.Store = (*DB)(nil)

type DB struct {
	conn *sql.DB
}

// Open connects to dsn, sizes the pool and applies the schema.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	db := &DB{conn: conn}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error { return db.conn.Close() }

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS interactions (
	id            TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	state         TEXT NOT NULL DEFAULT 'active',
	repository_id BIGINT NOT NULL,
	number        BIGINT NOT NULL,
	external_id   BIGINT NOT NULL,
	user_id       BIGINT NOT NULL,
	user_login    TEXT NOT NULL DEFAULT '',
	score         DOUBLE PRECISION NOT NULL DEFAULT 0,
	ts            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_interactions_natural_key
	ON interactions(kind, repository_id, number, external_id, user_id);
CREATE INDEX IF NOT EXISTS idx_interactions_state_user ON interactions(state, user_id);
CREATE INDEX IF NOT EXISTS idx_interactions_kind_external ON interactions(kind, external_id);

CREATE TABLE IF NOT EXISTS installations (
	id              TEXT PRIMARY KEY,
	installation_id BIGINT NOT NULL,
	target_id       BIGINT NOT NULL,
	target_type     TEXT NOT NULL DEFAULT '',
	repository_id   BIGINT NOT NULL,
	repository_name TEXT NOT NULL DEFAULT '',
	state           TEXT NOT NULL DEFAULT 'active',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_installations_natural_key
	ON installations(installation_id, repository_id, target_id);
CREATE INDEX IF NOT EXISTS idx_installations_repository ON installations(repository_id);
`
