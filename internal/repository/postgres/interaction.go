package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/commit-karma/internal/apperror"
	"github.com/sakif/commit-karma/internal/model"
)

// Upsert has the same semantics as the sqlite implementation: one statement,
// conflict on the natural key, id preserved.
func (db *DB) Upsert(ctx context.Context, in *model.Interaction) error {
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}

	var id string
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO interactions
			(id, kind, state, repository_id, number, external_id, user_id, user_login, score, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (kind, repository_id, number, external_id, user_id) DO UPDATE SET
			state      = EXCLUDED.state,
			user_login = EXCLUDED.user_login,
			score      = EXCLUDED.score,
			ts         = EXCLUDED.ts
		 RETURNING id`,
		xid.New().String(), string(in.Kind), string(in.State),
		in.RepositoryID, in.Number, in.ExternalID, in.UserID,
		in.UserLogin, in.Score, in.Timestamp,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("postgres: upserting %s interaction (repo=%d number=%d id=%d user=%d): %w",
			in.Kind, in.RepositoryID, in.Number, in.ExternalID, in.UserID, err)
	}
	in.ID = id
	return nil
}

func (db *DB) SearchOne(ctx context.Context, kind model.Kind, externalID int64) (*model.Interaction, error) {
	var (
		in       model.Interaction
		kindStr  string
		stateStr string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, kind, state, repository_id, number, external_id, user_id, user_login, score, ts
		 FROM interactions
		 WHERE kind = $1 AND external_id = $2
		 ORDER BY ts DESC
		 LIMIT 1`,
		string(kind), externalID,
	).Scan(&in.ID, &kindStr, &stateStr, &in.RepositoryID, &in.Number,
		&in.ExternalID, &in.UserID, &in.UserLogin, &in.Score, &in.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(string(kind), strconv.FormatInt(externalID, 10))
		}
		return nil, fmt.Errorf("postgres: searching %s %d: %w", kind, externalID, err)
	}
	if in.Kind, err = model.ParseKind(kindStr); err != nil {
		return nil, fmt.Errorf("postgres: searching %s %d: %w", kind, externalID, err)
	}
	in.State = model.State(stateStr)
	return &in, nil
}

func (db *DB) CalculateKarma(ctx context.Context, userID int64) (*model.Karma, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT kind, COUNT(*), COALESCE(SUM(score), 0)
		 FROM interactions
		 WHERE state = $1 AND user_id = $2
		 GROUP BY kind`,
		string(model.StateActive), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: calculating karma for user %d: %w", userID, err)
	}
	defer rows.Close()

	karma := model.NewKarma(userID)
	for rows.Next() {
		var (
			kind  string
			count int
			total float64
		)
		if err := rows.Scan(&kind, &count, &total); err != nil {
			return nil, fmt.Errorf("postgres: scanning karma row: %w", err)
		}
		k, err := model.ParseKind(kind)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning karma row: %w", err)
		}
		karma.Add(k, count, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating karma rows: %w", err)
	}
	return karma, nil
}
