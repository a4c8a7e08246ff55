package sqlite

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
	"github.com/sakif/commit-karma/internal/repository"
)

// compile-time check that *DB implements repository.InteractionRepository
var _ repository.InteractionRepository = (*DB)(nil)

// Upsert writes an interaction keyed by (kind, repository_id, number,
// external_id, user_id).
//
// A new row gets a fresh xid. On conflict the existing row keeps its id and
// key; state, login, score and timestamp are overwritten with the incoming
// values (last write wins). RETURNING id hands back whichever id survived, so
// a redelivered webhook observes the same id as the first delivery.
func (db *DB) Upsert(ctx context.Context, in *model.Interaction) error {
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}

	var id string
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO interactions
			(id, kind, state, repository_id, number, external_id, user_id, user_login, score, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (kind, repository_id, number, external_id, user_id) DO UPDATE SET
			state      = excluded.state,
			user_login = excluded.user_login,
			score      = excluded.score,
			ts         = excluded.ts
		 RETURNING id`,
		xid.New().String(),
		string(in.Kind),
		string(in.State),
		in.RepositoryID,
		in.Number,
		in.ExternalID,
		in.UserID,
		in.UserLogin,
		in.Score,
		in.Timestamp,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("sqlite: upserting %s interaction (repo=%d number=%d id=%d user=%d): %w",
			in.Kind, in.RepositoryID, in.Number, in.ExternalID, in.UserID, err)
	}

	in.ID = id
	return nil
}

// SearchOne finds the interaction of the given kind for a GitHub object id.
// Returns apperror.ErrNotFound when nothing has been recorded for it yet.
func (db *DB) SearchOne(ctx context.Context, kind model.Kind, externalID int64) (*model.Interaction, error) {
	var (
		in       model.Interaction
		kindStr  string
		stateStr string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, kind, state, repository_id, number, external_id, user_id, user_login, score, ts
		 FROM interactions
		 WHERE kind = ? AND external_id = ?
		 ORDER BY ts DESC
		 LIMIT 1`,
		string(kind), externalID,
	).Scan(
		&in.ID,
		&kindStr,
		&stateStr,
		&in.RepositoryID,
		&in.Number,
		&in.ExternalID,
		&in.UserID,
		&in.UserLogin,
		&in.Score,
		&in.Timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(string(kind), strconv.FormatInt(externalID, 10))
		}
		return nil, fmt.Errorf("sqlite: searching %s %d: %w", kind, externalID, err)
	}

	if in.Kind, err = model.ParseKind(kindStr); err != nil {
		return nil, fmt.Errorf("sqlite: searching %s %d: %w", kind, externalID, err)
	}
	in.State = model.State(stateStr)
	return &in, nil
}

// CalculateKarma sums the scores of a user's active interactions, grouped by
// kind. A user with no interactions gets an empty snapshot and score 0.
func (db *DB) CalculateKarma(ctx context.Context, userID int64) (*model.Karma, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT kind, COUNT(*), COALESCE(SUM(score), 0)
		 FROM interactions
		 WHERE state = ? AND user_id = ?
		 GROUP BY kind`,
		string(model.StateActive), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: calculating karma for user %d: %w", userID, err)
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
			return nil, fmt.Errorf("sqlite: scanning karma row: %w", err)
		}
		k, err := model.ParseKind(kind)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning karma row: %w", err)
		}
		karma.Add(k, count, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating karma rows: %w", err)
	}

	return karma, nil
}
