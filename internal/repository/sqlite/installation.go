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

var _ repository.InstallationRepository = (*DB)(nil)

// Install marks the (installation, repository, target) grant active, creating
// it on first sight. A previously uninstalled row is reactivated in place.
func (db *DB) Install(ctx context.Context, inst *model.Installation) error {
	inst.State = model.StateActive
	inst.UpdatedAt = time.Now().UTC()

	var id string
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO installations
			(id, installation_id, target_id, target_type, repository_id, repository_name, state, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (installation_id, repository_id, target_id) DO UPDATE SET
			target_type     = excluded.target_type,
			repository_name = excluded.repository_name,
			state           = excluded.state,
			updated_at      = excluded.updated_at
		 RETURNING id`,
		xid.New().String(),
		inst.InstallationID,
		inst.TargetID,
		inst.TargetType,
		inst.RepositoryID,
		inst.RepositoryName,
		string(inst.State),
		inst.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("sqlite: installing repository %d (installation=%d): %w",
			inst.RepositoryID, inst.InstallationID, err)
	}

	inst.ID = id
	return nil
}

// Uninstall soft-deletes the grant. An uninstall for a key that was never
// installed still leaves a deleted row behind so the event is recorded.
func (db *DB) Uninstall(ctx context.Context, installationID, targetID, repositoryID int64) (*model.Installation, error) {
	inst := model.Installation{
		InstallationID: installationID,
		TargetID:       targetID,
		RepositoryID:   repositoryID,
		State:          model.StateDeleted,
		UpdatedAt:      time.Now().UTC(),
	}

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO installations
			(id, installation_id, target_id, target_type, repository_id, repository_name, state, updated_at)
		 VALUES (?, ?, ?, '', ?, '', ?, ?)
		 ON CONFLICT (installation_id, repository_id, target_id) DO UPDATE SET
			state      = excluded.state,
			updated_at = excluded.updated_at
		 RETURNING id, target_type, repository_name`,
		xid.New().String(),
		installationID,
		targetID,
		repositoryID,
		string(inst.State),
		inst.UpdatedAt,
	).Scan(&inst.ID, &inst.TargetType, &inst.RepositoryName)
	if err != nil {
		return nil, fmt.Errorf("sqlite: uninstalling repository %d (installation=%d): %w",
			repositoryID, installationID, err)
	}

	return &inst, nil
}

// ByRepositoryID returns the most recently updated active installation for a
// repository. Returns apperror.ErrNotFound if the app is not installed there.
func (db *DB) ByRepositoryID(ctx context.Context, repositoryID int64) (*model.Installation, error) {
	var (
		inst  model.Installation
		state string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, installation_id, target_id, target_type, repository_id, repository_name, state, updated_at
		 FROM installations
		 WHERE repository_id = ? AND state = ?
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		repositoryID, string(model.StateActive),
	).Scan(
		&inst.ID,
		&inst.InstallationID,
		&inst.TargetID,
		&inst.TargetType,
		&inst.RepositoryID,
		&inst.RepositoryName,
		&state,
		&inst.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("installation for repository", strconv.FormatInt(repositoryID, 10))
		}
		return nil, fmt.Errorf("sqlite: getting installation for repository %d: %w", repositoryID, err)
	}

	inst.State = model.State(state)
	return &inst, nil
}
