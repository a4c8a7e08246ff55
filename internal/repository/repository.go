// Package repository declares the storage contracts. Services depend on
// these interfaces; sqlite and postgres provide the implementations.
package repository

import (
	"context"

	"github.com/sakif/commit-karma/internal/model"
)

// InteractionRepository persists scored interactions. Upsert is the only
// write path and is idempotent on the interaction's natural key.
type InteractionRepository interface {
	Upsert(ctx context.Context, interaction *model.Interaction) error
	SearchOne(ctx context.Context, kind model.Kind, externalID int64) (*model.Interaction, error)
	CalculateKarma(ctx context.Context, userID int64) (*model.Karma, error)
}

type InstallationRepository interface {
	Install(ctx context.Context, installation *model.Installation) error
	Uninstall(ctx context.Context, installationID, targetID, repositoryID int64) (*model.Installation, error)
	ByRepositoryID(ctx context.Context, repositoryID int64) (*model.Installation, error)
}

// Store is a full backend, owned by whoever opened it.
type Store interface {
	InteractionRepository
	InstallationRepository
	Close() error
}
