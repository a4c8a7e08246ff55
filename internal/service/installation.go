package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/commit-karma/internal/model"
	"github.com/sakif/commit-karma/internal/repository"
)

// InstallationService tracks which repositories the app is installed on.
type InstallationService struct {
	repo   repository.InstallationRepository
	logger *slog.Logger
}

func NewInstallationService(repo repository.InstallationRepository, logger *slog.Logger) *InstallationService {
	return &InstallationService{repo: repo, logger: logger}
}

// Install activates the grant for one repository.
func (s *InstallationService) Install(ctx context.Context, inst *model.Installation) error {
	if err := s.repo.Install(ctx, inst); err != nil {
		return fmt.Errorf("service/installation: %w", err)
	}
	s.logger.Info("repository installed",
		slog.Int64("installation_id", inst.InstallationID),
		slog.Int64("repository_id", inst.RepositoryID),
		slog.String("repository", inst.RepositoryName),
		slog.String("target_type", inst.TargetType),
	)
	return nil
}

// Uninstall soft-deletes the grant for one repository.
func (s *InstallationService) Uninstall(ctx context.Context, installationID, targetID, repositoryID int64) (*model.Installation, error) {
	inst, err := s.repo.Uninstall(ctx, installationID, targetID, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("service/installation: %w", err)
	}
	s.logger.Info("repository uninstalled",
		slog.Int64("installation_id", installationID),
		slog.Int64("repository_id", repositoryID),
	)
	return inst, nil
}

// ByRepositoryID returns the active installation covering a repository.
func (s *InstallationService) ByRepositoryID(ctx context.Context, repositoryID int64) (*model.Installation, error) {
	inst, err := s.repo.ByRepositoryID(ctx, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("service/installation: %w", err)
	}
	return inst, nil
}

// Resolve returns installationID when the payload carried one, and
// otherwise looks the repository's installation up in the store.
func (s *InstallationService) Resolve(ctx context.Context, installationID, repositoryID int64) (int64, error) {
	if installationID != 0 {
		return installationID, nil
	}
	inst, err := s.ByRepositoryID(ctx, repositoryID)
	if err != nil {
		return 0, err
	}
	return inst.InstallationID, nil
}
