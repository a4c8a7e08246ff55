// Package service contains the business logic layer.
//
//	Handler (HTTP layer)     → reads the delivery, writes the envelope
//	Service (business layer) → decides what a webhook means for karma
//	Repository (data layer)  → reads/writes the store
//
// Services receive repository interfaces, not *sqlite.DB, so the same code
// runs on SQLite, Postgres, or a test fake.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/commit-karma/internal/model"
	"github.com/sakif/commit-karma/internal/repository"
)

// InteractionService records scored interactions and reads karma back.
type InteractionService struct {
	repo   repository.InteractionRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewInteractionService(repo repository.InteractionRepository, logger *slog.Logger) *InteractionService {
	return &InteractionService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Record scores the interaction from its kind, stamps it, and upserts it.
// An empty state means active. On return in.ID holds the stored id.
func (s *InteractionService) Record(ctx context.Context, in *model.Interaction) error {
	if !in.Kind.Valid() {
		return fmt.Errorf("service/interaction: unknown kind %q", in.Kind)
	}
	if in.State == "" {
		in.State = model.StateActive
	}
	in.Score = in.Kind.Score()
	in.Timestamp = s.now().UTC()

	if err := s.repo.Upsert(ctx, in); err != nil {
		return fmt.Errorf("service/interaction: recording %s: %w", in.Kind, err)
	}

	s.logger.Debug("interaction recorded",
		slog.String("id", in.ID),
		slog.String("kind", string(in.Kind)),
		slog.String("state", string(in.State)),
		slog.Int64("repository_id", in.RepositoryID),
		slog.Int64("number", in.Number),
		slog.Int64("user_id", in.UserID),
	)
	return nil
}

// Find returns the stored interaction of kind for a GitHub object id.
// A missing row surfaces as apperror.ErrNotFound.
func (s *InteractionService) Find(ctx context.Context, kind model.Kind, externalID int64) (*model.Interaction, error) {
	in, err := s.repo.SearchOne(ctx, kind, externalID)
	if err != nil {
		return nil, fmt.Errorf("service/interaction: %w", err)
	}
	return in, nil
}

// Karma sums the user's active interactions.
func (s *InteractionService) Karma(ctx context.Context, userID int64) (*model.Karma, error) {
	karma, err := s.repo.CalculateKarma(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/interaction: karma for user %d: %w", userID, err)
	}
	return karma, nil
}
