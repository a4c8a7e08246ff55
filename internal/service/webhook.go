package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sakif/commit-karma/internal/apperror"
	"github.com/sakif/commit-karma/internal/event"
	"github.com/sakif/commit-karma/internal/github"
	"github.com/sakif/commit-karma/internal/metrics"
	"github.com/sakif/commit-karma/internal/model"
)

// CheckRunCreator posts the karma report for a commit. *github.Client is the
// production implementation.
type CheckRunCreator interface {
	CreateCheckRun(ctx context.Context, req github.CheckRunRequest) (github.Conclusion, error)
}

// WebhookService turns one verified webhook delivery into store writes and,
// for pull requests and check suites, a check run.
//
// EVENT POLICY:
//
//	installation                 deleted → uninstall listed repos, else install them
//	installation_repositories    added → install, removed → uninstall
//	issue_comment                comment (deleted action → deleted state)
//	pull_request                 pull_request, then karma check run on head sha
//	pull_request_review          review
//	pull_request_review_comment  comment (deleted action → deleted state)
//	check_suite                  (re)requested → karma check run per attached PR
//	check_run                    ignored; the app creates check runs itself
//
// Comments and reviews on the author's own issue or pull request are skipped.
type WebhookService struct {
	interactions  *InteractionService
	installations *InstallationService
	checks        CheckRunCreator
	metrics       *metrics.Metrics
	logger        *slog.Logger
	tracer        trace.Tracer
}

func NewWebhookService(
	interactions *InteractionService,
	installations *InstallationService,
	checks CheckRunCreator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		interactions:  interactions,
		installations: installations,
		checks:        checks,
		metrics:       m,
		logger:        logger,
		tracer:        otel.Tracer("github.com/sakif/commit-karma/internal/service"),
	}
}

// Dispatch normalizes body as the named event and applies it. Unknown event
// names fail with apperror.ErrNotImplemented before anything is written.
func (s *WebhookService) Dispatch(ctx context.Context, name string, body []byte) error {
	ctx, span := s.tracer.Start(ctx, "webhook.Dispatch", trace.WithAttributes(
		attribute.String("github.event", name),
	))
	defer span.End()

	ev, err := event.Parse(name, body)
	if err != nil {
		s.fail(ctx, span, name, "", err)
		return fmt.Errorf("service/webhook: parsing %s: %w", name, err)
	}
	span.SetAttributes(attribute.String("github.action", ev.ActionName()))

	outcome, err := s.apply(ctx, ev)
	if err != nil {
		s.fail(ctx, span, name, ev.ActionName(), err)
		return fmt.Errorf("service/webhook: %s %s: %w", name, ev.ActionName(), err)
	}

	s.metrics.ObserveDelivery(name, ev.ActionName(), outcome)
	span.SetAttributes(attribute.String("karma.outcome", outcome))
	return nil
}

func (s *WebhookService) fail(ctx context.Context, span trace.Span, name, action string, err error) {
	s.metrics.ObserveDelivery(name, action, metrics.OutcomeFailed)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	level := slog.LevelError
	if apperror.Status(err) < 500 {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "webhook failed",
		slog.String("event", name),
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
}

// apply is exhaustive over the event records; it returns the delivery outcome.
func (s *WebhookService) apply(ctx context.Context, ev event.Event) (string, error) {
	switch e := ev.(type) {
	case *event.Installation:
		return s.onInstallation(ctx, e)
	case *event.InstallationRepositories:
		return s.onInstallationRepositories(ctx, e)
	case *event.IssueComment:
		return s.onIssueComment(ctx, e)
	case *event.PullRequest:
		return s.onPullRequest(ctx, e)
	case *event.PullRequestReview:
		return s.onPullRequestReview(ctx, e)
	case *event.PullRequestReviewComment:
		return s.onPullRequestReviewComment(ctx, e)
	case *event.CheckSuite:
		return s.onCheckSuite(ctx, e)
	case *event.CheckRun:
		s.logger.Debug("check_run ignored", slog.String("action", e.Action))
		return metrics.OutcomeSkipped, nil
	default:
		return "", apperror.NotImplemented(fmt.Sprintf("%s %s not implemented", ev.Name(), ev.ActionName()))
	}
}

// =========================================================================
// INSTALLATIONS
// =========================================================================

func (s *WebhookService) onInstallation(ctx context.Context, e *event.Installation) (string, error) {
	for _, repo := range e.Repositories {
		var err error
		if e.Action == event.ActionDeleted {
			_, err = s.installations.Uninstall(ctx, e.InstallationID, e.TargetID, repo.ID)
		} else {
			err = s.installations.Install(ctx, &model.Installation{
				InstallationID: e.InstallationID,
				TargetID:       e.TargetID,
				TargetType:     e.TargetType,
				RepositoryID:   repo.ID,
				RepositoryName: repo.Name,
			})
		}
		if err != nil {
			return "", err
		}
	}

	s.logger.Info("installation event",
		slog.String("action", e.Action),
		slog.Int64("installation_id", e.InstallationID),
		slog.Int("repositories", len(e.Repositories)),
		slog.String("outcome", metrics.OutcomeProcessed),
	)
	return metrics.OutcomeProcessed, nil
}

func (s *WebhookService) onInstallationRepositories(ctx context.Context, e *event.InstallationRepositories) (string, error) {
	for _, repo := range e.Added {
		err := s.installations.Install(ctx, &model.Installation{
			InstallationID: e.InstallationID,
			TargetID:       e.TargetID,
			TargetType:     e.TargetType,
			RepositoryID:   repo.ID,
			RepositoryName: repo.Name,
		})
		if err != nil {
			return "", err
		}
	}
	for _, repo := range e.Removed {
		if _, err := s.installations.Uninstall(ctx, e.InstallationID, e.TargetID, repo.ID); err != nil {
			return "", err
		}
	}

	s.logger.Info("installation_repositories event",
		slog.String("action", e.Action),
		slog.Int64("installation_id", e.InstallationID),
		slog.Int("added", len(e.Added)),
		slog.Int("removed", len(e.Removed)),
		slog.String("outcome", metrics.OutcomeProcessed),
	)
	return metrics.OutcomeProcessed, nil
}

// =========================================================================
// COMMENTS AND REVIEWS
// =========================================================================

func (s *WebhookService) onIssueComment(ctx context.Context, e *event.IssueComment) (string, error) {
	if e.SelfAuthored() {
		return s.skipSelf(e, e.RepositoryID, e.Number, e.CommentUserLogin), nil
	}
	return s.record(ctx, e, &model.Interaction{
		Kind:         model.KindComment,
		State:        stateFor(e.Action),
		RepositoryID: e.RepositoryID,
		Number:       e.Number,
		ExternalID:   e.CommentID,
		UserID:       e.CommentUserID,
		UserLogin:    e.CommentUserLogin,
	})
}

func (s *WebhookService) onPullRequestReview(ctx context.Context, e *event.PullRequestReview) (string, error) {
	if e.SelfAuthored() {
		return s.skipSelf(e, e.RepositoryID, e.Number, e.ReviewUserLogin), nil
	}
	return s.record(ctx, e, &model.Interaction{
		Kind:         model.KindReview,
		State:        model.StateActive,
		RepositoryID: e.RepositoryID,
		Number:       e.Number,
		ExternalID:   e.ReviewID,
		UserID:       e.ReviewUserID,
		UserLogin:    e.ReviewUserLogin,
	})
}

func (s *WebhookService) onPullRequestReviewComment(ctx context.Context, e *event.PullRequestReviewComment) (string, error) {
	if e.SelfAuthored() {
		return s.skipSelf(e, e.RepositoryID, e.Number, e.CommentUserLogin), nil
	}
	return s.record(ctx, e, &model.Interaction{
		Kind:         model.KindComment,
		State:        stateFor(e.Action),
		RepositoryID: e.RepositoryID,
		Number:       e.Number,
		ExternalID:   e.CommentID,
		UserID:       e.CommentUserID,
		UserLogin:    e.CommentUserLogin,
	})
}

func (s *WebhookService) record(ctx context.Context, ev event.Event, in *model.Interaction) (string, error) {
	if err := s.interactions.Record(ctx, in); err != nil {
		return "", err
	}
	s.logger.Info("interaction event",
		slog.String("event", string(ev.Name())),
		slog.String("action", ev.ActionName()),
		slog.Int64("repository_id", in.RepositoryID),
		slog.Int64("number", in.Number),
		slog.String("user", in.UserLogin),
		slog.String("state", string(in.State)),
		slog.String("outcome", metrics.OutcomeProcessed),
	)
	return metrics.OutcomeProcessed, nil
}

func (s *WebhookService) skipSelf(ev event.Event, repositoryID, number int64, login string) string {
	s.logger.Info("self-authored interaction skipped",
		slog.String("event", string(ev.Name())),
		slog.String("action", ev.ActionName()),
		slog.Int64("repository_id", repositoryID),
		slog.Int64("number", number),
		slog.String("user", login),
		slog.String("outcome", metrics.OutcomeSkipped),
	)
	return metrics.OutcomeSkipped
}

func stateFor(action string) model.State {
	if action == event.ActionDeleted {
		return model.StateDeleted
	}
	return model.StateActive
}

// =========================================================================
// PULL REQUESTS AND CHECK SUITES
// =========================================================================

func (s *WebhookService) onPullRequest(ctx context.Context, e *event.PullRequest) (string, error) {
	in := &model.Interaction{
		Kind:         model.KindPullRequest,
		State:        model.StateActive,
		RepositoryID: e.RepositoryID,
		Number:       e.Number,
		ExternalID:   e.PullRequestID,
		UserID:       e.UserID,
		UserLogin:    e.UserLogin,
	}
	if err := s.interactions.Record(ctx, in); err != nil {
		return "", err
	}

	installationID, err := s.installations.Resolve(ctx, e.InstallationID, e.RepositoryID)
	if err != nil {
		return "", err
	}

	conclusion, err := s.reportKarma(ctx, github.CheckRunRequest{
		InstallationID: installationID,
		Owner:          e.RepositoryOwner,
		Repo:           e.RepositoryName,
		HeadSHA:        e.HeadSHA,
		UserLogin:      e.UserLogin,
	}, e.UserID)
	if err != nil {
		return "", err
	}

	s.logger.Info("pull_request event",
		slog.String("action", e.Action),
		slog.String("repository", e.RepositoryOwner+"/"+e.RepositoryName),
		slog.Int64("number", e.Number),
		slog.String("user", e.UserLogin),
		slog.String("conclusion", string(conclusion)),
		slog.String("outcome", metrics.OutcomeProcessed),
	)
	return metrics.OutcomeProcessed, nil
}

func (s *WebhookService) onCheckSuite(ctx context.Context, e *event.CheckSuite) (string, error) {
	if len(e.PullRequests) == 0 {
		s.logger.Debug("check_suite without pull requests ignored", slog.String("action", e.Action))
		return metrics.OutcomeSkipped, nil
	}
	if e.Action != event.ActionRequested && e.Action != event.ActionRerequested {
		s.logger.Debug("check_suite action ignored", slog.String("action", e.Action))
		return metrics.OutcomeSkipped, nil
	}

	for _, pr := range e.PullRequests {
		stored, err := s.interactions.Find(ctx, model.KindPullRequest, pr.ID)
		if err != nil {
			return "", err
		}
		installationID, err := s.installations.Resolve(ctx, e.InstallationID, e.RepositoryID)
		if err != nil {
			return "", err
		}

		conclusion, err := s.reportKarma(ctx, github.CheckRunRequest{
			InstallationID: installationID,
			Owner:          e.RepositoryOwner,
			Repo:           e.RepositoryName,
			HeadSHA:        pr.HeadSHA,
			UserLogin:      stored.UserLogin,
		}, stored.UserID)
		if err != nil {
			return "", err
		}

		s.logger.Info("check_suite event",
			slog.String("action", e.Action),
			slog.String("repository", e.RepositoryOwner+"/"+e.RepositoryName),
			slog.Int64("number", pr.Number),
			slog.String("user", stored.UserLogin),
			slog.String("conclusion", string(conclusion)),
			slog.String("outcome", metrics.OutcomeProcessed),
		)
	}
	return metrics.OutcomeProcessed, nil
}

// reportKarma computes userID's karma and posts it as a check run.
func (s *WebhookService) reportKarma(ctx context.Context, req github.CheckRunRequest, userID int64) (github.Conclusion, error) {
	karma, err := s.interactions.Karma(ctx, userID)
	if err != nil {
		return "", err
	}
	req.Karma = karma

	conclusion, err := s.checks.CreateCheckRun(ctx, req)
	if err != nil {
		return "", err
	}
	s.metrics.ObserveCheckRun(string(conclusion))
	return conclusion, nil
}
