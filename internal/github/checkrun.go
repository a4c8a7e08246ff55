package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sakif/commit-karma/internal/apperror"
	"github.com/sakif/commit-karma/internal/model"
)

// InstallationClients returns HTTP clients authenticated as an installation.
// *auth.Installations is the production implementation.
type InstallationClients interface {
	Client(ctx context.Context, installationID int64) *http.Client
}

// CheckRunRequest is everything needed to report karma on one commit.
type CheckRunRequest struct {
	InstallationID int64
	Owner          string
	Repo           string
	HeadSHA        string
	UserLogin      string
	Karma          *model.Karma
}

type checkRunBody struct {
	Name        string     `json:"name"`
	HeadSHA     string     `json:"head_sha"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
	Conclusion  Conclusion `json:"conclusion"`
	Output      Output     `json:"output"`
}

// Client creates check runs through the GitHub REST API.
type Client struct {
	apiURL  string
	clients InstallationClients
	tracer  trace.Tracer
	now     func() time.Time
}

func NewClient(apiURL string, clients InstallationClients) *Client {
	return &Client{
		apiURL:  strings.TrimRight(apiURL, "/"),
		clients: clients,
		tracer:  otel.Tracer("github.com/sakif/commit-karma/internal/github"),
		now:     time.Now,
	}
}

// CreateCheckRun posts a completed check run carrying the karma report on
// req.HeadSHA. GitHub answers 201 Created; anything else is returned as
// apperror.ErrUnexpectedStatus. There is no retry.
func (c *Client) CreateCheckRun(ctx context.Context, req CheckRunRequest) (Conclusion, error) {
	ctx, span := c.tracer.Start(ctx, "github.CreateCheckRun", trace.WithAttributes(
		attribute.Int64("github.installation_id", req.InstallationID),
		attribute.String("github.repository", req.Owner+"/"+req.Repo),
		attribute.String("github.head_sha", req.HeadSHA),
	))
	defer span.End()

	now := c.now().UTC()
	conclusion := ConclusionFor(req.Karma.Score)
	payload, err := json.Marshal(checkRunBody{
		Name:        CheckRunName,
		HeadSHA:     req.HeadSHA,
		Status:      "completed",
		StartedAt:   now,
		CompletedAt: now,
		Conclusion:  conclusion,
		Output:      Report(req.UserLogin, req.Karma),
	})
	if err != nil {
		return "", fmt.Errorf("github: encoding check run: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/check-runs",
		c.apiURL, url.PathEscape(req.Owner), url.PathEscape(req.Repo))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("github: building check run request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/vnd.github.v3+json")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.clients.Client(ctx, req.InstallationID).Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return "", fmt.Errorf("github: creating check run on %s/%s: %w", req.Owner, req.Repo, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusCreated {
		err := apperror.UnexpectedStatus(http.StatusCreated, resp.StatusCode)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("github: creating check run on %s/%s: %w", req.Owner, req.Repo, err)
	}

	span.SetAttributes(attribute.String("karma.conclusion", string(conclusion)))
	return conclusion, nil
}
