package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/commit-karma/internal/apperror"
)

// InstallationToken is the body GitHub returns from
// POST /app/installations/{id}/access_tokens.
type InstallationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Installations hands out HTTP clients authenticated as a single app
// installation.
type Installations struct {
	tokens  *AppTokenService
	apiURL  string
	httpCli *http.Client
}

// NewInstallations builds the provider. apiURL is the REST root, normally
// https://api.github.com. httpClient carries requests both to the token
// endpoint and, as the base transport, to the API itself.
func NewInstallations(tokens *AppTokenService, apiURL string, httpClient *http.Client) *Installations {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Installations{
		tokens:  tokens,
		apiURL:  strings.TrimRight(apiURL, "/"),
		httpCli: httpClient,
	}
}

// TokenSource returns an oauth2.TokenSource minting tokens for
// installationID. The context bounds each token request.
func (p *Installations) TokenSource(ctx context.Context, installationID int64) oauth2.TokenSource {
	return &installationTokenSource{ctx: ctx, provider: p, installationID: installationID}
}

// Client returns an *http.Client that sends "Authorization: token <t>" on
// every request. oauth2.NewClient reuses the token until it expires, so a
// delivery that posts several check runs exchanges the app JWT once.
func (p *Installations) Client(ctx context.Context, installationID int64) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpCli)
	return oauth2.NewClient(ctx, p.TokenSource(ctx, installationID))
}

type installationTokenSource struct {
	ctx            context.Context
	provider       *Installations
	installationID int64
}

// Token exchanges a fresh app JWT for an installation token.
//
// GitHub expects "token" rather than "Bearer" in front of installation
// tokens, so TokenType is set accordingly; oauth2.Transport copies it into
// the Authorization header verbatim.
func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	appJWT, err := s.provider.tokens.Generate()
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", s.provider.apiURL, s.installationID)
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building installation token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := s.provider.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: requesting installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("auth: installation %d token: %w",
			s.installationID, apperror.UnexpectedStatus(http.StatusCreated, resp.StatusCode))
	}

	var it InstallationToken
	if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
		return nil, fmt.Errorf("auth: decoding installation token: %w", err)
	}
	if it.Token == "" {
		return nil, fmt.Errorf("auth: installation %d token response has no token", s.installationID)
	}

	return &oauth2.Token{
		AccessToken: it.Token,
		TokenType:   "token",
		Expiry:      it.ExpiresAt,
	}, nil
}
