// Package auth authenticates both directions of the GitHub App conversation.
//
// INBOUND: webhook deliveries carry X-Hub-Signature-256, an HMAC-SHA256 of
// the raw body keyed with the shared webhook secret. RequireSignature
// rejects anything that does not verify before the body is parsed.
//
// OUTBOUND: the app proves its identity with a short-lived JWT signed by the
// app's RSA private key, then trades it for an installation access token
// scoped to one installation:
//
//	app JWT (RS256, iss=appID) ──POST /app/installations/{id}/access_tokens──▶ token
//	token ──Authorization: token <t>──▶ /repos/{owner}/{repo}/check-runs
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"RS256","typ":"JWT"}
//	- Payload: {"iss":"<app id>","iat":...,"exp":...}
//	- Signature: RSASSA-PKCS1-v1_5-SHA256(header+"."+payload, privateKey)
package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GitHub rejects app JWTs that live longer than ten minutes. The issued-at
// time is backdated to absorb clock drift between us and GitHub.
const (
	appTokenLifetime = 9 * time.Minute
	appTokenBackdate = 60 * time.Second
)

// ParsePrivateKey reads the app's RSA private key. The value may be the PEM
// text itself or the PEM base64-encoded onto one line, which is how it is
// usually stored in an environment variable:
//
//	GITHUB_PRIVATE_KEY=$(base64 -w0 commit-karma.pem)
func ParsePrivateKey(raw string) (*rsa.PrivateKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("auth: private key is empty")
	}

	pemBytes := []byte(raw)
	if !strings.HasPrefix(raw, "-----BEGIN") {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("auth: private key is neither PEM nor base64: %w", err)
		}
		pemBytes = decoded
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("auth: parsing private key: %w", err)
	}
	return key, nil
}

// AppTokenService signs GitHub App JWTs.
type AppTokenService struct {
	appID int64
	key   *rsa.PrivateKey
	now   func() time.Time
}

func NewAppTokenService(appID int64, key *rsa.PrivateKey) (*AppTokenService, error) {
	if appID <= 0 {
		return nil, errors.New("auth: app id must be positive")
	}
	if key == nil {
		return nil, errors.New("auth: private key is required")
	}
	return &AppTokenService{appID: appID, key: key, now: time.Now}, nil
}

// AppID returns the app id used as the token issuer.
func (s *AppTokenService) AppID() int64 { return s.appID }

// Generate creates a signed app JWT valid for appTokenLifetime.
func (s *AppTokenService) Generate() (string, error) {
	now := s.now()

	c := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(s.appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-appTokenBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appTokenLifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("auth: signing app token: %w", err)
	}
	return signed, nil
}
