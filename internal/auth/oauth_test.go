package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/commit-karma/internal/apperror"
)

func TestInstallations_Client(t *testing.T) {
	s, _ := newTestAppTokenService(t)
	var exchanges atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/app/installations/900/access_tokens":
			exchanges.Add(1)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(InstallationToken{
				Token:     "ghs_installation",
				ExpiresAt: time.Now().Add(time.Hour),
			})
		case "/echo":
			assert.Equal(t, "token ghs_installation", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewInstallations(s, srv.URL+"/", srv.Client()).Client(context.Background(), 900)

	for i := 0; i < 2; i++ {
		resp, err := client.Get(srv.URL + "/echo")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
	assert.Equal(t, int32(1), exchanges.Load(), "token should be reused while valid")
}

func TestInstallationTokenSource_UnexpectedStatus(t *testing.T) {
	s, _ := newTestAppTokenService(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewInstallations(s, srv.URL, srv.Client()).TokenSource(context.Background(), 1).Token()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUnexpectedStatus), "err = %v", err)
}

func TestInstallationTokenSource_EmptyToken(t *testing.T) {
	s, _ := newTestAppTokenService(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":""}`))
	}))
	defer srv.Close()

	_, err := NewInstallations(s, srv.URL, srv.Client()).TokenSource(context.Background(), 1).Token()
	assert.Error(t, err)
}
