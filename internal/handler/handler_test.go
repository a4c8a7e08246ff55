package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/commit-karma/internal/apperror"
	"github.com/sakif/commit-karma/internal/auth"
	"github.com/sakif/commit-karma/internal/event"
	"github.com/sakif/commit-karma/internal/model"
)

const testSecret = "It's a Secret to Everybody"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeDispatcher struct {
	calls []string
	body  []byte
	err   error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, name string, body []byte) error {
	f.calls = append(f.calls, name)
	f.body = body
	return f.err
}

type fakeKarma struct {
	karma *model.Karma
	err   error
}

func (f *fakeKarma) Karma(_ context.Context, userID int64) (*model.Karma, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.karma.UserID = userID
	return f.karma, nil
}

func newRouter(d Dispatcher, k KarmaReader) http.Handler {
	r := chi.NewRouter()
	r.NotFound(HandleNotFound)
	r.MethodNotAllowed(HandleMethodNotAllowed)
	r.Get("/health", HandleHealth)
	r.With(auth.RequireSignature(testSecret, discard)).Post("/webhook", NewWebhookHandler(d, discard).HandleWebhook)
	r.Get("/api/karma/{userID}", NewKarmaHandler(k, discard).HandleGet)
	return r
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func signedRequest(event string, body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set(EventHeader, event)
	req.Header.Set(auth.SignatureHeader, auth.Sign([]byte(testSecret), body))
	return req
}

func TestHandleWebhook_OK(t *testing.T) {
	d := &fakeDispatcher{}
	body := []byte(`{"action":"created"}`)

	rec := httptest.NewRecorder()
	newRouter(d, nil).ServeHTTP(rec, signedRequest("issue_comment", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, []string{"issue_comment"}, d.calls)
	assert.Equal(t, body, d.body)
}

func TestHandleWebhook_SignatureCheckedFirst(t *testing.T) {
	d := &fakeDispatcher{}
	body := []byte(`{"action":"created"}`)

	tests := []struct {
		name      string
		signature string
	}{
		{"missing", ""},
		{"wrong secret", auth.Sign([]byte("other"), body)},
		{"malformed", "sha1=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
			req.Header.Set(EventHeader, "star")
			if tt.signature != "" {
				req.Header.Set(auth.SignatureHeader, tt.signature)
			}

			rec := httptest.NewRecorder()
			newRouter(d, nil).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, decodeEnvelope(t, rec).OK)
		})
	}
	assert.Empty(t, d.calls)
}

func TestHandleWebhook_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not implemented", apperror.NotImplemented("star created not implemented"), 500, "star created not implemented"},
		{"schema", apperror.SchemaValidation("pull_request", "PullRequest.HeadSHA"), 400, "schema validation for pull_request failed: PullRequest.HeadSHA"},
		{"not found", apperror.NotFound("pull_request", "555"), 404, "pull_request 555 not found"},
		{"upstream", apperror.UnexpectedStatus(201, 403), 500, "unexpected status 403 was received, 201 was expected"},
		{"unknown", errors.New("database is locked"), 500, "an internal error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{err: tt.err}

			rec := httptest.NewRecorder()
			newRouter(d, nil).ServeHTTP(rec, signedRequest("pull_request", []byte(`{}`)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.OK)
			assert.Equal(t, tt.wantMsg, env.Message)
		})
	}
}

// parsingDispatcher runs the real normalizer and stops there.
type parsingDispatcher struct{}

func (parsingDispatcher) Dispatch(_ context.Context, name string, body []byte) error {
	_, err := event.Parse(name, body)
	return err
}

func TestHandleWebhook_MissingEventHeader(t *testing.T) {
	req := signedRequest("", []byte(`{"action":"created"}`))
	req.Header.Del(EventHeader)

	rec := httptest.NewRecorder()
	newRouter(parsingDispatcher{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.OK)
	assert.Equal(t, " created not implemented", env.Message)
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHandleNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"ok":false,"message":"url /nowhere not found"}`, rec.Body.String())
}

func TestHandleMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).OK)
}

func TestKarmaHandler(t *testing.T) {
	k := model.NewKarma(0)
	k.Add(model.KindComment, 2, 2)
	k.Add(model.KindReview, 1, 2.5)

	rec := httptest.NewRecorder()
	newRouter(nil, &fakeKarma{karma: k}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/karma/42", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"ok": true,
		"karma": {
			"userId": 42,
			"kinds": {"comment": 2, "review": 1},
			"totals": {"comment": 2, "review": 2.5},
			"score": 4.5
		}
	}`, rec.Body.String())
}

func TestKarmaHandler_BadID(t *testing.T) {
	for _, id := range []string{"abc", "-1", "0"} {
		rec := httptest.NewRecorder()
		newRouter(nil, &fakeKarma{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/karma/"+id, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
}

func TestKarmaHandler_StoreError(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(nil, &fakeKarma{err: errors.New("boom")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/karma/1", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "an internal error occurred", decodeEnvelope(t, rec).Message)
}
