package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/commit-karma/internal/auth"
)

// EventHeader names the webhook event type of a delivery.
const EventHeader = "X-GitHub-Event"

// Dispatcher applies one webhook delivery. *service.WebhookService is the
// production implementation.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, body []byte) error
}

// WebhookHandler receives GitHub App deliveries. It expects to sit behind
// auth.RequireSignature, which has already read and verified the body.
type WebhookHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewWebhookHandler(dispatcher Dispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, logger: logger}
}

// HandleWebhook handles POST /{webhookPath}. A missing event header is
// dispatched as the empty name, which fails as not implemented.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	name := r.Header.Get(EventHeader)

	body, err := io.ReadAll(io.LimitReader(r.Body, auth.MaxBodyBytes))
	if err != nil {
		h.logger.Error("reading webhook body", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), name, body); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}
