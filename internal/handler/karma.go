package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/commit-karma/internal/apperror"
	"github.com/sakif/commit-karma/internal/model"
)

// KarmaReader computes a user's karma. *service.InteractionService is the
// production implementation.
type KarmaReader interface {
	Karma(ctx context.Context, userID int64) (*model.Karma, error)
}

type KarmaHandler struct {
	karma  KarmaReader
	logger *slog.Logger
}

func NewKarmaHandler(karma KarmaReader, logger *slog.Logger) *KarmaHandler {
	return &KarmaHandler{karma: karma, logger: logger}
}

type karmaResponse struct {
	OK    bool         `json:"ok"`
	Karma *model.Karma `json:"karma"`
}

// HandleGet handles GET /api/karma/{userID}.
//
// chi.URLParam reads the {userID} segment matched by the router.
func (h *KarmaHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "userID")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, apperror.SchemaValidation("karma", "userID must be a positive integer"))
		return
	}

	karma, err := h.karma.Karma(r.Context(), userID)
	if err != nil {
		h.logger.Error("reading karma",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, karmaResponse{OK: true, Karma: karma})
}
