package handler

// RESPONSE ENVELOPE:
// Every response from this server has the same shape:
//
//	success: {"ok":true}
//	failure: {"ok":false,"message":"pull_request 555 not found"}
//
// GitHub records the status and body of each delivery, so the message is
// what an operator sees in the app's "Recent Deliveries" tab.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/commit-karma/internal/apperror"
)

// Envelope is the JSON body of every response.
type Envelope = apperror.Envelope

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; anything set afterwards is silently dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, Envelope{OK: true})
}

// writeError maps err onto the taxonomy's status code. Typed application
// errors carry their message to the client; anything else becomes a generic
// 500 so SQL text and file paths never leave the process.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, apperror.Status(err), Envelope{Message: appErr.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, Envelope{Message: "an internal error occurred"})
}
