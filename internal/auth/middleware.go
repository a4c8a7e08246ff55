package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/commit-karma/internal/apperror"
)

const (
	// SignatureHeader carries "sha256=<hex hmac of the raw body>".
	SignatureHeader = "X-Hub-Signature-256"

	signaturePrefix = "sha256="

	// MaxBodyBytes matches GitHub's cap on webhook payloads.
	MaxBodyBytes = 25 << 20
)

// VerifySignature checks header against the HMAC-SHA256 of body keyed with
// secret. The comparison is constant time.
func VerifySignature(secret []byte, header string, body []byte) error {
	if header == "" {
		return apperror.Signature("missing " + SignatureHeader)
	}
	hexSig, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok {
		return apperror.Signature("unsupported signature format")
	}
	got, err := hex.DecodeString(hexSig)
	if err != nil {
		return apperror.Signature("signature is not hex")
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return apperror.Signature("could not verify signature")
	}
	return nil
}

// Sign returns the X-Hub-Signature-256 value GitHub would send for body.
func Sign(secret []byte, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// RequireSignature is the first gate on the webhook route.
//
// It buffers the body (bounded by MaxBodyBytes), verifies the signature and
// only then hands the request on, with the buffered body restored so the
// handler can read it again. Failures answer 401 without calling next.
func RequireSignature(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeRejection(w, http.StatusRequestEntityTooLarge, "payload too large")
					return
				}
				writeRejection(w, http.StatusBadRequest, "could not read body")
				return
			}

			if err := VerifySignature(key, r.Header.Get(SignatureHeader), body); err != nil {
				var appErr *apperror.AppError
				details := err.Error()
				if errors.As(err, &appErr) {
					details = appErr.Field
				}
				logger.Warn("webhook signature rejected",
					slog.String("delivery", r.Header.Get("X-GitHub-Delivery")),
					slog.String("event", r.Header.Get("X-GitHub-Event")),
					slog.String("reason", details),
				)
				writeRejection(w, apperror.Status(err), err.Error())
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			next.ServeHTTP(w, r)
		})
	}
}

func writeRejection(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apperror.Envelope{Message: message})
}
