// Package apperror defines the error taxonomy shared by every layer.
//
// Each error kind is a sentinel. Constructors wrap a sentinel in an *AppError
// carrying the human-readable message, so callers test the kind with
// errors.Is and read the message with errors.As:
//
//	var appErr *apperror.AppError
//	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrNotFound) { ... }
//
// Status maps a kind to the HTTP status code the webhook endpoint answers with.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrConfiguration    = errors.New("configuration")
	ErrSchemaValidation = errors.New("schema validation")
	ErrNotFound         = errors.New("not found")
	ErrNotImplemented   = errors.New("not implemented")
	ErrSignature        = errors.New("signature")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: config key or payload field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Configuration reports a missing or unusable setting.
func Configuration(key, reason string) *AppError {
	return &AppError{
		Err:     ErrConfiguration,
		Message: fmt.Sprintf("invalid configuration. key %s %s", key, reason),
		Field:   key,
	}
}

// SchemaValidation reports a webhook payload that does not have the shape
// the normalizer expects.
func SchemaValidation(eventName, field string) *AppError {
	return &AppError{
		Err:     ErrSchemaValidation,
		Message: fmt.Sprintf("schema validation for %s failed: %s", eventName, field),
		Field:   field,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

func NotImplemented(message string) *AppError {
	if message == "" {
		message = "not implemented"
	}
	return &AppError{
		Err:     ErrNotImplemented,
		Message: message,
	}
}

// Signature reports a webhook delivery whose authenticity could not be
// established. The details stay out of the message returned to the caller.
func Signature(details string) *AppError {
	return &AppError{
		Err:     ErrSignature,
		Message: "invalid signature",
		Field:   details,
	}
}

func UnexpectedStatus(expected, actual int) *AppError {
	return &AppError{
		Err:     ErrUnexpectedStatus,
		Message: fmt.Sprintf("unexpected status %d was received, %d was expected", actual, expected),
	}
}

// Status returns the HTTP status code for err. Errors outside the taxonomy
// map to 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrSchemaValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrSignature):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotImplemented), errors.Is(err, ErrUnexpectedStatus):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Envelope is the JSON body of every response, {"ok":true} on success and
// {"ok":false,"message":...} on failure.
type Envelope struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}
