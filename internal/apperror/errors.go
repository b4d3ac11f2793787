// Package apperror provides domain-specific error types for Tracknest.
// These errors carry an HTTP status code and a stable, machine-readable
// kind identifier. The Echo error handler maps them to HTTP responses.
//
// NEVER return raw database or infrastructure errors to the client. Always
// wrap them in an apperror type or return a generic internal error.
package apperror

import (
	"fmt"
	"net/http"
)

// Stable kind identifiers. Clients key off these, so they never change.
const (
	KindAuthRequired     = "authentication_required"
	KindInvalidOrExpired = "invalid_or_expired"
	KindCSRFMismatch     = "csrf_mismatch"
	KindAccessDenied     = "access_denied"
	KindNotFound         = "not_found"
	KindConflict         = "conflict"
	KindValidation       = "validation_error"
	KindBadRequest       = "bad_request"
	KindInternal         = "internal_error"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable kind, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 403, 500).
	Code int `json:"-"`

	// Kind is the stable machine-readable classifier (e.g., "not_found").
	Kind string `json:"error"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Kind, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// --- Constructors for the authentication taxonomy ---

// NewAuthRequired creates a 401 error for requests that presented no
// credential at all.
func NewAuthRequired() *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Kind:    KindAuthRequired,
		Message: "authentication required",
	}
}

// NewInvalidOrExpired creates a 401 error for a credential that was
// presented but rejected: bad signature, unknown token, or past expiry.
func NewInvalidOrExpired(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Kind:    KindInvalidOrExpired,
		Message: message,
	}
}

// NewRefreshRejected creates a 403 error for an invalid or expired refresh
// token. The refresh endpoint answers 403 rather than 401: the client is
// not being asked to retry the same credential, its session is gone.
func NewRefreshRejected() *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Kind:    KindInvalidOrExpired,
		Message: "invalid or expired refresh token",
	}
}

// NewCSRFMismatch creates a 403 error for a cookie-authenticated
// state-changing request with a missing or wrong CSRF header.
func NewCSRFMismatch() *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Kind:    KindCSRFMismatch,
		Message: "missing or invalid CSRF token",
	}
}

// NewAccessDenied creates a 403 error for an authenticated principal that
// is neither owner nor collaborator on an existing resource.
func NewAccessDenied(message string) *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Kind:    KindAccessDenied,
		Message: message,
	}
}

// --- General constructors ---

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Kind:    KindNotFound,
		Message: message,
	}
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Kind:    KindBadRequest,
		Message: message,
	}
}

// NewValidation creates a 400 error for input that failed validation
// (e.g., a password below the minimum length).
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Kind:    KindValidation,
		Message: message,
	}
}

// NewConflict creates a 409 Conflict error.
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindConflict,
		Message: message,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Kind:     KindInternal,
		Message:  "an unexpected error occurred",
		Internal: err,
	}
}

// IsKind reports whether err is an *AppError with the given kind.
func IsKind(err error, kind string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Kind == kind
}
