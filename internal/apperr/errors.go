// Package apperr defines the closed set of application errors that can reach
// the HTTP boundary. Each kind carries a fixed HTTP status, a stable
// machine-readable message key and a human description; only the field errors
// and root causes vary per instance.
//
// Errors are built at the point of failure and travel unmodified until the
// response formatter renders them:
//
//	return nil, apperr.NotFound(apperr.WithRootCauses(map[string]any{"id": id}))
//
// Rendered body (see package response):
//
//	{
//	  "error":       "not-found",
//	  "message":     "Resource not found",
//	  "root_causes": [{"id": 42}]
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable message keys.
const (
	KeyBadRequest          = "bad-request"
	KeyDataConflict        = "data-conflict"
	KeyForbidden           = "forbidden"
	KeyInternal            = "internal-error"
	KeyNotFound            = "not-found"
	KeyServiceUnavailable  = "service-unavailable"
	KeyUnauthorized        = "unauthorized"
	KeyUnprocessableEntity = "unprocessable-entity"
)

// AppError is a typed application error that knows how to render itself as an
// HTTP status plus body fields.
//
// Fields are unexported so an error cannot be altered after construction;
// FieldErrors and RootCauses return the values given to the constructor.
type AppError struct {
	code        int
	key         string
	description string
	fieldErrors any
	rootCauses  []map[string]any
	cause       error
}

// Option customizes the per-instance parts of an AppError.
type Option func(*AppError)

// WithFieldErrors attaches structured detail that is forwarded to the caller.
func WithFieldErrors(v any) Option {
	return func(e *AppError) { e.fieldErrors = v }
}

// WithRootCauses appends ordered diagnostic entries.
func WithRootCauses(causes ...map[string]any) Option {
	return func(e *AppError) { e.rootCauses = append(e.rootCauses, causes...) }
}

// WithCause records the underlying error, exposed through Unwrap.
func WithCause(err error) Option {
	return func(e *AppError) { e.cause = err }
}

// New builds a generic handler error with an arbitrary status/key/description
// triple. Prefer the fixed constructors below when one of them fits.
func New(code int, key, description string, opts ...Option) *AppError {
	e := &AppError{code: code, key: key, description: description}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BadRequest is 400 bad-request "Bad request".
func BadRequest(opts ...Option) *AppError {
	return New(http.StatusBadRequest, KeyBadRequest, "Bad request", opts...)
}

// DataConflict is 409 data-conflict "Resource data conflict".
func DataConflict(opts ...Option) *AppError {
	return New(http.StatusConflict, KeyDataConflict, "Resource data conflict", opts...)
}

// Forbidden is 403 forbidden "Forbidden resources access".
func Forbidden(opts ...Option) *AppError {
	return New(http.StatusForbidden, KeyForbidden, "Forbidden resources access", opts...)
}

// Internal is 500 internal-error "Internal server error".
func Internal(opts ...Option) *AppError {
	return New(http.StatusInternalServerError, KeyInternal, "Internal server error", opts...)
}

// NotFound is 404 not-found "Resource not found".
func NotFound(opts ...Option) *AppError {
	return New(http.StatusNotFound, KeyNotFound, "Resource not found", opts...)
}

// ServiceUnavailable is 503 service-unavailable "Service is currently in maintenance mode".
func ServiceUnavailable(opts ...Option) *AppError {
	return New(http.StatusServiceUnavailable, KeyServiceUnavailable, "Service is currently in maintenance mode", opts...)
}

// Unauthorized is 401 unauthorized "Unauthorized resource access".
func Unauthorized(opts ...Option) *AppError {
	return New(http.StatusUnauthorized, KeyUnauthorized, "Unauthorized resource access", opts...)
}

// UnprocessableEntity is 422 unprocessable-entity "Unprocessable resource entity".
func UnprocessableEntity(opts ...Option) *AppError {
	return New(http.StatusUnprocessableEntity, KeyUnprocessableEntity, "Unprocessable resource entity", opts...)
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.key, e.code, e.description, e.cause)
	}
	return fmt.Sprintf("%s (%d): %s", e.key, e.code, e.description)
}

// Unwrap returns the underlying cause, if any.
func (e *AppError) Unwrap() error { return e.cause }

// StatusCode returns the HTTP status the error renders as.
func (e *AppError) StatusCode() int { return e.code }

// Key returns the stable message key (e.g. "not-found").
func (e *AppError) Key() string { return e.key }

// Description returns the human readable description.
func (e *AppError) Description() string { return e.description }

// FieldErrors returns the structured detail attached at construction.
func (e *AppError) FieldErrors() any { return e.fieldErrors }

// RootCauses returns the diagnostic entries. The slice is copied so callers
// cannot alter the error through it.
func (e *AppError) RootCauses() []map[string]any {
	if e.rootCauses == nil {
		return nil
	}
	out := make([]map[string]any, len(e.rootCauses))
	copy(out, e.rootCauses)
	return out
}

// As reports whether err (or anything it wraps) is an *AppError.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}
