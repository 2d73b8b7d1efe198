// Package apperr defines the error-kind taxonomy surfaced across every
// component boundary, generalized from the sentinel errors the
// repository layer used to return directly to callers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the error kinds callers are allowed to branch on.
type Kind string

const (
	Validation          Kind = "VALIDATION"
	NotAuthorized       Kind = "NOT_AUTHORIZED"
	NotFound            Kind = "NOT_FOUND"
	InvalidState        Kind = "INVALID_STATE"
	InsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	ReaderUnavailable   Kind = "READER_UNAVAILABLE"
	RateLimitExceeded   Kind = "RATE_LIMIT_EXCEEDED"
	Conflict            Kind = "CONFLICT"
	Transient           Kind = "TRANSIENT_ERROR"
	Internal            Kind = "INTERNAL"
)

// Error carries a Kind plus a human-readable message and is what every
// service-layer function returns instead of a raw driver error.
type Error struct {
	Kind    Kind
	Message string
	Tag     string // e.g. rate-limit category or a specific payout error code
	cause   error
}

func (e *Error) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Tag, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind, keeping the original error
// reachable via errors.Unwrap for logging.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithTag attaches a category tag, used for RATE_LIMIT_EXCEEDED.
func (e *Error) WithTag(tag string) *Error {
	e.Tag = tag
	return e
}

// KindOf extracts the Kind of err, defaulting to Internal for anything
// that isn't an *Error — the boundary never leaks an untyped error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// HTTPStatus maps a Kind to the status code table in spec §6.
func (k Kind) HTTPStatus() int {
	switch k {
	case Validation, InvalidState, InsufficientBalance:
		return 400
	case NotAuthorized:
		return 403
	case NotFound:
		return 404
	case Conflict, ReaderUnavailable:
		return 409
	case RateLimitExceeded:
		return 429
	case Transient, Internal:
		return 500
	default:
		return 500
	}
}
