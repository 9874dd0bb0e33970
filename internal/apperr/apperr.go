// Package apperr defines the engine's error taxonomy. Every error that
// can cross the HTTP boundary carries a Kind that maps to a status code
// and a sanitized message (no stacks, no secrets).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the taxonomy bucket.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindUnknownSrc   Kind = "UNKNOWN_SOURCE"
	KindSchema       Kind = "SCHEMA_VALIDATION"
	KindProvider     Kind = "PROVIDER_ERROR"
	KindTimeout      Kind = "TIMEOUT_ERROR"
	KindRateLimit    Kind = "RATE_LIMIT_ERROR"
	KindImmutability Kind = "IMMUTABILITY_VIOLATION"
	KindInternal     Kind = "INTERNAL_ERROR"
)

// Error is a kinded error with optional field-level details.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), wrapped: cause}
}

// WithDetails appends field-level detail strings.
func (e *Error) WithDetails(details ...string) *Error {
	e.Details = append(e.Details, details...)
	return e
}

// KindOf extracts the kind from any error chain; unrecognized errors
// are INTERNAL_ERROR.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// DetailsOf extracts detail strings, if any.
func DetailsOf(err error) []string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Details
	}
	return nil
}

// HTTPStatus maps a kind to its boundary status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindUnknownSrc, KindSchema:
		return http.StatusBadRequest
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusServiceUnavailable
	case KindProvider, KindImmutability, KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}
