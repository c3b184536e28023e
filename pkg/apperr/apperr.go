// Package apperr defines the domain error taxonomy shared by handlers and
// repositories. Every failed operation carries a Kind so callers can assert
// on cause, not just outcome.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind int

const (
	// KindInternal is the fallback for unclassified failures.
	KindInternal Kind = iota
	// KindValidation marks malformed or inconsistent input.
	KindValidation
	// KindConflict marks a uniqueness violation.
	KindConflict
	// KindNotFound marks a missing referenced entity.
	KindNotFound
	// KindForbidden marks an authenticated but unauthorized caller.
	KindForbidden
	// KindUnauthorized marks an invalid credential (e.g. magic link).
	KindUnauthorized
	// KindInvalidState marks an operation that is not legal in the
	// entity's current lifecycle state.
	KindInvalidState
	// KindUpstream marks a collaborator failure.
	KindUpstream
	// KindUpstreamTimeout marks a collaborator timeout (retryable).
	KindUpstreamTimeout
)

// Error is a kind-tagged error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Validation returns a KindValidation error.
func Validation(message string) error { return New(KindValidation, message) }

// Conflict returns a KindConflict error.
func Conflict(message string) error { return New(KindConflict, message) }

// NotFound returns a KindNotFound error.
func NotFound(message string) error { return New(KindNotFound, message) }

// Forbidden returns a KindForbidden error.
func Forbidden(message string) error { return New(KindForbidden, message) }

// Unauthorized returns a KindUnauthorized error.
func Unauthorized(message string) error { return New(KindUnauthorized, message) }

// InvalidState returns a KindInvalidState error.
func InvalidState(message string) error { return New(KindInvalidState, message) }

// Internal returns a KindInternal error wrapping cause.
func Internal(message string, cause error) error {
	return Wrap(KindInternal, message, cause)
}

// Upstream returns a KindUpstream error wrapping cause.
func Upstream(message string, cause error) error {
	return Wrap(KindUpstream, message, cause)
}

// UpstreamTimeout returns a KindUpstreamTimeout error wrapping cause.
func UpstreamTimeout(message string, cause error) error {
	return Wrap(KindUpstreamTimeout, message, cause)
}

// KindOf extracts the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the user-facing message of err, or fallback for foreign errors.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
