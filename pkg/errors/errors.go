package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrGone marks an invite whose material is no longer served (expired or
	// already removed).
	ErrGone = New("GONE", http.StatusGone, "no longer available")

	// ErrNoRecipients is returned when a directory lookup matched no groups.
	// Recoverable and user-facing; distinct from a network failure.
	ErrNoRecipients = New("NO_RECIPIENTS", http.StatusUnprocessableEntity, "no recipient groups match the request")

	// ErrSubmissionRejected covers the anti-abuse gates on anonymous
	// submission. The message stays vague on purpose.
	ErrSubmissionRejected = New("SUBMISSION_REJECTED", http.StatusUnprocessableEntity, "submission rejected")

	// ErrDecryptionFailed is the single generic error surfaced for any
	// unwrap or payload decryption failure, so responses cannot act as a
	// decryption oracle.
	ErrDecryptionFailed = New("DECRYPTION_FAILED", http.StatusBadRequest, "decryption failed")

	// ErrCacheMiss signals a cache-aside read found nothing. Internal only.
	ErrCacheMiss = New("CACHE_MISS", http.StatusInternalServerError, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
