package store

import (
	"fmt"
	"net/http"
)

// Error is a persistence error with an HTTP status code.
// Errors derived with WithMessage or WithCause still match their sentinel
// under errors.Is.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)

	base *Error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel e was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.root() == t.root()
}

func (e *Error) root() *Error {
	if e.base != nil {
		return e.base
	}
	return e
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg, Err: e.Err, base: e.root()}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err, base: e.root()}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	ErrInvalidInput = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid input",
	}

	// ErrConflict is returned when a transaction keeps losing to concurrent
	// writers after all retries.
	ErrConflict = &Error{
		Code:    http.StatusConflict,
		Message: "concurrent modification, try again",
	}

	ErrClosed = &Error{
		Code:    http.StatusServiceUnavailable,
		Message: "database closed",
	}
)

// UniqueViolation returns ErrAlreadyExists naming the duplicated field.
func UniqueViolation(field string) *Error {
	return ErrAlreadyExists.WithMessage(field + " must be unique")
}
