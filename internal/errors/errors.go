// Package errors defines the coded domain errors returned by the flashcard
// services. Handlers translate them to HTTP responses with HTTPStatus.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	Is = errors.Is
	As = errors.As
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeInvalidCredentials  Code = "INVALID_CREDENTIALS"
	CodeInvalidRefreshToken Code = "INVALID_REFRESH_TOKEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeForbidden           Code = "FORBIDDEN"
	CodeConflict            Code = "CONFLICT"
	CodeValidation          Code = "VALIDATION"
	CodeInternal            Code = "INTERNAL"
)

// HTTPStatus returns the HTTP status code for an error code.
// Conflicts are reported as 400 to stay compatible with existing clients.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated, CodeInvalidCredentials, CodeInvalidRefreshToken:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict, CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code and a client-safe message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, cause: err}
}

// Sentinel errors for use with errors.Is.
var (
	ErrUnauthenticated     = &Error{Code: CodeUnauthenticated, Message: "could not validate credentials"}
	ErrInvalidCredentials  = &Error{Code: CodeInvalidCredentials, Message: "incorrect username or password"}
	ErrInvalidRefreshToken = &Error{Code: CodeInvalidRefreshToken, Message: "invalid refresh token"}
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden           = &Error{Code: CodeForbidden, Message: "not authorized"}
	ErrConflict            = &Error{Code: CodeConflict, Message: "conflict"}
	ErrValidation          = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal            = &Error{Code: CodeInternal, Message: "internal server error"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps err as an internal error. The cause is kept for logging
// and never shown to clients.
func Internal(err error) *Error {
	return ErrInternal.WithCause(err)
}

// StatusOf returns the HTTP status for err, defaulting to 500 for errors that
// are not domain errors.
func StatusOf(err error) int {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
