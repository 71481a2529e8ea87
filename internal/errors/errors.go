// Package errors provides coded errors for the trashtalk client.
//
// Every failure that reaches a view-state snapshot passes through this package
// so the renderer gets a human-readable message and callers can still branch on
// the code:
//
//	if errors.Is(err, errors.ErrRejected) {
//	    // server answered success=false
//	}
//
//	state.Error = errors.Message(err)
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the client.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeValidation         Code = "VALIDATION"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeAccountNotFound    Code = "ACCOUNT_NOT_FOUND"
	CodeTransport          Code = "TRANSPORT"
	CodeServer             Code = "SERVER"
	CodeRejected           Code = "REJECTED"
	CodeInternal           Code = "INTERNAL"
)

// Error is a coded error with a human-readable message and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrAccountNotFound    = &Error{Code: CodeAccountNotFound, Message: "account does not exist"}
	ErrTransport          = &Error{Code: CodeTransport, Message: "request failed"}
	ErrServer             = &Error{Code: CodeServer, Message: "server error"}
	ErrRejected           = &Error{Code: CodeRejected, Message: "request rejected"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// AccountNotFound creates an account-does-not-exist error.
func AccountNotFound(msg string) *Error {
	return &Error{Code: CodeAccountNotFound, Message: msg}
}

// Transport wraps a network-level failure.
func Transport(err error) *Error {
	return &Error{Code: CodeTransport, Message: "request failed", cause: err}
}

// Server creates a server error (unexpected status or malformed response).
func Server(msg string) *Error {
	return &Error{Code: CodeServer, Message: msg}
}

// Serverf creates a server error with formatted message.
func Serverf(format string, args ...any) *Error {
	return &Error{Code: CodeServer, Message: fmt.Sprintf(format, args...)}
}

// Rejected creates an error for an explicit success=false answer.
func Rejected(msg string) *Error {
	return &Error{Code: CodeRejected, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Message returns the text a view should show for err.
//
// Rejected and server errors carry the server-supplied text verbatim. Other
// coded errors render with their cause so transport failures stay diagnosable.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		switch e.Code {
		case CodeRejected, CodeServer, CodeForbidden, CodeNotFound:
			return e.Message
		default:
			return e.Error()
		}
	}
	return err.Error()
}
