// Package errors provides structured error types for modreg.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the registry client and the CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The registry client reports exactly one of these codes per failure:
//   - INVALID_URL: a URL string did not parse
//   - REQUEST_BUILD: the request could not be assembled
//   - TRANSPORT_INIT: the transport adapter could not be constructed
//   - TRANSPORT: the network exchange failed (DNS, connect, TLS, I/O)
//   - DECODE: the response body is not a valid envelope for the expected type
//   - APPLICATION: the registry answered with an error envelope
//
// Only APPLICATION errors carry a message meant for end users verbatim;
// [UserMessage] returns it without the code prefix.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidModule, "invalid module name: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidModule) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeTransport, origErr, "GET %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Registry client errors
	ErrCodeInvalidURL    Code = "INVALID_URL"
	ErrCodeRequestBuild  Code = "REQUEST_BUILD"
	ErrCodeTransportInit Code = "TRANSPORT_INIT"
	ErrCodeTransport     Code = "TRANSPORT"
	ErrCodeDecode        Code = "DECODE"
	ErrCodeApplication   Code = "APPLICATION"

	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidModule  Code = "INVALID_MODULE"
	ErrCodeInvalidVersion Code = "INVALID_VERSION"

	// Session errors
	ErrCodeNotLoggedIn    Code = "NOT_LOGGED_IN"
	ErrCodeSessionExpired Code = "SESSION_EXPIRED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsApplication reports whether err is a failure reported by the registry
// itself, as opposed to a failure to talk to it.
func IsApplication(err error) bool {
	return Is(err, ErrCodeApplication)
}
