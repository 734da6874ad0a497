// Package agenterrors defines the coded errors shared across the SDK.
//
// Every error carries a stable numeric code and a templated message so
// callers can match failures programmatically while logs stay readable.
package agenterrors

import (
	"errors"
	"fmt"
)

// Stable error codes. Values are part of the public contract: never renumber.
const (
	CodeScopeNotFound         = 1000
	CodeActiveDialogUndefined = 1001
	CodeUndefinedMemoryObject = 1002
	CodeMemoryScopeReadOnly   = 1003
	CodePathResolutionLoop    = 1004
	CodeInvalidPath           = 1005
	CodeEmptyRecognizerResult = 1010
	CodeDialogNotFound        = 1020
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, so errors.Is works against any
// instance carrying the same code regardless of message parameters.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithCause attaches an underlying cause and returns the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// New creates a coded error with a formatted message.
func New(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the numeric code of err, or 0 when err carries none.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// HasCode reports whether err (or anything it wraps) carries code.
func HasCode(err error, code int) bool {
	return CodeOf(err) == code
}

// ScopeNotFound indicates a path referenced an unregistered memory scope.
func ScopeNotFound(name string) *Error {
	return New(CodeScopeNotFound, "memory scope %q not found", name)
}

// ActiveDialogUndefined indicates an operation required an active dialog
// on the stack and none was present.
func ActiveDialogUndefined(op string) *Error {
	return New(CodeActiveDialogUndefined, "%s: no active dialog on the stack", op)
}

// UndefinedMemoryObject indicates a scope was asked to store an undefined
// backing object.
func UndefinedMemoryObject(scope string) *Error {
	return New(CodeUndefinedMemoryObject, "cannot set memory scope %q to an undefined value", scope)
}

// MemoryScopeReadOnly indicates a write was attempted against a read-only
// scope such as settings or class.
func MemoryScopeReadOnly(name string) *Error {
	return New(CodeMemoryScopeReadOnly, "memory scope %q is read-only", name)
}

// PathResolutionLoop indicates alias rewriting did not converge within the
// configured number of passes.
func PathResolutionLoop(path string, limit int) *Error {
	return New(CodePathResolutionLoop, "path %q did not resolve within %d passes", path, limit)
}

// InvalidPath indicates a path expression that cannot be parsed.
func InvalidPath(path, reason string) *Error {
	return New(CodeInvalidPath, "invalid path %q: %s", path, reason)
}

// EmptyRecognizerResult indicates a recognizer result without intents was
// passed where one is required.
func EmptyRecognizerResult() *Error {
	return New(CodeEmptyRecognizerResult, "recognizer result is missing or has no intents")
}

// DialogNotFound indicates a dialog id could not be resolved in a dialog set.
func DialogNotFound(id string) *Error {
	return New(CodeDialogNotFound, "dialog %q not found in dialog set", id)
}
