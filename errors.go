package ringd

import (
	"errors"
	"fmt"
)

// Code classifies a request-handling failure the way the design this
// was adapted from enumerates RSErrorCode: a small, closed set mapped
// directly to an HTTP status and a fixed response body.
type Code string

const (
	CodeNone               Code = ""
	CodeMalformedRequest   Code = "malformed request"
	CodeUnsupportedVerb    Code = "unsupported verb"
	CodeRouteNotFound      Code = "route not found"
	CodeInternalServerError Code = "internal server error"

	// CodeRingFatal marks a failure in the ring itself — not a bad
	// request, a bug or a kernel-interface fault the process cannot
	// recover from. It has no HTTP status because it never reaches a
	// client; the source's equivalent is an assert(false) abort.
	CodeRingFatal Code = "ring fatal"
)

// Status returns the HTTP status code this error code maps to, or 0 for
// CodeRingFatal, which is never sent to a client.
func (c Code) Status() int {
	switch c {
	case CodeMalformedRequest, CodeUnsupportedVerb:
		return 400
	case CodeRouteNotFound:
		return 404
	case CodeInternalServerError:
		return 500
	default:
		return 0
	}
}

// Error is a structured server error carrying enough context to log
// usefully, mirroring the operation/device/queue context the design
// this was adapted from attaches to its own Error type — here "queue"
// becomes the client file descriptor.
type Error struct {
	Op     string // Operation that failed (e.g. "parse", "stat", "open")
	Code   Code
	Path   string // Request path, if applicable
	FD     int    // Client file descriptor, -1 if not applicable
	Msg    string
	Inner  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op == "" {
		return fmt.Sprintf("ringd: %s", msg)
	}
	if e.Path != "" {
		return fmt.Sprintf("ringd: %s: %s (path=%s)", e.Op, msg, e.Path)
	}
	return fmt.Sprintf("ringd: %s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// NewError builds a structured error for op/code with a path for context.
func NewError(op string, code Code, path string) *Error {
	return &Error{Op: op, Code: code, Path: path, FD: -1}
}

// WrapError wraps inner with operation context, preserving its Code if
// inner is already a *Error.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	var e *Error
	if errors.As(inner, &e) {
		return &Error{Op: op, Code: e.Code, Path: e.Path, FD: e.FD, Msg: e.Msg, Inner: e.Inner}
	}
	return &Error{Op: op, Code: CodeInternalServerError, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
