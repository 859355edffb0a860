// Package apperr defines the error kinds the core layers report.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrRetrieval        = errors.New("retrieval failed")
)

// Error pairs a kind sentinel with a human-readable message. Error returns
// the bare message so the tool boundary can surface it verbatim, while
// errors.Is against the kind still matches through Unwrap.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

func newf(kind error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// NotFound reports an unknown relay group, feed name, or feed subtype.
func NotFound(format string, args ...any) *Error {
	return newf(ErrNotFound, format, args...)
}

// PermissionDenied reports an attempted mutation of a built-in name.
func PermissionDenied(format string, args ...any) *Error {
	return newf(ErrPermissionDenied, format, args...)
}

// InvalidArgument reports a caller-supplied value that failed validation,
// such as a feed URL that could not be fetched or parsed.
func InvalidArgument(format string, args ...any) *Error {
	return newf(ErrInvalidArgument, format, args...)
}

// Retrieval reports a network or parse failure from an external source.
func Retrieval(format string, args ...any) *Error {
	return newf(ErrRetrieval, format, args...)
}
