// Package errors defines the failure taxonomy shared by the runner, the
// protocol decoder and the probe service.
//
// Every failure surfaced to a caller is an *Error carrying a machine-readable
// Kind, a human-readable message and an optional wrapped cause. Kinds can be
// matched with the standard library:
//
//	if errors.Is(err, perrors.ErrTimeout) { ... }
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindLaunch indicates the external program could not be started.
	KindLaunch Kind = "LAUNCH_FAILED"
	// KindTimeout indicates the watchdog terminated the program.
	KindTimeout Kind = "EXEC_TIMEOUT"
	// KindRead indicates an I/O failure while draining standard output.
	KindRead Kind = "READ_FAILED"
	// KindParse indicates the output was not a JSON object.
	KindParse Kind = "PARSE_FAILED"
	// KindInvalidFormat indicates an envelope invariant was violated.
	KindInvalidFormat Kind = "INVALID_FORMAT"
	// KindMissingKey indicates a requested payload key was absent.
	KindMissingKey Kind = "MISSING_KEY"
	// KindTypeMismatch indicates a payload key had the wrong JSON type.
	KindTypeMismatch Kind = "TYPE_MISMATCH"
	// KindConfig indicates an unusable configuration value.
	KindConfig Kind = "INVALID_CONFIG"
	// KindNotFound indicates requested saved data does not exist.
	KindNotFound Kind = "NOT_FOUND"
)

// Kind sentinels for use with errors.Is.
var (
	ErrLaunch        = &Error{Kind: KindLaunch}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrRead          = &Error{Kind: KindRead}
	ErrParse         = &Error{Kind: KindParse}
	ErrInvalidFormat = &Error{Kind: KindInvalidFormat}
	ErrMissingKey    = &Error{Kind: KindMissingKey}
	ErrTypeMismatch  = &Error{Kind: KindTypeMismatch}
	ErrConfig        = &Error{Kind: KindConfig}
	ErrNotFound      = &Error{Kind: KindNotFound}
)

// Error wraps an optional cause with a kind and message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Message == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the bare sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// New returns an error of the given kind without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind wrapping err.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
