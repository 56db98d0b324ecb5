// Package errors defines the error kinds surfaced by esxm commands.
// Every failure aborts the current invocation; kinds exist so callers and
// tests can classify with errors.Is/As rather than string matching.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a command failure.
type Kind string

const (
	KindConfigMissing      Kind = "ConfigMissing"
	KindConfigInvalid      Kind = "ConfigInvalid"
	KindPreconditionFailed Kind = "PreconditionFailed"
	KindPhaseFailed        Kind = "PhaseFailed"
	KindTimeout            Kind = "Timeout"
	KindUserCancelled      Kind = "UserCancelled"
	KindBundleMissing      Kind = "BundleMissing"
	KindSourceMissing      Kind = "SourceMissing"
)

// Error is a classified error with an optional wrapped cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports kind equality so errors.Is(err, &Error{Kind: k}) matches any
// error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a classified error.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. Returns nil when cause is nil.
func Wrap(cause error, kind Kind, format string, args ...interface{}) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf walks the cause chain and returns the kind of the outermost
// classified error, or the empty kind when none is found.
func KindOf(err error) Kind {
	var e *Error
	if pkgerrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err, anywhere in its chain, carries the given kind.
func IsKind(err error, kind Kind) bool {
	return pkgerrors.Is(err, &Error{Kind: kind})
}

// WithStack annotates err with a stack trace at the point it was observed.
func WithStack(err error) error {
	return pkgerrors.WithStack(err)
}
