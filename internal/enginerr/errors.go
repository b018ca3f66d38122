// Package enginerr defines the closed set of error kinds the engine surfaces
// to callers, per the error handling design: every error that escapes a
// command is a single *Error wrapping one Kind and an underlying cause.
package enginerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the engine's error categories.
type Kind string

// The error kinds, exactly as specified.
const (
	ConfigError            Kind = "CONFIG_ERROR"
	ResolveError           Kind = "RESOLVE_ERROR"
	DuplicateVersion       Kind = "DUPLICATE_VERSION"
	LedgerUnavailable      Kind = "LEDGER_UNAVAILABLE"
	UnexpectedState        Kind = "UNEXPECTED_STATE"
	ValidationFailed       Kind = "VALIDATION_FAILED"
	MigrationFailed        Kind = "MIGRATION_FAILED"
	FailedFuture           Kind = "FAILED_FUTURE"
	PlaceholderUnresolved  Kind = "PLACEHOLDER_UNRESOLVED"
)

// Error is the single error type that propagates out of an engine command.
// Version and Script are populated when the error concerns a specific
// migration.
type Error struct {
	Kind    Kind
	Message string
	Version string
	Script  string
	Cause   error
}

// New builds an *Error with no specific version or script attached.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithVersion returns a copy of e with Version set, for chaining at the call
// site: enginerr.Wrap(...).WithVersion(v.String()).
func (e *Error) WithVersion(v string) *Error {
	c := *e
	c.Version = v

	return &c
}

// WithScript returns a copy of e with Script set.
func (e *Error) WithScript(script string) *Error {
	c := *e
	c.Script = script

	return &c
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)

	if e.Version != "" {
		msg += fmt.Sprintf(" (version %s)", e.Version)
	}

	if e.Script != "" {
		msg += fmt.Sprintf(" (script %s)", e.Script)
	}

	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}

	return msg
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, enginerr.New(enginerr.MigrationFailed, "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}

	return e.Kind == other.Kind
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}

	return "", false
}
