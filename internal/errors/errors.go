// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. The HTTP layer maps kinds to status codes and the CLI
// maps them to exit messages, so callers can tell infrastructure failures (no pool,
// unknown script, unreachable database) apart from a script that ran and failed.
//
// The package supports wrapping underlying errors while maintaining error kind information.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// ConfigError indicates missing or invalid credentials or settings.
	ConfigError Kind = "config_error"
	// NotConnected indicates a run was attempted before any pool was established.
	NotConnected Kind = "not_connected"
	// ScriptNotFound indicates the requested script does not resolve to a file.
	ScriptNotFound Kind = "script_not_found"
	// ScriptExecution indicates the database rejected a script.
	// The execution engine folds it into a failing result instead of returning it.
	ScriptExecution Kind = "script_execution_error"
	// ConnectionError indicates the liveness probe or a checkout failed.
	ConnectionError Kind = "connection_error"
	// BadRequest indicates a malformed request at the interface boundary.
	BadRequest Kind = "bad_request"
	// RateLimited indicates a client exceeded the run rate.
	RateLimited Kind = "rate_limited"
	// Internal is used for errors that carry no kind.
	Internal Kind = "internal"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the human-friendly message of the first *E in err's chain,
// falling back to err.Error().
func MessageOf(err error) string {
	var e *E
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
