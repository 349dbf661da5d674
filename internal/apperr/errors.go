// Package apperr is the plugin host's error taxonomy.
//
// Errors built here carry a Kind drawn from the taxonomy in spec.md §7
// and a message prefixed with the name of what they concern, so callers
// can branch on Kind without parsing text. The prefix is the plugin's
// name where one is known; loader errors raised before the name is read
// use the library path, and table registry errors use the table name.
// NewLoader's version-range errors are plain errors without a Kind.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the error categories from spec.md §7. It is a
// classification, not a Go type hierarchy — callers switch on Kind
// rather than type-asserting concrete error types.
type Kind string

const (
	LoadError          Kind = "LOAD_ERROR"
	SchemaError        Kind = "SCHEMA_ERROR"
	InitError          Kind = "INIT_ERROR"
	StateError         Kind = "STATE_ERROR"
	DescriptorError    Kind = "DESCRIPTOR_ERROR"
	CompatibilityError Kind = "COMPATIBILITY_ERROR"
	ArgumentError      Kind = "ARGUMENT_ERROR"
	PluginRuntimeError Kind = "PLUGIN_RUNTIME_ERROR"
)

// Error is the host's standard error shape: a Kind, a human-readable
// message, and optional Details (typically the plugin's own
// get_last_error text, or a wrapped underlying error).
type Error struct {
	Kind    Kind
	Plugin  string
	Message string
	Details string

	wrapped error
}

func (e *Error) Error() string {
	prefix := e.Plugin
	if prefix == "" {
		prefix = "<unknown plugin>"
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s (%s)", prefix, e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s: %s", prefix, e.Kind, e.Message)
}

// Unwrap exposes the error Wrap was given, so callers can still
// errors.Is/errors.As through to it.
func (e *Error) Unwrap() error { return e.wrapped }

func New(kind Kind, plugin, message string) *Error {
	return &Error{Kind: kind, Plugin: plugin, Message: message}
}

func NewWithDetails(kind Kind, plugin, message, details string) *Error {
	return &Error{Kind: kind, Plugin: plugin, Message: message, Details: details}
}

// Wrap attaches an underlying error's text as Details while preserving
// it for errors.Is/errors.As via Unwrap.
func Wrap(kind Kind, plugin, message string, err error) *Error {
	e := &Error{Kind: kind, Plugin: plugin, Message: message, wrapped: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
