package wire

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable error classification carried in the
// errorKind field of a failed response.
type ErrorKind string

const (
	// ErrDuplicateIdentifier: a capability was registered twice under
	// one kind+identifier. Registration-time only; fatal to startup.
	ErrDuplicateIdentifier ErrorKind = "duplicate_identifier"
	// ErrNotFound: a prompt lookup missed.
	ErrNotFound ErrorKind = "not_found"
	// ErrUnknownAction: a call-action named an unregistered action.
	ErrUnknownAction ErrorKind = "unknown_action"
	// ErrResourceNotFound: no registered template matched the URI.
	ErrResourceNotFound ErrorKind = "resource_not_found"
	// ErrInvalidArguments: the argument mapping failed schema validation.
	ErrInvalidArguments ErrorKind = "invalid_arguments"
	// ErrHandler: the handler failed (or panicked) during execution.
	ErrHandler ErrorKind = "handler_error"
	// ErrTransport: a connection-level failure (bad session, bad
	// framing, connection loss).
	ErrTransport ErrorKind = "transport_error"
	// ErrTimeout: the per-call deadline elapsed before a response.
	ErrTimeout ErrorKind = "timeout"
)

// Error is the protocol error type. It travels over the wire as the
// {errorKind, message} pair of a failed response and is reconstructed
// verbatim on the client side.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// Errorf builds a protocol error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a protocol error of the given kind around an underlying
// cause. The cause's message is carried verbatim; the cause itself is
// reachable through Unwrap for errors.Is/As on the server side.
func Wrap(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), cause: cause}
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two protocol errors by kind, so callers can test against a
// bare kind sentinel: errors.Is(err, &wire.Error{Kind: wire.ErrTimeout}).
func (e *Error) Is(target error) bool {
	var we *Error
	if errors.As(target, &we) {
		return we.Kind == e.Kind
	}
	return false
}

// KindOf extracts the protocol error kind from err, defaulting to
// handler_error for plain Go errors raised inside capability handlers.
func KindOf(err error) ErrorKind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ErrHandler
}

// IsKind reports whether err carries the given protocol error kind.
func IsKind(err error, kind ErrorKind) bool {
	var we *Error
	return errors.As(err, &we) && we.Kind == kind
}
