// Package apperr defines the error taxonomy shared by every layer of the
// point-of-sale backend. Errors carry a Kind that decides the HTTP status
// and whether the message is safe to show to the caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	// Internal is the zero value so that unclassified errors stay generic.
	Internal Kind = iota
	Validation
	Auth
	Forbidden
	NotFound
	Reference
	Conflict
	InsufficientStock
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation_error"
	case Auth:
		return "auth_error"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Reference:
		return "invalid_reference"
	case Conflict:
		return "conflict"
	case InsufficientStock:
		return "insufficient_stock"
	case Unavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}

// Error is an operation-tagged error with a Kind.
type Error struct {
	Op      string // operation that failed, e.g. "orders.Create"
	Kind    Kind
	Message string // caller-facing message
	Err     error  // underlying cause
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a new classified error.
func E(op string, kind Kind, msg string) error {
	return &Error{Op: op, Kind: kind, Message: msg}
}

// Ef is E with a format string.
func Ef(op string, kind Kind, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with op, keeping the kind and message of any classified
// error further down the chain. Unclassified errors become Internal.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return &Error{Op: op, Kind: ae.Kind, Message: ae.Message, Err: err}
	}
	return &Error{Op: op, Kind: Internal, Err: err}
}

// WrapKind wraps err as the given kind with a caller-facing message.
func WrapKind(op string, kind Kind, msg string, err error) error {
	return &Error{Op: op, Kind: kind, Message: msg, Err: err}
}

// KindOf reports the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Message returns the caller-facing message for err. Internal errors never
// leak their cause.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != Internal && ae.Message != "" {
		return ae.Message
	}
	switch KindOf(err) {
	case Internal:
		return "Server error"
	case Unavailable:
		return "Service temporarily unavailable"
	}
	return KindOf(err).String()
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps a kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case Validation, Reference, Conflict, InsufficientStock:
		return http.StatusBadRequest
	case Auth:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
