// Package dberr defines the closed error taxonomy raised by the storage
// and execution core, and the mapping of each kind to an HTTP-style code
// for external collaborators such as internal/dispatch.
package dberr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure raised by the core. The set is
// closed: callers should switch over the known constants rather than
// compare arbitrary strings.
type Kind int

const (
	// KindUnknown is never produced deliberately; its presence signals a
	// caller that failed to wrap an error in *Error.
	KindUnknown Kind = iota
	KindTypeMismatch
	KindMissingColumn
	KindValueTooLong
	KindUnsupportedType
	KindInvalidSchema
	KindNotFound
	KindAlreadyExists
	KindIoError
	KindCorruptFile
	KindCorruptData
	KindNotImplemented
)

func (k Kind) String() string {
	switch k {
	case KindTypeMismatch:
		return "type_mismatch"
	case KindMissingColumn:
		return "missing_column"
	case KindValueTooLong:
		return "value_too_long"
	case KindUnsupportedType:
		return "unsupported_type"
	case KindInvalidSchema:
		return "invalid_schema"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindIoError:
		return "io_error"
	case KindCorruptFile:
		return "corrupt_file"
	case KindCorruptData:
		return "corrupt_data"
	case KindNotImplemented:
		return "not_implemented"
	default:
		return "unknown"
	}
}

// HTTPCode maps a Kind to the HTTP-style status code the external
// interface uses in dispatch.Response.Code.
func (k Kind) HTTPCode() int {
	switch k {
	case KindTypeMismatch, KindMissingColumn, KindValueTooLong, KindUnsupportedType, KindInvalidSchema:
		return 400
	case KindNotFound:
		return 404
	case KindAlreadyExists:
		return 409
	case KindIoError, KindCorruptFile, KindCorruptData:
		return 500
	case KindNotImplemented:
		return 501
	default:
		return 500
	}
}

// Error is the concrete error type the core returns. It always carries a
// Kind and a human-readable message, and may wrap an underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that wraps cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, returning KindUnknown if err is nil
// or not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
