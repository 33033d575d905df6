package apperrors

import (
	"errors"
	"fmt"
)

// Kind is the stable, client-visible category of an error.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindValidation Kind = "validation"
	KindStorage    Kind = "storage"
	KindInternal   Kind = "internal"
)

var (
	ErrActiveSessionExists = errors.New("active session already exists")
	ErrConcurrentUpdate    = errors.New("record was modified concurrently")
	ErrInvalidRange        = errors.New("end is before start")
)

// Error carries a Kind plus a human message. Err is the optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// ConflictCause is a Conflict wrapping a sentinel so callers can errors.Is it.
func ConflictCause(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: cause}
}

// StateConflict reports an illegal transition, naming expected and actual state.
func StateConflict(op string, expected, actual any) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: fmt.Sprintf("cannot %s: session is %v, expected %v", op, actual, expected),
	}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a persistence failure. The message should read "failed to ...".
func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
