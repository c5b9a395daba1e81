package show

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// ErrInvalidArgument is the same kind as ErrBadRequest
var ErrInvalidArgument = ErrBadRequest

// Error is a business-rule failure with a caller-facing message
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Errorf builds an *Error of the given kind
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the error kind of err, or nil for infrastructure errors
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrInvalidState, ErrForbidden, ErrBadRequest} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
