// Package apierr classifies collaborator failures into the small error
// taxonomy surfaced by the composite API.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the classified category of a failure.
type Kind int

const (
	Unexpected Kind = iota
	NotFound
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidInput:
		return "invalid_input"
	default:
		return "unexpected"
	}
}

// HTTPStatus maps the kind onto the status used by the REST surface.
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case InvalidInput:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Err holds the original cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewNotFound reports an absent root entity.
func NewNotFound(format string, args ...any) *Error {
	return New(NotFound, format, args...)
}

// NewInvalidInput reports a malformed or out-of-range key or payload.
func NewInvalidInput(format string, args ...any) *Error {
	return New(InvalidInput, format, args...)
}

// KindOf returns the kind of err, classifying it first when needed.
// A nil error has no kind and reports Unexpected.
func KindOf(err error) Kind {
	if err == nil {
		return Unexpected
	}
	return Classify(err).Kind
}

// IsNotFound reports whether err classifies as NotFound.
func IsNotFound(err error) bool { return err != nil && KindOf(err) == NotFound }

// IsInvalidInput reports whether err classifies as InvalidInput.
func IsInvalidInput(err error) bool { return err != nil && KindOf(err) == InvalidInput }

// As is a shorthand for errors.As into *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
