// Package apperr defines the error taxonomy shared by services and the API
// layer. Services return *Error values; handlers map Kind to an HTTP status.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for status mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindRelationNotFound
	KindUnauthorized
	KindForbidden
)

// Error is a domain error carrying a machine-checkable kind and a
// human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// RelationNotFound reports an absent relation row on removal. Unlike a
// missing entity (404), the request was well-formed but its precondition
// failed, so it maps to 400.
func RelationNotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindRelationNotFound, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a domain error without changing its kind or message.
func Wrap(err error, domainErr *Error) *Error {
	domainErr.Err = err
	return domainErr
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
