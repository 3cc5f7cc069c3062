package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindConflict         ErrorKind = "conflict"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindForbidden        ErrorKind = "forbidden"
	KindNotFound         ErrorKind = "not_found"
	KindInvalidOrExpired ErrorKind = "invalid_or_expired"
	KindInternal         ErrorKind = "internal"
)

// Error is the failure type returned by the service layer. Message is safe to
// show to the client. Diagnostic is a short label for Internal errors and
// never carries the wrapped error text.
type Error struct {
	Kind       ErrorKind
	Message    string
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Internal(msg, diagnostic string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Diagnostic: diagnostic, Err: err}
}

// KindOf returns the kind of err, or KindInternal for anything that is not a
// *Error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
