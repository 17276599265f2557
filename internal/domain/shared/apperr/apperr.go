// Package apperr classifies business-rule failures so transports can render
// them without string matching.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindStateTransition Kind = "state_transition"
	KindConflict        Kind = "conflict"
	KindPrecondition    Kind = "precondition"
)

// Error is a business-rule failure. Wrap it with %w to keep errors.Is working.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same kind and code, so a rebuilt error
// (for example one decoded from an idempotency record) still matches its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: cause}
}

// Withf returns a copy of e whose message gets a formatted suffix.
func (e *Error) Withf(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message + ": " + fmt.Sprintf(format, args...), Err: e.Err}
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error      { return New(KindValidation, code, message) }
func NotFound(code, message string) *Error        { return New(KindNotFound, code, message) }
func StateTransition(code, message string) *Error { return New(KindStateTransition, code, message) }
func Conflict(code, message string) *Error        { return New(KindConflict, code, message) }
func Precondition(code, message string) *Error    { return New(KindPrecondition, code, message) }

// As extracts the first *Error in the chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the business kind of err. Infrastructure errors report false.
func KindOf(err error) (Kind, bool) {
	appErr, ok := As(err)
	if !ok {
		return "", false
	}
	return appErr.Kind, true
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// CodeOf returns the code of the first *Error in the chain, or "".
func CodeOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ""
}
