// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a business error so handlers can map it to a transport
// status without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindDependency
	KindAuthorization
	KindNotFound
)

type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap keeps the original error reachable through errors.Unwrap while
// presenting a business-level message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

func Validation(message string) *Error    { return New(KindValidation, message) }
func Conflict(message string) *Error      { return New(KindConflict, message) }
func Dependency(message string) *Error    { return New(KindDependency, message) }
func Authorization(message string) *Error { return New(KindAuthorization, message) }
func NotFound(message string) *Error      { return New(KindNotFound, message) }

// KindOf returns the kind of err if it is (or wraps) an *Error, otherwise
// KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
