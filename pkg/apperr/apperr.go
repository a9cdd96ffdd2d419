// Package apperr defines the error kinds surfaced by the engine.
//
// Every business failure is an *Error whose Kind is one of the sentinels below, so callers
// can classify with errors.Is while the message stays human readable.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error     { return newf(ErrNotFound, format, args...) }
func Conflict(format string, args ...any) error     { return newf(ErrConflict, format, args...) }
func Forbidden(format string, args ...any) error    { return newf(ErrForbidden, format, args...) }
func InvalidInput(format string, args ...any) error { return newf(ErrInvalidInput, format, args...) }
func Unauthorized(format string, args ...any) error { return newf(ErrUnauthorized, format, args...) }

// KindOf 返回 err 所属的类别；无法识别时返回 nil
func KindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrForbidden, ErrInvalidInput, ErrUnauthorized} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
