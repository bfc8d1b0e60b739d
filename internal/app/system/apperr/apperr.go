// internal/app/system/apperr/apperr.go

// Package apperr is the error taxonomy shared by the membership engine, the
// realtime layer and the HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidTransition Kind = "invalid_transition"
	KindConflict          Kind = "conflict"
	KindPersistence       Kind = "persistence_error"
	KindInvalid           Kind = "invalid"
	KindForbidden         Kind = "forbidden"
	KindUnauthorized      Kind = "unauthorized"
	KindRateLimited       Kind = "rate_limited"
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return e.Op + ": " + e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": " + string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(k Kind, op, format string, args ...any) *Error {
	return &Error{Kind: k, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) *Error {
	return newf(KindNotFound, op, format, args...)
}

func InvalidTransition(op, format string, args ...any) *Error {
	return newf(KindInvalidTransition, op, format, args...)
}

func Conflict(op, format string, args ...any) *Error {
	return newf(KindConflict, op, format, args...)
}

func Invalid(op, format string, args ...any) *Error {
	return newf(KindInvalid, op, format, args...)
}

func Forbidden(op, format string, args ...any) *Error {
	return newf(KindForbidden, op, format, args...)
}

func Unauthorized(op, format string, args ...any) *Error {
	return newf(KindUnauthorized, op, format, args...)
}

func RateLimited(op, format string, args ...any) *Error {
	return newf(KindRateLimited, op, format, args...)
}

// Persistence wraps a store failure.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain. Errors that
// carry no classification are reported as persistence failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// Is reports whether err is classified as k.
func Is(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// HTTPStatus maps a Kind to a response status.
func HTTPStatus(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition, KindConflict:
		return http.StatusConflict
	case KindInvalid:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Message returns the text safe to show a client. Persistence failures are
// never echoed.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindPersistence {
		return "internal error"
	}
	if e.Msg != "" {
		return e.Msg
	}
	return string(e.Kind)
}
