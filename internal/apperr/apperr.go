// Package apperr is the error taxonomy every HTTP-reachable operation maps into.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindForbidden
	KindRateLimited
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error carries a client-safe message. Err holds the cause and is never rendered.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Validation(msg string) *Error      { return New(KindValidation, msg) }
func Conflict(msg string) *Error        { return New(KindConflict, msg) }
func Unauthenticated(msg string) *Error { return New(KindAuthentication, msg) }
func Forbidden(msg string) *Error       { return New(KindForbidden, msg) }
func RateLimited(msg string) *Error     { return New(KindRateLimited, msg) }
func NotFound(msg string) *Error        { return New(KindNotFound, msg) }

func Internal(err error) *Error {
	return Wrap(KindInternal, "Internal server error", err)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}

func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the status and message safe to show a client.
func Public(err error) (int, string) {
	ae, ok := As(err)
	if !ok || ae.Kind == KindInternal {
		return http.StatusInternalServerError, "Internal server error"
	}
	return HTTPStatus(ae.Kind), ae.Msg
}
