// Package apperr is the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindExpired
	KindTooManyRequests
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExpired:
		return "expired"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind onto the response status handlers send.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindExpired:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a machine readable Code next to a short human message.
// Err, when set, is the underlying cause and is never shown to clients.
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

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func Unauthorized(code, message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: code, Message: message}
}

func Forbidden(code, message string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func Expired(code, message string) *Error {
	return &Error{Kind: KindExpired, Code: code, Message: message}
}

func TooManyRequests(code, message string) *Error {
	return &Error{Kind: KindTooManyRequests, Code: code, Message: message}
}

// Internal wraps an unexpected failure. The message stays generic.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: "internal server error", Err: err}
}

// From returns the *Error inside err, wrapping anything else as Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// KindOf reports the kind of err; plain errors are internal.
func KindOf(err error) Kind {
	return From(err).Kind
}

// Body is the JSON error payload sent to clients. Clients show "error" to
// the user and branch on "code".
func (e *Error) Body() map[string]string {
	return map[string]string{"error": e.Message, "code": e.Code}
}
