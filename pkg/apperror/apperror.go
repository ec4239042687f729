package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies every error the procurement engine surfaces to callers.
type Kind string

const (
	KindInvalidTransition    Kind = "INVALID_TRANSITION"
	KindImmutableRequisition Kind = "IMMUTABLE_REQUISITION"
	KindInsufficientBudget   Kind = "INSUFFICIENT_BUDGET"
	KindAlreadyConverted     Kind = "ALREADY_CONVERTED"
	KindValidationFailed     Kind = "VALIDATION_FAILED"
	KindNotFound             Kind = "NOT_FOUND"
	KindUpstream             Kind = "UPSTREAM"
)

// Error is the typed error returned by services and translated by handlers.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int // upstream status code when known
	Err        error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrInvalidTransition    = &Error{Kind: KindInvalidTransition}
	ErrImmutableRequisition = &Error{Kind: KindImmutableRequisition}
	ErrInsufficientBudget   = &Error{Kind: KindInsufficientBudget}
	ErrAlreadyConverted     = &Error{Kind: KindAlreadyConverted}
	ErrValidationFailed     = &Error{Kind: KindValidationFailed}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrUpstream             = &Error{Kind: KindUpstream}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidationFailed, format, args...)
}

func NotFound(entity string, id interface{}) *Error {
	return New(KindNotFound, "%s %v not found", entity, id)
}

// InvalidTransition names both the current and the requested state.
func InvalidTransition(current, requested string) *Error {
	return New(KindInvalidTransition, "invalid transition from %s to %s", current, requested)
}

// Upstream wraps a failure of the storage or transport collaborator.
func Upstream(err error, format string, args ...interface{}) *Error {
	return Wrap(KindUpstream, err, format, args...)
}

// KindOf returns the kind of err, or UPSTREAM when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUpstream
}

// HTTPStatus maps a kind onto the status code used by the API.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition, KindImmutableRequisition, KindAlreadyConverted:
		return http.StatusConflict
	case KindInsufficientBudget:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// FromStatus rebuilds a typed error from an API envelope. Unknown kinds become UPSTREAM.
func FromStatus(kind string, message string, statusCode int) *Error {
	k := Kind(kind)
	switch k {
	case KindInvalidTransition, KindImmutableRequisition, KindInsufficientBudget,
		KindAlreadyConverted, KindValidationFailed, KindNotFound:
	default:
		k = KindUpstream
	}
	return &Error{Kind: k, Message: message, StatusCode: statusCode}
}
