package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrValidation      ErrorType = "INVALID_REQUEST"
	ErrKeyMissing      ErrorType = "KEY_MISSING"
	ErrNotFound        ErrorType = "NOT_FOUND"
	ErrUnauthenticated ErrorType = "AUTH_FAILED"
	ErrForbidden       ErrorType = "FORBIDDEN"
	ErrThrottled       ErrorType = "THROTTLED"
	ErrConflict        ErrorType = "CONFLICT"
	ErrNotImplemented  ErrorType = "NOT_IMPLEMENTED"
	ErrUnavailable     ErrorType = "UNAVAILABLE"
	ErrGeneric         ErrorType = "GENERIC"
	ErrInternal        ErrorType = "INTERNAL_ERROR"
)

const (
	MsgInvalidInput     = "Invalid input."
	MsgNotFound         = "Not found."
	MsgNotAuthenticated = "Authentication credentials were not provided."
	MsgForbidden        = "You do not have permission to perform this action."
	MsgThrottled        = "Request was throttled."
	MsgInternal         = "An internal error has occured"
)

// AppError is rendered to clients as {"error": ..., "detail": {...}}.
type AppError struct {
	Type       ErrorType         `json:"-"`
	Message    string            `json:"error"`
	Detail     map[string]string `json:"detail,omitempty"`
	HTTPStatus int               `json:"-"`
	Cause      error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a per-field message. The first message for a field wins.
func (e *AppError) WithDetail(field, msg string) *AppError {
	if e.Detail == nil {
		e.Detail = map[string]string{}
	}
	if _, exists := e.Detail[field]; !exists {
		e.Detail[field] = msg
	}
	return e
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
	}
}

// NewInvalidRequest is a 400 whose message is shown as-is.
func NewInvalidRequest(msg string) *AppError {
	return New(ErrValidation, msg, nil)
}

// NewFieldError is a 400 with the default message and one field detail.
func NewFieldError(field, msg string) *AppError {
	return New(ErrValidation, MsgInvalidInput, nil).WithDetail(field, msg)
}

func NewFieldErrors(fields map[string]string) *AppError {
	err := New(ErrValidation, MsgInvalidInput, nil)
	for field, msg := range fields {
		err.WithDetail(field, msg)
	}
	return err
}

// NewKeyMissing reports a required request key by its wire name.
func NewKeyMissing(key string) *AppError {
	return New(ErrKeyMissing, key+" missing", nil)
}

func NewNotFound(msg string) *AppError {
	if msg == "" {
		msg = MsgNotFound
	}
	return New(ErrNotFound, msg, nil)
}

func NewUnauthorized(msg string) *AppError {
	if msg == "" {
		msg = MsgNotAuthenticated
	}
	return New(ErrUnauthenticated, msg, nil)
}

func NewForbidden(msg string) *AppError {
	if msg == "" {
		msg = MsgForbidden
	}
	return New(ErrForbidden, msg, nil)
}

func NewNotImplemented(msg string) *AppError {
	return New(ErrNotImplemented, msg, nil)
}

// Generic carries an explicit status code, mirroring errors raised by
// business logic that do not fit another category.
func Generic(msg string, detail map[string]string, status int) *AppError {
	err := New(ErrGeneric, msg, nil)
	err.Detail = detail
	if status != 0 {
		err.HTTPStatus = status
	}
	return err
}

func Internal(cause error) *AppError {
	return New(ErrInternal, MsgInternal, cause)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrValidation, ErrKeyMissing:
		return http.StatusBadRequest
	case ErrUnauthenticated:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrThrottled:
		return http.StatusTooManyRequests
	case ErrNotImplemented:
		return http.StatusNotImplemented
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
