// Package errors provides the typed failures that route handlers return and
// the error-normalization middleware maps onto response envelopes.
package errors

import (
	"errors"
	"fmt"

	"tundra/pkg/envelope"
)

var (
	ErrBadRequest       = New(envelope.CodeBadRequest, "Bad request", 400)
	ErrUnauthorized     = New(envelope.CodeUnauthorized, "Authorization token required", 401)
	ErrForbidden        = New(envelope.CodeForbidden, "Forbidden", 403)
	ErrNotFound         = New(envelope.CodeNotFound, "Resource not found", 404)
	ErrMethodNotAllowed = New(envelope.CodeMethodNotAllowed, "Method not allowed", 405)
	ErrConflict         = New(envelope.CodeConflict, "Resource conflict", 409)
	ErrTooManyRequests  = New(envelope.CodeTooManyRequests, "Too many requests", 429)
	ErrInternal         = New(envelope.CodeInternalError, "Internal Server Error", 500)

	ErrValidation          = New(envelope.CodeValidationError, "Validation failed", 400)
	ErrUserNotFound        = New(envelope.CodeUserNotFound, "User not found", 404)
	ErrUserAlreadyExists   = New(envelope.CodeUserAlreadyExists, "User already exists", 409)
	ErrInvalidEmailFormat  = New(envelope.CodeInvalidEmailFormat, "Invalid email format", 400)
	ErrInvalidToken        = New(envelope.CodeInvalidToken, "Invalid or expired token", 401)
	ErrTokenExpired        = New(envelope.CodeTokenExpired, "Token expired", 401)
	ErrDeviceNotAuthorized = New(envelope.CodeDeviceNotAuthorized, "Device not authorized", 403)
	ErrDatabaseConnection  = New(envelope.CodeDatabaseConnection, "Database connection error", 500)
	ErrExternalService     = New(envelope.CodeExternalService, "External service error", 500)
)

// Error carries the envelope code plus an HTTP-equivalent status used only
// for log-level classification (>=500 error, 400-499 warn). It never leaks
// into the transport status.
type Error struct {
	Code    int
	Message string
	Status  int
	Cause   error
}

func New(code int, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithMessage(message string) *Error {
	err := *e
	err.Message = message
	return &err
}

func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

// From classifies any error as a typed failure; unknown errors fold into the
// internal path.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

func IsNotFound(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == ErrNotFound.Code || appErr.Code == ErrUserNotFound.Code
	}
	return false
}

func IsValidation(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == ErrValidation.Code
	}
	return false
}

func IsConflict(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == ErrConflict.Code || appErr.Code == ErrUserAlreadyExists.Code
	}
	return false
}

// LogStatus reports the HTTP-equivalent severity for log-level selection.
// Failures with no recognizable status default to 500.
func LogStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Status != 0 {
			return appErr.Status
		}
	}
	return 500
}

// ToResponse maps any error to the wire envelope. Messages on the >=500 path
// are redacted in production mode.
func ToResponse(err error, production bool) *envelope.Response {
	appErr := From(err)

	if LogStatus(appErr) >= 500 {
		msg := appErr.Message
		if production {
			msg = "Internal Server Error"
		}
		return envelope.Error(appErr.Code, msg)
	}

	return envelope.Error(appErr.Code, appErr.Message)
}
