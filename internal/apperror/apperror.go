// Package apperror carries HTTP-aware errors and the translation of database failures into them.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error with an HTTP status and a client-safe message.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with an explicit status.
func New(status int, message string, cause error) *Error {
	return &Error{Status: status, Message: message, Err: cause}
}

// NotFound builds a 404 error.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

// Conflict builds a 409 error.
func Conflict(message string) *Error {
	return New(http.StatusConflict, message, nil)
}

// BadRequest builds a 400 error.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

// Forbidden builds a 403 error.
func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message, nil)
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message, nil)
}

// Unprocessable builds a 422 error.
func Unprocessable(message string) *Error {
	return New(http.StatusUnprocessableEntity, message, nil)
}

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an *Error.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
