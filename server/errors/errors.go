package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an application error carrying an HTTP status and context.
type AppError struct {
	Code    int    `json:"status_code"`
	Message string `json:"message"`
	Err     error  `json:"-"` // internal cause, logged but never serialized
	Context string `json:"-"` // additional context (function, parameters)
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped error for errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code of the error.
func (e *AppError) StatusCode() int {
	return e.Code
}

// UserMessage returns the message safe to show to clients.
func (e *AppError) UserMessage() string {
	return e.Message
}

// GetContext returns the error context.
func (e *AppError) GetContext() string {
	return e.Context
}

// WithContext attaches context to the error.
func (e *AppError) WithContext(context string) *AppError {
	e.Context = context
	return e
}

// NewNotFoundError creates a 404 Not Found error.
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: message,
		Err:     err,
	}
}

// NewConfigurationError creates a 400 Bad Request error for missing or
// invalid configuration (auth keys, source URLs, empty group lists).
func NewConfigurationError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a 400 Bad Request error.
func NewValidationError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Err:     err,
	}
}

// NewUpstreamFormatError creates a 502 Bad Gateway error for upstream
// responses that could not be parsed or carried an error envelope.
func NewUpstreamFormatError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Message: message,
		Err:     err,
	}
}

// NewUpstreamUnavailableError creates a 502 Bad Gateway error for upstream
// calls that failed or produced no usable rows.
func NewUpstreamUnavailableError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Message: message,
		Err:     err,
	}
}

// NewCatalogEmptyError creates a 503 Service Unavailable error used when an
// operation needs catalog rows and none are active.
func NewCatalogEmptyError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusServiceUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewConflictError creates a 409 Conflict error. Used by the sync guard when
// a writer is already running.
func NewConflictError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a 500 Internal Server Error. The client receives
// a generic message, details stay in the logs.
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: "Internal server error",
		Err:     errors.Join(errors.New(message), err),
	}
}

// WrapError wraps an existing error with a message. An AppError keeps its
// status code, anything else becomes an InternalError.
func WrapError(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
			Context: appErr.Context,
		}
	}

	return NewInternalError(message, err)
}

// RootMessage walks the cause chain and returns the innermost message,
// falling back to the outer error text.
func RootMessage(err error) string {
	if err == nil {
		return ""
	}

	cursor := err
	for {
		next := errors.Unwrap(cursor)
		if next == nil {
			break
		}
		cursor = next
	}

	message := cursor.Error()
	if message == "" {
		message = err.Error()
	}
	return message
}
