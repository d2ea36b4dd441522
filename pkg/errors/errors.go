package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared across packages. Upstream status codes are mapped
// onto them so callers can use errors.Is.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrInvalidInput     = errors.New("invalid input")
	ErrServiceUnavail   = errors.New("service unavailable")
	ErrUpstream         = errors.New("upstream error")
)

// Error codes carried in JSON error bodies.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeUpstream           = "UPSTREAM_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// AppError is an error with a client-facing code, message and HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// NotFound reports a missing resource.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %q not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// MethodNotAllowed reports a route that exists but does not accept method.
func MethodNotAllowed(method string) *AppError {
	return &AppError{
		Code:    CodeMethodNotAllowed,
		Message: fmt.Sprintf("method %s is not allowed", method),
		Status:  http.StatusMethodNotAllowed,
		Err:     ErrMethodNotAllowed,
	}
}

// InvalidInput reports a bad request argument.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// ServiceUnavailable reports a dependency that cannot be used right now.
// The result matches both ErrServiceUnavail and cause.
func ServiceUnavailable(message string, cause error) *AppError {
	err := ErrServiceUnavail
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrServiceUnavail, cause)
	}
	return &AppError{
		Code:    CodeServiceUnavailable,
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

var statusBySentinel = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrMethodNotAllowed, http.StatusMethodNotAllowed},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrServiceUnavail, http.StatusServiceUnavailable},
	{ErrUpstream, http.StatusBadGateway},
}

// HTTPStatus returns the HTTP status for err: an AppError's own status,
// otherwise the status of the first matching sentinel, otherwise 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
