package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "INVALID_INPUT: brand is required", InvalidInput("brand is required").Error())

	err := ServiceUnavailable("catalog API is temporarily unavailable", errors.New("circuit breaker is open"))
	assert.Equal(t,
		"SERVICE_UNAVAILABLE: catalog API is temporarily unavailable: service unavailable: circuit breaker is open",
		err.Error())
}

func TestNotFound(t *testing.T) {
	err := NotFound("category", "02")

	assert.Equal(t, CodeNotFound, err.Code)
	assert.Equal(t, `category "02" not found`, err.Message)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMethodNotAllowed(t *testing.T) {
	err := MethodNotAllowed("POST")

	assert.Equal(t, CodeMethodNotAllowed, err.Code)
	assert.Equal(t, "method POST is not allowed", err.Message)
	assert.Equal(t, http.StatusMethodNotAllowed, err.Status)
	assert.ErrorIs(t, err, ErrMethodNotAllowed)
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("subcategory is required")

	assert.Equal(t, CodeInvalidInput, err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestServiceUnavailable_MatchesCause(t *testing.T) {
	cause := errors.New("circuit breaker is open")
	err := ServiceUnavailable("catalog API is temporarily unavailable", cause)

	assert.Equal(t, CodeServiceUnavailable, err.Code)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.ErrorIs(t, err, ErrServiceUnavail)
	assert.ErrorIs(t, err, cause)
}

func TestServiceUnavailable_NilCause(t *testing.T) {
	err := ServiceUnavailable("kafka is down", nil)

	assert.ErrorIs(t, err, ErrServiceUnavail)
	assert.Same(t, ErrServiceUnavail, err.Err)
}

func TestAppError_As(t *testing.T) {
	wrapped := fmt.Errorf("brand_products: %w", InvalidInput("brand is required"))

	var appErr *AppError
	require.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, "brand is required", appErr.Message)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", &AppError{Status: http.StatusTeapot, Err: ErrNotFound}, http.StatusTeapot},
		{"wrapped app error", fmt.Errorf("x: %w", InvalidInput("bad")), http.StatusBadRequest},
		{"not found", fmt.Errorf("listing: %w", ErrNotFound), http.StatusNotFound},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"unavailable", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"upstream", fmt.Errorf("catalog-api: %w", ErrUpstream), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
