package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/luanatech/storefront/pkg/errors"
	"github.com/luanatech/storefront/pkg/logger"
	"github.com/luanatech/storefront/pkg/validator"
)

// DegradedHeader is set on responses whose body holds an empty value because
// the upstream catalog query failed.
const DegradedHeader = "X-Catalog-Degraded"

// Response is the standard JSON response envelope.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes a 200 response whose envelope always carries the data
// field, even when data is an empty slice or nil. Degraded marks the body as
// the empty fallback of a failed catalog query.
func WriteData(w http.ResponseWriter, data any, degraded bool) {
	if degraded {
		w.Header().Set(DegradedHeader, "true")
	}
	WriteJSON(w, http.StatusOK, struct {
		Data any `json:"data"`
	}{Data: data})
}

// WriteError writes a standardized error response based on the error type.
// It prefers the request-scoped logger from context over the fallback logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logServerError(l, r, err)
		}
		WriteJSON(w, appErr.Status, Response{
			Error: &ErrorResponse{Code: appErr.Code, Message: appErr.Message, RequestID: requestID},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code, message := apperrors.CodeInternal, "an internal error occurred"

	switch status {
	case http.StatusNotFound:
		code, message = apperrors.CodeNotFound, "resource not found"
	case http.StatusBadRequest:
		code, message = apperrors.CodeInvalidInput, err.Error()
	case http.StatusServiceUnavailable:
		code, message = apperrors.CodeServiceUnavailable, "service unavailable"
	case http.StatusBadGateway:
		code, message = apperrors.CodeUpstream, "upstream error"
	}

	if status >= http.StatusInternalServerError {
		logServerError(l, r, err)
	}

	WriteJSON(w, status, Response{
		Error: &ErrorResponse{Code: code, Message: message, RequestID: requestID},
	})
}

func logServerError(l *slog.Logger, r *http.Request, err error) {
	l.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// WriteValidationError writes a 400 INVALID_INPUT response. Field-level
// messages are included when err is a *validator.ValidationError.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	resp := &ErrorResponse{
		Code:      apperrors.CodeInvalidInput,
		Message:   err.Error(),
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		resp.Message = "request validation failed"
		resp.Fields = valErr.Fields()
	}

	WriteJSON(w, http.StatusBadRequest, Response{Error: resp})
}
