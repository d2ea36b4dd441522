package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/luanatech/storefront/pkg/errors"
)

// maxErrorBody caps how much of an error body is kept on a StatusError.
const maxErrorBody = 512

// upstreamErrorBody covers the two error bodies seen from the catalog API:
// {"error":{"code":..,"message":..}} and {"detail":".."}.
type upstreamErrorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// StatusError is returned for upstream responses with an unexpected status.
type StatusError struct {
	Service    string
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Message)
}

// Unwrap maps the upstream status onto the shared sentinel errors so callers
// can use errors.Is without inspecting codes.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case e.StatusCode == http.StatusBadRequest:
		return apperrors.ErrInvalidInput
	case e.StatusCode == http.StatusServiceUnavailable:
		return apperrors.ErrServiceUnavail
	default:
		return apperrors.ErrUpstream
	}
}

// ParseResponseError reads the body of an unexpected HTTP response and turns
// it into a *StatusError. Structured error bodies keep their code and
// message; anything else keeps a truncated copy of the raw body.
//
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	statusErr := &StatusError{Service: serviceName, StatusCode: resp.StatusCode}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		statusErr.Message = fmt.Sprintf("failed to read body: %v", err)
		return statusErr
	}

	var body upstreamErrorBody
	if json.Unmarshal(bodyBytes, &body) == nil {
		switch {
		case body.Error != nil:
			statusErr.Code = body.Error.Code
			statusErr.Message = body.Error.Message
			return statusErr
		case body.Detail != "":
			statusErr.Message = body.Detail
			return statusErr
		}
	}

	raw := strings.TrimSpace(string(bodyBytes))
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	statusErr.Message = raw
	return statusErr
}
