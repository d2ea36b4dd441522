package catalog

import (
	"context"
	"errors"

	apperrors "github.com/luanatech/storefront/pkg/errors"
	"github.com/luanatech/storefront/pkg/httpclient"
)

// ErrDecode marks a 200 response whose body could not be decoded into the
// expected shape.
var ErrDecode = errors.New("catalog: malformed response body")

// Failure reasons, used as a metric label and in failure events.
const (
	ReasonStatus       = "status"
	ReasonTransport    = "transport"
	ReasonDecode       = "decode"
	ReasonTimeout      = "timeout"
	ReasonCanceled     = "canceled"
	ReasonCircuitOpen  = "circuit_open"
	ReasonInvalidInput = "invalid_input"
)

// Reason classifies a query error into one of the Reason* constants.
func Reason(err error) string {
	var statusErr *httpclient.StatusError
	switch {
	case errors.As(err, &statusErr):
		return ReasonStatus
	case errors.Is(err, ErrDecode):
		return ReasonDecode
	case errors.Is(err, httpclient.ErrCircuitOpen):
		return ReasonCircuitOpen
	case errors.Is(err, apperrors.ErrInvalidInput):
		return ReasonInvalidInput
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return ReasonTimeout
	default:
		return ReasonTransport
	}
}

// StatusCode returns the upstream status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
