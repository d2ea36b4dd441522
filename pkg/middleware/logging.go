package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luanatech/storefront/pkg/logger"
)

// CorrelationIDHeader carries the request correlation ID in and out.
const CorrelationIDHeader = "X-Correlation-ID"

const maxCorrelationIDLen = 128

// correlationID reuses a caller-supplied X-Correlation-ID or X-Request-ID
// when it is short printable ASCII, and mints a UUID otherwise.
func correlationID(r *http.Request) string {
	for _, h := range []string{CorrelationIDHeader, "X-Request-ID"} {
		if id := r.Header.Get(h); validCorrelationID(id) {
			return id
		}
	}
	return uuid.NewString()
}

func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLen {
		return false
	}
	return !strings.ContainsFunc(id, func(c rune) bool { return c < 0x21 || c > 0x7e })
}

// accessLogLevel keeps health check traffic at debug and escalates 5xx to error.
func accessLogLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case strings.HasPrefix(path, "/health/"):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// RequestLogging assigns the request its correlation ID, echoes it in the
// response and writes one access log line when the handler returns.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := correlationID(r)
			ctx := logger.WithCorrelationID(r.Context(), id)
			w.Header().Set(CorrelationIDHeader, id)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			l.LogAttrs(ctx, accessLogLevel(r.URL.Path, rec.statusCode), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration", time.Since(start)),
				slog.String("client_ip", clientIP(r)),
				slog.String("user_agent", r.UserAgent()),
				slog.String("correlation_id", id),
			)
		})
	}
}
