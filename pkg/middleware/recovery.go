package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/luanatech/storefront/pkg/errors"
)

var panicsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "storefront",
	Subsystem: "http",
	Name:      "panics_total",
	Help:      "Handler panics recovered by the server.",
})

// Recovery turns a handler panic into a logged 500. If the handler already
// started the response only the log line is written. http.ErrAbortHandler
// is re-raised so net/http can abort the connection.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				panicsTotal.Inc()
				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", v),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				if !rec.written {
					writeJSONError(rec, http.StatusInternalServerError, apperrors.CodeInternal, "an internal error occurred")
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// writeJSONError writes the {"error":{...}} envelope used by httputil
// without importing it.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": code, "message": message},
	})
}
