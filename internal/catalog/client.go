package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/luanatech/storefront/pkg/errors"
	"github.com/luanatech/storefront/pkg/httpclient"
	"github.com/luanatech/storefront/pkg/logger"
	"github.com/luanatech/storefront/pkg/tracing"
)

// ServiceName identifies the remote catalog API in errors and breaker metrics.
const ServiceName = "catalog-api"

const defaultMaxBodyBytes = 8 << 20

// HTTPDoer executes HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CircuitOpenFallback short-circuits catalog calls while the breaker is open.
// The error still matches httpclient.ErrCircuitOpen so the failure is
// classified as circuit_open.
func CircuitOpenFallback(_ context.Context, err error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("catalog API is temporarily unavailable", err)
}

// Config holds the catalog client settings.
type Config struct {
	// BaseURL is the origin of the remote catalog API, e.g. https://luanatech.pe.
	BaseURL string
	// CategoriesOrigin overrides BaseURL for the category list only. Empty
	// means BaseURL.
	CategoriesOrigin string
	// MaxBodyBytes bounds how much of a response body is decoded.
	MaxBodyBytes int64
}

// Client queries the remote catalog API. Every query settles to a value:
// failures are logged, counted, traced and reported, then replaced by the
// operation's empty value. It is safe for concurrent use.
type Client struct {
	http             HTTPDoer
	baseURL          string
	categoriesOrigin string
	maxBodyBytes     int64
	reporter         FailureReporter
	logger           *slog.Logger
	tracer           trace.Tracer
}

// NewClient creates a catalog client. A nil reporter disables failure
// reporting.
func NewClient(cfg Config, httpClient HTTPDoer, reporter FailureReporter, logger *slog.Logger) (*Client, error) {
	base, err := normalizeOrigin(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("catalog base url: %w", err)
	}
	categoriesOrigin := base
	if cfg.CategoriesOrigin != "" {
		if categoriesOrigin, err = normalizeOrigin(cfg.CategoriesOrigin); err != nil {
			return nil, fmt.Errorf("catalog categories origin: %w", err)
		}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:             httpClient,
		baseURL:          base,
		categoriesOrigin: categoriesOrigin,
		maxBodyBytes:     cfg.MaxBodyBytes,
		reporter:         reporter,
		logger:           logger,
		tracer:           tracing.Tracer("catalog"),
	}, nil
}

func normalizeOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%q: missing host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// endpoint is one remote query: where to send it and what to call it.
type endpoint struct {
	operation string
	origin    string
	path      string
}

// buildPath joins a path template prefix with escaped segments and the
// trailing slash the remote API expects.
func buildPath(prefix string, segments ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, s := range segments {
		b.WriteString(url.PathEscape(s))
		b.WriteByte('/')
	}
	return b.String()
}

// query issues one GET for ep and decodes a 200 body into T. Any failure is
// converted to empty.
func query[T any](ctx context.Context, c *Client, ep endpoint, empty T) Result[T] {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "catalog."+ep.operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("catalog.operation", ep.operation),
			semconv.HTTPRequestMethodKey.String(http.MethodGet),
			semconv.URLPath(ep.path),
		),
	)
	defer span.End()

	value, status, err := fetch[T](ctx, c, ep)
	queryDuration.WithLabelValues(ep.operation).Observe(time.Since(start).Seconds())
	if status != 0 {
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
	}

	if err != nil {
		c.absorb(ctx, span, ep, err)
		return failed(empty, err)
	}

	queriesTotal.WithLabelValues(ep.operation, Succeeded.String()).Inc()
	return succeeded(value)
}

func fetch[T any](ctx context.Context, c *Client, ep endpoint) (T, int, error) {
	var zero T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.origin+ep.path, http.NoBody)
	if err != nil {
		return zero, 0, fmt.Errorf("build %s request: %w", ep.operation, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return zero, StatusCode(err), fmt.Errorf("%s: %w", ep.operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return zero, resp.StatusCode, fmt.Errorf("%s: %w", ep.operation, httpclient.ParseResponseError(resp, ServiceName))
	}

	var v T
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBodyBytes)).Decode(&v); err != nil {
		return zero, resp.StatusCode, fmt.Errorf("%s: %w: %w", ep.operation, ErrDecode, err)
	}
	return v, resp.StatusCode, nil
}

// absorb records a failed query everywhere it needs to be seen. It never
// returns an error: the caller only gets the empty value.
func (c *Client) absorb(ctx context.Context, span trace.Span, ep endpoint, err error) {
	reason := Reason(err)
	status := StatusCode(err)

	queriesTotal.WithLabelValues(ep.operation, Failed.String()).Inc()
	queryFailuresTotal.WithLabelValues(ep.operation, reason).Inc()

	span.RecordError(err)
	span.SetStatus(codes.Error, reason)

	attrs := []slog.Attr{
		slog.String("operation", ep.operation),
		slog.String("path", ep.path),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	}
	if status != 0 {
		attrs = append(attrs, slog.Int("status", status))
	}
	c.log(ctx).LogAttrs(ctx, slog.LevelWarn, "catalog query failed, returning empty result", attrs...)

	// Only upstream failures are worth an event.
	if reason == ReasonCanceled || reason == ReasonInvalidInput {
		return
	}
	c.reporter.ReportFailure(ctx, Failure{
		Operation:  ep.operation,
		Path:       ep.path,
		Reason:     reason,
		StatusCode: status,
		Err:        err,
	})
}

// log prefers the request-scoped logger when the caller set one.
func (c *Client) log(ctx context.Context) *slog.Logger {
	if l := logger.FromContext(ctx); l != slog.Default() {
		return l
	}
	return c.logger
}

// requireArgs rejects empty identifiers before any request is made. Pairs
// are name, value.
func requireArgs(pairs ...string) error {
	var errs []error
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			errs = append(errs, apperrors.InvalidInput(pairs[i]+" must not be empty"))
		}
	}
	return errors.Join(errs...)
}
