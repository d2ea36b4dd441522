package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = gobreaker.ErrOpenState

// CircuitBreakerConfig configures a breaker around one upstream.
type CircuitBreakerConfig struct {
	// Name labels the breaker in logs and metrics.
	Name string
	// MaxRequests allowed through while half-open. 0 means 1.
	MaxRequests uint32
	// Interval after which closed-state counts reset. 0 never resets.
	Interval time.Duration
	// Timeout spent open before probing again.
	Timeout time.Duration
	// FailureRatio that trips the breaker once MinRequests is reached.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultCircuitBreakerConfig trips after half of at least five requests
// fail and lets a trial request through after 30 seconds.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// FallbackFunc answers in place of the upstream while the breaker is open.
// err matches ErrCircuitOpen.
type FallbackFunc func(ctx context.Context, err error) (*http.Response, error)

var (
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "upstream",
			Name:      "circuit_breaker_state",
			Help:      "Upstream circuit breaker state (0=closed, 1=half-open, 2=open).",
		},
		[]string{"name"},
	)

	breakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "upstream",
			Name:      "circuit_breaker_rejections_total",
			Help:      "Requests short-circuited by an open breaker.",
		},
		[]string{"name", "fallback"},
	)
)

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}

// CircuitBreakerClient guards a Client with a circuit breaker. Transport
// errors and 5xx replies count as failures; 4xx replies and caller
// cancellation do not.
type CircuitBreakerClient struct {
	client   *Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	fallback FallbackFunc
	name     string
	logger   *slog.Logger
}

// NewCircuitBreakerClient wraps client with a breaker configured by cfg.
func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	breakerState.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))

	return &CircuitBreakerClient{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](cfg.settings(logger)),
		name:    cfg.Name,
		logger:  logger,
	}
}

func (cfg CircuitBreakerConfig) settings(logger *slog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= cfg.MinRequests &&
				float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	}
}

// WithFallback returns a copy of c that calls fn instead of failing with
// ErrCircuitOpen.
func (c *CircuitBreakerClient) WithFallback(fn FallbackFunc) *CircuitBreakerClient {
	cp := *c
	cp.fallback = fn
	return &cp
}

// Do sends req through the breaker. A 5xx reply is returned as a
// *StatusError with the body already drained.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, ParseResponseError(resp, c.name)
		}
		return resp, nil
	})
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		// Half-open with its trial quota used up rejects like an open breaker.
		err = fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	if !errors.Is(err, ErrCircuitOpen) {
		return nil, err
	}

	breakerRejections.WithLabelValues(c.name, boolLabel(c.fallback != nil)).Inc()
	if c.fallback == nil {
		return nil, err
	}
	c.logger.WarnContext(ctx, "circuit breaker open, using fallback",
		slog.String("breaker", c.name),
	)
	return c.fallback(ctx, err)
}

// State reports the breaker's current state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
