package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "storefront",
	Subsystem: "upstream",
	Name:      "retries_total",
	Help:      "Upstream request attempts repeated after a network error or 5xx.",
}, []string{"host"})

// Config tunes the pooled transport and the retry policy.
type Config struct {
	// Timeout bounds a single attempt, including reading the body.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts for idempotent requests.
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig makes a single attempt per request.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 100,
	}
}

type retryPolicy struct {
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
}

// attempts is how many times a request with method may be sent. Only
// idempotent methods are retried.
func (p retryPolicy) attempts(method string) int {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return p.maxRetries + 1
	default:
		return 1
	}
}

// wait is the pause before retry n (1-based): doubling from waitMin, capped
// at waitMax, with the upper half jittered.
func (p retryPolicy) wait(n int) time.Duration {
	d := p.waitMax
	if n <= 30 {
		d = min(p.waitMin<<(n-1), p.waitMax)
	}
	if d <= 1 {
		return d
	}
	return d/2 + rand.N(d/2+1)
}

// retryable reports whether an attempt that produced resp or err is worth
// repeating. 501 means the upstream will never support the request.
func (p retryPolicy) retryable(resp *http.Response, err error) bool {
	if err != nil {
		var netErr net.Error
		return !errors.Is(err, context.Canceled) && errors.As(err, &netErr)
	}
	return resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusNotImplemented
}

// Client is an http.Client with a pooled transport and bounded retries.
type Client struct {
	httpClient *http.Client
	retry      retryPolicy
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
				MaxConnsPerHost:       cfg.MaxConnsPerHost,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
		},
		retry: retryPolicy{
			maxRetries: max(cfg.MaxRetries, 0),
			waitMin:    cfg.RetryWaitMin,
			waitMax:    cfg.RetryWaitMax,
		},
	}
}

// Do sends req bound to ctx. When retries are exhausted on a 5xx the last
// response is returned for the caller to inspect.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	attempts := c.retry.attempts(req.Method)

	for n := 1; ; n++ {
		resp, err := c.httpClient.Do(req)
		if n == attempts || !c.retry.retryable(resp, err) {
			if err != nil {
				return nil, fmt.Errorf("http request failed after %d attempts: %w", n, err)
			}
			return resp, nil
		}

		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		retriesTotal.WithLabelValues(req.URL.Host).Inc()

		timer := time.NewTimer(c.retry.wait(n))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}
