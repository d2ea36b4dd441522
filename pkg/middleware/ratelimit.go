package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

const bucketIdleTTL = 3 * time.Minute

var rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "storefront",
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected with 429 by the per-client rate limiter.",
})

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// bucketPool hands out one token bucket per client IP and forgets buckets
// that have been idle for longer than idle.
type bucketPool struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

func newBucketPool(rps float64, burst int, idle time.Duration) *bucketPool {
	return &bucketPool{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
	}
}

func (p *bucketPool) take(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.buckets[ip]
	if b == nil {
		b = &bucket{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.buckets[ip] = b
	}
	b.lastSeen = p.now()
	return b.limiter
}

func (p *bucketPool) evictIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-p.idle)
	for ip, b := range p.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(p.buckets, ip)
		}
	}
}

func (p *bucketPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets)
}

func (p *bucketPool) sweep(ctx context.Context) {
	t := time.NewTicker(p.idle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.evictIdle()
		}
	}
}

// RateLimit applies a token bucket of rps requests per second with the given
// burst to each client IP and answers 429 once it runs dry. Idle buckets are
// swept until ctx ends. A non-positive rps turns limiting off.
func RateLimit(ctx context.Context, rps float64, burst int, l *slog.Logger) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	pool := newBucketPool(rps, max(burst, 1), bucketIdleTTL)
	go pool.sweep(ctx)
	retryAfter := strconv.Itoa(int(math.Ceil(1 / rps)))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if pool.take(ip).Allow() {
				next.ServeHTTP(w, r)
				return
			}

			rateLimitedTotal.Inc()
			l.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", retryAfter)
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
		})
	}
}
