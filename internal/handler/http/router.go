package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luanatech/storefront/internal/config"
	apperrors "github.com/luanatech/storefront/pkg/errors"
	"github.com/luanatech/storefront/pkg/health"
	"github.com/luanatech/storefront/pkg/httputil"
	"github.com/luanatech/storefront/pkg/middleware"
)

const serviceName = "storefront"

// NewRouter creates a chi router with global middleware, health and metrics
// endpoints and the storefront API. ctx bounds background work started by
// middleware, such as rate limiter cleanup.
func NewRouter(
	ctx context.Context,
	cfg *config.Config,
	cat Catalog,
	home HomeComposer,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(globalMiddleware(ctx, cfg, logger)...)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, r, apperrors.NotFound("route", r.URL.Path), logger)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, r, apperrors.MethodNotAllowed(r.Method), logger)
	})

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())

	// Metrics endpoint with IP allowlist protection.
	r.With(middleware.IPAllowlist(cfg.MetricsAllowedCIDRs, logger)).Handle("/metrics", promhttp.Handler())

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	catalogHandler := NewCatalogHandler(cat, logger)
	homeHandler := NewHomeHandler(home, logger)

	// Catalog data is always revalidated against the upstream API.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.Get("/home", homeHandler.GetHome)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", catalogHandler.ListCategories)
			r.Get("/{category}/{subcategory}", catalogHandler.GetCategoryListing)
			r.Get("/{category}/{subcategory}/products", catalogHandler.ListCategoryProducts)
		})

		r.Get("/brands/{brand}/products", catalogHandler.ListBrandProducts)
	})

	return r
}

// globalMiddleware is the stack every request passes through, outermost
// first. Recovery leads so a panic in any later middleware is recovered.
func globalMiddleware(ctx context.Context, cfg *config.Config, logger *slog.Logger) []func(http.Handler) http.Handler {
	stack := []func(http.Handler) http.Handler{
		middleware.Recovery(logger),
		middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			ExposedHeaders: []string{middleware.CorrelationIDHeader, httputil.DegradedHeader},
			MaxAge:         cfg.CORSMaxAge,
		}),
		middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		chimw.Compress(5),
	}
	if cfg.RequestTimeout > 0 {
		stack = append(stack, chimw.Timeout(cfg.RequestTimeout))
	}
	return append(stack,
		middleware.RequestLogging(logger),
		middleware.PrometheusMetrics(httputil.DegradedHeader),
		middleware.Tracing(serviceName),
		middleware.RequestLogger(logger),
	)
}
