package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/luanatech/storefront/internal/catalog"
	"github.com/luanatech/storefront/internal/config"
	"github.com/luanatech/storefront/internal/event"
	handler "github.com/luanatech/storefront/internal/handler/http"
	"github.com/luanatech/storefront/internal/storefront"
	"github.com/luanatech/storefront/pkg/health"
	"github.com/luanatech/storefront/pkg/httpclient"
	pkgkafka "github.com/luanatech/storefront/pkg/kafka"
	"github.com/luanatech/storefront/pkg/tracing"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	httpServer     *http.Server
	kafkaProducer  *pkgkafka.Producer
	events         *event.Producer
	tracerShutdown func(context.Context) error
	stop           context.CancelFunc
}

// NewApp creates a new application instance: tracing, the catalog client,
// optional Kafka failure events, health checks and the HTTP router.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()
	healthHandler.RegisterNonCritical("catalog_api", upstreamCheck(cfg.APIURL))

	a := &App{
		cfg:            cfg,
		logger:         logger,
		tracerShutdown: tracerShutdown,
	}

	// Failure events are optional; without Kafka failures are only logged
	// and counted.
	var reporter catalog.FailureReporter
	if cfg.KafkaEnabled {
		a.kafkaProducer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.events = event.NewProducer(a.kafkaProducer, cfg.KafkaTopicCatalogFailed, cfg.Environment, logger)
		reporter = a.events
		healthHandler.Register("kafka", a.kafkaProducer.Ping)
	}

	catalogClient, err := catalog.NewClient(catalog.Config{
		BaseURL:          cfg.APIURL,
		CategoriesOrigin: cfg.CatalogCategoriesOrigin,
		MaxBodyBytes:     cfg.CatalogMaxBodyBytes,
	}, newCatalogHTTPClient(cfg, logger), reporter, logger)
	if err != nil {
		return nil, fmt.Errorf("create catalog client: %w", err)
	}

	home := storefront.NewHomeService(catalogClient, homeConfig(cfg), logger)

	// runCtx lives until Shutdown and bounds middleware background work.
	runCtx, stop := context.WithCancel(context.Background())
	a.stop = stop

	router := handler.NewRouter(runCtx, cfg, catalogClient, home, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newCatalogHTTPClient builds the upstream HTTP client, wrapped in a circuit
// breaker when CB_ENABLED is set.
func newCatalogHTTPClient(cfg *config.Config, logger *slog.Logger) catalog.HTTPDoer {
	base := httpclient.New(httpclient.Config{
		Timeout:         cfg.CatalogTimeout,
		MaxRetries:      cfg.CatalogMaxRetries,
		RetryWaitMin:    cfg.CatalogRetryWaitMin,
		RetryWaitMax:    cfg.CatalogRetryWaitMax,
		MaxConnsPerHost: cfg.CatalogMaxConnsPerHost,
	})
	if !cfg.CBEnabled {
		return base
	}

	return httpclient.NewCircuitBreakerClient(base, httpclient.CircuitBreakerConfig{
		Name:         catalog.ServiceName,
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}, logger).WithFallback(catalog.CircuitOpenFallback)
}

func homeConfig(cfg *config.Config) storefront.HomeConfig {
	return storefront.HomeConfig{
		Title:              cfg.HomeTitle,
		Description:        cfg.HomeDescription,
		LaptopsTitle:       cfg.HomeLaptopsTitle,
		LaptopsCategory:    cfg.HomeLaptopsCategory,
		LaptopsSubcategory: cfg.HomeLaptopsSubcategory,
		AdaptersTitle:      cfg.HomeAdaptersTitle,
		AdaptersBrand:      cfg.HomeAdaptersBrand,
	}
}

// upstreamCheck dials the catalog API host. It is non-critical: the
// storefront keeps serving empty catalog data while the API is down.
func upstreamCheck(rawURL string) health.Checker {
	return func(ctx context.Context) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("parse catalog API URL: %w", err)
		}
		host := u.Host
		if u.Port() == "" {
			port := "80"
			if u.Scheme == "https" {
				port = "443"
			}
			host = net.JoinHostPort(u.Hostname(), port)
		}

		d := net.Dialer{Timeout: 2 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return fmt.Errorf("catalog API unreachable: %w", err)
		}
		_ = conn.Close()
		return nil
	}
}

// Handler returns the HTTP handler served by the application.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application in order:
// 1. HTTP server (drain in-flight requests)
// 2. Failure events still being published, then the Kafka writer
// 3. Tracer (flush pending spans from drained requests)
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	drain := a.cfg.ShutdownTimeout
	if drain <= 0 {
		drain = 5 * time.Second
	}
	httpCtx, httpCancel := context.WithTimeout(context.Background(), drain)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if a.stop != nil {
		a.stop()
	}

	if a.events != nil {
		eventsCtx, eventsCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer eventsCancel()
		if err := a.events.Close(eventsCtx); err != nil {
			a.logger.Error("failure events drain error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.kafkaProducer != nil {
		if err := a.kafkaProducer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
