package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/luanatech/storefront/internal/catalog"
	pkgkafka "github.com/luanatech/storefront/pkg/kafka"
	"github.com/luanatech/storefront/pkg/logger"
)

// TopicCatalogQueryFailed is the default topic for catalog failure events.
var TopicCatalogQueryFailed = pkgkafka.Topic("catalog", "query_failed")

// Event type and aggregate constants.
const (
	EventTypeCatalogQueryFailed = "catalog.query_failed"
	AggregateTypeCatalogQuery   = "catalog_query"
	SourceStorefront            = "storefront"
)

const (
	publishTimeout = 5 * time.Second
	maxInFlight    = 32
)

// CatalogQueryFailedData is the payload of a catalog.query_failed event.
type CatalogQueryFailedData struct {
	Operation  string `json:"operation"`
	Path       string `json:"path"`
	Reason     string `json:"reason"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error"`
}

// publisher is satisfied by *pkgkafka.Producer.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog failure events to Kafka. It implements
// catalog.FailureReporter: publishing happens in the background so a slow
// broker never delays a page, and errors are only logged.
type Producer struct {
	kafka       publisher
	topic       string
	environment string
	logger      *slog.Logger

	wg  sync.WaitGroup
	sem chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewProducer creates a failure event producer writing to topic. Every event
// carries environment in its metadata.
func NewProducer(kafka publisher, topic, environment string, logger *slog.Logger) *Producer {
	if topic == "" {
		topic = TopicCatalogQueryFailed
	}
	return &Producer{
		kafka:       kafka,
		topic:       topic,
		environment: environment,
		logger:      logger,
		sem:         make(chan struct{}, maxInFlight),
	}
}

// ReportFailure schedules a catalog.query_failed event. When too many
// publishes are already in flight, or the producer is closed, the event is
// dropped.
func (p *Producer) ReportFailure(ctx context.Context, f catalog.Failure) {
	select {
	case p.sem <- struct{}{}:
	default:
		p.logger.WarnContext(ctx, "dropping catalog failure event, too many in flight",
			slog.String("operation", f.Operation),
		)
		return
	}

	// wg.Add must not race with the wg.Wait in Close.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.sem
		p.logger.WarnContext(ctx, "dropping catalog failure event, producer closed",
			slog.String("operation", f.Operation),
		)
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	// The request may finish before the publish does.
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()

		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := p.PublishCatalogQueryFailed(ctx, f); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish catalog failure event",
				slog.String("operation", f.Operation),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// PublishCatalogQueryFailed publishes a catalog.query_failed event and waits
// for the broker to acknowledge it.
func (p *Producer) PublishCatalogQueryFailed(ctx context.Context, f catalog.Failure) error {
	data := CatalogQueryFailedData{
		Operation:  f.Operation,
		Path:       f.Path,
		Reason:     f.Reason,
		StatusCode: f.StatusCode,
	}
	if f.Err != nil {
		data.Error = f.Err.Error()
	}

	event, err := pkgkafka.NewEvent(EventTypeCatalogQueryFailed, f.Operation, AggregateTypeCatalogQuery, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create catalog.query_failed event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if p.environment != "" {
		event.WithMetadata("environment", p.environment)
	}

	if err := p.kafka.Publish(ctx, p.topic, event); err != nil {
		return fmt.Errorf("publish catalog.query_failed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published catalog.query_failed event",
		slog.String("operation", f.Operation),
		slog.String("reason", f.Reason),
	)
	return nil
}

// Close stops accepting failures and waits for in-flight publishes to
// finish or ctx to expire.
func (p *Producer) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for failure events: %w", ctx.Err())
	}
}
