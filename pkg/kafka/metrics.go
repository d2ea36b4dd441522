package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Publish outcomes recorded in eventsPublished.
const (
	outcomePublished = "published"
	outcomeFailed    = "failed"
)

var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "kafka",
			Name:      "events_total",
			Help:      "Events handed to Kafka, by topic, event type and outcome.",
		},
		[]string{"topic", "event_type", "outcome"},
	)

	publishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Time spent waiting for Kafka to acknowledge a write.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"topic"},
	)
)

func observePublish(topic, eventType string, start time.Time, err error) {
	publishLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	outcome := outcomePublished
	if err != nil {
		outcome = outcomeFailed
	}
	eventsPublished.WithLabelValues(topic, eventType, outcome).Inc()
}
