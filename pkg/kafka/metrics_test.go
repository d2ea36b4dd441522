package kafka

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObservePublish_Outcomes(t *testing.T) {
	const topic = "storefront.catalog.observe"

	observePublish(topic, "catalog.query_failed", time.Now(), nil)
	observePublish(topic, "catalog.query_failed", time.Now(), nil)
	observePublish(topic, "catalog.query_failed", time.Now(), errors.New("broker down"))

	assert.Equal(t, float64(2), testutil.ToFloat64(eventsPublished.WithLabelValues(topic, "catalog.query_failed", outcomePublished)))
	assert.Equal(t, float64(1), testutil.ToFloat64(eventsPublished.WithLabelValues(topic, "catalog.query_failed", outcomeFailed)))
	assert.Equal(t, 1, testutil.CollectAndCount(publishLatency, "storefront_kafka_publish_duration_seconds"))
}
