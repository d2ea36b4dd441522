package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "catalog_queries_total",
			Help:      "Total number of catalog queries by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	queryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "catalog_query_failures_total",
			Help:      "Total number of catalog queries recovered to an empty value, by reason",
		},
		[]string{"operation", "reason"},
	)

	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "catalog_query_duration_seconds",
			Help:      "Duration of catalog queries in seconds",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)
)
