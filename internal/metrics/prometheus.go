// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus instruments shared by the store,
// the annotation index and the HTTP API.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "litcurate_query_duration_seconds",
			Help:    "Duration of annotation index and result queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)

	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "litcurate_ingest_total",
			Help: "Rows seen by ingestion, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	DegradedAggregations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "litcurate_degraded_aggregations_total",
			Help: "Aggregations that fell back to a full-scan join",
		},
		[]string{"operation"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "litcurate_http_requests_total",
			Help: "HTTP requests served, by route and status class",
		},
		[]string{"route", "status"},
	)

	SessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "litcurate_sessions_created_total",
			Help: "Filter sessions created since start",
		},
	)
)

var registerOnce sync.Once

// Register adds every instrument to reg. Repeated calls are no-ops.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(QueryDuration)
		reg.MustRegister(IngestTotal)
		reg.MustRegister(DegradedAggregations)
		reg.MustRegister(HTTPRequests)
		reg.MustRegister(SessionsCreated)
	})
}

// ObserveSince records the time elapsed since start for operation and
// returns it.
func ObserveSince(operation string, start time.Time) time.Duration {
	d := time.Since(start)
	QueryDuration.WithLabelValues(operation).Observe(d.Seconds())
	return d
}

// Ingested counts one ingestion outcome.
func Ingested(kind, outcome string) {
	IngestTotal.WithLabelValues(kind, outcome).Inc()
}
