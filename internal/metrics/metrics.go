// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package instruments:
// - Detection cycle throughput and latency
// - Content grouping and windowing volumes
// - External content-search lookups
// - Webhook notification delivery
// - Actor pool growth

var (
	// Detection Cycle Metrics
	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "detection_cycle_duration_seconds",
			Help:    "Duration of full detection cycles in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300}, // Cycles with external lookups can take minutes
		},
		[]string{"strategy"},
	)

	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detection_cycles_total",
			Help: "Total number of detection cycles",
		},
		[]string{"strategy", "result"}, // result: "success", "failure", "empty"
	)

	CycleBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detection_cycle_batch_size",
			Help:    "Number of events in each cycle batch",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
	)

	CycleLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "detection_cycle_last_success_timestamp",
			Help: "Unix timestamp of last successful detection cycle",
		},
	)

	// Pipeline Stage Metrics
	ContentGroups = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detection_content_groups",
			Help:    "Number of content groups formed per cycle",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	CoordinationWindows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detection_coordination_windows",
			Help:    "Number of qualifying coordination windows per cycle",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	ActorsFlagged = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detection_actors_flagged",
			Help:    "Number of actors flagged as coordinated per cycle",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	ActorPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "detection_actor_pool_size",
			Help: "Current number of actors in the discovered-actor pool",
		},
	)

	// Content Search Metrics
	SearchLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_search_lookups_total",
			Help: "Total number of content-search lookups",
		},
		[]string{"result"}, // "success", "failure", "rejected"
	)

	SearchLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_search_lookup_duration_seconds",
			Help:    "Duration of content-search lookups in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Notification Metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of report notifications sent",
		},
		[]string{"notifier", "result"}, // result: "success", "failure"
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordCycle records the outcome of one detection cycle.
func RecordCycle(strategy string, duration time.Duration, batchSize int, err error) {
	CycleDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	CycleBatchSize.Observe(float64(batchSize))

	result := "success"
	switch {
	case err != nil:
		result = "failure"
	case batchSize == 0:
		result = "empty"
	}
	CyclesTotal.WithLabelValues(strategy, result).Inc()

	if err == nil {
		CycleLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordPipelineStages records the per-cycle stage volumes.
func RecordPipelineStages(groups, windows, actors int) {
	ContentGroups.Observe(float64(groups))
	CoordinationWindows.Observe(float64(windows))
	ActorsFlagged.Observe(float64(actors))
}

// RecordSearchLookup records a content-search lookup and its outcome.
func RecordSearchLookup(duration time.Duration, err error) {
	SearchLookupDuration.Observe(duration.Seconds())
	if err != nil {
		SearchLookupsTotal.WithLabelValues("failure").Inc()
	} else {
		SearchLookupsTotal.WithLabelValues("success").Inc()
	}
}

// RecordNotification records a notification delivery attempt.
func RecordNotification(notifier string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	NotificationsSent.WithLabelValues(notifier, result).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// SetActorPoolSize updates the actor pool size gauge.
func SetActorPoolSize(size int) {
	ActorPoolSize.Set(float64(size))
}
