// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics.
	TriggersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triggers_fired_total",
			Help: "Total number of behavioral trigger derivations",
		},
		[]string{"trigger"},
	)

	PersonaClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_classifications_total",
			Help: "Total number of persona classifier outcomes",
		},
		[]string{"persona", "outcome"}, // outcome: "classified", "fallback_low_quality", "fallback_no_match", "fallback_error"
	)

	RecommendationsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendations_generated_total",
			Help: "Total number of recommendations surfaced to users",
		},
	)

	RecommendationsFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_filtered_total",
			Help: "Total number of candidate items dropped or excluded",
		},
		[]string{"reason"}, // "prohibited_content", "recently_viewed", "no_candidates"
	)

	GuardrailEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardrail_events_total",
			Help: "Total number of guardrail activations",
		},
		[]string{"kind"}, // "consent_denied", "rate_cap", "reframed", "prohibited", "disclaimer"
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_duration_seconds",
			Help:    "End-to-end per-user recommendation pipeline latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	PipelineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_errors_total",
			Help: "Total number of per-user pipeline failures",
		},
		[]string{"stage"}, // "signals", "classify", "score", "guardrails", "persist"
	)

	// Storage metrics.
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "Duration of BadgerDB store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_op_errors_total",
			Help: "Total number of failed store operations",
		},
		[]string{"operation"},
	)

	// API endpoint metrics.
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

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Batch regeneration metrics.
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_duration_seconds",
			Help:    "Duration of batch recommendation regeneration runs",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	BatchUsersProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batch_users_processed_total",
			Help: "Total number of users processed by batch regeneration",
		},
	)

	BatchUsersFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batch_users_failed_total",
			Help: "Total number of users skipped by batch regeneration due to errors",
		},
	)

	BatchLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batch_last_success_timestamp",
			Help: "Unix timestamp of last successful batch regeneration",
		},
	)

	// Catalog metrics.
	CatalogItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_items",
			Help: "Current number of loaded catalog items",
		},
		[]string{"content_type"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordStoreOp records a store operation metric.
func RecordStoreOp(operation string, duration time.Duration, err error) {
	StoreOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreOpErrors.WithLabelValues(operation).Inc()
	}
}

// RecordBatchRun records a batch regeneration run.
func RecordBatchRun(duration time.Duration, processed, failed int) {
	BatchDuration.Observe(duration.Seconds())
	BatchUsersProcessed.Add(float64(processed))
	BatchUsersFailed.Add(float64(failed))
	if failed == 0 {
		BatchLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
