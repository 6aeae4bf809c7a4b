// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

// Package metrics provides Prometheus collectors for observability.
//
// Metrics are exposed at the /metrics endpoint in Prometheus text format.
// Collectors are registered on the default registry via promauto at package
// load; callers only ever record observations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// Model rebuild metrics

	RebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_rebuild_duration_seconds",
			Help:    "Duration of model rebuilds by model",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"model"},
	)

	RebuildErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_rebuild_errors_total",
			Help: "Total failed model rebuilds by model",
		},
		[]string{"model"},
	)

	RebuildLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_rebuild_last_success_timestamp",
			Help: "Unix timestamp of the last fully successful rebuild",
		},
	)

	// Pipeline metrics

	FusionCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fusion_candidates_total",
			Help: "Candidates contributed per generator source",
		},
		[]string{"source"},
	)

	FusionStageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fusion_stage_errors_total",
			Help: "Generator stage failures absorbed by the fusion engine",
		},
		[]string{"stage"},
	)

	PolicyDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policy_dropped_total",
			Help: "Candidates dropped per policy stage",
		},
		[]string{"stage"},
	)

	HomefeedCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homefeed_cache_hits_total",
			Help: "Homefeed response cache hits",
		},
	)

	HomefeedCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homefeed_cache_misses_total",
			Help: "Homefeed response cache misses",
		},
	)

	FeedbackEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_events_total",
			Help: "Feedback events logged by interaction type",
		},
		[]string{"type"},
	)

	// Collaborator metrics

	EncoderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "encoder_requests_total",
			Help: "Embedding encoder calls by outcome",
		},
		[]string{"status"}, // "success", "error", "open" (circuit breaker)
	)

	EncoderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "encoder_request_duration_seconds",
			Help:    "Embedding encoder call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
