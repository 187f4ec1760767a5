// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

// Package metrics holds the Prometheus instrumentation for the lab:
// scenario computation, store derivation, recommendation serving,
// poster lookups, and the API surface.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scenario Metrics
	ScenarioComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scenario_compute_duration_seconds",
			Help:    "Duration of per-scenario recommendation computation in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scenario"},
	)

	ScenarioComputeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_compute_errors_total",
			Help: "Total number of failed scenario computations",
		},
		[]string{"scenario", "error_type"}, // "cancelled", "derivation", "other"
	)

	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Total number of recommendation lists served",
		},
		[]string{"scenario"},
	)

	StoreBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_build_duration_seconds",
			Help:    "Duration of derived rating store construction in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"}, // "attack", "defense"
	)

	StoreRatings = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_ratings",
			Help: "Number of ratings per scenario store",
		},
		[]string{"scenario"},
	)

	FlaggedProfiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "defense_flagged_profiles",
			Help: "Number of profiles flagged by the last defense run",
		},
	)

	// Poster Cache Metrics
	PosterCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poster_cache_hits_total",
			Help: "Total number of poster cache hits",
		},
	)

	PosterCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poster_cache_misses_total",
			Help: "Total number of poster cache misses (TMDB fetch required)",
		},
	)

	PosterLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poster_lookup_duration_seconds",
			Help:    "Duration of TMDB poster lookups in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PosterLookupErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poster_lookup_errors_total",
			Help: "Total number of failed TMDB poster lookups",
		},
		[]string{"error_type"}, // "rate_limited", "breaker_open", "http", "decode"
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

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
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

// RecordScenarioCompute records one scenario computation.
func RecordScenarioCompute(scenario string, duration time.Duration, err error) {
	ScenarioComputeDuration.WithLabelValues(scenario).Observe(duration.Seconds())
	if err != nil {
		ScenarioComputeErrors.WithLabelValues(scenario, categorize(err)).Inc()
		return
	}
	RecommendationsServed.WithLabelValues(scenario).Inc()
}

// RecordStoreBuild records a derived-store construction.
func RecordStoreBuild(kind string, duration time.Duration, numRatings int) {
	StoreBuildDuration.WithLabelValues(kind).Observe(duration.Seconds())
	StoreRatings.WithLabelValues(kind).Set(float64(numRatings))
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func categorize(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context"):
		return "cancelled"
	case strings.Contains(msg, "attack"), strings.Contains(msg, "defense"):
		return "derivation"
	default:
		return "other"
	}
}
