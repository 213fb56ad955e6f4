// Package metrics holds the Prometheus collectors shared across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics, labeled by cache instance name
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagsearch_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagsearch_cache_misses_total",
			Help: "Total number of cache misses, including expired entries",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagsearch_cache_evictions_total",
			Help: "Total number of capacity evictions",
		},
		[]string{"cache"},
	)

	CacheResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tagsearch_cache_resets_total",
			Help: "Total number of global cache invalidations",
		},
	)

	// Recommendation metrics
	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagsearch_recommendation_duration_seconds",
			Help:    "Time spent serving a recommendation request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"}, // "cache" or "computed"
	)

	PregenerationPosts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagsearch_pregeneration_posts_total",
			Help: "Posts processed by recommendation pregeneration",
		},
		[]string{"result"}, // "ok" or "failed"
	)

	// Background job metrics
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagsearch_job_runs_total",
			Help: "Background job runs by type and final status",
		},
		[]string{"type", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagsearch_job_duration_seconds",
			Help:    "Duration of finished background jobs",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"type"},
	)

	JobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tagsearch_jobs_running",
			Help: "Number of background jobs currently running",
		},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagsearch_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tagsearch_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
