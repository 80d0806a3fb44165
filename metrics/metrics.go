// Package metrics exposes Prometheus collectors for the scoring engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttempts counts adapter fetches by provider.
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_fetch_attempts_total",
		Help: "Total provider fetch attempts",
	}, []string{"provider"})

	// FetchFailures counts adapter failures by provider and error kind.
	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_fetch_failures_total",
		Help: "Total provider fetch failures by taxonomy kind",
	}, []string{"provider", "kind"})

	// FallbacksServed counts resolutions satisfied by a non-primary adapter.
	FallbacksServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_fallbacks_served_total",
		Help: "Total resolutions served by a fallback provider",
	})

	// CacheHits counts result-cache hits.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_cache_hits_total",
		Help: "Total result cache hits",
	})

	// CacheMisses counts result-cache misses that triggered a computation.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_cache_misses_total",
		Help: "Total result cache misses",
	})

	// CacheCollapsed counts callers that waited on an in-flight
	// computation instead of starting their own.
	CacheCollapsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_cache_collapsed_total",
		Help: "Total lookups collapsed into an in-flight computation",
	})

	// CacheEvictions counts LRU evictions under capacity pressure.
	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_cache_evictions_total",
		Help: "Total LRU cache evictions",
	})

	// ComputeDuration observes the end-to-end compute path on cache misses.
	ComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_compute_duration_seconds",
		Help:    "Duration of resolve+indicator+score on cache misses",
		Buckets: prometheus.DefBuckets,
	})
)
