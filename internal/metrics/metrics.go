// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides Prometheus instrumentation for Bookmill.
//
// Covered surfaces:
//   - Cache tier hits/misses, evictions, promotions
//   - Recommendation latency and errors
//   - Model version and reload activity
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmill_cache_hits_total",
			Help: "Total cache hits by tier",
		},
		[]string{"tier"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmill_cache_misses_total",
			Help: "Total cache misses by tier",
		},
		[]string{"tier"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmill_cache_evictions_total",
			Help: "Total tier-1 evictions by policy",
		},
		[]string{"policy"},
	)

	CachePromotions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookmill_cache_promotions_total",
			Help: "Total entries promoted from tier-2 into tier-1",
		},
	)

	CacheLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookmill_cache_lookup_duration_seconds",
			Help:    "Duration of cache lookups",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"tier"},
	)

	Tier2Degraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookmill_cache_tier2_degraded_total",
			Help: "Operations served in tier-1-only mode because tier-2 was unreachable",
		},
	)

	WarmedKeys = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmill_cache_warmed_keys_total",
			Help: "Cache warming outcomes",
		},
		[]string{"result"}, // "ok", "error"
	)

	// Recommendation metrics

	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmill_recommend_requests_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"}, // "hit", "computed", "error"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookmill_recommend_duration_seconds",
			Help:    "End-to-end recommendation latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Model metrics

	ModelGeneration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookmill_model_generation",
			Help: "Sequence number of the currently loaded model snapshot",
		},
	)

	ModelReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmill_model_reloads_total",
			Help: "Model artifact reload attempts",
		},
		[]string{"result"}, // "ok", "unchanged", "error"
	)
)
