// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/bookmill/bookmill/internal/metrics"
)

// Stats is a point-in-time snapshot of cache counters. All counters are
// monotonically increasing since process start.
type Stats struct {
	Tier1Hits   int64 `json:"tier1_hits"`
	Tier1Misses int64 `json:"tier1_misses"`
	Tier2Hits   int64 `json:"tier2_hits"`
	Tier2Misses int64 `json:"tier2_misses"`
	Evictions   int64 `json:"evictions"`
	Promotions  int64 `json:"promotions"`
	Tier2Errors int64 `json:"tier2_errors"`

	// AvgLookupLatency is the mean end-to-end Get latency.
	AvgLookupLatency time.Duration `json:"avg_lookup_latency_ns"`
}

// ManagerConfig tunes the two-tier manager.
type ManagerConfig struct {
	// Tier2TTL is the TTL applied to Tier-2 writes.
	Tier2TTL time.Duration

	// WarmConcurrency bounds parallel loader calls during Warm.
	WarmConcurrency int

	// WarmTier2WritesPerSecond paces Tier-2 writes during warming.
	// Zero disables pacing.
	WarmTier2WritesPerSecond float64
}

// Manager is the two-tier cache: a bounded in-process Tier-1 in front of an
// optional remote Tier-2. Tier-2 calls always happen outside the Tier-1
// lock, and a Tier-2 hit is promoted into Tier-1 before returning.
type Manager struct {
	t1     *Tier1
	t2     Store // nil means Tier-1 only
	codec  Codec
	cfg    ManagerConfig
	logger zerolog.Logger

	t1Hits      atomic.Int64
	t1Misses    atomic.Int64
	t2Hits      atomic.Int64
	t2Misses    atomic.Int64
	promotions  atomic.Int64
	t2Errors    atomic.Int64
	lookupCount atomic.Int64
	lookupNanos atomic.Int64
}

// NewManager creates a two-tier cache manager. t2 may be nil for a
// Tier-1-only deployment; codec is required when t2 is set.
func NewManager(t1 *Tier1, t2 Store, codec Codec, cfg ManagerConfig, logger zerolog.Logger) *Manager {
	if cfg.WarmConcurrency <= 0 {
		cfg.WarmConcurrency = 8
	}
	return &Manager{
		t1:     t1,
		t2:     t2,
		codec:  codec,
		cfg:    cfg,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// Get looks up a key, checking Tier-1 first, then Tier-2 with promotion.
// Tier-2 failures degrade to a miss rather than erroring, so the caller
// recomputes instead of failing.
func (m *Manager) Get(ctx context.Context, key string) (any, bool) {
	start := time.Now()
	defer func() {
		nanos := time.Since(start).Nanoseconds()
		m.lookupCount.Add(1)
		m.lookupNanos.Add(nanos)
	}()

	if value, ok := m.t1.Get(key); ok {
		m.t1Hits.Add(1)
		metrics.CacheHits.WithLabelValues("t1").Inc()
		metrics.CacheLookupDuration.WithLabelValues("t1").Observe(time.Since(start).Seconds())
		return value, true
	}
	m.t1Misses.Add(1)
	metrics.CacheMisses.WithLabelValues("t1").Inc()

	if m.t2 == nil {
		return nil, false
	}

	data, err := m.t2.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			m.t2Misses.Add(1)
			metrics.CacheMisses.WithLabelValues("t2").Inc()
		} else {
			m.recordTier2Error("get", err)
		}
		return nil, false
	}

	value, err := m.codec.Unmarshal(data)
	if err != nil {
		// A corrupt entry is treated as a miss; the recompute overwrites it.
		m.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable tier-2 entry")
		m.t2Misses.Add(1)
		return nil, false
	}

	m.t2Hits.Add(1)
	metrics.CacheHits.WithLabelValues("t2").Inc()
	metrics.CacheLookupDuration.WithLabelValues("t2").Observe(time.Since(start).Seconds())

	// Promotion: the next lookup for this key is served from Tier-1.
	m.t1.Set(key, value)
	m.promotions.Add(1)
	metrics.CachePromotions.Inc()

	return value, true
}

// Set stores a value in both tiers. Tier-2 write failures are absorbed.
func (m *Manager) Set(ctx context.Context, key string, value any) {
	m.t1.Set(key, value)

	if m.t2 == nil {
		return
	}

	data, err := m.codec.Marshal(value)
	if err != nil {
		m.logger.Error().Err(err).Str("key", key).Msg("marshal for tier-2")
		return
	}
	if err := m.t2.Set(ctx, key, data, m.cfg.Tier2TTL); err != nil {
		m.recordTier2Error("set", err)
	}
}

// GetMany resolves keys against Tier-1 first, then one batched Tier-2
// round trip for the remainder, promoting every Tier-2 hit. Keys that are
// nowhere are simply absent from the returned map.
func (m *Manager) GetMany(ctx context.Context, keys []string) map[string]any {
	found := make(map[string]any, len(keys))
	var missing []string

	for _, key := range keys {
		if value, ok := m.t1.Get(key); ok {
			m.t1Hits.Add(1)
			metrics.CacheHits.WithLabelValues("t1").Inc()
			found[key] = value
			continue
		}
		m.t1Misses.Add(1)
		metrics.CacheMisses.WithLabelValues("t1").Inc()
		missing = append(missing, key)
	}

	if m.t2 == nil || len(missing) == 0 {
		return found
	}

	batch, err := m.t2.GetMany(ctx, missing)
	if err != nil {
		m.recordTier2Error("get_many", err)
		return found
	}

	for _, key := range missing {
		data, ok := batch[key]
		if !ok {
			m.t2Misses.Add(1)
			metrics.CacheMisses.WithLabelValues("t2").Inc()
			continue
		}

		value, err := m.codec.Unmarshal(data)
		if err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable tier-2 entry")
			m.t2Misses.Add(1)
			continue
		}

		m.t2Hits.Add(1)
		metrics.CacheHits.WithLabelValues("t2").Inc()
		m.t1.Set(key, value)
		m.promotions.Add(1)
		metrics.CachePromotions.Inc()
		found[key] = value
	}

	return found
}

// SetMany stores all entries, pipelining the Tier-2 writes into a single
// batch.
func (m *Manager) SetMany(ctx context.Context, entries map[string]any) {
	for key, value := range entries {
		m.t1.Set(key, value)
	}

	if m.t2 == nil || len(entries) == 0 {
		return
	}

	batch := make(map[string][]byte, len(entries))
	for key, value := range entries {
		data, err := m.codec.Marshal(value)
		if err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("marshal for tier-2")
			continue
		}
		batch[key] = data
	}

	if err := m.t2.SetMany(ctx, batch, m.cfg.Tier2TTL); err != nil {
		m.recordTier2Error("set_many", err)
	}
}

// Invalidate removes every key matching the glob pattern from both tiers.
func (m *Manager) Invalidate(ctx context.Context, pattern string) error {
	removed := m.t1.RemoveMatching(pattern)
	m.logger.Debug().Str("pattern", pattern).Int("tier1_removed", removed).Msg("invalidated")

	if m.t2 == nil {
		return nil
	}
	if err := m.t2.DeleteMatching(ctx, pattern); err != nil {
		m.recordTier2Error("invalidate", err)
		return err
	}
	return nil
}

// Loader computes the value for a key during warming.
type Loader func(ctx context.Context, key string) (any, error)

// Warm populates both tiers for keys expected to be hot, with bounded
// parallelism and paced Tier-2 writes. A failure warming one key never
// aborts the others; the first context error stops the batch. Returns the
// number of keys warmed.
func (m *Manager) Warm(ctx context.Context, keys []string, loader Loader) (int, error) {
	sem := semaphore.NewWeighted(int64(m.cfg.WarmConcurrency))

	var limiter *rate.Limiter
	if m.cfg.WarmTier2WritesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(m.cfg.WarmTier2WritesPerSecond), 1)
	}

	var warmed atomic.Int64
	for _, key := range keys {
		if err := sem.Acquire(ctx, 1); err != nil {
			return int(warmed.Load()), err
		}

		go func(key string) {
			defer sem.Release(1)

			value, err := loader(ctx, key)
			if err != nil {
				m.logger.Warn().Err(err).Str("key", key).Msg("cache warm load failed")
				metrics.WarmedKeys.WithLabelValues("error").Inc()
				return
			}

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}

			m.Set(ctx, key, value)
			warmed.Add(1)
			metrics.WarmedKeys.WithLabelValues("ok").Inc()
		}(key)
	}

	// Wait for in-flight loads.
	if err := sem.Acquire(ctx, int64(m.cfg.WarmConcurrency)); err != nil {
		return int(warmed.Load()), err
	}
	sem.Release(int64(m.cfg.WarmConcurrency))

	return int(warmed.Load()), nil
}

// Stats returns a snapshot of the counters, never a live reference.
func (m *Manager) Stats() Stats {
	s := Stats{
		Tier1Hits:   m.t1Hits.Load(),
		Tier1Misses: m.t1Misses.Load(),
		Tier2Hits:   m.t2Hits.Load(),
		Tier2Misses: m.t2Misses.Load(),
		Evictions:   m.t1.Evictions(),
		Promotions:  m.promotions.Load(),
		Tier2Errors: m.t2Errors.Load(),
	}
	if count := m.lookupCount.Load(); count > 0 {
		s.AvgLookupLatency = time.Duration(m.lookupNanos.Load() / count)
	}
	return s
}

// Close releases Tier-2 resources.
func (m *Manager) Close() error {
	if m.t2 == nil {
		return nil
	}
	return m.t2.Close()
}

// recordTier2Error logs a Tier-2 failure and counts the degradation. The
// engine keeps serving from Tier-1 plus recomputation.
func (m *Manager) recordTier2Error(op string, err error) {
	m.t2Errors.Add(1)
	metrics.Tier2Degraded.Inc()
	m.logger.Warn().Err(err).Str("op", op).Msg("tier-2 unavailable, degrading to tier-1 only")
}
