// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the two-tier cache manager: a bounded in-process
// Tier-1 with pluggable eviction, and a remote Tier-2 behind the Store
// interface (Redis or embedded Badger).
package cache

import (
	"fmt"
	"time"
)

// Policy is the eviction capability interface for Tier-1. The store feeds it
// access/insert/remove events and asks it for a victim on overflow; the
// policy never touches stored values.
//
// Implementations carry their own locking and are safe for concurrent use.
type Policy interface {
	// Name identifies the policy ("lru", "lfu", "ttl", "adaptive").
	Name() string

	// OnInsert records a newly resident key and its expiry.
	OnInsert(key string, expiresAt time.Time)

	// OnAccess records a hit on a resident key.
	OnAccess(key string)

	// OnMiss records a lookup for a key that is not resident. Only the
	// adaptive policy uses this, to score its shadow experiments.
	OnMiss(key string)

	// OnRemove records that a key left the store (eviction, invalidation
	// or expiry).
	OnRemove(key string)

	// Victim returns the key the policy would evict next, or "" when it
	// tracks nothing.
	Victim() string
}

// PolicyConfig selects and tunes a Tier-1 eviction policy.
type PolicyConfig struct {
	// Kind is lru, lfu, ttl or adaptive.
	Kind string

	// AdaptiveWindow is the number of recent eviction experiments the
	// adaptive policy scores when comparing LRU and LFU.
	AdaptiveWindow int

	// AdaptiveSwitchMargin is the hit-rate lead in [0, 1] the shadow policy
	// must hold over the active one before the adaptive policy switches.
	AdaptiveSwitchMargin float64
}

// NewPolicy builds the configured eviction policy.
func NewPolicy(cfg PolicyConfig) (Policy, error) {
	switch cfg.Kind {
	case "lru":
		return NewLRUPolicy(), nil
	case "lfu":
		return NewLFUPolicy(), nil
	case "ttl":
		return NewTTLPolicy(), nil
	case "adaptive":
		return NewAdaptivePolicy(cfg.AdaptiveWindow, cfg.AdaptiveSwitchMargin), nil
	default:
		return nil, fmt.Errorf("cache: unknown eviction policy %q", cfg.Kind)
	}
}
