// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bookmill/bookmill/internal/metrics"
)

// tier1Entry is one resident Tier-1 value. lastAccessNanos and accessCount
// are atomics because they are touched under the shared read lock.
type tier1Entry struct {
	value           any
	expiresAt       time.Time
	lastAccessNanos int64
	accessCount     int64
}

// Tier1 is the bounded in-process cache tier. Reads take a shared lock;
// inserts, evictions and removals take the exclusive lock, so no reader
// ever observes a half-evicted entry.
type Tier1 struct {
	mu       sync.RWMutex
	items    map[string]*tier1Entry
	capacity int
	ttl      time.Duration
	policy   Policy

	evictions atomic.Int64
}

// NewTier1 creates a bounded Tier-1 store with the given eviction policy.
func NewTier1(capacity int, ttl time.Duration, policy Policy) *Tier1 {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Tier1{
		items:    make(map[string]*tier1Entry, capacity),
		capacity: capacity,
		ttl:      ttl,
		policy:   policy,
	}
}

// Get returns the value for key if resident and unexpired.
func (t *Tier1) Get(key string) (any, bool) {
	t.mu.RLock()
	entry, ok := t.items[key]
	var value any
	expired := false
	if ok {
		if time.Now().After(entry.expiresAt) {
			expired = true
		} else {
			value = entry.value
			atomic.StoreInt64(&entry.lastAccessNanos, time.Now().UnixNano())
			atomic.AddInt64(&entry.accessCount, 1)
		}
	}
	t.mu.RUnlock()

	if expired {
		t.Remove(key)
		t.policy.OnMiss(key)
		return nil, false
	}
	if !ok {
		t.policy.OnMiss(key)
		return nil, false
	}

	t.policy.OnAccess(key)
	return value, true
}

// Set stores a value. When capacity is exceeded exactly one policy-selected
// entry is evicted per overflow, never a bulk flush.
func (t *Tier1) Set(key string, value any) {
	now := time.Now()
	expiresAt := now.Add(t.ttl)

	t.mu.Lock()
	if entry, ok := t.items[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		t.mu.Unlock()
		t.policy.OnInsert(key, expiresAt)
		return
	}

	// Evict before admitting so the incoming key is never its own victim.
	// Under LFU a fresh entry starts at the minimum frequency and would
	// otherwise be evicted immediately on a full cache.
	for len(t.items) >= t.capacity {
		victim := t.policy.Victim()
		if victim == "" {
			break
		}
		delete(t.items, victim)
		t.policy.OnRemove(victim)
		t.evictions.Add(1)
		metrics.CacheEvictions.WithLabelValues(t.policy.Name()).Inc()
	}

	t.items[key] = &tier1Entry{value: value, expiresAt: expiresAt, lastAccessNanos: now.UnixNano()}
	t.policy.OnInsert(key, expiresAt)
	t.mu.Unlock()
}

// Remove drops a key. Returns true if it was resident.
func (t *Tier1) Remove(key string) bool {
	t.mu.Lock()
	_, ok := t.items[key]
	if ok {
		delete(t.items, key)
	}
	t.mu.Unlock()

	if ok {
		t.policy.OnRemove(key)
	}
	return ok
}

// RemoveMatching drops every resident key matching the glob pattern and
// returns how many were removed.
func (t *Tier1) RemoveMatching(pattern string) int {
	t.mu.Lock()
	var removed []string
	for key := range t.items {
		if ok, err := path.Match(pattern, key); err == nil && ok {
			removed = append(removed, key)
		}
	}
	for _, key := range removed {
		delete(t.items, key)
	}
	t.mu.Unlock()

	for _, key := range removed {
		t.policy.OnRemove(key)
	}
	return len(removed)
}

// Len returns the number of resident entries.
func (t *Tier1) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Evictions returns the total eviction count.
func (t *Tier1) Evictions() int64 {
	return t.evictions.Load()
}
