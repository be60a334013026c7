// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"fmt"
	"testing"
	"time"
)

func newTestTier1(t *testing.T, capacity int, kind string) *Tier1 {
	t.Helper()
	policy, err := NewPolicy(PolicyConfig{Kind: kind})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return NewTier1(capacity, time.Minute, policy)
}

func TestTier1SetGet(t *testing.T) {
	c := newTestTier1(t, 4, "lru")

	c.Set("a", 1)
	v, ok := c.Get("a")
	if !ok || v.(int) != 1 {
		t.Fatalf("Get(a) = %v, %v; want 1, true", v, ok)
	}

	c.Set("a", 2)
	if v, _ := c.Get("a"); v.(int) != 2 {
		t.Fatalf("Get(a) after overwrite = %v, want 2", v)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) = true, want false")
	}
}

func TestTier1EvictsExactlyOnePerOverflow(t *testing.T) {
	c := newTestTier1(t, 3, "lru")

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	if c.Evictions() != 0 {
		t.Fatalf("Evictions() = %d before overflow, want 0", c.Evictions())
	}

	c.Set("k3", 3)
	if c.Len() != 3 {
		t.Errorf("Len() = %d after overflow, want capacity 3", c.Len())
	}
	if c.Evictions() != 1 {
		t.Errorf("Evictions() = %d, want exactly 1", c.Evictions())
	}

	// k0 was least recently used.
	if _, ok := c.Get("k0"); ok {
		t.Error("expected k0 to be the eviction victim")
	}
	if _, ok := c.Get("k3"); !ok {
		t.Error("expected newly inserted k3 to be resident")
	}
}

func TestTier1LRUAccessProtectsKey(t *testing.T) {
	c := newTestTier1(t, 2, "lru")

	c.Set("k1", 1)
	c.Set("k2", 2)
	c.Get("k1")
	c.Set("k3", 3)

	if _, ok := c.Get("k2"); ok {
		t.Error("expected k2 evicted: k1 was accessed more recently")
	}
	if _, ok := c.Get("k1"); !ok {
		t.Error("expected k1 resident after protecting access")
	}
}

func TestTier1LFUAdmitsNewKeyAtCapacity(t *testing.T) {
	c := newTestTier1(t, 2, "lfu")

	c.Set("a", 1)
	c.Set("b", 2)
	for i := 0; i < 3; i++ {
		c.Get("a")
		c.Get("b")
	}

	// The new key starts at the minimum frequency; it must still displace a
	// resident rather than be evicted before its first lookup.
	c.Set("c", 3)
	if _, ok := c.Get("c"); !ok {
		t.Fatal("newly inserted key missed immediately after Set on a full cache")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want capacity 2", c.Len())
	}
	if c.Evictions() != 1 {
		t.Errorf("Evictions() = %d, want exactly 1", c.Evictions())
	}
}

func TestTier1ExpiredEntryIsMiss(t *testing.T) {
	policy := NewLRUPolicy()
	c := NewTier1(4, time.Nanosecond, policy)

	c.Set("a", 1)
	time.Sleep(time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("Get returned an expired entry")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after lazy expiry, want 0", c.Len())
	}
}

func TestTier1RemoveMatching(t *testing.T) {
	c := newTestTier1(t, 8, "lru")

	c.Set("rec:u1", 1)
	c.Set("rec:u2", 2)
	c.Set("other:u1", 3)

	if n := c.RemoveMatching("rec:*"); n != 2 {
		t.Fatalf("RemoveMatching = %d, want 2", n)
	}
	if _, ok := c.Get("other:u1"); !ok {
		t.Error("non-matching key was removed")
	}
}
