// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"testing"
	"time"
)

func TestNewPolicyKinds(t *testing.T) {
	for _, kind := range []string{"lru", "lfu", "ttl", "adaptive"} {
		p, err := NewPolicy(PolicyConfig{Kind: kind})
		if err != nil {
			t.Fatalf("NewPolicy(%q): %v", kind, err)
		}
		if p.Name() != kind {
			t.Errorf("Name() = %q, want %q", p.Name(), kind)
		}
	}

	if _, err := NewPolicy(PolicyConfig{Kind: "fifo"}); err == nil {
		t.Error("expected error for unknown policy kind")
	}
}

func TestLRUVictimIsLeastRecentlyUsed(t *testing.T) {
	p := NewLRUPolicy()
	exp := time.Now().Add(time.Hour)

	p.OnInsert("k1", exp)
	p.OnInsert("k2", exp)
	p.OnAccess("k1")
	p.OnInsert("k3", exp)

	// k2 was never touched after insertion.
	if v := p.Victim(); v != "k2" {
		t.Errorf("Victim() = %q, want k2", v)
	}
}

func TestLRURemoveForgetsKey(t *testing.T) {
	p := NewLRUPolicy()
	exp := time.Now().Add(time.Hour)

	p.OnInsert("k1", exp)
	p.OnInsert("k2", exp)
	p.OnRemove("k1")

	if v := p.Victim(); v != "k2" {
		t.Errorf("Victim() = %q, want k2", v)
	}
	p.OnRemove("k2")
	if v := p.Victim(); v != "" {
		t.Errorf("Victim() on empty policy = %q, want empty", v)
	}
}

func TestLFUVictimIsLeastFrequentlyUsed(t *testing.T) {
	p := NewLFUPolicy()
	exp := time.Now().Add(time.Hour)

	p.OnInsert("hot", exp)
	p.OnInsert("cold", exp)
	p.OnAccess("hot")
	p.OnAccess("hot")
	p.OnAccess("cold")

	if v := p.Victim(); v != "cold" {
		t.Errorf("Victim() = %q, want cold", v)
	}
}

func TestLFUTieBrokenByRecency(t *testing.T) {
	p := NewLFUPolicy()
	exp := time.Now().Add(time.Hour)

	p.OnInsert("a", exp)
	p.OnInsert("b", exp)

	// Equal frequency: the older entry in the bucket goes first.
	if v := p.Victim(); v != "a" {
		t.Errorf("Victim() = %q, want a", v)
	}
}

func TestTTLVictimIsSoonestToExpire(t *testing.T) {
	p := NewTTLPolicy()
	now := time.Now()

	p.OnInsert("late", now.Add(time.Hour))
	p.OnInsert("soon", now.Add(time.Minute))
	p.OnInsert("mid", now.Add(30*time.Minute))

	if v := p.Victim(); v != "soon" {
		t.Errorf("Victim() = %q, want soon", v)
	}
	p.OnRemove("soon")
	if v := p.Victim(); v != "mid" {
		t.Errorf("Victim() = %q, want mid", v)
	}
}

func TestTTLReinsertUpdatesDeadline(t *testing.T) {
	p := NewTTLPolicy()
	now := time.Now()

	p.OnInsert("a", now.Add(time.Minute))
	p.OnInsert("b", now.Add(time.Hour))
	p.OnInsert("a", now.Add(2*time.Hour))

	if v := p.Victim(); v != "b" {
		t.Errorf("Victim() = %q, want b after deadline extension", v)
	}
}

func TestAdaptiveStartsOnLRU(t *testing.T) {
	p := NewAdaptivePolicy(0, 0)
	if p.Active() != "lru" {
		t.Fatalf("Active() = %q, want lru", p.Active())
	}
	if p.Name() != "adaptive" {
		t.Fatalf("Name() = %q, want adaptive", p.Name())
	}
}

func TestAdaptiveSwitchesWhenShadowWins(t *testing.T) {
	// Tiny window and zero margin so a clear shadow win flips the active
	// policy quickly.
	p := NewAdaptivePolicy(8, 0)
	exp := time.Now().Add(time.Hour)

	// Make "hot" frequent so LFU would protect it while LRU would not.
	p.OnInsert("hot", exp)
	for i := 0; i < 5; i++ {
		p.OnAccess("hot")
	}
	p.OnInsert("filler", exp)

	// Force repeated eviction decisions where LRU picks hot (stale by
	// recency) but LFU picks filler, then punish the LRU choice with
	// misses on the evicted key.
	for i := 0; i < 64 && p.Active() == "lru"; i++ {
		victim := p.Victim()
		p.OnRemove(victim)
		p.OnMiss(victim)
		p.OnInsert(victim, exp)
		if victim == "filler" {
			// Keep hot stale under LRU while frequent under LFU.
			p.OnAccess("filler")
		}
	}

	if p.Switches() == 0 {
		t.Fatal("expected adaptive policy to switch at least once")
	}
	if p.Active() != "lfu" {
		t.Fatalf("Active() = %q after switch, want lfu", p.Active())
	}

	// With LFU active the roles are swapped; eviction must still work.
	if victim := p.Victim(); victim == "" {
		t.Error("no victim selected while LFU is active")
	}
}
