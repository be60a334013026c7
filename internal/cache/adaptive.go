// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"sync"
	"time"
)

// defaultAdaptiveWindow is used when the configured window is not positive.
const defaultAdaptiveWindow = 64

// experiment records one eviction where the active and shadow policies
// disagreed on the victim. A later lookup for the evicted key is a miss the
// shadow would have avoided; a lookup for the key the shadow would have
// evicted is a hit the shadow would have missed.
type experiment struct {
	evicted    string // chosen by the active policy, no longer resident
	shadowPick string // what the shadow would have evicted instead
	activeHits bool
	shadowMiss bool
}

// AdaptivePolicy runs LRU and LFU side by side, evicting with whichever is
// currently active, and switches when the shadow policy would have produced
// a higher hit rate over a sliding window of recent evictions. The
// comparison uses shadow counters on recorded eviction disagreements, never
// a replay of history.
type AdaptivePolicy struct {
	mu sync.Mutex

	lru *LRUPolicy
	lfu *LFUPolicy

	// activeIsLRU selects which of the two currently performs evictions.
	activeIsLRU bool

	window       int
	switchMargin float64

	// experiments is a ring of the last `window` eviction disagreements.
	experiments []experiment

	// scores over the current window: activeWins counts lookups proving the
	// active choice right, shadowWins lookups proving the shadow right.
	activeWins int
	shadowWins int

	switches int64
}

// NewAdaptivePolicy creates an adaptive LRU/LFU policy. window is the number
// of eviction experiments scored; switchMargin is the hit-rate lead in [0,1]
// the shadow must hold before the policy switches. LRU starts active.
func NewAdaptivePolicy(window int, switchMargin float64) *AdaptivePolicy {
	if window <= 0 {
		window = defaultAdaptiveWindow
	}
	return &AdaptivePolicy{
		lru:          NewLRUPolicy(),
		lfu:          NewLFUPolicy(),
		activeIsLRU:  true,
		window:       window,
		switchMargin: switchMargin,
	}
}

// Name implements Policy.
func (p *AdaptivePolicy) Name() string { return "adaptive" }

// Active returns the name of the currently active inner policy.
func (p *AdaptivePolicy) Active() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.activeIsLRU {
		return "lru"
	}
	return "lfu"
}

// Switches returns how many times the policy has flipped.
func (p *AdaptivePolicy) Switches() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.switches
}

// OnInsert implements Policy. Both inner policies see every event so either
// can take over without a warm-up gap.
func (p *AdaptivePolicy) OnInsert(key string, expiresAt time.Time) {
	p.lru.OnInsert(key, expiresAt)
	p.lfu.OnInsert(key, expiresAt)
}

// OnAccess implements Policy.
func (p *AdaptivePolicy) OnAccess(key string) {
	p.lru.OnAccess(key)
	p.lfu.OnAccess(key)
	p.score(key, true)
}

// OnMiss implements Policy. A miss on a key the active policy evicted is
// evidence for the shadow.
func (p *AdaptivePolicy) OnMiss(key string) {
	p.score(key, false)
}

// OnRemove implements Policy.
func (p *AdaptivePolicy) OnRemove(key string) {
	p.lru.OnRemove(key)
	p.lfu.OnRemove(key)
}

// Victim implements Policy. The active policy picks; when the shadow
// disagrees, the disagreement is recorded as an experiment and the window is
// re-evaluated.
func (p *AdaptivePolicy) Victim() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var active, shadow Policy = p.lru, p.lfu
	if !p.activeIsLRU {
		active, shadow = p.lfu, p.lru
	}

	victim := active.Victim()
	if victim == "" {
		return ""
	}

	if shadowPick := shadow.Victim(); shadowPick != "" && shadowPick != victim {
		p.record(experiment{evicted: victim, shadowPick: shadowPick})
		p.maybeSwitch()
	}

	return victim
}

// score attributes a lookup to any pending experiment. hit reports whether
// the key was resident. Caller must not hold p.mu.
func (p *AdaptivePolicy) score(key string, hit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.experiments {
		e := &p.experiments[i]
		if !hit && key == e.evicted && !e.shadowMiss {
			// Miss caused by the active eviction; shadow kept this key.
			e.shadowMiss = true
			p.shadowWins++
		}
		if hit && key == e.shadowPick && !e.activeHits {
			// Hit on a key the shadow would have evicted.
			e.activeHits = true
			p.activeWins++
		}
	}
}

// record appends an experiment, retiring the oldest past the window. Lock
// must be held.
func (p *AdaptivePolicy) record(e experiment) {
	p.experiments = append(p.experiments, e)
	if len(p.experiments) > p.window {
		old := p.experiments[0]
		p.experiments = p.experiments[1:]
		if old.shadowMiss {
			p.shadowWins--
		}
		if old.activeHits {
			p.activeWins--
		}
	}
}

// maybeSwitch flips the active policy when the shadow's win rate leads by
// more than the configured margin over the window. Lock must be held.
func (p *AdaptivePolicy) maybeSwitch() {
	total := p.activeWins + p.shadowWins
	if total == 0 {
		return
	}

	shadowRate := float64(p.shadowWins) / float64(total)
	activeRate := float64(p.activeWins) / float64(total)

	if shadowRate-activeRate > p.switchMargin {
		p.activeIsLRU = !p.activeIsLRU
		p.switches++
		p.experiments = p.experiments[:0]
		p.activeWins = 0
		p.shadowWins = 0
	}
}
