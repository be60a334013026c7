// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"sync"
	"time"
)

// lfuNode is an entry in a frequency bucket list.
type lfuNode struct {
	key  string
	freq int
	prev *lfuNode
	next *lfuNode
}

// lfuBucket is a doubly-linked list of nodes sharing one access frequency,
// most recently used at the front.
type lfuBucket struct {
	head *lfuNode
	tail *lfuNode
	size int
}

func newLFUBucket() *lfuBucket {
	b := &lfuBucket{head: &lfuNode{}, tail: &lfuNode{}}
	b.head.next = b.tail
	b.tail.prev = b.head
	return b
}

func (b *lfuBucket) pushFront(n *lfuNode) {
	n.prev = b.head
	n.next = b.head.next
	b.head.next.prev = n
	b.head.next = n
	b.size++
}

func (b *lfuBucket) remove(n *lfuNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
	b.size--
}

// last returns the least recently used node in the bucket, or nil.
func (b *lfuBucket) last() *lfuNode {
	if b.size == 0 {
		return nil
	}
	return b.tail.prev
}

// LFUPolicy evicts the least frequently used key, breaking frequency ties by
// least recent use. O(1) for every operation: a key index plus frequency
// buckets with a tracked minimum frequency.
type LFUPolicy struct {
	mu      sync.Mutex
	nodes   map[string]*lfuNode
	buckets map[int]*lfuBucket
	minFreq int
}

// NewLFUPolicy creates an LFU eviction policy.
func NewLFUPolicy() *LFUPolicy {
	return &LFUPolicy{
		nodes:   make(map[string]*lfuNode),
		buckets: make(map[int]*lfuBucket),
	}
}

// Name implements Policy.
func (p *LFUPolicy) Name() string { return "lfu" }

// OnInsert implements Policy.
func (p *LFUPolicy) OnInsert(key string, _ time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n, ok := p.nodes[key]; ok {
		p.bump(n)
		return
	}

	n := &lfuNode{key: key, freq: 1}
	p.nodes[key] = n
	p.bucket(1).pushFront(n)
	p.minFreq = 1
}

// OnAccess implements Policy.
func (p *LFUPolicy) OnAccess(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n, ok := p.nodes[key]; ok {
		p.bump(n)
	}
}

// OnMiss implements Policy.
func (p *LFUPolicy) OnMiss(string) {}

// OnRemove implements Policy.
func (p *LFUPolicy) OnRemove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.nodes[key]
	if !ok {
		return
	}

	b := p.buckets[n.freq]
	b.remove(n)
	delete(p.nodes, key)

	if b.size == 0 {
		delete(p.buckets, n.freq)
		if p.minFreq == n.freq {
			p.recomputeMinFreq()
		}
	}
}

// Victim implements Policy.
func (p *LFUPolicy) Victim() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[p.minFreq]
	if !ok {
		return ""
	}
	n := b.last()
	if n == nil {
		return ""
	}
	return n.key
}

// bump moves a node to the next frequency bucket. Lock must be held.
func (p *LFUPolicy) bump(n *lfuNode) {
	old := p.buckets[n.freq]
	old.remove(n)
	if old.size == 0 {
		delete(p.buckets, n.freq)
		if p.minFreq == n.freq {
			p.minFreq++
		}
	}

	n.freq++
	p.bucket(n.freq).pushFront(n)
}

// bucket returns the list for a frequency, creating it if needed. Lock must
// be held.
func (p *LFUPolicy) bucket(freq int) *lfuBucket {
	b, ok := p.buckets[freq]
	if !ok {
		b = newLFUBucket()
		p.buckets[freq] = b
	}
	return b
}

// recomputeMinFreq rescans bucket frequencies after the minimum emptied.
// Rare: only runs on removal of the last minimum-frequency node. Lock must
// be held.
func (p *LFUPolicy) recomputeMinFreq() {
	if len(p.buckets) == 0 {
		p.minFreq = 0
		return
	}

	min := -1
	for f := range p.buckets {
		if min == -1 || f < min {
			min = f
		}
	}
	p.minFreq = min
}
