// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"container/heap"
	"sync"
	"time"
)

// ttlItem is a heap entry ordered by expiry.
type ttlItem struct {
	key       string
	expiresAt time.Time
	index     int
}

// ttlHeap is a min-heap on expiry time.
type ttlHeap []*ttlItem

func (h ttlHeap) Len() int { return len(h) }

func (h ttlHeap) Less(i, j int) bool {
	if !h[i].expiresAt.Equal(h[j].expiresAt) {
		return h[i].expiresAt.Before(h[j].expiresAt)
	}
	return h[i].key < h[j].key
}

func (h ttlHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *ttlHeap) Push(x any) {
	item := x.(*ttlItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *ttlHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// TTLPolicy evicts the entry closest to expiry. Insert and remove are
// O(log n), victim selection O(1). Access order does not matter to this
// policy.
type TTLPolicy struct {
	mu    sync.Mutex
	items map[string]*ttlItem
	heap  ttlHeap
}

// NewTTLPolicy creates a strict TTL-expiry eviction policy.
func NewTTLPolicy() *TTLPolicy {
	return &TTLPolicy{items: make(map[string]*ttlItem)}
}

// Name implements Policy.
func (p *TTLPolicy) Name() string { return "ttl" }

// OnInsert implements Policy.
func (p *TTLPolicy) OnInsert(key string, expiresAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if item, ok := p.items[key]; ok {
		item.expiresAt = expiresAt
		heap.Fix(&p.heap, item.index)
		return
	}

	item := &ttlItem{key: key, expiresAt: expiresAt}
	p.items[key] = item
	heap.Push(&p.heap, item)
}

// OnAccess implements Policy.
func (p *TTLPolicy) OnAccess(string) {}

// OnMiss implements Policy.
func (p *TTLPolicy) OnMiss(string) {}

// OnRemove implements Policy.
func (p *TTLPolicy) OnRemove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if item, ok := p.items[key]; ok {
		heap.Remove(&p.heap, item.index)
		delete(p.items, key)
	}
}

// Victim implements Policy.
func (p *TTLPolicy) Victim() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.heap) == 0 {
		return ""
	}
	return p.heap[0].key
}
