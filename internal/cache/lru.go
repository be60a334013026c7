// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"sync"
	"time"
)

// lruNode is a node in the recency list.
type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

// LRUPolicy evicts the least recently used key. O(1) for every operation,
// using a doubly-linked list with sentinel nodes and a key index.
type LRUPolicy struct {
	mu    sync.Mutex
	nodes map[string]*lruNode

	// head.next is most recently used, tail.prev least recently used.
	head *lruNode
	tail *lruNode
}

// NewLRUPolicy creates an LRU eviction policy.
func NewLRUPolicy() *LRUPolicy {
	p := &LRUPolicy{
		nodes: make(map[string]*lruNode),
		head:  &lruNode{},
		tail:  &lruNode{},
	}
	p.head.next = p.tail
	p.tail.prev = p.head
	return p
}

// Name implements Policy.
func (p *LRUPolicy) Name() string { return "lru" }

// OnInsert implements Policy.
func (p *LRUPolicy) OnInsert(key string, _ time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n, ok := p.nodes[key]; ok {
		p.unlink(n)
		p.pushFront(n)
		return
	}

	n := &lruNode{key: key}
	p.nodes[key] = n
	p.pushFront(n)
}

// OnAccess implements Policy.
func (p *LRUPolicy) OnAccess(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n, ok := p.nodes[key]; ok {
		p.unlink(n)
		p.pushFront(n)
	}
}

// OnMiss implements Policy.
func (p *LRUPolicy) OnMiss(string) {}

// OnRemove implements Policy.
func (p *LRUPolicy) OnRemove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n, ok := p.nodes[key]; ok {
		p.unlink(n)
		delete(p.nodes, key)
	}
}

// Victim implements Policy.
func (p *LRUPolicy) Victim() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	oldest := p.tail.prev
	if oldest == p.head {
		return ""
	}
	return oldest.key
}

// pushFront inserts n right after head. Lock must be held.
func (p *LRUPolicy) pushFront(n *lruNode) {
	n.prev = p.head
	n.next = p.head.next
	p.head.next.prev = n
	p.head.next = n
}

// unlink removes n from the list. Lock must be held.
func (p *LRUPolicy) unlink(n *lruNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
}
