// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"sync"
	"sync/atomic"
)

// shardCount is a power of two so shard selection is a mask.
const shardCount = 16

// DefaultShardCapacity bounds a shard when NewSharded gets no capacity.
const DefaultShardCapacity = 256

// Hasher maps a key to the hash that selects its shard.
type Hasher[K any] func(K) uint64

// Uint64Hasher is the identity hash, for keys that are already hashes.
func Uint64Hasher(u uint64) uint64 { return u }

// ShardedCache is an LRU cache split over 16 shards, each with its own
// lock and eviction list. Suited to hot lookup paths shared between
// threads, like the shader translation memo.
type ShardedCache[K comparable, V any] struct {
	shards   [shardCount]shard[K, V]
	hasher   Hasher[K]
	capacity int // per shard

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*node[K, V]
	// Intrusive LRU list over the entries; head is most recent.
	head *node[K, V]
	tail *node[K, V]
}

type node[K comparable, V any] struct {
	key   K
	value V
	prev  *node[K, V]
	next  *node[K, V]
}

// NewSharded creates a sharded cache holding at most capacity entries
// per shard. Capacity 0 or less selects DefaultShardCapacity.
func NewSharded[K comparable, V any](capacity int, hasher Hasher[K]) *ShardedCache[K, V] {
	if capacity <= 0 {
		capacity = DefaultShardCapacity
	}
	c := &ShardedCache[K, V]{hasher: hasher, capacity: capacity}
	for i := range c.shards {
		c.shards[i].entries = make(map[K]*node[K, V])
	}
	return c
}

func (c *ShardedCache[K, V]) shardFor(key K) *shard[K, V] {
	return &c.shards[c.hasher(key)&(shardCount-1)]
}

// Get returns the cached value and marks it most recently used.
func (c *ShardedCache[K, V]) Get(key K) (V, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	n, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.moveToFront(n)
	value := n.value
	s.mu.Unlock()
	c.hits.Add(1)
	return value, true
}

// Set stores a value, evicting the shard's least recently used entries
// to stay within capacity.
func (c *ShardedCache[K, V]) Set(key K, value V) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.entries[key]; ok {
		n.value = value
		s.moveToFront(n)
		return
	}
	for len(s.entries) >= c.capacity {
		oldest := s.tail
		if oldest == nil {
			break
		}
		s.unlink(oldest)
		delete(s.entries, oldest.key)
		c.evictions.Add(1)
	}
	n := &node[K, V]{key: key, value: value}
	s.pushFront(n)
	s.entries[key] = n
}

// Delete removes an entry, reporting whether it was present.
func (c *ShardedCache[K, V]) Delete(key K) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.entries[key]
	if !ok {
		return false
	}
	s.unlink(n)
	delete(s.entries, key)
	return true
}

// Clear drops every entry in every shard.
func (c *ShardedCache[K, V]) Clear() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		s.entries = make(map[K]*node[K, V])
		s.head = nil
		s.tail = nil
		s.mu.Unlock()
	}
}

// Len returns the number of entries across all shards.
func (c *ShardedCache[K, V]) Len() int {
	total := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

func (c *ShardedCache[K, V]) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (s *shard[K, V]) pushFront(n *node[K, V]) {
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

func (s *shard[K, V]) moveToFront(n *node[K, V]) {
	if n == s.head {
		return
	}
	s.unlink(n)
	s.pushFront(n)
}

func (s *shard[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		s.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}
