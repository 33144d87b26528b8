// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"sort"
	"sync"
)

// Cache is a soft-limited map. Growing past the limit evicts the
// least recently touched quarter in one batch, so steady-state churn
// does not evict on every insert.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	limit int
	tick  uint64
	items map[K]*item[V]
}

type item[V any] struct {
	value V
	tick  uint64 // last access
}

// New creates a cache holding at most limit entries before eviction
// kicks in. A limit of 0 means unbounded.
func New[K comparable, V any](limit int) *Cache[K, V] {
	return &Cache[K, V]{
		limit: limit,
		items: make(map[K]*item[V]),
	}
}

// Get returns the cached value and refreshes its age.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.tick++
	it.tick = c.tick
	return it.value, true
}

// Set stores a value, evicting a batch of the oldest entries when the
// cache outgrows its limit.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	c.items[key] = &item[V]{value: value, tick: c.tick}
	if c.limit > 0 && len(c.items) > c.limit {
		c.evict()
	}
}

// Delete removes an entry, reporting whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return false
	}
	delete(c.items, key)
	return true
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*item[V])
	c.tick = 0
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Limit returns the configured soft limit.
func (c *Cache[K, V]) Limit() int { return c.limit }

// evict shrinks the cache to three quarters of the limit, oldest
// first. Caller holds c.mu.
func (c *Cache[K, V]) evict() {
	target := c.limit * 3 / 4
	if target < 1 {
		target = 1
	}
	excess := len(c.items) - target
	if excess <= 0 {
		return
	}
	type aged struct {
		key  K
		tick uint64
	}
	all := make([]aged, 0, len(c.items))
	for key, it := range c.items {
		all = append(all, aged{key: key, tick: it.tick})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].tick < all[j].tick })
	for _, a := range all[:excess] {
		delete(c.items, a.key)
	}
}
