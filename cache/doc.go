// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides the generic bounded maps behind the GPU
// caches: Cache, a soft-limited map with batched oldest-first eviction,
// and ShardedCache, a sharded LRU for keys produced by hashing.
//
// The buffer cache memoizes guest upload offsets in a Cache; the
// pipeline cache memoizes shader translation results in a ShardedCache
// keyed by code content hash. Both types are safe for concurrent use
// and must not be copied after creation.
package cache
