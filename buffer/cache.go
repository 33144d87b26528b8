// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package buffer

import (
	"fmt"

	"github.com/gogpu/maxwell/cache"
	"github.com/gogpu/maxwell/gmem"
	"github.com/gogpu/maxwell/host"
)

// MinCacheSize is the amortization threshold: only uploads at least this
// large are remembered for reuse. Smaller copies are cheaper than the
// bookkeeping.
const MinCacheSize = 2048

// DefaultCacheEntries is the soft limit of remembered uploads. Eviction
// only costs a recopy, so the limit is a memory bound, not a
// correctness one.
const DefaultCacheEntries = 4096

// cacheEntry is one remembered upload in the current stream generation.
type cacheEntry struct {
	offset    uint64
	size      uint64
	alignment uint64
}

// Cache copies guest memory ranges into the stream buffer, remembering
// offsets of large uploads keyed by guest CPU address. A stream
// wraparound drops every remembered offset. Not safe for concurrent
// use; the render thread owns it.
type Cache struct {
	mem    gmem.Memory
	stream *StreamBuffer

	entries *cache.Cache[uint64, cacheEntry]

	hits   uint64
	misses uint64
}

// NewCache creates a buffer cache over a fresh stream buffer of the
// given size (zero selects the default).
func NewCache(dev host.Device, mem gmem.Memory, streamSize uint64) (*Cache, error) {
	stream, err := NewStreamBuffer(dev, streamSize)
	if err != nil {
		return nil, err
	}
	return &Cache{
		mem:     mem,
		stream:  stream,
		entries: cache.New[uint64, cacheEntry](DefaultCacheEntries),
	}, nil
}

// Buffer returns the host buffer every returned offset refers to.
func (c *Cache) Buffer() host.BufferID { return c.stream.Buffer() }

// UploadMemory copies size bytes of guest memory at a GPU VA into the
// stream and returns the offset. Cacheable uploads at or above
// MinCacheSize are served from a previous identical upload when the
// remembered entry still satisfies size and alignment.
func (c *Cache) UploadMemory(gpuAddr, size, alignment uint64, cacheable bool) (uint64, error) {
	cpuAddr, ok := c.mem.TranslateAddress(gpuAddr)
	if !ok {
		return 0, fmt.Errorf("%w: buffer at %#x", gmem.ErrUnmapped, gpuAddr)
	}
	cacheable = cacheable && size >= MinCacheSize
	if cacheable {
		if e, ok := c.entries.Get(cpuAddr); ok {
			if e.size >= size && e.alignment == alignment {
				c.hits++
				return e.offset, nil
			}
			// Stale shape; recopy below.
			c.entries.Delete(cpuAddr)
		}
	}
	c.misses++

	offset, err := c.reserve(size, alignment)
	if err != nil {
		return 0, err
	}
	if err := c.mem.ReadBlock(cpuAddr, c.stream.Bytes()[:size]); err != nil {
		return 0, err
	}
	if err := c.stream.Send(size); err != nil {
		return 0, err
	}
	if cacheable {
		c.entries.Set(cpuAddr, cacheEntry{offset: offset, size: size, alignment: alignment})
	}
	return offset, nil
}

// UploadHostMemory copies host-side bytes into the stream.
func (c *Cache) UploadHostMemory(data []byte, alignment uint64) (uint64, error) {
	offset, err := c.reserve(uint64(len(data)), alignment)
	if err != nil {
		return 0, err
	}
	copy(c.stream.Bytes(), data)
	if err := c.stream.Send(uint64(len(data))); err != nil {
		return 0, err
	}
	return offset, nil
}

// ReserveMemory allocates a stream range without defining its contents,
// for data the GPU writes (copy destinations, scratch).
func (c *Cache) ReserveMemory(size, alignment uint64) (uint64, error) {
	offset, err := c.reserve(size, alignment)
	if err != nil {
		return 0, err
	}
	if err := c.stream.Send(size); err != nil {
		return 0, err
	}
	return offset, nil
}

func (c *Cache) reserve(size, alignment uint64) (uint64, error) {
	c.stream.Align(alignment)
	offset, invalidated, err := c.stream.Reserve(size)
	if err != nil {
		return 0, err
	}
	if invalidated {
		c.entries.Clear()
	}
	return offset, nil
}

// InvalidateAll drops every remembered upload. Called on stream
// wraparound and by guest-write invalidation; the cost is a recopy on
// the next draw, never incorrectness.
func (c *Cache) InvalidateAll() {
	c.entries.Clear()
}

// InvalidateRegion handles a guest rewrite of [addr, addr+size).
// Entries are keyed by exact start address only, so the whole mapping
// is dropped rather than scanning for overlaps; see InvalidateAll.
func (c *Cache) InvalidateRegion(addr, size uint64) {
	c.entries.Clear()
}

// Destroy releases the stream buffer.
func (c *Cache) Destroy() {
	c.stream.Destroy()
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Entries    int
	Hits       uint64
	Misses     uint64
	StreamSize uint64
}

func (c *Cache) Stats() Stats {
	return Stats{
		Entries:    c.entries.Len(),
		Hits:       c.hits,
		Misses:     c.misses,
		StreamSize: c.stream.Size(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("entries=%d hits=%d misses=%d stream=%d",
		s.Entries, s.Hits, s.Misses, s.StreamSize)
}
