// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gmem

// TrackerPageBits is the granularity of cache-residency accounting.
// Finer than the MMU page so small surfaces do not pin whole 64 KiB pages.
const TrackerPageBits = 12

// PageTracker counts, per tracker page, how many cached host resources
// shadow that guest range. The emulator core consults the counts to decide
// whether a CPU write to guest memory must invalidate GPU caches.
type PageTracker struct {
	counts map[uint64]int
}

// NewPageTracker creates an empty tracker.
func NewPageTracker() *PageTracker {
	return &PageTracker{counts: make(map[uint64]int)}
}

// UpdatePagesCachedCount applies delta to every tracker page intersecting
// [addr, addr+size). Registering a resource passes +1, unregistering -1.
func (t *PageTracker) UpdatePagesCachedCount(addr, size uint64, delta int) {
	first := addr >> TrackerPageBits
	last := (addr + size - 1) >> TrackerPageBits
	for page := first; page <= last; page++ {
		n := t.counts[page] + delta
		if n <= 0 {
			delete(t.counts, page)
			continue
		}
		t.counts[page] = n
	}
}

// IsCached reports whether any page of [addr, addr+size) is shadowed by at
// least one cached resource.
func (t *PageTracker) IsCached(addr, size uint64) bool {
	if size == 0 {
		return false
	}
	first := addr >> TrackerPageBits
	last := (addr + size - 1) >> TrackerPageBits
	for page := first; page <= last; page++ {
		if t.counts[page] > 0 {
			return true
		}
	}
	return false
}

// CachedPages returns the number of pages with a non-zero count.
func (t *PageTracker) CachedPages() int { return len(t.counts) }
