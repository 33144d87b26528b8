// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sched

import (
	"errors"
	"fmt"
)

// DefaultPoolBatch is how many entries each slab of a FencedPool holds.
// Descriptor set pools use this granularity.
const DefaultPoolBatch = 0x400

// ErrPoolAllocate reports a slab allocation failure.
var ErrPoolAllocate = errors.New("sched: fenced pool allocation failed")

// Allocator allocates one slab of count entries for a FencedPool.
type Allocator[T any] func(count int) ([]T, error)

// FencedPool is a grow-only arena of fence-protected entries, organized
// as fixed-size slabs. Commit leases the entry at a flat index i, living
// in slab i/batch at position i%batch, and tags it with the fence of the
// batch that references it; the entry is not handed out again until that
// fence completes. When every entry is in flight a new slab is allocated.
type FencedPool[T any] struct {
	batch    int
	allocate Allocator[T]

	slabs  [][]T
	fences []*Fence // flat, parallel to slab entries
	cursor int
}

// NewFencedPool creates a pool with the given slab granularity. A batch
// of zero or less selects DefaultPoolBatch.
func NewFencedPool[T any](batch int, allocate Allocator[T]) *FencedPool[T] {
	if batch <= 0 {
		batch = DefaultPoolBatch
	}
	return &FencedPool[T]{batch: batch, allocate: allocate}
}

// Commit returns a free entry and ties it to fence. The search starts at
// the cursor left by the previous commit so the scan is amortized linear.
func (p *FencedPool[T]) Commit(fence *Fence) (T, error) {
	total := len(p.fences)
	for probe := 0; probe < total; probe++ {
		i := (p.cursor + probe) % total
		if p.fences[i] == nil || p.fences[i].Signaled() {
			p.fences[i] = fence
			p.cursor = i + 1
			return p.slabs[i/p.batch][i%p.batch], nil
		}
	}

	// Every entry is in flight; lease a fresh slab.
	i, err := p.grow()
	if err != nil {
		var zero T
		return zero, err
	}
	p.fences[i] = fence
	p.cursor = i + 1
	return p.slabs[i/p.batch][i%p.batch], nil
}

func (p *FencedPool[T]) grow() (int, error) {
	slab, err := p.allocate(p.batch)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPoolAllocate, err)
	}
	if len(slab) != p.batch {
		return 0, fmt.Errorf("%w: allocator returned %d entries, want %d",
			ErrPoolAllocate, len(slab), p.batch)
	}
	first := len(p.fences)
	p.slabs = append(p.slabs, slab)
	p.fences = append(p.fences, make([]*Fence, p.batch)...)
	return first, nil
}

// Size returns the total number of entries across all slabs.
func (p *FencedPool[T]) Size() int { return len(p.fences) }

// Slabs returns the number of allocated slabs.
func (p *FencedPool[T]) Slabs() int { return len(p.slabs) }
