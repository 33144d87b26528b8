// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package buffer

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/maxwell/gmem"
	"github.com/gogpu/maxwell/host"
	"github.com/gogpu/maxwell/sched"
)

// GlobalRegion is a guest-addressed global memory range (storage
// buffers and the like) held in a dedicated host buffer. It implements
// gmem.Region alongside texture surfaces.
type GlobalRegion struct {
	dev host.Device
	mem gmem.Memory

	cpuAddr uint64
	size    uint64
	buffer  host.BufferID

	watch    sched.FenceWatch
	modified bool

	// sync submits the open batch so a watched fence can be waited;
	// set by the owning cache.
	sync func() error
}

// CpuAddr returns the first guest CPU address the region shadows.
func (r *GlobalRegion) CpuAddr() uint64 { return r.cpuAddr }

// SizeInBytes returns the length of the shadowed range.
func (r *GlobalRegion) SizeInBytes() uint64 { return r.size }

// Buffer returns the host buffer backing the region.
func (r *GlobalRegion) Buffer() host.BufferID { return r.buffer }

// MarkModified records a GPU write tagged with the batch fence. The
// region is neither flushed nor reused until that batch completes.
func (r *GlobalRegion) MarkModified(fence *sched.Fence) error {
	r.modified = true
	return r.watch.Watch(fence)
}

// releaseWatch waits out the batch watching the region. A fence still
// being recorded is submitted first, so the wait cannot see an
// unsubmitted batch.
func (r *GlobalRegion) releaseWatch() error {
	if r.watch.Pending() && r.sync != nil {
		if err := r.sync(); err != nil {
			return err
		}
	}
	return r.watch.Release()
}

// Flush waits out any in-flight batch, reads the host buffer back and
// writes it to guest memory.
func (r *GlobalRegion) Flush() error {
	if err := r.releaseWatch(); err != nil {
		return err
	}
	data := make([]byte, r.size)
	if err := r.dev.ReadBuffer(r.buffer, 0, data); err != nil {
		return err
	}
	if err := r.mem.WriteBlock(r.cpuAddr, data); err != nil {
		return err
	}
	r.modified = false
	return nil
}

// upload refreshes the host buffer from guest memory.
func (r *GlobalRegion) upload() error {
	data := make([]byte, r.size)
	if err := r.mem.ReadBlock(r.cpuAddr, data); err != nil {
		return err
	}
	return r.dev.WriteBuffer(r.buffer, 0, data)
}

func (r *GlobalRegion) destroy() {
	r.dev.DestroyBuffer(r.buffer)
}

type regionKey struct {
	addr uint64
	size uint64
}

// GlobalRegionCache reuses GlobalRegions per (address, size). Not safe
// for concurrent use.
type GlobalRegionCache struct {
	dev     host.Device
	mem     gmem.Memory
	sched   sched.Submitter
	regions map[regionKey]*GlobalRegion
}

// NewGlobalRegionCache creates an empty region cache.
func NewGlobalRegionCache(dev host.Device, mem gmem.Memory) *GlobalRegionCache {
	return &GlobalRegionCache{
		dev:     dev,
		mem:     mem,
		regions: make(map[regionKey]*GlobalRegion),
	}
}

// SetScheduler attaches the batch scheduler. Flushing or reusing a
// region watched by the batch still being recorded submits that batch
// first; waiting an unsubmitted fence is an error.
func (c *GlobalRegionCache) SetScheduler(s sched.Submitter) {
	c.sched = s
}

// submitOpen pushes out the open batch. The caller waits the watched
// fence itself.
func (c *GlobalRegionCache) submitOpen() error {
	if c.sched == nil {
		return nil
	}
	_, err := c.sched.Flush()
	return err
}

// GetRegion returns the region for a guest range, refreshed from guest
// memory. A reused region first waits out the batch watching it.
func (c *GlobalRegionCache) GetRegion(gpuAddr, size uint64) (*GlobalRegion, error) {
	cpuAddr, ok := c.mem.TranslateAddress(gpuAddr)
	if !ok {
		return nil, fmt.Errorf("%w: global region at %#x", gmem.ErrUnmapped, gpuAddr)
	}
	key := regionKey{addr: cpuAddr, size: size}
	if r, ok := c.regions[key]; ok {
		if err := r.releaseWatch(); err != nil {
			return nil, err
		}
		if err := r.upload(); err != nil {
			return nil, err
		}
		return r, nil
	}

	buffer, err := c.dev.CreateBuffer(&host.BufferDescriptor{
		Label: fmt.Sprintf("global_%x", gpuAddr),
		Size:  size,
		Usage: gputypes.BufferUsageStorage |
			gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	r := &GlobalRegion{
		dev:     c.dev,
		mem:     c.mem,
		cpuAddr: cpuAddr,
		size:    size,
		buffer:  buffer,
		sync:    c.submitOpen,
	}
	if err := r.upload(); err != nil {
		r.destroy()
		return nil, err
	}
	c.regions[key] = r
	return r, nil
}

// FlushRegion writes every modified region intersecting the guest CPU
// range back to guest memory.
func (c *GlobalRegionCache) FlushRegion(addr, size uint64) error {
	for _, r := range c.regions {
		if r.modified && gmem.Overlaps(r, addr, size) {
			if err := r.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// InvalidateRegion drops every region intersecting the guest CPU range
// without flushing. Returns how many regions were dropped.
func (c *GlobalRegionCache) InvalidateRegion(addr, size uint64) int {
	dropped := 0
	for key, r := range c.regions {
		if gmem.Overlaps(r, addr, size) {
			_ = r.watch.Release()
			r.destroy()
			delete(c.regions, key)
			dropped++
		}
	}
	return dropped
}

// Destroy drops every region without flushing.
func (c *GlobalRegionCache) Destroy() {
	for key, r := range c.regions {
		_ = r.watch.Release()
		r.destroy()
		delete(c.regions, key)
	}
}

// Len returns the number of cached regions.
func (c *GlobalRegionCache) Len() int { return len(c.regions) }
