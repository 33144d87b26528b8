// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/maxwell/engine"
	"github.com/gogpu/maxwell/gmem"
	"github.com/gogpu/maxwell/host"
	"github.com/gogpu/maxwell/sched"
)

// Cache maps guest surface ranges to host images. Registered surfaces
// never overlap. Not safe for concurrent use; the render thread owns it.
type Cache struct {
	dev     host.Device
	mem     gmem.Memory
	tracker *gmem.PageTracker
	sched   sched.Submitter
	log     *slog.Logger

	surfaces map[uint64]*Surface // keyed by CPU address

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewCache creates a texture cache. A nil tracker gets a private one;
// embedding emulators share theirs to observe residency.
func NewCache(dev host.Device, mem gmem.Memory, tracker *gmem.PageTracker) *Cache {
	if tracker == nil {
		tracker = gmem.NewPageTracker()
	}
	return &Cache{
		dev:      dev,
		mem:      mem,
		tracker:  tracker,
		log:      slog.New(nopHandler{}),
		surfaces: make(map[uint64]*Surface),
	}
}

// SetScheduler attaches the batch scheduler. Surface flushes submit the
// open batch through it and wait the fence before reading host images
// back, so recorded-but-unsubmitted writes reach the flushed bytes.
// Without a scheduler, flushes read back whatever prior submissions
// produced.
func (c *Cache) SetScheduler(s sched.Submitter) {
	c.sched = s
}

// syncHost is the flush-to-guest sync point: the open batch is
// submitted and waited out before a host image is read back.
func (c *Cache) syncHost() error {
	if c.sched == nil {
		return nil
	}
	fence, err := c.sched.Flush()
	if err != nil {
		return err
	}
	return fence.Wait()
}

// SetLogger replaces the cache's logger. Pass nil to silence it.
func (c *Cache) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	c.log = l
}

// GetView returns a surface for the given shape at a guest GPU VA,
// resolving overlaps with already-registered surfaces.
func (c *Cache) GetView(gpuAddr uint64, params *SurfaceParams, preserveContents bool) (*Surface, error) {
	cpuAddr, ok := c.mem.TranslateAddress(gpuAddr)
	if !ok {
		return nil, fmt.Errorf("%w: surface at %#x", gmem.ErrUnmapped, gpuAddr)
	}
	size := params.GuestSizeInBytes()

	var overlaps []*Surface
	for _, s := range c.surfaces {
		if gmem.Overlaps(s, cpuAddr, size) {
			overlaps = append(overlaps, s)
		}
	}
	if len(overlaps) == 1 {
		s := overlaps[0]
		if s.cpuAddr == cpuAddr && s.params == *params {
			c.hits++
			return s, nil
		}
	}
	for _, s := range overlaps {
		if s.modified {
			if err := s.Flush(); err != nil {
				return nil, err
			}
		}
		c.log.Debug("texture: evicting overlapping surface", "old", s, "addr", cpuAddr, "size", size)
		c.unregister(s)
		c.evictions++
	}

	c.misses++
	s, err := newSurface(c.dev, c.mem, gpuAddr, cpuAddr, params)
	if err != nil {
		return nil, err
	}
	s.sync = c.syncHost
	if preserveContents {
		if err := s.load(); err != nil {
			s.destroy()
			return nil, err
		}
	}
	c.register(s)
	return s, nil
}

// GetRenderTarget returns the surface for color target index, or nil
// when the target is disabled or unbound.
func (c *Cache) GetRenderTarget(regs *engine.Regs, index int, preserveContents bool) (*Surface, error) {
	if index >= int(regs.RTCount) {
		return nil, nil
	}
	rt := &regs.RT[index]
	if rt.Address == 0 || rt.Format == engine.RenderTargetNone {
		return nil, nil
	}
	params, err := ParamsFromRenderTarget(rt)
	if err != nil {
		return nil, fmt.Errorf("render target %d: %w", index, err)
	}
	return c.GetView(rt.Address, &params, preserveContents)
}

// GetDepthBuffer returns the depth/stencil surface, or nil when depth
// is disabled or unbound.
func (c *Cache) GetDepthBuffer(regs *engine.Regs, preserveContents bool) (*Surface, error) {
	if !regs.ZetaEnable || regs.Zeta.Address == 0 {
		return nil, nil
	}
	params, err := ParamsFromZeta(regs)
	if err != nil {
		return nil, fmt.Errorf("depth buffer: %w", err)
	}
	return c.GetView(regs.Zeta.Address, &params, preserveContents)
}

// FindSurface returns the registered surface starting at the guest GPU
// VA, if any. Display handoff uses it to locate the framebuffer without
// forcing a creation.
func (c *Cache) FindSurface(gpuAddr uint64) (*Surface, bool) {
	cpuAddr, ok := c.mem.TranslateAddress(gpuAddr)
	if !ok {
		return nil, false
	}
	s, ok := c.surfaces[cpuAddr]
	return s, ok
}

// FlushRegion writes every modified surface intersecting the guest CPU
// range back to guest memory.
func (c *Cache) FlushRegion(addr, size uint64) error {
	for _, s := range c.surfaces {
		if s.modified && gmem.Overlaps(s, addr, size) {
			if err := s.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// InvalidateRegion drops every surface intersecting the guest CPU range
// without flushing; the guest rewrote the bytes, so host contents are
// stale. Returns how many surfaces were dropped.
func (c *Cache) InvalidateRegion(addr, size uint64) int {
	dropped := 0
	for _, s := range c.surfaces {
		if gmem.Overlaps(s, addr, size) {
			c.unregister(s)
			dropped++
		}
	}
	return dropped
}

func (c *Cache) register(s *Surface) {
	c.surfaces[s.cpuAddr] = s
	c.tracker.UpdatePagesCachedCount(s.cpuAddr, s.SizeInBytes(), 1)
}

func (c *Cache) unregister(s *Surface) {
	c.tracker.UpdatePagesCachedCount(s.cpuAddr, s.SizeInBytes(), -1)
	delete(c.surfaces, s.cpuAddr)
	s.destroy()
}

// Destroy drops every surface without flushing.
func (c *Cache) Destroy() {
	for _, s := range c.surfaces {
		c.unregister(s)
	}
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Surfaces  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

func (c *Cache) Stats() Stats {
	return Stats{
		Surfaces:  len(c.surfaces),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("surfaces=%d hits=%d misses=%d evictions=%d",
		s.Surfaces, s.Hits, s.Misses, s.Evictions)
}
