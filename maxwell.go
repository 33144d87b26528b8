// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package maxwell

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/maxwell/backend"
	"github.com/gogpu/maxwell/buffer"
	"github.com/gogpu/maxwell/engine"
	"github.com/gogpu/maxwell/gmem"
	"github.com/gogpu/maxwell/host"
	"github.com/gogpu/maxwell/pipeline"
	"github.com/gogpu/maxwell/sched"
	"github.com/gogpu/maxwell/texture"
)

// GPU is the translation core: the guest register file, the caches over
// guest memory and the scheduler owning the open host batch. One GPU
// serves one guest GPU channel; all methods are called from the single
// emulation thread.
type GPU struct {
	dev      host.Device
	ownsDev  bool
	backend  string
	log      *slog.Logger
	mem      *gmem.Manager
	tracker  *gmem.PageTracker
	regs     engine.Regs
	sched    *sched.Scheduler
	shaders  *pipeline.Cache
	textures *texture.Cache
	buffers  *buffer.Cache
	globals  *buffer.GlobalRegionCache

	// pass is the identity of the open render pass bracket, if any.
	pass    passKey
	hasPass bool

	draws  uint64
	clears uint64
}

// New creates a GPU over a guest memory backing. Without options the
// best registered backend is opened and default sizes apply.
func New(backing gmem.Backing, opts ...Option) (*GPU, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dev := o.device
	ownsDev := false
	name := "injected"
	if dev == nil {
		var b backend.Backend
		if o.backendName != "" {
			b = backend.Get(o.backendName)
			if b == nil {
				return nil, fmt.Errorf("%w: %q", ErrNoBackend, o.backendName)
			}
		} else if b = backend.Default(); b == nil {
			return nil, ErrNoBackend
		}
		opened, err := b.Open()
		if err != nil {
			return nil, fmt.Errorf("maxwell: open %s backend: %w", b.Name(), err)
		}
		dev = opened
		ownsDev = true
		name = b.Name()
	}

	log := Logger()
	mem := gmem.NewManager(backing)
	tracker := o.tracker
	if tracker == nil {
		tracker = gmem.NewPageTracker()
	}

	scheduler, err := sched.New(dev)
	if err != nil {
		if ownsDev {
			dev.Destroy()
		}
		return nil, err
	}
	buffers, err := buffer.NewCache(dev, mem, o.streamSize)
	if err != nil {
		scheduler.Destroy()
		if ownsDev {
			dev.Destroy()
		}
		return nil, err
	}

	g := &GPU{
		dev:      dev,
		ownsDev:  ownsDev,
		backend:  name,
		log:      log,
		mem:      mem,
		tracker:  tracker,
		sched:    scheduler,
		shaders:  pipeline.NewCache(dev, mem),
		textures: texture.NewCache(dev, mem, tracker),
		buffers:  buffers,
		globals:  buffer.NewGlobalRegionCache(dev, mem),
	}
	g.regs.Reset()
	g.textures.SetScheduler(scheduler)
	g.globals.SetScheduler(scheduler)
	propagateLogger(g.textures, log)
	log.Info("maxwell: gpu created", "backend", name)
	return g, nil
}

// Regs exposes the guest register file for the frontend to poke.
func (g *GPU) Regs() *engine.Regs { return &g.regs }

// Memory returns the guest memory manager (GPU VA mapping and access).
func (g *GPU) Memory() *gmem.Manager { return g.mem }

// Device returns the host device.
func (g *GPU) Device() host.Device { return g.dev }

// Backend returns the name of the opened backend.
func (g *GPU) Backend() string { return g.backend }

// Scheduler returns the batch scheduler.
func (g *GPU) Scheduler() *sched.Scheduler { return g.sched }

// Textures returns the surface cache; display handoff resolves
// framebuffer surfaces through it.
func (g *GPU) Textures() *texture.Cache { return g.textures }

// Buffers returns the buffer cache.
func (g *GPU) Buffers() *buffer.Cache { return g.buffers }

// Globals returns the global memory region cache.
func (g *GPU) Globals() *buffer.GlobalRegionCache { return g.globals }

// SetLogger replaces the GPU's logger and propagates it to subsystems.
// Pass nil to silence.
func (g *GPU) SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	g.log = l
	propagateLogger(g.textures, l)
}

// Flush submits the open batch and returns its fence. An open render
// pass bracket is closed first.
func (g *GPU) Flush() (*sched.Fence, error) {
	g.hasPass = false
	return g.sched.Flush()
}

// Finish flushes and blocks until the submitted batch completes.
func (g *GPU) Finish() error {
	g.hasPass = false
	return g.sched.Finish()
}

// FlushRegion writes modified cached state overlapping a guest CPU
// range back to guest memory: surfaces and global regions.
func (g *GPU) FlushRegion(addr, size uint64) error {
	if err := g.textures.FlushRegion(addr, size); err != nil {
		return err
	}
	return g.globals.FlushRegion(addr, size)
}

// InvalidateRegion drops cached state overlapping a guest CPU range
// after the guest rewrote it: shaders, pipelines, surfaces, buffer
// upload memos and global regions. Returns how many entries dropped.
func (g *GPU) InvalidateRegion(addr, size uint64) int {
	dropped := g.shaders.InvalidateRegion(addr, size, g.sched.CurrentFence())
	dropped += g.textures.InvalidateRegion(addr, size)
	dropped += g.globals.InvalidateRegion(addr, size)
	g.buffers.InvalidateRegion(addr, size)
	if dropped > 0 {
		g.log.Debug("maxwell: invalidated", "addr", addr, "size", size, "entries", dropped)
	}
	return dropped
}

// Destroy releases every cache, the scheduler and, if the GPU opened
// it, the host device. Nothing is flushed; call Finish first if guest
// memory must see the final frame.
func (g *GPU) Destroy() {
	g.shaders.Destroy()
	g.textures.Destroy()
	g.buffers.Destroy()
	g.globals.Destroy()
	g.sched.Destroy()
	if g.ownsDev {
		g.dev.Destroy()
	}
}

// Stats aggregates per-subsystem counters.
type Stats struct {
	Draws     uint64
	Clears    uint64
	Pipelines pipeline.Stats
	Textures  texture.Stats
	Buffers   buffer.Stats
	Scheduler sched.Stats
}

// Stats returns a point-in-time snapshot.
func (g *GPU) Stats() Stats {
	return Stats{
		Draws:     g.draws,
		Clears:    g.clears,
		Pipelines: g.shaders.Stats(),
		Textures:  g.textures.Stats(),
		Buffers:   g.buffers.Stats(),
		Scheduler: g.sched.Stats(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("draws=%d clears=%d | %s | %s | %s | %s",
		s.Draws, s.Clears, s.Pipelines, s.Textures, s.Buffers, s.Scheduler)
}
