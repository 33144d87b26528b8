// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/maxwell/cache"
	"github.com/gogpu/maxwell/engine"
	"github.com/gogpu/maxwell/gmem"
	"github.com/gogpu/maxwell/host"
	"github.com/gogpu/maxwell/sched"
	"github.com/gogpu/maxwell/shader"
)

// programMemoCapacity is the per-shard capacity of the translation memo.
const programMemoCapacity = 256

var (
	// ErrShaderFetch reports that a program's guest code could not be
	// read.
	ErrShaderFetch = errors.New("pipeline: shader code unreadable")

	// ErrNoVertexShader reports a draw with no vertex program bound.
	ErrNoVertexShader = errors.New("pipeline: no vertex shader")

	// ErrUnsupportedStage reports an enabled program slot this
	// translation layer cannot feed.
	ErrUnsupportedStage = errors.New("pipeline: unsupported shader stage")
)

// Cache owns every translated shader and compiled pipeline. Entries are
// compiled at most once per key and live until invalidated. Not safe for
// concurrent use; the render thread owns it.
type Cache struct {
	dev host.Device
	mem gmem.Memory

	shaders   map[uint64]*CachedShader
	pipelines map[Key]*CachedPipeline

	// programs memoizes translation results by code content hash, so
	// reuploaded programs skip retranslation after invalidation.
	programs *cache.ShardedCache[uint64, *shader.Program]

	// empty backs the set layout of disabled stages.
	empty    host.DescriptorSetLayoutID
	hasEmpty bool

	// retired are handles dropped from the cache while a batch that may
	// still reference them was in flight.
	retired []retired

	hits   uint64
	misses uint64
}

// retired defers a handle bundle's destruction until its fence signals.
type retired struct {
	fence   *sched.Fence
	destroy func()
}

// NewCache creates a pipeline cache over the device and guest memory.
func NewCache(dev host.Device, mem gmem.Memory) *Cache {
	return &Cache{
		dev:       dev,
		mem:       mem,
		shaders:   make(map[uint64]*CachedShader),
		pipelines: make(map[Key]*CachedPipeline),
		programs:  cache.NewSharded[uint64, *shader.Program](programMemoCapacity, cache.Uint64Hasher),
	}
}

// CachedPipeline is one compiled pipeline with its layout and the
// shaders it was built from.
type CachedPipeline struct {
	key      Key
	pipeline host.PipelineID
	layout   host.PipelineLayoutID
	vertex   *CachedShader
	fragment *CachedShader

	// vertexSlots are the guest vertex array slots feeding the host
	// vertex buffer bindings, in binding order.
	vertexSlots []uint32
}

// Pipeline returns the host pipeline handle.
func (p *CachedPipeline) Pipeline() host.PipelineID { return p.pipeline }

// Layout returns the host pipeline layout.
func (p *CachedPipeline) Layout() host.PipelineLayoutID { return p.layout }

// VertexShader returns the vertex stage entry.
func (p *CachedPipeline) VertexShader() *CachedShader { return p.vertex }

// FragmentShader returns the fragment stage entry, nil when disabled.
func (p *CachedPipeline) FragmentShader() *CachedShader { return p.fragment }

// VertexSlots returns the guest vertex array slots behind the pipeline's
// vertex buffer bindings. Draw submission binds buffers in this order.
func (p *CachedPipeline) VertexSlots() []uint32 { return p.vertexSlots }

func (p *CachedPipeline) destroyer(dev host.Device) func() {
	return func() {
		dev.DestroyPipeline(p.pipeline)
		dev.DestroyPipelineLayout(p.layout)
	}
}

// GetPipeline returns the pipeline for the current register state,
// compiling shaders and pipeline on first use.
func (c *Cache) GetPipeline(regs *engine.Regs) (*CachedPipeline, error) {
	c.collectRetired()
	key, err := c.keyFor(regs)
	if err != nil {
		return nil, err
	}
	if p, ok := c.pipelines[key]; ok {
		c.hits++
		return p, nil
	}
	c.misses++
	p, err := c.buildPipeline(&key)
	if err != nil {
		return nil, err
	}
	c.pipelines[key] = p
	return p, nil
}

// keyFor resolves the enabled program slots to CPU addresses and
// snapshots the fixed-function state.
func (c *Cache) keyFor(regs *engine.Regs) (Key, error) {
	var key Key
	key.Fixed = FixedStateFromRegs(regs)
	for program := engine.ProgramVertexA; program <= engine.ProgramFragment; program++ {
		if !regs.IsShaderConfigEnabled(program) {
			continue
		}
		stage := program.Stage()
		if program != engine.ProgramVertexB && stage != engine.StageFragment {
			return Key{}, fmt.Errorf("%w: %s", ErrUnsupportedStage, program)
		}
		gpuAddr := regs.ShaderAddress(program)
		cpuAddr, ok := c.mem.TranslateAddress(gpuAddr)
		if !ok {
			return Key{}, fmt.Errorf("%w: %s code at %#x", gmem.ErrUnmapped, program, gpuAddr)
		}
		key.Shaders[stage] = cpuAddr
	}
	if key.Shaders[engine.StageVertex] == 0 {
		return Key{}, ErrNoVertexShader
	}
	return key, nil
}

func (c *Cache) buildPipeline(key *Key) (*CachedPipeline, error) {
	vertex, err := c.getShader(key.Shaders[engine.StageVertex], engine.StageVertex)
	if err != nil {
		return nil, err
	}
	var fragment *CachedShader
	if addr := key.Shaders[engine.StageFragment]; addr != 0 {
		if fragment, err = c.getShader(addr, engine.StageFragment); err != nil {
			return nil, err
		}
	}

	// The layout always carries both groups; a disabled fragment stage
	// contributes the shared empty one.
	fragmentLayout, err := c.emptyLayout()
	if err != nil {
		return nil, err
	}
	if fragment != nil {
		fragmentLayout = fragment.layout
	}
	layout, err := c.dev.CreatePipelineLayout(&host.PipelineLayoutDescriptor{
		Label:      fmt.Sprintf("pipeline_%x", key.Shaders[engine.StageVertex]),
		SetLayouts: []host.DescriptorSetLayoutID{vertex.layout, fragmentLayout},
	})
	if err != nil {
		return nil, err
	}

	desc, slots, err := c.pipelineDescriptor(key, layout, vertex, fragment)
	if err != nil {
		c.dev.DestroyPipelineLayout(layout)
		return nil, err
	}
	pipeline, err := c.dev.CreateRenderPipeline(desc)
	if err != nil {
		c.dev.DestroyPipelineLayout(layout)
		return nil, err
	}
	return &CachedPipeline{
		key:         *key,
		pipeline:    pipeline,
		layout:      layout,
		vertex:      vertex,
		fragment:    fragment,
		vertexSlots: slots,
	}, nil
}

func (c *Cache) emptyLayout() (host.DescriptorSetLayoutID, error) {
	if c.hasEmpty {
		return c.empty, nil
	}
	id, err := c.dev.CreateDescriptorSetLayout(&host.DescriptorSetLayoutDescriptor{Label: "empty"})
	if err != nil {
		return 0, err
	}
	c.empty = id
	c.hasEmpty = true
	return id, nil
}

func (c *Cache) pipelineDescriptor(key *Key, layout host.PipelineLayoutID, vertex, fragment *CachedShader) (*host.RenderPipelineDescriptor, []uint32, error) {
	fixed := &key.Fixed

	topology, err := host.Topology(fixed.Topology)
	if err != nil {
		return nil, nil, err
	}
	cullMode, err := host.CullMode(fixed.CullEnable, fixed.CullFace)
	if err != nil {
		return nil, nil, err
	}
	frontFace, err := host.FrontFace(fixed.FrontFace)
	if err != nil {
		return nil, nil, err
	}

	desc := &host.RenderPipelineDescriptor{
		Label:        fmt.Sprintf("pipeline_%x", key.Shaders[engine.StageVertex]),
		Layout:       layout,
		VertexShader: vertex.module,
		VertexEntry:  vertex.program.Entry,
		Topology:     topology,
		CullMode:     cullMode,
		FrontFace:    frontFace,
	}
	if fragment != nil {
		desc.FragmentShader = fragment.module
		desc.FragmentEntry = fragment.program.Entry
	}

	var slots []uint32
	desc.VertexBuffers, slots, err = vertexBuffers(fixed, &vertex.program.Manifest)
	if err != nil {
		return nil, nil, err
	}

	if fragment != nil {
		if desc.ColorTargets, err = colorTargets(fixed, &fragment.program.Manifest); err != nil {
			return nil, nil, err
		}
	}
	if fixed.ZetaEnable {
		if desc.DepthStencil, err = depthStencilState(fixed); err != nil {
			return nil, nil, err
		}
	}
	return desc, slots, nil
}

// vertexBuffers derives the vertex input layout: only the attributes the
// vertex program actually reads are bound, grouped by their source
// vertex array slot.
func vertexBuffers(fixed *FixedState, m *shader.Manifest) ([]host.VertexBufferBinding, []uint32, error) {
	used := make(map[uint32][]host.VertexAttribute)
	slots := make([]uint32, 0, 4)
	for _, g := range m.InputAttributes {
		attr := fixed.VertexAttribs[g]
		format, err := host.VertexFormat(attr.Type, attr.Size)
		if err != nil {
			return nil, nil, fmt.Errorf("attribute %d: %w", g, err)
		}
		if _, ok := used[attr.Buffer]; !ok {
			slots = append(slots, attr.Buffer)
		}
		used[attr.Buffer] = append(used[attr.Buffer], host.VertexAttribute{
			Location: g,
			Format:   format,
			Offset:   attr.Offset,
		})
	}
	buffers := make([]host.VertexBufferBinding, 0, len(slots))
	for _, slot := range slots {
		buffers = append(buffers, host.VertexBufferBinding{
			Stride:      fixed.VertexStrides[slot],
			PerInstance: fixed.VertexInstanced[slot],
			Attributes:  used[slot],
		})
	}
	return buffers, slots, nil
}

// colorTargets builds the color attachment states for the active render
// targets, masking writes with both the guest blend state and the
// fragment program's output map.
func colorTargets(fixed *FixedState, m *shader.Manifest) ([]host.ColorTarget, error) {
	count := int(fixed.ColorCount)
	if count > engine.NumRenderTargets {
		count = engine.NumRenderTargets
	}
	targets := make([]host.ColorTarget, 0, count)
	for rt := 0; rt < count; rt++ {
		if fixed.ColorFormats[rt] == engine.RenderTargetNone {
			break
		}
		format, err := host.SurfaceFormat(fixed.ColorFormats[rt])
		if err != nil {
			return nil, fmt.Errorf("render target %d: %w", rt, err)
		}
		target := host.ColorTarget{
			Format:    format,
			WriteMask: writeMask(fixed.Blend[rt].Components, m.ColorMasks[rt]),
		}
		if fixed.Blend[rt].Enable {
			if target.Blend, err = blendState(&fixed.Blend[rt]); err != nil {
				return nil, fmt.Errorf("render target %d: %w", rt, err)
			}
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// writeMask combines the guest component enables with the program's
// output map. Component bit order follows the WebGPU mask encoding.
func writeMask(components [4]bool, programMask uint8) gputypes.ColorWriteMask {
	var mask gputypes.ColorWriteMask
	for i, enabled := range components {
		if enabled && programMask>>i&1 != 0 {
			mask |= 1 << i
		}
	}
	return mask
}

func blendState(b *engine.BlendState) (*host.BlendState, error) {
	colorOp, err := host.BlendEquation(b.RGBEquation)
	if err != nil {
		return nil, err
	}
	alphaOp, err := host.BlendEquation(b.AEquation)
	if err != nil {
		return nil, err
	}
	srcRGB, err := host.BlendFactor(b.SrcRGB)
	if err != nil {
		return nil, err
	}
	dstRGB, err := host.BlendFactor(b.DstRGB)
	if err != nil {
		return nil, err
	}
	srcA, err := host.BlendFactor(b.SrcA)
	if err != nil {
		return nil, err
	}
	dstA, err := host.BlendFactor(b.DstA)
	if err != nil {
		return nil, err
	}
	return &host.BlendState{
		Color: host.BlendComponent{Src: srcRGB, Dst: dstRGB, Op: colorOp},
		Alpha: host.BlendComponent{Src: srcA, Dst: dstA, Op: alphaOp},
	}, nil
}

func depthStencilState(fixed *FixedState) (*host.DepthStencilState, error) {
	format, err := host.DepthSurfaceFormat(fixed.DepthFormat)
	if err != nil {
		return nil, err
	}
	state := &host.DepthStencilState{
		Format:       format,
		DepthWrite:   fixed.DepthWriteEnable,
		DepthCompare: gputypes.CompareFunctionAlways,
	}
	if fixed.DepthTestEnable {
		if state.DepthCompare, err = host.ComparisonOp(fixed.DepthTestFunc); err != nil {
			return nil, err
		}
	}
	if fixed.StencilEnable {
		if state.StencilFront, err = stencilFace(&fixed.StencilFront); err != nil {
			return nil, err
		}
		if state.StencilBack, err = stencilFace(&fixed.StencilBack); err != nil {
			return nil, err
		}
		state.StencilReadMask = fixed.StencilFront.FuncMask
		state.StencilWriteMask = fixed.StencilFront.Mask
	} else {
		keep := host.StencilFace{Compare: gputypes.CompareFunctionAlways}
		state.StencilFront = keep
		state.StencilBack = keep
	}
	return state, nil
}

func stencilFace(f *engine.StencilFaceState) (host.StencilFace, error) {
	compare, err := host.ComparisonOp(f.Func)
	if err != nil {
		return host.StencilFace{}, err
	}
	fail, err := host.StencilOp(f.FailOp)
	if err != nil {
		return host.StencilFace{}, err
	}
	zfail, err := host.StencilOp(f.ZFailOp)
	if err != nil {
		return host.StencilFace{}, err
	}
	zpass, err := host.StencilOp(f.ZPassOp)
	if err != nil {
		return host.StencilFace{}, err
	}
	return host.StencilFace{
		Compare:     compare,
		FailOp:      fail,
		DepthFailOp: zfail,
		PassOp:      zpass,
	}, nil
}

// InvalidateRegion removes every shader whose code overlaps the guest
// range and every pipeline referencing one. The fence of the batch that
// last used the entries gates their host destruction, like descriptor
// set reuse; pass the current batch fence. Returns how many entries
// were dropped.
func (c *Cache) InvalidateRegion(addr, size uint64, fence *sched.Fence) int {
	c.collectRetired()
	removed := make(map[uint64]bool)
	for a, s := range c.shaders {
		if a < addr+size && addr < a+s.size {
			c.retire(fence, s.destroyer(c.dev))
			delete(c.shaders, a)
			removed[a] = true
		}
	}
	if len(removed) == 0 {
		return 0
	}
	dropped := len(removed)
	for key, p := range c.pipelines {
		refs := false
		for _, a := range key.Shaders {
			if removed[a] {
				refs = true
				break
			}
		}
		if refs {
			c.retire(fence, p.destroyer(c.dev))
			delete(c.pipelines, key)
			dropped++
		}
	}
	return dropped
}

// retire destroys immediately when no batch can reference the handles,
// otherwise queues them behind the fence.
func (c *Cache) retire(fence *sched.Fence, destroy func()) {
	if fence == nil || fence.Signaled() {
		destroy()
		return
	}
	c.retired = append(c.retired, retired{fence: fence, destroy: destroy})
}

// collectRetired destroys queued handles whose batch completed.
func (c *Cache) collectRetired() {
	kept := c.retired[:0]
	for _, r := range c.retired {
		if r.fence.Signaled() {
			r.destroy()
		} else {
			kept = append(kept, r)
		}
	}
	c.retired = kept
}

// Destroy releases every cached entry, retired handles included, and
// the shared empty layout. The caller drains the device first.
func (c *Cache) Destroy() {
	for _, r := range c.retired {
		r.destroy()
	}
	c.retired = nil
	for key, p := range c.pipelines {
		c.dev.DestroyPipeline(p.pipeline)
		c.dev.DestroyPipelineLayout(p.layout)
		delete(c.pipelines, key)
	}
	for a, s := range c.shaders {
		s.destroy(c.dev)
		delete(c.shaders, a)
	}
	if c.hasEmpty {
		c.dev.DestroyDescriptorSetLayout(c.empty)
		c.hasEmpty = false
	}
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Shaders   int
	Pipelines int
	Hits      uint64
	Misses    uint64
}

func (c *Cache) Stats() Stats {
	return Stats{
		Shaders:   len(c.shaders),
		Pipelines: len(c.pipelines),
		Hits:      c.hits,
		Misses:    c.misses,
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("shaders=%d pipelines=%d hits=%d misses=%d",
		s.Shaders, s.Pipelines, s.Hits, s.Misses)
}
