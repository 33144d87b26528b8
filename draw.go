// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package maxwell

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/maxwell/engine"
	"github.com/gogpu/maxwell/host"
	"github.com/gogpu/maxwell/pipeline"
	"github.com/gogpu/maxwell/sched"
	"github.com/gogpu/maxwell/texture"
)

// Guest data alignment on the stream buffer.
const (
	uniformAlignment = 0x100
	vertexAlignment  = 4
	indexAlignment   = 4
)

// passKey identifies a render pass bracket by its attachments. Draws
// against the same attachments share one bracket until a flush, a clear
// or a target change.
type passKey struct {
	colors [engine.NumRenderTargets]host.ImageViewID
	count  int
	depth  host.ImageViewID
}

func passKeyFor(colors []*texture.Surface, depth *texture.Surface) passKey {
	var key passKey
	for i, s := range colors {
		key.colors[i] = s.View()
	}
	key.count = len(colors)
	if depth != nil {
		key.depth = depth.View()
	}
	return key
}

// Clear clears the bound render targets and depth buffer with the clear
// values in the register file. The clearing pass stays open, so draws
// that follow land in the same bracket.
func (g *GPU) Clear() error {
	colors, depth, err := g.resolveTargets(false)
	if err != nil {
		return err
	}
	if g.sched.State() == sched.StateInPass {
		if err := g.sched.EndPass(); err != nil {
			return err
		}
	}

	clear := gputypes.Color{
		R: float64(g.regs.ClearColor[0]),
		G: float64(g.regs.ClearColor[1]),
		B: float64(g.regs.ClearColor[2]),
		A: float64(g.regs.ClearColor[3]),
	}
	desc := &host.RenderPassDescriptor{Label: "clear"}
	for _, s := range colors {
		desc.Colors = append(desc.Colors, host.ColorAttachment{
			View:  s.View(),
			Load:  gputypes.LoadOpClear,
			Store: gputypes.StoreOpStore,
			Clear: clear,
		})
	}
	if depth != nil {
		desc.DepthStencil = &host.DepthStencilAttachment{
			View:         depth.View(),
			DepthLoad:    gputypes.LoadOpClear,
			DepthStore:   gputypes.StoreOpStore,
			DepthClear:   g.regs.ClearDepth,
			StencilLoad:  gputypes.LoadOpClear,
			StencilStore: gputypes.StoreOpStore,
			StencilClear: g.regs.ClearStencil,
		}
	}
	if err := g.sched.BeginPass(desc); err != nil {
		return err
	}
	g.pass = passKeyFor(colors, depth)
	g.hasPass = true

	for _, s := range colors {
		s.MarkModified()
	}
	if depth != nil {
		depth.MarkModified()
	}
	g.clears++
	return nil
}

// Draw issues a non-indexed draw of count vertices starting at first,
// using the current register state.
func (g *GPU) Draw(first, count uint32) error {
	if _, err := g.prepareDraw(first + count); err != nil {
		return err
	}
	if err := g.sched.Commands().Draw(count, 1, first, 0); err != nil {
		return err
	}
	g.draws++
	return nil
}

// DrawIndexed issues an indexed draw from the bound index buffer. The
// 8-bit guest index format is widened to 16 bits on upload.
func (g *GPU) DrawIndexed() error {
	ia := &g.regs.IndexArray
	if ia.Address == 0 || ia.Count == 0 {
		return ErrNoIndexBuffer
	}

	data, format, err := g.readIndices(ia)
	if err != nil {
		return err
	}
	hostFormat, err := host.IndexFormat(format)
	if err != nil {
		return err
	}
	offset, err := g.buffers.UploadHostMemory(data, indexAlignment)
	if err != nil {
		return err
	}

	// The vertex window must cover the highest index referenced.
	limit := maxIndex(data, format, ia.First, ia.Count) + 1
	if _, err := g.prepareDraw(limit); err != nil {
		return err
	}
	enc := g.sched.Commands()
	if err := enc.SetIndexBuffer(g.buffers.Buffer(), offset, hostFormat); err != nil {
		return err
	}
	if err := enc.DrawIndexed(ia.Count, 1, ia.First, 0, 0); err != nil {
		return err
	}
	g.draws++
	return nil
}

// prepareDraw resolves the pipeline and targets, opens or reuses the
// pass bracket and binds pipeline, descriptor sets and vertex buffers.
// vertexLimit is the number of vertices the bound arrays must cover.
func (g *GPU) prepareDraw(vertexLimit uint32) (*pipeline.CachedPipeline, error) {
	p, err := g.shaders.GetPipeline(&g.regs)
	if err != nil {
		return nil, err
	}
	colors, depth, err := g.resolveTargets(true)
	if err != nil {
		return nil, err
	}
	if err := g.ensurePass(colors, depth); err != nil {
		return nil, err
	}

	enc := g.sched.Commands()
	if err := enc.SetPipeline(p.Pipeline()); err != nil {
		return nil, err
	}
	if err := g.bindStage(p.VertexShader(), 0); err != nil {
		return nil, err
	}
	if fragment := p.FragmentShader(); fragment != nil {
		if err := g.bindStage(fragment, 1); err != nil {
			return nil, err
		}
	}
	if err := g.bindVertexArrays(p.VertexSlots(), vertexLimit); err != nil {
		return nil, err
	}

	for _, s := range colors {
		s.MarkModified()
	}
	if depth != nil {
		depth.MarkModified()
	}
	return p, nil
}

// resolveTargets returns the active color surfaces and depth buffer.
func (g *GPU) resolveTargets(preserve bool) ([]*texture.Surface, *texture.Surface, error) {
	var colors []*texture.Surface
	for i := 0; i < int(g.regs.RTCount) && i < engine.NumRenderTargets; i++ {
		s, err := g.textures.GetRenderTarget(&g.regs, i, preserve)
		if err != nil {
			return nil, nil, err
		}
		if s == nil {
			continue
		}
		colors = append(colors, s)
	}
	depth, err := g.textures.GetDepthBuffer(&g.regs, preserve)
	if err != nil {
		return nil, nil, err
	}
	if len(colors) == 0 && depth == nil {
		return nil, nil, ErrNoRenderTargets
	}
	return colors, depth, nil
}

// ensurePass opens a load/store pass over the targets unless an
// identical bracket is already open.
func (g *GPU) ensurePass(colors []*texture.Surface, depth *texture.Surface) error {
	key := passKeyFor(colors, depth)
	if g.hasPass && g.sched.State() == sched.StateInPass && key == g.pass {
		return nil
	}
	if g.sched.State() == sched.StateInPass {
		if err := g.sched.EndPass(); err != nil {
			return err
		}
	}

	desc := &host.RenderPassDescriptor{Label: "draw"}
	for _, s := range colors {
		desc.Colors = append(desc.Colors, host.ColorAttachment{
			View:  s.View(),
			Load:  gputypes.LoadOpLoad,
			Store: gputypes.StoreOpStore,
		})
	}
	if depth != nil {
		desc.DepthStencil = &host.DepthStencilAttachment{
			View:         depth.View(),
			DepthLoad:    gputypes.LoadOpLoad,
			DepthStore:   gputypes.StoreOpStore,
			StencilLoad:  gputypes.LoadOpLoad,
			StencilStore: gputypes.StoreOpStore,
		}
	}
	if err := g.sched.BeginPass(desc); err != nil {
		return err
	}
	g.pass = key
	g.hasPass = true
	return nil
}

// bindStage uploads the constant buffers the stage's manifest declares,
// writes them into a fresh descriptor set lease and binds the set.
func (g *GPU) bindStage(s *pipeline.CachedShader, group uint32) error {
	m := &s.Program().Manifest
	set, err := s.CommitDescriptorSet(g.sched.CurrentFence())
	if err != nil {
		return err
	}

	writes := make([]host.DescriptorWrite, 0, len(m.ConstBuffers))
	for _, cb := range m.ConstBuffers {
		bound := &g.regs.ConstBuffers[m.Stage][cb.Index]
		if bound.Address == 0 || bound.Size == 0 {
			return fmt.Errorf("%w: %v slot %d", ErrConstBufferUnbound, m.Stage, cb.Index)
		}
		size := uint64(bound.Size)
		if size > engine.MaxConstBufferLen {
			size = engine.MaxConstBufferLen
		}
		offset, err := g.buffers.UploadMemory(bound.Address, size, uniformAlignment, true)
		if err != nil {
			return err
		}
		writes = append(writes, host.DescriptorWrite{
			Binding: cb.Binding,
			Buffer:  g.buffers.Buffer(),
			Offset:  offset,
			Size:    size,
		})
	}
	if len(writes) > 0 {
		if err := g.dev.UpdateDescriptorSet(set, writes); err != nil {
			return err
		}
	}
	return g.sched.Commands().SetDescriptorSet(group, set)
}

// bindVertexArrays uploads the guest vertex arrays behind the
// pipeline's buffer bindings and binds them in binding order.
func (g *GPU) bindVertexArrays(slots []uint32, vertexLimit uint32) error {
	enc := g.sched.Commands()
	for i, slot := range slots {
		va := &g.regs.VertexArrays[slot]
		if !va.Enable {
			return fmt.Errorf("%w: slot %d", ErrVertexArrayDisabled, slot)
		}
		count := vertexLimit
		if count == 0 {
			count = 1
		}
		size := uint64(va.Stride) * uint64(count)
		offset, err := g.buffers.UploadMemory(va.Address, size, vertexAlignment, true)
		if err != nil {
			return err
		}
		if err := enc.SetVertexBuffer(uint32(i), g.buffers.Buffer(), offset); err != nil {
			return err
		}
	}
	return nil
}

// readIndices copies the bound index data to the host, widening 8-bit
// indices to 16 bits.
func (g *GPU) readIndices(ia *engine.IndexArray) ([]byte, engine.IndexFormat, error) {
	elem := uint64(0)
	switch ia.Format {
	case engine.IndexUint8:
		elem = 1
	case engine.IndexUint16:
		elem = 2
	case engine.IndexUint32:
		elem = 4
	default:
		return nil, 0, fmt.Errorf("%w: index format %#x", ErrNoIndexBuffer, uint32(ia.Format))
	}

	total := uint64(ia.First+ia.Count) * elem
	data := make([]byte, total)
	if err := g.mem.ReadBlockGPU(ia.Address, data); err != nil {
		return nil, 0, err
	}
	if ia.Format != engine.IndexUint8 {
		return data, ia.Format, nil
	}

	wide := make([]byte, len(data)*2)
	for i, b := range data {
		binary.LittleEndian.PutUint16(wide[i*2:], uint16(b))
	}
	return wide, engine.IndexUint16, nil
}

// maxIndex scans the draw's index range for the highest vertex index.
func maxIndex(data []byte, format engine.IndexFormat, first, count uint32) uint32 {
	var max uint32
	for i := first; i < first+count; i++ {
		var v uint32
		switch format {
		case engine.IndexUint16:
			v = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		case engine.IndexUint32:
			v = binary.LittleEndian.Uint32(data[i*4:])
		}
		if v > max {
			max = v
		}
	}
	return max
}
