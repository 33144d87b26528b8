// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/maxwell/host"
)

var (
	// ErrNoPass is returned when draw state is recorded outside a pass.
	ErrNoPass = errors.New("wgpu: no render pass open")
)

// encoder wraps a HAL command encoder. Pass-scoped calls go through the
// open hal.RenderPassEncoder.
type encoder struct {
	dev *Device
	enc hal.CommandEncoder
	rp  hal.RenderPassEncoder
}

func (e *encoder) Begin(label string) error {
	if err := e.enc.BeginEncoding(label); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	return nil
}

func (e *encoder) CopyBufferToBuffer(src, dst host.BufferID, copies []host.BufferCopy) error {
	e.dev.mu.Lock()
	srcBuf, srcOK := e.dev.buffers[src]
	dstBuf, dstOK := e.dev.buffers[dst]
	e.dev.mu.Unlock()
	if !srcOK {
		return fmt.Errorf("%w: copy source %d", host.ErrInvalidHandle, src)
	}
	if !dstOK {
		return fmt.Errorf("%w: copy destination %d", host.ErrInvalidHandle, dst)
	}
	regions := make([]hal.BufferCopy, len(copies))
	for i, c := range copies {
		regions[i] = hal.BufferCopy{
			SrcOffset: c.SrcOffset,
			DstOffset: c.DstOffset,
			Size:      c.Size,
		}
	}
	e.enc.CopyBufferToBuffer(srcBuf, dstBuf, regions)
	return nil
}

func (e *encoder) BeginRenderPass(desc *host.RenderPassDescriptor) error {
	e.dev.mu.Lock()
	halDesc := &hal.RenderPassDescriptor{Label: desc.Label}
	for _, color := range desc.Colors {
		view, ok := e.dev.views[color.View]
		if !ok {
			e.dev.mu.Unlock()
			return fmt.Errorf("%w: color view %d", host.ErrInvalidHandle, color.View)
		}
		halDesc.ColorAttachments = append(halDesc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       view,
			LoadOp:     color.Load,
			StoreOp:    color.Store,
			ClearValue: color.Clear,
		})
	}
	if ds := desc.DepthStencil; ds != nil {
		view, ok := e.dev.views[ds.View]
		if !ok {
			e.dev.mu.Unlock()
			return fmt.Errorf("%w: depth view %d", host.ErrInvalidHandle, ds.View)
		}
		halDesc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              view,
			DepthLoadOp:       ds.DepthLoad,
			DepthStoreOp:      ds.DepthStore,
			DepthClearValue:   ds.DepthClear,
			StencilLoadOp:     ds.StencilLoad,
			StencilStoreOp:    ds.StencilStore,
			StencilClearValue: ds.StencilClear,
		}
	}
	e.dev.mu.Unlock()

	e.rp = e.enc.BeginRenderPass(halDesc)
	return nil
}

func (e *encoder) SetPipeline(pipeline host.PipelineID) error {
	if e.rp == nil {
		return ErrNoPass
	}
	e.dev.mu.Lock()
	p, ok := e.dev.pipelines[pipeline]
	e.dev.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: pipeline %d", host.ErrInvalidHandle, pipeline)
	}
	e.rp.SetPipeline(p)
	return nil
}

func (e *encoder) SetDescriptorSet(index uint32, set host.DescriptorSetID) error {
	if e.rp == nil {
		return ErrNoPass
	}
	e.dev.mu.Lock()
	meta, ok := e.dev.sets[set]
	e.dev.mu.Unlock()
	if !ok || meta.group == nil {
		return fmt.Errorf("%w: descriptor set %d", host.ErrInvalidHandle, set)
	}
	e.rp.SetBindGroup(index, meta.group, nil)
	return nil
}

func (e *encoder) SetVertexBuffer(slot uint32, buffer host.BufferID, offset uint64) error {
	if e.rp == nil {
		return ErrNoPass
	}
	e.dev.mu.Lock()
	buf, ok := e.dev.buffers[buffer]
	e.dev.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: vertex buffer %d", host.ErrInvalidHandle, buffer)
	}
	e.rp.SetVertexBuffer(slot, buf, offset)
	return nil
}

func (e *encoder) SetIndexBuffer(buffer host.BufferID, offset uint64, format gputypes.IndexFormat) error {
	if e.rp == nil {
		return ErrNoPass
	}
	e.dev.mu.Lock()
	buf, ok := e.dev.buffers[buffer]
	e.dev.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: index buffer %d", host.ErrInvalidHandle, buffer)
	}
	e.rp.SetIndexBuffer(buf, format, offset)
	return nil
}

func (e *encoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	if e.rp == nil {
		return ErrNoPass
	}
	e.rp.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

func (e *encoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) error {
	if e.rp == nil {
		return ErrNoPass
	}
	e.rp.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	return nil
}

func (e *encoder) EndRenderPass() error {
	if e.rp == nil {
		return ErrNoPass
	}
	e.rp.End()
	e.rp = nil
	return nil
}

func (e *encoder) End() (host.CommandList, error) {
	if e.rp != nil {
		e.rp.End()
		e.rp = nil
	}
	cmdBuf, err := e.enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	return cmdBuf, nil
}

func (e *encoder) Discard() {
	e.rp = nil
	e.enc.DiscardEncoding()
}
