// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/maxwell/host"
)

// copyPitchAlignment is the row alignment required for texture-to-buffer
// copies (WebGPU and DX12 mandate 256 bytes).
const copyPitchAlignment = 256

// readbackTimeout bounds the internal fence waits of blocking readbacks.
const readbackTimeout = 5 * time.Second

type imageMeta struct {
	tex  hal.Texture
	desc host.ImageDescriptor
}

type setMeta struct {
	layout hal.BindGroupLayout
	group  hal.BindGroup // rebuilt by UpdateDescriptorSet
}

type pendingSubmit struct {
	cb    hal.CommandBuffer
	fence hal.Fence
	value uint64
}

// Device implements host.Device over a HAL device/queue pair.
type Device struct {
	mu sync.Mutex

	dev   hal.Device
	queue hal.Queue

	nextID uint64

	buffers    map[host.BufferID]hal.Buffer
	images     map[host.ImageID]*imageMeta
	views      map[host.ImageViewID]hal.TextureView
	shaders    map[host.ShaderModuleID]hal.ShaderModule
	setLayouts map[host.DescriptorSetLayoutID]hal.BindGroupLayout
	sets       map[host.DescriptorSetID]*setMeta
	layouts    map[host.PipelineLayoutID]hal.PipelineLayout
	pipelines  map[host.PipelineID]hal.RenderPipeline
	fences     map[host.FenceID]hal.Fence

	// pending holds submitted command buffers awaiting completion; they
	// are reaped on later submits and on Destroy.
	pending []pendingSubmit
}

func newDevice(dev hal.Device, queue hal.Queue) *Device {
	return &Device{
		dev:        dev,
		queue:      queue,
		buffers:    make(map[host.BufferID]hal.Buffer),
		images:     make(map[host.ImageID]*imageMeta),
		views:      make(map[host.ImageViewID]hal.TextureView),
		shaders:    make(map[host.ShaderModuleID]hal.ShaderModule),
		setLayouts: make(map[host.DescriptorSetLayoutID]hal.BindGroupLayout),
		sets:       make(map[host.DescriptorSetID]*setMeta),
		layouts:    make(map[host.PipelineLayoutID]hal.PipelineLayout),
		pipelines:  make(map[host.PipelineID]hal.RenderPipeline),
		fences:     make(map[host.FenceID]hal.Fence),
	}
}

func (d *Device) alloc() uint64 {
	d.nextID++
	return d.nextID
}

// === Buffers ===

func (d *Device) CreateBuffer(desc *host.BufferDescriptor) (host.BufferID, error) {
	buf, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return host.InvalidID, fmt.Errorf("wgpu: create buffer: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := host.BufferID(d.alloc())
	d.buffers[id] = buf
	return id, nil
}

func (d *Device) DestroyBuffer(id host.BufferID) {
	d.mu.Lock()
	buf, ok := d.buffers[id]
	delete(d.buffers, id)
	d.mu.Unlock()
	if ok {
		d.dev.DestroyBuffer(buf)
	}
}

func (d *Device) WriteBuffer(id host.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	buf, ok := d.buffers[id]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: buffer %d", host.ErrInvalidHandle, id)
	}
	if len(data) == 0 {
		return nil
	}
	d.queue.WriteBuffer(buf, offset, data)
	return nil
}

// ReadBuffer copies through a MapRead staging buffer: encode a copy,
// submit with a throwaway fence, wait, then read the staging memory.
func (d *Device) ReadBuffer(id host.BufferID, offset uint64, dst []byte) error {
	d.mu.Lock()
	buf, ok := d.buffers[id]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: buffer %d", host.ErrInvalidHandle, id)
	}
	if len(dst) == 0 {
		return nil
	}

	staging, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_staging",
		Size:  uint64(len(dst)),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.dev.DestroyBuffer(staging)

	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "buffer_readback",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("buffer_readback"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(buf, staging, []hal.BufferCopy{{
		SrcOffset: offset,
		DstOffset: 0,
		Size:      uint64(len(dst)),
	}})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.dev.FreeCommandBuffer(cmdBuf)

	if err := d.submitAndWait(cmdBuf); err != nil {
		return err
	}
	if err := d.queue.ReadBuffer(staging, 0, dst); err != nil {
		return fmt.Errorf("wgpu: readback: %w", err)
	}
	return nil
}

// submitAndWait runs one command buffer to completion on a private fence.
func (d *Device) submitAndWait(cmdBuf hal.CommandBuffer) error {
	fence, err := d.dev.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.dev.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := d.dev.Wait(fence, 1, readbackTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait: %w", err)
	}
	if !ok {
		return fmt.Errorf("wgpu: wait: %w", host.ErrDeviceLost)
	}
	return nil
}

// === Images ===

func (d *Device) CreateImage(desc *host.ImageDescriptor) (host.ImageID, error) {
	depth := desc.Depth
	if depth == 0 {
		depth = 1
	}
	mips := desc.MipLevels
	if mips == 0 {
		mips = 1
	}
	samples := desc.Samples
	if samples == 0 {
		samples = 1
	}
	tex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: depth,
		},
		MipLevelCount: mips,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return host.InvalidID, fmt.Errorf("wgpu: create texture: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := host.ImageID(d.alloc())
	d.images[id] = &imageMeta{tex: tex, desc: *desc}
	return id, nil
}

func (d *Device) DestroyImage(id host.ImageID) {
	d.mu.Lock()
	img, ok := d.images[id]
	delete(d.images, id)
	d.mu.Unlock()
	if ok {
		d.dev.DestroyTexture(img.tex)
	}
}

func (d *Device) CreateImageView(image host.ImageID, desc *host.ImageViewDescriptor) (host.ImageViewID, error) {
	d.mu.Lock()
	img, ok := d.images[image]
	d.mu.Unlock()
	if !ok {
		return host.InvalidID, fmt.Errorf("%w: image %d", host.ErrInvalidHandle, image)
	}

	halDesc := &hal.TextureViewDescriptor{
		Format:    gputypes.TextureFormatUndefined, // inherit
		Dimension: gputypes.TextureViewDimensionUndefined,
		Aspect:    gputypes.TextureAspectAll,
	}
	if desc != nil {
		halDesc.Label = desc.Label
		halDesc.BaseMipLevel = desc.BaseLevel
		halDesc.MipLevelCount = desc.Levels
		halDesc.BaseArrayLayer = desc.BaseLayer
		halDesc.ArrayLayerCount = desc.Layers
	}
	view, err := d.dev.CreateTextureView(img.tex, halDesc)
	if err != nil {
		return host.InvalidID, fmt.Errorf("wgpu: create texture view: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := host.ImageViewID(d.alloc())
	d.views[id] = view
	return id, nil
}

func (d *Device) DestroyImageView(id host.ImageViewID) {
	d.mu.Lock()
	view, ok := d.views[id]
	delete(d.views, id)
	d.mu.Unlock()
	if ok {
		d.dev.DestroyTextureView(view)
	}
}

func (d *Device) WriteImage(id host.ImageID, data []byte, bytesPerRow uint32) error {
	d.mu.Lock()
	img, ok := d.images[id]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: image %d", host.ErrInvalidHandle, id)
	}
	if len(data) == 0 || img.desc.Height == 0 {
		return nil
	}

	dst := &hal.ImageCopyTexture{
		Texture:  img.tex,
		MipLevel: 0,
		Origin:   hal.Origin3D{},
		Aspect:   gputypes.TextureAspectAll,
	}
	layout := &hal.ImageDataLayout{
		Offset:       0,
		BytesPerRow:  bytesPerRow,
		RowsPerImage: img.desc.Height,
	}
	size := &hal.Extent3D{
		Width:              img.desc.Width,
		Height:             img.desc.Height,
		DepthOrArrayLayers: 1,
	}
	d.queue.WriteTexture(dst, data, layout, size)
	return nil
}

// ReadImage copies the texture into a row-aligned staging buffer, waits
// for completion, then strips the row padding into dst.
func (d *Device) ReadImage(id host.ImageID, dst []byte, bytesPerRow uint32) error {
	d.mu.Lock()
	img, ok := d.images[id]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: image %d", host.ErrInvalidHandle, id)
	}
	h := img.desc.Height
	if len(dst) == 0 || h == 0 {
		return nil
	}

	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ uint32(copyPitchAlignment-1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "image_readback_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.dev.DestroyBuffer(staging)

	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "image_readback",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("image_readback"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	// Attachments sit in attachment layout; the copy needs transfer
	// source. Transition in, copy, transition back.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: img.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(img.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  alignedBytesPerRow,
			RowsPerImage: h,
		},
		TextureBase: hal.ImageCopyTexture{Texture: img.tex, MipLevel: 0},
		Size: hal.Extent3D{
			Width:              img.desc.Width,
			Height:             h,
			DepthOrArrayLayers: 1,
		},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: img.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.dev.FreeCommandBuffer(cmdBuf)

	if err := d.submitAndWait(cmdBuf); err != nil {
		return err
	}

	readback := make([]byte, stagingSize)
	if err := d.queue.ReadBuffer(staging, 0, readback); err != nil {
		return fmt.Errorf("wgpu: readback: %w", err)
	}
	if alignedBytesPerRow == bytesPerRow {
		copy(dst, readback)
		return nil
	}
	for row := uint32(0); row < h; row++ {
		srcOff := uint64(row) * uint64(alignedBytesPerRow)
		dstOff := uint64(row) * uint64(bytesPerRow)
		if dstOff >= uint64(len(dst)) {
			break
		}
		n := uint64(bytesPerRow)
		if dstOff+n > uint64(len(dst)) {
			n = uint64(len(dst)) - dstOff
		}
		copy(dst[dstOff:dstOff+n], readback[srcOff:srcOff+n])
	}
	return nil
}

// === Shaders ===

func (d *Device) CreateShaderModule(label string, spirv []byte) (host.ShaderModuleID, error) {
	module, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirvWords(spirv)},
	})
	if err != nil {
		return host.InvalidID, fmt.Errorf("wgpu: create shader module: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := host.ShaderModuleID(d.alloc())
	d.shaders[id] = module
	return id, nil
}

func (d *Device) DestroyShaderModule(id host.ShaderModuleID) {
	d.mu.Lock()
	module, ok := d.shaders[id]
	delete(d.shaders, id)
	d.mu.Unlock()
	if ok {
		d.dev.DestroyShaderModule(module)
	}
}

// === Descriptors ===

func (d *Device) CreateDescriptorSetLayout(desc *host.DescriptorSetLayoutDescriptor) (host.DescriptorSetLayoutID, error) {
	layout, err := d.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: bindGroupLayoutEntries(desc.Bindings),
	})
	if err != nil {
		return host.InvalidID, fmt.Errorf("wgpu: create bind group layout: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := host.DescriptorSetLayoutID(d.alloc())
	d.setLayouts[id] = layout
	return id, nil
}

func (d *Device) DestroyDescriptorSetLayout(id host.DescriptorSetLayoutID) {
	d.mu.Lock()
	layout, ok := d.setLayouts[id]
	delete(d.setLayouts, id)
	d.mu.Unlock()
	if ok {
		d.dev.DestroyBindGroupLayout(layout)
	}
}

// AllocateDescriptorSets reserves IDs against a layout. HAL bind groups
// are immutable, so the backing group is built lazily by
// UpdateDescriptorSet and rebuilt on every update.
func (d *Device) AllocateDescriptorSets(layout host.DescriptorSetLayoutID, count int) ([]host.DescriptorSetID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bgl, ok := d.setLayouts[layout]
	if !ok {
		return nil, fmt.Errorf("%w: set layout %d", host.ErrInvalidHandle, layout)
	}
	ids := make([]host.DescriptorSetID, count)
	for i := range ids {
		ids[i] = host.DescriptorSetID(d.alloc())
		d.sets[ids[i]] = &setMeta{layout: bgl}
	}
	return ids, nil
}

func (d *Device) UpdateDescriptorSet(set host.DescriptorSetID, writes []host.DescriptorWrite) error {
	d.mu.Lock()
	meta, ok := d.sets[set]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: descriptor set %d", host.ErrInvalidHandle, set)
	}
	entries := make([]gputypes.BindGroupEntry, 0, len(writes))
	for _, w := range writes {
		entry, err := d.bindGroupEntryLocked(w)
		if err != nil {
			d.mu.Unlock()
			return err
		}
		entries = append(entries, entry)
	}
	old := meta.group
	d.mu.Unlock()

	group, err := d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Layout:  meta.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}
	if old != nil {
		d.dev.DestroyBindGroup(old)
	}
	d.mu.Lock()
	meta.group = group
	d.mu.Unlock()
	return nil
}

func (d *Device) bindGroupEntryLocked(w host.DescriptorWrite) (gputypes.BindGroupEntry, error) {
	entry := gputypes.BindGroupEntry{Binding: w.Binding}
	switch {
	case w.Buffer != host.InvalidID:
		buf, ok := d.buffers[w.Buffer]
		if !ok {
			return entry, fmt.Errorf("%w: buffer %d", host.ErrInvalidHandle, w.Buffer)
		}
		entry.Resource = gputypes.BufferBinding{
			Buffer: buf.NativeHandle(),
			Offset: w.Offset,
			Size:   w.Size,
		}
	case w.View != host.InvalidID:
		view, ok := d.views[w.View]
		if !ok {
			return entry, fmt.Errorf("%w: image view %d", host.ErrInvalidHandle, w.View)
		}
		entry.Resource = gputypes.TextureViewBinding{
			TextureView: view.NativeHandle(),
		}
	default:
		return entry, fmt.Errorf("%w: empty descriptor write", host.ErrUnsupported)
	}
	return entry, nil
}

// === Pipelines ===

func (d *Device) CreatePipelineLayout(desc *host.PipelineLayoutDescriptor) (host.PipelineLayoutID, error) {
	d.mu.Lock()
	bgls := make([]hal.BindGroupLayout, 0, len(desc.SetLayouts))
	for _, id := range desc.SetLayouts {
		bgl, ok := d.setLayouts[id]
		if !ok {
			d.mu.Unlock()
			return host.InvalidID, fmt.Errorf("%w: set layout %d", host.ErrInvalidHandle, id)
		}
		bgls = append(bgls, bgl)
	}
	d.mu.Unlock()

	layout, err := d.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: bgls,
	})
	if err != nil {
		return host.InvalidID, fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := host.PipelineLayoutID(d.alloc())
	d.layouts[id] = layout
	return id, nil
}

func (d *Device) DestroyPipelineLayout(id host.PipelineLayoutID) {
	d.mu.Lock()
	layout, ok := d.layouts[id]
	delete(d.layouts, id)
	d.mu.Unlock()
	if ok {
		d.dev.DestroyPipelineLayout(layout)
	}
}

func (d *Device) CreateRenderPipeline(desc *host.RenderPipelineDescriptor) (host.PipelineID, error) {
	d.mu.Lock()
	halDesc, err := d.renderPipelineDescLocked(desc)
	d.mu.Unlock()
	if err != nil {
		return host.InvalidID, err
	}

	pipeline, err := d.dev.CreateRenderPipeline(halDesc)
	if err != nil {
		return host.InvalidID, fmt.Errorf("wgpu: create render pipeline: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := host.PipelineID(d.alloc())
	d.pipelines[id] = pipeline
	return id, nil
}

func (d *Device) DestroyPipeline(id host.PipelineID) {
	d.mu.Lock()
	pipeline, ok := d.pipelines[id]
	delete(d.pipelines, id)
	d.mu.Unlock()
	if ok {
		d.dev.DestroyRenderPipeline(pipeline)
	}
}

// === Fences ===

func (d *Device) CreateFence() (host.FenceID, error) {
	fence, err := d.dev.CreateFence()
	if err != nil {
		return host.InvalidID, fmt.Errorf("wgpu: create fence: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := host.FenceID(d.alloc())
	d.fences[id] = fence
	return id, nil
}

func (d *Device) DestroyFence(id host.FenceID) {
	d.mu.Lock()
	fence, ok := d.fences[id]
	delete(d.fences, id)
	d.mu.Unlock()
	if ok {
		d.dev.DestroyFence(fence)
	}
}

func (d *Device) WaitFence(id host.FenceID, value uint64, timeout time.Duration) (bool, error) {
	d.mu.Lock()
	fence, ok := d.fences[id]
	d.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: fence %d", host.ErrInvalidHandle, id)
	}
	done, err := d.dev.Wait(fence, value, timeout)
	if err != nil {
		return false, fmt.Errorf("wgpu: wait: %w", err)
	}
	return done, nil
}

// === Submission ===

func (d *Device) NewCommandEncoder(label string) (host.CommandEncoder, error) {
	enc, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	return &encoder{dev: d, enc: enc}, nil
}

func (d *Device) Submit(commands host.CommandList, fence host.FenceID, value uint64) error {
	cmdBuf, ok := commands.(hal.CommandBuffer)
	if !ok {
		return fmt.Errorf("%w: foreign command list", host.ErrInvalidHandle)
	}
	d.mu.Lock()
	halFence, ok := d.fences[fence]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: fence %d", host.ErrInvalidHandle, fence)
	}
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, halFence, value); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}

	d.mu.Lock()
	d.pending = append(d.pending, pendingSubmit{cb: cmdBuf, fence: halFence, value: value})
	d.reapLocked()
	d.mu.Unlock()
	return nil
}

// reapLocked frees command buffers whose fences have passed.
func (d *Device) reapLocked() {
	kept := d.pending[:0]
	for _, p := range d.pending {
		done, err := d.dev.Wait(p.fence, p.value, 0)
		if err == nil && done {
			d.dev.FreeCommandBuffer(p.cb)
			continue
		}
		kept = append(kept, p)
	}
	d.pending = kept
}

func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.pending {
		// Drain outstanding work so the command buffers are safe to free.
		_, _ = d.dev.Wait(p.fence, p.value, readbackTimeout)
		d.dev.FreeCommandBuffer(p.cb)
	}
	d.pending = nil
	for id, pipeline := range d.pipelines {
		d.dev.DestroyRenderPipeline(pipeline)
		delete(d.pipelines, id)
	}
	for id, layout := range d.layouts {
		d.dev.DestroyPipelineLayout(layout)
		delete(d.layouts, id)
	}
	for id, meta := range d.sets {
		if meta.group != nil {
			d.dev.DestroyBindGroup(meta.group)
		}
		delete(d.sets, id)
	}
	for id, layout := range d.setLayouts {
		d.dev.DestroyBindGroupLayout(layout)
		delete(d.setLayouts, id)
	}
	for id, module := range d.shaders {
		d.dev.DestroyShaderModule(module)
		delete(d.shaders, id)
	}
	for id, view := range d.views {
		d.dev.DestroyTextureView(view)
		delete(d.views, id)
	}
	for id, img := range d.images {
		d.dev.DestroyTexture(img.tex)
		delete(d.images, id)
	}
	for id, buf := range d.buffers {
		d.dev.DestroyBuffer(buf)
		delete(d.buffers, id)
	}
	for id, fence := range d.fences {
		d.dev.DestroyFence(fence)
		delete(d.fences, id)
	}
}
