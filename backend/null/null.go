// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package null provides an in-memory host device. Buffers and images are
// plain byte slices, submissions execute synchronously on the calling
// goroutine, and fences signal the moment their batch is submitted. The
// device exists for tests and headless tools; it draws nothing.
package null

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/maxwell/backend"
	"github.com/gogpu/maxwell/host"
)

func init() {
	backend.Register(backend.BackendNull, func() backend.Backend {
		return &Backend{}
	})
}

// Backend constructs null devices.
type Backend struct{}

// Name returns the backend identifier.
func (*Backend) Name() string { return backend.BackendNull }

// Open creates a new null device.
func (*Backend) Open() (host.Device, error) { return NewDevice(), nil }

var (
	// ErrOutOfBounds is returned when a buffer or image access exceeds the
	// resource size.
	ErrOutOfBounds = errors.New("null: access out of bounds")

	// ErrDestroyed is returned when the device is used after Destroy.
	ErrDestroyed = errors.New("null: device destroyed")
)

type bufferObj struct {
	desc host.BufferDescriptor
	data []byte
}

type imageObj struct {
	desc host.ImageDescriptor
	data []byte
}

// Device is an in-memory host.Device. All resources live on the Go heap
// and every submission completes before Submit returns.
type Device struct {
	mu sync.Mutex

	nextID uint64

	buffers    map[host.BufferID]*bufferObj
	images     map[host.ImageID]*imageObj
	views      map[host.ImageViewID]host.ImageID
	shaders    map[host.ShaderModuleID][]byte
	setLayouts map[host.DescriptorSetLayoutID]host.DescriptorSetLayoutDescriptor
	sets       map[host.DescriptorSetID][]host.DescriptorWrite
	layouts    map[host.PipelineLayoutID]host.PipelineLayoutDescriptor
	pipelines  map[host.PipelineID]host.RenderPipelineDescriptor
	fences     map[host.FenceID]uint64

	destroyed bool

	submits uint64
	draws   uint64
	passes  uint64
}

// NewDevice creates an empty null device.
func NewDevice() *Device {
	return &Device{
		buffers:    make(map[host.BufferID]*bufferObj),
		images:     make(map[host.ImageID]*imageObj),
		views:      make(map[host.ImageViewID]host.ImageID),
		shaders:    make(map[host.ShaderModuleID][]byte),
		setLayouts: make(map[host.DescriptorSetLayoutID]host.DescriptorSetLayoutDescriptor),
		sets:       make(map[host.DescriptorSetID][]host.DescriptorWrite),
		layouts:    make(map[host.PipelineLayoutID]host.PipelineLayoutDescriptor),
		pipelines:  make(map[host.PipelineID]host.RenderPipelineDescriptor),
		fences:     make(map[host.FenceID]uint64),
	}
}

func (d *Device) alloc() uint64 {
	d.nextID++
	return d.nextID
}

// === Buffers ===

func (d *Device) CreateBuffer(desc *host.BufferDescriptor) (host.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return host.InvalidID, ErrDestroyed
	}
	id := host.BufferID(d.alloc())
	d.buffers[id] = &bufferObj{desc: *desc, data: make([]byte, desc.Size)}
	return id, nil
}

func (d *Device) DestroyBuffer(id host.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, id)
}

func (d *Device) WriteBuffer(id host.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", host.ErrInvalidHandle, id)
	}
	if offset+uint64(len(data)) > uint64(len(buf.data)) {
		return fmt.Errorf("%w: write [%d, %d) of buffer size %d",
			ErrOutOfBounds, offset, offset+uint64(len(data)), len(buf.data))
	}
	copy(buf.data[offset:], data)
	return nil
}

func (d *Device) ReadBuffer(id host.BufferID, offset uint64, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", host.ErrInvalidHandle, id)
	}
	if offset+uint64(len(dst)) > uint64(len(buf.data)) {
		return fmt.Errorf("%w: read [%d, %d) of buffer size %d",
			ErrOutOfBounds, offset, offset+uint64(len(dst)), len(buf.data))
	}
	copy(dst, buf.data[offset:])
	return nil
}

// === Images ===

func (d *Device) CreateImage(desc *host.ImageDescriptor) (host.ImageID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return host.InvalidID, ErrDestroyed
	}
	depth := desc.Depth
	if depth == 0 {
		depth = 1
	}
	id := host.ImageID(d.alloc())
	// Sized for the worst case of 16 bytes per pixel; writes define the
	// meaningful prefix.
	d.images[id] = &imageObj{
		desc: *desc,
		data: make([]byte, uint64(desc.Width)*uint64(desc.Height)*uint64(depth)*16),
	}
	return id, nil
}

func (d *Device) DestroyImage(id host.ImageID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.images, id)
}

func (d *Device) CreateImageView(image host.ImageID, _ *host.ImageViewDescriptor) (host.ImageViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.images[image]; !ok {
		return host.InvalidID, fmt.Errorf("%w: image %d", host.ErrInvalidHandle, image)
	}
	id := host.ImageViewID(d.alloc())
	d.views[id] = image
	return id, nil
}

func (d *Device) DestroyImageView(id host.ImageViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.views, id)
}

func (d *Device) WriteImage(id host.ImageID, data []byte, _ uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[id]
	if !ok {
		return fmt.Errorf("%w: image %d", host.ErrInvalidHandle, id)
	}
	if len(data) > len(img.data) {
		return fmt.Errorf("%w: write of %d bytes to image capacity %d",
			ErrOutOfBounds, len(data), len(img.data))
	}
	copy(img.data, data)
	return nil
}

func (d *Device) ReadImage(id host.ImageID, dst []byte, _ uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[id]
	if !ok {
		return fmt.Errorf("%w: image %d", host.ErrInvalidHandle, id)
	}
	if len(dst) > len(img.data) {
		return fmt.Errorf("%w: read of %d bytes from image capacity %d",
			ErrOutOfBounds, len(dst), len(img.data))
	}
	copy(dst, img.data)
	return nil
}

// === Shaders ===

func (d *Device) CreateShaderModule(_ string, spirv []byte) (host.ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return host.InvalidID, ErrDestroyed
	}
	id := host.ShaderModuleID(d.alloc())
	d.shaders[id] = append([]byte(nil), spirv...)
	return id, nil
}

func (d *Device) DestroyShaderModule(id host.ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.shaders, id)
}

// === Descriptors ===

func (d *Device) CreateDescriptorSetLayout(desc *host.DescriptorSetLayoutDescriptor) (host.DescriptorSetLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := host.DescriptorSetLayoutID(d.alloc())
	d.setLayouts[id] = *desc
	return id, nil
}

func (d *Device) DestroyDescriptorSetLayout(id host.DescriptorSetLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.setLayouts, id)
}

func (d *Device) AllocateDescriptorSets(layout host.DescriptorSetLayoutID, count int) ([]host.DescriptorSetID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.setLayouts[layout]; !ok {
		return nil, fmt.Errorf("%w: set layout %d", host.ErrInvalidHandle, layout)
	}
	ids := make([]host.DescriptorSetID, count)
	for i := range ids {
		ids[i] = host.DescriptorSetID(d.alloc())
		d.sets[ids[i]] = nil
	}
	return ids, nil
}

func (d *Device) UpdateDescriptorSet(set host.DescriptorSetID, writes []host.DescriptorWrite) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sets[set]; !ok {
		return fmt.Errorf("%w: descriptor set %d", host.ErrInvalidHandle, set)
	}
	d.sets[set] = append([]host.DescriptorWrite(nil), writes...)
	return nil
}

// === Pipelines ===

func (d *Device) CreatePipelineLayout(desc *host.PipelineLayoutDescriptor) (host.PipelineLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := host.PipelineLayoutID(d.alloc())
	d.layouts[id] = *desc
	return id, nil
}

func (d *Device) DestroyPipelineLayout(id host.PipelineLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.layouts, id)
}

func (d *Device) CreateRenderPipeline(desc *host.RenderPipelineDescriptor) (host.PipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.VertexShader != host.InvalidID {
		if _, ok := d.shaders[desc.VertexShader]; !ok {
			return host.InvalidID, fmt.Errorf("%w: vertex shader %d", host.ErrInvalidHandle, desc.VertexShader)
		}
	}
	id := host.PipelineID(d.alloc())
	d.pipelines[id] = *desc
	return id, nil
}

func (d *Device) DestroyPipeline(id host.PipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pipelines, id)
}

// === Fences ===

func (d *Device) CreateFence() (host.FenceID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return host.InvalidID, ErrDestroyed
	}
	id := host.FenceID(d.alloc())
	d.fences[id] = 0
	return id, nil
}

func (d *Device) DestroyFence(id host.FenceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.fences, id)
}

func (d *Device) WaitFence(id host.FenceID, value uint64, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	current, ok := d.fences[id]
	if !ok {
		return false, fmt.Errorf("%w: fence %d", host.ErrInvalidHandle, id)
	}
	// Submissions execute synchronously, so a fence never signals late: it
	// is either already past value or never will be.
	return current >= value, nil
}

// === Submission ===

func (d *Device) NewCommandEncoder(label string) (host.CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil, ErrDestroyed
	}
	return &encoder{dev: d, label: label}, nil
}

func (d *Device) Submit(commands host.CommandList, fence host.FenceID, value uint64) error {
	list, ok := commands.(*commandList)
	if !ok {
		return fmt.Errorf("%w: foreign command list", host.ErrInvalidHandle)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.fences[fence]; !ok {
		return fmt.Errorf("%w: fence %d", host.ErrInvalidHandle, fence)
	}
	for _, op := range list.copies {
		if err := d.copyLocked(op); err != nil {
			return err
		}
	}
	d.submits++
	d.draws += list.draws
	d.passes += list.passes
	d.fences[fence] = value
	return nil
}

func (d *Device) copyLocked(op copyOp) error {
	src, ok := d.buffers[op.src]
	if !ok {
		return fmt.Errorf("%w: copy source %d", host.ErrInvalidHandle, op.src)
	}
	dst, ok := d.buffers[op.dst]
	if !ok {
		return fmt.Errorf("%w: copy destination %d", host.ErrInvalidHandle, op.dst)
	}
	for _, region := range op.regions {
		if region.SrcOffset+region.Size > uint64(len(src.data)) ||
			region.DstOffset+region.Size > uint64(len(dst.data)) {
			return fmt.Errorf("%w: copy of %d bytes", ErrOutOfBounds, region.Size)
		}
		copy(dst.data[region.DstOffset:region.DstOffset+region.Size],
			src.data[region.SrcOffset:region.SrcOffset+region.Size])
	}
	return nil
}

func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed = true
	d.buffers = map[host.BufferID]*bufferObj{}
	d.images = map[host.ImageID]*imageObj{}
	d.views = map[host.ImageViewID]host.ImageID{}
	d.shaders = map[host.ShaderModuleID][]byte{}
	d.fences = map[host.FenceID]uint64{}
}

// Stats is a point-in-time snapshot of device activity.
type Stats struct {
	Submits   uint64
	Draws     uint64
	Passes    uint64
	Buffers   int
	Images    int
	Pipelines int
}

// Stats returns a snapshot of device activity.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Submits:   d.submits,
		Draws:     d.draws,
		Passes:    d.passes,
		Buffers:   len(d.buffers),
		Images:    len(d.images),
		Pipelines: len(d.pipelines),
	}
}

func (st Stats) String() string {
	return fmt.Sprintf("Device{submits: %d, draws: %d, passes: %d, buffers: %d, images: %d, pipelines: %d}",
		st.Submits, st.Draws, st.Passes, st.Buffers, st.Images, st.Pipelines)
}
