// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package host

import (
	"errors"
	"time"

	"github.com/gogpu/gputypes"
)

var (
	// ErrDeviceLost reports that the backend device is unusable; the only
	// recovery is full reinitialization.
	ErrDeviceLost = errors.New("host: device lost")

	// ErrUnsupported reports a descriptor the backend cannot realize.
	ErrUnsupported = errors.New("host: unsupported descriptor")

	// ErrInvalidHandle reports an operation on an unknown resource ID.
	ErrInvalidHandle = errors.New("host: invalid handle")
)

// BufferDescriptor describes a host buffer allocation.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// ImageDescriptor describes a host image allocation. Images are 2D unless
// Depth is greater than one.
type ImageDescriptor struct {
	Label     string
	Width     uint32
	Height    uint32
	Depth     uint32
	MipLevels uint32
	Samples   uint32
	Format    gputypes.TextureFormat
	Usage     gputypes.TextureUsage
}

// ImageViewDescriptor describes a view over an image.
type ImageViewDescriptor struct {
	Label     string
	BaseLevel uint32
	Levels    uint32
	BaseLayer uint32
	Layers    uint32
}

// DescriptorType classifies a shader resource binding.
type DescriptorType int

const (
	DescriptorUniformBuffer DescriptorType = iota + 1
	DescriptorStorageBuffer
	DescriptorCombinedImageSampler
)

// DescriptorBinding is one slot of a descriptor set layout.
type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Stages  gputypes.ShaderStage
}

// DescriptorSetLayoutDescriptor describes a descriptor set layout.
type DescriptorSetLayoutDescriptor struct {
	Label    string
	Bindings []DescriptorBinding
}

// DescriptorWrite binds one resource into a descriptor set.
type DescriptorWrite struct {
	Binding uint32
	Buffer  BufferID
	Offset  uint64
	Size    uint64
	View    ImageViewID
	Sampler SamplerID
}

// PipelineLayoutDescriptor combines per-stage set layouts.
type PipelineLayoutDescriptor struct {
	Label      string
	SetLayouts []DescriptorSetLayoutID
}

// VertexAttribute is one attribute within a vertex buffer binding.
type VertexAttribute struct {
	Location uint32
	Format   gputypes.VertexFormat
	Offset   uint32
}

// VertexBufferBinding is one vertex buffer slot of a pipeline.
type VertexBufferBinding struct {
	Stride      uint32
	PerInstance bool
	Attributes  []VertexAttribute
}

// StencilOperation is the action applied to a stencil value. Kept
// backend-neutral here; backends map it onto their native encoding.
type StencilOperation int

const (
	StencilOpKeep StencilOperation = iota
	StencilOpZero
	StencilOpReplace
	StencilOpInvert
	StencilOpIncrementClamp
	StencilOpDecrementClamp
	StencilOpIncrementWrap
	StencilOpDecrementWrap
)

// StencilFace is the per-face stencil state of a pipeline.
type StencilFace struct {
	Compare     gputypes.CompareFunction
	FailOp      StencilOperation
	DepthFailOp StencilOperation
	PassOp      StencilOperation
}

// DepthStencilState configures the depth/stencil stage.
type DepthStencilState struct {
	Format           gputypes.TextureFormat
	DepthWrite       bool
	DepthCompare     gputypes.CompareFunction
	StencilFront     StencilFace
	StencilBack      StencilFace
	StencilReadMask  uint32
	StencilWriteMask uint32
}

// BlendComponent is one half (color or alpha) of a blend equation.
type BlendComponent struct {
	Src gputypes.BlendFactor
	Dst gputypes.BlendFactor
	Op  gputypes.BlendOperation
}

// BlendState is the per-target blend configuration.
type BlendState struct {
	Color BlendComponent
	Alpha BlendComponent
}

// ColorTarget is one color attachment slot of a pipeline.
type ColorTarget struct {
	Format    gputypes.TextureFormat
	Blend     *BlendState
	WriteMask gputypes.ColorWriteMask
}

// RenderPipelineDescriptor describes a complete render pipeline.
type RenderPipelineDescriptor struct {
	Label          string
	Layout         PipelineLayoutID
	VertexShader   ShaderModuleID
	VertexEntry    string
	FragmentShader ShaderModuleID
	FragmentEntry  string
	VertexBuffers  []VertexBufferBinding
	Topology       gputypes.PrimitiveTopology
	CullMode       gputypes.CullMode
	FrontFace      gputypes.FrontFace
	DepthStencil   *DepthStencilState
	ColorTargets   []ColorTarget
}

// BufferCopy is one region of a buffer-to-buffer copy.
type BufferCopy struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

// ColorAttachment is one color target of a render pass.
type ColorAttachment struct {
	View  ImageViewID
	Load  gputypes.LoadOp
	Store gputypes.StoreOp
	Clear gputypes.Color
}

// DepthStencilAttachment is the depth/stencil target of a render pass.
type DepthStencilAttachment struct {
	View         ImageViewID
	DepthLoad    gputypes.LoadOp
	DepthStore   gputypes.StoreOp
	DepthClear   float32
	StencilLoad  gputypes.LoadOp
	StencilStore gputypes.StoreOp
	StencilClear uint32
}

// RenderPassDescriptor describes one render pass.
type RenderPassDescriptor struct {
	Label        string
	Colors       []ColorAttachment
	DepthStencil *DepthStencilAttachment
}

// CommandList is an opaque recorded command buffer, produced by
// CommandEncoder.End and consumed by Device.Submit exactly once.
type CommandList any

// CommandEncoder records host GPU commands. Encoders are single-use per
// batch: Begin, record, End. A render pass bracket must be closed before
// End. Not safe for concurrent use.
type CommandEncoder interface {
	Begin(label string) error

	CopyBufferToBuffer(src, dst BufferID, copies []BufferCopy) error

	BeginRenderPass(desc *RenderPassDescriptor) error
	SetPipeline(pipeline PipelineID) error
	SetDescriptorSet(index uint32, set DescriptorSetID) error
	SetVertexBuffer(slot uint32, buffer BufferID, offset uint64) error
	SetIndexBuffer(buffer BufferID, offset uint64, format gputypes.IndexFormat) error
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) error
	EndRenderPass() error

	// End closes recording and yields the command list. The encoder must
	// not be reused afterwards.
	End() (CommandList, error)

	// Discard abandons the recording (device loss path).
	Discard()
}

// Device is the host graphics device consumed by the caches and the
// scheduler. Implementations live under backend/. All entry points are
// called from the single emulation thread.
type Device interface {
	CreateBuffer(desc *BufferDescriptor) (BufferID, error)
	DestroyBuffer(id BufferID)
	// WriteBuffer uploads data through the transfer queue; the write is
	// ordered before any subsequently submitted command list.
	WriteBuffer(id BufferID, offset uint64, data []byte) error
	// ReadBuffer blocks until prior submissions complete, then copies.
	ReadBuffer(id BufferID, offset uint64, dst []byte) error

	CreateImage(desc *ImageDescriptor) (ImageID, error)
	DestroyImage(id ImageID)
	CreateImageView(image ImageID, desc *ImageViewDescriptor) (ImageViewID, error)
	DestroyImageView(id ImageViewID)
	// WriteImage uploads tightly packed pixel rows for mip level zero.
	WriteImage(id ImageID, data []byte, bytesPerRow uint32) error
	// ReadImage blocks until prior submissions complete, then copies the
	// image contents as tightly packed rows.
	ReadImage(id ImageID, dst []byte, bytesPerRow uint32) error

	CreateShaderModule(label string, spirv []byte) (ShaderModuleID, error)
	DestroyShaderModule(id ShaderModuleID)

	CreateDescriptorSetLayout(desc *DescriptorSetLayoutDescriptor) (DescriptorSetLayoutID, error)
	DestroyDescriptorSetLayout(id DescriptorSetLayoutID)
	AllocateDescriptorSets(layout DescriptorSetLayoutID, count int) ([]DescriptorSetID, error)
	UpdateDescriptorSet(set DescriptorSetID, writes []DescriptorWrite) error

	CreatePipelineLayout(desc *PipelineLayoutDescriptor) (PipelineLayoutID, error)
	DestroyPipelineLayout(id PipelineLayoutID)
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (PipelineID, error)
	DestroyPipeline(id PipelineID)

	CreateFence() (FenceID, error)
	DestroyFence(id FenceID)
	// WaitFence waits until the fence reaches value or the timeout
	// elapses. A zero timeout polls.
	WaitFence(id FenceID, value uint64, timeout time.Duration) (bool, error)

	NewCommandEncoder(label string) (CommandEncoder, error)
	// Submit enqueues the command list and signals fence with value once
	// execution completes.
	Submit(commands CommandList, fence FenceID, value uint64) error

	Destroy()
}
