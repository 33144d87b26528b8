// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package host

// Resource IDs
//
// These opaque IDs name host GPU resources. Each backend maintains the
// mapping between IDs and its native objects. IDs are uint64 to
// accommodate any backend handle size.

// BufferID is an opaque handle to a host buffer.
type BufferID uint64

// ImageID is an opaque handle to a host image.
type ImageID uint64

// ImageViewID is an opaque handle to a view over a host image.
type ImageViewID uint64

// SamplerID is an opaque handle to a sampler.
type SamplerID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// PipelineID is an opaque handle to a render pipeline.
type PipelineID uint64

// PipelineLayoutID is an opaque handle to a pipeline layout.
type PipelineLayoutID uint64

// DescriptorSetLayoutID is an opaque handle to a descriptor set layout.
type DescriptorSetLayoutID uint64

// DescriptorSetID is an opaque handle to an allocated descriptor set.
type DescriptorSetID uint64

// FenceID is an opaque handle to a timeline fence.
type FenceID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0
