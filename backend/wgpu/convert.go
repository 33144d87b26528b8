// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/maxwell/host"
)

// spirvWords reassembles a little-endian SPIR-V byte stream into the
// 32-bit words the HAL consumes. A trailing partial word is dropped.
func spirvWords(spirv []byte) []uint32 {
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words
}

func bindGroupLayoutEntries(bindings []host.DescriptorBinding) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(bindings))
	for _, b := range bindings {
		entry := gputypes.BindGroupLayoutEntry{
			Binding:    b.Binding,
			Visibility: b.Stages,
		}
		switch b.Type {
		case host.DescriptorUniformBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		case host.DescriptorStorageBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
		case host.DescriptorCombinedImageSampler:
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func stencilOperation(op host.StencilOperation) hal.StencilOperation {
	switch op {
	case host.StencilOpZero:
		return hal.StencilOperationZero
	case host.StencilOpReplace:
		return hal.StencilOperationReplace
	case host.StencilOpInvert:
		return hal.StencilOperationInvert
	case host.StencilOpIncrementClamp:
		return hal.StencilOperationIncrementClamp
	case host.StencilOpDecrementClamp:
		return hal.StencilOperationDecrementClamp
	case host.StencilOpIncrementWrap:
		return hal.StencilOperationIncrementWrap
	case host.StencilOpDecrementWrap:
		return hal.StencilOperationDecrementWrap
	default:
		return hal.StencilOperationKeep
	}
}

func stencilFace(face host.StencilFace) hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     face.Compare,
		FailOp:      stencilOperation(face.FailOp),
		DepthFailOp: stencilOperation(face.DepthFailOp),
		PassOp:      stencilOperation(face.PassOp),
	}
}

func blendComponent(c host.BlendComponent) gputypes.BlendComponent {
	return gputypes.BlendComponent{
		Operation: c.Op,
		SrcFactor: c.Src,
		DstFactor: c.Dst,
	}
}

func vertexBufferLayouts(bindings []host.VertexBufferBinding) []gputypes.VertexBufferLayout {
	layouts := make([]gputypes.VertexBufferLayout, 0, len(bindings))
	for _, b := range bindings {
		layout := gputypes.VertexBufferLayout{
			ArrayStride: uint64(b.Stride),
			StepMode:    gputypes.VertexStepModeVertex,
		}
		if b.PerInstance {
			layout.StepMode = gputypes.VertexStepModeInstance
		}
		for _, attr := range b.Attributes {
			layout.Attributes = append(layout.Attributes, gputypes.VertexAttribute{
				Format:         attr.Format,
				Offset:         uint64(attr.Offset),
				ShaderLocation: attr.Location,
			})
		}
		layouts = append(layouts, layout)
	}
	return layouts
}

// renderPipelineDescLocked resolves a host pipeline descriptor into the
// HAL form. The caller holds d.mu for the handle lookups.
func (d *Device) renderPipelineDescLocked(desc *host.RenderPipelineDescriptor) (*hal.RenderPipelineDescriptor, error) {
	layout, ok := d.layouts[desc.Layout]
	if !ok {
		return nil, fmt.Errorf("%w: pipeline layout %d", host.ErrInvalidHandle, desc.Layout)
	}
	vertex, ok := d.shaders[desc.VertexShader]
	if !ok {
		return nil, fmt.Errorf("%w: vertex shader %d", host.ErrInvalidHandle, desc.VertexShader)
	}

	halDesc := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vertex,
			EntryPoint: desc.VertexEntry,
			Buffers:    vertexBufferLayouts(desc.VertexBuffers),
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  desc.Topology,
			CullMode:  desc.CullMode,
			FrontFace: desc.FrontFace,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}

	if desc.FragmentShader != host.InvalidID {
		fragment, ok := d.shaders[desc.FragmentShader]
		if !ok {
			return nil, fmt.Errorf("%w: fragment shader %d", host.ErrInvalidHandle, desc.FragmentShader)
		}
		targets := make([]gputypes.ColorTargetState, 0, len(desc.ColorTargets))
		for _, target := range desc.ColorTargets {
			state := gputypes.ColorTargetState{
				Format:    target.Format,
				WriteMask: target.WriteMask,
			}
			if target.Blend != nil {
				state.Blend = &gputypes.BlendState{
					Color: blendComponent(target.Blend.Color),
					Alpha: blendComponent(target.Blend.Alpha),
				}
			}
			targets = append(targets, state)
		}
		halDesc.Fragment = &hal.FragmentState{
			Module:     fragment,
			EntryPoint: desc.FragmentEntry,
			Targets:    targets,
		}
	}

	if ds := desc.DepthStencil; ds != nil {
		halDesc.DepthStencil = &hal.DepthStencilState{
			Format:            ds.Format,
			DepthWriteEnabled: ds.DepthWrite,
			DepthCompare:      ds.DepthCompare,
			StencilFront:      stencilFace(ds.StencilFront),
			StencilBack:       stencilFace(ds.StencilBack),
			StencilReadMask:   ds.StencilReadMask,
			StencilWriteMask:  ds.StencilWriteMask,
		}
	}
	return halDesc, nil
}
