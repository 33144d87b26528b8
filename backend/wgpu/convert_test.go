// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/maxwell/host"
)

func TestSpirvWords(t *testing.T) {
	// SPIR-V magic number 0x07230203 in little-endian bytes.
	words := spirvWords([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	if len(words) != 2 {
		t.Fatalf("len = %d, want 2", len(words))
	}
	if words[0] != 0x07230203 {
		t.Errorf("words[0] = %#x, want 0x07230203", words[0])
	}
	if words[1] != 1 {
		t.Errorf("words[1] = %d, want 1", words[1])
	}

	// A trailing partial word is dropped.
	if got := spirvWords([]byte{1, 2, 3}); len(got) != 0 {
		t.Errorf("partial word: len = %d, want 0", len(got))
	}
}

func TestBindGroupLayoutEntries(t *testing.T) {
	entries := bindGroupLayoutEntries([]host.DescriptorBinding{
		{Binding: 0, Type: host.DescriptorUniformBuffer, Stages: gputypes.ShaderStageVertex},
		{Binding: 1, Type: host.DescriptorStorageBuffer, Stages: gputypes.ShaderStageFragment},
		{Binding: 2, Type: host.DescriptorCombinedImageSampler, Stages: gputypes.ShaderStageFragment},
	})
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Buffer == nil || entries[0].Buffer.Type != gputypes.BufferBindingTypeUniform {
		t.Error("binding 0 is not a uniform buffer layout")
	}
	if entries[1].Buffer == nil || entries[1].Buffer.Type != gputypes.BufferBindingTypeStorage {
		t.Error("binding 1 is not a storage buffer layout")
	}
	if entries[2].Texture == nil {
		t.Error("binding 2 is not a texture layout")
	}
	if entries[2].Buffer != nil {
		t.Error("binding 2 carries a buffer layout")
	}
}

func TestVertexBufferLayouts(t *testing.T) {
	layouts := vertexBufferLayouts([]host.VertexBufferBinding{
		{
			Stride:      16,
			PerInstance: true,
			Attributes: []host.VertexAttribute{
				{Location: 3, Format: gputypes.VertexFormatFloat32x4, Offset: 0},
			},
		},
	})
	if len(layouts) != 1 {
		t.Fatalf("len = %d, want 1", len(layouts))
	}
	if layouts[0].ArrayStride != 16 {
		t.Errorf("stride = %d, want 16", layouts[0].ArrayStride)
	}
	if layouts[0].StepMode != gputypes.VertexStepModeInstance {
		t.Errorf("step mode = %v, want instance", layouts[0].StepMode)
	}
	if layouts[0].Attributes[0].ShaderLocation != 3 {
		t.Errorf("location = %d, want 3", layouts[0].Attributes[0].ShaderLocation)
	}
}
