// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package null

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/maxwell/backend"
	"github.com/gogpu/maxwell/host"
)

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.BackendNull) {
		t.Fatal("null backend not registered on import")
	}
	b := backend.Get(backend.BackendNull)
	if b == nil {
		t.Fatal("Get returned nil")
	}
	if b.Name() != backend.BackendNull {
		t.Errorf("Name = %q, want %q", b.Name(), backend.BackendNull)
	}
	dev, err := b.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dev.Destroy()
}

func TestBufferReadWrite(t *testing.T) {
	dev := NewDevice()
	defer dev.Destroy()

	id, err := dev.CreateBuffer(&host.BufferDescriptor{Label: "scratch", Size: 64})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	want := []byte{1, 2, 3, 4}
	if err := dev.WriteBuffer(id, 8, want); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	got := make([]byte, 4)
	if err := dev.ReadBuffer(id, 8, got); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("read back %v, want %v", got, want)
	}

	if err := dev.WriteBuffer(id, 62, want); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("overflowing write: err = %v, want ErrOutOfBounds", err)
	}
	if err := dev.WriteBuffer(id+100, 0, want); !errors.Is(err, host.ErrInvalidHandle) {
		t.Errorf("unknown buffer: err = %v, want ErrInvalidHandle", err)
	}
}

func TestSubmitExecutesCopies(t *testing.T) {
	dev := NewDevice()
	defer dev.Destroy()

	src, _ := dev.CreateBuffer(&host.BufferDescriptor{Size: 16})
	dst, _ := dev.CreateBuffer(&host.BufferDescriptor{Size: 16})
	if err := dev.WriteBuffer(src, 0, []byte{9, 8, 7, 6}); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}

	enc, err := dev.NewCommandEncoder("copy")
	if err != nil {
		t.Fatalf("NewCommandEncoder: %v", err)
	}
	if err := enc.Begin("copy"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := enc.CopyBufferToBuffer(src, dst, []host.BufferCopy{{Size: 4, DstOffset: 4}}); err != nil {
		t.Fatalf("CopyBufferToBuffer: %v", err)
	}
	list, err := enc.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}

	fence, err := dev.CreateFence()
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	if err := dev.Submit(list, fence, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Synchronous execution: the fence is already past the value and the
	// copy landed.
	done, err := dev.WaitFence(fence, 1, 0)
	if err != nil || !done {
		t.Fatalf("WaitFence = %v, %v; want true, nil", done, err)
	}
	got := make([]byte, 4)
	if err := dev.ReadBuffer(dst, 4, got); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if !bytes.Equal(got, []byte{9, 8, 7, 6}) {
		t.Errorf("copied bytes = %v, want [9 8 7 6]", got)
	}
}

func TestPassBracketValidation(t *testing.T) {
	dev := NewDevice()
	defer dev.Destroy()

	enc, _ := dev.NewCommandEncoder("passes")
	if err := enc.Begin("passes"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := enc.Draw(3, 1, 0, 0); !errors.Is(err, ErrPassBracket) {
		t.Errorf("Draw outside pass: err = %v, want ErrPassBracket", err)
	}
	if err := enc.BeginRenderPass(&host.RenderPassDescriptor{}); err != nil {
		t.Fatalf("BeginRenderPass: %v", err)
	}
	if err := enc.Draw(3, 1, 0, 0); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if _, err := enc.End(); !errors.Is(err, ErrPassBracket) {
		t.Errorf("End inside pass: err = %v, want ErrPassBracket", err)
	}
	if err := enc.EndRenderPass(); err != nil {
		t.Fatalf("EndRenderPass: %v", err)
	}
	list, err := enc.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}

	fence, _ := dev.CreateFence()
	if err := dev.Submit(list, fence, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	st := dev.Stats()
	if st.Draws != 1 || st.Passes != 1 || st.Submits != 1 {
		t.Errorf("stats = %v, want 1 draw, 1 pass, 1 submit", st)
	}
}

func TestImageReadWrite(t *testing.T) {
	dev := NewDevice()
	defer dev.Destroy()

	img, err := dev.CreateImage(&host.ImageDescriptor{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	view, err := dev.CreateImageView(img, &host.ImageViewDescriptor{})
	if err != nil {
		t.Fatalf("CreateImageView: %v", err)
	}
	if view == host.InvalidID {
		t.Fatal("view ID is invalid")
	}

	data := make([]byte, 4*4*4)
	for i := range data {
		data[i] = byte(i)
	}
	if err := dev.WriteImage(img, data, 16); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}
	got := make([]byte, len(data))
	if err := dev.ReadImage(img, got, 16); err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("image readback mismatch")
	}

	if _, err := dev.CreateImageView(img+100, nil); !errors.Is(err, host.ErrInvalidHandle) {
		t.Errorf("view of unknown image: err = %v, want ErrInvalidHandle", err)
	}
}

func TestDescriptorSets(t *testing.T) {
	dev := NewDevice()
	defer dev.Destroy()

	layout, err := dev.CreateDescriptorSetLayout(&host.DescriptorSetLayoutDescriptor{
		Bindings: []host.DescriptorBinding{{Binding: 0, Type: host.DescriptorUniformBuffer}},
	})
	if err != nil {
		t.Fatalf("CreateDescriptorSetLayout: %v", err)
	}
	sets, err := dev.AllocateDescriptorSets(layout, 3)
	if err != nil {
		t.Fatalf("AllocateDescriptorSets: %v", err)
	}
	if len(sets) != 3 {
		t.Fatalf("allocated %d sets, want 3", len(sets))
	}
	buf, _ := dev.CreateBuffer(&host.BufferDescriptor{Size: 256})
	if err := dev.UpdateDescriptorSet(sets[0], []host.DescriptorWrite{
		{Binding: 0, Buffer: buf, Size: 256},
	}); err != nil {
		t.Fatalf("UpdateDescriptorSet: %v", err)
	}
}
