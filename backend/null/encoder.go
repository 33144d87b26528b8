// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package null

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/maxwell/host"
)

var (
	// ErrNotRecording is returned when commands are recorded outside
	// Begin/End.
	ErrNotRecording = errors.New("null: encoder not recording")

	// ErrPassBracket is returned on unbalanced render pass brackets.
	ErrPassBracket = errors.New("null: unbalanced render pass bracket")
)

type copyOp struct {
	src     host.BufferID
	dst     host.BufferID
	regions []host.BufferCopy
}

type commandList struct {
	label  string
	copies []copyOp
	draws  uint64
	passes uint64
}

// encoder records commands into a commandList. Validation is structural
// only: bracket balance and recording state, nothing pixel-level.
type encoder struct {
	dev   *Device
	label string

	recording bool
	inPass    bool
	list      *commandList
}

func (e *encoder) Begin(label string) error {
	if e.recording {
		return fmt.Errorf("null: encoder %q already recording", e.label)
	}
	e.recording = true
	e.list = &commandList{label: label}
	return nil
}

func (e *encoder) CopyBufferToBuffer(src, dst host.BufferID, copies []host.BufferCopy) error {
	if !e.recording {
		return ErrNotRecording
	}
	e.list.copies = append(e.list.copies, copyOp{
		src:     src,
		dst:     dst,
		regions: append([]host.BufferCopy(nil), copies...),
	})
	return nil
}

func (e *encoder) BeginRenderPass(_ *host.RenderPassDescriptor) error {
	if !e.recording {
		return ErrNotRecording
	}
	if e.inPass {
		return fmt.Errorf("%w: BeginRenderPass inside pass", ErrPassBracket)
	}
	e.inPass = true
	e.list.passes++
	return nil
}

func (e *encoder) SetPipeline(host.PipelineID) error { return e.checkPass() }
func (e *encoder) SetDescriptorSet(uint32, host.DescriptorSetID) error {
	return e.checkPass()
}
func (e *encoder) SetVertexBuffer(uint32, host.BufferID, uint64) error { return e.checkPass() }
func (e *encoder) SetIndexBuffer(host.BufferID, uint64, gputypes.IndexFormat) error {
	return e.checkPass()
}

func (e *encoder) Draw(_, _, _, _ uint32) error {
	if err := e.checkPass(); err != nil {
		return err
	}
	e.list.draws++
	return nil
}

func (e *encoder) DrawIndexed(_, _, _ uint32, _ int32, _ uint32) error {
	if err := e.checkPass(); err != nil {
		return err
	}
	e.list.draws++
	return nil
}

func (e *encoder) EndRenderPass() error {
	if !e.inPass {
		return fmt.Errorf("%w: EndRenderPass outside pass", ErrPassBracket)
	}
	e.inPass = false
	return nil
}

func (e *encoder) End() (host.CommandList, error) {
	if !e.recording {
		return nil, ErrNotRecording
	}
	if e.inPass {
		return nil, fmt.Errorf("%w: End inside pass", ErrPassBracket)
	}
	e.recording = false
	list := e.list
	e.list = nil
	return list, nil
}

func (e *encoder) Discard() {
	e.recording = false
	e.inPass = false
	e.list = nil
}

func (e *encoder) checkPass() error {
	if !e.recording {
		return ErrNotRecording
	}
	if !e.inPass {
		return fmt.Errorf("%w: draw state outside pass", ErrPassBracket)
	}
	return nil
}
