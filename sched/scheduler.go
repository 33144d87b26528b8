// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sched

import (
	"errors"
	"fmt"

	"github.com/gogpu/maxwell/host"
)

// State is the recording state of the scheduler.
type State int

const (
	// StateIdle means no encoder is open.
	StateIdle State = iota
	// StateRecording means commands are being recorded outside a pass.
	StateRecording
	// StateInPass means a render pass bracket is open.
	StateInPass
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRecording:
		return "Recording"
	case StateInPass:
		return "InPass"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

var (
	// ErrBadState reports a scheduler call outside its legal state.
	ErrBadState = errors.New("sched: operation not legal in current state")
)

// Submitter closes and submits the open batch. Caches hold one so that
// reading a resource back to guest memory can first push out commands
// still being recorded against it.
type Submitter interface {
	Flush() (*Fence, error)
}

// Scheduler owns the active command encoder and the fence timeline. One
// batch is always open for recording; Flush submits it and opens the
// next, so cache code can always reach a live encoder via Commands.
type Scheduler struct {
	dev host.Device

	enc     host.CommandEncoder
	state   State
	current *Fence

	// slots are backend fences recycled across batches.
	slots []*fenceSlot

	ticks   uint64 // completed flushes
	batches uint64 // opened batches
}

type fenceSlot struct {
	id    host.FenceID
	value uint64
	lease *Fence
}

// New creates a scheduler and opens the first recording batch.
func New(dev host.Device) (*Scheduler, error) {
	s := &Scheduler{dev: dev}
	if err := s.openBatch(); err != nil {
		return nil, err
	}
	return s, nil
}

// State returns the current recording state.
func (s *Scheduler) State() State { return s.state }

// Commands returns the encoder of the open batch. Valid in Recording and
// InPass states.
func (s *Scheduler) Commands() host.CommandEncoder { return s.enc }

// CurrentFence returns the fence that will be signaled when the open
// batch completes. Caches tag every resource they write with it.
func (s *Scheduler) CurrentFence() *Fence { return s.current }

// Ticks returns the number of completed Flush calls.
func (s *Scheduler) Ticks() uint64 { return s.ticks }

// BeginPass opens a render pass bracket on the open batch.
func (s *Scheduler) BeginPass(desc *host.RenderPassDescriptor) error {
	if s.state != StateRecording {
		return fmt.Errorf("%w: BeginPass in %v", ErrBadState, s.state)
	}
	if err := s.enc.BeginRenderPass(desc); err != nil {
		return fmt.Errorf("sched: begin pass: %w", err)
	}
	s.state = StateInPass
	return nil
}

// EndPass closes the open render pass bracket.
func (s *Scheduler) EndPass() error {
	if s.state != StateInPass {
		return fmt.Errorf("%w: EndPass in %v", ErrBadState, s.state)
	}
	if err := s.enc.EndRenderPass(); err != nil {
		return fmt.Errorf("sched: end pass: %w", err)
	}
	s.state = StateRecording
	return nil
}

// Flush closes the open batch, submits it with the batch fence and
// immediately opens a fresh batch. It returns the fence of the submitted
// batch. An open pass bracket is closed first.
func (s *Scheduler) Flush() (*Fence, error) {
	if s.state == StateInPass {
		if err := s.EndPass(); err != nil {
			return nil, err
		}
	}
	if s.state != StateRecording {
		return nil, fmt.Errorf("%w: Flush in %v", ErrBadState, s.state)
	}

	commands, err := s.enc.End()
	if err != nil {
		return nil, fmt.Errorf("sched: end encoding: %w", err)
	}
	fence := s.current
	if err := s.dev.Submit(commands, fence.id, fence.value); err != nil {
		return nil, fmt.Errorf("sched: submit: %w", err)
	}
	fence.markSubmitted()
	s.ticks++

	s.state = StateIdle
	s.enc = nil
	s.current = nil
	if err := s.openBatch(); err != nil {
		return fence, err
	}
	return fence, nil
}

// Finish flushes and blocks until the submitted batch completes. Used at
// designated sync points only.
func (s *Scheduler) Finish() error {
	fence, err := s.Flush()
	if err != nil {
		return err
	}
	return fence.Wait()
}

// Discard abandons the open batch without submitting (device loss path)
// and opens a fresh one.
func (s *Scheduler) Discard() error {
	if s.enc != nil {
		s.enc.Discard()
		s.enc = nil
	}
	s.state = StateIdle
	s.current = nil
	return s.openBatch()
}

// Destroy releases the scheduler's backend fences. The open batch is
// discarded.
func (s *Scheduler) Destroy() {
	if s.enc != nil {
		s.enc.Discard()
		s.enc = nil
	}
	for _, slot := range s.slots {
		s.dev.DestroyFence(slot.id)
	}
	s.slots = nil
	s.state = StateIdle
	s.current = nil
}

func (s *Scheduler) openBatch() error {
	fence, err := s.leaseFence()
	if err != nil {
		return err
	}
	enc, err := s.dev.NewCommandEncoder(fmt.Sprintf("batch_%d", s.batches))
	if err != nil {
		return fmt.Errorf("sched: new encoder: %w", err)
	}
	if err := enc.Begin(fmt.Sprintf("batch_%d", s.batches)); err != nil {
		return fmt.Errorf("sched: begin encoding: %w", err)
	}
	s.batches++
	s.enc = enc
	s.current = fence
	s.state = StateRecording
	return nil
}

// leaseFence reuses a backend fence whose previous lease completed, or
// creates a new one. The lease's timeline value is one past the slot's
// last signaled value.
func (s *Scheduler) leaseFence() (*Fence, error) {
	for _, slot := range s.slots {
		if slot.lease == nil || slot.lease.Signaled() {
			return slot.issue(s.dev), nil
		}
	}
	id, err := s.dev.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("sched: create fence: %w", err)
	}
	slot := &fenceSlot{id: id}
	s.slots = append(s.slots, slot)
	return slot.issue(s.dev), nil
}

func (slot *fenceSlot) issue(dev host.Device) *Fence {
	slot.value++
	slot.lease = &Fence{dev: dev, id: slot.id, value: slot.value}
	return slot.lease
}

// Stats is a point-in-time snapshot of scheduler activity.
type Stats struct {
	Ticks   uint64
	Batches uint64
	Fences  int
	State   State
}

// Stats returns a snapshot of scheduler activity.
func (s *Scheduler) Stats() Stats {
	return Stats{Ticks: s.ticks, Batches: s.batches, Fences: len(s.slots), State: s.state}
}

func (st Stats) String() string {
	return fmt.Sprintf("Scheduler{ticks: %d, batches: %d, fences: %d, state: %v}",
		st.Ticks, st.Batches, st.Fences, st.State)
}
