// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sched

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/maxwell/host"
)

// DefaultWaitTimeout bounds blocking fence waits. A device that has not
// signaled within this window is treated as lost.
const DefaultWaitTimeout = 5 * time.Second

var (
	// ErrFenceTimeout reports a blocking wait that expired.
	ErrFenceTimeout = errors.New("sched: fence wait timed out")

	// ErrNotSubmitted reports a wait on a fence never attached to a batch.
	ErrNotSubmitted = errors.New("sched: fence not submitted")
)

// Fence is one execution token: a lease on a backend timeline fence for a
// single batch. Leases are immutable once issued, so a watcher holding an
// old lease keeps observing the right timeline value after the underlying
// backend fence is reused for later batches.
type Fence struct {
	dev   host.Device
	id    host.FenceID
	value uint64 // timeline value this lease waits for

	submitted bool
	signaled  bool
}

func (f *Fence) markSubmitted() { f.submitted = true }

// ID is the backend fence handle; Value the timeline value of this lease.
func (f *Fence) ID() host.FenceID { return f.id }

// Value returns the timeline value the current lease waits for.
func (f *Fence) Value() uint64 { return f.value }

// Signaled polls the device once and reports whether the batch completed.
// The result is latched: after the first true, no more device calls.
func (f *Fence) Signaled() bool {
	if f.signaled {
		return true
	}
	if !f.submitted {
		return false
	}
	done, err := f.dev.WaitFence(f.id, f.value, 0)
	if err != nil {
		return false
	}
	f.signaled = done
	return done
}

// Wait blocks until the batch completes. Blocking waits are reserved for
// designated sync points: surface flush-to-guest, staging reuse,
// descriptor slab reuse, present.
func (f *Fence) Wait() error {
	if f.signaled {
		return nil
	}
	if !f.submitted {
		return ErrNotSubmitted
	}
	done, err := f.dev.WaitFence(f.id, f.value, DefaultWaitTimeout)
	if err != nil {
		return fmt.Errorf("sched: fence wait: %w", err)
	}
	if !done {
		return fmt.Errorf("%w: value %d", ErrFenceTimeout, f.value)
	}
	f.signaled = true
	return nil
}

func (f *Fence) destroy() {
	f.dev.DestroyFence(f.id)
}

// FenceWatch guards a resource pending on GPU completion, typically a
// readback region. Watching is cheap; the watch holds no device state.
type FenceWatch struct {
	fence *Fence
}

// Watch attaches the watch to the fence of the batch that touches the
// guarded resource. A previous watch is released by waiting first.
func (w *FenceWatch) Watch(f *Fence) error {
	if err := w.Release(); err != nil {
		return err
	}
	w.fence = f
	return nil
}

// TryWatch attaches only if the previous fence already completed.
func (w *FenceWatch) TryWatch(f *Fence) bool {
	if w.fence != nil && !w.fence.Signaled() {
		return false
	}
	w.fence = f
	return true
}

// Pending reports whether the guarded resource is still in flight.
func (w *FenceWatch) Pending() bool {
	return w.fence != nil && !w.fence.Signaled()
}

// Release blocks until the watched batch completes and detaches.
func (w *FenceWatch) Release() error {
	if w.fence == nil {
		return nil
	}
	if err := w.fence.Wait(); err != nil {
		return err
	}
	w.fence = nil
	return nil
}
