// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package buffer

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/maxwell/host"
)

// Stream buffer sizing. The default comfortably holds several frames of
// vertex, index and uniform traffic before wrapping.
const (
	DefaultStreamSize = 64 << 20
	MinStreamSize     = 1 << 20
)

var (
	// ErrReserveTooLarge reports a reservation bigger than the stream.
	ErrReserveTooLarge = errors.New("buffer: reservation exceeds stream size")

	// ErrNoReservation reports a Send without a preceding Reserve.
	ErrNoReservation = errors.New("buffer: send without reservation")
)

// StreamBuffer is a linear allocator over one large host buffer with a
// CPU shadow. Reserve obtains a write window in the shadow, Send uploads
// the written prefix. Wrapping back to offset zero invalidates every
// offset handed out before.
type StreamBuffer struct {
	dev    host.Device
	buffer host.BufferID
	size   uint64
	shadow []byte

	cursor    uint64
	resOffset uint64
	reserved  uint64
	active    bool
}

// NewStreamBuffer allocates the host buffer and its shadow. A size of
// zero selects DefaultStreamSize; smaller sizes clamp to MinStreamSize.
func NewStreamBuffer(dev host.Device, size uint64) (*StreamBuffer, error) {
	if size == 0 {
		size = DefaultStreamSize
	}
	if size < MinStreamSize {
		size = MinStreamSize
	}
	buffer, err := dev.CreateBuffer(&host.BufferDescriptor{
		Label: "stream",
		Size:  size,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageIndex |
			gputypes.BufferUsageUniform | gputypes.BufferUsageStorage |
			gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &StreamBuffer{
		dev:    dev,
		buffer: buffer,
		size:   size,
		shadow: make([]byte, size),
	}, nil
}

// Buffer returns the host buffer every returned offset refers to.
func (b *StreamBuffer) Buffer() host.BufferID { return b.buffer }

// Size returns the stream capacity in bytes.
func (b *StreamBuffer) Size() uint64 { return b.size }

// Align rounds the cursor up to a power-of-two alignment.
func (b *StreamBuffer) Align(alignment uint64) {
	if alignment > 1 {
		b.cursor = (b.cursor + alignment - 1) &^ (alignment - 1)
	}
}

// Reserve obtains a write window of up to maxSize bytes. The second
// result reports a wraparound: every offset handed out before it is
// stale and cached mappings over them must be dropped.
func (b *StreamBuffer) Reserve(maxSize uint64) (uint64, bool, error) {
	if maxSize > b.size {
		return 0, false, fmt.Errorf("%w: %d > %d", ErrReserveTooLarge, maxSize, b.size)
	}
	invalidated := false
	if b.cursor+maxSize > b.size {
		b.cursor = 0
		invalidated = true
	}
	b.resOffset = b.cursor
	b.reserved = maxSize
	b.active = true
	return b.resOffset, invalidated, nil
}

// Bytes returns the shadow window of the current reservation.
func (b *StreamBuffer) Bytes() []byte {
	return b.shadow[b.resOffset : b.resOffset+b.reserved]
}

// Send uploads the first size bytes of the reservation and advances the
// cursor past them.
func (b *StreamBuffer) Send(size uint64) error {
	if !b.active || size > b.reserved {
		return fmt.Errorf("%w: send %d of %d reserved", ErrNoReservation, size, b.reserved)
	}
	if size > 0 {
		if err := b.dev.WriteBuffer(b.buffer, b.resOffset, b.shadow[b.resOffset:b.resOffset+size]); err != nil {
			return err
		}
	}
	b.cursor = b.resOffset + size
	b.reserved = 0
	b.active = false
	return nil
}

// Destroy releases the host buffer.
func (b *StreamBuffer) Destroy() {
	b.dev.DestroyBuffer(b.buffer)
}
