// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gmem

import (
	"errors"
	"fmt"
)

// Page geometry of the guest GPU MMU. Pages are 64 KiB.
const (
	PageBits = 16
	PageSize = 1 << PageBits
	PageMask = PageSize - 1
)

// AddressSpaceSize bounds the GPU virtual address space managed here.
const AddressSpaceSize uint64 = 1 << 40

var (
	// ErrUnmapped reports a translation of a GPU virtual address with no
	// page-table entry. Architecturally-guaranteed-mapped addresses make
	// this fatal for the caller.
	ErrUnmapped = errors.New("gmem: address not mapped")

	// ErrOutOfRange reports a backing memory access outside the range the
	// backing store covers.
	ErrOutOfRange = errors.New("gmem: access out of range")

	// ErrMisaligned reports a map request whose address or size is not
	// page aligned.
	ErrMisaligned = errors.New("gmem: misaligned map request")

	// ErrSpaceExhausted reports that no free GPU virtual range of the
	// requested size exists.
	ErrSpaceExhausted = errors.New("gmem: address space exhausted")
)

// Memory is the narrow view of guest memory the caches consume: address
// translation plus byte-exact block access at translated CPU addresses.
type Memory interface {
	// TranslateAddress resolves a GPU virtual address to a CPU address.
	TranslateAddress(gpuVA uint64) (uint64, bool)

	// ReadBlock copies len(dst) bytes of guest memory at a CPU address.
	ReadBlock(cpuAddr uint64, dst []byte) error

	// WriteBlock copies len(src) bytes into guest memory at a CPU address.
	WriteBlock(cpuAddr uint64, src []byte) error
}

// Backing is a CPU-addressed guest memory store.
type Backing interface {
	ReadBlock(cpuAddr uint64, dst []byte) error
	WriteBlock(cpuAddr uint64, src []byte) error
}

// RAM is an in-process Backing over a flat byte slice, addressed from a
// fixed base. Frontends embedding a real guest memory system supply their
// own Backing instead.
type RAM struct {
	base uint64
	data []byte
}

// NewRAM allocates size bytes of guest memory addressed from base.
func NewRAM(base, size uint64) *RAM {
	return &RAM{base: base, data: make([]byte, size)}
}

// Base returns the first valid CPU address.
func (r *RAM) Base() uint64 { return r.base }

// Size returns the backing size in bytes.
func (r *RAM) Size() uint64 { return uint64(len(r.data)) }

func (r *RAM) span(addr uint64, n int) ([]byte, error) {
	if addr < r.base || addr+uint64(n) > r.base+uint64(len(r.data)) {
		return nil, fmt.Errorf("%w: addr=%#x size=%d", ErrOutOfRange, addr, n)
	}
	off := addr - r.base
	return r.data[off : off+uint64(n)], nil
}

func (r *RAM) ReadBlock(cpuAddr uint64, dst []byte) error {
	src, err := r.span(cpuAddr, len(dst))
	if err != nil {
		return err
	}
	copy(dst, src)
	return nil
}

func (r *RAM) WriteBlock(cpuAddr uint64, src []byte) error {
	dst, err := r.span(cpuAddr, len(src))
	if err != nil {
		return err
	}
	copy(dst, src)
	return nil
}

// Manager is the guest GPU MMU: a sparse page table from GPU virtual pages
// to CPU page bases, over a Backing store. Not safe for concurrent use;
// it lives on the emulation thread with the rest of the command engine.
type Manager struct {
	backing Backing
	pages   map[uint64]uint64 // gpu page index -> cpu page base

	// allocCursor is the next GPU VA considered by MapAllocate. Freed
	// ranges are not recycled; the 40-bit space outlives any session.
	allocCursor uint64
}

// NewManager creates a Manager over the given backing store.
func NewManager(backing Backing) *Manager {
	return &Manager{
		backing:     backing,
		pages:       make(map[uint64]uint64),
		allocCursor: PageSize, // keep page zero unmapped to catch null addresses
	}
}

// Map installs a translation of [gpuAddr, gpuAddr+size) to the CPU range
// starting at cpuAddr. Address and size must be page aligned.
func (m *Manager) Map(gpuAddr, cpuAddr, size uint64) error {
	if gpuAddr&PageMask != 0 || cpuAddr&PageMask != 0 || size&PageMask != 0 {
		return fmt.Errorf("%w: gpu=%#x cpu=%#x size=%#x", ErrMisaligned, gpuAddr, cpuAddr, size)
	}
	for off := uint64(0); off < size; off += PageSize {
		m.pages[(gpuAddr+off)>>PageBits] = cpuAddr + off
	}
	return nil
}

// MapAllocate finds a free GPU virtual range of the given size, maps it to
// cpuAddr and returns its base. Size is rounded up to page granularity.
func (m *Manager) MapAllocate(cpuAddr, size uint64) (uint64, error) {
	size = (size + PageMask) &^ uint64(PageMask)
	if cpuAddr&PageMask != 0 {
		return 0, fmt.Errorf("%w: cpu=%#x", ErrMisaligned, cpuAddr)
	}
	base, err := m.findFree(size)
	if err != nil {
		return 0, err
	}
	if err := m.Map(base, cpuAddr, size); err != nil {
		return 0, err
	}
	return base, nil
}

func (m *Manager) findFree(size uint64) (uint64, error) {
	pages := size >> PageBits
	for base := m.allocCursor; base+size <= AddressSpaceSize; base += PageSize {
		free := true
		for p := uint64(0); p < pages; p++ {
			if _, ok := m.pages[(base>>PageBits)+p]; ok {
				free = false
				break
			}
		}
		if free {
			m.allocCursor = base + size
			return base, nil
		}
	}
	return 0, ErrSpaceExhausted
}

// Unmap removes the translation of [gpuAddr, gpuAddr+size).
func (m *Manager) Unmap(gpuAddr, size uint64) error {
	if gpuAddr&PageMask != 0 || size&PageMask != 0 {
		return fmt.Errorf("%w: gpu=%#x size=%#x", ErrMisaligned, gpuAddr, size)
	}
	for off := uint64(0); off < size; off += PageSize {
		delete(m.pages, (gpuAddr+off)>>PageBits)
	}
	return nil
}

// TranslateAddress resolves a GPU virtual address to its CPU address.
func (m *Manager) TranslateAddress(gpuVA uint64) (uint64, bool) {
	base, ok := m.pages[gpuVA>>PageBits]
	if !ok {
		return 0, false
	}
	return base + (gpuVA & PageMask), true
}

// IsBlockContinuous reports whether [gpuAddr, gpuAddr+size) translates to
// one contiguous CPU range, allowing single-copy access.
func (m *Manager) IsBlockContinuous(gpuAddr, size uint64) bool {
	base, ok := m.TranslateAddress(gpuAddr)
	if !ok {
		return false
	}
	end := gpuAddr + size
	for page := (gpuAddr &^ uint64(PageMask)) + PageSize; page < end; page += PageSize {
		cpu, ok := m.TranslateAddress(page)
		if !ok || cpu != base+(page-gpuAddr) {
			return false
		}
	}
	return true
}

// ReadBlock copies len(dst) bytes of guest memory at a CPU address.
func (m *Manager) ReadBlock(cpuAddr uint64, dst []byte) error {
	return m.backing.ReadBlock(cpuAddr, dst)
}

// WriteBlock copies len(src) bytes into guest memory at a CPU address.
func (m *Manager) WriteBlock(cpuAddr uint64, src []byte) error {
	return m.backing.WriteBlock(cpuAddr, src)
}

// ReadBlockGPU reads across page boundaries through the page table. Any
// unmapped page in the range fails the whole read.
func (m *Manager) ReadBlockGPU(gpuAddr uint64, dst []byte) error {
	for len(dst) > 0 {
		cpu, ok := m.TranslateAddress(gpuAddr)
		if !ok {
			return fmt.Errorf("%w: gpu=%#x", ErrUnmapped, gpuAddr)
		}
		n := PageSize - int(gpuAddr&PageMask)
		if n > len(dst) {
			n = len(dst)
		}
		if err := m.backing.ReadBlock(cpu, dst[:n]); err != nil {
			return err
		}
		dst = dst[n:]
		gpuAddr += uint64(n)
	}
	return nil
}
