// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gmem

import (
	"bytes"
	"errors"
	"testing"
)

func TestManagerMapTranslate(t *testing.T) {
	ram := NewRAM(0x1000_0000, 4*PageSize)
	m := NewManager(ram)

	if err := m.Map(0x20000, 0x1000_0000, 2*PageSize); err != nil {
		t.Fatalf("Map: %v", err)
	}

	tests := []struct {
		name   string
		gpu    uint64
		want   uint64
		mapped bool
	}{
		{"page start", 0x20000, 0x1000_0000, true},
		{"mid page", 0x20000 + 0x123, 0x1000_0123, true},
		{"second page", 0x20000 + PageSize, 0x1000_0000 + PageSize, true},
		{"past mapping", 0x20000 + 2*PageSize, 0, false},
		{"null page", 0x10, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.TranslateAddress(tt.gpu)
			if ok != tt.mapped {
				t.Fatalf("TranslateAddress(%#x) ok = %v, want %v", tt.gpu, ok, tt.mapped)
			}
			if ok && got != tt.want {
				t.Errorf("TranslateAddress(%#x) = %#x, want %#x", tt.gpu, got, tt.want)
			}
		})
	}
}

func TestManagerMisaligned(t *testing.T) {
	m := NewManager(NewRAM(0, PageSize))
	if err := m.Map(0x100, 0, PageSize); !errors.Is(err, ErrMisaligned) {
		t.Errorf("Map unaligned gpu addr: err = %v, want ErrMisaligned", err)
	}
	if err := m.Unmap(0, PageSize-1); !errors.Is(err, ErrMisaligned) {
		t.Errorf("Unmap unaligned size: err = %v, want ErrMisaligned", err)
	}
}

func TestManagerMapAllocate(t *testing.T) {
	ram := NewRAM(0, 8*PageSize)
	m := NewManager(ram)

	a, err := m.MapAllocate(0, 3*PageSize)
	if err != nil {
		t.Fatalf("MapAllocate: %v", err)
	}
	b, err := m.MapAllocate(4*PageSize, PageSize)
	if err != nil {
		t.Fatalf("MapAllocate: %v", err)
	}
	if a == b {
		t.Fatalf("allocations overlap at %#x", a)
	}
	if !m.IsBlockContinuous(a, 3*PageSize) {
		t.Errorf("IsBlockContinuous(%#x, 3 pages) = false, want true", a)
	}
	if m.IsBlockContinuous(a+2*PageSize, 3*PageSize) {
		t.Error("IsBlockContinuous across unmapped boundary = true, want false")
	}
}

func TestManagerReadWriteBlockGPU(t *testing.T) {
	ram := NewRAM(0x4000_0000, 4*PageSize)
	m := NewManager(ram)

	// Two GPU pages deliberately mapped to discontiguous CPU pages.
	if err := m.Map(0x80000, 0x4000_0000+2*PageSize, PageSize); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if err := m.Map(0x80000+PageSize, 0x4000_0000, PageSize); err != nil {
		t.Fatalf("Map: %v", err)
	}

	src := make([]byte, PageSize+64)
	for i := range src {
		src[i] = byte(i * 7)
	}
	// Write through CPU addresses, read back across the page split.
	if err := m.WriteBlock(0x4000_0000+2*PageSize, src[:PageSize]); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := m.WriteBlock(0x4000_0000, src[PageSize:]); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	dst := make([]byte, len(src))
	if err := m.ReadBlockGPU(0x80000, dst); err != nil {
		t.Fatalf("ReadBlockGPU: %v", err)
	}
	if !bytes.Equal(dst, src) {
		t.Error("ReadBlockGPU round trip mismatch")
	}

	if err := m.ReadBlockGPU(0x80000+2*PageSize, dst[:8]); !errors.Is(err, ErrUnmapped) {
		t.Errorf("ReadBlockGPU unmapped: err = %v, want ErrUnmapped", err)
	}
}

func TestRAMOutOfRange(t *testing.T) {
	ram := NewRAM(0x1000, 0x100)
	if err := ram.ReadBlock(0xF00, make([]byte, 8)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("ReadBlock below base: err = %v, want ErrOutOfRange", err)
	}
	if err := ram.WriteBlock(0x10F8, make([]byte, 16)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("WriteBlock past end: err = %v, want ErrOutOfRange", err)
	}
}

func TestPageTracker(t *testing.T) {
	tr := NewPageTracker()
	const page = 1 << TrackerPageBits

	tr.UpdatePagesCachedCount(0x1000, 3*page, +1)
	tr.UpdatePagesCachedCount(0x1000, page, +1)

	if !tr.IsCached(0x1000+2*page, 16) {
		t.Error("IsCached inside range = false, want true")
	}
	tr.UpdatePagesCachedCount(0x1000, 3*page, -1)
	if !tr.IsCached(0x1000, 16) {
		t.Error("first page still referenced once, IsCached = false")
	}
	if tr.IsCached(0x1000+page, 2*page) {
		t.Error("fully released pages still report cached")
	}
	tr.UpdatePagesCachedCount(0x1000, page, -1)
	if tr.CachedPages() != 0 {
		t.Errorf("CachedPages = %d, want 0", tr.CachedPages())
	}
}

type fakeRegion struct{ addr, size uint64 }

func (r fakeRegion) CpuAddr() uint64     { return r.addr }
func (r fakeRegion) SizeInBytes() uint64 { return r.size }
func (r fakeRegion) Flush() error        { return nil }

func TestOverlaps(t *testing.T) {
	r := fakeRegion{addr: 0x100, size: 0x100}
	tests := []struct {
		name string
		addr uint64
		size uint64
		want bool
	}{
		{"inside", 0x180, 0x10, true},
		{"spanning", 0x80, 0x1000, true},
		{"touching end", 0x200, 0x10, false},
		{"touching start", 0xF0, 0x10, false},
		{"before", 0, 0x80, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(r, tt.addr, tt.size); got != tt.want {
				t.Errorf("Overlaps(%#x, %#x) = %v, want %v", tt.addr, tt.size, got, tt.want)
			}
		})
	}
}
