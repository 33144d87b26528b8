// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gmem

// Region is the capability shared by every guest-addressed cached resource:
// a CPU address range, writeback to guest memory, and invalidation. Texture
// surfaces, global memory regions and buffer entries all implement it.
type Region interface {
	// CpuAddr is the first guest CPU address the resource shadows.
	CpuAddr() uint64

	// SizeInBytes is the length of the shadowed range.
	SizeInBytes() uint64

	// Flush writes modified host-side contents back to guest memory.
	Flush() error
}

// Overlaps reports whether the region intersects [addr, addr+size).
func Overlaps(r Region, addr, size uint64) bool {
	base := r.CpuAddr()
	return addr < base+r.SizeInBytes() && base < addr+size
}
