// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"bytes"
	"testing"
)

func TestGobOffset(t *testing.T) {
	tests := []struct {
		x, y, want uint32
	}{
		{0, 0, 0},
		{15, 0, 15},
		{16, 0, 32},
		{0, 1, 16},
		{0, 2, 64},
		{32, 0, 256},
		{48, 3, 368},
		{63, 7, 256 + 192 + 32 + 16 + 15},
	}
	for _, tt := range tests {
		if got := gobOffset(tt.x, tt.y); got != tt.want {
			t.Errorf("gobOffset(%d, %d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestTiledSize(t *testing.T) {
	tests := []struct {
		widthBytes, height, blockHeight uint32
		want                            uint64
	}{
		{64, 8, 1, 512},    // exactly one GOB
		{65, 8, 1, 1024},   // row spills into a second GOB
		{64, 9, 1, 1024},   // height spills into a second block row
		{64, 8, 2, 1024},   // block height pads to 16 rows
		{128, 32, 2, 4096}, // 2 gobs/row, 2 block rows of 2 GOBs
	}
	for _, tt := range tests {
		if got := TiledSize(tt.widthBytes, tt.height, tt.blockHeight); got != tt.want {
			t.Errorf("TiledSize(%d, %d, %d) = %d, want %d",
				tt.widthBytes, tt.height, tt.blockHeight, got, tt.want)
		}
	}
}

func TestSwizzleRoundTrip(t *testing.T) {
	tests := []struct {
		name                            string
		widthBytes, height, blockHeight uint32
	}{
		{"one gob", 64, 8, 1},
		{"unaligned width", 100, 20, 2},
		{"tall block", 64, 40, 4},
		{"narrow", 12, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			linear := make([]byte, tt.widthBytes*tt.height)
			for i := range linear {
				linear[i] = byte(i*7 + 13)
			}
			tiled := make([]byte, TiledSize(tt.widthBytes, tt.height, tt.blockHeight))
			Swizzle(tiled, linear, tt.widthBytes, tt.height, tt.blockHeight)

			back := make([]byte, len(linear))
			Unswizzle(back, tiled, tt.widthBytes, tt.height, tt.blockHeight)
			if !bytes.Equal(linear, back) {
				t.Error("round trip does not reproduce linear data")
			}
		})
	}
}

func TestSwizzlePlacement(t *testing.T) {
	// Row 1 of a single-GOB image lands 16 bytes into the GOB.
	linear := make([]byte, 64*8)
	linear[64] = 0xAB // (x=0, y=1)
	tiled := make([]byte, 512)
	Swizzle(tiled, linear, 64, 8, 1)
	if tiled[16] != 0xAB {
		t.Errorf("tiled[16] = %#x, want 0xAB", tiled[16])
	}
}

func TestS8Z24Conversion(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	S8Z24ToZ24S8(data)
	want := []byte{4, 1, 2, 3, 8, 5, 6, 7}
	if !bytes.Equal(data, want) {
		t.Fatalf("S8Z24ToZ24S8 = %v, want %v", data, want)
	}
	Z24S8ToS8Z24(data)
	want = []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if !bytes.Equal(data, want) {
		t.Fatalf("round trip = %v, want %v", data, want)
	}
}
