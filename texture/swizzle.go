// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

// Block-linear geometry. The tiled address space is built from 512-byte
// GOBs of 64 bytes by 8 rows; blocks stack BlockHeight GOBs vertically.
const (
	GobWidth  = 64
	GobHeight = 8
	GobSize   = GobWidth * GobHeight
)

// TiledSize returns the byte size of a block-linear image with the given
// unpadded row length. Rows pad to whole GOBs, heights to whole blocks.
func TiledSize(widthBytes, height, blockHeight uint32) uint64 {
	rowGobs := uint64((widthBytes + GobWidth - 1) / GobWidth)
	blockRows := uint64((height + GobHeight*blockHeight - 1) / (GobHeight * blockHeight))
	return rowGobs * blockRows * uint64(GobSize) * uint64(blockHeight)
}

// gobOffset returns the byte offset of (x, y) inside its GOB. The layout
// interleaves 16-byte sectors; offsets are consecutive within an aligned
// 16-byte span of x.
func gobOffset(x, y uint32) uint32 {
	return (x%64)/32*256 + (y%8)/2*64 + (x%32)/16*32 + y%2*16 + x%16
}

// Unswizzle converts block-linear tiled bytes to pitch-linear rows.
// dst holds widthBytes*height bytes; src holds TiledSize bytes.
func Unswizzle(dst, src []byte, widthBytes, height, blockHeight uint32) {
	copySwizzled(dst, src, widthBytes, height, blockHeight, false)
}

// Swizzle converts pitch-linear rows to block-linear tiled bytes.
// dst holds TiledSize bytes; src holds widthBytes*height bytes.
func Swizzle(dst, src []byte, widthBytes, height, blockHeight uint32) {
	copySwizzled(src, dst, widthBytes, height, blockHeight, true)
}

func copySwizzled(linear, tiled []byte, widthBytes, height, blockHeight uint32, toTiled bool) {
	if blockHeight == 0 {
		blockHeight = 1
	}
	rowGobs := (widthBytes + GobWidth - 1) / GobWidth
	blockSize := GobSize * blockHeight
	blockRowSize := rowGobs * blockSize
	for y := uint32(0); y < height; y++ {
		blockRow := y / (GobHeight * blockHeight)
		gobInBlock := y % (GobHeight * blockHeight) / GobHeight
		rowBase := blockRow*blockRowSize + gobInBlock*GobSize
		for x := uint32(0); x < widthBytes; x += 16 {
			n := uint32(16)
			if widthBytes-x < n {
				n = widthBytes - x
			}
			off := rowBase + x/GobWidth*blockSize + gobOffset(x, y)
			lin := y*widthBytes + x
			if toTiled {
				copy(tiled[off:off+n], linear[lin:lin+n])
			} else {
				copy(linear[lin:lin+n], tiled[off:off+n])
			}
		}
	}
}
