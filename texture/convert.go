// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

// S8Z24ToZ24S8 rotates each 32-bit depth/stencil texel from guest S8Z24
// order (depth in the low 24 bits, stencil on top) to Z24S8 (stencil in
// the low byte). In place; len(data) must be a multiple of 4.
func S8Z24ToZ24S8(data []byte) {
	for i := 0; i+4 <= len(data); i += 4 {
		s := data[i+3]
		data[i+3] = data[i+2]
		data[i+2] = data[i+1]
		data[i+1] = data[i]
		data[i] = s
	}
}

// Z24S8ToS8Z24 is the inverse rotation, applied before flushing a
// converted surface back to guest memory.
func Z24S8ToS8Z24(data []byte) {
	for i := 0; i+4 <= len(data); i += 4 {
		s := data[i]
		data[i] = data[i+1]
		data[i+1] = data[i+2]
		data[i+2] = data[i+3]
		data[i+3] = s
	}
}
