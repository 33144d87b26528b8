// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import "errors"

// ErrShortProgram is returned when a program cannot hold its own header.
var ErrShortProgram = errors.New("shader: program shorter than header")

const (
	headerWords = 20

	// HeaderSize is the size of the program header in bytes.
	HeaderSize = 80

	// MainOffset is the instruction slot where execution starts. The
	// header occupies the first ten 64-bit words of every program.
	MainOffset = 10
)

// Header is the fixed 80-byte block preceding the instruction stream. Only
// the fragment output map is consumed here; the rest is carried opaquely.
type Header struct {
	words [headerWords]uint32
}

// ParseHeader reads the header from the front of a program.
func ParseHeader(code []uint64) (Header, error) {
	if len(code) < MainOffset {
		return Header{}, ErrShortProgram
	}
	var h Header
	for i, w := range code[:MainOffset] {
		h.words[i*2] = uint32(w)
		h.words[i*2+1] = uint32(w >> 32)
	}
	return h, nil
}

// ColorWriteMask returns the RGBA enable bits of one render target in a
// fragment program's output map.
func (h Header) ColorWriteMask(rt int) uint8 {
	return uint8(h.words[18] >> (uint(rt) * 4) & 0xF)
}

// ColorComponentEnabled reports whether a fragment program writes one
// component of one render target.
func (h Header) ColorComponentEnabled(rt, component int) bool {
	return h.words[18]>>(uint(rt)*4+uint(component))&1 != 0
}

// WritesSampleMask reports whether the program writes the sample mask.
func (h Header) WritesSampleMask() bool {
	return h.words[19]&1 != 0
}

// WritesDepth reports whether the program writes the depth output.
func (h Header) WritesDepth() bool {
	return h.words[19]>>1&1 != 0
}
