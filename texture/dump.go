// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/bmp"
)

// ErrDumpFormat reports a dump request for a surface format the BMP
// writer cannot express.
var ErrDumpFormat = errors.New("texture: format not dumpable")

// Dump writes the current host contents of the surface as a BMP image,
// for debugging. Only 8-bit RGBA and BGRA surfaces are supported.
func (s *Surface) Dump(w io.Writer) error {
	switch s.params.Format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
	default:
		return fmt.Errorf("%w: %v", ErrDumpFormat, s.params.Format)
	}
	data := make([]byte, s.params.HostSizeInBytes())
	if err := s.dev.ReadImage(s.image, data, s.params.WidthBytes()); err != nil {
		return err
	}
	if s.params.Format == gputypes.TextureFormatBGRA8Unorm {
		for i := 0; i+4 <= len(data); i += 4 {
			data[i], data[i+2] = data[i+2], data[i]
		}
	}
	img := &image.NRGBA{
		Pix:    data,
		Stride: int(s.params.WidthBytes()),
		Rect:   image.Rect(0, 0, int(s.params.Width), int(s.params.Height)),
	}
	return bmp.Encode(w, img)
}
