// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/maxwell/engine"
	"github.com/gogpu/maxwell/host"
)

// SurfaceParams is the shape of a cached surface. It is comparable; two
// surfaces are compatible exactly when their params are equal.
type SurfaceParams struct {
	Width         uint32
	Height        uint32
	Format        gputypes.TextureFormat
	BytesPerPixel uint32

	// Tiled marks block-linear guest layout; BlockHeight is the block
	// height in GOBs (already decoded from the log2 register encoding).
	Tiled       bool
	BlockHeight uint32

	// ConvertS8Z24 marks guest S8Z24 data that is byte-rotated to Z24S8
	// on upload and back on flush.
	ConvertS8Z24 bool
}

// ParamsFromRenderTarget derives surface params from a color target.
func ParamsFromRenderTarget(rt *engine.RenderTarget) (SurfaceParams, error) {
	format, err := host.SurfaceFormat(rt.Format)
	if err != nil {
		return SurfaceParams{}, err
	}
	return SurfaceParams{
		Width:         rt.Width,
		Height:        rt.Height,
		Format:        format,
		BytesPerPixel: host.BytesPerPixel(format),
		Tiled:         rt.Layout == engine.LayoutBlockLinear,
		BlockHeight:   1 << rt.BlockHeight,
	}, nil
}

// ParamsFromZeta derives surface params from the depth/stencil state.
func ParamsFromZeta(regs *engine.Regs) (SurfaceParams, error) {
	format, err := host.DepthSurfaceFormat(regs.Zeta.Format)
	if err != nil {
		return SurfaceParams{}, err
	}
	return SurfaceParams{
		Width:         regs.ZetaWidth,
		Height:        regs.ZetaHeight,
		Format:        format,
		BytesPerPixel: host.BytesPerPixel(format),
		Tiled:         regs.Zeta.Layout == engine.LayoutBlockLinear,
		BlockHeight:   1 << regs.Zeta.BlockHeight,
		ConvertS8Z24:  regs.Zeta.Format == engine.DepthS8Z24,
	}, nil
}

// WidthBytes returns the byte length of one unpadded row.
func (p *SurfaceParams) WidthBytes() uint32 {
	return p.Width * p.BytesPerPixel
}

// HostSizeInBytes returns the pitch-linear size of the surface data as
// the host sees it.
func (p *SurfaceParams) HostSizeInBytes() uint64 {
	return uint64(p.WidthBytes()) * uint64(p.Height)
}

// GuestSizeInBytes returns the size of the guest backing range,
// including block-linear padding for tiled layouts.
func (p *SurfaceParams) GuestSizeInBytes() uint64 {
	if !p.Tiled {
		return p.HostSizeInBytes()
	}
	return TiledSize(p.WidthBytes(), p.Height, p.BlockHeight)
}

func (p SurfaceParams) String() string {
	layout := "pitch"
	if p.Tiled {
		layout = fmt.Sprintf("block-linear(%d)", p.BlockHeight)
	}
	return fmt.Sprintf("%dx%d %v %s", p.Width, p.Height, p.Format, layout)
}
