// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package display

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/maxwell/host"
	"github.com/gogpu/maxwell/sched"
	"github.com/gogpu/maxwell/texture"
)

var (
	// ErrNoSurface reports a present address with no rendered surface
	// behind it.
	ErrNoSurface = errors.New("display: no surface at framebuffer address")

	// ErrPresentFormat reports a framebuffer format the readback path
	// cannot turn into RGBA.
	ErrPresentFormat = errors.New("display: framebuffer format not presentable")

	// ErrNoTextureCreator reports a draw context without a texture
	// creator.
	ErrNoTextureCreator = errors.New("display: draw context has no texture creator")

	// ErrTextureHandoff reports a created frontend texture that cannot
	// be drawn.
	ErrTextureHandoff = errors.New("display: created texture is not drawable")
)

// Framebuffer identifies the guest frame to present.
type Framebuffer struct {
	// Address is the GPU virtual address the frame was rendered to.
	Address uint64
}

// Presenter reads rendered frames back from the host device and draws
// them through a frontend texture. Not safe for concurrent use; the
// present thread owns it.
type Presenter struct {
	dev      host.Device
	textures *texture.Cache

	width  int
	height int
	filter draw.Interpolator

	watch   sched.FenceWatch
	staging []byte
	scaled  *image.NRGBA

	tex       any
	texWidth  int
	texHeight int

	frames uint64
}

// NewPresenter creates a presenter with the given output extent.
func NewPresenter(dev host.Device, textures *texture.Cache, width, height int) *Presenter {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	return &Presenter{
		dev:      dev,
		textures: textures,
		width:    width,
		height:   height,
		filter:   draw.ApproxBiLinear,
	}
}

// SetOutputSize changes the output extent. Takes effect on the next
// frame.
func (p *Presenter) SetOutputSize(width, height int) {
	if width > 0 {
		p.width = width
	}
	if height > 0 {
		p.height = height
	}
}

// SetFilter selects the scaling interpolator. The default is
// draw.ApproxBiLinear; draw.NearestNeighbor keeps integer upscales
// pixel-exact.
func (p *Presenter) SetFilter(filter draw.Interpolator) {
	if filter != nil {
		p.filter = filter
	}
}

// Present resolves the surface at the framebuffer address, reads it
// back, scales it to the output extent and draws it through dc. The
// fence is the one signalling the batch that rendered the frame; it is
// waited out before the readback staging memory is reused.
func (p *Presenter) Present(dc gpucontext.TextureDrawer, fb Framebuffer, fence *sched.Fence) error {
	if err := p.watch.Watch(fence); err != nil {
		return err
	}
	if err := p.watch.Release(); err != nil {
		return err
	}

	s, ok := p.textures.FindSurface(fb.Address)
	if !ok {
		return fmt.Errorf("%w: %#x", ErrNoSurface, fb.Address)
	}
	if s.Modified() {
		if err := s.Flush(); err != nil {
			return err
		}
	}

	frame, err := p.readback(s)
	if err != nil {
		return err
	}
	return p.handoff(dc, frame)
}

// readback copies the surface into an RGBA image at the output extent.
func (p *Presenter) readback(s *texture.Surface) (*image.NRGBA, error) {
	params := s.Params()
	switch params.Format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
	default:
		return nil, fmt.Errorf("%w: %v", ErrPresentFormat, params.Format)
	}

	size := params.HostSizeInBytes()
	if uint64(cap(p.staging)) < size {
		p.staging = make([]byte, size)
	}
	data := p.staging[:size]
	if err := p.dev.ReadImage(s.Image(), data, params.WidthBytes()); err != nil {
		return nil, err
	}
	if params.Format == gputypes.TextureFormatBGRA8Unorm {
		for i := 0; i+3 < len(data); i += 4 {
			data[i], data[i+2] = data[i+2], data[i]
		}
	}

	src := &image.NRGBA{
		Pix:    data,
		Stride: int(params.WidthBytes()),
		Rect:   image.Rect(0, 0, int(params.Width), int(params.Height)),
	}
	if int(params.Width) == p.width && int(params.Height) == p.height {
		return src, nil
	}
	if p.scaled == nil || p.scaled.Rect.Dx() != p.width || p.scaled.Rect.Dy() != p.height {
		p.scaled = image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	}
	p.filter.Scale(p.scaled, p.scaled.Rect, src, src.Rect, draw.Src, nil)
	return p.scaled, nil
}

// handoff creates or updates the frontend texture and draws it.
func (p *Presenter) handoff(dc gpucontext.TextureDrawer, frame *image.NRGBA) error {
	w, h := frame.Rect.Dx(), frame.Rect.Dy()
	if p.tex != nil && (p.texWidth != w || p.texHeight != h) {
		p.destroyTexture()
	}

	if p.tex == nil {
		creator := dc.TextureCreator()
		if creator == nil {
			return ErrNoTextureCreator
		}
		tex, err := creator.NewTextureFromRGBA(w, h, frame.Pix)
		if err != nil {
			return fmt.Errorf("display: texture creation failed: %w", err)
		}
		p.tex = tex
		p.texWidth = w
		p.texHeight = h
	} else if updater, ok := p.tex.(gpucontext.TextureUpdater); ok {
		if err := updater.UpdateData(frame.Pix); err != nil {
			return fmt.Errorf("display: texture update failed: %w", err)
		}
	} else {
		// Frontend texture cannot be updated in place; recreate.
		p.destroyTexture()
		return p.handoff(dc, frame)
	}

	gpuTex, ok := p.tex.(gpucontext.Texture)
	if !ok {
		return ErrTextureHandoff
	}
	if err := dc.DrawTexture(gpuTex, 0, 0); err != nil {
		return err
	}
	p.frames++
	return nil
}

func (p *Presenter) destroyTexture() {
	if d, ok := p.tex.(interface{ Destroy() }); ok {
		d.Destroy()
	}
	p.tex = nil
}

// Frames returns the number of frames presented.
func (p *Presenter) Frames() uint64 { return p.frames }

// Destroy releases the frontend texture. Cached surfaces belong to the
// texture cache and are left alone.
func (p *Presenter) Destroy() {
	_ = p.watch.Release()
	p.destroyTexture()
	p.staging = nil
	p.scaled = nil
}
