// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/maxwell/gmem"
	"github.com/gogpu/maxwell/host"
)

// Surface is one guest surface backed by a host image. It implements
// gmem.Region so page tracking and flush treat it like any other cached
// guest-addressed resource.
type Surface struct {
	params  SurfaceParams
	gpuAddr uint64
	cpuAddr uint64

	image host.ImageID
	view  host.ImageViewID

	modified bool

	// sync submits the open batch and waits it out before a readback;
	// set by the owning cache.
	sync func() error

	dev host.Device
	mem gmem.Memory
}

func newSurface(dev host.Device, mem gmem.Memory, gpuAddr, cpuAddr uint64, params *SurfaceParams) (*Surface, error) {
	image, err := dev.CreateImage(&host.ImageDescriptor{
		Label:     fmt.Sprintf("surface_%x", gpuAddr),
		Width:     params.Width,
		Height:    params.Height,
		Depth:     1,
		MipLevels: 1,
		Samples:   1,
		Format:    params.Format,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	view, err := dev.CreateImageView(image, &host.ImageViewDescriptor{
		Label:  fmt.Sprintf("surface_%x", gpuAddr),
		Levels: 1,
		Layers: 1,
	})
	if err != nil {
		dev.DestroyImage(image)
		return nil, err
	}
	return &Surface{
		params:  *params,
		gpuAddr: gpuAddr,
		cpuAddr: cpuAddr,
		image:   image,
		view:    view,
		dev:     dev,
		mem:     mem,
	}, nil
}

// CpuAddr returns the first guest CPU address the surface shadows.
func (s *Surface) CpuAddr() uint64 { return s.cpuAddr }

// GpuAddr returns the guest GPU VA the surface was created for.
func (s *Surface) GpuAddr() uint64 { return s.gpuAddr }

// SizeInBytes returns the length of the shadowed guest range.
func (s *Surface) SizeInBytes() uint64 { return s.params.GuestSizeInBytes() }

// Params returns the surface shape.
func (s *Surface) Params() *SurfaceParams { return &s.params }

// Image returns the host image handle.
func (s *Surface) Image() host.ImageID { return s.image }

// View returns the full view over the host image.
func (s *Surface) View() host.ImageViewID { return s.view }

// Modified reports whether host-side contents are newer than guest
// memory.
func (s *Surface) Modified() bool { return s.modified }

// MarkModified records that the host image was written (surface was a
// render target of a submitted batch) and must be flushed before the
// guest range is reused.
func (s *Surface) MarkModified() { s.modified = true }

// load reads the guest bytes, de-tiles and converts them, and uploads
// the result to the host image.
func (s *Surface) load() error {
	guest := make([]byte, s.params.GuestSizeInBytes())
	if err := s.mem.ReadBlock(s.cpuAddr, guest); err != nil {
		return err
	}
	linear := guest
	if s.params.Tiled {
		linear = make([]byte, s.params.HostSizeInBytes())
		Unswizzle(linear, guest, s.params.WidthBytes(), s.params.Height, s.params.BlockHeight)
	}
	if s.params.ConvertS8Z24 {
		S8Z24ToZ24S8(linear)
	}
	return s.dev.WriteImage(s.image, linear, s.params.WidthBytes())
}

// Flush writes the host image contents back to guest memory, undoing
// the upload conversions, and clears the modified flag. Commands still
// being recorded against the surface are submitted and waited out
// first.
func (s *Surface) Flush() error {
	if s.sync != nil {
		if err := s.sync(); err != nil {
			return err
		}
	}
	linear := make([]byte, s.params.HostSizeInBytes())
	if err := s.dev.ReadImage(s.image, linear, s.params.WidthBytes()); err != nil {
		return err
	}
	if s.params.ConvertS8Z24 {
		Z24S8ToS8Z24(linear)
	}
	guest := linear
	if s.params.Tiled {
		guest = make([]byte, s.params.GuestSizeInBytes())
		Swizzle(guest, linear, s.params.WidthBytes(), s.params.Height, s.params.BlockHeight)
	}
	if err := s.mem.WriteBlock(s.cpuAddr, guest); err != nil {
		return err
	}
	s.modified = false
	return nil
}

func (s *Surface) destroy() {
	s.dev.DestroyImageView(s.view)
	s.dev.DestroyImage(s.image)
}

func (s *Surface) String() string {
	return fmt.Sprintf("Surface{gpu: %#x, cpu: %#x, %s}", s.gpuAddr, s.cpuAddr, s.params)
}
