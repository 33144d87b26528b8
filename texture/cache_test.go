// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/maxwell/backend/null"
	"github.com/gogpu/maxwell/engine"
	"github.com/gogpu/maxwell/gmem"
	"github.com/gogpu/maxwell/sched"
)

const guestBase = uint64(0x200000)

type env struct {
	dev     *null.Device
	mgr     *gmem.Manager
	tracker *gmem.PageTracker
	cache   *Cache
	gpuBase uint64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		dev:     null.NewDevice(),
		tracker: gmem.NewPageTracker(),
	}
	t.Cleanup(e.dev.Destroy)
	e.mgr = gmem.NewManager(gmem.NewRAM(guestBase, 1<<21))
	gpuBase, err := e.mgr.MapAllocate(guestBase, 1<<21)
	if err != nil {
		t.Fatalf("MapAllocate: %v", err)
	}
	e.gpuBase = gpuBase
	e.cache = NewCache(e.dev, e.mgr, e.tracker)
	t.Cleanup(e.cache.Destroy)
	return e
}

// colorParams is a 16x16 RGBA8 pitch-linear surface: 1024 guest bytes.
func colorParams() SurfaceParams {
	return SurfaceParams{
		Width:         16,
		Height:        16,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		BytesPerPixel: 4,
	}
}

// depthParams is a 16x32 depth surface over the same base: 2048 bytes.
func depthParams() SurfaceParams {
	return SurfaceParams{
		Width:         16,
		Height:        32,
		Format:        gputypes.TextureFormatDepth32Float,
		BytesPerPixel: 4,
	}
}

func TestGetViewCreatesThenHits(t *testing.T) {
	e := newEnv(t)
	params := colorParams()

	s1, err := e.cache.GetView(e.gpuBase, &params, false)
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	if s1.SizeInBytes() != 1024 {
		t.Errorf("size = %d, want 1024", s1.SizeInBytes())
	}
	if !e.tracker.IsCached(s1.CpuAddr(), s1.SizeInBytes()) {
		t.Error("surface pages not tracked as cached")
	}

	s2, err := e.cache.GetView(e.gpuBase, &params, false)
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	if s1 != s2 {
		t.Error("identical lookup created a second surface")
	}
	st := e.cache.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Surfaces != 1 {
		t.Errorf("stats = %s, want 1 hit, 1 miss, 1 surface", st)
	}
}

func TestGetViewLoadsGuestContents(t *testing.T) {
	e := newEnv(t)
	params := colorParams()

	guest := make([]byte, params.GuestSizeInBytes())
	for i := range guest {
		guest[i] = byte(i)
	}
	if err := e.mgr.WriteBlock(guestBase, guest); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	s, err := e.cache.GetView(e.gpuBase, &params, true)
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	got := make([]byte, params.HostSizeInBytes())
	if err := e.dev.ReadImage(s.Image(), got, params.WidthBytes()); err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	if !bytes.Equal(got, guest) {
		t.Error("host image does not match guest bytes")
	}
}

func TestGetViewLoadsTiledContents(t *testing.T) {
	e := newEnv(t)
	params := colorParams()
	params.Tiled = true
	params.BlockHeight = 1

	linear := make([]byte, params.HostSizeInBytes())
	for i := range linear {
		linear[i] = byte(i * 3)
	}
	tiled := make([]byte, params.GuestSizeInBytes())
	Swizzle(tiled, linear, params.WidthBytes(), params.Height, params.BlockHeight)
	if err := e.mgr.WriteBlock(guestBase, tiled); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	s, err := e.cache.GetView(e.gpuBase, &params, true)
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	got := make([]byte, params.HostSizeInBytes())
	if err := e.dev.ReadImage(s.Image(), got, params.WidthBytes()); err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	if !bytes.Equal(got, linear) {
		t.Error("upload did not de-tile guest bytes")
	}
}

func TestOverlapFlushesAndEvicts(t *testing.T) {
	// A 1024-byte texture followed by a 2048-byte depth buffer at the
	// same address: one incompatible overlap, flushed and evicted.
	e := newEnv(t)
	color := colorParams()

	s1, err := e.cache.GetView(e.gpuBase, &color, false)
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	rendered := make([]byte, color.HostSizeInBytes())
	for i := range rendered {
		rendered[i] = 0xCD
	}
	if err := e.dev.WriteImage(s1.Image(), rendered, color.WidthBytes()); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}
	s1.MarkModified()

	depth := depthParams()
	s2, err := e.cache.GetView(e.gpuBase, &depth, false)
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	if s2 == s1 {
		t.Fatal("incompatible overlap returned the old surface")
	}
	if s2.SizeInBytes() != 2048 {
		t.Errorf("new size = %d, want 2048", s2.SizeInBytes())
	}

	// The modified texture must have been flushed to guest memory
	// before eviction.
	flushed := make([]byte, 1024)
	if err := e.mgr.ReadBlock(guestBase, flushed); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if !bytes.Equal(flushed, rendered) {
		t.Error("evicted surface was not flushed to guest memory")
	}

	st := e.cache.Stats()
	if st.Evictions != 1 || st.Surfaces != 1 {
		t.Errorf("stats = %s, want 1 eviction and 1 surface", st)
	}
}

func TestGetRenderTargetDisabled(t *testing.T) {
	e := newEnv(t)
	var regs engine.Regs
	regs.Reset()

	s, err := e.cache.GetRenderTarget(&regs, 0, false)
	if err != nil || s != nil {
		t.Errorf("disabled target = (%v, %v), want (nil, nil)", s, err)
	}
	s, err = e.cache.GetDepthBuffer(&regs, false)
	if err != nil || s != nil {
		t.Errorf("disabled depth = (%v, %v), want (nil, nil)", s, err)
	}
}

func TestGetRenderTarget(t *testing.T) {
	e := newEnv(t)
	var regs engine.Regs
	regs.Reset()
	regs.RTCount = 1
	regs.RT[0] = engine.RenderTarget{
		Address: e.gpuBase,
		Width:   16,
		Height:  16,
		Format:  engine.RenderTargetRGBA8Unorm,
		Layout:  engine.LayoutPitch,
	}
	s, err := e.cache.GetRenderTarget(&regs, 0, false)
	if err != nil {
		t.Fatalf("GetRenderTarget: %v", err)
	}
	if s == nil || s.Params().Format != gputypes.TextureFormatRGBA8Unorm {
		t.Fatalf("surface = %v, want RGBA8 surface", s)
	}

	found, ok := e.cache.FindSurface(e.gpuBase)
	if !ok || found != s {
		t.Error("FindSurface did not locate the render target")
	}
}

func TestGetViewUnmapped(t *testing.T) {
	e := newEnv(t)
	params := colorParams()
	if _, err := e.cache.GetView(0, &params, false); !errors.Is(err, gmem.ErrUnmapped) {
		t.Fatalf("err = %v, want ErrUnmapped", err)
	}
}

func TestInvalidateRegion(t *testing.T) {
	e := newEnv(t)
	params := colorParams()
	s, err := e.cache.GetView(e.gpuBase, &params, false)
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	addr := s.CpuAddr()

	if dropped := e.cache.InvalidateRegion(addr+512, 8); dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if e.tracker.IsCached(addr, 1024) {
		t.Error("pages still tracked after invalidation")
	}
	if st := e.cache.Stats(); st.Surfaces != 0 {
		t.Errorf("stats = %s, want 0 surfaces", st)
	}
}

func TestFlushRegion(t *testing.T) {
	e := newEnv(t)
	params := colorParams()
	s, err := e.cache.GetView(e.gpuBase, &params, false)
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	data := make([]byte, params.HostSizeInBytes())
	for i := range data {
		data[i] = 0x5A
	}
	if err := e.dev.WriteImage(s.Image(), data, params.WidthBytes()); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}
	s.MarkModified()

	if err := e.cache.FlushRegion(s.CpuAddr(), s.SizeInBytes()); err != nil {
		t.Fatalf("FlushRegion: %v", err)
	}
	if s.Modified() {
		t.Error("surface still modified after flush")
	}
	got := make([]byte, 1024)
	if err := e.mgr.ReadBlock(guestBase, got); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("guest memory does not match flushed contents")
	}
}

// A flush of a modified surface must push out the batch still being
// recorded against it and wait the fence before the image readback.
func TestFlushSubmitsOpenBatch(t *testing.T) {
	e := newEnv(t)
	s, err := sched.New(e.dev)
	if err != nil {
		t.Fatalf("sched.New: %v", err)
	}
	defer s.Destroy()
	e.cache.SetScheduler(s)

	params := colorParams()
	surf, err := e.cache.GetView(e.gpuBase, &params, false)
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	surf.MarkModified()

	ticks := s.Ticks()
	if err := e.cache.FlushRegion(surf.CpuAddr(), surf.SizeInBytes()); err != nil {
		t.Fatalf("FlushRegion: %v", err)
	}
	if s.Ticks() != ticks+1 {
		t.Errorf("ticks = %d, want %d; flush did not submit the open batch", s.Ticks(), ticks+1)
	}
	if surf.Modified() {
		t.Error("surface still modified after flush")
	}

	// The overlap eviction path flushes through the same sync point.
	surf.MarkModified()
	depth := depthParams()
	if _, err := e.cache.GetView(e.gpuBase, &depth, false); err != nil {
		t.Fatalf("GetView: %v", err)
	}
	if s.Ticks() != ticks+2 {
		t.Errorf("ticks = %d, want %d; eviction flush did not submit", s.Ticks(), ticks+2)
	}
}

func TestDepthBufferConversion(t *testing.T) {
	e := newEnv(t)
	var regs engine.Regs
	regs.Reset()
	regs.ZetaEnable = true
	regs.Zeta = engine.Zeta{
		Address: e.gpuBase,
		Format:  engine.DepthS8Z24,
		Layout:  engine.LayoutPitch,
	}
	regs.ZetaWidth = 4
	regs.ZetaHeight = 1

	// One row of four S8Z24 texels.
	guest := []byte{
		1, 2, 3, 0xAA,
		4, 5, 6, 0xBB,
		7, 8, 9, 0xCC,
		10, 11, 12, 0xDD,
	}
	if err := e.mgr.WriteBlock(guestBase, guest); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	s, err := e.cache.GetDepthBuffer(&regs, true)
	if err != nil {
		t.Fatalf("GetDepthBuffer: %v", err)
	}
	got := make([]byte, 16)
	if err := e.dev.ReadImage(s.Image(), got, 16); err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	want := []byte{
		0xAA, 1, 2, 3,
		0xBB, 4, 5, 6,
		0xCC, 7, 8, 9,
		0xDD, 10, 11, 12,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("uploaded depth = %v, want %v", got, want)
	}

	// Flushing converts back to guest byte order.
	s.MarkModified()
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	back := make([]byte, 16)
	if err := e.mgr.ReadBlock(guestBase, back); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if !bytes.Equal(back, guest) {
		t.Errorf("flushed depth = %v, want %v", back, guest)
	}
}
