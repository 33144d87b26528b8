// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package maxwell

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/maxwell/backend"
	"github.com/gogpu/maxwell/backend/null"
	"github.com/gogpu/maxwell/engine"
	"github.com/gogpu/maxwell/gmem"
	"github.com/gogpu/maxwell/shader"
)

// Guest instruction builders for the encodings the tests exercise. Slots
// at (offset-10)%4 == 0 hold scheduling control words, not instructions.

const predAlways = uint64(7) << 16

func exitInst() uint64 {
	return 0xE300000000000000 | predAlways | 0x0F
}

func mov32(reg uint64, imm uint32) uint64 {
	return 0x0100000000000000 | predAlways | uint64(imm)<<20 | reg
}

func ldaInst(reg, index, element, words uint64) uint64 {
	return 0xEFD8000000000000 | predAlways | uint64(255)<<8 | reg |
		element<<22 | index<<24 | (words-1)<<47
}

func staInst(reg, index, element, words uint64) uint64 {
	return 0xEFF0000000000000 | predAlways | uint64(255)<<8 | reg |
		element<<22 | index<<24 | (words-1)<<47
}

func shrC(dst, srcA, cbuf, wordOff uint64) uint64 {
	return 0x4C28000000000000 | predAlways | dst | srcA<<8 | wordOff<<20 | cbuf<<34
}

// vertexProgram writes 1.0 to every position component and exits.
func vertexProgram() []uint64 {
	return append(make([]uint64, shader.MainOffset),
		0, // sched
		mov32(0, 0x3F800000),
		mov32(1, 0x3F800000),
		mov32(2, 0x3F800000),
		0, // sched
		mov32(3, 0x3F800000),
		staInst(0, 7, 0, 4),
		exitInst(),
	)
}

// attribVertexProgram passes generic attribute 0 through to the
// position, forcing a vertex buffer binding on the pipeline.
func attribVertexProgram() []uint64 {
	return append(make([]uint64, shader.MainOffset),
		0, // sched
		ldaInst(0, 8, 0, 4),
		staInst(0, 7, 0, 4),
		exitInst(),
	)
}

// cbufVertexProgram reads constant buffer 3, forcing a uniform binding.
func cbufVertexProgram() []uint64 {
	return append(make([]uint64, shader.MainOffset),
		0, // sched
		mov32(0, 0x3F800000),
		shrC(1, 0, 3, 8),
		mov32(2, 0x3F800000),
		0, // sched
		mov32(3, 0x3F800000),
		staInst(0, 7, 0, 4),
		exitInst(),
	)
}

// fragmentProgram writes a constant color to render target 0.
func fragmentProgram() []uint64 {
	code := make([]uint64, shader.MainOffset)
	code[9] = 0xF // RT0 RGBA enabled
	return append(code,
		0, // sched
		mov32(0, 0x3F800000),
		mov32(1, 0),
		mov32(2, 0),
		0, // sched
		mov32(3, 0x3F800000),
		exitInst(),
	)
}

// Guest memory layout shared by the tests, as offsets from ramBase.
const (
	ramBase        = uint64(0x100000)
	ramSize        = uint64(2 << 20)
	fragmentOffset = uint32(0x800)
	surfaceOffset  = uint64(0x10000)
	vertexOffset   = uint64(0x20000)
	indexOffset    = uint64(0x30000)
	cbufOffset     = uint64(0x40000)
)

type env struct {
	dev     *null.Device
	gpu     *GPU
	gpuBase uint64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{dev: null.NewDevice()}
	t.Cleanup(e.dev.Destroy)

	gpu, err := New(gmem.NewRAM(ramBase, ramSize), WithDevice(e.dev))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(gpu.Destroy)
	e.gpu = gpu

	e.gpuBase, err = gpu.Memory().MapAllocate(ramBase, ramSize)
	if err != nil {
		t.Fatalf("MapAllocate: %v", err)
	}

	regs := gpu.Regs()
	regs.CodeAddress = e.gpuBase
	e.writeProgram(t, 0, vertexProgram())
	e.writeProgram(t, fragmentOffset, fragmentProgram())
	regs.ShaderConfig[engine.ProgramFragment] = engine.ShaderConfig{
		Enable: true,
		Offset: fragmentOffset,
	}

	regs.RTCount = 1
	regs.RT[0] = engine.RenderTarget{
		Address: e.gpuBase + surfaceOffset,
		Width:   4,
		Height:  4,
		Format:  engine.RenderTargetRGBA8Unorm,
		Layout:  engine.LayoutPitch,
	}
	return e
}

func (e *env) writeProgram(t *testing.T, offset uint32, code []uint64) {
	t.Helper()
	buf := make([]byte, len(code)*8)
	for i, w := range code {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
	if err := e.gpu.Memory().WriteBlock(ramBase+uint64(offset), buf); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
}

func (e *env) write(t *testing.T, offset uint64, data []byte) {
	t.Helper()
	if err := e.gpu.Memory().WriteBlock(ramBase+offset, data); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
}

func TestNewBackendSelection(t *testing.T) {
	ram := gmem.NewRAM(ramBase, 1<<20)

	if _, err := New(ram, WithBackend("bogus")); !errors.Is(err, ErrNoBackend) {
		t.Fatalf("err = %v, want ErrNoBackend", err)
	}

	gpu, err := New(ram, WithBackend(backend.BackendNull))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer gpu.Destroy()
	if gpu.Backend() != backend.BackendNull {
		t.Errorf("Backend() = %q, want %q", gpu.Backend(), backend.BackendNull)
	}
}

func TestClearThenDraw(t *testing.T) {
	e := newEnv(t)
	regs := e.gpu.Regs()
	regs.ClearColor = [4]float32{0, 0, 0, 1}

	if err := e.gpu.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := e.gpu.Draw(0, 3); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	fence, err := e.gpu.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := fence.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// The clearing pass stays open and absorbs the draw.
	st := e.dev.Stats()
	if st.Submits != 1 || st.Passes != 1 || st.Draws != 1 {
		t.Errorf("device stats = %+v, want 1 submit, 1 pass, 1 draw", st)
	}
	gs := e.gpu.Stats()
	if gs.Draws != 1 || gs.Clears != 1 {
		t.Errorf("gpu stats = %s, want 1 draw and 1 clear", gs)
	}

	s, ok := e.gpu.Textures().FindSurface(e.gpuBase + surfaceOffset)
	if !ok {
		t.Fatal("render target surface not cached")
	}
	if !s.Modified() {
		t.Error("surface not marked modified after draw")
	}
}

func TestDrawReusesPass(t *testing.T) {
	e := newEnv(t)

	for i := 0; i < 3; i++ {
		if err := e.gpu.Draw(0, 3); err != nil {
			t.Fatalf("Draw %d: %v", i, err)
		}
	}
	if _, err := e.gpu.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	st := e.dev.Stats()
	if st.Passes != 1 || st.Draws != 3 {
		t.Errorf("device stats = %+v, want 3 draws in 1 pass", st)
	}
}

func TestDrawNoRenderTargets(t *testing.T) {
	e := newEnv(t)
	e.gpu.Regs().RTCount = 0

	if err := e.gpu.Draw(0, 3); !errors.Is(err, ErrNoRenderTargets) {
		t.Fatalf("err = %v, want ErrNoRenderTargets", err)
	}
	if err := e.gpu.Clear(); !errors.Is(err, ErrNoRenderTargets) {
		t.Fatalf("Clear err = %v, want ErrNoRenderTargets", err)
	}
}

func TestDrawVertexArrays(t *testing.T) {
	e := newEnv(t)
	e.writeProgram(t, 0, attribVertexProgram())

	regs := e.gpu.Regs()
	regs.VertexAttribs[0] = engine.VertexAttrib{
		Buffer: 0,
		Offset: 0,
		Type:   engine.AttribTypeFloat,
		Size:   engine.AttribSize32x4,
	}

	t.Run("disabled slot", func(t *testing.T) {
		if err := e.gpu.Draw(0, 3); !errors.Is(err, ErrVertexArrayDisabled) {
			t.Fatalf("err = %v, want ErrVertexArrayDisabled", err)
		}
	})

	t.Run("bound", func(t *testing.T) {
		e.write(t, vertexOffset, make([]byte, 3*16))
		regs.VertexArrays[0] = engine.VertexArray{
			Enable:  true,
			Address: e.gpuBase + vertexOffset,
			Stride:  16,
		}
		if err := e.gpu.Draw(0, 3); err != nil {
			t.Fatalf("Draw: %v", err)
		}
		if _, err := e.gpu.Flush(); err != nil {
			t.Fatalf("Flush: %v", err)
		}
		if st := e.dev.Stats(); st.Draws != 1 {
			t.Errorf("device draws = %d, want 1", st.Draws)
		}
	})
}

func TestDrawConstBuffer(t *testing.T) {
	e := newEnv(t)
	e.writeProgram(t, 0, cbufVertexProgram())
	regs := e.gpu.Regs()

	t.Run("unbound", func(t *testing.T) {
		if err := e.gpu.Draw(0, 3); !errors.Is(err, ErrConstBufferUnbound) {
			t.Fatalf("err = %v, want ErrConstBufferUnbound", err)
		}
	})

	t.Run("bound", func(t *testing.T) {
		e.write(t, cbufOffset, make([]byte, 64))
		regs.ConstBuffers[engine.StageVertex][3] = engine.ConstBuffer{
			Address: e.gpuBase + cbufOffset,
			Size:    64,
		}
		if err := e.gpu.Draw(0, 3); err != nil {
			t.Fatalf("Draw: %v", err)
		}
		if _, err := e.gpu.Flush(); err != nil {
			t.Fatalf("Flush: %v", err)
		}
	})
}

func TestDrawIndexed(t *testing.T) {
	e := newEnv(t)
	regs := e.gpu.Regs()

	t.Run("no buffer", func(t *testing.T) {
		if err := e.gpu.DrawIndexed(); !errors.Is(err, ErrNoIndexBuffer) {
			t.Fatalf("err = %v, want ErrNoIndexBuffer", err)
		}
	})

	t.Run("uint16", func(t *testing.T) {
		indices := []uint16{0, 1, 2, 2, 1, 3}
		buf := make([]byte, len(indices)*2)
		for i, v := range indices {
			binary.LittleEndian.PutUint16(buf[i*2:], v)
		}
		e.write(t, indexOffset, buf)
		regs.IndexArray = engine.IndexArray{
			Address: e.gpuBase + indexOffset,
			Format:  engine.IndexUint16,
			First:   0,
			Count:   6,
		}
		if err := e.gpu.DrawIndexed(); err != nil {
			t.Fatalf("DrawIndexed: %v", err)
		}
	})

	t.Run("uint8 widens", func(t *testing.T) {
		e.write(t, indexOffset, []byte{0, 1, 2})
		regs.IndexArray = engine.IndexArray{
			Address: e.gpuBase + indexOffset,
			Format:  engine.IndexUint8,
			First:   0,
			Count:   3,
		}
		if err := e.gpu.DrawIndexed(); err != nil {
			t.Fatalf("DrawIndexed: %v", err)
		}
	})

	if _, err := e.gpu.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if st := e.dev.Stats(); st.Draws != 2 {
		t.Errorf("device draws = %d, want 2", st.Draws)
	}
}

func TestInvalidateRegionDropsShaders(t *testing.T) {
	e := newEnv(t)
	if err := e.gpu.Draw(0, 3); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if _, err := e.gpu.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// Rewriting the first vertex instruction drops the shader, the
	// pipeline built over it, nothing else.
	if dropped := e.gpu.InvalidateRegion(ramBase, 8); dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if dropped := e.gpu.InvalidateRegion(ramBase+ramSize-8, 8); dropped != 0 {
		t.Errorf("dropped = %d over untouched range, want 0", dropped)
	}

	if err := e.gpu.Draw(0, 3); err != nil {
		t.Fatalf("Draw after invalidate: %v", err)
	}
	if st := e.gpu.Stats(); st.Pipelines.Misses != 2 {
		t.Errorf("pipeline misses = %d, want 2", st.Pipelines.Misses)
	}
}

// FlushRegion must see recorded-but-unsubmitted work: the clearing pass
// is still open when the flush arrives, so the flush itself has to
// submit the batch and wait it out before reading the surface back.
func TestFlushRegionSubmitsOpenBatch(t *testing.T) {
	e := newEnv(t)
	if err := e.gpu.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if st := e.dev.Stats(); st.Submits != 0 {
		t.Fatalf("device submits before flush = %d, want 0", st.Submits)
	}

	if err := e.gpu.FlushRegion(ramBase+surfaceOffset, 4*4*4); err != nil {
		t.Fatalf("FlushRegion: %v", err)
	}

	if st := e.dev.Stats(); st.Submits != 1 {
		t.Errorf("device submits after flush = %d, want 1", st.Submits)
	}
	s, ok := e.gpu.Textures().FindSurface(e.gpuBase + surfaceOffset)
	if !ok {
		t.Fatal("surface not cached")
	}
	if s.Modified() {
		t.Error("surface still modified after FlushRegion")
	}

	// The scheduler reopened a batch; later work must still record.
	if err := e.gpu.Draw(0, 3); err != nil {
		t.Fatalf("Draw after flush: %v", err)
	}
	if _, err := e.gpu.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestFinishAndFlushRegion(t *testing.T) {
	e := newEnv(t)
	if err := e.gpu.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := e.gpu.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := e.gpu.FlushRegion(ramBase+surfaceOffset, 4*4*4); err != nil {
		t.Fatalf("FlushRegion: %v", err)
	}

	s, ok := e.gpu.Textures().FindSurface(e.gpuBase + surfaceOffset)
	if !ok {
		t.Fatal("surface not cached")
	}
	if s.Modified() {
		t.Error("surface still modified after FlushRegion")
	}
}
