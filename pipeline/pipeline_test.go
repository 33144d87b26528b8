// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/maxwell/backend/null"
	"github.com/gogpu/maxwell/engine"
	"github.com/gogpu/maxwell/gmem"
	"github.com/gogpu/maxwell/host"
	"github.com/gogpu/maxwell/sched"
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

func staInst(reg, index, element, words uint64) uint64 {
	return 0xEFF0000000000000 | predAlways | uint64(255)<<8 | reg |
		element<<22 | index<<24 | (words-1)<<47
}

// vertexProgram writes 1.0 to every position component and exits.
func vertexProgram() []uint64 {
	return append(make([]uint64, shader.MainOffset),
		0,                    // sched
		mov32(0, 0x3F800000),
		mov32(1, 0x3F800000),
		mov32(2, 0x3F800000),
		0,                    // sched
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

const (
	codeBase       = uint64(0x100000)
	fragmentOffset = uint32(0x800)
)

type env struct {
	dev   *null.Device
	mgr   *gmem.Manager
	regs  engine.Regs
	cache *Cache
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{dev: null.NewDevice()}
	t.Cleanup(e.dev.Destroy)
	e.mgr = gmem.NewManager(gmem.NewRAM(codeBase, 1<<20))
	gpuBase, err := e.mgr.MapAllocate(codeBase, 1<<20)
	if err != nil {
		t.Fatalf("MapAllocate: %v", err)
	}
	e.regs.Reset()
	e.regs.CodeAddress = gpuBase
	e.cache = NewCache(e.dev, e.mgr)
	t.Cleanup(e.cache.Destroy)
	e.writeProgram(t, 0, vertexProgram())
	return e
}

func (e *env) writeProgram(t *testing.T, offset uint32, code []uint64) {
	t.Helper()
	buf := make([]byte, len(code)*8)
	for i, w := range code {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
	if err := e.mgr.WriteBlock(codeBase+uint64(offset), buf); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
}

func (e *env) enableFragment(t *testing.T) {
	t.Helper()
	e.writeProgram(t, fragmentOffset, fragmentProgram())
	e.regs.ShaderConfig[engine.ProgramFragment] = engine.ShaderConfig{
		Enable: true,
		Offset: fragmentOffset,
	}
	e.regs.RTCount = 1
	e.regs.RT[0].Format = engine.RenderTargetRGBA8Unorm
}

func TestGetPipelineCompilesOnce(t *testing.T) {
	e := newEnv(t)
	e.enableFragment(t)

	p1, err := e.cache.GetPipeline(&e.regs)
	if err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	if p1.Pipeline() == host.InvalidID || p1.Layout() == host.InvalidID {
		t.Fatal("pipeline has invalid host handles")
	}
	if p1.VertexShader() == nil || p1.FragmentShader() == nil {
		t.Fatal("pipeline missing shader stages")
	}

	p2, err := e.cache.GetPipeline(&e.regs)
	if err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	if p1 != p2 {
		t.Error("identical state compiled two pipelines")
	}

	st := e.cache.Stats()
	if st.Misses != 1 || st.Hits != 1 {
		t.Errorf("stats = %s, want 1 miss and 1 hit", st)
	}
	if st.Shaders != 2 || st.Pipelines != 1 {
		t.Errorf("stats = %s, want 2 shaders and 1 pipeline", st)
	}
}

func TestGetPipelineVertexOnly(t *testing.T) {
	e := newEnv(t)

	p, err := e.cache.GetPipeline(&e.regs)
	if err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	if p.FragmentShader() != nil {
		t.Error("fragment stage present, want none")
	}
	if st := e.cache.Stats(); st.Shaders != 1 {
		t.Errorf("stats = %s, want 1 shader", st)
	}
}

func TestGetPipelineFixedStateVariant(t *testing.T) {
	// Changing fixed-function state must produce a second pipeline while
	// the translated shaders are shared.
	e := newEnv(t)
	e.enableFragment(t)

	if _, err := e.cache.GetPipeline(&e.regs); err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	e.regs.Topology = engine.TopologyTriangleStrip
	if _, err := e.cache.GetPipeline(&e.regs); err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}

	st := e.cache.Stats()
	if st.Pipelines != 2 || st.Shaders != 2 {
		t.Errorf("stats = %s, want 2 pipelines over 2 shaders", st)
	}
}

func TestInvalidateRegion(t *testing.T) {
	e := newEnv(t)
	e.enableFragment(t)
	if _, err := e.cache.GetPipeline(&e.regs); err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}

	// Touching the first vertex code byte drops the vertex shader and the
	// pipeline built from it; the fragment shader survives.
	if dropped := e.cache.InvalidateRegion(codeBase, 8, nil); dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	st := e.cache.Stats()
	if st.Shaders != 1 || st.Pipelines != 0 {
		t.Errorf("stats after invalidate = %s, want 1 shader and 0 pipelines", st)
	}

	if dropped := e.cache.InvalidateRegion(codeBase+1<<19, 8, nil); dropped != 0 {
		t.Errorf("dropped = %d over untouched range, want 0", dropped)
	}

	if _, err := e.cache.GetPipeline(&e.regs); err != nil {
		t.Fatalf("GetPipeline after invalidate: %v", err)
	}
	if st := e.cache.Stats(); st.Shaders != 2 || st.Pipelines != 1 {
		t.Errorf("stats after rebuild = %s, want 2 shaders and 1 pipeline", st)
	}
}

func TestRebuildReusesTranslation(t *testing.T) {
	// Unchanged code dropped by invalidation must hit the translation
	// memo on rebuild instead of retranslating.
	e := newEnv(t)
	p1, err := e.cache.GetPipeline(&e.regs)
	if err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	e.cache.InvalidateRegion(codeBase, 8, nil)
	p2, err := e.cache.GetPipeline(&e.regs)
	if err != nil {
		t.Fatalf("GetPipeline after invalidate: %v", err)
	}
	if p1.VertexShader().Program() != p2.VertexShader().Program() {
		t.Error("rebuild translated the program again")
	}
}

// Invalidation under a fence that has not signaled must keep the host
// handles alive until the batch completes; a submitted batch may still
// execute against them.
func TestInvalidateDefersDestroy(t *testing.T) {
	e := newEnv(t)
	s, err := sched.New(e.dev)
	if err != nil {
		t.Fatalf("sched.New: %v", err)
	}
	defer s.Destroy()

	if _, err := e.cache.GetPipeline(&e.regs); err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	live := e.dev.Stats().Pipelines

	// The batch is still recording, so its fence cannot have signaled.
	if dropped := e.cache.InvalidateRegion(codeBase, 8, s.CurrentFence()); dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if got := e.dev.Stats().Pipelines; got != live {
		t.Errorf("live pipelines = %d, want %d; destroyed under a pending fence", got, live)
	}

	if _, err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	// The rebuild collects the retired handles first, so the old pipeline
	// is gone and only the fresh one remains.
	if _, err := e.cache.GetPipeline(&e.regs); err != nil {
		t.Fatalf("GetPipeline after invalidate: %v", err)
	}
	if got := e.dev.Stats().Pipelines; got != live {
		t.Errorf("live pipelines = %d, want %d after retirement", got, live)
	}
}

func TestGetPipelineUnmappedCode(t *testing.T) {
	e := newEnv(t)
	e.regs.CodeAddress = 0 // page zero is never mapped
	if _, err := e.cache.GetPipeline(&e.regs); !errors.Is(err, gmem.ErrUnmapped) {
		t.Fatalf("err = %v, want ErrUnmapped", err)
	}
}

func TestGetPipelineUnsupportedStage(t *testing.T) {
	e := newEnv(t)
	e.regs.ShaderConfig[engine.ProgramGeometry].Enable = true
	if _, err := e.cache.GetPipeline(&e.regs); !errors.Is(err, ErrUnsupportedStage) {
		t.Fatalf("err = %v, want ErrUnsupportedStage", err)
	}
}

func TestCommitDescriptorSet(t *testing.T) {
	e := newEnv(t)
	p, err := e.cache.GetPipeline(&e.regs)
	if err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	set, err := p.VertexShader().CommitDescriptorSet(nil)
	if err != nil {
		t.Fatalf("CommitDescriptorSet: %v", err)
	}
	if set == host.InvalidID {
		t.Error("got invalid descriptor set")
	}
}

func TestWriteMask(t *testing.T) {
	tests := []struct {
		components [4]bool
		program    uint8
		want       uint8
	}{
		{[4]bool{true, true, true, true}, 0xF, 0xF},
		{[4]bool{true, true, false, true}, 0xF, 0xB},
		{[4]bool{true, true, true, true}, 0x3, 0x3},
		{[4]bool{false, false, false, false}, 0xF, 0x0},
	}
	for _, tt := range tests {
		if got := writeMask(tt.components, tt.program); uint8(got) != tt.want {
			t.Errorf("writeMask(%v, %#x) = %#x, want %#x",
				tt.components, tt.program, got, tt.want)
		}
	}
}
