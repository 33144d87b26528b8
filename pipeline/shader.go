// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/maxwell/engine"
	"github.com/gogpu/maxwell/host"
	"github.com/gogpu/maxwell/sched"
	"github.com/gogpu/maxwell/shader"
)

// maxProgramWords bounds how much code is read for one program. Guest
// programs declare no length; the stream is read up to this limit and
// trimmed at the last non-zero word.
const maxProgramWords = 0x1000

// CachedShader is one translated guest program with its host module,
// descriptor set layout and descriptor arena.
type CachedShader struct {
	addr    uint64
	size    uint64
	stage   engine.ShaderStage
	program *shader.Program
	module  host.ShaderModuleID
	layout  host.DescriptorSetLayoutID
	sets    *sched.FencedPool[host.DescriptorSetID]
}

// Addr returns the CPU address of the guest code.
func (s *CachedShader) Addr() uint64 { return s.addr }

// Size returns the number of guest code bytes the entry covers.
func (s *CachedShader) Size() uint64 { return s.size }

// Stage returns the pipeline stage the program feeds.
func (s *CachedShader) Stage() engine.ShaderStage { return s.stage }

// Program returns the translation result, including the manifest.
func (s *CachedShader) Program() *shader.Program { return s.program }

// Module returns the compiled host shader module.
func (s *CachedShader) Module() host.ShaderModuleID { return s.module }

// Layout returns the stage's descriptor set layout.
func (s *CachedShader) Layout() host.DescriptorSetLayoutID { return s.layout }

// CommitDescriptorSet leases a descriptor set for one draw and tags it
// with the batch fence so it is not reused until the batch completes.
func (s *CachedShader) CommitDescriptorSet(fence *sched.Fence) (host.DescriptorSetID, error) {
	return s.sets.Commit(fence)
}

func (s *CachedShader) destroy(dev host.Device) {
	dev.DestroyShaderModule(s.module)
	dev.DestroyDescriptorSetLayout(s.layout)
}

func (s *CachedShader) destroyer(dev host.Device) func() {
	return func() { s.destroy(dev) }
}

// readProgram reads the guest code at a CPU address. The read shrinks
// when the full window is not mapped; programs sit near the end of their
// code pages.
func (c *Cache) readProgram(cpuAddr uint64) ([]uint64, error) {
	words := maxProgramWords
	buf := make([]byte, words*8)
	for {
		if err := c.mem.ReadBlock(cpuAddr, buf[:words*8]); err == nil {
			break
		}
		words /= 2
		if words <= shader.MainOffset {
			return nil, fmt.Errorf("%w: program at %#x", ErrShaderFetch, cpuAddr)
		}
	}
	code := make([]uint64, words)
	for i := range code {
		code[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	// Trim trailing zero words; the stream beyond the last instruction
	// is padding.
	end := len(code)
	for end > shader.MainOffset+1 && code[end-1] == 0 {
		end--
	}
	return code[:end], nil
}

// hashProgram fingerprints the code words and stage for the translation
// memo.
func hashProgram(code []uint64, stage engine.ShaderStage) uint64 {
	h := fnv.New64a()
	var w [8]byte
	for _, word := range code {
		binary.LittleEndian.PutUint64(w[:], word)
		h.Write(w[:])
	}
	w[0] = byte(stage)
	h.Write(w[:1])
	return h.Sum64()
}

// getShader returns the translated program at a CPU address, compiling
// it on first use. Guests reupload identical programs constantly, so
// translation results are memoized by content hash and survive address
// invalidation.
func (c *Cache) getShader(cpuAddr uint64, stage engine.ShaderStage) (*CachedShader, error) {
	if s, ok := c.shaders[cpuAddr]; ok {
		return s, nil
	}
	code, err := c.readProgram(cpuAddr)
	if err != nil {
		return nil, err
	}
	hash := hashProgram(code, stage)
	program, ok := c.programs.Get(hash)
	if !ok {
		program, err = shader.Decompile(code, shader.MainOffset, stage)
		if err != nil {
			return nil, fmt.Errorf("shader at %#x: %w", cpuAddr, err)
		}
		c.programs.Set(hash, program)
	}

	label := fmt.Sprintf("%s_%x", stageTag(stage), cpuAddr)
	module, err := c.dev.CreateShaderModule(label, program.SPIRV)
	if err != nil {
		return nil, err
	}
	layout, err := c.dev.CreateDescriptorSetLayout(&host.DescriptorSetLayoutDescriptor{
		Label:    label,
		Bindings: descriptorBindings(&program.Manifest),
	})
	if err != nil {
		c.dev.DestroyShaderModule(module)
		return nil, err
	}

	s := &CachedShader{
		addr:    cpuAddr,
		size:    uint64(len(code)) * 8,
		stage:   stage,
		program: program,
		module:  module,
		layout:  layout,
	}
	s.sets = sched.NewFencedPool(sched.DefaultPoolBatch, func(count int) ([]host.DescriptorSetID, error) {
		return c.dev.AllocateDescriptorSets(layout, count)
	})
	c.shaders[cpuAddr] = s
	return s, nil
}

func stageTag(stage engine.ShaderStage) string {
	if stage == engine.StageFragment {
		return "fs"
	}
	return "vs"
}

// descriptorBindings derives the stage's set layout from the manifest.
// Constant buffers bind as uniform buffers at their guest slot index.
func descriptorBindings(m *shader.Manifest) []host.DescriptorBinding {
	visibility := gputypes.ShaderStageVertex
	if m.Stage == engine.StageFragment {
		visibility = gputypes.ShaderStageFragment
	}
	bindings := make([]host.DescriptorBinding, 0, len(m.ConstBuffers))
	for _, cb := range m.ConstBuffers {
		bindings = append(bindings, host.DescriptorBinding{
			Binding: cb.Binding,
			Type:    host.DescriptorUniformBuffer,
			Stages:  visibility,
		})
	}
	return bindings
}
