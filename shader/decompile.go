// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/maxwell/engine"
)

var (
	// ErrUnsupportedStage is returned for stages the translator cannot
	// target yet.
	ErrUnsupportedStage = errors.New("shader: unsupported stage")

	// ErrCompile wraps WGSL-to-SPIR-V compilation failures.
	ErrCompile = errors.New("shader: module compilation failed")
)

// ConstBufferEntry describes one constant buffer a program reads.
type ConstBufferEntry struct {
	// Index is the guest constant buffer slot.
	Index uint32
	// Binding is the descriptor binding within the stage's set. It
	// matches the guest slot so layouts stay stable across programs.
	Binding uint32
	// MaxWord is the highest 32-bit word offset accessed directly.
	MaxWord uint32
	// Indirect marks run-time indexed access; the whole declared buffer
	// range must be bound.
	Indirect bool
}

// Manifest lists the external resources a translated program touches. The
// pipeline layer derives descriptor set layouts and vertex state from it.
type Manifest struct {
	Stage        engine.ShaderStage
	ConstBuffers []ConstBufferEntry

	// InputAttributes and OutputAttributes hold generic attribute
	// indices, sorted.
	InputAttributes  []uint32
	OutputAttributes []uint32

	UsesVertexIndex   bool
	UsesInstanceIndex bool
	ReadsPosition     bool
	WritesPosition    bool

	// WritesDepth and ColorMasks come from the fragment program header.
	WritesDepth bool
	ColorMasks  [engine.NumRenderTargets]uint8
}

// Program is a fully translated guest shader.
type Program struct {
	Stage engine.ShaderStage
	Entry string

	// WGSL is the generated source; SPIRV the compiled module. SPIRV is
	// empty when the program was only translated, not compiled.
	WGSL  string
	SPIRV []byte

	Manifest    Manifest
	Subroutines []*Subroutine
}

// Translate generates the WGSL rendition and manifest of a guest program.
// Only the vertex and fragment stages are supported.
func Translate(code []uint64, mainOffset uint32, stage engine.ShaderStage) (*Program, error) {
	if stage != engine.StageVertex && stage != engine.StageFragment {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStage, stage)
	}
	header, err := ParseHeader(code)
	if err != nil {
		return nil, err
	}
	subs, err := analyzeFlow(code, mainOffset)
	if err != nil {
		return nil, err
	}
	t := newTranslator(code, mainOffset, stage, header)
	wgsl, err := t.generate(subs)
	if err != nil {
		return nil, err
	}
	return &Program{
		Stage:       stage,
		Entry:       EntryPoint(stage),
		WGSL:        wgsl,
		Manifest:    t.manifest(),
		Subroutines: subs,
	}, nil
}

// Decompile translates a guest program and compiles it to SPIR-V.
func Decompile(code []uint64, mainOffset uint32, stage engine.ShaderStage) (*Program, error) {
	program, err := Translate(code, mainOffset, stage)
	if err != nil {
		return nil, err
	}
	spirv, err := naga.Compile(program.WGSL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	program.SPIRV = spirv
	return program, nil
}

// manifest snapshots the resource usage collected during generation.
func (t *translator) manifest() Manifest {
	m := Manifest{
		Stage:             t.stage,
		InputAttributes:   t.sortedInputs(),
		OutputAttributes:  t.sortedOutputs(),
		UsesVertexIndex:   t.usesVertexIndex,
		UsesInstanceIndex: t.usesInstanceIndex,
		ReadsPosition:     t.readsPosition,
		WritesPosition:    t.writesPosition,
	}
	for _, idx := range t.sortedCbufs() {
		use := t.cbufs[idx]
		m.ConstBuffers = append(m.ConstBuffers, ConstBufferEntry{
			Index:    idx,
			Binding:  idx,
			MaxWord:  use.maxWord,
			Indirect: use.indirect,
		})
	}
	if t.stage == engine.StageFragment {
		m.WritesDepth = t.header.WritesDepth()
		for rt := 0; rt < engine.NumRenderTargets; rt++ {
			m.ColorMasks[rt] = t.header.ColorWriteMask(rt)
		}
	}
	return m
}
