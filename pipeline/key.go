// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import "github.com/gogpu/maxwell/engine"

// FixedState is the fixed-function state baked into a host pipeline. It
// is comparable and hangs off the cache key; two draws with equal
// FixedState and equal shaders share one pipeline.
type FixedState struct {
	Topology   engine.PrimitiveTopology
	CullEnable bool
	CullFace   engine.CullFace
	FrontFace  engine.FrontFace

	ColorCount   uint32
	ColorFormats [engine.NumRenderTargets]engine.RenderTargetFormat
	Blend        [engine.NumRenderTargets]engine.BlendState

	ZetaEnable       bool
	DepthFormat      engine.DepthFormat
	DepthTestEnable  bool
	DepthWriteEnable bool
	DepthTestFunc    engine.ComparisonOp
	StencilEnable    bool
	StencilFront     engine.StencilFaceState
	StencilBack      engine.StencilFaceState

	VertexAttribs   [engine.NumVertexAttribs]engine.VertexAttrib
	VertexStrides   [engine.NumVertexArrays]uint32
	VertexInstanced [engine.NumVertexArrays]bool
}

// FixedStateFromRegs snapshots the pipeline-relevant register state.
func FixedStateFromRegs(regs *engine.Regs) FixedState {
	s := FixedState{
		Topology:   regs.Topology,
		CullEnable: regs.CullEnable,
		CullFace:   regs.CullFace,
		FrontFace:  regs.FrontFace,

		ColorCount: regs.RTCount,
		Blend:      regs.Blend,

		ZetaEnable:       regs.ZetaEnable,
		DepthFormat:      regs.Zeta.Format,
		DepthTestEnable:  regs.DepthTestEnable,
		DepthWriteEnable: regs.DepthWriteEnable,
		DepthTestFunc:    regs.DepthTestFunc,
		StencilEnable:    regs.StencilEnable,
		StencilFront:     regs.StencilFront,
		StencilBack:      regs.StencilBack,

		VertexAttribs: regs.VertexAttribs,
	}
	for i := range regs.RT {
		s.ColorFormats[i] = regs.RT[i].Format
	}
	for i := range regs.VertexArrays {
		s.VertexStrides[i] = regs.VertexArrays[i].Stride
		s.VertexInstanced[i] = regs.VertexArrays[i].Divisor != 0
	}
	if !regs.StencilTwoSided {
		s.StencilBack = s.StencilFront
	}
	return s
}

// Key identifies one pipeline: the CPU addresses of the per-stage shader
// programs plus the fixed-function state.
type Key struct {
	Shaders [engine.MaxShaderStage]uint64
	Fixed   FixedState
}
