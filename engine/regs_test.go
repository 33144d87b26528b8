// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import "testing"

func TestShaderProgramStage(t *testing.T) {
	tests := []struct {
		program ShaderProgram
		want    ShaderStage
	}{
		{ProgramVertexA, StageVertex},
		{ProgramVertexB, StageVertex},
		{ProgramTessControl, StageTessControl},
		{ProgramTessEval, StageTessEval},
		{ProgramGeometry, StageGeometry},
		{ProgramFragment, StageFragment},
	}
	for _, tt := range tests {
		t.Run(tt.program.String(), func(t *testing.T) {
			if got := tt.program.Stage(); got != tt.want {
				t.Errorf("%v.Stage() = %v, want %v", tt.program, got, tt.want)
			}
		})
	}
}

func TestIsShaderConfigEnabled(t *testing.T) {
	var r Regs
	r.Reset()

	if !r.IsShaderConfigEnabled(ProgramVertexB) {
		t.Error("VertexB must always be enabled")
	}
	if r.IsShaderConfigEnabled(ProgramFragment) {
		t.Error("Fragment enabled before configuration")
	}
	r.ShaderConfig[ProgramFragment].Enable = true
	if !r.IsShaderConfigEnabled(ProgramFragment) {
		t.Error("Fragment not enabled after configuration")
	}
}

func TestShaderAddress(t *testing.T) {
	var r Regs
	r.Reset()
	r.CodeAddress = 0x1_0000_0000
	r.ShaderConfig[ProgramVertexB].Offset = 0x300
	if got := r.ShaderAddress(ProgramVertexB); got != 0x1_0000_0300 {
		t.Errorf("ShaderAddress = %#x, want 0x1_0000_0300", got)
	}
}

func TestResetDefaults(t *testing.T) {
	var r Regs
	r.CullEnable = true
	r.Reset()

	if r.CullEnable {
		t.Error("Reset kept stale CullEnable")
	}
	if r.FrontFace != FrontCCW {
		t.Errorf("FrontFace = %#x, want FrontCCW", uint32(r.FrontFace))
	}
	if r.ClearDepth != 1.0 {
		t.Errorf("ClearDepth = %v, want 1.0", r.ClearDepth)
	}
	if r.Blend[0].SrcRGB != FactorOne || r.Blend[0].DstRGB != FactorZero {
		t.Error("blend defaults not One/Zero")
	}
	if r.StencilFront.Func != CompareAlways {
		t.Error("stencil default func not Always")
	}
}
