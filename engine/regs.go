// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

// Register file limits.
const (
	NumRenderTargets  = 8
	NumVertexArrays   = 32
	NumVertexAttribs  = 32
	MaxConstBuffers   = 18
	MaxConstBufferLen = 0x10000 // bytes per constant buffer
)

// RenderTarget describes one color attachment as configured by the guest.
type RenderTarget struct {
	Address     uint64 // GPU VA of the surface
	Width       uint32
	Height      uint32
	Format      RenderTargetFormat
	Layout      MemoryLayout
	BlockWidth  uint32 // log2 GOBs
	BlockHeight uint32 // log2 GOBs
	BlockDepth  uint32 // log2 GOBs
}

// Zeta describes the depth/stencil attachment.
type Zeta struct {
	Address     uint64
	Format      DepthFormat
	Layout      MemoryLayout
	BlockWidth  uint32
	BlockHeight uint32
	BlockDepth  uint32
}

// Viewport is the active viewport transform in window coordinates.
type Viewport struct {
	X, Y          float32
	Width, Height float32
}

// VertexArray is one vertex buffer binding slot.
type VertexArray struct {
	Enable  bool
	Address uint64 // GPU VA of the vertex data
	Stride  uint32
	Divisor uint32 // non-zero means per-instance stepping
}

// VertexAttrib is one vertex attribute descriptor.
type VertexAttrib struct {
	Buffer uint32 // vertex array slot feeding this attribute
	Offset uint32
	Type   VertexAttribType
	Size   VertexAttribSize
}

// StencilFaceState is the per-face stencil configuration.
type StencilFaceState struct {
	FailOp   StencilOp
	ZFailOp  StencilOp
	ZPassOp  StencilOp
	Func     ComparisonOp
	Ref      int32
	FuncMask uint32
	Mask     uint32
}

// BlendState is the per-target blend configuration.
type BlendState struct {
	Enable      bool
	RGBEquation BlendEquation
	SrcRGB      BlendFactor
	DstRGB      BlendFactor
	AEquation   BlendEquation
	SrcA        BlendFactor
	DstA        BlendFactor
	Components  [4]bool // RGBA write enables
}

// ShaderConfig is one shader program slot header.
type ShaderConfig struct {
	Enable bool
	Offset uint32 // byte offset from CodeAddress to the program
}

// IndexArray is the bound index buffer.
type IndexArray struct {
	Address uint64
	Format  IndexFormat
	First   uint32
	Count   uint32
}

// ConstBuffer is the currently selected constant buffer window.
type ConstBuffer struct {
	Address uint64
	Size    uint32
}

// Regs is the subset of the guest 3D engine register file the translation
// layer consumes. A frontend decodes the guest command stream into these
// fields (or pokes them directly in tests) before issuing draws.
type Regs struct {
	RT         [NumRenderTargets]RenderTarget
	RTCount    uint32 // rt_control.count: number of active color targets
	Zeta       Zeta
	ZetaEnable bool
	ZetaWidth  uint32
	ZetaHeight uint32

	Viewport Viewport

	VertexArrays  [NumVertexArrays]VertexArray
	VertexAttribs [NumVertexAttribs]VertexAttrib
	IndexArray    IndexArray

	// CodeAddress is the GPU VA shader programs are offset from.
	CodeAddress  uint64
	ShaderConfig [MaxShaderProgram]ShaderConfig

	// ConstBuffers is the bound constant buffer table per stage.
	ConstBuffers [MaxShaderStage][MaxConstBuffers]ConstBuffer

	DepthTestEnable  bool
	DepthWriteEnable bool
	DepthTestFunc    ComparisonOp

	StencilEnable   bool
	StencilTwoSided bool
	StencilFront    StencilFaceState
	StencilBack     StencilFaceState

	Blend [NumRenderTargets]BlendState

	CullEnable bool
	CullFace   CullFace
	FrontFace  FrontFace

	Topology PrimitiveTopology

	ClearColor   [4]float32
	ClearDepth   float32
	ClearStencil uint32
}

// IsShaderConfigEnabled reports whether a program slot participates in the
// next draw. VertexB is always enabled on this hardware family.
func (r *Regs) IsShaderConfigEnabled(program ShaderProgram) bool {
	if program == ProgramVertexB {
		return true
	}
	return r.ShaderConfig[program].Enable
}

// ShaderAddress returns the GPU VA of a program slot's code.
func (r *Regs) ShaderAddress(program ShaderProgram) uint64 {
	return r.CodeAddress + uint64(r.ShaderConfig[program].Offset)
}

// Reset restores architectural defaults for fields whose zero value is not
// the hardware default.
func (r *Regs) Reset() {
	*r = Regs{}
	r.FrontFace = FrontCCW
	r.CullFace = CullBack
	r.DepthTestFunc = CompareAlways
	r.Topology = TopologyTriangles
	r.ClearDepth = 1.0
	for i := range r.Blend {
		r.Blend[i].Components = [4]bool{true, true, true, true}
		r.Blend[i].RGBEquation = BlendAdd
		r.Blend[i].AEquation = BlendAdd
		r.Blend[i].SrcRGB = FactorOne
		r.Blend[i].SrcA = FactorOne
		r.Blend[i].DstRGB = FactorZero
		r.Blend[i].DstA = FactorZero
	}
	def := StencilFaceState{
		FailOp:   StencilKeep,
		ZFailOp:  StencilKeep,
		ZPassOp:  StencilKeep,
		Func:     CompareAlways,
		FuncMask: 0xFF,
		Mask:     0xFF,
	}
	r.StencilFront = def
	r.StencilBack = def
}
