// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import "fmt"

// RenderTargetFormat is the guest encoding of a color target format.
type RenderTargetFormat uint32

const (
	RenderTargetNone       RenderTargetFormat = 0
	RenderTargetRGBA32F    RenderTargetFormat = 0xC0
	RenderTargetRGBA8Unorm RenderTargetFormat = 0xD5
	RenderTargetRGBA8Srgb  RenderTargetFormat = 0xD6
	RenderTargetBGRA8Unorm RenderTargetFormat = 0xCF
	RenderTargetBGRA8Srgb  RenderTargetFormat = 0xD0
	RenderTargetR8Unorm    RenderTargetFormat = 0xF3
	RenderTargetR32F       RenderTargetFormat = 0xE5
	RenderTargetRG32F      RenderTargetFormat = 0xCB
)

func (f RenderTargetFormat) String() string {
	switch f {
	case RenderTargetNone:
		return "None"
	case RenderTargetRGBA32F:
		return "RGBA32F"
	case RenderTargetRGBA8Unorm:
		return "RGBA8Unorm"
	case RenderTargetRGBA8Srgb:
		return "RGBA8Srgb"
	case RenderTargetBGRA8Unorm:
		return "BGRA8Unorm"
	case RenderTargetBGRA8Srgb:
		return "BGRA8Srgb"
	case RenderTargetR8Unorm:
		return "R8Unorm"
	case RenderTargetR32F:
		return "R32F"
	case RenderTargetRG32F:
		return "RG32F"
	default:
		return fmt.Sprintf("Unknown(%#x)", uint32(f))
	}
}

// DepthFormat is the guest encoding of a depth buffer format.
type DepthFormat uint32

const (
	DepthZ32F    DepthFormat = 0x0A
	DepthZ16     DepthFormat = 0x13
	DepthS8Z24   DepthFormat = 0x14
	DepthZ24S8   DepthFormat = 0x17
	DepthZ32FS8X DepthFormat = 0x19
)

func (f DepthFormat) String() string {
	switch f {
	case DepthZ32F:
		return "Z32F"
	case DepthZ16:
		return "Z16"
	case DepthS8Z24:
		return "S8Z24"
	case DepthZ24S8:
		return "Z24S8"
	case DepthZ32FS8X:
		return "Z32FS8X"
	default:
		return fmt.Sprintf("Unknown(%#x)", uint32(f))
	}
}

// MemoryLayout distinguishes block-linear (tiled) surfaces from
// pitch-linear ones.
type MemoryLayout uint32

const (
	LayoutBlockLinear MemoryLayout = 0
	LayoutPitch       MemoryLayout = 1
)

func (l MemoryLayout) String() string {
	switch l {
	case LayoutBlockLinear:
		return "BlockLinear"
	case LayoutPitch:
		return "Pitch"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(l))
	}
}

// ComparisonOp is the guest depth/stencil comparison function. The guest
// accepts both the GL-numbered and the D3D-numbered variants.
type ComparisonOp uint32

const (
	CompareNever        ComparisonOp = 1
	CompareLess         ComparisonOp = 2
	CompareEqual        ComparisonOp = 3
	CompareLessEqual    ComparisonOp = 4
	CompareGreater      ComparisonOp = 5
	CompareNotEqual     ComparisonOp = 6
	CompareGreaterEqual ComparisonOp = 7
	CompareAlways       ComparisonOp = 8

	CompareNeverGL        ComparisonOp = 0x200
	CompareLessGL         ComparisonOp = 0x201
	CompareEqualGL        ComparisonOp = 0x202
	CompareLessEqualGL    ComparisonOp = 0x203
	CompareGreaterGL      ComparisonOp = 0x204
	CompareNotEqualGL     ComparisonOp = 0x205
	CompareGreaterEqualGL ComparisonOp = 0x206
	CompareAlwaysGL       ComparisonOp = 0x207
)

// StencilOp is the guest stencil action encoding.
type StencilOp uint32

const (
	StencilKeep     StencilOp = 1
	StencilZero     StencilOp = 2
	StencilReplace  StencilOp = 3
	StencilIncr     StencilOp = 4
	StencilDecr     StencilOp = 5
	StencilInvert   StencilOp = 6
	StencilIncrWrap StencilOp = 7
	StencilDecrWrap StencilOp = 8
)

// PrimitiveTopology is the guest draw topology encoding.
type PrimitiveTopology uint32

const (
	TopologyPoints        PrimitiveTopology = 0x0
	TopologyLines         PrimitiveTopology = 0x1
	TopologyLineStrip     PrimitiveTopology = 0x3
	TopologyTriangles     PrimitiveTopology = 0x4
	TopologyTriangleStrip PrimitiveTopology = 0x5
)

func (t PrimitiveTopology) String() string {
	switch t {
	case TopologyPoints:
		return "Points"
	case TopologyLines:
		return "Lines"
	case TopologyLineStrip:
		return "LineStrip"
	case TopologyTriangles:
		return "Triangles"
	case TopologyTriangleStrip:
		return "TriangleStrip"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(t))
	}
}

// IndexFormat is the guest index buffer element width.
type IndexFormat uint32

const (
	IndexUint8  IndexFormat = 0
	IndexUint16 IndexFormat = 1
	IndexUint32 IndexFormat = 2
)

// BlendEquation is the guest blend operation encoding.
type BlendEquation uint32

const (
	BlendAdd             BlendEquation = 1
	BlendSubtract        BlendEquation = 2
	BlendReverseSubtract BlendEquation = 3
	BlendMin             BlendEquation = 4
	BlendMax             BlendEquation = 5
)

// BlendFactor is the guest blend factor encoding.
type BlendFactor uint32

const (
	FactorZero             BlendFactor = 0x1
	FactorOne              BlendFactor = 0x2
	FactorSrcColor         BlendFactor = 0x3
	FactorOneMinusSrcColor BlendFactor = 0x4
	FactorSrcAlpha         BlendFactor = 0x5
	FactorOneMinusSrcAlpha BlendFactor = 0x6
	FactorDstAlpha         BlendFactor = 0x7
	FactorOneMinusDstAlpha BlendFactor = 0x8
	FactorDstColor         BlendFactor = 0x9
	FactorOneMinusDstColor BlendFactor = 0xA
	FactorSrcAlphaSat      BlendFactor = 0xB
)

// CullFace selects which winding is culled.
type CullFace uint32

const (
	CullFront        CullFace = 0x404
	CullBack         CullFace = 0x405
	CullFrontAndBack CullFace = 0x408
)

// FrontFace selects the winding considered front-facing.
type FrontFace uint32

const (
	FrontCW  FrontFace = 0x900
	FrontCCW FrontFace = 0x901
)

// VertexAttribType is the guest vertex attribute component interpretation.
type VertexAttribType uint32

const (
	AttribTypeSNorm VertexAttribType = 1
	AttribTypeUNorm VertexAttribType = 2
	AttribTypeSInt  VertexAttribType = 3
	AttribTypeUInt  VertexAttribType = 4
	AttribTypeFloat VertexAttribType = 6
)

// VertexAttribSize is the guest vertex attribute component layout.
type VertexAttribSize uint32

const (
	AttribSize32x4 VertexAttribSize = 0x01
	AttribSize32x3 VertexAttribSize = 0x02
	AttribSize32x2 VertexAttribSize = 0x04
	AttribSize32   VertexAttribSize = 0x12
	AttribSize8x4  VertexAttribSize = 0x0A
)

// ShaderProgram identifies one of the guest's shader program slots.
// VertexA is an optional pre-stage merged into VertexB on real hardware.
type ShaderProgram int

const (
	ProgramVertexA ShaderProgram = iota
	ProgramVertexB
	ProgramTessControl
	ProgramTessEval
	ProgramGeometry
	ProgramFragment

	MaxShaderProgram = 6
	MaxShaderStage   = 5
)

func (p ShaderProgram) String() string {
	switch p {
	case ProgramVertexA:
		return "VertexA"
	case ProgramVertexB:
		return "VertexB"
	case ProgramTessControl:
		return "TessControl"
	case ProgramTessEval:
		return "TessEval"
	case ProgramGeometry:
		return "Geometry"
	case ProgramFragment:
		return "Fragment"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// ShaderStage is the pipeline stage a program slot feeds. VertexA and
// VertexB collapse into the single vertex stage.
type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StageTessControl
	StageTessEval
	StageGeometry
	StageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "Vertex"
	case StageTessControl:
		return "TessControl"
	case StageTessEval:
		return "TessEval"
	case StageGeometry:
		return "Geometry"
	case StageFragment:
		return "Fragment"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Stage maps a program slot to its pipeline stage.
func (p ShaderProgram) Stage() ShaderStage {
	if p == ProgramVertexA {
		return StageVertex
	}
	return ShaderStage(p - 1)
}
