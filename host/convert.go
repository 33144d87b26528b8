// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package host

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/maxwell/engine"
)

// ErrNoConversion reports a guest state encoding the host vocabulary
// cannot express. Surface creation and pipeline build treat it as an
// invariant violation (loud failure, not a skip).
var ErrNoConversion = errors.New("host: no conversion for guest encoding")

// SurfaceFormat maps a guest render target format to the host format.
func SurfaceFormat(format engine.RenderTargetFormat) (gputypes.TextureFormat, error) {
	switch format {
	case engine.RenderTargetRGBA8Unorm, engine.RenderTargetRGBA8Srgb:
		// sRGB conversion is handled by the translated shaders, not the
		// view format, matching the guest's framebuffer semantics.
		return gputypes.TextureFormatRGBA8Unorm, nil
	case engine.RenderTargetBGRA8Unorm, engine.RenderTargetBGRA8Srgb:
		return gputypes.TextureFormatBGRA8Unorm, nil
	case engine.RenderTargetR8Unorm:
		return gputypes.TextureFormatR8Unorm, nil
	case engine.RenderTargetR32F:
		return gputypes.TextureFormatR32Float, nil
	case engine.RenderTargetRG32F:
		return gputypes.TextureFormatRG32Float, nil
	case engine.RenderTargetRGBA32F:
		return gputypes.TextureFormatRGBA32Float, nil
	default:
		return gputypes.TextureFormatUndefined,
			fmt.Errorf("%w: render target format %v", ErrNoConversion, format)
	}
}

// DepthSurfaceFormat maps a guest depth format to the host format.
func DepthSurfaceFormat(format engine.DepthFormat) (gputypes.TextureFormat, error) {
	switch format {
	case engine.DepthS8Z24, engine.DepthZ24S8:
		// S8Z24 is byte-swizzled to Z24S8 in software before upload.
		return gputypes.TextureFormatDepth24PlusStencil8, nil
	case engine.DepthZ32F:
		return gputypes.TextureFormatDepth32Float, nil
	default:
		return gputypes.TextureFormatUndefined,
			fmt.Errorf("%w: depth format %v", ErrNoConversion, format)
	}
}

// BytesPerPixel returns the host byte size of one pixel of the format.
func BytesPerPixel(format gputypes.TextureFormat) uint32 {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatR32Float, gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32Float:
		return 4
	case gputypes.TextureFormatRG32Float:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	default:
		return 4
	}
}

// Topology maps a guest draw topology to the host topology.
func Topology(t engine.PrimitiveTopology) (gputypes.PrimitiveTopology, error) {
	switch t {
	case engine.TopologyPoints:
		return gputypes.PrimitiveTopologyPointList, nil
	case engine.TopologyLines:
		return gputypes.PrimitiveTopologyLineList, nil
	case engine.TopologyLineStrip:
		return gputypes.PrimitiveTopologyLineStrip, nil
	case engine.TopologyTriangles:
		return gputypes.PrimitiveTopologyTriangleList, nil
	case engine.TopologyTriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip, nil
	default:
		return gputypes.PrimitiveTopologyTriangleList,
			fmt.Errorf("%w: topology %v", ErrNoConversion, t)
	}
}

// ComparisonOp maps a guest comparison function, accepting both the
// D3D-numbered and GL-numbered encodings the guest emits.
func ComparisonOp(op engine.ComparisonOp) (gputypes.CompareFunction, error) {
	switch op {
	case engine.CompareNever, engine.CompareNeverGL:
		return gputypes.CompareFunctionNever, nil
	case engine.CompareLess, engine.CompareLessGL:
		return gputypes.CompareFunctionLess, nil
	case engine.CompareEqual, engine.CompareEqualGL:
		return gputypes.CompareFunctionEqual, nil
	case engine.CompareLessEqual, engine.CompareLessEqualGL:
		return gputypes.CompareFunctionLessEqual, nil
	case engine.CompareGreater, engine.CompareGreaterGL:
		return gputypes.CompareFunctionGreater, nil
	case engine.CompareNotEqual, engine.CompareNotEqualGL:
		return gputypes.CompareFunctionNotEqual, nil
	case engine.CompareGreaterEqual, engine.CompareGreaterEqualGL:
		return gputypes.CompareFunctionGreaterEqual, nil
	case engine.CompareAlways, engine.CompareAlwaysGL:
		return gputypes.CompareFunctionAlways, nil
	default:
		return gputypes.CompareFunctionAlways,
			fmt.Errorf("%w: comparison op %#x", ErrNoConversion, uint32(op))
	}
}

// StencilOp maps a guest stencil action.
func StencilOp(op engine.StencilOp) (StencilOperation, error) {
	switch op {
	case engine.StencilKeep:
		return StencilOpKeep, nil
	case engine.StencilZero:
		return StencilOpZero, nil
	case engine.StencilReplace:
		return StencilOpReplace, nil
	case engine.StencilIncr:
		return StencilOpIncrementClamp, nil
	case engine.StencilDecr:
		return StencilOpDecrementClamp, nil
	case engine.StencilInvert:
		return StencilOpInvert, nil
	case engine.StencilIncrWrap:
		return StencilOpIncrementWrap, nil
	case engine.StencilDecrWrap:
		return StencilOpDecrementWrap, nil
	default:
		return StencilOpKeep, fmt.Errorf("%w: stencil op %#x", ErrNoConversion, uint32(op))
	}
}

// BlendEquation maps a guest blend equation.
func BlendEquation(eq engine.BlendEquation) (gputypes.BlendOperation, error) {
	switch eq {
	case engine.BlendAdd:
		return gputypes.BlendOperationAdd, nil
	case engine.BlendSubtract:
		return gputypes.BlendOperationSubtract, nil
	case engine.BlendReverseSubtract:
		return gputypes.BlendOperationReverseSubtract, nil
	case engine.BlendMin:
		return gputypes.BlendOperationMin, nil
	case engine.BlendMax:
		return gputypes.BlendOperationMax, nil
	default:
		return gputypes.BlendOperationAdd,
			fmt.Errorf("%w: blend equation %#x", ErrNoConversion, uint32(eq))
	}
}

// BlendFactor maps a guest blend factor.
func BlendFactor(f engine.BlendFactor) (gputypes.BlendFactor, error) {
	switch f {
	case engine.FactorZero:
		return gputypes.BlendFactorZero, nil
	case engine.FactorOne:
		return gputypes.BlendFactorOne, nil
	case engine.FactorSrcColor:
		return gputypes.BlendFactorSrc, nil
	case engine.FactorOneMinusSrcColor:
		return gputypes.BlendFactorOneMinusSrc, nil
	case engine.FactorSrcAlpha:
		return gputypes.BlendFactorSrcAlpha, nil
	case engine.FactorOneMinusSrcAlpha:
		return gputypes.BlendFactorOneMinusSrcAlpha, nil
	case engine.FactorDstAlpha:
		return gputypes.BlendFactorDstAlpha, nil
	case engine.FactorOneMinusDstAlpha:
		return gputypes.BlendFactorOneMinusDstAlpha, nil
	case engine.FactorDstColor:
		return gputypes.BlendFactorDst, nil
	case engine.FactorOneMinusDstColor:
		return gputypes.BlendFactorOneMinusDst, nil
	case engine.FactorSrcAlphaSat:
		return gputypes.BlendFactorSrcAlphaSaturated, nil
	default:
		return gputypes.BlendFactorOne,
			fmt.Errorf("%w: blend factor %#x", ErrNoConversion, uint32(f))
	}
}

// CullMode maps the guest cull configuration. Disabled culling is
// expressed by the caller passing enable=false.
func CullMode(enable bool, face engine.CullFace) (gputypes.CullMode, error) {
	if !enable {
		return gputypes.CullModeNone, nil
	}
	switch face {
	case engine.CullFront:
		return gputypes.CullModeFront, nil
	case engine.CullBack:
		return gputypes.CullModeBack, nil
	case engine.CullFrontAndBack:
		// The host cannot cull both faces; the draw would be empty.
		return gputypes.CullModeNone,
			fmt.Errorf("%w: cull front and back", ErrNoConversion)
	default:
		return gputypes.CullModeNone, fmt.Errorf("%w: cull face %#x", ErrNoConversion, uint32(face))
	}
}

// FrontFace maps the guest front-face winding.
func FrontFace(face engine.FrontFace) (gputypes.FrontFace, error) {
	switch face {
	case engine.FrontCW:
		return gputypes.FrontFaceCW, nil
	case engine.FrontCCW:
		return gputypes.FrontFaceCCW, nil
	default:
		return gputypes.FrontFaceCCW, fmt.Errorf("%w: front face %#x", ErrNoConversion, uint32(face))
	}
}

// IndexFormat maps the guest index element width. The 8-bit guest format
// has no host equivalent and must be widened by the caller.
func IndexFormat(f engine.IndexFormat) (gputypes.IndexFormat, error) {
	switch f {
	case engine.IndexUint16:
		return gputypes.IndexFormatUint16, nil
	case engine.IndexUint32:
		return gputypes.IndexFormatUint32, nil
	default:
		return gputypes.IndexFormatUint16,
			fmt.Errorf("%w: index format %#x", ErrNoConversion, uint32(f))
	}
}

// VertexFormat maps a guest attribute type/size pair.
func VertexFormat(typ engine.VertexAttribType, size engine.VertexAttribSize) (gputypes.VertexFormat, error) {
	switch typ {
	case engine.AttribTypeFloat:
		switch size {
		case engine.AttribSize32:
			return gputypes.VertexFormatFloat32, nil
		case engine.AttribSize32x2:
			return gputypes.VertexFormatFloat32x2, nil
		case engine.AttribSize32x3:
			return gputypes.VertexFormatFloat32x3, nil
		case engine.AttribSize32x4:
			return gputypes.VertexFormatFloat32x4, nil
		}
	case engine.AttribTypeUNorm:
		if size == engine.AttribSize8x4 {
			return gputypes.VertexFormatUnorm8x4, nil
		}
	case engine.AttribTypeSNorm:
		if size == engine.AttribSize8x4 {
			return gputypes.VertexFormatSnorm8x4, nil
		}
	case engine.AttribTypeUInt:
		switch size {
		case engine.AttribSize32:
			return gputypes.VertexFormatUint32, nil
		case engine.AttribSize8x4:
			return gputypes.VertexFormatUint8x4, nil
		}
	case engine.AttribTypeSInt:
		if size == engine.AttribSize32 {
			return gputypes.VertexFormatSint32, nil
		}
	}
	return gputypes.VertexFormatFloat32,
		fmt.Errorf("%w: vertex attribute type %d size %#x", ErrNoConversion, uint32(typ), uint32(size))
}
