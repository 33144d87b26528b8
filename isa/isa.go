// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package isa

import "fmt"

const (
	// RegisterCount is the size of the general purpose register file.
	RegisterCount = 256

	// PredCount is the number of usable predicate registers. Index 7 is
	// reserved as the always-true predicate and is not a real register.
	PredCount = 7

	// SchedPeriod is the interval, in words from the program entry point,
	// at which scheduling control words appear in the instruction stream.
	SchedPeriod = 4
)

// Register names one of the 256 general purpose registers.
type Register uint8

// ZeroIndex is the register that always reads zero and discards writes.
const ZeroIndex Register = 255

func (r Register) String() string {
	if r == ZeroIndex {
		return "RZ"
	}
	return fmt.Sprintf("R%d", uint8(r))
}

// Pred is the 4-bit full predicate field of an instruction.
type Pred uint8

const (
	// PredUnused marks an instruction that executes unconditionally.
	PredUnused Pred = 7
	// PredNeverExecute marks an instruction that never executes.
	PredNeverExecute Pred = 0xF
)

// FlowCond is the condition field of flow control instructions.
type FlowCond uint8

const (
	FlowCondAlways FlowCond = 0x0F
	FlowCondFcsmTr FlowCond = 0x1C
)

func (c FlowCond) String() string {
	switch c {
	case FlowCondAlways:
		return "Always"
	case FlowCondFcsmTr:
		return "Fcsm_Tr"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// MufuOp selects the operation of a MUFU multifunction instruction.
type MufuOp uint8

const (
	MufuCos MufuOp = iota
	MufuSin
	MufuEx2
	MufuLg2
	MufuRcp
	MufuRsq
	MufuRcp64H
	MufuRsq64H
	MufuSqrt
)

func (m MufuOp) String() string {
	switch m {
	case MufuCos:
		return "COS"
	case MufuSin:
		return "SIN"
	case MufuEx2:
		return "EX2"
	case MufuLg2:
		return "LG2"
	case MufuRcp:
		return "RCP"
	case MufuRsq:
		return "RSQ"
	case MufuRcp64H:
		return "RCP64H"
	case MufuRsq64H:
		return "RSQ64H"
	case MufuSqrt:
		return "SQRT"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// UniformType is the access width of an LD_C constant buffer load.
type UniformType uint8

const (
	UniformU8 UniformType = iota
	UniformS8
	UniformU16
	UniformS16
	UniformSingle
	UniformDouble
	UniformQuad
	UniformUQuad
)

func (u UniformType) String() string {
	switch u {
	case UniformU8:
		return "U8"
	case UniformS8:
		return "S8"
	case UniformU16:
		return "U16"
	case UniformS16:
		return "S16"
	case UniformSingle:
		return "Single"
	case UniformDouble:
		return "Double"
	case UniformQuad:
		return "Quad"
	case UniformUQuad:
		return "UQuad"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(u))
	}
}

// RegisterSize is the operand width of sub-word integer accesses.
type RegisterSize uint8

const (
	SizeByte RegisterSize = iota
	SizeShort
	SizeWord
	SizeLong
)

// InterpMode selects how a fragment input attribute is interpolated.
type InterpMode uint8

const (
	InterpLinear InterpMode = iota
	InterpPerspective
	InterpFlat
	InterpScreenLinear
)

func (m InterpMode) String() string {
	switch m {
	case InterpLinear:
		return "Linear"
	case InterpPerspective:
		return "Perspective"
	case InterpFlat:
		return "Flat"
	case InterpScreenLinear:
		return "ScreenLinear"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// SampleMode selects where within a pixel an attribute is sampled.
type SampleMode uint8

const (
	SampleDefault SampleMode = iota
	SampleCentroid
	SampleOffset
)

// IpaMode is the interpolation qualifier of an input attribute access.
// Two accesses to the same attribute must agree on it.
type IpaMode struct {
	Interp InterpMode
	Sample SampleMode
}

// AttrIndex names one slot of the attribute memory space. Each slot holds
// four 32-bit components.
type AttrIndex uint8

const (
	AttrPointSize         AttrIndex = 6
	AttrPosition          AttrIndex = 7
	AttrGeneric0          AttrIndex = 8
	AttrGeneric31         AttrIndex = 39
	AttrClipDistances0123 AttrIndex = 44
	AttrClipDistances4567 AttrIndex = 45
	AttrPointCoord        AttrIndex = 46
	// AttrTessCoordInstanceIDVertexID reads as (~, ~, InstanceID, VertexID)
	// in a vertex shader and (TessCoord.xyz, ~) in tessellation evaluation.
	AttrTessCoordInstanceIDVertexID AttrIndex = 47
	AttrFrontFacing                 AttrIndex = 63
)

// IsGeneric reports whether the slot is one of the 32 user varyings.
func (a AttrIndex) IsGeneric() bool {
	return a >= AttrGeneric0 && a <= AttrGeneric31
}

// GenericIndex returns the varying number of a generic slot.
func (a AttrIndex) GenericIndex() uint32 {
	return uint32(a) - uint32(AttrGeneric0)
}

// AttributeRef is a decoded attribute memory operand.
type AttributeRef struct {
	// Immediate is the raw byte offset into attribute space. Aligned
	// accesses satisfy Immediate%4 == 0.
	Immediate uint32
	// Element is the component within the vec4 slot.
	Element uint32
	// Index is the vec4 slot.
	Index AttrIndex
	// Words is the number of consecutive 32-bit words accessed.
	Words uint32
}

// CbufRef is a direct constant buffer operand: a compile-time buffer index
// and word offset.
type CbufRef struct {
	Index  uint32
	Offset uint32
}

// CbufIndirectRef is an indirect constant buffer operand. The byte offset
// is signed and added to a register-provided base at run time.
type CbufIndirectRef struct {
	Index  uint32
	Offset int32
}

// Instruction is one raw 64-bit Maxwell instruction word.
type Instruction uint64

// bits extracts n bits starting at bit lo.
func (i Instruction) bits(lo, n uint) uint64 {
	return (uint64(i) >> lo) & (1<<n - 1)
}

func (i Instruction) bit(pos uint) bool {
	return uint64(i)>>pos&1 != 0
}

func (i Instruction) Gpr0() Register  { return Register(i.bits(0, 8)) }
func (i Instruction) Gpr8() Register  { return Register(i.bits(8, 8)) }
func (i Instruction) Gpr20() Register { return Register(i.bits(20, 8)) }
func (i Instruction) Gpr39() Register { return Register(i.bits(39, 8)) }

// PredIndex is the predicate register guarding the instruction.
// Index 7 means the instruction executes unconditionally.
func (i Instruction) PredIndex() uint32 { return uint32(i.bits(16, 3)) }

// PredNegate reports whether the predicate condition is inverted.
func (i Instruction) PredNegate() bool { return i.bit(19) }

// FullPred is the whole 4-bit predicate field, including the negate bit.
func (i Instruction) FullPred() Pred { return Pred(i.bits(16, 4)) }

// BranchTarget returns the BRA displacement in instruction words relative
// to the current instruction. The encoded field is a byte offset relative
// to the next instruction, sign extended from 24 bits.
func (i Instruction) BranchTarget() int32 {
	const signBit = uint32(1) << 23
	raw := uint32(i.bits(20, 24))
	return int32((raw^signBit)-signBit)/8 + 1
}

// BranchViaCbuf reports whether the branch target is read from a constant
// buffer instead of the immediate field.
func (i Instruction) BranchViaCbuf() bool { return i.bit(5) }

// FlowCond is the execution condition of EXIT and friends.
func (i Instruction) FlowCond() FlowCond { return FlowCond(i.bits(0, 5)) }

// IsBImm reports whether operand B is an immediate.
func (i Instruction) IsBImm() bool { return i.bit(61) }

// IsBGpr reports whether operand B is a register. When neither IsBImm nor
// IsBGpr holds, operand B is a constant buffer access.
func (i Instruction) IsBGpr() bool { return i.bit(60) }

// Imm20_19 is the 19-bit float immediate: the field shifts into the high
// mantissa and exponent bits, with the sign supplied by bit 56.
func (i Instruction) Imm20_19() uint32 {
	imm := uint32(i.bits(20, 19)) << 12
	if i.bit(56) {
		imm |= 0x80000000
	}
	return imm
}

// Imm20_32 is the full 32-bit immediate at bit 20.
func (i Instruction) Imm20_32() uint32 { return uint32(i.bits(20, 32)) }

// SignedImm20 is the 19-bit immediate plus sign bit 56, sign extended.
func (i Instruction) SignedImm20() int32 {
	imm := uint32(i.bits(20, 19))
	if i.bit(56) {
		imm |= 1 << 19
	}
	const signBit = uint32(1) << 19
	return int32((imm ^ signBit) - signBit)
}

func (i Instruction) AbsA() bool      { return i.bit(46) }
func (i Instruction) NegateA() bool   { return i.bit(48) }
func (i Instruction) SaturateD() bool { return i.bit(50) }

// MufuOp is the multifunction selector of a MUFU instruction.
func (i Instruction) MufuOp() MufuOp { return MufuOp(i.bits(20, 4)) }

// ShiftSigned reports whether a SHR performs an arithmetic shift.
func (i Instruction) ShiftSigned() bool { return i.bit(48) }

// Cbuf34 decodes the direct constant buffer operand form.
func (i Instruction) Cbuf34() CbufRef {
	return CbufRef{
		Index:  uint32(i.bits(34, 5)),
		Offset: uint32(i.bits(20, 14)),
	}
}

// Cbuf36 decodes the indirect constant buffer operand form.
func (i Instruction) Cbuf36() CbufIndirectRef {
	const signBit = uint32(1) << 15
	raw := uint32(i.bits(20, 16))
	return CbufIndirectRef{
		Index:  uint32(i.bits(36, 5)),
		Offset: int32((raw ^ signBit) - signBit),
	}
}

// Attr20 decodes the attribute operand of LD_A and ST_A.
func (i Instruction) Attr20() AttributeRef {
	return AttributeRef{
		Immediate: uint32(i.bits(20, 10)),
		Element:   uint32(i.bits(22, 2)),
		Index:     AttrIndex(i.bits(24, 6)),
		Words:     uint32(i.bits(47, 3)) + 1,
	}
}

// Attr28 decodes the attribute operand of IPA.
func (i Instruction) Attr28() AttributeRef {
	return AttributeRef{
		Immediate: uint32(i.bits(28, 10)),
		Element:   uint32(i.bits(30, 2)),
		Index:     AttrIndex(i.bits(32, 6)),
		Words:     1,
	}
}

// LdcType is the access width of an LD_C load.
func (i Instruction) LdcType() UniformType { return UniformType(i.bits(48, 3)) }

// LdcUnknown is an undocumented LD_C field observed to always be zero.
func (i Instruction) LdcUnknown() uint32 { return uint32(i.bits(46, 2)) }

// Ipa is the interpolation qualifier of an IPA instruction.
func (i Instruction) Ipa() IpaMode {
	return IpaMode{
		Interp: InterpMode(i.bits(54, 2)),
		Sample: SampleMode(i.bits(52, 2)),
	}
}

// IpaSaturate reports whether the IPA result is clamped to [0, 1].
func (i Instruction) IpaSaturate() bool { return i.bit(51) }
