// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package isa

import (
	"math/bits"
	"sort"
)

// Op identifies an instruction, independent of its operand form.
type Op int

const (
	OpInvalid Op = iota
	OpExit
	OpBra
	OpSSY
	OpPBK
	OpKil
	OpMov32Imm
	OpMufu
	OpShrC
	OpShrR
	OpShrImm
	OpShlC
	OpShlR
	OpShlImm
	OpLdA
	OpLdC
	OpStA
	OpIpa
)

// OpType groups instructions that share operand decoding.
type OpType int

const (
	TypeTrivial OpType = iota
	TypeArithmetic
	TypeArithmeticImmediate
	TypeShift
	TypeMemory
	TypeFlow
)

func (t OpType) String() string {
	switch t {
	case TypeTrivial:
		return "Trivial"
	case TypeArithmetic:
		return "Arithmetic"
	case TypeArithmeticImmediate:
		return "ArithmeticImmediate"
	case TypeShift:
		return "Shift"
	case TypeMemory:
		return "Memory"
	case TypeFlow:
		return "Flow"
	default:
		return "Unknown"
	}
}

// Predicated reports whether the instruction honors its predicate field.
// SSY and PBK carry no predicate; they always execute.
func (op Op) Predicated() bool {
	return op != OpSSY && op != OpPBK
}

// OpInfo describes a successfully decoded opcode.
type OpInfo struct {
	Op   Op
	Type OpType
	Name string
}

type matcher struct {
	mask   uint64
	expect uint64
	op     Op
	typ    OpType
	name   string
}

// inst compiles an encoding pattern into a matcher. The pattern describes
// the word's high bits, most significant first: '0' and '1' must match,
// '-' is a wildcard.
func inst(pattern string, op Op, typ OpType, name string) matcher {
	m := matcher{op: op, typ: typ, name: name}
	for i, c := range pattern {
		bit := uint64(1) << (63 - uint(i))
		switch c {
		case '0':
			m.mask |= bit
		case '1':
			m.mask |= bit
			m.expect |= bit
		}
	}
	return m
}

// decodeTable holds every known encoding, most specific first so that
// patterns with fewer wildcards win.
var decodeTable = func() []matcher {
	table := []matcher{
		inst("111000110011----", OpKil, TypeFlow, "KIL"),
		inst("111000101001----", OpSSY, TypeFlow, "SSY"),
		inst("111000101010----", OpPBK, TypeFlow, "PBK"),
		inst("111000100100----", OpBra, TypeFlow, "BRA"),
		inst("111000110000----", OpExit, TypeFlow, "EXIT"),
		inst("1110111111011---", OpLdA, TypeMemory, "LD_A"),
		inst("1110111110010---", OpLdC, TypeMemory, "LD_C"),
		inst("1110111111110---", OpStA, TypeMemory, "ST_A"),
		inst("0101000010000---", OpMufu, TypeArithmetic, "MUFU"),
		inst("000000010000----", OpMov32Imm, TypeArithmeticImmediate, "MOV32_IMM"),
		inst("0100110000101---", OpShrC, TypeShift, "SHR_C"),
		inst("0101110000101---", OpShrR, TypeShift, "SHR_R"),
		inst("0011100-00101---", OpShrImm, TypeShift, "SHR_IMM"),
		inst("0100110001100---", OpShlC, TypeShift, "SHL_C"),
		inst("0101110001100---", OpShlR, TypeShift, "SHL_R"),
		inst("0011100-01100---", OpShlImm, TypeShift, "SHL_IMM"),
		inst("11100000--------", OpIpa, TypeTrivial, "IPA"),
	}
	sort.SliceStable(table, func(i, j int) bool {
		return bits.OnesCount64(table[i].mask) > bits.OnesCount64(table[j].mask)
	})
	return table
}()

// Decode identifies the opcode of an instruction word. ok is false when no
// encoding matches; callers treat that as a fatal translation error.
func Decode(i Instruction) (info OpInfo, ok bool) {
	w := uint64(i)
	for _, m := range decodeTable {
		if w&m.mask == m.expect {
			return OpInfo{Op: m.op, Type: m.typ, Name: m.name}, true
		}
	}
	return OpInfo{}, false
}
