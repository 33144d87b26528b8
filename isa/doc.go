// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package isa decodes NVIDIA Maxwell shader machine code.
//
// Maxwell programs are sequences of 64-bit instruction words. Every fourth
// word, counted from the program entry point, is a scheduling control word
// rather than an instruction and carries no program semantics.
//
// The package identifies opcodes by matching the high bits of a word against
// an encoding pattern table ([Decode]) and exposes the operand bit fields
// through typed accessors on [Instruction]. It performs no control-flow or
// semantic analysis; that lives in the shader package.
package isa
