// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command maxwelldis disassembles a raw guest shader program dump and
// optionally translates it to WGSL or compiles it to SPIR-V.
//
// The input is the program as the guest sees it: little-endian 64-bit
// instruction words starting at the program header.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gogpu/maxwell/engine"
	"github.com/gogpu/maxwell/isa"
	"github.com/gogpu/maxwell/shader"
)

func main() {
	var (
		stageName = flag.String("stage", "vertex", "shader stage: vertex or fragment")
		wgsl      = flag.Bool("wgsl", false, "print the WGSL translation instead of a listing")
		manifest  = flag.Bool("manifest", false, "print the resource manifest instead of a listing")
		spirvOut  = flag.String("spirv", "", "compile to SPIR-V and write the module to this file")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: maxwelldis [flags] program.bin\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	stage, err := parseStage(*stageName)
	if err != nil {
		log.Fatalf("maxwelldis: %v", err)
	}
	code, err := readProgram(flag.Arg(0))
	if err != nil {
		log.Fatalf("maxwelldis: %v", err)
	}

	switch {
	case *spirvOut != "":
		p, err := shader.Decompile(code, shader.MainOffset, stage)
		if err != nil {
			log.Fatalf("maxwelldis: decompile: %v", err)
		}
		if err := os.WriteFile(*spirvOut, p.SPIRV, 0o644); err != nil {
			log.Fatalf("maxwelldis: %v", err)
		}
		log.Printf("wrote %d bytes of SPIR-V to %s", len(p.SPIRV), *spirvOut)
	case *wgsl:
		p, err := shader.Translate(code, shader.MainOffset, stage)
		if err != nil {
			log.Fatalf("maxwelldis: translate: %v", err)
		}
		fmt.Print(p.WGSL)
	case *manifest:
		p, err := shader.Translate(code, shader.MainOffset, stage)
		if err != nil {
			log.Fatalf("maxwelldis: translate: %v", err)
		}
		printManifest(p)
	default:
		listing(code)
	}
}

func parseStage(name string) (engine.ShaderStage, error) {
	switch name {
	case "vertex":
		return engine.StageVertex, nil
	case "fragment":
		return engine.StageFragment, nil
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// readProgram loads the dump as little-endian 64-bit words. A trailing
// partial word is rejected rather than silently dropped.
func readProgram(path string) ([]uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("%s: size %d is not a whole number of instruction words", path, len(raw))
	}
	code := make([]uint64, len(raw)/8)
	for i := range code {
		code[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}
	return code, nil
}

// listing prints one line per word: the header region, scheduling
// control slots and decoded instructions.
func listing(code []uint64) {
	for i, w := range code {
		offset := uint32(i)
		switch {
		case offset < shader.MainOffset:
			fmt.Printf("%04x: %016x  header\n", offset, w)
		case (offset-shader.MainOffset)%4 == 0:
			fmt.Printf("%04x: %016x  sched\n", offset, w)
		default:
			fmt.Printf("%04x: %016x  %s\n", offset, w, describe(isa.Instruction(w)))
		}
	}
}

// describe renders one decoded instruction with the operands worth
// showing at a glance.
func describe(inst isa.Instruction) string {
	info, ok := isa.Decode(inst)
	if !ok {
		return "??"
	}

	var b strings.Builder
	b.WriteString(info.Name)
	if info.Op.Predicated() && inst.FullPred() != isa.PredUnused {
		neg := ""
		if inst.PredNegate() {
			neg = "!"
		}
		fmt.Fprintf(&b, " @%sp%d", neg, inst.PredIndex())
	}

	switch info.Op {
	case isa.OpMov32Imm:
		fmt.Fprintf(&b, " %s, 0x%x", inst.Gpr0(), inst.Imm20_32())
	case isa.OpShrC, isa.OpShlC:
		c := inst.Cbuf34()
		fmt.Fprintf(&b, " %s, %s, c%d[0x%x]", inst.Gpr0(), inst.Gpr8(), c.Index, c.Offset)
	case isa.OpShrR, isa.OpShlR:
		fmt.Fprintf(&b, " %s, %s, %s", inst.Gpr0(), inst.Gpr8(), inst.Gpr20())
	case isa.OpShrImm, isa.OpShlImm:
		fmt.Fprintf(&b, " %s, %s, %d", inst.Gpr0(), inst.Gpr8(), inst.Imm20_19())
	case isa.OpMufu:
		fmt.Fprintf(&b, ".%s %s, %s", inst.MufuOp(), inst.Gpr0(), inst.Gpr8())
	case isa.OpLdA, isa.OpStA:
		a := inst.Attr20()
		fmt.Fprintf(&b, " %s, a[0x%x]", inst.Gpr0(), a.Immediate)
	case isa.OpLdC:
		c := inst.Cbuf36()
		fmt.Fprintf(&b, ".%s %s, c%d[%s+0x%x]", inst.LdcType(), inst.Gpr0(), c.Index, inst.Gpr8(), c.Offset)
	case isa.OpBra, isa.OpSSY, isa.OpPBK:
		fmt.Fprintf(&b, " %+d", inst.BranchTarget())
	}
	return b.String()
}

func printManifest(p *shader.Program) {
	m := &p.Manifest
	fmt.Printf("stage:  %s\n", m.Stage)
	fmt.Printf("entry:  %s\n", p.Entry)
	for _, cb := range m.ConstBuffers {
		access := "direct"
		if cb.Indirect {
			access = "indirect"
		}
		fmt.Printf("cbuf:   c%d binding=%d words<=%d %s\n", cb.Index, cb.Binding, cb.MaxWord, access)
	}
	if len(m.InputAttributes) > 0 {
		fmt.Printf("in:     %v\n", m.InputAttributes)
	}
	if len(m.OutputAttributes) > 0 {
		fmt.Printf("out:    %v\n", m.OutputAttributes)
	}
	if m.UsesVertexIndex {
		fmt.Println("uses:   vertex_index")
	}
	if m.UsesInstanceIndex {
		fmt.Println("uses:   instance_index")
	}
}
