// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"errors"
	"testing"
)

// Instruction builders for the encodings the tests exercise. Slots at
// (offset-10)%4 == 0 hold scheduling control words, not instructions.

const predAlways = uint64(7) << 16

func exitInst() uint64 {
	return 0xE300000000000000 | predAlways | 0x0F
}

func exitOn(pred uint64, negate bool) uint64 {
	w := uint64(0xE300000000000000) | pred<<16 | 0x0F
	if negate {
		w |= 1 << 19
	}
	return w
}

func kilInst(pred uint64) uint64 {
	return 0xE330000000000000 | pred<<16 | 0x0F
}

// braInst branches rel instruction words forward from the branch itself.
func braInst(rel int32) uint64 {
	raw := uint64(uint32((rel-1)*8)) & 0xFFFFFF
	return 0xE240000000000000 | predAlways | raw<<20 | 0x0F
}

func ssyInst(rel int32) uint64 {
	raw := uint64(uint32((rel-1)*8)) & 0xFFFFFF
	return 0xE290000000000000 | raw<<20
}

func mov32(reg uint64, imm uint32) uint64 {
	return 0x0100000000000000 | predAlways | uint64(imm)<<20 | reg
}

func ldaInst(reg, index, element, words uint64) uint64 {
	return 0xEFD8000000000000 | predAlways | uint64(255)<<8 | reg |
		element<<22 | index<<24 | (words-1)<<47
}

func staInst(reg, index, element, words uint64) uint64 {
	return 0xEFF0000000000000 | predAlways | uint64(255)<<8 | reg |
		element<<22 | index<<24 | (words-1)<<47
}

func shrC(dst, srcA, cbuf, wordOff uint64) uint64 {
	return 0x4C28000000000000 | predAlways | dst | srcA<<8 | wordOff<<20 | cbuf<<34
}

func ldcInst(dst, src, cbuf uint64, byteOff uint64, typ uint64) uint64 {
	return 0xEF90000000000000 | predAlways | dst | src<<8 |
		(byteOff&0xFFFF)<<20 | cbuf<<36 | typ<<48
}

func ipaInst(dst, index, element, interp, sample uint64) uint64 {
	return 0xE000000000000000 | predAlways | dst |
		element<<30 | index<<32 | sample<<52 | interp<<54
}

// vertexHeader returns the blank header block of a vertex program.
func vertexHeader() []uint64 {
	return make([]uint64, MainOffset)
}

func TestAnalyzeExitOnly(t *testing.T) {
	code := append(vertexHeader(),
		0, // sched
		exitInst(),
	)
	subs, err := analyzeFlow(code, MainOffset)
	if err != nil {
		t.Fatalf("analyzeFlow: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d subroutines, want 1", len(subs))
	}
	s := subs[0]
	if s.Begin != MainOffset || s.End != uint32(len(code)) {
		t.Errorf("span = %d..%d, want %d..%d", s.Begin, s.End, MainOffset, len(code))
	}
	if s.Exit != ExitAlwaysEnd {
		t.Errorf("exit = %s, want AlwaysEnd", s.Exit)
	}
	if len(s.Labels) != 1 || s.Labels[0] != MainOffset {
		t.Errorf("labels = %v, want [%d]", s.Labels, MainOffset)
	}
}

func TestAnalyzeConditionalExitNeedsFollowup(t *testing.T) {
	// A predicated EXIT alone leaves the fall-through path without an
	// end; appending an unconditional EXIT fixes it.
	code := append(vertexHeader(),
		0,
		exitOn(0, false),
	)
	if _, err := analyzeFlow(code, MainOffset); !errors.Is(err, ErrNoTermination) {
		t.Fatalf("err = %v, want ErrNoTermination", err)
	}

	code = append(vertexHeader(),
		0,
		exitOn(0, false),
		exitInst(),
	)
	subs, err := analyzeFlow(code, MainOffset)
	if err != nil {
		t.Fatalf("analyzeFlow: %v", err)
	}
	if subs[0].Exit != ExitAlwaysEnd {
		t.Errorf("exit = %s, want AlwaysEnd", subs[0].Exit)
	}
}

func TestAnalyzeBranchDiamond(t *testing.T) {
	// Offset 11 branches to 15; both arms end with EXIT.
	code := append(vertexHeader(),
		0,          // 10: sched
		braInst(4), // 11: -> 15
		exitInst(), // 12
		0,          // 13: unreachable
		0,          // 14: sched
		exitInst(), // 15
	)
	subs, err := analyzeFlow(code, MainOffset)
	if err != nil {
		t.Fatalf("analyzeFlow: %v", err)
	}
	s := subs[0]
	if s.Exit != ExitAlwaysEnd {
		t.Errorf("exit = %s, want AlwaysEnd", s.Exit)
	}
	if len(s.Labels) != 2 || s.Labels[0] != 10 || s.Labels[1] != 15 {
		t.Errorf("labels = %v, want [10 15]", s.Labels)
	}
}

func TestAnalyzeScanMemoized(t *testing.T) {
	// Two branches share the target at 15. The shared span must be
	// scanned once and answered from the memo on the second visit.
	code := append(vertexHeader(),
		0,          // 10: sched
		braInst(4), // 11: -> 15
		braInst(3), // 12: -> 15
		exitInst(), // 13
		0,          // 14: sched
		exitInst(), // 15
	)
	a := &flowAnalyzer{
		code:  code,
		exits: make(map[span]ExitMethod),
		subs:  make(map[span]*Subroutine),
	}
	s, err := a.addSubroutine(MainOffset, uint32(len(code)))
	if err != nil {
		t.Fatalf("addSubroutine: %v", err)
	}
	if s.Exit != ExitAlwaysEnd {
		t.Errorf("exit = %s, want AlwaysEnd", s.Exit)
	}
	// Spans (10,16), (15,16), (12,16) and (13,16); (15,16) is reached
	// twice but scanned once.
	if a.scans != 4 {
		t.Errorf("scans = %d, want 4", a.scans)
	}
}

func TestAnalyzeInfiniteLoop(t *testing.T) {
	code := append(vertexHeader(),
		0,          // 10: sched
		braInst(0), // 11: -> 11
	)
	if _, err := analyzeFlow(code, MainOffset); !errors.Is(err, ErrNoTermination) {
		t.Fatalf("err = %v, want ErrNoTermination", err)
	}
}

func TestAnalyzeSyncTargetBecomesLabel(t *testing.T) {
	code := append(vertexHeader(),
		0,          // 10: sched
		ssyInst(4), // 11: target 15
		exitInst(), // 12
		0,          // 13
		0,          // 14: sched
		exitInst(), // 15
	)
	subs, err := analyzeFlow(code, MainOffset)
	if err != nil {
		t.Fatalf("analyzeFlow: %v", err)
	}
	s := subs[0]
	if len(s.Labels) != 2 || s.Labels[1] != 15 {
		t.Errorf("labels = %v, want [10 15]", s.Labels)
	}
}

func TestAnalyzeIndirectBranch(t *testing.T) {
	code := append(vertexHeader(),
		0,
		braInst(1)|1<<5, // constant buffer target
	)
	if _, err := analyzeFlow(code, MainOffset); !errors.Is(err, ErrIndirectBranch) {
		t.Fatalf("err = %v, want ErrIndirectBranch", err)
	}
}
