// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/maxwell/isa"
)

var (
	// ErrNoTermination is returned when some execution path falls off
	// the end of the program without reaching an EXIT.
	ErrNoTermination = errors.New("shader: program does not always terminate")

	// ErrRecursiveFlow is returned when every path through a region
	// loops back into itself.
	ErrRecursiveFlow = errors.New("shader: recursive control flow")

	// ErrIndirectBranch is returned for branch targets read from a
	// constant buffer at run time.
	ErrIndirectBranch = errors.New("shader: constant buffer branch target")
)

// ExitMethod classifies how control leaves a region of the program.
type ExitMethod int

const (
	// ExitUndetermined marks a region whose scan is still in progress.
	ExitUndetermined ExitMethod = iota
	// ExitAlwaysReturn regions fall through to the caller on every path.
	ExitAlwaysReturn
	// ExitConditional regions end the program on some paths only.
	ExitConditional
	// ExitAlwaysEnd regions end the program on every path.
	ExitAlwaysEnd
)

func (m ExitMethod) String() string {
	switch m {
	case ExitUndetermined:
		return "Undetermined"
	case ExitAlwaysReturn:
		return "AlwaysReturn"
	case ExitConditional:
		return "Conditional"
	case ExitAlwaysEnd:
		return "AlwaysEnd"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// Subroutine is one compiled region of the program. Labels holds every
// branch target inside the region plus the entry offset, sorted.
type Subroutine struct {
	Begin  uint32
	End    uint32
	Exit   ExitMethod
	Labels []uint32
}

type span struct {
	begin, end uint32
}

// flowAnalyzer walks the instruction stream from the entry point and
// classifies the exit method of every reachable span. Spans are memoized;
// a span revisited while its own scan is in progress reads back as
// Undetermined, which is how cycles are detected.
type flowAnalyzer struct {
	code  []uint64
	exits map[span]ExitMethod
	subs  map[span]*Subroutine
	scans int
}

// analyzeFlow classifies the program entered at mainOffset. The program
// must end on every path.
func analyzeFlow(code []uint64, mainOffset uint32) ([]*Subroutine, error) {
	a := &flowAnalyzer{
		code:  code,
		exits: make(map[span]ExitMethod),
		subs:  make(map[span]*Subroutine),
	}
	main, err := a.addSubroutine(mainOffset, uint32(len(code)))
	if err != nil {
		return nil, err
	}
	if main.Exit != ExitAlwaysEnd {
		return nil, fmt.Errorf("%w: entry %#x classifies %s", ErrNoTermination, mainOffset, main.Exit)
	}
	subs := make([]*Subroutine, 0, len(a.subs))
	for _, s := range a.subs {
		subs = append(subs, s)
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Begin != subs[j].Begin {
			return subs[i].Begin < subs[j].Begin
		}
		return subs[i].End < subs[j].End
	})
	return subs, nil
}

func (a *flowAnalyzer) addSubroutine(begin, end uint32) (*Subroutine, error) {
	k := span{begin, end}
	if s, ok := a.subs[k]; ok {
		return s, nil
	}
	labels := map[uint32]bool{begin: true}
	exit, err := a.scan(begin, end, labels)
	if err != nil {
		return nil, err
	}
	if exit == ExitUndetermined {
		return nil, fmt.Errorf("%w: region %#x..%#x", ErrRecursiveFlow, begin, end)
	}
	s := &Subroutine{
		Begin:  begin,
		End:    end,
		Exit:   exit,
		Labels: make([]uint32, 0, len(labels)),
	}
	for l := range labels {
		s.Labels = append(s.Labels, l)
	}
	sort.Slice(s.Labels, func(i, j int) bool { return s.Labels[i] < s.Labels[j] })
	a.subs[k] = s
	return s, nil
}

func (a *flowAnalyzer) scan(begin, end uint32, labels map[uint32]bool) (ExitMethod, error) {
	k := span{begin, end}
	if m, ok := a.exits[k]; ok {
		return m, nil
	}
	// Mark the span in progress before descending so a branch back into
	// it reads Undetermined instead of scanning forever.
	a.exits[k] = ExitUndetermined
	a.scans++
	for offset := begin; offset < end && offset < uint32(len(a.code)); offset++ {
		inst := isa.Instruction(a.code[offset])
		info, ok := isa.Decode(inst)
		if !ok {
			continue
		}
		switch info.Op {
		case isa.OpExit:
			if inst.PredIndex() == uint32(isa.PredUnused) {
				a.exits[k] = ExitAlwaysEnd
				return ExitAlwaysEnd, nil
			}
			rest, err := a.scan(offset+1, end, labels)
			if err != nil {
				return ExitUndetermined, err
			}
			m := parallelExit(ExitAlwaysEnd, rest)
			a.exits[k] = m
			return m, nil
		case isa.OpBra:
			if inst.BranchViaCbuf() {
				return ExitUndetermined, fmt.Errorf("%w at %#x", ErrIndirectBranch, offset)
			}
			target := uint32(int32(offset) + inst.BranchTarget())
			labels[target] = true
			taken, err := a.scan(target, end, labels)
			if err != nil {
				return ExitUndetermined, err
			}
			fall, err := a.scan(offset+1, end, labels)
			if err != nil {
				return ExitUndetermined, err
			}
			m := parallelExit(taken, fall)
			a.exits[k] = m
			return m, nil
		case isa.OpSSY, isa.OpPBK:
			if inst.BranchViaCbuf() {
				return ExitUndetermined, fmt.Errorf("%w at %#x", ErrIndirectBranch, offset)
			}
			labels[uint32(int32(offset)+inst.BranchTarget())] = true
		}
	}
	a.exits[k] = ExitAlwaysReturn
	return ExitAlwaysReturn, nil
}

// parallelExit joins the classifications of two paths that both leave the
// same region.
func parallelExit(a, b ExitMethod) ExitMethod {
	if a == ExitUndetermined {
		return b
	}
	if b == ExitUndetermined {
		return a
	}
	if a == b {
		return a
	}
	return ExitConditional
}
