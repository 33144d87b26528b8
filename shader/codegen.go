// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/maxwell/engine"
	"github.com/gogpu/maxwell/isa"
)

var (
	// ErrUnknownOpcode is returned for instruction words that match no
	// known encoding. Translation of the whole program fails.
	ErrUnknownOpcode = errors.New("shader: unknown opcode")

	// ErrNeverExecute is returned for the never-execute predicate form.
	ErrNeverExecute = errors.New("shader: never-execute predicate")

	// ErrUnsupported is returned for encodings that decode but use a
	// feature the translator does not implement.
	ErrUnsupported = errors.New("shader: unsupported operation")

	// ErrAttributeMode is returned when two accesses to the same input
	// attribute disagree on interpolation.
	ErrAttributeMode = errors.New("shader: conflicting interpolation modes")
)

// maxConstBufferWords is the addressable size of one constant buffer in
// 32-bit words. Indirect loads wrap at this boundary.
const maxConstBufferWords = engine.MaxConstBufferLen / 4

const (
	// VertexEntry is the entry point name of generated vertex modules.
	VertexEntry = "vs_main"
	// FragmentEntry is the entry point name of generated fragment modules.
	FragmentEntry = "fs_main"
)

// EntryPoint returns the entry point name generated for a stage.
func EntryPoint(stage engine.ShaderStage) string {
	if stage == engine.StageFragment {
		return FragmentEntry
	}
	return VertexEntry
}

// SetIndex returns the bind group a stage's resources live in. The
// pipeline layout always carries both groups; a disabled stage
// contributes an empty one.
func SetIndex(stage engine.ShaderStage) uint32 {
	if stage == engine.StageFragment {
		return 1
	}
	return 0
}

// varyingStart is the first location used for inter-stage varyings.
// Location 0 is left to the fixed-function side.
const varyingStart = 1

type cbufUse struct {
	maxWord  uint32
	indirect bool
}

// translator emits the WGSL rendition of one guest program.
type translator struct {
	code   []uint64
	main   uint32
	stage  engine.ShaderStage
	header Header

	buf    strings.Builder
	indent int

	cbufs     map[uint32]*cbufUse
	attrModes map[isa.AttrIndex]isa.IpaMode
	inputs    map[uint32]bool
	outputs   map[uint32]bool

	usesVertexIndex   bool
	usesInstanceIndex bool
	readsPosition     bool
	writesPosition    bool
}

func newTranslator(code []uint64, mainOffset uint32, stage engine.ShaderStage, header Header) *translator {
	return &translator{
		code:      code,
		main:      mainOffset,
		stage:     stage,
		header:    header,
		cbufs:     make(map[uint32]*cbufUse),
		attrModes: make(map[isa.AttrIndex]isa.IpaMode),
		inputs:    make(map[uint32]bool),
		outputs:   make(map[uint32]bool),
	}
}

func (t *translator) emit(format string, args ...any) {
	for i := 0; i < t.indent; i++ {
		t.buf.WriteString("    ")
	}
	fmt.Fprintf(&t.buf, format, args...)
	t.buf.WriteByte('\n')
}

// generate produces the complete WGSL module for the analyzed program.
func (t *translator) generate(subs []*Subroutine) (string, error) {
	bodies := make([]string, 0, len(subs))
	for _, sub := range subs {
		body, err := t.compileSubroutine(sub)
		if err != nil {
			return "", err
		}
		bodies = append(bodies, body)
	}
	// Declarations come after compilation: resource usage is only known
	// once every instruction has been visited.
	var module strings.Builder
	module.WriteString(t.declarations())
	for _, body := range bodies {
		module.WriteString(body)
		module.WriteByte('\n')
	}
	module.WriteString(t.entryPoint(subs))
	return module.String(), nil
}

func subName(s *Subroutine) string {
	return fmt.Sprintf("sub_%04x", s.Begin)
}

// compileSubroutine emits one region as a function driven by a jump table
// over the region's labels. The function returns true once the program
// has ended.
func (t *translator) compileSubroutine(sub *Subroutine) (string, error) {
	t.buf.Reset()
	t.indent = 0
	t.emit("fn %s() -> bool {", subName(sub))
	t.indent++
	t.emit("var pc: u32 = %du;", sub.Begin)
	t.emit("loop {")
	t.indent++
	t.emit("switch pc {")
	t.indent++
	for i, label := range sub.Labels {
		next := sub.End
		if i+1 < len(sub.Labels) {
			next = sub.Labels[i+1]
		}
		t.emit("case %du: {", label)
		t.indent++
		terminated, err := t.compileRange(label, next)
		if err != nil {
			return "", err
		}
		if !terminated {
			if next >= sub.End {
				t.emit("return false;")
			} else {
				t.emit("pc = %du;", next)
			}
		}
		t.indent--
		t.emit("}")
	}
	t.emit("default: {")
	t.indent++
	t.emit("return false;")
	t.indent--
	t.emit("}")
	t.indent--
	t.emit("}")
	t.indent--
	t.emit("}")
	t.indent--
	t.emit("}")
	return t.buf.String(), nil
}

// isSched reports whether the slot holds a scheduling control word rather
// than an instruction.
func (t *translator) isSched(offset uint32) bool {
	return (offset-t.main)%isa.SchedPeriod == 0
}

// compileRange emits the straight-line instructions of [begin, end).
// terminated reports that control unconditionally left the range early.
func (t *translator) compileRange(begin, end uint32) (terminated bool, err error) {
	for offset := begin; offset < end && offset < uint32(len(t.code)); offset++ {
		if t.isSched(offset) {
			continue
		}
		inst := isa.Instruction(t.code[offset])
		info, ok := isa.Decode(inst)
		if !ok {
			return false, fmt.Errorf("%w: %#016x at %#x", ErrUnknownOpcode, t.code[offset], offset)
		}
		if info.Op.Predicated() && inst.FullPred() == isa.PredNeverExecute {
			return false, fmt.Errorf("%w at %#x", ErrNeverExecute, offset)
		}
		wrapped := info.Op.Predicated() && inst.PredIndex() != uint32(isa.PredUnused)
		if wrapped {
			cond := fmt.Sprintf("p[%d]", inst.PredIndex())
			if inst.PredNegate() {
				cond = "!" + cond
			}
			t.emit("if (%s) {", cond)
			t.indent++
		}
		ends, err := t.compileInstr(offset, inst, info)
		if err != nil {
			return false, err
		}
		if wrapped {
			t.indent--
			t.emit("}")
		}
		if ends && !wrapped {
			return true, nil
		}
	}
	return false, nil
}

// compileInstr emits one instruction. ends reports that the instruction
// transfers control away unconditionally.
func (t *translator) compileInstr(offset uint32, inst isa.Instruction, info isa.OpInfo) (ends bool, err error) {
	switch info.Op {
	case isa.OpExit:
		switch inst.FlowCond() {
		case isa.FlowCondAlways:
			if t.stage == engine.StageFragment {
				if err := t.emitFragmentExit(); err != nil {
					return false, err
				}
			}
			t.emit("return true;")
			return true, nil
		case isa.FlowCondFcsmTr:
			// CSM exits only occur in control streams this
			// translator never sees; drop them.
			return false, nil
		default:
			return false, fmt.Errorf("%w: exit condition %s at %#x", ErrUnsupported, inst.FlowCond(), offset)
		}

	case isa.OpKil:
		if t.stage != engine.StageFragment {
			return false, fmt.Errorf("%w: KIL outside fragment stage at %#x", ErrUnsupported, offset)
		}
		if inst.FlowCond() != isa.FlowCondAlways {
			return false, fmt.Errorf("%w: KIL condition %s at %#x", ErrUnsupported, inst.FlowCond(), offset)
		}
		t.emit("discard;")
		t.emit("return true;")
		return true, nil

	case isa.OpBra:
		if inst.BranchViaCbuf() {
			return false, fmt.Errorf("%w at %#x", ErrIndirectBranch, offset)
		}
		target := uint32(int32(offset) + inst.BranchTarget())
		t.emit("pc = %du;", target)
		t.emit("continue;")
		return true, nil

	case isa.OpSSY, isa.OpPBK:
		// Synchronization point targets are recorded as labels during
		// flow analysis; the instructions themselves emit nothing.
		if inst.BranchViaCbuf() {
			return false, fmt.Errorf("%w at %#x", ErrIndirectBranch, offset)
		}
		return false, nil

	case isa.OpMov32Imm:
		t.setReg(inst.Gpr0(), fmt.Sprintf("bitcast<f32>(0x%08xu)", inst.Imm20_32()))
		return false, nil

	case isa.OpMufu:
		return false, t.compileMufu(offset, inst)

	case isa.OpShrC, isa.OpShrR, isa.OpShrImm:
		b := t.shiftAmount(inst, info.Op)
		a := t.regRead(inst.Gpr8())
		var expr string
		if inst.ShiftSigned() {
			expr = fmt.Sprintf("bitcast<f32>(bitcast<i32>(%s) >> %s)", a, b)
		} else {
			expr = fmt.Sprintf("bitcast<f32>(bitcast<u32>(%s) >> %s)", a, b)
		}
		t.setReg(inst.Gpr0(), expr)
		return false, nil

	case isa.OpShlC, isa.OpShlR, isa.OpShlImm:
		b := t.shiftAmount(inst, info.Op)
		a := t.regRead(inst.Gpr8())
		t.setReg(inst.Gpr0(), fmt.Sprintf("bitcast<f32>(bitcast<i32>(%s) << %s)", a, b))
		return false, nil

	case isa.OpLdA:
		return false, t.compileLdA(offset, inst)

	case isa.OpLdC:
		return false, t.compileLdC(offset, inst)

	case isa.OpStA:
		return false, t.compileStA(offset, inst)

	case isa.OpIpa:
		return false, t.compileIpa(offset, inst)

	default:
		return false, fmt.Errorf("%w: %s at %#x", ErrUnsupported, info.Name, offset)
	}
}

func (t *translator) compileMufu(offset uint32, inst isa.Instruction) error {
	a := t.regRead(inst.Gpr8())
	if inst.AbsA() {
		a = fmt.Sprintf("abs(%s)", a)
	}
	if inst.NegateA() {
		a = fmt.Sprintf("-(%s)", a)
	}
	var expr string
	switch inst.MufuOp() {
	case isa.MufuCos:
		expr = fmt.Sprintf("cos(%s)", a)
	case isa.MufuSin:
		expr = fmt.Sprintf("sin(%s)", a)
	case isa.MufuEx2:
		expr = fmt.Sprintf("exp2(%s)", a)
	case isa.MufuLg2:
		expr = fmt.Sprintf("log2(%s)", a)
	case isa.MufuRcp:
		expr = fmt.Sprintf("(1.0 / %s)", a)
	case isa.MufuRsq:
		expr = fmt.Sprintf("inverseSqrt(%s)", a)
	case isa.MufuSqrt:
		expr = fmt.Sprintf("sqrt(%s)", a)
	default:
		return fmt.Errorf("%w: MUFU %s at %#x", ErrUnsupported, inst.MufuOp(), offset)
	}
	if inst.SaturateD() {
		expr = fmt.Sprintf("clamp(%s, 0.0, 1.0)", expr)
	}
	t.setReg(inst.Gpr0(), expr)
	return nil
}

// shiftAmount returns operand B of a shift as a u32 expression.
func (t *translator) shiftAmount(inst isa.Instruction, op isa.Op) string {
	switch op {
	case isa.OpShrC, isa.OpShlC:
		ref := inst.Cbuf34()
		return fmt.Sprintf("bitcast<u32>(%s)", t.uniformExpr(ref.Index, ref.Offset))
	case isa.OpShrR, isa.OpShlR:
		return fmt.Sprintf("bitcast<u32>(%s)", t.regRead(inst.Gpr20()))
	default:
		v := inst.SignedImm20()
		if v < 0 {
			return fmt.Sprintf("bitcast<u32>(%di)", v)
		}
		return fmt.Sprintf("%du", v)
	}
}

func (t *translator) compileLdA(offset uint32, inst isa.Instruction) error {
	if inst.Gpr8() != isa.ZeroIndex {
		return fmt.Errorf("%w: indirect attribute load at %#x", ErrUnsupported, offset)
	}
	attr := inst.Attr20()
	if attr.Immediate%4 != 0 {
		return fmt.Errorf("%w: unaligned attribute load at %#x", ErrUnsupported, offset)
	}
	mode := isa.IpaMode{Interp: isa.InterpPerspective, Sample: isa.SampleDefault}
	element, index := attr.Element, attr.Index
	for w := uint32(0); w < attr.Words; w++ {
		expr, err := t.inputAttrExpr(offset, index, element, mode)
		if err != nil {
			return err
		}
		t.setReg(inst.Gpr0()+isa.Register(w), expr)
		element++
		if element == 4 {
			element = 0
			index++
		}
	}
	return nil
}

func (t *translator) compileStA(offset uint32, inst isa.Instruction) error {
	if inst.Gpr8() != isa.ZeroIndex {
		return fmt.Errorf("%w: indirect attribute store at %#x", ErrUnsupported, offset)
	}
	attr := inst.Attr20()
	if attr.Immediate%4 != 0 {
		return fmt.Errorf("%w: unaligned attribute store at %#x", ErrUnsupported, offset)
	}
	element, index := attr.Element, attr.Index
	for w := uint32(0); w < attr.Words; w++ {
		src := t.regRead(inst.Gpr0() + isa.Register(w))
		if err := t.outputAttrStore(offset, index, element, src); err != nil {
			return err
		}
		element++
		if element == 4 {
			element = 0
			index++
		}
	}
	return nil
}

func (t *translator) compileLdC(offset uint32, inst isa.Instruction) error {
	if inst.LdcUnknown() != 0 {
		return fmt.Errorf("%w: LD_C reserved field at %#x", ErrUnsupported, offset)
	}
	ref := inst.Cbuf36()
	use := t.cbufUse(ref.Index)
	use.indirect = true
	use.maxWord = maxConstBufferWords - 1

	// The base word index comes from a register at run time, wrapped to
	// the buffer size, with the encoded byte offset added on top.
	name := fmt.Sprintf("ca_%x", offset)
	base := fmt.Sprintf("((bitcast<u32>(%s) / 4u) & %du)", t.regRead(inst.Gpr8()), uint32(maxConstBufferWords-1))
	if words := ref.Offset / 4; words > 0 {
		base += fmt.Sprintf(" + %du", words)
	} else if words < 0 {
		base += fmt.Sprintf(" - %du", -words)
	}
	t.emit("let %s = %s;", name, base)

	load := func(idx string) string {
		return fmt.Sprintf("c%d.data[%s / 4u][%s %% 4u]", ref.Index, idx, idx)
	}
	switch inst.LdcType() {
	case isa.UniformSingle:
		t.setReg(inst.Gpr0(), load(name))
	case isa.UniformDouble:
		t.emit("let %s_1 = %s + 1u;", name, name)
		t.setReg(inst.Gpr0(), load(name))
		t.setReg(inst.Gpr0()+1, load(name+"_1"))
	default:
		return fmt.Errorf("%w: LD_C type %s at %#x", ErrUnsupported, inst.LdcType(), offset)
	}
	return nil
}

func (t *translator) compileIpa(offset uint32, inst isa.Instruction) error {
	if t.stage != engine.StageFragment {
		return fmt.Errorf("%w: IPA outside fragment stage at %#x", ErrUnsupported, offset)
	}
	attr := inst.Attr28()
	expr, err := t.inputAttrExpr(offset, attr.Index, attr.Element, inst.Ipa())
	if err != nil {
		return err
	}
	if inst.IpaSaturate() {
		expr = fmt.Sprintf("clamp(%s, 0.0, 1.0)", expr)
	}
	t.setReg(inst.Gpr0(), expr)
	return nil
}

// emitFragmentExit copies registers into the fragment outputs. Enabled
// color components consume registers sequentially from r0 in render
// target order; the depth output trails the last color register by one.
func (t *translator) emitFragmentExit() error {
	if t.header.WritesSampleMask() {
		return fmt.Errorf("%w: sample mask output", ErrUnsupported)
	}
	reg := 0
	for rt := 0; rt < engine.NumRenderTargets; rt++ {
		for comp := 0; comp < 4; comp++ {
			if !t.header.ColorComponentEnabled(rt, comp) {
				continue
			}
			t.emit("frag_color[%d][%d] = %s;", rt, comp, t.regRead(isa.Register(reg)))
			reg++
		}
	}
	if t.header.WritesDepth() {
		t.emit("frag_depth_out = %s;", t.regRead(isa.Register(reg+1)))
	}
	return nil
}

func (t *translator) regRead(r isa.Register) string {
	if r == isa.ZeroIndex {
		return "0.0"
	}
	return fmt.Sprintf("r[%d]", r)
}

// setReg emits an assignment to a register. Writes to the zero register
// are dropped.
func (t *translator) setReg(r isa.Register, expr string) {
	if r == isa.ZeroIndex {
		return
	}
	t.emit("r[%d] = %s;", r, expr)
}

func (t *translator) cbufUse(index uint32) *cbufUse {
	use := t.cbufs[index]
	if use == nil {
		use = &cbufUse{}
		t.cbufs[index] = use
	}
	return use
}

// uniformExpr reads one word of a constant buffer at a fixed word offset.
func (t *translator) uniformExpr(index, wordOffset uint32) string {
	use := t.cbufUse(index)
	if wordOffset > use.maxWord {
		use.maxWord = wordOffset
	}
	return fmt.Sprintf("c%d.data[%du][%du]", index, wordOffset/4, wordOffset%4)
}

func (t *translator) recordAttrMode(offset uint32, index isa.AttrIndex, mode isa.IpaMode) error {
	if prev, ok := t.attrModes[index]; ok {
		if prev != mode {
			return fmt.Errorf("%w: attribute %d at %#x", ErrAttributeMode, index, offset)
		}
		return nil
	}
	t.attrModes[index] = mode
	return nil
}

// inputAttrExpr reads one component of an input attribute.
func (t *translator) inputAttrExpr(offset uint32, index isa.AttrIndex, element uint32, mode isa.IpaMode) (string, error) {
	switch {
	case index == isa.AttrTessCoordInstanceIDVertexID:
		if t.stage != engine.StageVertex {
			return "", fmt.Errorf("%w: vertex id attribute outside vertex stage at %#x", ErrUnsupported, offset)
		}
		switch element {
		case 2:
			t.usesInstanceIndex = true
			return "bitcast<f32>(instance_id)", nil
		case 3:
			t.usesVertexIndex = true
			return "bitcast<f32>(vertex_id)", nil
		default:
			return "0.0", nil
		}
	case index == isa.AttrPosition:
		if t.stage != engine.StageFragment {
			return "", fmt.Errorf("%w: position input outside fragment stage at %#x", ErrUnsupported, offset)
		}
		t.readsPosition = true
		if element == 3 {
			return "1.0", nil
		}
		return fmt.Sprintf("frag_coord[%d]", element), nil
	case index.IsGeneric():
		if err := t.recordAttrMode(offset, index, mode); err != nil {
			return "", err
		}
		g := index.GenericIndex()
		t.inputs[g] = true
		return fmt.Sprintf("in_attr%d[%d]", g, element), nil
	default:
		return "", fmt.Errorf("%w: input attribute %d at %#x", ErrUnsupported, index, offset)
	}
}

// outputAttrStore writes one component of an output attribute.
func (t *translator) outputAttrStore(offset uint32, index isa.AttrIndex, element uint32, src string) error {
	switch {
	case index == isa.AttrPosition:
		if t.stage != engine.StageVertex {
			return fmt.Errorf("%w: position output outside vertex stage at %#x", ErrUnsupported, offset)
		}
		t.writesPosition = true
		t.emit("out_position[%d] = %s;", element, src)
		return nil
	case index.IsGeneric():
		if t.stage != engine.StageVertex {
			return fmt.Errorf("%w: attribute output outside vertex stage at %#x", ErrUnsupported, offset)
		}
		g := index.GenericIndex()
		t.outputs[g] = true
		t.emit("out_attr%d[%d] = %s;", g, element, src)
		return nil
	default:
		return fmt.Errorf("%w: output attribute %d at %#x", ErrUnsupported, index, offset)
	}
}

func (t *translator) sortedCbufs() []uint32 {
	indices := make([]uint32, 0, len(t.cbufs))
	for idx := range t.cbufs {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

func (t *translator) sortedInputs() []uint32 {
	return sortedSet(t.inputs)
}

func (t *translator) sortedOutputs() []uint32 {
	return sortedSet(t.outputs)
}

func sortedSet(set map[uint32]bool) []uint32 {
	s := make([]uint32, 0, len(set))
	for v := range set {
		s = append(s, v)
	}
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	return s
}

// declarations emits module-scope state: constant buffer bindings, the
// register file, predicates and the stage's input/output shadows.
func (t *translator) declarations() string {
	var b strings.Builder
	if len(t.cbufs) > 0 {
		fmt.Fprintf(&b, "struct ConstBuffer {\n    data: array<vec4<f32>, %d>,\n}\n\n", maxConstBufferWords/4)
		for _, idx := range t.sortedCbufs() {
			fmt.Fprintf(&b, "@group(%d) @binding(%d) var<uniform> c%d: ConstBuffer;\n", SetIndex(t.stage), idx, idx)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "var<private> r: array<f32, %d>;\n", isa.RegisterCount)
	fmt.Fprintf(&b, "var<private> p: array<bool, %d>;\n", isa.PredCount)
	for _, g := range t.sortedInputs() {
		fmt.Fprintf(&b, "var<private> in_attr%d: vec4<f32>;\n", g)
	}
	if t.usesVertexIndex {
		b.WriteString("var<private> vertex_id: u32;\n")
	}
	if t.usesInstanceIndex {
		b.WriteString("var<private> instance_id: u32;\n")
	}
	if t.readsPosition {
		b.WriteString("var<private> frag_coord: vec4<f32>;\n")
	}
	switch t.stage {
	case engine.StageVertex:
		b.WriteString("var<private> out_position: vec4<f32>;\n")
		for _, g := range t.sortedOutputs() {
			fmt.Fprintf(&b, "var<private> out_attr%d: vec4<f32>;\n", g)
		}
	case engine.StageFragment:
		fmt.Fprintf(&b, "var<private> frag_color: array<vec4<f32>, %d>;\n", engine.NumRenderTargets)
		if t.header.WritesDepth() {
			b.WriteString("var<private> frag_depth_out: f32;\n")
		}
	}
	b.WriteByte('\n')
	return b.String()
}

func interpolateAttr(mode isa.IpaMode) string {
	switch mode.Interp {
	case isa.InterpFlat:
		return " @interpolate(flat)"
	case isa.InterpLinear, isa.InterpScreenLinear:
		return " @interpolate(linear)"
	default:
		return ""
	}
}

func (t *translator) entryPoint(subs []*Subroutine) string {
	if t.stage == engine.StageFragment {
		return t.fragmentEntry(subs)
	}
	return t.vertexEntry(subs)
}

func (t *translator) vertexEntry(subs []*Subroutine) string {
	var b strings.Builder
	outputs := t.sortedOutputs()

	b.WriteString("struct VertexOutput {\n")
	b.WriteString("    @builtin(position) position: vec4<f32>,\n")
	for _, g := range outputs {
		fmt.Fprintf(&b, "    @location(%d) attr%d: vec4<f32>,\n", varyingStart+g, g)
	}
	b.WriteString("}\n\n")

	params := make([]string, 0, 4)
	for _, g := range t.sortedInputs() {
		params = append(params, fmt.Sprintf("@location(%d) in%d: vec4<f32>", g, g))
	}
	if t.usesVertexIndex {
		params = append(params, "@builtin(vertex_index) vert_index: u32")
	}
	if t.usesInstanceIndex {
		params = append(params, "@builtin(instance_index) inst_index: u32")
	}
	b.WriteString("@vertex\n")
	fmt.Fprintf(&b, "fn %s(%s) -> VertexOutput {\n", VertexEntry, strings.Join(params, ", "))
	for _, g := range t.sortedInputs() {
		fmt.Fprintf(&b, "    in_attr%d = in%d;\n", g, g)
	}
	if t.usesVertexIndex {
		b.WriteString("    vertex_id = vert_index;\n")
	}
	if t.usesInstanceIndex {
		b.WriteString("    instance_id = inst_index;\n")
	}
	for _, sub := range subs {
		fmt.Fprintf(&b, "    _ = %s();\n", subName(sub))
	}
	b.WriteString("    var output: VertexOutput;\n")
	b.WriteString("    output.position = out_position;\n")
	for _, g := range outputs {
		fmt.Fprintf(&b, "    output.attr%d = out_attr%d;\n", g, g)
	}
	b.WriteString("    return output;\n")
	b.WriteString("}\n")
	return b.String()
}

func (t *translator) fragmentEntry(subs []*Subroutine) string {
	var b strings.Builder

	targets := make([]int, 0, engine.NumRenderTargets)
	for rt := 0; rt < engine.NumRenderTargets; rt++ {
		if t.header.ColorWriteMask(rt) != 0 {
			targets = append(targets, rt)
		}
	}
	depth := t.header.WritesDepth()
	hasOutput := len(targets) > 0 || depth

	if hasOutput {
		b.WriteString("struct FragmentOutput {\n")
		for _, rt := range targets {
			fmt.Fprintf(&b, "    @location(%d) color%d: vec4<f32>,\n", rt, rt)
		}
		if depth {
			b.WriteString("    @builtin(frag_depth) depth: f32,\n")
		}
		b.WriteString("}\n\n")
	}

	params := []string{"@builtin(position) frag_pos: vec4<f32>"}
	for _, g := range t.sortedInputs() {
		interp := interpolateAttr(t.attrModes[isa.AttrGeneric0+isa.AttrIndex(g)])
		params = append(params, fmt.Sprintf("@location(%d)%s in%d: vec4<f32>", varyingStart+g, interp, g))
	}
	b.WriteString("@fragment\n")
	ret := ""
	if hasOutput {
		ret = " -> FragmentOutput"
	}
	fmt.Fprintf(&b, "fn %s(%s)%s {\n", FragmentEntry, strings.Join(params, ", "), ret)
	if t.readsPosition {
		b.WriteString("    frag_coord = frag_pos;\n")
	}
	for _, g := range t.sortedInputs() {
		fmt.Fprintf(&b, "    in_attr%d = in%d;\n", g, g)
	}
	for _, sub := range subs {
		fmt.Fprintf(&b, "    _ = %s();\n", subName(sub))
	}
	if hasOutput {
		b.WriteString("    var output: FragmentOutput;\n")
		for _, rt := range targets {
			fmt.Fprintf(&b, "    output.color%d = frag_color[%d];\n", rt, rt)
		}
		if depth {
			b.WriteString("    output.depth = frag_depth_out;\n")
		}
		b.WriteString("    return output;\n")
	}
	b.WriteString("}\n")
	return b.String()
}
