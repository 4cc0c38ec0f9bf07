// Package x86 lowers the parsed intermediate code into GNU assembler syntax
// for x86-64 under the System V AMD64 calling convention. The emitter only
// ever consumes the textual intermediate form, so it can be exercised on a
// hand-written file independently of the frontend.
package x86

import (
	"fmt"

	"slc/src/ir/tac"
	"slc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// emitter carries the per-function state of the lowering: the variable
// table, the register file, staged call arguments and whether the last
// emitted body instruction was a return.
type emitter struct {
	wr       *util.Writer
	rf       *registerFile
	vt       *varTable
	pending  []*tac.Symbol // Arguments staged by CallParam for the next Call.
	nparams  int           // Number of Param instructions seen in the open function.
	open     bool          // A function body is currently being emitted.
	returned bool          // The last emitted instruction of the open function was a return.
}

// ---------------------
// ----- Functions -----
// ---------------------

// GenX86 lowers the instruction list l and writes the assembler text to the
// output file of opt.
func GenX86(opt util.Options, l *tac.List) error {
	wr := util.Writer{}
	if err := GenerateFrom(l, &wr); err != nil {
		return err
	}
	if err := wr.Save(opt.Out); err != nil {
		return fmt.Errorf("could not write assembler file: %s", err)
	}
	util.Banner(opt, "assembler written to %s", opt.Out)
	return nil
}

// GenerateFrom lowers the instruction list l into wr.
func GenerateFrom(l *tac.List, wr *util.Writer) error {
	e := emitter{
		wr: wr,
		rf: newRegisterFile(),
		vt: &varTable{},
	}
	wr.WriteString(".text\n")

	for i1 := 0; i1 < len(l.Instrs); i1++ {
		ins := &l.Instrs[i1]
		switch ins.Op {
		case tac.Method:
			e.beginFunction(l, i1)
		case tac.Extern:
			// The linker resolves extern methods; an extern declaration
			// still terminates any open body.
			e.endFunction()
		case tac.Param:
			e.param(ins)
		case tac.Label:
			if ins.Result != nil {
				wr.Label(ins.Result.Name)
				e.returned = false
			}
		case tac.Goto:
			wr.Ins1("jmp", ins.Result.Name)
			e.returned = false
		case tac.IfFalse:
			e.branch(ins, "je")
		case tac.IfTrue:
			e.branch(ins, "jne")
		case tac.Load:
			e.load(ins)
		case tac.Store:
			e.store(ins)
		case tac.Return:
			e.returnStatement(ins)
		case tac.CallParam:
			e.pending = append(e.pending, ins.Arg1)
			e.returned = false
		case tac.Call:
			e.call(ins)
		case tac.UMinus:
			e.unaryMinus(ins)
		case tac.Not:
			e.logicalNot(ins)
		case tac.Div, tac.Mod:
			e.divide(ins)
		case tac.And, tac.Or:
			e.logical(ins)
		case tac.Eq, tac.Neq, tac.Lt, tac.Le, tac.Gt, tac.Ge:
			e.compare(ins)
		case tac.Add, tac.Sub, tac.Mul:
			e.arithmetic(ins)
		default:
			return fmt.Errorf("instruction %s not supported by the x86-64 emitter", ins.Op)
		}
	}
	e.endFunction()

	wr.WriteString(".section\t.note.GNU-stack,\"\",@progbits\n")
	return nil
}

// load emits a move of a constant, variable or free symbol into the
// destination temporary's register.
func (e *emitter) load(ins *tac.Instr) {
	rd := e.rf.regOf(ins.Result)
	src := ins.Arg1
	switch {
	case src.IsConst():
		e.wr.Ins2("movq", imm(src.Value), rd)
	case src.IsTemp():
		if r1 := e.rf.regOf(src); r1 != rd {
			e.wr.Ins2("movq", r1, rd)
		}
	default:
		if off, ok := e.vt.offset(src.Name); ok {
			e.wr.LoadStore("movq", rd, off, "%rbp", false)
		} else {
			// Free symbol: emit a symbolic move and let the assembler
			// resolve or reject it.
			e.wr.Ins2("movq", src.Name, rd)
		}
	}
	e.returned = false
}

// store emits a move of the source temporary or constant into the named
// variable's stack slot.
func (e *emitter) store(ins *tac.Instr) {
	off := e.vt.add(ins.Result.Name)
	if ins.Arg1.IsConst() {
		e.wr.Write("\tmovq\t%s, %d(%%rbp)\n", imm(ins.Arg1.Value), off)
	} else {
		e.wr.LoadStore("movq", e.rf.regOf(ins.Arg1), off, "%rbp", true)
	}
	e.returned = false
}

// branch emits a conditional jump taken when the condition operand is zero
// (jcc "je") or non-zero (jcc "jne").
func (e *emitter) branch(ins *tac.Instr, jcc string) {
	loc := e.ensureReg(ins.Arg1, "%r10")
	e.wr.Ins2("cmpq", "$0", loc)
	e.wr.Ins1(jcc, ins.Result.Name)
	e.returned = false
}

// ensureReg returns a register holding the operand s, staging constants
// through the scratch register.
func (e *emitter) ensureReg(s *tac.Symbol, scratch string) string {
	if s.IsConst() {
		e.wr.Ins2("movq", imm(s.Value), scratch)
		return scratch
	}
	return e.rf.regOf(s)
}

// operand returns the assembler operand for s: an immediate for constants,
// the assigned register for temporaries.
func (e *emitter) operand(s *tac.Symbol) string {
	if s.IsConst() {
		return imm(s.Value)
	}
	return e.rf.regOf(s)
}
