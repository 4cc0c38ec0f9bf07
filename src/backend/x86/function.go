// function.go emits function prologues, epilogues, parameter spills and
// calls. Frame sizes are known before the prologue is written: beginFunction
// pre-scans the function's instructions for parameters and stored variables,
// so "enter" always reserves the full frame.

package x86

import (
	"slc/src/backend/xtoa"
	"slc/src/ir/tac"
)

// beginFunction closes any open function and opens the method declared at
// list index start, writing its directives and prologue.
func (e *emitter) beginFunction(l *tac.List, start int) {
	e.endFunction()

	name := l.Instrs[start].Result.Name
	e.rf.Reset()
	e.vt = &varTable{}
	e.pending = nil
	e.nparams = 0
	e.open = true
	e.returned = false

	// Pre-scan the body for every name that needs a stack slot: formals
	// first, in declaration order, then stored variables in first-store
	// order. The scan stops at the next method boundary.
	for i1 := start + 1; i1 < len(l.Instrs); i1++ {
		switch l.Instrs[i1].Op {
		case tac.Method, tac.Extern:
			i1 = len(l.Instrs)
		case tac.Param:
			e.vt.add(l.Instrs[i1].Result.Name)
		case tac.Store:
			e.vt.add(l.Instrs[i1].Result.Name)
		}
	}

	e.wr.Write(".globl %s\n", name)
	e.wr.Write(".type %s, @function\n", name)
	e.wr.Label(name)
	e.wr.Write("\tenter\t$%d, $0\n", e.vt.frameSize())
}

// endFunction closes the open function, appending a generic epilogue if the
// body did not end in a return statement.
func (e *emitter) endFunction() {
	if !e.open {
		return
	}
	if !e.returned {
		// Fallthrough path of a method without trailing return. A void main
		// exits with status 0 this way.
		e.wr.Ins2("movq", "$0", "%rax")
		e.epilogue()
	}
	e.open = false
}

// epilogue tears down the frame and returns to the caller.
func (e *emitter) epilogue() {
	e.wr.Ins0("leave")
	e.wr.Ins0("ret")
}

// param spills the next formal parameter into its stack slot. The first six
// parameters arrive in the System V argument registers; the rest live above
// the return address in the caller's frame.
func (e *emitter) param(ins *tac.Instr) {
	off := e.vt.add(ins.Result.Name)
	if e.nparams < len(argRegs) {
		e.wr.LoadStore("movq", argRegs[e.nparams], off, "%rbp", true)
	} else {
		// Stack argument: 16(%rbp) is the first one, above the saved frame
		// pointer and the return address.
		callerOff := 2*wordSize + (e.nparams-len(argRegs))*wordSize
		e.wr.LoadStore("movq", "%r10", callerOff, "%rbp", false)
		e.wr.LoadStore("movq", "%r10", off, "%rbp", true)
	}
	e.nparams++
	e.returned = false
}

// call emits a call to the named method, passing the staged arguments per
// the System V integer ABI. Register arguments are staged through the stack:
// every source is pushed before any argument register is written, so an
// argument register that doubles as a temporary cannot be clobbered while
// its value is still needed.
func (e *emitter) call(ins *tac.Instr) {
	args := e.pending
	e.pending = nil

	nreg := len(args)
	if nreg > len(argRegs) {
		nreg = len(argRegs)
	}
	extra := len(args) - nreg

	// Keep the stack 16 byte aligned across the pushed stack arguments.
	pad := 0
	if extra%2 != 0 {
		pad = wordSize
		e.wr.Ins2("subq", imm(pad), "%rsp")
	}
	// Stack arguments are pushed right to left so the seventh argument ends
	// up lowest, right above the return address.
	for i1 := len(args) - 1; i1 >= nreg; i1-- {
		e.wr.Ins1("pushq", e.operand(args[i1]))
	}
	// Register arguments: push all sources, then pop into the argument
	// registers in reverse. Pushes and pops balance before the call.
	for i1 := 0; i1 < nreg; i1++ {
		e.wr.Ins1("pushq", e.operand(args[i1]))
	}
	for i1 := nreg - 1; i1 >= 0; i1-- {
		e.wr.Ins1("popq", argRegs[i1])
	}

	e.wr.Ins1("call", ins.Arg1.Name)

	if clean := extra*wordSize + pad; clean > 0 {
		e.wr.Ins2("addq", imm(clean), "%rsp")
	}
	if ins.Result != nil {
		if rd := e.rf.regOf(ins.Result); rd != "%rax" {
			e.wr.Ins2("movq", "%rax", rd)
		}
	}
	e.returned = false
}

// returnStatement moves the return value, if any, into %rax and emits the
// epilogue. A value-less return reports 0.
func (e *emitter) returnStatement(ins *tac.Instr) {
	switch {
	case ins.Arg1 == nil:
		e.wr.Ins2("movq", "$0", "%rax")
	case ins.Arg1.IsConst():
		e.wr.Ins2("movq", imm(ins.Arg1.Value), "%rax")
	default:
		if r1 := e.rf.regOf(ins.Arg1); r1 != "%rax" {
			e.wr.Ins2("movq", r1, "%rax")
		}
	}
	e.epilogue()
	e.returned = true
}

// imm returns the assembler immediate for value v.
func imm(v int) string {
	return "$" + xtoa.ItoA(v)
}
