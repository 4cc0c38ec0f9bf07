// expression.go lowers the arithmetic, comparison and logic instructions.
// Results land in the destination temporary's register; %r10 and %r11 serve
// as scratch registers since they are outside the allocation pool.

package x86

import "slc/src/ir/tac"

// -------------------
// ----- Globals -----
// -------------------

// mnemonics of the simple two operand arithmetic instructions.
var arithOps = map[tac.Op]string{
	tac.Add: "addq",
	tac.Sub: "subq",
	tac.Mul: "imulq",
}

// set condition mnemonics per comparison operator, for "cmpq arg2, arg1".
var setOps = map[tac.Op]string{
	tac.Eq:  "sete",
	tac.Neq: "setne",
	tac.Lt:  "setl",
	tac.Le:  "setle",
	tac.Gt:  "setg",
	tac.Ge:  "setge",
}

// ---------------------
// ----- Functions -----
// ---------------------

// arithmetic lowers Add, Sub and Mul: copy the first operand into the
// destination register, then apply the operation with the second operand.
func (e *emitter) arithmetic(ins *tac.Instr) {
	e.returned = false
	rd := e.rf.regOf(ins.Result)

	// Multiplication by a power of two reduces to a left shift.
	if ins.Op == tac.Mul && ins.Arg2.IsConst() && isPowerOfTwo(ins.Arg2.Value) {
		e.moveInto(rd, ins.Arg1)
		e.wr.Ins2("salq", imm(log2(ins.Arg2.Value)), rd)
		return
	}

	op := arithOps[ins.Op]
	if ins.Arg2.IsTemp() && e.rf.regOf(ins.Arg2) == rd {
		// The destination register doubles as the second operand. Addition
		// and multiplication commute; subtraction stages the subtrahend in
		// scratch first.
		if ins.Op == tac.Sub {
			e.wr.Ins2("movq", rd, "%r10")
			e.moveInto(rd, ins.Arg1)
			e.wr.Ins2(op, "%r10", rd)
			return
		}
		e.moveInto(rd, ins.Arg2)
		e.wr.Ins2(op, e.operand(ins.Arg1), rd)
		return
	}

	e.moveInto(rd, ins.Arg1)
	e.wr.Ins2(op, e.operand(ins.Arg2), rd)
}

// divide lowers Div and Mod through idivq. %rax and %rdx are saved in
// scratch up front and restored afterwards, except into the result register.
// The divisor is staged through the stack, so a divisor living in %rax or
// %rdx cannot collide with the save and widen sequence.
func (e *emitter) divide(ins *tac.Instr) {
	rd := e.rf.regOf(ins.Result)
	e.wr.Ins2("movq", "%rax", "%r10")
	e.wr.Ins2("movq", "%rdx", "%r11")
	e.wr.Ins1("pushq", e.operand(ins.Arg2))
	e.moveInto("%rax", ins.Arg1)
	e.wr.Ins0("cqto")
	e.wr.Ins1("idivq", "(%rsp)")
	e.wr.Ins2("addq", imm(wordSize), "%rsp")

	res := "%rax" // Quotient.
	if ins.Op == tac.Mod {
		res = "%rdx" // Remainder.
	}
	if rd != res {
		e.wr.Ins2("movq", res, rd)
	}
	if rd != "%rdx" {
		e.wr.Ins2("movq", "%r11", "%rdx")
	}
	if rd != "%rax" {
		e.wr.Ins2("movq", "%r10", "%rax")
	}
	e.returned = false
}

// unaryMinus lowers UMinus: copy and negate.
func (e *emitter) unaryMinus(ins *tac.Instr) {
	rd := e.rf.regOf(ins.Result)
	e.moveInto(rd, ins.Arg1)
	e.wr.Ins1("negq", rd)
	e.returned = false
}

// logicalNot lowers Not: a zero operand yields 1, anything else 0.
func (e *emitter) logicalNot(ins *tac.Instr) {
	rd := e.rf.regOf(ins.Result)
	loc := e.ensureReg(ins.Arg1, "%r10")
	e.wr.Ins2("cmpq", "$0", loc)
	e.wr.Ins1("sete", "%al")
	e.wr.Ins2("movzbl", "%al", "%eax")
	if rd != "%rax" {
		e.wr.Ins2("movq", "%rax", rd)
	}
	e.returned = false
}

// compare lowers the comparison operators: compare, set the condition byte
// and zero-extend into the destination register.
func (e *emitter) compare(ins *tac.Instr) {
	rd := e.rf.regOf(ins.Result)
	// cmpq computes "arg1 - arg2"; the first operand needs a register.
	e.wr.Ins2("cmpq", e.cmpOperand(ins.Arg2), e.ensureReg(ins.Arg1, "%r10"))
	e.wr.Ins1(setOps[ins.Op], "%al")
	e.wr.Ins2("movzbl", "%al", "%eax")
	if rd != "%rax" {
		e.wr.Ins2("movq", "%rax", rd)
	}
	e.returned = false
}

// logical lowers And and Or: both operands are normalised to 0/1 condition
// bytes, combined and zero-extended. The second operand is normalised first,
// so an operand living in %rax is always read before %al is written.
func (e *emitter) logical(ins *tac.Instr) {
	rd := e.rf.regOf(ins.Result)
	op := "andb"
	if ins.Op == tac.Or {
		op = "orb"
	}
	e.wr.Ins2("cmpq", "$0", e.ensureReg(ins.Arg2, "%r11"))
	e.wr.Ins1("setne", "%r10b")
	e.wr.Ins2("cmpq", "$0", e.ensureReg(ins.Arg1, "%r11"))
	e.wr.Ins1("setne", "%al")
	e.wr.Ins2(op, "%r10b", "%al")
	e.wr.Ins2("movzbl", "%al", "%eax")
	if rd != "%rax" {
		e.wr.Ins2("movq", "%rax", rd)
	}
	e.returned = false
}

// moveInto copies the operand s into register rd, skipping a move of a
// register onto itself.
func (e *emitter) moveInto(rd string, s *tac.Symbol) {
	if s.IsConst() {
		e.wr.Ins2("movq", imm(s.Value), rd)
		return
	}
	if r1 := e.rf.regOf(s); r1 != rd {
		e.wr.Ins2("movq", r1, rd)
	}
}

// cmpOperand returns the second cmpq operand: an immediate for constants,
// otherwise the operand's register.
func (e *emitter) cmpOperand(s *tac.Symbol) string {
	if s.IsConst() {
		return imm(s.Value)
	}
	return e.rf.regOf(s)
}

// isPowerOfTwo reports whether n is a positive power of two greater than one.
func isPowerOfTwo(n int) bool {
	return n > 1 && n&(n-1) == 0
}

// log2 returns the base two logarithm of the power of two n.
func log2(n int) int {
	res := 0
	for n > 1 {
		n >>= 1
		res++
	}
	return res
}
