// Tests the x86-64 emitter over parsed intermediate code text: file
// framing, frame management, calling convention, the division sequence and
// the equivalence of emitting from text and from an in-memory list.

package x86

import (
	"regexp"
	"strconv"
	"strings"
	"testing"

	"slc/src/ir/tac"
	"slc/src/util"
)

// emit parses the intermediate code text and returns the emitted assembler.
func emit(t *testing.T, text string) string {
	t.Helper()
	l, err := tac.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	wr := util.Writer{}
	if err := GenerateFrom(l, &wr); err != nil {
		t.Fatalf("emit error: %s", err)
	}
	return wr.String()
}

// TestEmitFraming verifies the file header, the per-method directives and
// the trailing GNU stack note.
func TestEmitFraming(t *testing.T) {
	asm := emit(t, "METHOD main:\nRETURN\n")

	if !strings.HasPrefix(asm, ".text\n") {
		t.Error("expected output to start with .text")
	}
	if !strings.HasSuffix(asm, ".section\t.note.GNU-stack,\"\",@progbits\n") {
		t.Error("expected output to end with the GNU stack note")
	}
	for _, e1 := range []string{".globl main", ".type main, @function", "main:", "\tleave\n", "\tret\n"} {
		if !strings.Contains(asm, e1) {
			t.Errorf("expected emitted assembler to contain %q:\n%s", e1, asm)
		}
	}
}

// TestEmitFrameSize verifies that the prologue reserves every stored
// variable up front and that frame sizes are non-negative multiples of 8.
func TestEmitFrameSize(t *testing.T) {
	asm := emit(t, `METHOD f:
PARAM a
LOAD 1, t0
STORE t0, x
LOAD 2, t1
STORE t1, y
RETURN
`)
	m := regexp.MustCompile(`enter\t\$(\d+), \$0`).FindStringSubmatch(asm)
	if m == nil {
		t.Fatalf("no enter directive emitted:\n%s", asm)
	}
	n, _ := strconv.Atoi(m[1])
	if n%8 != 0 {
		t.Errorf("frame size %d is not a multiple of 8", n)
	}
	// One parameter and two locals need at least 24 bytes.
	if n < 24 {
		t.Errorf("frame size %d cannot hold 3 variables", n)
	}
	// The parameter spill and both stores use distinct slots.
	offs := regexp.MustCompile(`movq\t%\w+, (-\d+)\(%rbp\)`).FindAllStringSubmatch(asm, -1)
	seen := make(map[string]bool)
	for _, e1 := range offs {
		seen[e1[1]] = true
	}
	if len(seen) < 3 {
		t.Errorf("expected 3 distinct variable slots, got %v:\n%s", seen, asm)
	}
}

// TestEmitEmptyMain verifies that a method with no statements still emits a
// valid body ending in ret, reporting 0.
func TestEmitEmptyMain(t *testing.T) {
	asm := emit(t, "METHOD main:\n")
	if !strings.Contains(asm, "\tmovq\t$0, %rax\n\tleave\n\tret\n") {
		t.Errorf("expected the generic epilogue to report 0:\n%s", asm)
	}
}

// TestEmitDiscardedCall verifies that a call without result operand emits no
// move out of %rax.
func TestEmitDiscardedCall(t *testing.T) {
	asm := emit(t, "METHOD main:\nCALL f\nRETURN\n")
	if !strings.Contains(asm, "\tcall\tf\n") {
		t.Fatalf("expected a call to f:\n%s", asm)
	}
	after := asm[strings.Index(asm, "\tcall\tf\n")+len("\tcall\tf\n"):]
	if strings.HasPrefix(after, "\tmovq\t%rax") {
		t.Errorf("expected no result move after a discarded call:\n%s", asm)
	}
}

// TestEmitCallArguments verifies the System V argument staging: sources are
// pushed before any argument register is written, then popped in reverse.
func TestEmitCallArguments(t *testing.T) {
	asm := emit(t, `METHOD main:
LOAD 1, t0
LOAD 2, t1
LOAD_PARAM t0
LOAD_PARAM t1
CALL f, t2
RETURN t2
`)
	idxPush := strings.Index(asm, "\tpushq\t")
	idxPop := strings.Index(asm, "\tpopq\t%rsi")
	idxCall := strings.Index(asm, "\tcall\tf")
	if idxPush < 0 || idxPop < 0 || idxCall < 0 {
		t.Fatalf("missing staging sequence:\n%s", asm)
	}
	if !(idxPush < idxPop && idxPop < idxCall) {
		t.Errorf("expected push, pop, call order:\n%s", asm)
	}
	if !strings.Contains(asm, "\tpopq\t%rdi\n") {
		t.Errorf("expected the first argument to land in %%rdi:\n%s", asm)
	}
}

// TestEmitStackArguments verifies the seventh argument lands on the stack
// and is cleaned up after the call.
func TestEmitStackArguments(t *testing.T) {
	text := "METHOD main:\n"
	for i1 := 0; i1 < 7; i1++ {
		text += "LOAD_PARAM " + strconv.Itoa(i1) + "\n"
	}
	text += "CALL f\nRETURN\n"
	asm := emit(t, text)

	if !strings.Contains(asm, "\tpushq\t$6\n") {
		t.Errorf("expected the seventh argument to be pushed:\n%s", asm)
	}
	after := asm[strings.Index(asm, "\tcall\tf\n"):]
	if !strings.Contains(after, "addq\t$16, %rsp") {
		t.Errorf("expected the stack argument and its alignment pad to be cleaned up:\n%s", asm)
	}
}

// TestEmitDivision verifies the idivq sequence: %rax and %rdx are saved and
// restored, the divisor goes through the stack and the quotient or the
// remainder reaches the result register.
func TestEmitDivision(t *testing.T) {
	asm := emit(t, `METHOD main:
LOAD 40, t0
LOAD 5, t1
DIV t0, t1, t2
RETURN t2
`)
	for _, e1 := range []string{"\tcqto\n", "\tidivq\t(%rsp)\n", "movq\t%rax, %r10", "movq\t%rdx, %r11"} {
		if !strings.Contains(asm, e1) {
			t.Errorf("expected division sequence to contain %q:\n%s", e1, asm)
		}
	}

	asm = emit(t, "METHOD main:\nLOAD 40, t0\nLOAD 7, t1\nMOD t0, t1, t2\nRETURN t2\n")
	if !strings.Contains(asm, "\tmovq\t%rdx, %rcx\n") {
		t.Errorf("expected the remainder to move out of %%rdx:\n%s", asm)
	}
}

// TestEmitMulStrengthReduction verifies that multiplication by a power of
// two lowers to a left shift.
func TestEmitMulStrengthReduction(t *testing.T) {
	asm := emit(t, `METHOD main:
LOAD n, t0
MUL t0, 8, t1
RETURN t1
`)
	if !strings.Contains(asm, "\tsalq\t$3, ") {
		t.Errorf("expected a left shift by 3:\n%s", asm)
	}
	if strings.Contains(asm, "imulq") {
		t.Errorf("expected no multiplication instruction:\n%s", asm)
	}

	// Division keeps idivq: an arithmetic shift rounds differently for
	// negative dividends.
	asm = emit(t, "METHOD main:\nLOAD n, t0\nDIV t0, 8, t1\nRETURN t1\n")
	if !strings.Contains(asm, "idivq") || strings.Contains(asm, "sarq") {
		t.Errorf("expected division by a power of two to keep idivq:\n%s", asm)
	}
}

// TestEmitComparison verifies the compare and set sequence.
func TestEmitComparison(t *testing.T) {
	asm := emit(t, `METHOD main:
LOAD a, t0
LOAD b, t1
LT t0, t1, t2
IF_FALSE t2, L0
RETURN 1
LABEL L0:
RETURN 0
`)
	for _, e1 := range []string{"\tsetl\t%al\n", "\tmovzbl\t%al, %eax\n", "\tje\tL0\n", "L0:\n"} {
		if !strings.Contains(asm, e1) {
			t.Errorf("expected %q in the comparison lowering:\n%s", e1, asm)
		}
	}
}

// TestEmitBareLabelIgnored verifies that NOP-ed instructions produce no
// output.
func TestEmitBareLabelIgnored(t *testing.T) {
	with := emit(t, "METHOD main:\nLABEL\nRETURN\n")
	without := emit(t, "METHOD main:\nRETURN\n")
	if with != without {
		t.Errorf("expected a bare LABEL line to emit nothing:\n%s", with)
	}
}

// TestEmitTextEqualsDirect verifies the interface boundary: emitting from
// re-parsed text equals emitting from the in-memory list.
func TestEmitTextEqualsDirect(t *testing.T) {
	l := &tac.List{}
	l.Emit(tac.Method, nil, nil, tac.NewFunc("main"))
	l.Emit(tac.Load, tac.NewConst(3, false), nil, tac.NewTemp(0))
	l.Emit(tac.Load, tac.NewConst(4, false), nil, tac.NewTemp(1))
	l.Emit(tac.Add, tac.NewTemp(0), tac.NewTemp(1), tac.NewTemp(2))
	l.Emit(tac.Return, tac.NewTemp(2), nil, nil)

	direct := util.Writer{}
	if err := GenerateFrom(l, &direct); err != nil {
		t.Fatalf("emit error: %s", err)
	}

	parsed, err := tac.Parse(strings.NewReader(l.String()))
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	reparsed := util.Writer{}
	if err := GenerateFrom(parsed, &reparsed); err != nil {
		t.Fatalf("emit error: %s", err)
	}

	if direct.String() != reparsed.String() {
		t.Errorf("text and direct emission differ:\n--- direct ---\n%s--- text ---\n%s",
			direct.String(), reparsed.String())
	}
}
