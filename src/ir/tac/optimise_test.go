// Tests the optimiser passes over hand-built instruction lists: folding,
// propagation, the peephole identities, dead-code elimination and the fixed
// point property of the whole pipeline.

package tac

import (
	"strings"
	"testing"

	"slc/src/util"
)

// opt is the silent options value used by the optimiser under test.
var opt = util.Options{}

// method wraps the body instructions in a main method frame.
func method(body ...Instr) *List {
	l := &List{}
	l.Emit(Method, nil, nil, NewFunc("main"))
	l.Instrs = append(l.Instrs, body...)
	return l
}

// TestFoldArithmetic verifies that 2 + 3 * 4 folds to 14, which propagates
// into the return, and that no arithmetic or other load survives.
func TestFoldArithmetic(t *testing.T) {
	l := method(
		Instr{Op: Load, Arg1: NewConst(2, false), Result: NewTemp(0)},
		Instr{Op: Load, Arg1: NewConst(3, false), Result: NewTemp(1)},
		Instr{Op: Load, Arg1: NewConst(4, false), Result: NewTemp(2)},
		Instr{Op: Mul, Arg1: NewTemp(1), Arg2: NewTemp(2), Result: NewTemp(3)},
		Instr{Op: Add, Arg1: NewTemp(0), Arg2: NewTemp(3), Result: NewTemp(4)},
		Instr{Op: Return, Arg1: NewTemp(4)},
	)
	Optimise(opt, l)

	for i1 := range l.Instrs {
		ins := &l.Instrs[i1]
		if ins.Op.IsBinary() {
			t.Errorf("expected all arithmetic to fold, found %s", ins.Op)
		}
		if ins.Op == Load && !ins.IsNop() && (!ins.Arg1.IsConst() || ins.Arg1.Value != 14) {
			t.Errorf("expected only the folded value to survive, got LOAD %s", ins.Arg1)
		}
	}
	// The folded constant propagates all the way into the return.
	if ret := &l.Instrs[6]; !ret.Arg1.IsConst() || ret.Arg1.Value != 14 {
		t.Errorf("expected RETURN 14, got RETURN %s", ret.Arg1)
	}
}

// TestFoldComparison verifies that comparisons fold to 0 or 1.
func TestFoldComparison(t *testing.T) {
	l := method(
		Instr{Op: Lt, Arg1: NewConst(2, false), Arg2: NewConst(3, false), Result: NewTemp(0)},
		Instr{Op: Eq, Arg1: NewConst(2, false), Arg2: NewConst(3, false), Result: NewTemp(1)},
		Instr{Op: Store, Arg1: NewTemp(0), Result: NewVar("p")},
		Instr{Op: Store, Arg1: NewTemp(1), Result: NewVar("q")},
	)
	Optimise(opt, l)
	if s := &l.Instrs[3]; !s.Arg1.IsConst() || s.Arg1.Value != 1 {
		t.Errorf("expected 2 < 3 to fold to 1, got %s", s.Arg1)
	}
	if s := &l.Instrs[4]; !s.Arg1.IsConst() || s.Arg1.Value != 0 {
		t.Errorf("expected 2 == 3 to fold to 0, got %s", s.Arg1)
	}
}

// TestDivisionByZeroNotFolded verifies that a constant division by zero
// survives optimisation untouched.
func TestDivisionByZeroNotFolded(t *testing.T) {
	l := method(
		Instr{Op: Div, Arg1: NewConst(1, false), Arg2: NewConst(0, false), Result: NewTemp(0)},
		Instr{Op: Return, Arg1: NewTemp(0)},
	)
	Optimise(opt, l)
	if l.Instrs[1].Op != Div {
		t.Errorf("expected division by zero to survive, got %s", l.Instrs[1].Op)
	}
	l2 := method(
		Instr{Op: Mod, Arg1: NewConst(1, false), Arg2: NewConst(0, false), Result: NewTemp(0)},
		Instr{Op: Return, Arg1: NewTemp(0)},
	)
	Optimise(opt, l2)
	if l2.Instrs[1].Op != Mod {
		t.Errorf("expected modulo by zero to survive, got %s", l2.Instrs[1].Op)
	}
}

// TestPeepholeIdentities verifies the algebraic identity rewrites.
func TestPeepholeIdentities(t *testing.T) {
	tests := []struct {
		name string
		ins  Instr
		// The expected surviving store operand: the variable x copied
		// through, or a folded constant.
		wantConst bool
		wantValue int
	}{
		{
			name: "x plus zero",
			ins:  Instr{Op: Add, Arg1: NewTemp(0), Arg2: NewConst(0, false), Result: NewTemp(1)},
		},
		{
			name: "x minus zero",
			ins:  Instr{Op: Sub, Arg1: NewTemp(0), Arg2: NewConst(0, false), Result: NewTemp(1)},
		},
		{
			name: "x times one",
			ins:  Instr{Op: Mul, Arg1: NewTemp(0), Arg2: NewConst(1, false), Result: NewTemp(1)},
		},
		{
			name:      "x times zero",
			ins:       Instr{Op: Mul, Arg1: NewTemp(0), Arg2: NewConst(0, false), Result: NewTemp(1)},
			wantConst: true,
			wantValue: 0,
		},
		{
			name:      "x minus x",
			ins:       Instr{Op: Sub, Arg1: NewTemp(0), Arg2: NewTemp(0), Result: NewTemp(1)},
			wantConst: true,
			wantValue: 0,
		},
		{
			name:      "x over x",
			ins:       Instr{Op: Div, Arg1: NewTemp(0), Arg2: NewTemp(0), Result: NewTemp(1)},
			wantConst: true,
			wantValue: 1,
		},
	}
	for _, e1 := range tests {
		t.Run(e1.name, func(t *testing.T) {
			l := method(
				Instr{Op: Load, Arg1: NewVar("x"), Result: NewTemp(0)},
				e1.ins,
				Instr{Op: Store, Arg1: NewTemp(1), Result: NewVar("y")},
			)
			Optimise(opt, l)
			if l.Instrs[2].Op != Load && !l.Instrs[2].IsNop() {
				t.Fatalf("expected identity to rewrite into a load, got:\n%s", l.String())
			}
			st := &l.Instrs[3]
			if e1.wantConst {
				if !st.Arg1.IsConst() || st.Arg1.Value != e1.wantValue {
					t.Errorf("expected store of %d, got store of %s", e1.wantValue, st.Arg1)
				}
			} else if st.Arg1.IsConst() {
				t.Errorf("expected the variable value to copy through, got constant %s", st.Arg1)
			}
		})
	}
}

// TestUnaryMinusRewrite verifies that 0 - x becomes a unary minus.
func TestUnaryMinusRewrite(t *testing.T) {
	l := method(
		Instr{Op: Load, Arg1: NewVar("x"), Result: NewTemp(0)},
		Instr{Op: Sub, Arg1: NewConst(0, false), Arg2: NewTemp(0), Result: NewTemp(1)},
		Instr{Op: Return, Arg1: NewTemp(1)},
	)
	Optimise(opt, l)
	if l.Instrs[2].Op != UMinus || !l.Instrs[2].Arg1.IsTemp() {
		t.Errorf("expected 0 - x to rewrite into UMinus:\n%s", l.String())
	}
}

// TestDeadCodeElimination verifies that unused pure instructions are NOP-ed
// while stores, branches and calls survive.
func TestDeadCodeElimination(t *testing.T) {
	l := method(
		Instr{Op: Load, Arg1: NewVar("x"), Result: NewTemp(0)}, // Dead: t0 unused.
		Instr{Op: Load, Arg1: NewVar("y"), Result: NewTemp(1)},
		Instr{Op: Store, Arg1: NewTemp(1), Result: NewVar("z")},
		Instr{Op: Add, Arg1: NewTemp(1), Arg2: NewTemp(1), Result: NewTemp(2)}, // Dead: t2 unused.
		Instr{Op: Call, Arg1: NewFunc("f")},
		Instr{Op: Return},
	)
	Optimise(opt, l)

	if !l.Instrs[1].IsNop() {
		t.Error("expected unused load of x to be removed")
	}
	if l.Instrs[2].IsNop() || l.Instrs[3].Op != Store {
		t.Error("expected the stored load chain to survive")
	}
	if !l.Instrs[4].IsNop() {
		t.Error("expected unused addition to be removed")
	}
	if l.Instrs[5].Op != Call || l.Instrs[6].Op != Return {
		t.Error("expected call and return to survive")
	}
}

// TestOptimiseFixedPoint verifies that a second optimiser run finds nothing
// left to rewrite.
func TestOptimiseFixedPoint(t *testing.T) {
	l := method(
		Instr{Op: Load, Arg1: NewConst(10, false), Result: NewTemp(0)},
		Instr{Op: Store, Arg1: NewTemp(0), Result: NewVar("x")},
		Instr{Op: Load, Arg1: NewVar("x"), Result: NewTemp(1)},
		Instr{Op: Mul, Arg1: NewTemp(1), Arg2: NewConst(1, false), Result: NewTemp(2)},
		Instr{Op: Add, Arg1: NewTemp(2), Arg2: NewConst(0, false), Result: NewTemp(3)},
		Instr{Op: Return, Arg1: NewTemp(3)},
	)
	if n := Optimise(opt, l); n == 0 {
		t.Fatal("expected the first run to rewrite instructions")
	}
	if n := Optimise(opt, l); n != 0 {
		t.Errorf("expected a fixed point, got %d further rewrites:\n%s", n, l.String())
	}
}

// TestNopPrintsBareLabel verifies that removed instructions serialise as
// bare label lines, which the emitter ignores.
func TestNopPrintsBareLabel(t *testing.T) {
	l := method(
		Instr{Op: Load, Arg1: NewConst(1, false), Result: NewTemp(0)},
		Instr{Op: Return},
	)
	Optimise(opt, l)
	if !l.Instrs[1].IsNop() {
		t.Fatal("expected the unused load to be removed")
	}
	lines := strings.Split(strings.TrimSpace(l.String()), "\n")
	if lines[1] != "LABEL" {
		t.Errorf("expected a bare LABEL line, got %q", lines[1])
	}
}
