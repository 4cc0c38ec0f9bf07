// Tests the intermediate code generator by lowering parsed programs and
// checking the emitted instruction sequences: method and parameter framing,
// branch shapes of if and while, call argument staging and the unary
// operator encodings.

package tac_test

import (
	"testing"

	"slc/src/frontend"
	"slc/src/ir/tac"
)

// generate parses and lowers src.
func generate(t *testing.T, src string) *tac.List {
	t.Helper()
	root, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	l, err := tac.Generate(root)
	if err != nil {
		t.Fatalf("generate error: %s", err)
	}
	return l
}

// ops returns the operator sequence of the list.
func ops(l *tac.List) []tac.Op {
	res := make([]tac.Op, 0, l.Len())
	for i1 := range l.Instrs {
		res = append(res, l.Instrs[i1].Op)
	}
	return res
}

// TestGenerateMethod verifies method framing: Method, Params in declaration
// order, body, and Extern for body-less declarations.
func TestGenerateMethod(t *testing.T) {
	l := generate(t, `
extern method put(x: integer);
method add(a: integer, b: integer): integer { return a + b; }
`)
	want := []tac.Op{
		tac.Extern,
		tac.Method, tac.Param, tac.Param,
		tac.Load, tac.Load, tac.Add, tac.Return,
	}
	got := ops(l)
	if len(got) != len(want) {
		t.Fatalf("expected %d instructions, got %d:\n%s", len(want), len(got), l.String())
	}
	for i1 := range want {
		if got[i1] != want[i1] {
			t.Fatalf("instruction %d: expected %s, got %s:\n%s", i1, want[i1], got[i1], l.String())
		}
	}
	if name := l.Instrs[1].Result.Name; name != "add" {
		t.Errorf("expected method name add, got %q", name)
	}
	if name := l.Instrs[2].Result.Name; name != "a" {
		t.Errorf("expected first parameter a, got %q", name)
	}
	// The addition's result temporary feeds the return.
	if l.Instrs[6].Result.Name != l.Instrs[7].Arg1.Name {
		t.Error("expected return to consume the addition's temporary")
	}
}

// TestGenerateIfElse verifies the branch shape of an if with else: IfFalse
// to the else label, Goto past it, and both labels defined once.
func TestGenerateIfElse(t *testing.T) {
	l := generate(t, `
method f(x: integer): integer {
    if x < 0 { return 0; } else { return x; }
}
`)
	var ifFalse, gotos, labels int
	var elseLabel, endLabel string
	for i1 := range l.Instrs {
		switch l.Instrs[i1].Op {
		case tac.IfFalse:
			ifFalse++
			elseLabel = l.Instrs[i1].Result.Name
		case tac.Goto:
			gotos++
			endLabel = l.Instrs[i1].Result.Name
		case tac.Label:
			labels++
		}
	}
	if ifFalse != 1 || gotos != 1 || labels != 2 {
		t.Fatalf("expected 1 IfFalse, 1 Goto, 2 Labels:\n%s", l.String())
	}
	if elseLabel == endLabel {
		t.Errorf("else and end labels must differ, both %q", elseLabel)
	}
}

// TestGenerateWhile verifies the loop shape: head label, IfFalse to the end
// label, Goto back to the head.
func TestGenerateWhile(t *testing.T) {
	l := generate(t, `
method f(n: integer): integer {
    var i: integer := 0;
    while i < n { i := i + 1; }
    return i;
}
`)
	var head, end string
	for i1 := range l.Instrs {
		ins := &l.Instrs[i1]
		switch ins.Op {
		case tac.IfFalse:
			end = ins.Result.Name
		case tac.Goto:
			head = ins.Result.Name
		}
	}
	if head == "" || end == "" || head == end {
		t.Fatalf("malformed loop labels %q and %q:\n%s", head, end, l.String())
	}
	// The head label must be defined before the Goto that jumps back to it.
	headDef, gotoIdx := -1, -1
	for i1 := range l.Instrs {
		switch {
		case l.Instrs[i1].Op == tac.Label && l.Instrs[i1].Result != nil && l.Instrs[i1].Result.Name == head:
			headDef = i1
		case l.Instrs[i1].Op == tac.Goto:
			gotoIdx = i1
		}
	}
	if headDef < 0 || gotoIdx < 0 || headDef > gotoIdx {
		t.Errorf("expected the loop head label to be defined before the back jump:\n%s", l.String())
	}
}

// TestGenerateCall verifies argument staging: one CallParam per argument in
// left to right order, each right after the lowering of its argument, the
// last one directly followed by the Call.
func TestGenerateCall(t *testing.T) {
	l := generate(t, `
method f(a: integer, b: integer): integer { return a; }
method main(): integer { return f(1, 2); }
`)
	for i1 := range l.Instrs {
		if l.Instrs[i1].Op != tac.Call || l.Instrs[i1].Arg1.Name != "f" {
			continue
		}
		if l.Instrs[i1].Result == nil {
			t.Fatal("expected call in expression position to carry a result")
		}
		// LOAD 1, LOAD_PARAM, LOAD 2, LOAD_PARAM, CALL.
		if l.Instrs[i1-1].Op != tac.CallParam || l.Instrs[i1-3].Op != tac.CallParam {
			t.Fatalf("expected two staged arguments before the call:\n%s", l.String())
		}
		return
	}
	t.Fatalf("no call to f generated:\n%s", l.String())
}

// TestGenerateDiscardedCall verifies that a call statement carries no result
// operand.
func TestGenerateDiscardedCall(t *testing.T) {
	l := generate(t, `
method f(): integer { return 1; }
method main() { f(); }
`)
	calls := 0
	for i1 := range l.Instrs {
		if l.Instrs[i1].Op == tac.Call {
			calls++
			if l.Instrs[i1].Result != nil {
				t.Error("expected discarded call to have no result operand")
			}
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

// TestGenerateUnary verifies the UMinus and Not encodings.
func TestGenerateUnary(t *testing.T) {
	l := generate(t, `
method main(): integer {
    var p: bool := !false;
    return -3;
}
`)
	var uminus, not bool
	for i1 := range l.Instrs {
		switch l.Instrs[i1].Op {
		case tac.UMinus:
			uminus = true
		case tac.Not:
			not = true
		case tac.Sub:
			t.Errorf("expected unary minus to lower as UMinus, found Sub:\n%s", l.String())
		}
	}
	if !uminus || !not {
		t.Fatalf("expected UMinus and Not instructions:\n%s", l.String())
	}
}

// TestGenerateTempsUnique verifies that every temporary is defined exactly
// once across the whole program.
func TestGenerateTempsUnique(t *testing.T) {
	l := generate(t, `
method f(x: integer): integer { return x * x + 2; }
method main(): integer { return f(3) + f(4); }
`)
	defs := make(map[string]int)
	for i1 := range l.Instrs {
		if l.Instrs[i1].Result.IsTemp() {
			defs[l.Instrs[i1].Result.Name]++
		}
	}
	for name, n := range defs {
		if n != 1 {
			t.Errorf("temporary %s defined %d times", name, n)
		}
	}
}
