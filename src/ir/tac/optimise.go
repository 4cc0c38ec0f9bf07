// optimise.go rewrites the instruction list in place. Passes are applied in
// a fixed order: constant folding first exposes constants, propagation turns
// temporary reads into constants so the peephole identities fire, and
// dead-code elimination sweeps up the loads and arithmetic left behind.
// Removed instructions are NOP-ed into result-less labels, which keeps list
// indices stable and costs nothing at emission time.

package tac

import (
	"fmt"

	"slc/src/util"
)

// ---------------------
// ----- functions -----
// ---------------------

// Optimise applies all optimisation passes to the list and returns the total
// number of rewrites. The rewrite passes are repeated in order until no pass
// changes the list: propagation exposes constants that folding could not see
// on the previous round. Dead-code elimination runs once at the end, when no
// further rewrites can orphan instructions. A second run on an already
// optimised list returns 0.
func Optimise(opt util.Options, l *List) int {
	n := 0
	passes := []struct {
		name string
		run  func(*List) int
	}{
		{"constant folding", constantFolding},
		{"constant propagation", constantPropagation},
		{"peephole", peephole},
		{"algebraic simplification", algebraicSimplification},
	}
	for changed := true; changed; {
		changed = false
		for _, e1 := range passes {
			c := e1.run(l)
			if opt.Verbose && c > 0 {
				fmt.Printf("%s: %d rewrite(s)\n", e1.name, c)
			}
			if c > 0 {
				changed = true
				n += c
			}
		}
	}

	c := deadCodeElimination(l)
	if opt.Verbose && c > 0 {
		fmt.Printf("dead-code elimination: %d instruction(s) removed\n", c)
	}
	return n + c
}

// constantFolding rewrites every binary operation on two constants into a
// load of the computed constant. Division and modulo by zero are never
// folded: the behaviour is left to the emitted code at runtime.
func constantFolding(l *List) int {
	n := 0
	for i1 := range l.Instrs {
		ins := &l.Instrs[i1]
		if !ins.Op.IsBinary() || !ins.Arg1.IsConst() || !ins.Arg2.IsConst() {
			continue
		}
		v1 := ins.Arg1.Value
		v2 := ins.Arg2.Value
		var v int
		switch ins.Op {
		case Add:
			v = v1 + v2
		case Sub:
			v = v1 - v2
		case Mul:
			v = v1 * v2
		case Div:
			if v2 == 0 {
				continue
			}
			v = v1 / v2
		case Mod:
			if v2 == 0 {
				continue
			}
			v = v1 % v2
		case Eq:
			v = btoi(v1 == v2)
		case Neq:
			v = btoi(v1 != v2)
		case Lt:
			v = btoi(v1 < v2)
		case Le:
			v = btoi(v1 <= v2)
		case Gt:
			v = btoi(v1 > v2)
		case Ge:
			v = btoi(v1 >= v2)
		case And:
			v = btoi(v1 != 0 && v2 != 0)
		case Or:
			v = btoi(v1 != 0 || v2 != 0)
		}
		ins.Op = Load
		ins.Arg1 = NewConst(v, false)
		ins.Arg2 = nil
		n++
	}
	return n
}

// constantPropagation tracks which temporaries hold a known constant while
// scanning linearly and substitutes the constant at every later use. An
// entry is invalidated when its temporary is redefined by anything other
// than another constant load.
func constantPropagation(l *List) int {
	n := 0
	consts := make(map[int]int)
	for i1 := range l.Instrs {
		ins := &l.Instrs[i1]

		// Substitute known temporaries in operand positions.
		if ins.Arg1.IsTemp() {
			if v, ok := consts[ins.Arg1.ID]; ok {
				ins.Arg1 = NewConst(v, false)
				n++
			}
		}
		if ins.Arg2.IsTemp() {
			if v, ok := consts[ins.Arg2.ID]; ok {
				ins.Arg2 = NewConst(v, false)
				n++
			}
		}

		// Record or invalidate the defined temporary.
		if ins.Result.IsTemp() {
			if ins.Op == Load && ins.Arg1.IsConst() {
				consts[ins.Result.ID] = ins.Arg1.Value
			} else {
				delete(consts, ins.Result.ID)
			}
		}
	}
	return n
}

// peephole applies the single instruction strength reductions with one
// constant operand: x+0, x-0, x*1 copy through, x*0 collapses to 0 and 0-x
// becomes a unary minus.
func peephole(l *List) int {
	n := 0
	for i1 := range l.Instrs {
		ins := &l.Instrs[i1]
		switch {
		case ins.Op == Add && ins.Arg2.IsConst() && ins.Arg2.Value == 0,
			ins.Op == Sub && ins.Arg2.IsConst() && ins.Arg2.Value == 0,
			ins.Op == Mul && ins.Arg2.IsConst() && ins.Arg2.Value == 1:
			ins.Op = Load
			ins.Arg2 = nil
			n++
		case ins.Op == Mul && ins.Arg2.IsConst() && ins.Arg2.Value == 0:
			ins.Op = Load
			ins.Arg1 = NewConst(0, false)
			ins.Arg2 = nil
			n++
		case ins.Op == Sub && ins.Arg1.IsConst() && ins.Arg1.Value == 0:
			ins.Op = UMinus
			ins.Arg1 = ins.Arg2
			ins.Arg2 = nil
			n++
		}
	}
	return n
}

// algebraicSimplification rewrites x-x to 0 and x/x to 1 when both operands
// name the same variable or temporary. Constant operands are left to the
// folding pass, which knows not to fold a division by zero.
func algebraicSimplification(l *List) int {
	n := 0
	for i1 := range l.Instrs {
		ins := &l.Instrs[i1]
		if ins.Arg1 == nil || ins.Arg2 == nil || ins.Arg1.IsConst() || ins.Arg1.Name != ins.Arg2.Name {
			continue
		}
		switch ins.Op {
		case Sub:
			ins.Op = Load
			ins.Arg1 = NewConst(0, false)
			ins.Arg2 = nil
			n++
		case Div:
			ins.Op = Load
			ins.Arg1 = NewConst(1, false)
			ins.Arg2 = nil
			n++
		}
	}
	return n
}

// deadCodeElimination marks the instructions with observable effects live,
// then iteratively marks the defining instruction of every temporary used by
// a live instruction, searching backward for the nearest definition. When
// the fixed point is reached the remaining pure instructions are NOP-ed.
func deadCodeElimination(l *List) int {
	used := make([]bool, len(l.Instrs))
	for i1 := range l.Instrs {
		switch l.Instrs[i1].Op {
		case Store, Return, Call, Label, Goto, IfFalse, IfTrue, Method, Extern, Param, CallParam:
			used[i1] = true
		}
	}

	// Propagate use backwards until nothing changes.
	for changed := true; changed; {
		changed = false
		for i1 := len(l.Instrs) - 1; i1 >= 0; i1-- {
			if !used[i1] {
				continue
			}
			for _, e1 := range []*Symbol{l.Instrs[i1].Arg1, l.Instrs[i1].Arg2} {
				if !e1.IsTemp() {
					continue
				}
				for i2 := i1 - 1; i2 >= 0; i2-- {
					if l.Instrs[i2].Result != nil && l.Instrs[i2].Result.Name == e1.Name {
						if !used[i2] {
							used[i2] = true
							changed = true
						}
						break
					}
				}
			}
		}
	}

	// Sweep: NOP the unused pure instructions.
	n := 0
	for i1 := range l.Instrs {
		if used[i1] {
			continue
		}
		ins := &l.Instrs[i1]
		if !ins.Result.IsTemp() {
			continue
		}
		if ins.Op.IsBinary() || ins.Op == Not || ins.Op == UMinus || ins.Op == Load {
			ins.Nop()
			n++
		}
	}
	return n
}

// btoi converts a bool to its 0/1 instruction operand value.
func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
