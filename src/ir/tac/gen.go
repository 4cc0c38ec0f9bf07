// gen.go lowers the syntax tree into the flat three-address instruction
// list. The lowering is a single recursive pass: expressions return the
// temporary holding their value, statements return nothing. Every identifier
// use re-loads the variable; the optimiser cleans up the redundancy.

package tac

import (
	"fmt"

	"slc/src/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// generator mints temporaries and labels from monotonic counters while
// lowering one program.
type generator struct {
	list   *List
	temps  int
	labels int
}

// -------------------
// ----- Globals -----
// -------------------

// binOps maps source operators to instruction operators.
var binOps = map[string]Op{
	"+":  Add,
	"-":  Sub,
	"*":  Mul,
	"/":  Div,
	"%":  Mod,
	"==": Eq,
	"!=": Neq,
	"<":  Lt,
	"<=": Le,
	">":  Gt,
	">=": Ge,
	"&&": And,
	"||": Or,
}

// ---------------------
// ----- functions -----
// ---------------------

// Generate lowers the syntax tree rooted at root into a new instruction list.
func Generate(root *ir.Node) (*List, error) {
	if root == nil || root.Typ != ir.PROGRAM {
		return nil, fmt.Errorf("expected node type PROGRAM, got %s", root.String())
	}
	g := generator{list: &List{Instrs: make([]Instr, 0, 64)}}
	for _, e1 := range root.Children {
		if err := g.method(e1); err != nil {
			return nil, err
		}
	}
	return g.list, nil
}

// newTemp mints a fresh temporary.
func (g *generator) newTemp() *Symbol {
	t := NewTemp(g.temps)
	g.temps++
	return t
}

// newLabel mints a fresh label.
func (g *generator) newLabel() *Symbol {
	l := NewLabel(g.labels)
	g.labels++
	return l
}

// method lowers a method definition or extern declaration.
func (g *generator) method(n *ir.Node) error {
	if n.Typ != ir.METHOD {
		return fmt.Errorf("expected node type METHOD, got %s", n.String())
	}
	name := n.Children[0].Name()

	if len(n.Children) < 4 {
		// Extern declaration: the linker resolves the body.
		g.list.Emit(Extern, nil, nil, NewFunc(name))
		return nil
	}

	g.list.Emit(Method, nil, nil, NewFunc(name))
	for _, e1 := range n.Children[2].Children {
		g.list.Emit(Param, nil, nil, NewVar(e1.Name()))
	}
	return g.statements(n.Children[3])
}

// statements lowers every statement of a statement list.
func (g *generator) statements(n *ir.Node) error {
	for _, e1 := range n.Children {
		if err := g.statement(e1); err != nil {
			return err
		}
	}
	return nil
}

// statement lowers a single statement.
func (g *generator) statement(n *ir.Node) error {
	switch n.Typ {
	case ir.DECLARATION:
		// A declaration lowers like an assignment; the emitter allocates the
		// variable's stack slot when it pre-scans the method's stores.
		rhs, err := g.expression(n.Children[2])
		if err != nil {
			return err
		}
		g.list.Emit(Store, rhs, nil, NewVar(n.Children[0].Name()))
	case ir.ASSIGNMENT_STATEMENT:
		rhs, err := g.expression(n.Children[1])
		if err != nil {
			return err
		}
		g.list.Emit(Store, rhs, nil, NewVar(n.Children[0].Name()))
	case ir.RETURN_STATEMENT:
		if len(n.Children) > 0 {
			val, err := g.expression(n.Children[0])
			if err != nil {
				return err
			}
			g.list.Emit(Return, val, nil, nil)
		} else {
			g.list.Emit(Return, nil, nil, nil)
		}
	case ir.IF_STATEMENT:
		return g.ifStatement(n)
	case ir.WHILE_STATEMENT:
		return g.whileStatement(n)
	case ir.METHOD_CALL:
		// Call statement: the return value, if any, is discarded.
		return g.call(n, false)
	default:
		return fmt.Errorf("unexpected node type %s in statement position, line %d", n.Type(), n.Line)
	}
	return nil
}

// ifStatement lowers an if statement with an optional else block.
func (g *generator) ifStatement(n *ir.Node) error {
	cond, err := g.expression(n.Children[0])
	if err != nil {
		return err
	}
	end := g.newLabel()

	if len(n.Children) > 2 {
		els := g.newLabel()
		g.list.Emit(IfFalse, cond, nil, els)
		if err = g.statements(n.Children[1]); err != nil {
			return err
		}
		g.list.Emit(Goto, nil, nil, end)
		g.list.Emit(Label, nil, nil, els)
		if err = g.statements(n.Children[2]); err != nil {
			return err
		}
	} else {
		g.list.Emit(IfFalse, cond, nil, end)
		if err = g.statements(n.Children[1]); err != nil {
			return err
		}
	}
	g.list.Emit(Label, nil, nil, end)
	return nil
}

// whileStatement lowers a while loop.
func (g *generator) whileStatement(n *ir.Node) error {
	start := g.newLabel()
	end := g.newLabel()

	g.list.Emit(Label, nil, nil, start)
	cond, err := g.expression(n.Children[0])
	if err != nil {
		return err
	}
	g.list.Emit(IfFalse, cond, nil, end)
	if err = g.statements(n.Children[1]); err != nil {
		return err
	}
	g.list.Emit(Goto, nil, nil, start)
	g.list.Emit(Label, nil, nil, end)
	return nil
}

// call lowers a method call. Arguments are staged left to right with
// CallParam instructions consumed by the following Call. When wantResult is
// set the call's value is placed in a fresh temporary, otherwise the Call
// carries no result operand.
func (g *generator) call(n *ir.Node, wantResult bool) error {
	for _, e1 := range n.Children[1].Children {
		arg, err := g.expression(e1)
		if err != nil {
			return err
		}
		g.list.Emit(CallParam, arg, nil, nil)
	}
	var res *Symbol
	if wantResult {
		res = g.newTemp()
	}
	g.list.Emit(Call, NewFunc(n.Children[0].Name()), nil, res)
	return nil
}

// expression lowers an expression and returns the temporary holding its value.
func (g *generator) expression(n *ir.Node) (*Symbol, error) {
	switch n.Typ {
	case ir.INTEGER_DATA:
		t := g.newTemp()
		g.list.Emit(Load, NewConst(n.Data.(int), false), nil, t)
		return t, nil
	case ir.BOOL_DATA:
		v := 0
		if n.Data.(bool) {
			v = 1
		}
		t := g.newTemp()
		g.list.Emit(Load, NewConst(v, true), nil, t)
		return t, nil
	case ir.IDENTIFIER_DATA:
		t := g.newTemp()
		g.list.Emit(Load, NewVar(n.Name()), nil, t)
		return t, nil
	case ir.EXPRESSION:
		return g.operator(n)
	case ir.METHOD_CALL:
		if err := g.call(n, true); err != nil {
			return nil, err
		}
		return g.list.Instrs[len(g.list.Instrs)-1].Result, nil
	default:
		return nil, fmt.Errorf("unexpected node type %s in expression position, line %d", n.Type(), n.Line)
	}
}

// operator lowers a unary or binary operator expression.
func (g *generator) operator(n *ir.Node) (*Symbol, error) {
	op := n.Name()

	// Logical not is a one child expression.
	if op == "!" {
		x, err := g.expression(n.Children[0])
		if err != nil {
			return nil, err
		}
		t := g.newTemp()
		g.list.Emit(Not, x, nil, t)
		return t, nil
	}

	// Unary minus is encoded by the parser as the subtraction 0 - x.
	if op == "-" && n.Children[0].Typ == ir.INTEGER_DATA && n.Children[0].Data.(int) == 0 {
		x, err := g.expression(n.Children[1])
		if err != nil {
			return nil, err
		}
		t := g.newTemp()
		g.list.Emit(UMinus, x, nil, t)
		return t, nil
	}

	irOp, ok := binOps[op]
	if !ok {
		return nil, fmt.Errorf("operator %q not defined, line %d", op, n.Line)
	}
	left, err := g.expression(n.Children[0])
	if err != nil {
		return nil, err
	}
	right, err := g.expression(n.Children[1])
	if err != nil {
		return nil, err
	}
	t := g.newTemp()
	g.list.Emit(irOp, left, right, t)
	return t, nil
}
