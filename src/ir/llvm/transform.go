// Package llvm transforms the syntax tree into LLVM IR for the system
// installed LLVM runtime. It is the alternative backend behind the -ll flag
// and bypasses the three-address code pipeline entirely.
package llvm

import (
	"errors"
	"fmt"
	"path/filepath"
)

import (
	"tinygo.org/x/go-llvm"
)

import (
	ast "slc/src/ir"
	"slc/src/util"
)

// ---------------------
// ----- Constants -----
// ---------------------

// -------------------
// ----- globals -----
// -------------------

var i64 = llvm.GlobalContext().Int64Type() // i64 carries SrcLang integers.
var i1 = llvm.GlobalContext().Int1Type()   // i1 carries SrcLang booleans.

// icmpPredicates maps the comparison operators onto integer predicates.
var icmpPredicates = map[string]llvm.IntPredicate{
	"==": llvm.IntEQ,
	"!=": llvm.IntNE,
	"<":  llvm.IntSLT,
	"<=": llvm.IntSLE,
	">":  llvm.IntSGT,
	">=": llvm.IntSGE,
}

// ---------------------
// ----- functions -----
// ---------------------

// GenLLVM generates LLVM IR from the root ast.Node of the syntax tree and
// writes its textual form to the output file of opt.
func GenLLVM(opt util.Options, root *ast.Node) error {
	if root == nil || root.Typ != ast.PROGRAM {
		return errors.New("syntax tree root is not a program")
	}

	ctx := llvm.NewContext()
	defer ctx.Dispose()

	// Builder constructs LLVM IR instructions on basic block level.
	b := ctx.NewBuilder()
	defer b.Dispose()

	// Set module name equal to the file name of the source.
	m := ctx.NewModule(filepath.Base(opt.Src))
	defer m.Dispose()

	// Declare every method header first, so calls resolve regardless of
	// definition order. Extern declarations stay body-less.
	for _, e1 := range root.Children {
		if _, err := genFuncHeader(m, e1); err != nil {
			return err
		}
	}
	for _, e1 := range root.Children {
		if len(e1.Children) < 4 {
			continue
		}
		fun := m.NamedFunction(e1.Children[0].Name())
		if err := genFuncBody(b, m, fun, e1); err != nil {
			return err
		}
	}

	w := util.Writer{}
	w.WriteString(m.String())
	if err := w.Save(opt.Out); err != nil {
		return fmt.Errorf("could not write LLVM IR: %s", err)
	}
	util.Banner(opt, "LLVM IR written to %s", opt.Out)
	return nil
}

// genType translates a SrcLang type name into an LLVM type.
func genType(name string) (llvm.Type, error) {
	switch name {
	case ast.TypeInteger:
		return i64, nil
	case ast.TypeBool:
		return i1, nil
	case ast.TypeVoid:
		return llvm.GlobalContext().VoidType(), nil
	default:
		return llvm.Type{}, fmt.Errorf("unknown type %q", name)
	}
}

// genFuncHeader declares the LLVM function for the method node n.
func genFuncHeader(m llvm.Module, n *ast.Node) (llvm.Value, error) {
	if n.Typ != ast.METHOD {
		return llvm.Value{}, fmt.Errorf("expected node type METHOD, got %s", n.String())
	}
	name := n.Children[0].Name()
	ret, err := genType(n.Children[1].Name())
	if err != nil {
		return llvm.Value{}, err
	}

	params := n.Children[2].Children
	atyp := make([]llvm.Type, 0, len(params))
	for _, e1 := range params {
		t, err := genType(e1.Children[0].Name())
		if err != nil {
			return llvm.Value{}, err
		}
		atyp = append(atyp, t)
	}

	if f := m.NamedFunction(name); !f.IsNil() {
		return llvm.Value{}, fmt.Errorf("duplicate declaration, method %q already declared", name)
	}
	fun := llvm.AddFunction(m, name, llvm.FunctionType(ret, atyp, false))
	for i1, e1 := range params {
		fun.Param(i1).SetName(e1.Name())
	}
	return fun, nil
}

// genFuncBody generates the body of the method node n. Parameters and
// locals live in stack allocations; names resolve through a per-function
// symbol map.
func genFuncBody(b llvm.Builder, m llvm.Module, fun llvm.Value, n *ast.Node) error {
	bb := llvm.AddBasicBlock(fun, "entry")
	b.SetInsertPointAtEnd(bb)

	locals := make(map[string]llvm.Value, 16)
	for i1, e1 := range fun.Params() {
		alloc := b.CreateAlloca(e1.Type(), "")
		b.CreateStore(e1, alloc)
		locals[n.Children[2].Children[i1].Name()] = alloc
	}

	returned, err := genStatements(b, m, fun, n.Children[3], locals)
	if err != nil {
		return err
	}
	if !returned {
		// Fallthrough path of a method without trailing return.
		if n.Children[1].Name() == ast.TypeVoid {
			b.CreateRetVoid()
		} else {
			b.CreateRet(llvm.ConstInt(i64, 0, true))
		}
	}
	return nil
}

// genStatements generates every statement of a statement list and reports
// whether the list ended in a return statement. Statements following a
// return are unreachable and not generated.
func genStatements(b llvm.Builder, m llvm.Module, fun llvm.Value, n *ast.Node, locals map[string]llvm.Value) (bool, error) {
	for _, e1 := range n.Children {
		switch e1.Typ {
		case ast.DECLARATION:
			typ, err := genType(e1.Children[1].Name())
			if err != nil {
				return false, err
			}
			val, err := genExpression(b, m, e1.Children[2], locals)
			if err != nil {
				return false, err
			}
			alloc := b.CreateAlloca(typ, e1.Children[0].Name())
			b.CreateStore(val, alloc)
			locals[e1.Children[0].Name()] = alloc
		case ast.ASSIGNMENT_STATEMENT:
			val, err := genExpression(b, m, e1.Children[1], locals)
			if err != nil {
				return false, err
			}
			dst, ok := locals[e1.Children[0].Name()]
			if !ok {
				return false, fmt.Errorf("identifier %q not declared, line %d", e1.Children[0].Name(), e1.Line)
			}
			b.CreateStore(val, dst)
		case ast.RETURN_STATEMENT:
			if len(e1.Children) == 0 {
				b.CreateRetVoid()
			} else {
				val, err := genExpression(b, m, e1.Children[0], locals)
				if err != nil {
					return false, err
				}
				b.CreateRet(val)
			}
			return true, nil
		case ast.IF_STATEMENT:
			if err := genIf(b, m, fun, e1, locals); err != nil {
				return false, err
			}
		case ast.WHILE_STATEMENT:
			if err := genWhile(b, m, fun, e1, locals); err != nil {
				return false, err
			}
		case ast.METHOD_CALL:
			if _, err := genExpression(b, m, e1, locals); err != nil {
				return false, err
			}
		default:
			return false, fmt.Errorf("unexpected node type %s in statement position, line %d", e1.Type(), e1.Line)
		}
	}
	return false, nil
}

// genIf generates a conditional with an optional else branch.
func genIf(b llvm.Builder, m llvm.Module, fun llvm.Value, n *ast.Node, locals map[string]llvm.Value) error {
	cond, err := genExpression(b, m, n.Children[0], locals)
	if err != nil {
		return err
	}

	thn := llvm.AddBasicBlock(fun, "")
	conv := llvm.AddBasicBlock(fun, "")

	if len(n.Children) == 2 {
		// IF-THEN.
		b.CreateCondBr(cond, thn, conv)
		b.SetInsertPointAtEnd(thn)
		ret, err := genStatements(b, m, fun, n.Children[1], locals)
		if err != nil {
			return err
		}
		if !ret {
			b.CreateBr(conv)
		}
	} else {
		// IF-THEN-ELSE.
		els := llvm.AddBasicBlock(fun, "")
		b.CreateCondBr(cond, thn, els)

		b.SetInsertPointAtEnd(thn)
		retA, err := genStatements(b, m, fun, n.Children[1], locals)
		if err != nil {
			return err
		}
		if !retA {
			b.CreateBr(conv)
		}

		b.SetInsertPointAtEnd(els)
		retB, err := genStatements(b, m, fun, n.Children[2], locals)
		if err != nil {
			return err
		}
		if !retB {
			b.CreateBr(conv)
		}
	}
	b.SetInsertPointAtEnd(conv)
	return nil
}

// genWhile generates a loop: head evaluates the condition, body jumps back
// to head, and the loop converges after the head fails.
func genWhile(b llvm.Builder, m llvm.Module, fun llvm.Value, n *ast.Node, locals map[string]llvm.Value) error {
	head := llvm.AddBasicBlock(fun, "")
	body := llvm.AddBasicBlock(fun, "")
	conv := llvm.AddBasicBlock(fun, "")

	b.CreateBr(head)
	b.SetInsertPointAtEnd(head)
	cond, err := genExpression(b, m, n.Children[0], locals)
	if err != nil {
		return err
	}
	b.CreateCondBr(cond, body, conv)

	b.SetInsertPointAtEnd(body)
	ret, err := genStatements(b, m, fun, n.Children[1], locals)
	if err != nil {
		return err
	}
	if !ret {
		// Jump back to loop head.
		b.CreateBr(head)
	}

	b.SetInsertPointAtEnd(conv)
	return nil
}

// genExpression generates an expression and returns its value.
func genExpression(b llvm.Builder, m llvm.Module, n *ast.Node, locals map[string]llvm.Value) (llvm.Value, error) {
	switch n.Typ {
	case ast.INTEGER_DATA:
		return llvm.ConstInt(i64, uint64(n.Data.(int)), true), nil
	case ast.BOOL_DATA:
		v := uint64(0)
		if n.Data.(bool) {
			v = 1
		}
		return llvm.ConstInt(i1, v, false), nil
	case ast.IDENTIFIER_DATA:
		src, ok := locals[n.Name()]
		if !ok {
			return llvm.Value{}, fmt.Errorf("identifier %q not declared, line %d", n.Name(), n.Line)
		}
		return b.CreateLoad(src.AllocatedType(), src, ""), nil
	case ast.METHOD_CALL:
		return genCall(b, m, n, locals)
	case ast.EXPRESSION:
		return genOperator(b, m, n, locals)
	default:
		return llvm.Value{}, fmt.Errorf("unexpected node type %s in expression position, line %d", n.Type(), n.Line)
	}
}

// genCall generates a call to a declared method.
func genCall(b llvm.Builder, m llvm.Module, n *ast.Node, locals map[string]llvm.Value) (llvm.Value, error) {
	name := n.Children[0].Name()
	target := m.NamedFunction(name)
	if target.IsNil() {
		return llvm.Value{}, fmt.Errorf("method %q not declared, line %d", name, n.Line)
	}
	args := make([]llvm.Value, 0, len(n.Children[1].Children))
	for _, e1 := range n.Children[1].Children {
		v, err := genExpression(b, m, e1, locals)
		if err != nil {
			return llvm.Value{}, err
		}
		args = append(args, v)
	}
	return b.CreateCall(target.GlobalValueType(), target, args, ""), nil
}

// genOperator generates a unary or binary operator expression.
func genOperator(b llvm.Builder, m llvm.Module, n *ast.Node, locals map[string]llvm.Value) (llvm.Value, error) {
	op := n.Name()
	if op == "!" {
		x, err := genExpression(b, m, n.Children[0], locals)
		if err != nil {
			return llvm.Value{}, err
		}
		return b.CreateXor(x, llvm.ConstInt(i1, 1, false), ""), nil
	}

	op1, err := genExpression(b, m, n.Children[0], locals)
	if err != nil {
		return llvm.Value{}, err
	}
	op2, err := genExpression(b, m, n.Children[1], locals)
	if err != nil {
		return llvm.Value{}, err
	}

	switch op {
	case "+":
		return b.CreateAdd(op1, op2, ""), nil
	case "-":
		return b.CreateSub(op1, op2, ""), nil
	case "*":
		return b.CreateMul(op1, op2, ""), nil
	case "/":
		return b.CreateSDiv(op1, op2, ""), nil
	case "%":
		return b.CreateSRem(op1, op2, ""), nil
	case "&&":
		return b.CreateAnd(op1, op2, ""), nil
	case "||":
		return b.CreateOr(op1, op2, ""), nil
	}
	if pred, ok := icmpPredicates[op]; ok {
		return b.CreateICmp(pred, op1, op2, ""), nil
	}
	return llvm.Value{}, fmt.Errorf("operator %q not defined, line %d", op, n.Line)
}
