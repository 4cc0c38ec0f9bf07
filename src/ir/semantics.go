// semantics.go implements the semantic analyzer. The analyzer verifies
// declaration and type rules over the syntax tree and accumulates every
// error it finds before failing the compilation, so a single run reports
// all problems of a source file.

package ir

import (
	"fmt"

	"slc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// analyzer holds the error buffer and the return type of the method body
// currently being checked.
type analyzer struct {
	errs    *util.ErrorList // Accumulated semantic errors.
	retType string          // Return type of the enclosing method.
}

// -------------------
// ----- Globals -----
// -------------------

// lastErrors holds the error buffer of the most recent GenerateSymTab or
// Analyze run, for callers that need the individual diagnostics after a
// phase reported a summary error.
var lastErrors *util.ErrorList

// Errors returns the individual errors reported by the most recent
// GenerateSymTab or Analyze run.
func Errors() []error {
	if lastErrors == nil {
		return nil
	}
	return lastErrors.Errors()
}

// ---------------------
// ----- functions -----
// ---------------------

// Analyze verifies the syntax tree rooted at root against the scope tree
// built by GenerateSymTab. All errors are reported to stderr; the returned
// error is non-nil if any were found.
func Analyze(opt util.Options, root *Node) error {
	if root == nil || root.Typ != PROGRAM {
		return fmt.Errorf("expected node type %s, got %s", nt[PROGRAM], root.String())
	}

	a := analyzer{errs: util.NewErrorList(8)}
	for _, e1 := range root.Children {
		if e1.Typ != METHOD || len(e1.Children) < 4 {
			// Extern declarations have no body to check.
			continue
		}
		name := e1.Children[0].Name()
		scope := GetFunctionScope(name)
		if scope == nil {
			a.errorf(e1.Line, "no scope recorded for method %q", name)
			continue
		}

		// Open the method scope so that lookups see parameters and locals,
		// and track the return type for checking return statements.
		prev := a.retType
		a.retType = e1.Children[1].Name()
		SetCurrentScope(scope)
		a.statements(e1.Children[3])
		SetCurrentScope(Global)
		a.retType = prev
	}
	a.verifyMain()

	lastErrors = a.errs
	if a.errs.Len() > 0 {
		for _, e1 := range a.errs.Errors() {
			util.ErrorLine(e1)
		}
		return fmt.Errorf("%d semantic error(s)", a.errs.Len())
	}
	util.Banner(opt, "semantic analysis passed")
	return nil
}

// errorf records a semantic error on the given source line.
func (a *analyzer) errorf(line int, format string, args ...interface{}) {
	a.errs.Append(fmt.Errorf("%s, line %d", fmt.Sprintf(format, args...), line))
}

// statements checks every statement of the statement list n.
func (a *analyzer) statements(n *Node) {
	for _, e1 := range n.Children {
		a.statement(e1)
	}
}

// statement checks a single statement node.
func (a *analyzer) statement(n *Node) {
	switch n.Typ {
	case DECLARATION:
		name := n.Children[0].Name()
		declared := n.Children[1].Name()
		got := a.expression(n.Children[2])
		if got != TypeError && got != declared {
			a.errorf(n.Line, "cannot initialise variable %q of type %s with %s", name, declared, got)
		}
	case ASSIGNMENT_STATEMENT:
		name := n.Children[0].Name()
		sym, ok := Lookup(name)
		if !ok {
			a.errorf(n.Line, "variable %q not declared", name)
			a.expression(n.Children[1])
			return
		}
		got := a.expression(n.Children[1])
		if got != TypeError && got != sym.Type {
			a.errorf(n.Line, "cannot assign %s to variable %q of type %s", got, name, sym.Type)
		}
	case IF_STATEMENT:
		if t := a.expression(n.Children[0]); t != TypeError && t != TypeBool {
			a.errorf(n.Line, "if condition must be %s, got %s", TypeBool, t)
		}
		a.statements(n.Children[1])
		if len(n.Children) > 2 {
			a.statements(n.Children[2])
		}
	case WHILE_STATEMENT:
		if t := a.expression(n.Children[0]); t != TypeError && t != TypeBool {
			a.errorf(n.Line, "while condition must be %s, got %s", TypeBool, t)
		}
		a.statements(n.Children[1])
	case RETURN_STATEMENT:
		a.returnStatement(n)
	case METHOD_CALL:
		// Call statement; a discarded return value is fine.
		a.expression(n)
	default:
		a.errorf(n.Line, "unexpected node type %s in statement position", n.Type())
	}
}

// returnStatement checks a return statement against the enclosing method's
// return type.
func (a *analyzer) returnStatement(n *Node) {
	if len(n.Children) == 0 {
		if a.retType != TypeVoid {
			a.errorf(n.Line, "method with return type %s must return a value", a.retType)
		}
		return
	}
	got := a.expression(n.Children[0])
	if a.retType == TypeVoid {
		a.errorf(n.Line, "cannot return a value from a void method")
		return
	}
	if got != TypeError && got != a.retType {
		a.errorf(n.Line, "return type mismatch: expected %s, got %s", a.retType, got)
	}
}

// expression checks an expression node and returns its resulting type.
// TypeError is returned when the expression is ill typed; the error has
// already been recorded, so callers do not report follow-up errors for it.
func (a *analyzer) expression(n *Node) string {
	switch n.Typ {
	case INTEGER_DATA:
		return TypeInteger
	case BOOL_DATA:
		return TypeBool
	case IDENTIFIER_DATA:
		sym, ok := Lookup(n.Name())
		if !ok {
			a.errorf(n.Line, "identifier %q not declared", n.Name())
			return TypeError
		}
		return sym.Type
	case EXPRESSION:
		return a.operator(n)
	case METHOD_CALL:
		return a.methodCall(n)
	default:
		a.errorf(n.Line, "unexpected node type %s in expression position", n.Type())
		return TypeError
	}
}

// operator checks a unary or binary operator expression.
func (a *analyzer) operator(n *Node) string {
	op := n.Name()
	if op == "!" {
		t := a.expression(n.Children[0])
		if t != TypeError && t != TypeBool {
			a.errorf(n.Line, "operator %q requires a %s operand, got %s", op, TypeBool, t)
			return TypeError
		}
		return TypeBool
	}

	lt := a.expression(n.Children[0])
	rt := a.expression(n.Children[1])
	if lt == TypeError || rt == TypeError {
		// The operand error is already recorded.
		return TypeError
	}

	switch op {
	case "+", "-", "*", "/", "%":
		if lt != TypeInteger || rt != TypeInteger {
			a.errorf(n.Line, "operator %q requires %s operands, got %s and %s", op, TypeInteger, lt, rt)
			return TypeError
		}
		return TypeInteger
	case "<", "<=", ">", ">=":
		if lt != TypeInteger || rt != TypeInteger {
			a.errorf(n.Line, "operator %q requires %s operands, got %s and %s", op, TypeInteger, lt, rt)
			return TypeError
		}
		return TypeBool
	case "==", "!=":
		if lt != rt {
			a.errorf(n.Line, "operator %q requires matching operand types, got %s and %s", op, lt, rt)
			return TypeError
		}
		return TypeBool
	case "&&", "||":
		if lt != TypeBool || rt != TypeBool {
			a.errorf(n.Line, "operator %q requires %s operands, got %s and %s", op, TypeBool, lt, rt)
			return TypeError
		}
		return TypeBool
	default:
		a.errorf(n.Line, "operator %q not defined", op)
		return TypeError
	}
}

// methodCall checks the callee, the argument count and every argument type
// of a method call and returns the callee's return type.
func (a *analyzer) methodCall(n *Node) string {
	name := n.Children[0].Name()
	args := n.Children[1].Children

	sym, ok := Lookup(name)
	if !ok {
		a.errorf(n.Line, "method %q not declared", name)
		for _, e1 := range args {
			a.expression(e1)
		}
		return TypeError
	}
	ret, isFunc := ReturnTypeOf(sym.Type)
	if !isFunc {
		a.errorf(n.Line, "%q is not a method", name)
		return TypeError
	}

	scope := GetFunctionScope(name)
	if scope == nil {
		a.errorf(n.Line, "no scope recorded for method %q", name)
		return ret
	}
	params := scope.Params()
	if len(args) != len(params) {
		a.errorf(n.Line, "method %q expects %d argument(s), got %d", name, len(params), len(args))
	}
	for i1, e1 := range args {
		t := a.expression(e1)
		if i1 >= len(params) {
			continue
		}
		if t != TypeError && t != params[i1].Type {
			a.errorf(e1.Line, "argument %d of call to %q must be %s, got %s", i1+1, name, params[i1].Type, t)
		}
	}
	return ret
}

// verifyMain checks that the program declares a well formed main method:
// present, callable, no parameters and returning void or integer.
func (a *analyzer) verifyMain() {
	sym, ok := Global.Get("main")
	if !ok {
		a.errs.Append(fmt.Errorf("program must contain a method main"))
		return
	}
	ret, isFunc := ReturnTypeOf(sym.Type)
	if !isFunc {
		a.errs.Append(fmt.Errorf("main must be a method"))
		return
	}
	if ret != TypeVoid && ret != TypeInteger {
		a.errs.Append(fmt.Errorf("main must return %s or %s, got %s", TypeVoid, TypeInteger, ret))
	}
	scope := GetFunctionScope("main")
	if scope == nil {
		a.errs.Append(fmt.Errorf("no scope recorded for method main"))
		return
	}
	if len(scope.Params()) > 0 {
		a.errs.Append(fmt.Errorf("method main must not take parameters"))
	}
}
