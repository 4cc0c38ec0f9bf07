package ir

import (
	"fmt"
	"strings"

	"slc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Symbol is a single named entry in a scope. Types are string encoded:
// "integer", "bool", "void" or "function:<ret>" where <ret> is a value type.
type Symbol struct {
	Name       string // Identifier name.
	Type       string // String encoded type.
	ScopeLevel int    // Depth of the declaring scope; the global scope is level 0.
	IsParam    bool   // Set true if the symbol is a formal parameter of a method.
}

// SymTab is a node in the scope tree. The root is the global scope and each
// immediate child of the root belongs to one method.
type SymTab struct {
	Parent       *SymTab   // Enclosing scope, <nil> for the global scope.
	Children     []*SymTab // Nested scopes in order of creation.
	Symbols      []*Symbol // Symbols in declaration order.
	FunctionName string    // Name of the method owning this scope, empty for anonymous scopes.
}

// ---------------------
// ----- Constants -----
// ---------------------

// Value types of the source language.
const (
	TypeInteger = "integer"
	TypeBool    = "bool"
	TypeVoid    = "void"
	TypeError   = "error"
)

// functionPrefix precedes the return type in the encoded type of a callable symbol.
const functionPrefix = "function:"

// -------------------
// ----- Globals -----
// -------------------

// Global is the root of the scope tree for the current compilation.
var Global *SymTab

// current is the currently open scope. Insertions go here.
var current *SymTab

// ---------------------
// ----- functions -----
// ---------------------

// FunctionType returns the encoded type of a callable with return type ret.
func FunctionType(ret string) string {
	return functionPrefix + ret
}

// ReturnTypeOf returns the return type encoded in a function type string.
// The second return value is false if typ does not denote a callable.
func ReturnTypeOf(typ string) (string, bool) {
	if strings.HasPrefix(typ, functionPrefix) {
		return typ[len(functionPrefix):], true
	}
	return TypeError, false
}

// IsFunction returns true if the encoded type typ denotes a callable.
func IsFunction(typ string) bool {
	return strings.HasPrefix(typ, functionPrefix)
}

// InitSymTab initialises an empty scope tree, discarding any previous one.
// The global scope becomes the currently open scope.
func InitSymTab() {
	Global = &SymTab{}
	current = Global
}

// PushScope links a fresh empty scope as a child of the currently open scope
// and makes it current. A non-empty functionName attaches the scope to that
// method so it can be retrieved with GetFunctionScope.
func PushScope(functionName string) *SymTab {
	st := &SymTab{
		Parent:       current,
		FunctionName: functionName,
	}
	current.Children = append(current.Children, st)
	current = st
	return st
}

// PopScope closes the currently open scope and re-opens its parent.
func PopScope() {
	if current == Global {
		return
	}
	current = current.Parent
}

// CurrentScope returns the currently open scope.
func CurrentScope() *SymTab {
	return current
}

// SetCurrentScope re-opens the scope st. The semantic analyzer uses this when
// entering and leaving method bodies.
func SetCurrentScope(st *SymTab) {
	if st == nil {
		st = Global
	}
	current = st
}

// Level returns the depth of scope st, having the global scope at depth 0.
func (st *SymTab) Level() int {
	l := 0
	for s := st; s.Parent != nil; s = s.Parent {
		l++
	}
	return l
}

// Get returns the symbol with the given name from this scope only.
func (st *SymTab) Get(name string) (*Symbol, bool) {
	for _, e1 := range st.Symbols {
		if e1.Name == name {
			return e1, true
		}
	}
	return nil, false
}

// Params returns the formal parameters of scope st in declaration order.
func (st *SymTab) Params() []*Symbol {
	res := make([]*Symbol, 0, len(st.Symbols))
	for _, e1 := range st.Symbols {
		if e1.IsParam {
			res = append(res, e1)
		}
	}
	return res
}

// Insert appends a new symbol to the currently open scope. Inserting a name
// that already exists in the open scope is a declaration error.
func Insert(name, typ string, isParam bool) (*Symbol, error) {
	if _, ok := current.Get(name); ok {
		return nil, fmt.Errorf("duplicate declaration of %q in the same scope", name)
	}
	sym := &Symbol{
		Name:       name,
		Type:       typ,
		ScopeLevel: current.Level(),
		IsParam:    isParam,
	}
	current.Symbols = append(current.Symbols, sym)
	return sym, nil
}

// Lookup walks from the currently open scope up the parent chain to the
// global scope and returns the shallowest enclosing binding of name.
func Lookup(name string) (*Symbol, bool) {
	for st := current; st != nil; st = st.Parent {
		if sym, ok := st.Get(name); ok {
			return sym, true
		}
	}
	return nil, false
}

// GetFunctionScope searches the immediate children of the global scope and
// returns the scope belonging to the named method, or <nil>.
func GetFunctionScope(name string) *SymTab {
	if Global == nil {
		return nil
	}
	for _, e1 := range Global.Children {
		if e1.FunctionName == name {
			return e1
		}
	}
	return nil
}

// PrintSymTab prints the scope tree to stdout for debugging.
func PrintSymTab() {
	if Global == nil {
		return
	}
	Global.print(0)
}

// print prints scope st and its children indented by depth.
func (st *SymTab) print(depth int) {
	name := st.FunctionName
	if len(name) == 0 {
		if st.Parent == nil {
			name = "<global>"
		} else {
			name = "<anonymous>"
		}
	}
	fmt.Printf("%*cscope %s\n", depth<<1+1, 0, name)
	for _, e1 := range st.Symbols {
		p := ""
		if e1.IsParam {
			p = " (param)"
		}
		fmt.Printf("%*c%s: %s%s\n", (depth+1)<<1+1, 0, e1.Name, e1.Type, p)
	}
	for _, e1 := range st.Children {
		e1.print(depth + 1)
	}
}

// GenerateSymTab builds the scope tree for the syntax tree rooted at root:
// one global scope holding every method symbol, and one child scope per
// method holding its formals and locals in declaration order. Declaration
// errors are accumulated and reported together.
func GenerateSymTab(opt util.Options, root *Node) error {
	if root == nil || root.Typ != PROGRAM {
		return fmt.Errorf("expected node type %s, got %s", nt[PROGRAM], root.String())
	}
	InitSymTab()
	errs := util.NewErrorList(4)

	for _, e1 := range root.Children {
		if e1.Typ != METHOD {
			errs.Append(fmt.Errorf("unexpected node type %s at top level, line %d", e1.Type(), e1.Line))
			continue
		}
		name := e1.Children[0].Name()
		ret := e1.Children[1].Name()
		sym, err := Insert(name, FunctionType(ret), false)
		if err != nil {
			errs.Append(fmt.Errorf("%s, line %d", err, e1.Line))
			continue
		}
		e1.Entry = sym

		// One child scope per method, named after it. Extern methods have no
		// body, but their scope still records the formals for call checking.
		PushScope(name)
		for _, e2 := range e1.Children[2].Children {
			if _, err = Insert(e2.Name(), e2.Children[0].Name(), true); err != nil {
				errs.Append(fmt.Errorf("%s, line %d", err, e2.Line))
			}
		}
		if len(e1.Children) > 3 {
			insertLocals(e1.Children[3], errs)
		}
		PopScope()
	}

	if opt.Verbose {
		PrintSymTab()
	}
	lastErrors = errs
	if errs.Len() > 0 {
		for _, e1 := range errs.Errors() {
			util.ErrorLine(e1)
		}
		return fmt.Errorf("%d declaration error(s)", errs.Len())
	}
	return nil
}

// insertLocals inserts every declared variable of the statement list n into
// the currently open method scope, descending into nested statement lists.
func insertLocals(n *Node, errs *util.ErrorList) {
	for _, e1 := range n.Children {
		switch e1.Typ {
		case DECLARATION:
			if _, err := Insert(e1.Children[0].Name(), e1.Children[1].Name(), false); err != nil {
				errs.Append(fmt.Errorf("%s, line %d", err, e1.Line))
			}
		case IF_STATEMENT:
			insertLocals(e1.Children[1], errs)
			if len(e1.Children) > 2 {
				insertLocals(e1.Children[2], errs)
			}
		case WHILE_STATEMENT:
			insertLocals(e1.Children[1], errs)
		}
	}
}
