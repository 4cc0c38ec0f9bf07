// Package tac defines the three-address intermediate representation that
// sits between the syntax tree and the code emitter. Instructions form a
// flat ordered list with symbolic operands: named variables, compiler
// generated temporaries, branch labels, constants and method names.
package tac

import "strconv"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// SymbolType differentiates the kinds of instruction operands.
type SymbolType int

// Symbol is a single instruction operand.
type Symbol struct {
	Name   string     // Print name: "x", "t3", "L1", "42", "main".
	Typ    SymbolType // Operand kind.
	ID     int        // Numeric suffix of temporaries and labels.
	Value  int        // Value of constants.
	IsBool bool       // Set true for constants of boolean origin.
}

// Op enumerates the instruction operators.
type Op int

// Instr is a single three-address instruction. Unused operand slots are <nil>.
type Instr struct {
	Op     Op
	Arg1   *Symbol
	Arg2   *Symbol
	Result *Symbol
}

// List is an ordered instruction sequence. The optimiser rewrites it in place.
type List struct {
	Instrs []Instr
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	SymVar SymbolType = iota
	SymTemp
	SymLabel
	SymConst
	SymFunc
)

const (
	Load Op = iota
	Store
	Add
	Sub
	UMinus
	Mul
	Div
	Mod
	And
	Or
	Not
	Eq
	Neq
	Lt
	Le
	Gt
	Ge
	Label
	Goto
	IfFalse
	IfTrue
	Return
	Call
	Method
	Extern
	Param
	CallParam
)

// opNames provides the stable textual operator names of the intermediate
// code file format.
var opNames = [...]string{
	"LOAD",
	"STORE",
	"ADD",
	"SUB",
	"UMINUS",
	"MUL",
	"DIV",
	"MOD",
	"AND",
	"OR",
	"NOT",
	"EQ",
	"NEQ",
	"LT",
	"LE",
	"GT",
	"GE",
	"LABEL",
	"GOTO",
	"IF_FALSE",
	"IF_TRUE",
	"RETURN",
	"CALL",
	"METHOD",
	"EXTERN",
	"PARAM",
	"LOAD_PARAM",
}

// ----------------------------
// ----- Symbol functions -----
// ----------------------------

// NewVar returns a variable operand with the given name.
func NewVar(name string) *Symbol {
	return &Symbol{Name: name, Typ: SymVar}
}

// NewFunc returns a method name operand.
func NewFunc(name string) *Symbol {
	return &Symbol{Name: name, Typ: SymFunc}
}

// NewConst returns a constant operand holding value.
func NewConst(value int, isBool bool) *Symbol {
	return &Symbol{
		Name:   strconv.Itoa(value),
		Typ:    SymConst,
		Value:  value,
		IsBool: isBool,
	}
}

// NewTemp returns the temporary operand with numeric id.
func NewTemp(id int) *Symbol {
	return &Symbol{Name: "t" + strconv.Itoa(id), Typ: SymTemp, ID: id}
}

// NewLabel returns the label operand with numeric id.
func NewLabel(id int) *Symbol {
	return &Symbol{Name: "L" + strconv.Itoa(id), Typ: SymLabel, ID: id}
}

// IsConst returns true if the symbol is a constant operand.
func (s *Symbol) IsConst() bool {
	return s != nil && s.Typ == SymConst
}

// IsTemp returns true if the symbol is a temporary operand.
func (s *Symbol) IsTemp() bool {
	return s != nil && s.Typ == SymTemp
}

// String returns the print name of the symbol.
func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.Name
}

// ------------------------
// ----- Op functions -----
// ------------------------

// String returns the stable textual name of the operator.
func (op Op) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return "UNKNOWN"
	}
	return opNames[op]
}

// IsBinary returns true for the two operand arithmetic, logic and
// comparison operators.
func (op Op) IsBinary() bool {
	switch op {
	case Add, Sub, Mul, Div, Mod, And, Or, Eq, Neq, Lt, Le, Gt, Ge:
		return true
	}
	return false
}

// IsComparison returns true for the operators producing a 0/1 truth value.
func (op Op) IsComparison() bool {
	switch op {
	case Eq, Neq, Lt, Le, Gt, Ge:
		return true
	}
	return false
}

// --------------------------
// ----- List functions -----
// --------------------------

// Emit appends an instruction to the list.
func (l *List) Emit(op Op, arg1, arg2, result *Symbol) {
	l.Instrs = append(l.Instrs, Instr{Op: op, Arg1: arg1, Arg2: arg2, Result: result})
}

// Len returns the number of instructions in the list, NOPs included.
func (l *List) Len() int {
	return len(l.Instrs)
}

// Nop rewrites the instruction into a label without operands. Result-less
// labels produce no output at emission time, which effectively removes the
// instruction without disturbing list indices.
func (i *Instr) Nop() {
	i.Op = Label
	i.Arg1 = nil
	i.Arg2 = nil
	i.Result = nil
}

// IsNop returns true if the instruction has been rewritten by Nop.
func (i *Instr) IsNop() bool {
	return i.Op == Label && i.Result == nil
}
