// parse.go reads the textual intermediate code form back into an
// instruction list. Operand kinds are recovered from the operator and the
// operand position; free standing names fall back to shape rules: a leading
// digit or minus sign denotes a constant, tN a temporary and LN a label.

package tac

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// -------------------
// ----- Globals -----
// -------------------

// opByName maps the stable textual operator names back to operators.
var opByName = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for i1, e1 := range opNames {
		m[e1] = Op(i1)
	}
	return m
}()

// ---------------------
// ----- functions -----
// ---------------------

// ParseFile reads and parses the intermediate code file at path.
func ParseFile(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open intermediate code file: %s", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Parse(f)
}

// Parse reads intermediate code text from r and returns the instruction list.
func Parse(r io.Reader) (*List, error) {
	l := &List{Instrs: make([]Instr, 0, 64)}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if len(text) == 0 {
			continue
		}
		ins, err := parseLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s", line, err)
		}
		l.Instrs = append(l.Instrs, ins)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// parseLine parses a single instruction line.
func parseLine(text string) (Instr, error) {
	name, rest, _ := strings.Cut(text, " ")
	op, ok := opByName[name]
	if !ok {
		return Instr{}, fmt.Errorf("unknown instruction %q", name)
	}

	ops := make([]string, 0, 3)
	if rest = strings.TrimSpace(rest); len(rest) > 0 {
		for _, e1 := range strings.Split(rest, ",") {
			ops = append(ops, strings.TrimSuffix(strings.TrimSpace(e1), ":"))
		}
	}

	ins := Instr{Op: op}
	switch op {
	case Load, Store, Not, UMinus:
		if len(ops) != 2 {
			return ins, fmt.Errorf("%s expects 2 operands, got %d", op, len(ops))
		}
		ins.Arg1 = operand(ops[0])
		ins.Result = operand(ops[1])
	case Label:
		// A bare label line is a NOP-ed instruction.
		if len(ops) == 1 {
			ins.Result = &Symbol{Name: ops[0], Typ: SymLabel, ID: numericSuffix(ops[0])}
		} else if len(ops) > 1 {
			return ins, fmt.Errorf("%s expects at most 1 operand, got %d", op, len(ops))
		}
	case Method, Extern:
		if len(ops) != 1 {
			return ins, fmt.Errorf("%s expects 1 operand, got %d", op, len(ops))
		}
		ins.Result = NewFunc(ops[0])
	case Param:
		if len(ops) != 1 {
			return ins, fmt.Errorf("%s expects 1 operand, got %d", op, len(ops))
		}
		ins.Result = operand(ops[0])
	case Goto:
		if len(ops) != 1 {
			return ins, fmt.Errorf("%s expects 1 operand, got %d", op, len(ops))
		}
		ins.Result = &Symbol{Name: ops[0], Typ: SymLabel, ID: numericSuffix(ops[0])}
	case IfFalse, IfTrue:
		if len(ops) != 2 {
			return ins, fmt.Errorf("%s expects 2 operands, got %d", op, len(ops))
		}
		ins.Arg1 = operand(ops[0])
		ins.Result = &Symbol{Name: ops[1], Typ: SymLabel, ID: numericSuffix(ops[1])}
	case Return:
		if len(ops) > 1 {
			return ins, fmt.Errorf("%s expects at most 1 operand, got %d", op, len(ops))
		}
		if len(ops) == 1 {
			ins.Arg1 = operand(ops[0])
		}
	case Call:
		if len(ops) < 1 || len(ops) > 2 {
			return ins, fmt.Errorf("%s expects 1 or 2 operands, got %d", op, len(ops))
		}
		ins.Arg1 = NewFunc(ops[0])
		if len(ops) == 2 {
			ins.Result = operand(ops[1])
		}
	case CallParam:
		if len(ops) != 1 {
			return ins, fmt.Errorf("%s expects 1 operand, got %d", op, len(ops))
		}
		ins.Arg1 = operand(ops[0])
	default:
		// Binary operators.
		if len(ops) != 3 {
			return ins, fmt.Errorf("%s expects 3 operands, got %d", op, len(ops))
		}
		ins.Arg1 = operand(ops[0])
		ins.Arg2 = operand(ops[1])
		ins.Result = operand(ops[2])
	}
	return ins, nil
}

// operand classifies a free standing operand name by its shape.
func operand(name string) *Symbol {
	if isConstName(name) {
		v, _ := strconv.Atoi(name)
		return NewConst(v, false)
	}
	if len(name) > 1 && name[0] == 't' && isDigits(name[1:]) {
		return &Symbol{Name: name, Typ: SymTemp, ID: numericSuffix(name)}
	}
	if len(name) > 1 && name[0] == 'L' && isDigits(name[1:]) {
		return &Symbol{Name: name, Typ: SymLabel, ID: numericSuffix(name)}
	}
	return NewVar(name)
}

// isConstName returns true if name denotes an integer literal.
func isConstName(name string) bool {
	if len(name) == 0 {
		return false
	}
	if name[0] == '-' {
		return len(name) > 1 && isDigits(name[1:])
	}
	return isDigits(name)
}

// isDigits returns true if s is non-empty and all decimal digits.
func isDigits(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, e1 := range s {
		if e1 < '0' || e1 > '9' {
			return false
		}
	}
	return true
}

// numericSuffix returns the numeric suffix of a temporary or label name.
func numericSuffix(name string) int {
	if len(name) < 2 {
		return 0
	}
	v, _ := strconv.Atoi(name[1:])
	return v
}
