// print.go serialises the instruction list into its textual form, one
// instruction per line with comma separated operands. The text form is the
// stable interface between the optimiser and the code emitter: the emitter
// only ever consumes the parsed text, so it can be driven by a hand-written
// intermediate code file as well.

package tac

import (
	"fmt"
	"strings"

	"slc/src/util"
)

// String returns the textual form of the whole list.
func (l *List) String() string {
	sb := strings.Builder{}
	for i1 := range l.Instrs {
		sb.WriteString(l.Instrs[i1].text())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Save writes the textual form of the list to the file at path.
func (l *List) Save(path string) error {
	w := util.Writer{}
	w.WriteString(l.String())
	if err := w.Save(path); err != nil {
		return fmt.Errorf("could not write intermediate code to %s: %s", path, err)
	}
	return nil
}

// text returns the one line textual form of a single instruction.
func (i *Instr) text() string {
	switch i.Op {
	case Load, Store:
		return fmt.Sprintf("%s %s, %s", i.Op, i.Arg1, i.Result)
	case Not, UMinus:
		return fmt.Sprintf("%s %s, %s", i.Op, i.Arg1, i.Result)
	case Label:
		if i.Result == nil {
			// NOP-ed instruction: a bare label line, ignored by the emitter.
			return i.Op.String()
		}
		return fmt.Sprintf("%s %s:", i.Op, i.Result)
	case Method:
		return fmt.Sprintf("%s %s:", i.Op, i.Result)
	case Extern, Param, Goto:
		return fmt.Sprintf("%s %s", i.Op, i.Result)
	case IfFalse, IfTrue:
		return fmt.Sprintf("%s %s, %s", i.Op, i.Arg1, i.Result)
	case Return:
		if i.Arg1 == nil {
			return i.Op.String()
		}
		return fmt.Sprintf("%s %s", i.Op, i.Arg1)
	case Call:
		if i.Result == nil {
			return fmt.Sprintf("%s %s", i.Op, i.Arg1)
		}
		return fmt.Sprintf("%s %s, %s", i.Op, i.Arg1, i.Result)
	case CallParam:
		return fmt.Sprintf("%s %s", i.Op, i.Arg1)
	default:
		// Binary operators.
		return fmt.Sprintf("%s %s, %s, %s", i.Op, i.Arg1, i.Arg2, i.Result)
	}
}
