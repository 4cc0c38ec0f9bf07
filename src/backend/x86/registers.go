// registers.go implements the virtual register file and the per-function
// variable table of the x86-64 emitter. Temporaries are mapped round-robin
// onto a fixed pool of eight registers the first time they are seen; later
// uses of the same temporary reuse its register. The scheme has no liveness
// analysis and no spills; it holds because the generator produces short
// temporary lifetimes within one expression.

package x86

import (
	"slc/src/backend/regfile"
	"slc/src/ir/tac"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// register is a physical integer register of the allocation pool.
type register struct {
	id int
}

// registerFile maps temporary ids onto the register pool.
type registerFile struct {
	temps map[int]int // Temporary id to pool index of its assigned register.
	next  int         // Round-robin assignment counter.
}

// varInfo records the stack slot of one named variable.
type varInfo struct {
	name   string
	offset int
}

// varTable maps variable names of one function to negative 8 byte offsets
// from the frame pointer. Lookup is linear; insertion de-duplicates by name.
type varTable struct {
	vars      []varInfo
	stackSize int // Running frame size in bytes.
}

// ---------------------
// ----- Constants -----
// ---------------------

// regNames is the temporary register pool in assignment order.
var regNames = [...]string{"%rax", "%rbx", "%rcx", "%rdx", "%rsi", "%rdi", "%r8", "%r9"}

// argRegs is the System V AMD64 integer argument register sequence.
var argRegs = [...]string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}

// wordSize is the stack slot size of every variable and argument.
const wordSize = 8

// stackAlign is the stack alignment required at call sites.
const stackAlign = 16

// ------------------------------
// ----- Register functions -----
// ------------------------------

// Id returns the pool index of the register.
func (r register) Id() int {
	return r.id
}

// String returns the assembler name of the register.
func (r register) String() string {
	return regNames[r.id]
}

// newRegisterFile returns an empty register file over the full pool.
func newRegisterFile() *registerFile {
	return &registerFile{temps: make(map[int]int, 16)}
}

// Get returns the register assigned to the temporary with numeric id temp,
// assigning the next pool register round-robin on first sight.
func (rf *registerFile) Get(temp int) regfile.Register {
	if id, ok := rf.temps[temp]; ok {
		return register{id: id}
	}
	id := rf.next % len(regNames)
	rf.next++
	rf.temps[temp] = id
	return register{id: id}
}

// Reset forgets all assignments. Called at every method boundary.
func (rf *registerFile) Reset() {
	rf.temps = make(map[int]int, 16)
	rf.next = 0
}

// K returns the number of usable registers in the pool.
func (rf *registerFile) K() int {
	return len(regNames)
}

// regOf returns the assembler name of the register holding the temporary
// operand s.
func (rf *registerFile) regOf(s *tac.Symbol) string {
	if !s.IsTemp() {
		return regNames[0]
	}
	return rf.Get(s.ID).String()
}

// ------------------------------
// ----- VarTable functions -----
// ------------------------------

// add inserts name into the table if absent and returns its stack offset.
func (vt *varTable) add(name string) int {
	for _, e1 := range vt.vars {
		if e1.name == name {
			return e1.offset
		}
	}
	vt.stackSize += wordSize
	off := -vt.stackSize
	vt.vars = append(vt.vars, varInfo{name: name, offset: off})
	return off
}

// offset returns the stack offset of name. The second return value is false
// if the name has no slot in this function.
func (vt *varTable) offset(name string) (int, bool) {
	for _, e1 := range vt.vars {
		if e1.name == name {
			return e1.offset, true
		}
	}
	return 0, false
}

// frameSize returns the byte size of the frame rounded up to the call site
// stack alignment.
func (vt *varTable) frameSize() int {
	n := vt.stackSize
	if res := n % stackAlign; res != 0 {
		n += stackAlign - res
	}
	return n
}
