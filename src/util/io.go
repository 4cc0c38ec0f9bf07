package util

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Writer buffers output text in a strings.Builder. The pipeline is
// single-threaded and deterministic, so the buffer is flushed to file or
// stdout once, when a phase has finished.
type Writer struct {
	sb strings.Builder
}

// ---------------------
// ----- Functions -----
// ---------------------

// Write writes a format string to the Writer's buffer.
func (w *Writer) Write(format string, args ...interface{}) {
	w.sb.WriteString(fmt.Sprintf(format, args...))
}

// WriteString writes a plain string to the Writer's buffer.
func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

// Ins1 writes a one-line instruction using the operator and single operand.
func (w *Writer) Ins1(op, rs1 string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s\n", op, rs1))
}

// Ins2 writes a one-line instruction using the operator, source operand and
// destination register. Operands are ordered source first, AT&T style.
func (w *Writer) Ins2(op, rs1, rd string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s, %s\n", op, rs1, rd))
}

// Ins0 writes a one-line instruction with no operands.
func (w *Writer) Ins0(op string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\n", op))
}

// LoadStore writes a load or store instruction between register reg and
// offset from the register pointer (usually the frame pointer). A positive
// toMem stores to memory, otherwise loads from it.
func (w *Writer) LoadStore(op, reg string, offset int, pointer string, toMem bool) {
	if toMem {
		w.sb.WriteString(fmt.Sprintf("\t%s\t%s, %d(%s)\n", op, reg, offset, pointer))
	} else {
		w.sb.WriteString(fmt.Sprintf("\t%s\t%d(%s), %s\n", op, offset, pointer, reg))
	}
}

// Label writes a one-line label with the given name.
func (w *Writer) Label(name string) {
	w.sb.WriteString(fmt.Sprintf("%s:\n", name))
}

// String returns the accumulated buffer contents.
func (w *Writer) String() string {
	return w.sb.String()
}

// Save writes the accumulated buffer to the file at path, or to stdout when
// path is empty. The buffer is left intact.
func (w *Writer) Save(path string) error {
	if len(path) == 0 {
		_, err := os.Stdout.WriteString(w.sb.String())
		return err
	}
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	bw := bufio.NewWriter(f)
	if _, err = bw.WriteString(w.sb.String()); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadSource reads source code from file or stdin.
// If the Options structure holds a string for source the file will be opened
// and read. Else the function waits for a short period for input on stdin.
// If no input on stdin is provided the function returns an error.
func ReadSource(opt Options) (string, error) {
	if len(opt.Src) > 0 {
		// Read from file.
		b, err := os.ReadFile(opt.Src)
		return string(b), err
	}

	// Read stdin.
	c := make(chan string)
	cerr := make(chan error)

	// Concurrently wait for input on stdin.
	go func(c chan string, cerr chan error) {
		defer close(c)
		defer close(cerr)
		reader := bufio.NewReader(os.Stdin)
		text, err := reader.ReadString(0)
		if err == nil || len(text) > 0 {
			c <- text
		} else {
			cerr <- err
		}
	}(c, cerr)

	// Select between input from stdin or timer expiry.
	select {
	case <-time.After(500 * time.Millisecond):
		return "", errors.New("expected input from stdin, got none")
	case s := <-c:
		return s, nil
	case err := <-cerr:
		return "", err
	}
}
