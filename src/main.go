package main

import (
	"fmt"
	"os"

	"slc/src/backend"
	"slc/src/frontend"
	"slc/src/ir"
	"slc/src/ir/llvm"
	"slc/src/ir/tac"
	"slc/src/util"
)

// run begins reading source code and executes compiler stages.
// Behaviour is defined by the util.Options structure.
func run(opt util.Options) error {
	// Emit directly from an existing intermediate code file, if requested.
	// This path exercises the emitter without the frontend.
	if len(opt.IR) > 0 {
		l, err := tac.ParseFile(opt.IR)
		if err != nil {
			return err
		}
		return backend.GenerateAssembler(opt, l)
	}

	// Read source code.
	src, err := util.ReadSource(opt)
	if err != nil {
		return fmt.Errorf("could not read source code: %s", err)
	}

	// If -ts flag was passed: output token stream and exit.
	if opt.TokenStream {
		if err := frontend.TokenStream(src); err != nil {
			return fmt.Errorf("syntax error: %s", err)
		}
		return nil
	}

	// Generate syntax tree by lexing and parsing source code.
	util.Banner(opt, "parsing %s", opt.Src)
	root, err := frontend.Parse(src)
	if err != nil {
		return fmt.Errorf("parse error: %s", err)
	}
	if opt.Verbose {
		root.Print(0, true)
	}
	if opt.Dot {
		w := util.Writer{}
		ir.WriteDot(root, &w)
		if err := w.Save("ast.dot"); err != nil {
			return err
		}
	}

	// Generate symbol table.
	util.Banner(opt, "building symbol table")
	if err = ir.GenerateSymTab(opt, root); err != nil {
		return err
	}

	// Validate source code.
	util.Banner(opt, "semantic analysis")
	if err = ir.Analyze(opt, root); err != nil {
		return err
	}

	// Gen LLVM and exit, if flag is passed.
	if opt.LLVM {
		if err = llvm.GenLLVM(opt, root); err != nil {
			return fmt.Errorf("error reported by LLVM: %s", err)
		}
		return nil
	}

	// Generate intermediate code.
	util.Banner(opt, "generating intermediate code")
	l, err := tac.Generate(root)
	if err != nil {
		return err
	}

	// Optimise intermediate code and write the textual artifact consumed by
	// the emitter.
	util.Banner(opt, "optimising intermediate code")
	tac.Optimise(opt, l)
	if err = l.Save(util.DefaultIR); err != nil {
		return err
	}

	// Generate output assembler. The emitter re-parses the intermediate
	// code file, keeping the text format honest.
	util.Banner(opt, "generating assembler")
	parsed, err := tac.ParseFile(util.DefaultIR)
	if err != nil {
		return err
	}
	return backend.GenerateAssembler(opt, parsed)
}

func main() {
	// Parse command line arguments.
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Printf("Command line argument error: %s\n", err)
		os.Exit(1)
	}

	if err := run(opt); err != nil {
		util.ErrorLine(err)
		os.Exit(1)
	}
}
