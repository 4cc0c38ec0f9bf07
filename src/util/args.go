package util

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

type Options struct {
	Src         string // Path to source file.
	Out         string // Path to output assembler file.
	IR          string // Path to intermediate code file to emit from directly, bypassing the frontend.
	Verbose     bool   // Set true if compiler should log phase banners and statistics to stdout.
	TokenStream bool   // Set true if compiler should output token stream and exit.
	LLVM        bool   // Set true if compiler should emit LLVM IR instead of assembler.
	Dot         bool   // Set true if compiler should write a Graphviz rendering of the syntax tree.
	TargetArch  int    // Output target architecture.
}

// ---------------------
// ----- Constants -----
// ---------------------

const appVersion = "slc compiler 1.0"

// Target machine architectures.
const (
	X86_64 = iota
	UnknownArch
)

// Default artifact paths. The intermediate code file doubles as the interface
// between the optimiser and the code emitter.
const (
	DefaultOut = "output.s"
	DefaultIR  = "inter.s"
)

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses command line arguments. Defaults are taken from a .env
// file in the working directory, if one exists, before flags are applied.
func ParseArgs() (Options, error) {
	opt := Options{Out: DefaultOut}

	// Optional .env defaults. A missing file is fine.
	_ = godotenv.Load()
	if s := os.Getenv("SLC_OUT"); len(s) > 0 {
		opt.Out = s
	}
	if s := os.Getenv("SLC_VERBOSE"); s == "1" || strings.EqualFold(s, "true") {
		opt.Verbose = true
	}

	if len(os.Args) < 2 {
		return opt, nil
	}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			// Help and usage.
			printHelp()
			os.Exit(0)
		case "-ll":
			// Emit LLVM IR using the LLVM framework.
			opt.LLVM = true
		case "-ts":
			// Output token stream and exit.
			opt.TokenStream = true
		case "-dot":
			// Write syntax tree as Graphviz dot.
			opt.Dot = true
		case "-vb":
			// Verbose mode.
			opt.Verbose = true
		case "-v", "--v", "-version", "--version":
			// Application version.
			fmt.Println(appVersion)
			os.Exit(0)
		case "-o", "-ir":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected file path, got new flag %s", args[i1+1])
			}
			switch args[i1] {
			case "-o":
				// Output file.
				opt.Out = args[i1+1]
			case "-ir":
				// Emit assembler from an existing intermediate code file.
				opt.IR = args[i1+1]
			}
			i1++
		case "-arch":
			// Output architecture.
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			switch args[i1+1] {
			case "x86_64":
				opt.TargetArch = X86_64
			default:
				return opt, fmt.Errorf("unexpected architecture identifier: %s", args[i1+1])
			}
			i1++
		default:
			if strings.HasPrefix(args[i1], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			// Last non-flag argument is the source file.
			opt.Src = args[i1]
		}
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits the application.")
	_, _ = fmt.Fprintln(w, "--h, --help")
	_, _ = fmt.Fprintln(w, "-arch\tOutput architecture type. Only 'x86_64' is supported.")
	_, _ = fmt.Fprintln(w, "-dot\tWrite the syntax tree as Graphviz dot to ast.dot.")
	_, _ = fmt.Fprintln(w, "-ir\tEmit assembler from an existing intermediate code file and exit.")
	_, _ = fmt.Fprintln(w, "-ll\tEmit LLVM IR instead of assembler.")
	_, _ = fmt.Fprintln(w, "-o\tPath and name of the output file.")
	_, _ = fmt.Fprintln(w, "-ts\tOutput the tokens of the source code and exit.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits the application.")
	_, _ = fmt.Fprintln(w, "--v, --version")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: print compiler phase banners to stdout.")
	_ = w.Flush()
}
