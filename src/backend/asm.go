package backend

import (
	"fmt"

	"slc/src/backend/x86"
	"slc/src/ir/tac"
	"slc/src/util"
)

// GenerateAssembler lowers the parsed intermediate code list into output
// assembler for the architecture defined by opt.
func GenerateAssembler(opt util.Options, l *tac.List) error {
	switch opt.TargetArch {
	case util.X86_64:
		return x86.GenX86(opt, l)
	default:
		return fmt.Errorf("unsupported target architecture")
	}
}
