package masm

import (
	"fmt"
	"strings"
)

// Print renders a Program as MASM text. The normative artifact is the
// in-memory tree (spec.md 6.2: "Rendering to text or binary is a
// downstream concern"); this printer exists only so tests and the CLI
// driver have something human-readable to diff against, not as a
// guarantee of wire-format stability.
func Print(p *Program) string {
	var sb strings.Builder
	for _, m := range p.Modules {
		fmt.Fprintf(&sb, "mod %s\n", m.Name)
		for _, im := range m.Imports {
			fmt.Fprintf(&sb, "  use %s\n", im.Name)
		}
		for _, fn := range m.Functions {
			fmt.Fprintf(&sb, "  export.%s\n", fn.ID.Name)
			depth := 2
			for _, op := range fn.Body {
				switch op.Kind {
				case OpEnd, OpElse:
					depth--
				}
				fmt.Fprintf(&sb, "%s%s\n", strings.Repeat("    ", depth), op)
				switch op.Kind {
				case OpIfTrue, OpElse, OpWhileTrue, OpRepeat:
					depth++
				}
			}
			fmt.Fprintf(&sb, "  end\n")
		}
	}
	return sb.String()
}
