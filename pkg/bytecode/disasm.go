package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable listing with a name header.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Rill Bytecode v%d\n", FormatVersion))
	sb.WriteString(fmt.Sprintf("; Instructions: %d\n", len(p.Instructions)))
	sb.WriteString("\n")

	for _, ins := range p.Instructions {
		sb.WriteString(ins.String())
		sb.WriteString("\n")
	}

	return sb.String()
}
