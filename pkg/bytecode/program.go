// Package bytecode defines the flat, labeled instruction format produced by
// the Rill compiler and consumed by the Rill VM.
package bytecode

import (
	"fmt"
	"strings"
)

// Instruction is a single labeled VM instruction.
//
// Labels are unique, strictly increasing numeric strings assigned in emission
// order; because the program is one flat sequence, a label doubles as the
// instruction's address and as a jump target.
type Instruction struct {
	Label    string   // numeric, unique, strictly increasing
	Op       Opcode
	Operands []string // registers, literals, labels or function ids
	Comment  string   // optional diagnostic, not significant to the VM
}

// String renders the instruction in assembler form.
func (ins Instruction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%5s  %-6s", ins.Label, ins.Op)
	if len(ins.Operands) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(ins.Operands, ", "))
	}
	if ins.Comment != "" {
		fmt.Fprintf(&sb, "  ; %s", ins.Comment)
	}
	return sb.String()
}

// Program is an ordered sequence of instructions. Order is emission order and
// is significant: it is the execution order.
type Program struct {
	Instructions []Instruction
}

// Append adds instructions to the end of the program.
func (p *Program) Append(ins ...Instruction) {
	p.Instructions = append(p.Instructions, ins...)
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// Register returns the symbolic register name for a register number.
// Registers are minted by the compiler and never reused within a program.
func Register(n int) string {
	return fmt.Sprintf("r%d", n)
}
