package bytecode

import "fmt"

// Opcode identifies a bytecode instruction for the Rill VM.
// Opcodes are organized into ranges by category for easy identification.
type Opcode uint8

const (
	// ========================================================================
	// Registers (0x00-0x0F)
	// ========================================================================

	OpLoad  Opcode = 0x00 // Load a literal into a register: LOAD dst, value
	OpMove  Opcode = 0x01 // Copy one register into another: MOVE dst, src
	OpClear Opcode = 0x02 // Release a register's runtime slot: CLEAR reg

	// ========================================================================
	// Arithmetic (0x10-0x1F)
	// ========================================================================

	OpAdd Opcode = 0x10 // ADD dst, a, b
	OpSub Opcode = 0x11 // SUB dst, a, b
	OpMul Opcode = 0x12 // MUL dst, a, b
	OpDiv Opcode = 0x13 // DIV dst, a, b
	OpMod Opcode = 0x14 // MOD dst, a, b
	OpNeg Opcode = 0x15 // NEG dst, a

	// ========================================================================
	// Comparison (0x20-0x2F)
	// ========================================================================

	OpEq Opcode = 0x20 // EQ dst, a, b
	OpNe Opcode = 0x21 // NE dst, a, b
	OpLt Opcode = 0x22 // LT dst, a, b
	OpLe Opcode = 0x23 // LE dst, a, b
	OpGt Opcode = 0x24 // GT dst, a, b
	OpGe Opcode = 0x25 // GE dst, a, b

	// ========================================================================
	// Logic (0x28-0x2F)
	// ========================================================================

	OpNot Opcode = 0x28 // NOT dst, a
	OpAnd Opcode = 0x29 // AND dst, a, b (both operands evaluated)
	OpOr  Opcode = 0x2A // OR dst, a, b

	// ========================================================================
	// Jumps (0x30-0x3F) - label operands
	// ========================================================================

	OpJump      Opcode = 0x30 // JMP label
	OpJumpFalse Opcode = 0x31 // JMPF reg, label

	// ========================================================================
	// Functions (0x40-0x4F) - symbolic function-id operands
	// ========================================================================

	OpFunc     Opcode = 0x40 // FUNC callID - body marker; skipped when reached sequentially
	OpCall     Opcode = 0x41 // CALL callID
	OpArg      Opcode = 0x42 // ARG reg - pass an argument for the next CALL
	OpParam    Opcode = 0x43 // PARAM reg - receive the next argument into reg
	OpExit     Opcode = 0x44 // EXIT exitID - return target inside a function body
	OpJumpExit Opcode = 0x45 // JEXIT exitID - jump to a function's EXIT marker
	OpSetRet   Opcode = 0x46 // SETRET reg - place reg in the return-value slot
	OpGetRet   Opcode = 0x47 // GETRET dst - copy the return-value slot into dst
	OpRet      Opcode = 0x48 // RET - return to the caller

	// ========================================================================
	// Builtins (0x50-0x5F)
	// ========================================================================

	OpPrint Opcode = 0x50 // PRINT reg
)

var opcodeNames = map[Opcode]string{
	OpLoad:      "LOAD",
	OpMove:      "MOVE",
	OpClear:     "CLEAR",
	OpAdd:       "ADD",
	OpSub:       "SUB",
	OpMul:       "MUL",
	OpDiv:       "DIV",
	OpMod:       "MOD",
	OpNeg:       "NEG",
	OpEq:        "EQ",
	OpNe:        "NE",
	OpLt:        "LT",
	OpLe:        "LE",
	OpGt:        "GT",
	OpGe:        "GE",
	OpNot:       "NOT",
	OpAnd:       "AND",
	OpOr:        "OR",
	OpJump:      "JMP",
	OpJumpFalse: "JMPF",
	OpFunc:      "FUNC",
	OpCall:      "CALL",
	OpArg:       "ARG",
	OpParam:     "PARAM",
	OpExit:      "EXIT",
	OpJumpExit:  "JEXIT",
	OpSetRet:    "SETRET",
	OpGetRet:    "GETRET",
	OpRet:       "RET",
	OpPrint:     "PRINT",
}

// String returns the assembler mnemonic for the opcode.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(0x%02X)", uint8(op))
}
