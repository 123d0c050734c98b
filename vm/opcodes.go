package vm

import "fmt"

// Opcode selects an operation. It is the low two decimal digits of an
// instruction word.
type Opcode int

const (
	OpAdd         Opcode = 1  // dst := a + b
	OpMul         Opcode = 2  // dst := a * b
	OpInput       Opcode = 3  // dst := next input
	OpOutput      Opcode = 4  // emit a
	OpJumpIfTrue  Opcode = 5  // if a > 0 then pc := b
	OpJumpIfFalse Opcode = 6  // if a == 0 then pc := b
	OpLessThan    Opcode = 7  // dst := a < b
	OpEquals      Opcode = 8  // dst := a == b
	OpHalt        Opcode = 99 // stop
)

// OpcodeInfo provides metadata about each opcode for decoding and listing.
type OpcodeInfo struct {
	Name     string // Human-readable name
	Mnemonic string // Short form used by the disassembler
	Arity    int    // Parameter words following the instruction word
	Writes   bool   // Last parameter is a destination address
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpAdd:         {"ADD", "add", 3, true},
	OpMul:         {"MUL", "mul", 3, true},
	OpInput:       {"INPUT", "in", 1, true},
	OpOutput:      {"OUTPUT", "out", 1, false},
	OpJumpIfTrue:  {"JUMP_IF_TRUE", "jt", 2, false},
	OpJumpIfFalse: {"JUMP_IF_FALSE", "jf", 2, false},
	OpLessThan:    {"LESS_THAN", "lt", 3, true},
	OpEquals:      {"EQUALS", "eq", 3, true},
	OpHalt:        {"HALT", "hlt", 0, false},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo named "UNKNOWN(n)" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(%d)", int(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Arity returns the number of parameter words for this opcode.
func (op Opcode) Arity() int {
	return GetOpcodeInfo(op).Arity
}

// InstructionLen returns the total length of an instruction (1 + arity).
func (op Opcode) InstructionLen() int {
	return 1 + op.Arity()
}

// IsKnown reports whether the opcode is part of the instruction set.
func (op Opcode) IsKnown() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsJump returns true if this opcode may transfer control.
func (op Opcode) IsJump() bool {
	return op == OpJumpIfTrue || op == OpJumpIfFalse
}

// AllOpcodes returns a slice of all defined opcodes in ascending order.
func AllOpcodes() []Opcode {
	return []Opcode{
		OpAdd, OpMul, OpInput, OpOutput,
		OpJumpIfTrue, OpJumpIfFalse, OpLessThan, OpEquals,
		OpHalt,
	}
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
