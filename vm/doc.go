// Package vm implements the Intcode virtual machine.
//
// This package contains:
//   - Instruction decoding (opcode plus three parameter-mode digits)
//   - Flat, fixed-length memory with position/immediate addressing
//   - The step/dispatch loop that mutates memory and drives input/output
//   - A disassembler for memory listings
//
// Memory doubles as code and data. A run ends when HALT executes, when the
// program counter leaves memory (a non-error end state, see RanOff), or
// when a fault aborts it. INPUT is the only instruction that may block.
package vm
