package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a listing of mem. Words that do not decode to a
// complete, known instruction are listed as data and the walk continues
// with the next word. Self-modifying programs may list differently from
// what they execute.
func Disassemble(mem Memory) string {
	return DisassembleWithName(mem, "")
}

// DisassembleWithName returns a listing with a name header.
func DisassembleWithName(mem Memory, name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Intcode, %d words\n", len(mem)))

	pc := 0
	for pc < len(mem) {
		line, n := disassembleAt(mem, pc)
		sb.WriteString(line)
		sb.WriteString("\n")
		pc += n
	}
	return sb.String()
}

// disassembleAt formats the instruction at pc and returns its length.
func disassembleAt(mem Memory, pc int) (string, int) {
	word := mem[pc]
	ins, err := Decode(word)
	if err != nil || !ins.Op.IsKnown() || pc+ins.Op.Arity() >= len(mem) {
		return fmt.Sprintf("%04d  %-4s %d", pc, "data", word), 1
	}
	n := ins.Op.InstructionLen()
	return formatInstruction(pc, ins, mem[pc+1:pc+n]), n
}

// formatInstruction renders one instruction. Position parameters print as
// [addr], immediates as #value; destinations are always addresses.
func formatInstruction(pc int, ins Instruction, params []int64) string {
	info := GetOpcodeInfo(ins.Op)
	args := make([]string, len(params))
	for i, p := range params {
		if ins.Modes[i] == ModeImmediate && !(info.Writes && i == len(params)-1) {
			args[i] = fmt.Sprintf("#%d", p)
		} else {
			args[i] = fmt.Sprintf("[%d]", p)
		}
	}
	if len(args) == 0 {
		return fmt.Sprintf("%04d  %s", pc, info.Mnemonic)
	}
	return fmt.Sprintf("%04d  %-4s %s", pc, info.Mnemonic, strings.Join(args, ", "))
}
