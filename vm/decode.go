package vm

// Mode selects how a source parameter is interpreted.
type Mode int

const (
	ModePosition  Mode = 0 // parameter is an address
	ModeImmediate Mode = 1 // parameter is the value itself
)

func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeImmediate:
		return "immediate"
	default:
		return "unknown mode"
	}
}

// MaxWord is the largest instruction word the decoder accepts.
const MaxWord = 99999

// Instruction is a decoded instruction word.
type Instruction struct {
	Op    Opcode
	Modes [3]Mode // a, b, dst
}

// Decode splits an instruction word into its opcode and parameter modes.
// The word is read as five decimal digits: the low two are the opcode and
// the next three, right to left, are the modes of parameters a, b and dst.
// Negative words, words wider than five digits and mode digits other than
// 0 or 1 are rejected with a *DecodeFault. Decode does not check that the
// opcode is part of the instruction set.
func Decode(word int64) (Instruction, error) {
	if word < 0 || word > MaxWord {
		return Instruction{}, &DecodeFault{Word: word, Digit: -1}
	}
	ins := Instruction{Op: Opcode(word % 100)}
	rest := word / 100
	for i := range ins.Modes {
		d := rest % 10
		if d != int64(ModePosition) && d != int64(ModeImmediate) {
			return Instruction{}, &DecodeFault{Word: word, Digit: i}
		}
		ins.Modes[i] = Mode(d)
		rest /= 10
	}
	return ins, nil
}

// Encode is the inverse of Decode for well-formed instructions.
func (ins Instruction) Encode() int64 {
	w := int64(ins.Op)
	scale := int64(100)
	for _, m := range ins.Modes {
		w += int64(m) * scale
		scale *= 10
	}
	return w
}
