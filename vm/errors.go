package vm

import (
	"errors"
	"fmt"
)

// ErrFault matches every fault that aborts a run.
//
//	if errors.Is(err, vm.ErrFault) { ... }
var ErrFault = errors.New("intcode fault")

// pcSetter is implemented by faults that record the failing program counter.
// Memory raises faults without knowing the PC; the machine fills it in.
type pcSetter interface {
	setPC(pc int)
}

func annotate(err error, pc int) error {
	var s pcSetter
	if errors.As(err, &s) {
		s.setPC(pc)
	}
	return err
}

// DecodeFault reports a malformed instruction word: negative, wider than
// five digits, or holding a mode digit other than 0 or 1.
type DecodeFault struct {
	PC    int
	Word  int64
	Digit int // offending mode position (0=a, 1=b, 2=dst), -1 if the word itself is out of range
}

func (f *DecodeFault) Error() string {
	if f.Digit < 0 {
		return fmt.Sprintf("decode fault at pc=%d: word %d is not a 5-digit instruction", f.PC, f.Word)
	}
	return fmt.Sprintf("decode fault at pc=%d: word %d has invalid mode digit for parameter %d", f.PC, f.Word, f.Digit)
}

func (f *DecodeFault) Is(target error) bool { return target == ErrFault }
func (f *DecodeFault) setPC(pc int)         { f.PC = pc }

// UnknownOpcodeError reports a well-formed word whose opcode is not part of
// the instruction set.
type UnknownOpcodeError struct {
	PC     int
	Word   int64
	Opcode Opcode
}

func (f *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode %d at pc=%d (word %d)", int(f.Opcode), f.PC, f.Word)
}

func (f *UnknownOpcodeError) Is(target error) bool { return target == ErrFault }
func (f *UnknownOpcodeError) setPC(pc int)         { f.PC = pc }

// AddressFault reports a read or write outside memory. Parameter fetches
// past the end of memory are reads.
type AddressFault struct {
	PC    int
	Addr  int64
	Size  int
	Write bool
}

func (f *AddressFault) Error() string {
	kind := "read"
	if f.Write {
		kind = "write"
	}
	return fmt.Sprintf("address fault at pc=%d: %s of %d outside memory [0,%d)", f.PC, kind, f.Addr, f.Size)
}

func (f *AddressFault) Is(target error) bool { return target == ErrFault }
func (f *AddressFault) setPC(pc int)         { f.PC = pc }

// OverflowFault reports an ADD or MUL result that does not fit in 64 bits
// when the machine runs with the OverflowCheck policy.
type OverflowFault struct {
	PC   int
	Op   Opcode
	A, B int64
}

func (f *OverflowFault) Error() string {
	return fmt.Sprintf("overflow at pc=%d: %s %d, %d", f.PC, f.Op, f.A, f.B)
}

func (f *OverflowFault) Is(target error) bool { return target == ErrFault }
func (f *OverflowFault) setPC(pc int)         { f.PC = pc }

// InputError reports that the input source could not supply a value.
// Cancellation of a blocked INPUT surfaces here.
type InputError struct {
	PC  int
	Err error
}

func (f *InputError) Error() string {
	return fmt.Sprintf("input failed at pc=%d: %v", f.PC, f.Err)
}

func (f *InputError) Unwrap() error { return f.Err }

func (f *InputError) Is(target error) bool { return target == ErrFault }
func (f *InputError) setPC(pc int)         { f.PC = pc }

// StepLimitError reports that the run used up its step budget.
type StepLimitError struct {
	PC    int
	Limit uint64
}

func (f *StepLimitError) Error() string {
	return fmt.Sprintf("step limit %d reached at pc=%d", f.Limit, f.PC)
}

func (f *StepLimitError) Is(target error) bool { return target == ErrFault }
func (f *StepLimitError) setPC(pc int)         { f.PC = pc }
