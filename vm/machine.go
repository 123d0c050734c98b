package vm

import (
	"context"

	"github.com/tliron/commonlog"
)

// HaltedPC is the program counter after HALT executes.
const HaltedPC = -1

// EndState describes where a machine stopped.
type EndState int

const (
	Running EndState = iota // PC is inside memory and HALT has not run
	Halted                  // HALT executed
	RanOff                  // PC left memory without HALT; not an error
	Faulted                 // a fault aborted the run
)

func (s EndState) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case RanOff:
		return "ran-off"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Result is the outcome of a run. Memory holds every mutation applied
// before the run ended, including runs that faulted.
type Result struct {
	Memory []int64
	PC     int
	State  EndState
	Steps  uint64
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Option configures a Machine.
type Option func(*Machine)

// WithStartPC sets the initial program counter (default 0).
func WithStartPC(pc int) Option {
	return func(m *Machine) { m.pc = pc }
}

// WithInput sets the source for INPUT instructions. Without one, INPUT
// fails with ErrInputExhausted.
func WithInput(in InputSource) Option {
	return func(m *Machine) { m.in = in }
}

// WithOutput sets the sink for OUTPUT instructions. Without one, output
// is discarded.
func WithOutput(out OutputSink) Option {
	return func(m *Machine) { m.out = out }
}

// WithLogger replaces the "intcode.vm" logger.
func WithLogger(log commonlog.Logger) Option {
	return func(m *Machine) { m.log = log }
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(on bool) Option {
	return func(m *Machine) { m.trace = on }
}

// WithOverflow sets the ADD/MUL overflow policy (default OverflowCheck).
func WithOverflow(p OverflowPolicy) Option {
	return func(m *Machine) { m.overflow = p }
}

// WithMaxSteps bounds the number of instructions a run may execute.
// Zero means unlimited.
func WithMaxSteps(n uint64) Option {
	return func(m *Machine) { m.maxSteps = n }
}

// ---------------------------------------------------------------------------
// Machine
// ---------------------------------------------------------------------------

// Machine executes one Intcode program. A Machine owns its memory and is
// not safe for concurrent use; run independent programs on independent
// machines.
type Machine struct {
	mem Memory
	pc  int

	in  InputSource
	out OutputSink
	log commonlog.Logger

	trace    bool
	overflow OverflowPolicy
	maxSteps uint64

	steps  uint64
	state  EndState
	halted bool
}

// New creates a machine over a private copy of program.
func New(program []int64, opts ...Option) *Machine {
	m := &Machine{
		mem: NewMemory(program),
		in:  noInput{},
		out: discard{},
		log: commonlog.GetLogger("intcode.vm"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state = m.positionState()
	return m
}

// Run executes program to completion or fault. It is shorthand for
// New(program, opts...).Run(ctx).
func Run(ctx context.Context, program []int64, opts ...Option) (*Result, error) {
	return New(program, opts...).Run(ctx)
}

// PC returns the program counter.
func (m *Machine) PC() int { return m.pc }

// Memory returns the machine's live memory. Callers must not modify it
// while the machine is running.
func (m *Machine) Memory() Memory { return m.mem }

// Steps returns the number of instructions executed.
func (m *Machine) Steps() uint64 { return m.steps }

// State returns the current end state (Running until the run stops).
func (m *Machine) State() EndState { return m.state }

// Running reports whether another step would execute an instruction.
func (m *Machine) Running() bool { return m.state == Running }

func (m *Machine) positionState() EndState {
	if m.halted {
		return Halted
	}
	if m.pc < 0 || m.pc >= len(m.mem) {
		return RanOff
	}
	return Running
}

// Run steps until the machine halts, runs off memory or faults.
// The returned Result is never nil.
func (m *Machine) Run(ctx context.Context) (*Result, error) {
	var err error
	for m.Running() {
		if err = m.Step(ctx); err != nil {
			break
		}
	}
	if m.state == RanOff {
		m.log.Infof("pc=%d left memory [0,%d) without halting", m.pc, len(m.mem))
	}
	return m.result(), err
}

func (m *Machine) result() *Result {
	return &Result{
		Memory: []int64(m.mem),
		PC:     m.pc,
		State:  m.state,
		Steps:  m.steps,
	}
}

func (m *Machine) fault(err error) error {
	m.state = Faulted
	err = annotate(err, m.pc)
	m.log.Errorf("%s", err)
	return err
}

// Step executes the instruction at PC. It does nothing once the machine
// has stopped.
func (m *Machine) Step(ctx context.Context) error {
	if !m.Running() {
		return nil
	}
	if m.maxSteps > 0 && m.steps >= m.maxSteps {
		return m.fault(&StepLimitError{Limit: m.maxSteps})
	}

	pc := m.pc
	word := m.mem[pc]
	ins, err := Decode(word)
	if err != nil {
		return m.fault(err)
	}
	if !ins.Op.IsKnown() {
		return m.fault(&UnknownOpcodeError{Word: word, Opcode: ins.Op})
	}

	var params [3]int64
	for i := 0; i < ins.Op.Arity(); i++ {
		p, err := m.mem.At(int64(pc + 1 + i))
		if err != nil {
			return m.fault(err)
		}
		params[i] = p
	}

	if m.trace {
		m.log.Debugf("%s", formatInstruction(pc, ins, params[:ins.Op.Arity()]))
	}

	next, err := m.execute(ctx, pc, ins, params)
	if err != nil {
		return m.fault(err)
	}
	m.pc = next
	m.steps++
	m.state = m.positionState()
	return nil
}

// execute applies one decoded instruction and returns the next PC.
func (m *Machine) execute(ctx context.Context, pc int, ins Instruction, p [3]int64) (int, error) {
	next := pc + ins.Op.InstructionLen()

	switch ins.Op {
	case OpAdd:
		return next, m.binary(ins, p, addInt64)

	case OpMul:
		return next, m.binary(ins, p, mulInt64)

	case OpLessThan:
		return next, m.binary(ins, p, lessThan)

	case OpEquals:
		return next, m.binary(ins, p, equals)

	case OpInput:
		v, err := m.in.Input(ctx)
		if err != nil {
			return pc, &InputError{Err: err}
		}
		return next, m.mem.Write(p[0], v)

	case OpOutput:
		v, err := m.mem.Read(ins.Modes[0], p[0])
		if err != nil {
			return pc, err
		}
		m.out.Output(v)
		return next, nil

	case OpJumpIfTrue:
		cond, err := m.mem.Read(ins.Modes[0], p[0])
		if err != nil {
			return pc, err
		}
		// Only strictly positive values jump; negative values fall through.
		if cond > 0 {
			return m.jumpTarget(ins, p)
		}
		return next, nil

	case OpJumpIfFalse:
		cond, err := m.mem.Read(ins.Modes[0], p[0])
		if err != nil {
			return pc, err
		}
		if cond == 0 {
			return m.jumpTarget(ins, p)
		}
		return next, nil

	case OpHalt:
		m.halted = true
		return HaltedPC, nil

	default:
		return pc, &UnknownOpcodeError{Word: m.mem[pc], Opcode: ins.Op}
	}
}

func (m *Machine) jumpTarget(ins Instruction, p [3]int64) (int, error) {
	target, err := m.mem.Read(ins.Modes[1], p[1])
	if err != nil {
		return m.pc, err
	}
	return int(target), nil
}

// binary reads a and b, combines them with op and stores the result at dst.
func (m *Machine) binary(ins Instruction, p [3]int64, op binaryOp) error {
	a, err := m.mem.Read(ins.Modes[0], p[0])
	if err != nil {
		return err
	}
	b, err := m.mem.Read(ins.Modes[1], p[1])
	if err != nil {
		return err
	}
	r, ok := op(a, b)
	if !ok && m.overflow == OverflowCheck {
		return &OverflowFault{Op: ins.Op, A: a, B: b}
	}
	return m.mem.Write(p[2], r)
}
