package vm

// Memory is the flat, fixed-length store holding both code and data.
// It never grows; every access outside [0, Len) is an *AddressFault.
type Memory []int64

// NewMemory returns a private copy of program.
func NewMemory(program []int64) Memory {
	m := make(Memory, len(program))
	copy(m, program)
	return m
}

// Len returns the number of cells.
func (m Memory) Len() int {
	return len(m)
}

// InBounds reports whether addr names a cell.
func (m Memory) InBounds(addr int64) bool {
	return addr >= 0 && addr < int64(len(m))
}

// At returns the raw cell at addr.
func (m Memory) At(addr int64) (int64, error) {
	if !m.InBounds(addr) {
		return 0, &AddressFault{Addr: addr, Size: len(m)}
	}
	return m[addr], nil
}

// Read resolves a source parameter: under ModeImmediate the value is
// returned as is, under ModePosition it is used as an address.
func (m Memory) Read(mode Mode, value int64) (int64, error) {
	if mode == ModeImmediate {
		return value, nil
	}
	return m.At(value)
}

// Write stores value at addr. Modes never apply to destinations.
func (m Memory) Write(addr, value int64) error {
	if !m.InBounds(addr) {
		return &AddressFault{Addr: addr, Size: len(m), Write: true}
	}
	m[addr] = value
	return nil
}

// Clone returns an independent copy.
func (m Memory) Clone() Memory {
	return NewMemory(m)
}
