package vm

import (
	"errors"
	"testing"
)

func TestMemoryRead(t *testing.T) {
	m := Memory{10, 20, 30}

	tests := []struct {
		mode  Mode
		value int64
		want  int64
	}{
		{ModeImmediate, 2, 2},
		{ModeImmediate, -7, -7},
		{ModeImmediate, 1000, 1000},
		{ModePosition, 0, 10},
		{ModePosition, 2, 30},
	}

	for _, tt := range tests {
		got, err := m.Read(tt.mode, tt.value)
		if err != nil {
			t.Fatalf("Read(%s, %d) failed: %v", tt.mode, tt.value, err)
		}
		if got != tt.want {
			t.Errorf("Read(%s, %d) = %d, want %d", tt.mode, tt.value, got, tt.want)
		}
	}
}

func TestMemoryBounds(t *testing.T) {
	m := Memory{1, 2, 3}

	for _, addr := range []int64{-1, 3, 1 << 40} {
		_, err := m.Read(ModePosition, addr)
		var af *AddressFault
		if !errors.As(err, &af) || af.Write {
			t.Errorf("Read(position, %d) error = %v, want read *AddressFault", addr, err)
		}

		err = m.Write(addr, 9)
		if !errors.As(err, &af) || !af.Write {
			t.Errorf("Write(%d) error = %v, want write *AddressFault", addr, err)
		}
	}
}

func TestMemoryWriteAndClone(t *testing.T) {
	m := NewMemory([]int64{0, 0})
	c := m.Clone()

	if err := m.Write(1, 42); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if v, _ := m.At(1); v != 42 {
		t.Errorf("At(1) = %d, want 42", v)
	}
	if c[1] != 0 {
		t.Errorf("clone shares storage with original")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}
