package server

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/chazu/intcode/vm"
)

func TestRunner_StepLimit(t *testing.T) {
	tests := []struct {
		name      string
		max       uint64
		requested uint64
		want      uint64
	}{
		{"server limit applies", 100, 0, 100},
		{"smaller request wins", 100, 10, 10},
		{"larger request capped", 100, 1000, 100},
		{"unlimited server", 0, 0, 0},
		{"unlimited server keeps request", 0, 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(1, tt.max, nil)
			if got := r.stepLimit(tt.requested); got != tt.want {
				t.Errorf("stepLimit(%d) = %d, want %d", tt.requested, got, tt.want)
			}
		})
	}
}

func TestRunner_ConcurrentRunsAreIsolated(t *testing.T) {
	r := NewRunner(3, 0, nil)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := r.Run(bg(), sumProgram, 0, vm.WithInput(vm.Inputs(int64(i), 100)))
			if err != nil {
				errs[i] = err
				return
			}
			if !equalInts(o.Outputs, []int64{int64(i) + 100}) {
				errs[i] = errors.New("wrong output")
			}
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("run %d: %v", i, err)
		}
	}
}

func TestRunner_CanceledWhileWaiting(t *testing.T) {
	r := NewRunner(1, 0, nil)
	if err := r.sem.Acquire(bg(), 1); err != nil {
		t.Fatal(err)
	}
	defer r.sem.Release(1)

	ctx, cancel := context.WithCancel(bg())
	cancel()
	if _, err := r.Run(ctx, addProgram, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Run err = %v, want context.Canceled", err)
	}
}

func TestRunner_FaultReported(t *testing.T) {
	r := NewRunner(1, 0, nil)

	o, err := r.Run(bg(), []int64{1, 0, 0, 50, 99}, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(o.Fault, vm.ErrFault) {
		t.Errorf("Fault = %v, want an address fault", o.Fault)
	}
	var af *vm.AddressFault
	if !errors.As(o.Fault, &af) || !af.Write {
		t.Errorf("Fault = %#v, want a write AddressFault", o.Fault)
	}
}
