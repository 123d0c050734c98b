package vm

import (
	"context"
	"errors"
	"sync"
)

// ErrInputExhausted is returned by scripted input sources with no values left.
var ErrInputExhausted = errors.New("input exhausted")

// InputSource supplies values to INPUT instructions. Input may block; it is
// the machine's only suspension point. Implementations should return
// ctx.Err() when ctx is done.
type InputSource interface {
	Input(ctx context.Context) (int64, error)
}

// OutputSink receives values emitted by OUTPUT instructions.
type OutputSink interface {
	Output(v int64)
}

// InputFunc adapts a function to InputSource.
type InputFunc func(ctx context.Context) (int64, error)

func (f InputFunc) Input(ctx context.Context) (int64, error) { return f(ctx) }

// OutputFunc adapts a function to OutputSink.
type OutputFunc func(v int64)

func (f OutputFunc) Output(v int64) { f(v) }

// ---------------------------------------------------------------------------
// Scripted input
// ---------------------------------------------------------------------------

// ScriptedInput yields a fixed sequence of values in order.
type ScriptedInput struct {
	mu     sync.Mutex
	values []int64
	next   int
}

// Inputs returns a ScriptedInput over values.
func Inputs(values ...int64) *ScriptedInput {
	return &ScriptedInput{values: append([]int64(nil), values...)}
}

// Input returns the next scripted value or ErrInputExhausted.
func (s *ScriptedInput) Input(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.values) {
		return 0, ErrInputExhausted
	}
	v := s.values[s.next]
	s.next++
	return v, nil
}

// Remaining returns the number of unread values.
func (s *ScriptedInput) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values) - s.next
}

// ---------------------------------------------------------------------------
// Channel adapters
// ---------------------------------------------------------------------------

// ChanInput reads values from ch, blocking until one arrives or ctx is done.
// A closed channel reads as ErrInputExhausted.
func ChanInput(ch <-chan int64) InputSource {
	return InputFunc(func(ctx context.Context) (int64, error) {
		select {
		case v, ok := <-ch:
			if !ok {
				return 0, ErrInputExhausted
			}
			return v, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
}

// ChanOutput sends every emitted value to ch. The send blocks, so ch must
// be drained by another goroutine or be buffered.
func ChanOutput(ch chan<- int64) OutputSink {
	return OutputFunc(func(v int64) { ch <- v })
}

// ---------------------------------------------------------------------------
// Collector
// ---------------------------------------------------------------------------

// Collector records emitted values in order.
type Collector struct {
	mu     sync.Mutex
	values []int64
}

// Output appends v.
func (c *Collector) Output(v int64) {
	c.mu.Lock()
	c.values = append(c.values, v)
	c.mu.Unlock()
}

// Values returns a copy of everything collected so far.
func (c *Collector) Values() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.values...)
}

// Last returns the most recent value, if any.
func (c *Collector) Last() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.values) == 0 {
		return 0, false
	}
	return c.values[len(c.values)-1], true
}

// Tee fans each value out to every sink in order.
func Tee(sinks ...OutputSink) OutputSink {
	return OutputFunc(func(v int64) {
		for _, s := range sinks {
			s.Output(v)
		}
	})
}

type noInput struct{}

func (noInput) Input(ctx context.Context) (int64, error) { return 0, ErrInputExhausted }

type discard struct{}

func (discard) Output(int64) {}
