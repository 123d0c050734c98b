// Package console connects a machine to line-oriented text streams.
// Each INPUT reads one integer per line; each OUTPUT prints one line.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/chazu/intcode/vm"
)

// Default prefixes for interactive use.
const (
	DefaultPrompt       = "I> "
	DefaultOutputPrefix = "O> "
)

type line struct {
	text string
	err  error
}

// Input reads one integer per line from r. Blank lines are skipped.
type Input struct {
	r      io.Reader
	w      io.Writer
	prompt string

	once  sync.Once
	lines chan line
}

// NewInput reads from r and writes prompt to w before each read. An empty
// prompt or a nil w disables prompting.
func NewInput(r io.Reader, w io.Writer, prompt string) *Input {
	return &Input{r: r, w: w, prompt: prompt}
}

func (in *Input) start() {
	in.lines = make(chan line)
	go func() {
		defer close(in.lines)
		sc := bufio.NewScanner(in.r)
		for sc.Scan() {
			in.lines <- line{text: sc.Text()}
		}
		if err := sc.Err(); err != nil {
			in.lines <- line{err: err}
		}
	}()
}

// Input blocks until a line holding an integer arrives, the stream ends
// (vm.ErrInputExhausted) or ctx is done.
func (in *Input) Input(ctx context.Context) (int64, error) {
	in.once.Do(in.start)
	for {
		if in.w != nil && in.prompt != "" {
			fmt.Fprint(in.w, in.prompt)
		}
		select {
		case l, ok := <-in.lines:
			if !ok {
				return 0, vm.ErrInputExhausted
			}
			if l.err != nil {
				return 0, fmt.Errorf("read input: %w", l.err)
			}
			text := strings.TrimSpace(l.text)
			if text == "" {
				continue
			}
			v, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("input %q is not an integer: %w", text, err)
			}
			return v, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Output prints each value on its own line after a prefix.
type Output struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
}

// NewOutput writes to w.
func NewOutput(w io.Writer, prefix string) *Output {
	return &Output{w: w, prefix: prefix}
}

// Output prints v.
func (o *Output) Output(v int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, "%s%d\n", o.prefix, v)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Stdio returns adapters over the process's standard streams. Prompts are
// shown only when stdin is a terminal; prefixes are dropped when stdout is
// not, so piped output stays machine-readable.
func Stdio(prompt, outputPrefix string) (*Input, *Output) {
	if !IsTerminal(os.Stdin) {
		prompt = ""
	}
	if !IsTerminal(os.Stdout) {
		outputPrefix = ""
	}
	return NewInput(os.Stdin, os.Stderr, prompt), NewOutput(os.Stdout, outputPrefix)
}
