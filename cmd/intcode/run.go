package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/intcode/console"
	"github.com/chazu/intcode/history"
	"github.com/chazu/intcode/program"
	"github.com/chazu/intcode/vm"
)

// runConfig holds everything runPrograms needs, already merged from the
// manifest and flags.
type runConfig struct {
	inputs      []int64
	scripted    bool // inputs came from -in; otherwise read stdin
	startPCSet  bool
	machineOpts []vm.Option
	disassemble bool
	dump        bool
	outPath     string
	store       *history.Store

	// Console adapters; when nil, runPrograms reads and writes the streams
	// it is given without prompts or prefixes.
	consoleIn  *console.Input
	consoleOut *console.Output
}

// streams returns the console adapters for cfg, falling back to plain
// line I/O over stdin and stdout.
func (cfg *runConfig) streams(stdin io.Reader, stdout, stderr io.Writer) (*console.Input, *console.Output) {
	in, out := cfg.consoleIn, cfg.consoleOut
	if in == nil {
		in = console.NewInput(stdin, stderr, "")
	}
	if out == nil {
		out = console.NewOutput(stdout, "")
	}
	return in, out
}

// job is one program run.
type job struct {
	path    string
	image   *program.Image
	res     *vm.Result
	outputs []int64
	err     error
	rec     *history.Run
}

// runPrograms loads and runs every path and reports the results. It
// returns the process exit code: 0 if every program halted or ran off
// memory, 1 if any faulted or could not be loaded.
func runPrograms(ctx context.Context, cfg *runConfig, paths []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if cfg.outPath != "" && len(paths) > 1 {
		fmt.Fprintln(stderr, "Error: -o needs exactly one program")
		return 2
	}

	jobs := make([]*job, len(paths))
	for i, path := range paths {
		img, err := program.Load(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		jobs[i] = &job{path: path, image: img}
	}

	if cfg.disassemble {
		for _, j := range jobs {
			fmt.Fprint(stdout, vm.DisassembleWithName(vm.Memory(j.image.Memory), filepath.Base(j.path)))
		}
		return 0
	}

	// A single program talks to the console directly; several programs
	// run side by side on their own copy of the scripted inputs.
	consoleIn, consoleOut := cfg.streams(stdin, stdout, stderr)
	if len(jobs) == 1 {
		j := jobs[0]
		var in vm.InputSource = vm.Inputs(cfg.inputs...)
		if !cfg.scripted {
			in = consoleIn
		}
		collect := &vm.Collector{}
		j.run(ctx, cfg, in, vm.Tee(consoleOut, collect))
		j.outputs = collect.Values()
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for _, j := range jobs {
			g.Go(func() error {
				collect := &vm.Collector{}
				j.run(gctx, cfg, vm.Inputs(cfg.inputs...), collect)
				j.outputs = collect.Values()
				return nil
			})
		}
		g.Wait()

		for _, j := range jobs {
			fmt.Fprintf(stdout, "== %s ==\n", j.path)
			for _, v := range j.outputs {
				consoleOut.Output(v)
			}
		}
	}

	code := 0
	for _, j := range jobs {
		if err := j.report(ctx, cfg, stdout, stderr); err != nil {
			code = 1
		}
	}
	return code
}

// cancelCheckInterval is how many instructions run between checks of
// the run context. INPUT checks it on every read.
const cancelCheckInterval = 1024

func (j *job) run(ctx context.Context, cfg *runConfig, in vm.InputSource, out vm.OutputSink) {
	if cfg.store != nil {
		j.rec = history.NewRun(j.image.Memory)
	}

	// A halted image stays halted unless -pc restarts it.
	if !cfg.startPCSet && j.image.State == vm.Halted.String() {
		log.Debugf("%s is already halted", j.path)
		j.res = &vm.Result{
			Memory: append([]int64(nil), j.image.Memory...),
			PC:     vm.HaltedPC,
			State:  vm.Halted,
		}
		return
	}

	opts := append([]vm.Option{}, cfg.machineOpts...)
	if !cfg.startPCSet && j.image.PC != 0 {
		opts = append(opts, vm.WithStartPC(j.image.PC))
	}
	opts = append(opts, vm.WithInput(in), vm.WithOutput(out))

	log.Debugf("running %s (%d words)", j.path, len(j.image.Memory))
	m := vm.New(j.image.Memory, opts...)
	for m.Running() {
		if m.Steps()%cancelCheckInterval == 0 && ctx.Err() != nil {
			j.err = fmt.Errorf("interrupted at pc=%d after %d steps: %w", m.PC(), m.Steps(), ctx.Err())
			break
		}
		if j.err = m.Step(ctx); j.err != nil {
			break
		}
	}
	j.res = &vm.Result{
		Memory: []int64(m.Memory()),
		PC:     m.PC(),
		State:  m.State(),
		Steps:  m.Steps(),
	}
}

// report prints the outcome of a finished job, records it and saves its
// image. It returns the machine fault, if any.
func (j *job) report(ctx context.Context, cfg *runConfig, stdout, stderr io.Writer) error {
	if j.err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", j.path, j.err)
		if errors.Is(j.err, vm.ErrInputExhausted) {
			fmt.Fprintln(stderr, "  (no more input; use -in or pipe values to stdin)")
		}
	} else if j.res.State == vm.RanOff {
		log.Noticef("%s: ran off memory at pc=%d", j.path, j.res.PC)
	}

	if cfg.dump {
		fmt.Fprintln(stdout, program.MarshalText(j.res.Memory))
	}

	if j.rec != nil {
		j.rec.Finish(j.res, j.outputs, j.err)
		if err := cfg.store.Record(context.WithoutCancel(ctx), j.rec); err != nil {
			log.Warningf("recording run of %s: %v", j.path, err)
		}
	}

	if cfg.outPath != "" {
		if err := program.Save(cfg.outPath, program.FromResult(j.res)); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return err
		}
	}
	return j.err
}
