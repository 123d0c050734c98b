// intcode CLI - runs, disassembles and serves Intcode programs
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/intcode/console"
	"github.com/chazu/intcode/history"
	"github.com/chazu/intcode/manifest"
	"github.com/chazu/intcode/program"
)

var log = commonlog.GetLogger("intcode.cli")

func main() {
	// Subcommands
	if len(os.Args) > 1 && os.Args[1] == "history" {
		handleHistoryCommand(os.Args[2:])
		return
	}

	verbose := flag.Int("v", 0, "Log verbosity (-4 quiet … 2 debug)")
	inputs := flag.String("in", "", "Comma-separated inputs instead of reading stdin (e.g. '5,8')")
	startPC := flag.Int("pc", -1, "Initial program counter (default: the image's pc, else 0)")
	disasm := flag.Bool("d", false, "Disassemble instead of running")
	dump := flag.Bool("dump", false, "Print final memory after the run")
	outPath := flag.String("o", "", "Save the final memory image (.ic text, .icb CBOR, .icw wire)")
	overflow := flag.String("overflow", "", "Arithmetic overflow policy: fault or wrap")
	maxSteps := flag.Uint64("max-steps", 0, "Abort after this many instructions (0 = unlimited)")
	trace := flag.Bool("trace", false, "Log every instruction (implies -v 2)")
	recordHistory := flag.Bool("history", false, "Record runs in the history database")
	serveMode := flag.Bool("serve", false, "Start the machine server (Connect HTTP/CBOR)")
	addr := flag.String("addr", "", "Server address (used with -serve)")
	grpcAddr := flag.String("grpc", "", "Also serve gRPC on this address (used with -serve)")
	remote := flag.String("remote", "", "Run on a machine server at this URL instead of locally")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: intcode [options] program...\n\n")
		fmt.Fprintf(os.Stderr, "Runs Intcode programs. Inputs are read one integer per line from stdin\n")
		fmt.Fprintf(os.Stderr, "unless -in is given; outputs are printed one per line.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  intcode prog.ic                 # Run interactively\n")
		fmt.Fprintf(os.Stderr, "  intcode -in 8 prog.ic           # Run with scripted input\n")
		fmt.Fprintf(os.Stderr, "  intcode -in 1 a.ic b.ic         # Run several programs concurrently\n")
		fmt.Fprintf(os.Stderr, "  intcode -d prog.ic              # Disassemble\n")
		fmt.Fprintf(os.Stderr, "  intcode -o out.icb prog.ic      # Save the final image as CBOR\n")
		fmt.Fprintf(os.Stderr, "  intcode history -n 10           # Show recent runs\n")
		fmt.Fprintf(os.Stderr, "\nServer:\n")
		fmt.Fprintf(os.Stderr, "  intcode -serve                  # Serve on :4568\n")
		fmt.Fprintf(os.Stderr, "  intcode -serve -grpc :4569      # Also serve gRPC\n")
		fmt.Fprintf(os.Stderr, "  intcode -remote http://host:4568 -in 8 prog.ic\n")
	}
	flag.Parse()

	m, err := loadManifest()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
		os.Exit(1)
	}

	// Flags override the manifest.
	verbosity := m.Log.Verbosity
	if isFlagSet("v") {
		verbosity = *verbose
	}
	if *trace || m.Machine.Trace {
		m.Machine.Trace = true
		verbosity = max(verbosity, 2)
	}
	configureLogging(verbosity, m.Log.Path)

	if *overflow != "" {
		m.Machine.Overflow = *overflow
	}
	if isFlagSet("max-steps") {
		m.Machine.MaxSteps = *maxSteps
	}
	if *startPC >= 0 {
		m.Machine.StartPC = *startPC
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serveMode {
		if *addr != "" {
			m.Server.Addr = *addr
		}
		if *grpcAddr != "" {
			m.Server.GRPCAddr = *grpcAddr
		}
		if err := serve(ctx, m, *recordHistory || m.History.Enabled); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := &runConfig{
		startPCSet:  *startPC >= 0,
		disassemble: *disasm,
		dump:        *dump,
		outPath:     *outPath,
	}
	cfg.consoleIn, cfg.consoleOut = console.Stdio(m.Console.Prompt, m.Console.OutputPrefix)
	if isFlagSet("in") {
		values, err := program.ParseText(*inputs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: bad -in: %v\n", err)
			os.Exit(2)
		}
		cfg.inputs = values
		cfg.scripted = true
	}
	if cfg.machineOpts, err = m.MachineOptions(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if *remote != "" {
		os.Exit(runRemote(ctx, *remote, m, cfg, paths, os.Stdin, os.Stdout, os.Stderr))
	}

	if (*recordHistory || m.History.Enabled) && !cfg.disassemble {
		store, err := history.Open(m.HistoryPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening history: %v\n", err)
			os.Exit(1)
		}
		cfg.store = store
	}

	code := runPrograms(ctx, cfg, paths, os.Stdin, os.Stdout, os.Stderr)
	if cfg.store != nil {
		cfg.store.Close()
	}
	stop()
	os.Exit(code)
}

// loadManifest finds intcode.toml above the working directory, falling
// back to the defaults.
func loadManifest() (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
	}
	return m, nil
}

func configureLogging(verbosity int, path string) {
	if path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &path)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
