package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/intcode/history"
	"github.com/chazu/intcode/program"
)

// handleHistoryCommand processes the `intcode history` subcommand.
// Usage:
//
//	intcode history              # 20 most recent runs
//	intcode history -n 5         # 5 most recent runs
//	intcode history prog.ic      # runs of one program
func handleHistoryCommand(args []string) {
	limit := 20
	var path string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-n", "--limit":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: -n requires a count")
				os.Exit(2)
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: bad count %q\n", args[i+1])
				os.Exit(2)
			}
			limit = n
			i++
		default:
			path = args[i]
		}
	}

	m, err := loadManifest()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
		os.Exit(1)
	}
	configureLogging(m.Log.Verbosity, m.Log.Path)

	store, err := history.Open(m.HistoryPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	runs, err := listRuns(context.Background(), store, path, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printRuns(os.Stdout, runs)
}

// listRuns returns recent runs, or the runs of the program at path.
func listRuns(ctx context.Context, store *history.Store, path string, limit int) ([]*history.Run, error) {
	if path == "" {
		return store.List(ctx, limit)
	}
	img, err := program.Load(path)
	if err != nil {
		return nil, err
	}
	runs, err := store.ListByProgram(ctx, history.Digest(img.Memory))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func printRuns(w io.Writer, runs []*history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %-8s pc=%-5d steps=%-8d %s\n",
			r.ID[:8], r.StartedAt.Format("2006-01-02 15:04:05"),
			r.State, r.FinalPC, r.Steps, formatOutputs(r.Outputs))
		if r.Fault != "" {
			fmt.Fprintf(w, "          %s\n", r.Fault)
		}
	}
}

func formatOutputs(outputs []int64) string {
	const maxShown = 8
	if len(outputs) == 0 {
		return "-"
	}
	shown := outputs
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}
	var sb strings.Builder
	sb.WriteString("out=")
	sb.WriteString(program.MarshalText(shown))
	if len(outputs) > maxShown {
		fmt.Fprintf(&sb, ",… (%d)", len(outputs))
	}
	return sb.String()
}
