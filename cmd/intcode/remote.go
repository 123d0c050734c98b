package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/chazu/intcode/console"
	"github.com/chazu/intcode/manifest"
	"github.com/chazu/intcode/program"
	"github.com/chazu/intcode/server"
)

// remoteResult is the part of a Run or session response the CLI reports.
type remoteResult struct {
	memory []int64
	state  string
	steps  uint64
	fault  string
	runID  string
}

// runRemote runs each program on a machine server. With -in the inputs are
// sent up front in one Run; otherwise a session is started and fed from
// the console one value at a time.
func runRemote(ctx context.Context, url string, m *manifest.Manifest, cfg *runConfig, paths []string, stdin io.Reader, stdout, stderr io.Writer) int {
	client := server.NewClient(nil, url)
	consoleIn, consoleOut := cfg.streams(stdin, stdout, stderr)

	code := 0
	for _, path := range paths {
		img, err := program.Load(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}

		if cfg.disassemble {
			resp, err := client.Disassemble(ctx, &server.DisassembleRequest{
				Program: img.Memory,
				Name:    filepath.Base(path),
			})
			if err != nil {
				fmt.Fprintf(stderr, "%s: %v\n", path, err)
				return 1
			}
			fmt.Fprint(stdout, resp.Listing)
			continue
		}

		startPC := m.Machine.StartPC
		if !cfg.startPCSet && img.PC != 0 {
			startPC = img.PC
		}
		if len(paths) > 1 {
			fmt.Fprintf(stdout, "== %s ==\n", path)
		}

		var res *remoteResult
		if cfg.scripted {
			res, err = runScripted(ctx, client, m, cfg, img.Memory, startPC, consoleOut)
		} else {
			res, err = runSession(ctx, client, m, img.Memory, startPC, consoleIn, consoleOut)
		}
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			return 1
		}

		if cfg.dump {
			fmt.Fprintln(stdout, program.MarshalText(res.memory))
		}
		if res.fault != "" {
			fmt.Fprintf(stderr, "%s: %s\n", path, res.fault)
			code = 1
		}
		log.Infof("%s: %s after %d steps %s", path, res.state, res.steps, res.runID)
	}
	return code
}

func runScripted(ctx context.Context, client *server.Client, m *manifest.Manifest, cfg *runConfig, mem []int64, startPC int, out *console.Output) (*remoteResult, error) {
	resp, err := client.Run(ctx, &server.RunRequest{
		Program:  mem,
		StartPC:  startPC,
		Inputs:   cfg.inputs,
		Overflow: m.Machine.Overflow,
		MaxSteps: m.Machine.MaxSteps,
	})
	if err != nil {
		return nil, err
	}
	for _, v := range resp.Outputs {
		out.Output(v)
	}
	return &remoteResult{
		memory: resp.Memory,
		state:  resp.State,
		steps:  resp.Steps,
		fault:  resp.Fault,
		runID:  resp.RunID,
	}, nil
}

// runSession drives a remote session, reading one console value for each
// INPUT the remote machine waits on.
func runSession(ctx context.Context, client *server.Client, m *manifest.Manifest, mem []int64, startPC int, in *console.Input, out *console.Output) (*remoteResult, error) {
	resp, err := client.Start(ctx, &server.StartRequest{
		Program:  mem,
		StartPC:  startPC,
		Overflow: m.Machine.Overflow,
	})
	if err != nil {
		return nil, err
	}
	id := resp.SessionID
	defer func() {
		if err := client.Close(context.WithoutCancel(ctx), &server.CloseRequest{SessionID: id}); err != nil {
			log.Warningf("closing session %s: %v", id, err)
		}
	}()

	for {
		for _, v := range resp.Outputs {
			out.Output(v)
		}
		if !resp.Waiting {
			break
		}
		v, err := in.Input(ctx)
		if err != nil {
			return nil, fmt.Errorf("input: %w", err)
		}
		if resp, err = client.Feed(ctx, &server.FeedRequest{SessionID: id, Inputs: []int64{v}}); err != nil {
			return nil, err
		}
	}

	return &remoteResult{
		memory: resp.Memory,
		state:  resp.State,
		steps:  resp.Steps,
		fault:  resp.Fault,
		runID:  "session " + id,
	}, nil
}
