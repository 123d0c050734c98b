package server

import (
	"errors"
	"strings"
	"testing"

	"connectrpc.com/connect"
)

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_Halts(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Service.Run(bg(), connectReq(&RunRequest{Program: addProgram}))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if resp.Msg.State != "halted" {
		t.Errorf("State = %q, want halted", resp.Msg.State)
	}
	if resp.Msg.PC != -1 {
		t.Errorf("PC = %d, want -1", resp.Msg.PC)
	}
	if !equalInts(resp.Msg.Memory, []int64{2, 0, 0, 0, 99}) {
		t.Errorf("Memory = %v", resp.Msg.Memory)
	}
	if resp.Msg.RunID == "" {
		t.Error("Run should return a run id")
	}
}

func TestRun_ScriptedInputs(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Service.Run(bg(), connectReq(&RunRequest{
		Program: sumProgram,
		Inputs:  []int64{40, 2},
	}))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !equalInts(resp.Msg.Outputs, []int64{42}) {
		t.Errorf("Outputs = %v, want [42]", resp.Msg.Outputs)
	}
}

func TestRun_FaultIsInBand(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Service.Run(bg(), connectReq(&RunRequest{Program: []int64{42}}))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if resp.Msg.State != "faulted" {
		t.Errorf("State = %q, want faulted", resp.Msg.State)
	}
	if resp.Msg.Fault == "" {
		t.Error("Fault should describe the unknown opcode")
	}
}

func TestRun_RanOff(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Service.Run(bg(), connectReq(&RunRequest{Program: []int64{1101, 1, 1, 0}}))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if resp.Msg.State != "ran-off" {
		t.Errorf("State = %q, want ran-off", resp.Msg.State)
	}
	if resp.Msg.Fault != "" {
		t.Errorf("Fault = %q, want none", resp.Msg.Fault)
	}
}

func TestRun_StepLimitCapped(t *testing.T) {
	env := newTestEnv(t)

	// The runner allows 1000 steps; asking for more is capped.
	resp, err := env.Service.Run(bg(), connectReq(&RunRequest{
		Program:  loopProgram,
		MaxSteps: 1 << 40,
	}))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if resp.Msg.Steps != 1000 {
		t.Errorf("Steps = %d, want 1000", resp.Msg.Steps)
	}
	if !strings.Contains(resp.Msg.Fault, "step limit") {
		t.Errorf("Fault = %q, want step limit", resp.Msg.Fault)
	}
}

func TestRun_RecordsHistory(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Service.Run(bg(), connectReq(&RunRequest{Program: echoProgram, Inputs: []int64{9}}))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	run, err := env.History.Get(bg(), resp.Msg.RunID)
	if err != nil {
		t.Fatalf("history Get: %v", err)
	}
	if run.State != "halted" || !equalInts(run.Outputs, []int64{9}) {
		t.Errorf("recorded run = %+v", run)
	}
}

func TestRun_InvalidArguments(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  *RunRequest
	}{
		{"empty program", &RunRequest{}},
		{"bad overflow", &RunRequest{Program: addProgram, Overflow: "saturate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Service.Run(bg(), connectReq(tt.req))
			if connect.CodeOf(err) != connect.CodeInvalidArgument {
				t.Errorf("code = %v, want invalid_argument (err %v)", connect.CodeOf(err), err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Disassemble
// ---------------------------------------------------------------------------

func TestDisassemble(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Service.Disassemble(bg(), connectReq(&DisassembleRequest{
		Program: addProgram,
		Name:    "add",
	}))
	if err != nil {
		t.Fatalf("Disassemble returned error: %v", err)
	}
	if !strings.Contains(resp.Msg.Listing, "add") || !strings.Contains(resp.Msg.Listing, "hlt") {
		t.Errorf("Listing = %q", resp.Msg.Listing)
	}
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func TestSession_StartFeedClose(t *testing.T) {
	env := newTestEnv(t)

	start, err := env.Service.Start(bg(), connectReq(&StartRequest{Program: sumProgram}))
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !start.Msg.Waiting {
		t.Fatal("session should be waiting for input")
	}

	feed, err := env.Service.Feed(bg(), connectReq(&FeedRequest{
		SessionID: start.Msg.SessionID,
		Inputs:    []int64{1},
	}))
	if err != nil {
		t.Fatalf("Feed returned error: %v", err)
	}
	if !feed.Msg.Waiting {
		t.Fatal("session should wait for the second input")
	}

	feed, err = env.Service.Feed(bg(), connectReq(&FeedRequest{
		SessionID: start.Msg.SessionID,
		Inputs:    []int64{2},
	}))
	if err != nil {
		t.Fatalf("Feed returned error: %v", err)
	}
	if feed.Msg.Waiting || feed.Msg.State != "halted" {
		t.Errorf("Waiting = %v, State = %q; want stopped and halted", feed.Msg.Waiting, feed.Msg.State)
	}
	if !equalInts(feed.Msg.Outputs, []int64{3}) {
		t.Errorf("Outputs = %v, want [3]", feed.Msg.Outputs)
	}

	if _, err := env.Service.Close(bg(), connectReq(&CloseRequest{SessionID: start.Msg.SessionID})); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if env.Sessions.Len() != 0 {
		t.Errorf("Sessions.Len() = %d after Close", env.Sessions.Len())
	}
}

func TestSession_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Service.Feed(bg(), connectReq(&FeedRequest{SessionID: "nope", Inputs: []int64{1}}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("Feed code = %v, want not_found", connect.CodeOf(err))
	}
	_, err = env.Service.Close(bg(), connectReq(&CloseRequest{SessionID: "nope"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("Close code = %v, want not_found", connect.CodeOf(err))
	}
}

func TestSession_Limit(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 4; i++ {
		if _, err := env.Service.Start(bg(), connectReq(&StartRequest{Program: echoProgram})); err != nil {
			t.Fatalf("Start %d returned error: %v", i, err)
		}
	}
	_, err := env.Service.Start(bg(), connectReq(&StartRequest{Program: echoProgram}))
	if connect.CodeOf(err) != connect.CodeResourceExhausted {
		t.Errorf("code = %v, want resource_exhausted", connect.CodeOf(err))
	}
	if !errors.Is(err, ErrTooManySessions) {
		t.Errorf("err = %v, want ErrTooManySessions", err)
	}
}
