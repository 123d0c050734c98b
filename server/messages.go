package server

// Procedure paths, shared by Connect and gRPC.
const (
	ServiceName = "intcode.v1.MachineService"

	RunProcedure         = "/" + ServiceName + "/Run"
	DisassembleProcedure = "/" + ServiceName + "/Disassemble"
	StartProcedure       = "/" + ServiceName + "/Start"
	FeedProcedure        = "/" + ServiceName + "/Feed"
	CloseProcedure       = "/" + ServiceName + "/Close"
)

// RunRequest runs a program to completion with scripted inputs.
type RunRequest struct {
	Program  []int64 `cbor:"program"`
	StartPC  int     `cbor:"start_pc,omitempty"`
	Inputs   []int64 `cbor:"inputs,omitempty"`
	Overflow string  `cbor:"overflow,omitempty"`  // "fault" (default) or "wrap"
	MaxSteps uint64  `cbor:"max_steps,omitempty"` // capped by the server limit
}

// RunResponse reports the end of a run. Faults are reported in-band.
type RunResponse struct {
	RunID   string  `cbor:"run_id"`
	Memory  []int64 `cbor:"memory"`
	PC      int     `cbor:"pc"`
	State   string  `cbor:"state"`
	Outputs []int64 `cbor:"outputs,omitempty"`
	Steps   uint64  `cbor:"steps"`
	Fault   string  `cbor:"fault,omitempty"`
}

// DisassembleRequest asks for a listing of a program.
type DisassembleRequest struct {
	Program []int64 `cbor:"program"`
	Name    string  `cbor:"name,omitempty"`
}

// DisassembleResponse holds the listing.
type DisassembleResponse struct {
	Listing string `cbor:"listing"`
}

// StartRequest starts an interactive session. The machine runs until it
// needs input or stops.
type StartRequest struct {
	Program  []int64 `cbor:"program"`
	StartPC  int     `cbor:"start_pc,omitempty"`
	Overflow string  `cbor:"overflow,omitempty"`
}

// FeedRequest supplies inputs to a session, one per INPUT instruction.
type FeedRequest struct {
	SessionID string  `cbor:"session_id"`
	Inputs    []int64 `cbor:"inputs"`
}

// SessionResponse reports a session after Start or Feed. Outputs holds
// only values emitted since the previous response. Memory and PC are set
// once the machine has stopped.
type SessionResponse struct {
	SessionID string  `cbor:"session_id"`
	Outputs   []int64 `cbor:"outputs,omitempty"`
	Waiting   bool    `cbor:"waiting"`
	State     string  `cbor:"state"`
	Memory    []int64 `cbor:"memory,omitempty"`
	PC        int     `cbor:"pc"`
	Steps     uint64  `cbor:"steps"`
	Fault     string  `cbor:"fault,omitempty"`
}

// CloseRequest ends a session, aborting its machine if still running.
type CloseRequest struct {
	SessionID string `cbor:"session_id"`
}

// CloseResponse acknowledges a CloseRequest.
type CloseResponse struct{}
