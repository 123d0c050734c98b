package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/intcode/vm"
)

// MachineServer is the transport-independent service implementation shared
// by the Connect and gRPC handlers.
type MachineServer interface {
	RunProgram(ctx context.Context, req *RunRequest) (*RunResponse, error)
	DisassembleProgram(ctx context.Context, req *DisassembleRequest) (*DisassembleResponse, error)
	StartSession(ctx context.Context, req *StartRequest) (*SessionResponse, error)
	FeedSession(ctx context.Context, req *FeedRequest) (*SessionResponse, error)
	CloseSession(ctx context.Context, req *CloseRequest) (*CloseResponse, error)
}

// MachineService implements MachineServer. Every request runs on its own
// isolated machine.
type MachineService struct {
	runner   *Runner
	sessions *SessionStore
}

// NewMachineService creates a MachineService.
func NewMachineService(runner *Runner, sessions *SessionStore) *MachineService {
	return &MachineService{
		runner:   runner,
		sessions: sessions,
	}
}

var _ MachineServer = (*MachineService)(nil)

func invalidArgument(format string, args ...any) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}

// errorCode maps an error to a status code; the numbering is shared by
// Connect and gRPC.
func errorCode(err error) connect.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, ErrTooManySessions):
		return connect.CodeResourceExhausted
	}
	return connect.CodeOf(err)
}

// RunProgram runs a program to completion with scripted inputs.
func (s *MachineService) RunProgram(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	if len(req.Program) == 0 {
		return nil, invalidArgument("program is required")
	}
	policy, err := vm.ParseOverflowPolicy(req.Overflow)
	if err != nil {
		return nil, invalidArgument("%v", err)
	}

	o, err := s.runner.Run(ctx, req.Program, req.MaxSteps,
		vm.WithStartPC(req.StartPC),
		vm.WithInput(vm.Inputs(req.Inputs...)),
		vm.WithOverflow(policy),
	)
	if err != nil {
		return nil, connect.NewError(errorCode(err), err)
	}

	resp := &RunResponse{
		RunID:   o.RunID,
		Memory:  o.Result.Memory,
		PC:      o.Result.PC,
		State:   o.Result.State.String(),
		Outputs: o.Outputs,
		Steps:   o.Result.Steps,
	}
	if o.Fault != nil {
		resp.Fault = o.Fault.Error()
	}
	log.Debugf("run %s: %s after %d steps", o.RunID, resp.State, resp.Steps)
	return resp, nil
}

// DisassembleProgram lists a program.
func (s *MachineService) DisassembleProgram(ctx context.Context, req *DisassembleRequest) (*DisassembleResponse, error) {
	return &DisassembleResponse{
		Listing: vm.DisassembleWithName(vm.Memory(req.Program), req.Name),
	}, nil
}

// StartSession starts an interactive machine.
func (s *MachineService) StartSession(ctx context.Context, req *StartRequest) (*SessionResponse, error) {
	if len(req.Program) == 0 {
		return nil, invalidArgument("program is required")
	}
	policy, err := vm.ParseOverflowPolicy(req.Overflow)
	if err != nil {
		return nil, invalidArgument("%v", err)
	}

	_, resp, err := s.sessions.Start(ctx, req.Program,
		vm.WithStartPC(req.StartPC),
		vm.WithOverflow(policy),
		vm.WithMaxSteps(s.runner.stepLimit(0)),
	)
	if err != nil {
		return nil, connect.NewError(errorCode(err), err)
	}
	return resp, nil
}

// FeedSession supplies inputs to a session.
func (s *MachineService) FeedSession(ctx context.Context, req *FeedRequest) (*SessionResponse, error) {
	if req.SessionID == "" {
		return nil, invalidArgument("session id is required")
	}
	sess, ok := s.sessions.Get(req.SessionID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", req.SessionID))
	}
	resp, err := sess.Feed(ctx, req.Inputs)
	if err != nil {
		return nil, connect.NewError(errorCode(err), err)
	}
	return resp, nil
}

// CloseSession ends a session.
func (s *MachineService) CloseSession(ctx context.Context, req *CloseRequest) (*CloseResponse, error) {
	if _, ok := s.sessions.Get(req.SessionID); !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", req.SessionID))
	}
	s.sessions.Destroy(req.SessionID)
	return &CloseResponse{}, nil
}

// ---------------------------------------------------------------------------
// Connect handlers
// ---------------------------------------------------------------------------

// Run is the Connect handler for RunProcedure.
func (s *MachineService) Run(ctx context.Context, req *connect.Request[RunRequest]) (*connect.Response[RunResponse], error) {
	resp, err := s.RunProgram(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Disassemble is the Connect handler for DisassembleProcedure.
func (s *MachineService) Disassemble(ctx context.Context, req *connect.Request[DisassembleRequest]) (*connect.Response[DisassembleResponse], error) {
	resp, err := s.DisassembleProgram(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Start is the Connect handler for StartProcedure.
func (s *MachineService) Start(ctx context.Context, req *connect.Request[StartRequest]) (*connect.Response[SessionResponse], error) {
	resp, err := s.StartSession(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Feed is the Connect handler for FeedProcedure.
func (s *MachineService) Feed(ctx context.Context, req *connect.Request[FeedRequest]) (*connect.Response[SessionResponse], error) {
	resp, err := s.FeedSession(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Close is the Connect handler for CloseProcedure.
func (s *MachineService) Close(ctx context.Context, req *connect.Request[CloseRequest]) (*connect.Response[CloseResponse], error) {
	resp, err := s.CloseSession(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// NewMachineServiceHandler builds the Connect handler for svc, returning
// the path prefix to mount it on.
func NewMachineServiceHandler(svc *MachineService, opts ...connect.HandlerOption) (string, *muxHandler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(cborCodec{})}, opts...)
	h := &muxHandler{routes: map[string]*connect.Handler{
		RunProcedure:         connect.NewUnaryHandler(RunProcedure, svc.Run, opts...),
		DisassembleProcedure: connect.NewUnaryHandler(DisassembleProcedure, svc.Disassemble, opts...),
		StartProcedure:       connect.NewUnaryHandler(StartProcedure, svc.Start, opts...),
		FeedProcedure:        connect.NewUnaryHandler(FeedProcedure, svc.Feed, opts...),
		CloseProcedure:       connect.NewUnaryHandler(CloseProcedure, svc.Close, opts...),
	}}
	return "/" + ServiceName + "/", h
}
