package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RegisterMachineServer registers srv on a gRPC server. Messages use the
// "cbor" codec, so clients must call with grpc.CallContentSubtype("cbor").
func RegisterMachineServer(s grpc.ServiceRegistrar, srv MachineServer) {
	s.RegisterService(&machineServiceDesc, srv)
}

var machineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MachineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Run", Handler: unaryHandler(RunProcedure, MachineServer.RunProgram)},
		{MethodName: "Disassemble", Handler: unaryHandler(DisassembleProcedure, MachineServer.DisassembleProgram)},
		{MethodName: "Start", Handler: unaryHandler(StartProcedure, MachineServer.StartSession)},
		{MethodName: "Feed", Handler: unaryHandler(FeedProcedure, MachineServer.FeedSession)},
		{MethodName: "Close", Handler: unaryHandler(CloseProcedure, MachineServer.CloseSession)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "intcode/v1/machine.proto",
}

// unaryHandler adapts a MachineServer method to a gRPC method handler.
func unaryHandler[Req, Res any](
	method string,
	call func(MachineServer, context.Context, *Req) (*Res, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			res, err := call(srv.(MachineServer), ctx, req.(*Req))
			if err != nil {
				return nil, toStatus(err)
			}
			return res, nil
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, handler)
	}
}

func toStatus(err error) error {
	msg := err.Error()
	if ce, ok := err.(interface{ Message() string }); ok {
		msg = ce.Message()
	}
	return status.Error(codes.Code(errorCode(err)), msg)
}
