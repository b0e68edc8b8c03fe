package server

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/convgraph/internal/model"
	"github.com/alfredjeanlab/convgraph/internal/rpc"
)

// conversionAPI is the handler type behind rpc.ServiceName.
type conversionAPI interface {
	FindConverters(ctx context.Context, in, out string) (*rpc.FindConvertersResponse, error)
	ListRegistrations(ctx context.Context, filter string) (*rpc.ListRegistrationsResponse, error)
}

type call func(s *Server, ctx context.Context, req *structpb.Struct) (any, error)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: rpc.ServiceName,
	HandlerType: (*conversionAPI)(nil),
	Methods: []grpc.MethodDesc{
		unary(rpc.MethodFindConverters, func(s *Server, ctx context.Context, req *structpb.Struct) (any, error) {
			var in rpc.FindConvertersRequest
			if err := decodeRequest(req, &in); err != nil {
				return nil, err
			}
			return s.FindConverters(ctx, in.In, in.Out)
		}),
		unary(rpc.MethodListRegistrations, func(s *Server, ctx context.Context, req *structpb.Struct) (any, error) {
			var in rpc.ListRegistrationsRequest
			if err := decodeRequest(req, &in); err != nil {
				return nil, err
			}
			return s.ListRegistrations(ctx, in.Filter)
		}),
		unary(rpc.MethodGetRegistration, func(s *Server, ctx context.Context, req *structpb.Struct) (any, error) {
			var in rpc.RegistrationRequest
			if err := decodeRequest(req, &in); err != nil {
				return nil, err
			}
			return s.GetRegistration(ctx, in.ID)
		}),
		unary(rpc.MethodRegister, func(s *Server, ctx context.Context, req *structpb.Struct) (any, error) {
			var reg model.Registration
			if err := decodeRequest(req, &reg); err != nil {
				return nil, err
			}
			return s.Register(ctx, &reg)
		}),
		unary(rpc.MethodModify, func(s *Server, ctx context.Context, req *structpb.Struct) (any, error) {
			var reg model.Registration
			if err := decodeRequest(req, &reg); err != nil {
				return nil, err
			}
			return s.Modify(ctx, &reg)
		}),
		unary(rpc.MethodUnregister, func(s *Server, ctx context.Context, req *structpb.Struct) (any, error) {
			var in rpc.RegistrationRequest
			if err := decodeRequest(req, &in); err != nil {
				return nil, err
			}
			return struct{}{}, s.Unregister(ctx, in.ID)
		}),
		unary(rpc.MethodGetGraph, func(s *Server, _ context.Context, _ *structpb.Struct) (any, error) {
			return s.Graph(), nil
		}),
		unary(rpc.MethodListPeers, func(s *Server, _ context.Context, _ *structpb.Struct) (any, error) {
			return s.Peers(), nil
		}),
	},
	Streams: []grpc.StreamDesc{},
}

func decodeRequest(req *structpb.Struct, v any) error {
	if err := rpc.FromStruct(req, v); err != nil {
		return inputError(err.Error())
	}
	return nil
}

// unary adapts fn to a grpc.MethodDesc, running it through the server's
// interceptor chain and encoding the result as a Struct.
func unary(name string, fn call) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(structpb.Struct)
			if err := dec(req); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				out, err := fn(srv.(*Server), ctx, req.(*structpb.Struct))
				if err != nil {
					return nil, grpcError(err)
				}
				resp, err := rpc.ToStruct(out)
				if err != nil {
					return nil, status.Error(codes.Internal, err.Error())
				}
				return resp, nil
			}
			if interceptor == nil {
				return handler(ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpc.FullMethod(name)}
			return interceptor(ctx, req, info, handler)
		},
	}
}

// grpcError maps service errors onto gRPC status codes.
func grpcError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := codes.Internal
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		switch statusFor(err) {
		case http.StatusBadRequest:
			code = codes.InvalidArgument
		case http.StatusNotFound:
			code = codes.NotFound
		case http.StatusConflict:
			code = codes.AlreadyExists
		case http.StatusServiceUnavailable:
			code = codes.Unavailable
		}
	}
	if code == codes.Internal {
		return status.Error(code, "internal server error")
	}
	return status.Error(code, err.Error())
}

// NewGRPCServer creates a gRPC server with standard interceptors and
// registers the ConversionService and the health service. Messages are
// structpb.Struct with no compiled descriptor, so reflection is not offered.
func NewGRPCServer(s *Server, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			AuthInterceptor(authToken),
		),
	)

	srv.RegisterService(&serviceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}
