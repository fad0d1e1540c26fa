package designd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/loadcurve/pkg/logger"
)

const designServiceName = "loadcurve.v1.DesignService"

// DesignServiceServer is the gRPC surface of the designer. Requests and
// responses are google.protobuf.Struct documents with the same fields as the
// HTTP API.
type DesignServiceServer interface {
	Discretize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetExperiment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListServices(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// DesignServiceDesc describes loadcurve.v1.DesignService for grpc.Server
var DesignServiceDesc = grpc.ServiceDesc{
	ServiceName: designServiceName,
	HandlerType: (*DesignServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Discretize", Handler: unaryHandler("Discretize", DesignServiceServer.Discretize)},
		{MethodName: "GetExperiment", Handler: unaryHandler("GetExperiment", DesignServiceServer.GetExperiment)},
		{MethodName: "ListServices", Handler: unaryHandler("ListServices", DesignServiceServer.ListServices)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "loadcurve/v1/design.proto",
}

// RegisterDesignServiceServer registers srv on s
func RegisterDesignServiceServer(s grpc.ServiceRegistrar, srv DesignServiceServer) {
	s.RegisterService(&DesignServiceDesc, srv)
}

// FullMethod returns the gRPC method path of a DesignService method
func FullMethod(method string) string {
	return "/" + designServiceName + "/" + method
}

// RecoveryInterceptor turns a handler panic into codes.Internal so one bad
// request cannot take the process down
func RecoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("gRPC handler panic", "method", info.FullMethod, "panic", r)
			err = status.Errorf(codes.Internal, "internal error in %s", info.FullMethod)
		}
	}()
	return handler(ctx, req)
}

type structMethod func(DesignServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := FullMethod(method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DesignServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DesignServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// DesignGRPCServer implements DesignServiceServer over a DesignStore
type DesignGRPCServer struct {
	store *DesignStore
}

// NewDesignGRPCServer creates a gRPC server backed by store
func NewDesignGRPCServer(store *DesignStore) *DesignGRPCServer {
	return &DesignGRPCServer{store: store}
}

func (s *DesignGRPCServer) Discretize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req discretizeRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := req.run()
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(resp)
}

func (s *DesignGRPCServer) GetExperiment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := in.GetFields()["id"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	view, err := s.store.Get(id)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(map[string]any{"experiment": view})
}

func (s *DesignGRPCServer) ListServices(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return encodeStruct(map[string]any{"services": s.store.Services()})
}

// decodeStruct converts a Struct into v through its JSON form
func decodeStruct(in *structpb.Struct, v any) error {
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// encodeStruct converts v into a Struct through its JSON form
func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(doc)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// grpcError maps domain errors to gRPC status codes
func grpcError(err error) error {
	var code codes.Code
	switch httpStatus(err) {
	case http.StatusNotFound:
		code = codes.NotFound
	case http.StatusConflict:
		code = codes.AlreadyExists
	case http.StatusBadRequest:
		code = codes.InvalidArgument
	case http.StatusGone, http.StatusUnprocessableEntity:
		code = codes.FailedPrecondition
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		code = codes.Unavailable
	default:
		if errors.Is(err, context.Canceled) {
			code = codes.Canceled
		} else {
			code = codes.Internal
			logger.Error("gRPC request failed", "error", err)
		}
	}
	return status.Error(code, err.Error())
}
