package handler

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
	"github.com/rl1809/fourthcafe-inventory/internal/core/service"
)

const (
	InventoryServiceName = "inventory.v1.InventoryService"
	createMethod         = "/" + InventoryServiceName + "/Create"
	getMethod            = "/" + InventoryServiceName + "/Get"
)

// InventoryServer is served over protobuf well-known types, so no generated
// stubs are needed.
type InventoryServer interface {
	Create(ctx context.Context, req *emptypb.Empty) (*wrapperspb.Int64Value, error)
	Get(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error)
}

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: InventoryServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Create", Handler: createHandler},
		{MethodName: "Get", Handler: getHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1/inventory.proto",
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}

type GRPCHandler struct {
	inventoryService *service.InventoryService
	log              logrus.FieldLogger
}

func NewGRPCHandler(inventoryService *service.InventoryService, log logrus.FieldLogger) *GRPCHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GRPCHandler{inventoryService: inventoryService, log: log}
}

func (h *GRPCHandler) Create(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	rec, err := h.inventoryService.Create(ctx)
	if err != nil {
		h.log.WithError(err).Error("grpc create failed")
		return nil, status.Error(codes.Internal, "internal error")
	}
	return wrapperspb.Int64(rec.ID), nil
}

func (h *GRPCHandler) Get(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error) {
	if req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "invalid id")
	}

	rec, err := h.inventoryService.Get(ctx, req.GetValue())
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, status.Error(codes.NotFound, "not found")
	}
	if err != nil {
		h.log.WithError(err).Error("grpc get failed")
		return nil, status.Error(codes.Internal, "internal error")
	}
	return wrapperspb.Int64(rec.ID), nil
}

func createHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).Create(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: createMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServer).Create(ctx, req.(*emptypb.Empty))
	})
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServer).Get(ctx, req.(*wrapperspb.Int64Value))
	})
}

// InventoryClient calls InventoryServer over a client connection.
type InventoryClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryClient(cc grpc.ClientConnInterface) *InventoryClient {
	return &InventoryClient{cc: cc}
}

func (c *InventoryClient) Create(ctx context.Context, opts ...grpc.CallOption) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, createMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *InventoryClient) Get(ctx context.Context, id int64, opts ...grpc.CallOption) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, getMethod, wrapperspb.Int64(id), out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}
