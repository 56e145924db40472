package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

// jsonCodec lets the order service speak gRPC without generated protobuf
// types. Clients select it with grpc.CallContentSubtype("json").
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

const orderServiceName = "storefront.v1.OrderService"

type CreateOrderRequest struct {
	RequestID       string          `json:"request_id"`
	ShippingAddress domain.Address  `json:"shipping_address"`
	BillingAddress  *domain.Address `json:"billing_address,omitempty"`
	PaymentMethod   string          `json:"payment_method"`
	Notes           string          `json:"notes,omitempty"`
}

type CancelOrderRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

type UpdateOrderStatusRequest struct {
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	Note           string `json:"note,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
}

type GetOrderStatsRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type OrderReply struct {
	Order *domain.Order `json:"order"`
}

type StatsReply struct {
	Report *domain.StatsReport `json:"report"`
}

type OrderServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*OrderReply, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*OrderReply, error)
	UpdateOrderStatus(context.Context, *UpdateOrderStatusRequest) (*OrderReply, error)
	GetOrderStats(context.Context, *GetOrderStatsRequest) (*StatsReply, error)
}

type GRPCHandler struct {
	orderService *service.OrderService
}

var _ OrderServiceServer = (*GRPCHandler)(nil)

func NewGRPCHandler(orderService *service.OrderService) *GRPCHandler {
	return &GRPCHandler{orderService: orderService}
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderReply, error) {
	actor, err := actorFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	order, err := h.orderService.CreateOrder(ctx, service.CreateOrderInput{
		Actor:           actor,
		RequestID:       req.RequestID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &OrderReply{Order: order}, nil
}

func (h *GRPCHandler) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*OrderReply, error) {
	actor, err := actorFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	order, err := h.orderService.CancelOrder(ctx, req.OrderID, actor, req.Reason)
	if err != nil {
		return nil, grpcError(err)
	}
	return &OrderReply{Order: order}, nil
}

func (h *GRPCHandler) UpdateOrderStatus(ctx context.Context, req *UpdateOrderStatusRequest) (*OrderReply, error) {
	actor, err := adminFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	order, err := h.orderService.UpdateOrderStatus(ctx, service.UpdateStatusInput{
		OrderID:         req.OrderID,
		Status:          req.Status,
		Note:            req.Note,
		TrackingNumber:  req.TrackingNumber,
		TrackingCarrier: req.Carrier,
		ActorID:         actor.ID,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &OrderReply{Order: order}, nil
}

func (h *GRPCHandler) GetOrderStats(ctx context.Context, req *GetOrderStatsRequest) (*StatsReply, error) {
	if _, err := adminFromMetadata(ctx); err != nil {
		return nil, err
	}
	from, err := parseDate(req.StartDate, false)
	if err != nil {
		return nil, grpcError(err)
	}
	to, err := parseDate(req.EndDate, true)
	if err != nil {
		return nil, grpcError(err)
	}
	report, err := h.orderService.GetOrderStats(ctx, from, to)
	if err != nil {
		return nil, grpcError(err)
	}
	return &StatsReply{Report: report}, nil
}

func actorFromMetadata(ctx context.Context) (domain.Actor, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	first := func(key string) string {
		if v := md.Get(key); len(v) > 0 {
			return v[0]
		}
		return ""
	}
	actor, ok := newActor(first("x-user-id"), first("x-user-role"), first("x-user-email"))
	if !ok {
		return domain.Actor{}, status.Error(codes.Unauthenticated, "authentication required")
	}
	return actor, nil
}

func adminFromMetadata(ctx context.Context) (domain.Actor, error) {
	actor, err := actorFromMetadata(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if !actor.IsAdmin() {
		return domain.Actor{}, status.Error(codes.PermissionDenied, "admin access required")
	}
	return actor, nil
}

func grpcError(err error) error {
	var code codes.Code
	switch domain.KindOf(err) {
	case domain.KindValidation:
		code = codes.InvalidArgument
	case domain.KindNotFound:
		code = codes.NotFound
	case domain.KindUnauthorized:
		code = codes.PermissionDenied
	case domain.KindEmptyCart, domain.KindSizeUnavailable, domain.KindInsufficientStock,
		domain.KindNotCancellable, domain.KindIllegalTransition:
		code = codes.FailedPrecondition
	case domain.KindConflict:
		code = codes.AlreadyExists
		if errors.Is(err, domain.ErrOptimisticLock) {
			code = codes.Aborted
		}
	default:
		slog.Error("gRPC request failed", "err", err)
		return status.Error(codes.Internal, "internal server error")
	}
	return status.Error(code, err.Error())
}

func unaryHandler[Req any, Resp any](
	method string,
	call func(OrderServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	fullMethod := "/" + orderServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OrderServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(OrderServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: orderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("CreateOrder", OrderServiceServer.CreateOrder),
		unaryHandler("CancelOrder", OrderServiceServer.CancelOrder),
		unaryHandler("UpdateOrderStatus", OrderServiceServer.UpdateOrderStatus),
		unaryHandler("GetOrderStats", OrderServiceServer.GetOrderStats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/order_service",
}

// OrderServiceClient calls the order service over the JSON codec.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsonCodec{}.Name())}, opts...)
	return c.cc.Invoke(ctx, "/"+orderServiceName+"/"+method, in, out, opts...)
}

func (c *OrderServiceClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	out := new(OrderReply)
	if err := c.invoke(ctx, "CreateOrder", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) CancelOrder(ctx context.Context, in *CancelOrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	out := new(OrderReply)
	if err := c.invoke(ctx, "CancelOrder", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) UpdateOrderStatus(ctx context.Context, in *UpdateOrderStatusRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	out := new(OrderReply)
	if err := c.invoke(ctx, "UpdateOrderStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) GetOrderStats(ctx context.Context, in *GetOrderStatsRequest, opts ...grpc.CallOption) (*StatsReply, error) {
	out := new(StatsReply)
	if err := c.invoke(ctx, "GetOrderStats", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
