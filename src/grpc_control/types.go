package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Request/response types below are hand-specified Go structs mirroring
// what protoc-gen-go/protoc-gen-go-grpc would produce for a small proto
// service; no proto toolchain runs as part of this module, so wire
// encoding goes through the JSON codec registered in codec.go instead of
// generated protobuf marshaling.

// Empty mirrors google.protobuf.Empty for request-less RPCs.
type Empty struct{}

// AddSubscriptionRequest mirrors feed.SubscriptionConfig's wire shape.
type AddSubscriptionRequest struct {
	Symbol              string `json:"symbol"`
	SecurityType        string `json:"security_type"`
	Resolution          string `json:"resolution"`
	TimeZone            string `json:"timezone"`
	FillDataForward     bool   `json:"fill_forward"`
	ExtendedMarketHours bool   `json:"extended_hours"`
}

// RemoveSubscriptionRequest identifies the subscription to tear down.
type RemoveSubscriptionRequest struct {
	Symbol       string `json:"symbol"`
	SecurityType string `json:"security_type"`
}

// SubscriptionControlResponse reports the outcome of an Add/Remove call.
type SubscriptionControlResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SubscriptionStatus is one row of ListSubscriptionsResponse.
type SubscriptionStatus struct {
	Symbol              string  `json:"symbol"`
	SecurityType        string  `json:"security_type"`
	Resolution          string  `json:"resolution"`
	IsUserDefined       bool    `json:"is_user_defined"`
	IsUniverseSelection bool    `json:"is_universe_selection"`
	RealtimePrice       float64 `json:"realtime_price"`
}

// ListSubscriptionsResponse is the enumerable snapshot of IDataFeed's
// Subscriptions property.
type ListSubscriptionsResponse struct {
	Subscriptions []*SubscriptionStatus `json:"subscriptions"`
}

// StatusResponse reports the feed's overall run state.
type StatusResponse struct {
	IsActive          bool  `json:"is_active"`
	SubscriptionCount int32 `json:"subscription_count"`
}

// -----------------------------------------------------------------------------
// Service interface + generated-style server plumbing
// -----------------------------------------------------------------------------

// MarketObserverControlServer is the control-plane surface over a running
// IDataFeed: add/remove live subscriptions and inspect feed status.
type MarketObserverControlServer interface {
	AddSubscription(context.Context, *AddSubscriptionRequest) (*SubscriptionControlResponse, error)
	RemoveSubscription(context.Context, *RemoveSubscriptionRequest) (*SubscriptionControlResponse, error)
	ListSubscriptions(context.Context, *Empty) (*ListSubscriptionsResponse, error)
	GetStatus(context.Context, *Empty) (*StatusResponse, error)
}

// UnimplementedMarketObserverControlServer embeds into ControlService for
// forward compatibility, the way protoc-gen-go-grpc's generated
// Unimplemented* type does.
type UnimplementedMarketObserverControlServer struct{}

func (UnimplementedMarketObserverControlServer) AddSubscription(context.Context, *AddSubscriptionRequest) (*SubscriptionControlResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddSubscription not implemented")
}

func (UnimplementedMarketObserverControlServer) RemoveSubscription(context.Context, *RemoveSubscriptionRequest) (*SubscriptionControlResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveSubscription not implemented")
}

func (UnimplementedMarketObserverControlServer) ListSubscriptions(context.Context, *Empty) (*ListSubscriptionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSubscriptions not implemented")
}

func (UnimplementedMarketObserverControlServer) GetStatus(context.Context, *Empty) (*StatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStatus not implemented")
}

const serviceName = "livefeed.grpc_control.MarketObserverControl"

func _MarketObserverControl_AddSubscription_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AddSubscriptionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketObserverControlServer).AddSubscription(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/AddSubscription"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MarketObserverControlServer).AddSubscription(ctx, req.(*AddSubscriptionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _MarketObserverControl_RemoveSubscription_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RemoveSubscriptionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketObserverControlServer).RemoveSubscription(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/RemoveSubscription"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MarketObserverControlServer).RemoveSubscription(ctx, req.(*RemoveSubscriptionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _MarketObserverControl_ListSubscriptions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketObserverControlServer).ListSubscriptions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/ListSubscriptions"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MarketObserverControlServer).ListSubscriptions(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _MarketObserverControl_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketObserverControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/GetStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MarketObserverControlServer).GetStatus(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// marketObserverControlServiceDesc mirrors the ServiceDesc literal
// protoc-gen-go-grpc emits.
var marketObserverControlServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*MarketObserverControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddSubscription", Handler: _MarketObserverControl_AddSubscription_Handler},
		{MethodName: "RemoveSubscription", Handler: _MarketObserverControl_RemoveSubscription_Handler},
		{MethodName: "ListSubscriptions", Handler: _MarketObserverControl_ListSubscriptions_Handler},
		{MethodName: "GetStatus", Handler: _MarketObserverControl_GetStatus_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "grpc_control.proto",
}

// RegisterMarketObserverControlServer registers srv's implementation on s.
func RegisterMarketObserverControlServer(s *grpc.Server, srv MarketObserverControlServer) {
	s.RegisterService(&marketObserverControlServiceDesc, srv)
}
