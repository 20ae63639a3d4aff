package grpc_control

import (
	"context"
	"fmt"
	"time"

	"livefeed/src/feed"
	"livefeed/src/logger"
	"livefeed/src/utils"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// farFuture is the subscription end time used for gRPC-added live
// subscriptions, which have no natural expiry unlike the finite windows a
// backtest would pass.
var farFuture = time.Now().AddDate(100, 0, 0)

// ControlService implements MarketObserverControlServer by calling straight
// into a running IDataFeed, the same shape as the teacher's ControlService
// wrapping a MultiSourceManager, generalized from "control data sources" to
// "control live subscriptions".
type ControlService struct {
	UnimplementedMarketObserverControlServer
	Feed   feed.IDataFeed
	Logger *logger.Logger
}

func NewControlService(f feed.IDataFeed, log *logger.Logger) *ControlService {
	return &ControlService{Feed: f, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *ControlService) AddSubscription(ctx context.Context, req *AddSubscriptionRequest) (*SubscriptionControlResponse, error) {
	if req.Symbol == "" {
		return nil, status.Error(codes.InvalidArgument, "symbol is required")
	}

	secType, err := feed.ParseSecurityType(req.SecurityType)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resolution, increment, err := feed.ParseResolution(req.Resolution)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	loc := time.UTC
	if req.TimeZone != "" {
		if l, err := time.LoadLocation(req.TimeZone); err == nil {
			loc = l
		} else {
			s.Logger.Warning("AddSubscription: unknown timezone %q, defaulting to UTC: %v", req.TimeZone, err)
		}
	}

	sym := feed.Symbol{Value: req.Symbol, Type: secType}
	cfg := feed.SubscriptionConfig{
		Symbol:              sym,
		SecurityType:        secType,
		Resolution:          resolution,
		Increment:           increment,
		TimeZone:            loc,
		FillDataForward:     req.FillDataForward,
		ExtendedMarketHours: req.ExtendedMarketHours,
		DataType:            "TradeBar",
	}
	sec := feed.Security{Symbol: sym}

	_, err = s.Feed.AddSubscription(cfg, sec, time.Now(), farFuture, true, utils.NewCalendarExchangeHours(req.Symbol))
	if err != nil {
		s.Logger.Error("gRPC: AddSubscription(%s) failed: %v", req.Symbol, err)
		return &SubscriptionControlResponse{Success: false, Message: err.Error()}, nil
	}

	s.Logger.Info("gRPC: AddSubscription(%s, %s, %s) succeeded", req.Symbol, req.SecurityType, req.Resolution)
	return &SubscriptionControlResponse{Success: true, Message: fmt.Sprintf("subscribed to %s", req.Symbol)}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) RemoveSubscription(ctx context.Context, req *RemoveSubscriptionRequest) (*SubscriptionControlResponse, error) {
	if req.Symbol == "" {
		return nil, status.Error(codes.InvalidArgument, "symbol is required")
	}

	secType, err := feed.ParseSecurityType(req.SecurityType)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	sec := feed.Security{Symbol: feed.Symbol{Value: req.Symbol, Type: secType}}
	if err := s.Feed.RemoveSubscription(sec); err != nil {
		return &SubscriptionControlResponse{Success: false, Message: err.Error()}, nil
	}

	s.Logger.Info("gRPC: RemoveSubscription(%s) succeeded", req.Symbol)
	return &SubscriptionControlResponse{Success: true, Message: fmt.Sprintf("unsubscribed from %s", req.Symbol)}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSubscriptions(ctx context.Context, req *Empty) (*ListSubscriptionsResponse, error) {
	subs := s.Feed.Subscriptions()
	out := make([]*SubscriptionStatus, 0, len(subs))
	for _, sub := range subs {
		out = append(out, &SubscriptionStatus{
			Symbol:              sub.Symbol().Value,
			SecurityType:        sub.Security.Symbol.Type.String(),
			Resolution:          sub.Config.Resolution.String(),
			IsUserDefined:       sub.IsUserDefined,
			IsUniverseSelection: sub.IsUniverseSelection,
			RealtimePrice:       sub.RealtimePrice(),
		})
	}
	return &ListSubscriptionsResponse{Subscriptions: out}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *Empty) (*StatusResponse, error) {
	return &StatusResponse{
		IsActive:          s.Feed.IsActive(),
		SubscriptionCount: int32(len(s.Feed.Subscriptions())),
	}, nil
}
