package feed

import (
	"context"
	"time"
)

// IDataFeed is the public surface spec §6 names. *Feed implements it;
// callers that only need to drive subscriptions (e.g. the gRPC control
// plane) should depend on this interface rather than the concrete type.
type IDataFeed interface {
	AddSubscription(cfg SubscriptionConfig, sec Security, utcStart, utcEnd time.Time, isUserDefined bool, exchangeHours ExchangeHours) (*Subscription, error)
	RemoveSubscription(sec Security) error
	Run(ctx context.Context) error
	Exit()
	Subscriptions() []*Subscription
	IsActive() bool
}

var _ IDataFeed = (*Feed)(nil)
