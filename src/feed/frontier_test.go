package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"livefeed/src/logger"
)

func newTestFeed(t *testing.T, clock TimeProvider, q DataQueueHandler) (*Feed, *ChannelBridge) {
	t.Helper()
	ex := NewExchange(q, logger.NewLogger(nil, "test"))
	bridge := NewChannelBridge(16)
	f := NewFeed(clock, q, ex, bridge, logger.NewLogger(nil, "test"))
	t.Cleanup(f.Exit)
	return f, bridge
}

// Heartbeat: a second-resolution subscription with no incoming data must
// still cause a TimeSlice roughly once a second (spec §8 testable property
// #8 — at least one emission per second even with no data).
func TestFeed_EmitsHeartbeatWithNoData(t *testing.T) {
	clock := NewManualTimeProvider(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	q := newFakeQueue()
	f, bridge := newTestFeed(t, clock, q)

	sym := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	cfg := SubscriptionConfig{Symbol: sym, SecurityType: SecurityTypeEquity, Resolution: ResolutionSecond, Increment: time.Second, TimeZone: time.UTC}
	_, err := f.AddSubscription(cfg, Security{Symbol: sym}, clock.Now(), clock.Now().Add(time.Hour), true, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go f.Run(ctx)

	slice, err := bridge.NextSlice(ctx)
	require.NoError(t, err)
	require.True(t, slice.SecurityChanges.IsEmpty() || len(slice.SecurityChanges.Added) == 1)
}

// Subscription-end: once a subscription's UTCEnd has passed, the filter
// drops any further data for it (spec §8 testable property #9).
func TestFeed_DropsDataPastSubscriptionEnd(t *testing.T) {
	clock := NewManualTimeProvider(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	q := newFakeQueue()
	f, _ := newTestFeed(t, clock, q)

	sym := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	utcEnd := clock.Now().Add(time.Second)
	cfg := SubscriptionConfig{Symbol: sym, SecurityType: SecurityTypeEquity, Resolution: ResolutionTick, TimeZone: time.UTC}
	sub, err := f.AddSubscription(cfg, Security{Symbol: sym}, clock.Now(), utcEnd, true, nil)
	require.NoError(t, err)

	q.push(BaseData{
		Kind:    DataKindTick,
		Symbol:  sym,
		Time:    utcEnd.Add(time.Hour),
		EndTime: utcEnd.Add(time.Hour),
		Tick:    &Tick{LastPrice: 100, Quantity: 1},
	})

	// Wait until the exchange has dispatched the tick, so the source below
	// has actually been fed before it is checked.
	require.Eventually(t, func() bool { return sub.RealtimePrice() == 100 }, 200*time.Millisecond, time.Millisecond)

	require.Never(t, func() bool {
		sub.Source.Advance()
		_, ok := sub.Source.Current()
		return ok
	}, 50*time.Millisecond, time.Millisecond, "data past the subscription end must never surface as Current")
}

// Realtime price: a tick observed by the exchange updates the
// subscription's RealtimePrice immediately, without waiting for a bar
// close (spec §8 scenario S5).
func TestFeed_TickUpdatesRealtimePriceImmediately(t *testing.T) {
	clock := NewManualTimeProvider(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	q := newFakeQueue()
	f, _ := newTestFeed(t, clock, q)

	sym := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	cfg := SubscriptionConfig{Symbol: sym, SecurityType: SecurityTypeEquity, Resolution: ResolutionMinute, Increment: time.Minute, TimeZone: time.UTC}
	sub, err := f.AddSubscription(cfg, Security{Symbol: sym}, clock.Now(), clock.Now().Add(time.Hour), true, nil)
	require.NoError(t, err)
	require.Equal(t, float64(0), sub.RealtimePrice())

	q.push(tickItem("SPY", 123.45))
	require.Eventually(t, func() bool { return sub.RealtimePrice() == 123.45 }, 200*time.Millisecond, time.Millisecond)
}

// Universe selection: a non-empty batch on a universe-selection
// subscription invokes the callback exactly once per batch (spec §8
// scenario S6).
func TestFeed_UniverseSelectionFiresOnBatch(t *testing.T) {
	clock := NewManualTimeProvider(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	q := newFakeQueue()
	f, _ := newTestFeed(t, clock, q)

	universe := &Universe{Name: "coarse", OnSelect: func(rows []CoarseFundamental) []Symbol { return nil }}
	bulkSym := Symbol{Value: "universe-coarse", Type: SecurityTypeBase}
	source := NewEnqueueEnumerator()
	cfg := SubscriptionConfig{Symbol: bulkSym, SecurityType: SecurityTypeBase, Resolution: ResolutionDaily, TimeZone: time.UTC}
	f.AddUniverseSubscription(cfg, Security{Symbol: bulkSym}, source, universe, clock.Now(), clock.Now().Add(24*time.Hour))

	var gotBatches int
	var gotUniverse *Universe
	f.SetUniverseSelectionHandler(func(u *Universe, _ SubscriptionConfig, _ time.Time, batch []BaseData) {
		gotBatches++
		gotUniverse = u
	})

	source.Enqueue(BaseData{
		Kind:    DataKindCoarse,
		Symbol:  bulkSym,
		Time:    clock.Now(),
		EndTime: clock.Now(),
		Bulk:    []CoarseFundamental{{Symbol: Symbol{Value: "AAPL", Type: SecurityTypeEquity}, Price: 100}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	require.Eventually(t, func() bool { return gotBatches == 1 }, 500*time.Millisecond, time.Millisecond)
	require.Equal(t, universe, gotUniverse)
}

// AddSubscription's "no partial state" contract: when upstream.Subscribe
// fails, neither the handler nor the subscription is registered.
func TestFeed_AddSubscription_NoPartialStateOnSubscribeFailure(t *testing.T) {
	clock := NewManualTimeProvider(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	q := &failingQueue{}
	f, _ := newTestFeed(t, clock, q)

	sym := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	cfg := SubscriptionConfig{Symbol: sym, SecurityType: SecurityTypeEquity, Resolution: ResolutionTick, TimeZone: time.UTC}
	_, err := f.AddSubscription(cfg, Security{Symbol: sym}, clock.Now(), clock.Now().Add(time.Hour), true, nil)
	require.Error(t, err)
	require.Empty(t, f.Subscriptions(), "a failed upstream subscribe must leave no registered subscription")
	require.False(t, f.exchange.RemoveHandler(sym), "a failed upstream subscribe must install no exchange handler")
}

type failingQueue struct{}

func (f *failingQueue) GetNextTicks() ([]BaseData, error)           { return nil, nil }
func (f *failingQueue) Subscribe(map[SecurityType][]Symbol) error   { return errSubscribeFailed }
func (f *failingQueue) Unsubscribe(map[SecurityType][]Symbol) error { return nil }

var errSubscribeFailed = errFixed("upstream refused subscription")

type errFixed string

func (e errFixed) Error() string { return string(e) }
