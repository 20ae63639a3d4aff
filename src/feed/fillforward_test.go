package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeExchangeHours struct {
	open bool
	tz   *time.Location
}

func (f fakeExchangeHours) IsOpen(t time.Time, extended bool) bool { return f.open }
func (f fakeExchangeHours) TimeZone() *time.Location                { return f.tz }

func barAt(symbol string, start time.Time, d time.Duration) BaseData {
	return BaseData{
		Kind:    DataKindTradeBar,
		Symbol:  Symbol{Value: symbol, Type: SecurityTypeEquity},
		Time:    start,
		EndTime: start.Add(d),
		Bar:     &TradeBar{Open: 1, High: 1, Low: 1, Close: 1, Period: d},
	}
}

func TestFillForward_SynthesizesWhenMarketOpenAndDue(t *testing.T) {
	clock := NewManualTimeProvider(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	hours := fakeExchangeHours{open: true, tz: time.UTC}

	inner := NewEnqueueEnumerator()
	resolution := time.Second
	subEnd := clock.Now().Add(time.Hour)
	ff := NewFillForwardEnumerator(inner, resolution, hours, false, clock, subEnd)

	start := clock.Now()
	inner.Enqueue(barAt("SPY", start, resolution))
	require.True(t, ff.Advance())
	first, ok := ff.Current()
	require.True(t, ok)
	require.Equal(t, start, first.Time)

	// No more inner data; clock hasn't reached expected end yet.
	require.True(t, ff.Advance())
	_, ok = ff.Current()
	require.False(t, ok)

	clock.Advance(2 * resolution)
	require.True(t, ff.Advance())
	synthetic, ok := ff.Current()
	require.True(t, ok, "a synthetic bar should appear once expected <= now and market is open")
	require.Equal(t, first.EndTime.Add(resolution), synthetic.EndTime)
}

func TestFillForward_SkipsWhenMarketClosed(t *testing.T) {
	clock := NewManualTimeProvider(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	hours := fakeExchangeHours{open: false, tz: time.UTC}

	inner := NewEnqueueEnumerator()
	resolution := time.Second
	subEnd := clock.Now().Add(time.Hour)
	ff := NewFillForwardEnumerator(inner, resolution, hours, false, clock, subEnd)

	start := clock.Now()
	inner.Enqueue(barAt("SPY", start, resolution))
	require.True(t, ff.Advance())
	_, ok := ff.Current()
	require.True(t, ok)

	clock.Advance(2 * resolution)
	require.True(t, ff.Advance())
	_, ok = ff.Current()
	require.False(t, ok, "closed exchange must suppress synthetic bars")
}

func TestFillForward_StopsAtSubscriptionEnd(t *testing.T) {
	clock := NewManualTimeProvider(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	hours := fakeExchangeHours{open: true, tz: time.UTC}

	inner := NewEnqueueEnumerator()
	resolution := time.Second
	start := clock.Now()
	subEnd := start.Add(resolution) // ends right at the first bar's end

	ff := NewFillForwardEnumerator(inner, resolution, hours, false, clock, subEnd)
	inner.Enqueue(barAt("SPY", start, resolution))
	require.True(t, ff.Advance())
	_, ok := ff.Current()
	require.True(t, ok)

	// Advance far enough that the next bar would be due, so only the
	// subscription-end gate can suppress it.
	clock.Advance(2 * resolution)
	require.True(t, ff.Advance())
	_, ok = ff.Current()
	require.False(t, ok, "synthesis must cease once expected exceeds the subscription end")
}
