package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// S1 — Tick -> Bar (spec §8 scenario S1).
func TestTickAggregator_OHLCV(t *testing.T) {
	nyc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start := time.Date(2015, 10, 8, 12, 0, 0, 0, nyc)
	clock := NewManualTimeProvider(start)

	sym := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	agg := NewTickAggregator(sym, time.Second, nyc, clock)

	lastPrices := []float64{199.55, 199.56, 199.53, 0, 199.73, 0}
	quantities := []float64{10, 5, 20, 0, 20, 0}

	for i := range lastPrices {
		agg.Process(Tick{LastPrice: lastPrices[i], Quantity: quantities[i]})
	}

	// Before the window closes: nothing published yet.
	require.True(t, agg.Advance())
	_, ok := agg.Current()
	require.False(t, ok)

	clock.Advance(time.Second)
	require.True(t, agg.Advance())
	bar, ok := agg.Current()
	require.True(t, ok)

	require.Equal(t, DataKindTradeBar, bar.Kind)
	require.Equal(t, sym.Key(), bar.Symbol.Key())
	require.InDelta(t, 199.55, bar.Bar.Open, 1e-9)
	require.InDelta(t, 199.73, bar.Bar.High, 1e-9)
	require.InDelta(t, 199.53, bar.Bar.Low, 1e-9)
	require.InDelta(t, 199.73, bar.Bar.Close, 1e-9)
	require.InDelta(t, 55, bar.Bar.Volume, 1e-9)
	require.Equal(t, start, bar.Time)
	require.Equal(t, start.Add(time.Second), bar.EndTime)
}

func TestTickAggregator_TimingGate(t *testing.T) {
	clock := NewManualTimeProvider(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	sym := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	agg := NewTickAggregator(sym, time.Second, time.UTC, clock)

	agg.Process(Tick{LastPrice: 100, Quantity: 1})

	clock.Advance(500 * time.Millisecond)
	require.True(t, agg.Advance())
	_, ok := agg.Current()
	require.False(t, ok, "bar should not publish before its window closes")

	clock.Advance(600 * time.Millisecond)
	require.True(t, agg.Advance())
	_, ok = agg.Current()
	require.True(t, ok, "bar should publish once its window has closed")
}

func TestTickAggregator_ZeroPriceTickContributesOnlyVolume(t *testing.T) {
	clock := NewManualTimeProvider(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	sym := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	agg := NewTickAggregator(sym, time.Second, time.UTC, clock)

	agg.Process(Tick{LastPrice: 100, Quantity: 1})
	agg.Process(Tick{LastPrice: 0, BidPrice: 99, AskPrice: 101, Quantity: 7})

	clock.Advance(time.Second)
	agg.Advance()
	bar, ok := agg.Current()
	require.True(t, ok)
	require.InDelta(t, 100, bar.Bar.Close, 1e-9, "zero-price tick must not move OHLC")
	require.InDelta(t, 8, bar.Bar.Volume, 1e-9, "zero-price tick still contributes its quantity")
}
