package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscriptionFilter_DropsMismatchedSymbol(t *testing.T) {
	inner := NewEnqueueEnumerator()
	spy := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	utcEnd := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	f := NewSubscriptionFilter(inner, spy, utcEnd)

	inner.Enqueue(barAt("QQQ", utcEnd.Add(-time.Hour), time.Second))
	require.True(t, f.Advance())
	_, ok := f.Current()
	require.False(t, ok, "data for a different symbol must be dropped")
}

func TestSubscriptionFilter_DropsDataPastSubscriptionEnd(t *testing.T) {
	inner := NewEnqueueEnumerator()
	spy := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	utcEnd := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	f := NewSubscriptionFilter(inner, spy, utcEnd)

	inner.Enqueue(barAt("SPY", utcEnd, time.Second)) // EndTime = utcEnd + 1s, past the end
	require.True(t, f.Advance())
	_, ok := f.Current()
	require.False(t, ok, "data whose end time is past the subscription end must be dropped")
}

func TestSubscriptionFilter_PassesMatchingData(t *testing.T) {
	inner := NewEnqueueEnumerator()
	spy := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	utcEnd := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	f := NewSubscriptionFilter(inner, spy, utcEnd)

	bar := barAt("SPY", utcEnd.Add(-time.Hour), time.Second)
	inner.Enqueue(bar)
	require.True(t, f.Advance())
	cur, ok := f.Current()
	require.True(t, ok)
	require.Equal(t, bar.EndTime, cur.EndTime)
}

func TestSubscriptionFilter_PropagatesInnerTermination(t *testing.T) {
	inner := NewEnqueueEnumerator()
	spy := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	f := NewSubscriptionFilter(inner, spy, time.Now().UTC().Add(time.Hour))

	inner.Stop()
	require.False(t, f.Advance(), "once the inner enumerator terminates, the filter must terminate too")
}
