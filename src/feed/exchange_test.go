package feed

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"livefeed/src/logger"
)

type fakeQueue struct {
	itemsCh chan []BaseData
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{itemsCh: make(chan []BaseData, 100)}
}

func (f *fakeQueue) push(items ...BaseData) { f.itemsCh <- items }

func (f *fakeQueue) GetNextTicks() ([]BaseData, error) {
	select {
	case items := <-f.itemsCh:
		return items, nil
	default:
		return nil, nil
	}
}

func (f *fakeQueue) Subscribe(map[SecurityType][]Symbol) error   { return nil }
func (f *fakeQueue) Unsubscribe(map[SecurityType][]Symbol) error { return nil }

func tickItem(symbol string, price float64) BaseData {
	return BaseData{
		Kind:   DataKindTick,
		Symbol: Symbol{Value: symbol, Type: SecurityTypeEquity},
		Tick:   &Tick{LastPrice: price, Quantity: 1},
	}
}

// S2 — dispatch only reaches the matching symbol's handler.
func TestExchange_DispatchBySymbol(t *testing.T) {
	q := newFakeQueue()
	ex := NewExchange(q, logger.NewLogger(nil, "test"))

	var spyCount, eurCount atomic.Int32
	ex.SetHandler(Symbol{Value: "SPY", Type: SecurityTypeEquity}, func(BaseData) { spyCount.Add(1) })
	ex.SetHandler(Symbol{Value: "EURUSD", Type: SecurityTypeForex}, func(BaseData) { eurCount.Add(1) })

	q.push(tickItem("SPY", 100))
	ex.BeginConsume()
	defer ex.EndConsume()

	require.Eventually(t, func() bool { return spyCount.Load() == 1 }, 200*time.Millisecond, time.Millisecond)
	require.Equal(t, int32(0), eurCount.Load())
}

// S3 — removed handlers stop receiving items.
func TestExchange_RemoveHandler(t *testing.T) {
	q := newFakeQueue()
	ex := NewExchange(q, logger.NewLogger(nil, "test"))

	var count atomic.Int32
	sym := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	ex.SetHandler(sym, func(BaseData) { count.Add(1) })
	require.True(t, ex.RemoveHandler(sym))

	q.push(tickItem("SPY", 100))
	ex.BeginConsume()
	defer ex.EndConsume()

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(0), count.Load())
}

// S4 — a fatal error predicate stops consumption after the first error.
func TestExchange_FatalPredicateStopsConsumption(t *testing.T) {
	q := newFakeQueue()
	ex := NewExchange(q, logger.NewLogger(nil, "test"))
	ex.SetErrorHandler(func(error) bool { return true })

	var count atomic.Int32
	sym := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	ex.SetHandler(sym, func(BaseData) {
		count.Add(1)
		panic("boom")
	})

	for i := 0; i < 5; i++ {
		q.push(tickItem("SPY", 100))
	}
	ex.BeginConsume()

	select {
	case <-ex.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("exchange did not exit after fatal handler error")
	}

	require.Equal(t, int32(1), count.Load(), "only the first item should have been observed")
}

// Default error predicate: a throwing handler does not stop consumption.
func TestExchange_DefaultPredicateSwallowsErrors(t *testing.T) {
	q := newFakeQueue()
	ex := NewExchange(q, logger.NewLogger(nil, "test"))

	var count atomic.Int32
	sym := Symbol{Value: "SPY", Type: SecurityTypeEquity}
	ex.SetHandler(sym, func(BaseData) {
		n := count.Add(1)
		if n == 1 {
			panic("boom")
		}
	})

	q.push(tickItem("SPY", 100))
	q.push(tickItem("SPY", 101))
	ex.BeginConsume()
	defer ex.EndConsume()

	require.Eventually(t, func() bool { return count.Load() == 2 }, 200*time.Millisecond, time.Millisecond)
}
