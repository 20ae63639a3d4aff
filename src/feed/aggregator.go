package feed

import (
	"sync"
	"time"
)

// TickAggregator consumes Ticks and exposes a lazy sequence of TradeBars,
// one per barSize window. The incremental OHLC fold mirrors the batch
// window logic in analysis/core.ComputeOHLCV (open=first, high=max,
// low=min, close=last) and the window-start rounding in
// analysis.CalculateWindowBoundaries, but updates a single working bar
// tick-by-tick instead of re-scanning a slice.
type TickAggregator struct {
	symbol   Symbol
	barSize  time.Duration
	tz       *time.Location
	now      TimeProvider

	mu      sync.Mutex
	working *workingBar
	current BaseData
	hasCur  bool
}

type workingBar struct {
	startLocal time.Time
	open, high, low, close, volume float64
}

func NewTickAggregator(symbol Symbol, barSize time.Duration, tz *time.Location, now TimeProvider) *TickAggregator {
	if tz == nil {
		tz = time.UTC
	}
	return &TickAggregator{symbol: symbol, barSize: barSize, tz: tz, now: now}
}

// roundDown truncates t (already in tz) to the barSize boundary.
func roundDown(t time.Time, barSize time.Duration) time.Time {
	if barSize <= 0 {
		return t
	}
	return t.Truncate(barSize)
}

// Process folds one tick into the working bar (§4.3).
func (a *TickAggregator) Process(tick Tick) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.working == nil {
		start := roundDown(a.now.Now().In(a.tz), a.barSize)
		a.working = &workingBar{
			startLocal: start,
			open:       tick.LastPrice,
			high:       tick.LastPrice,
			low:        tick.LastPrice,
			close:      tick.LastPrice,
			volume:     tick.Quantity,
		}
		return
	}

	w := a.working
	if tick.LastPrice != 0 {
		if tick.LastPrice > w.high {
			w.high = tick.LastPrice
		}
		if tick.LastPrice < w.low {
			w.low = tick.LastPrice
		}
		w.close = tick.LastPrice
	}
	w.volume += tick.Quantity
}

// Advance publishes the working bar once its UTC end time has passed.
// Always returns true: live sequences never terminate.
func (a *TickAggregator) Advance() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.working == nil {
		a.hasCur = false
		return true
	}

	endLocal := a.working.startLocal.Add(a.barSize)
	endUTC := endLocal.UTC()
	if !endUTC.After(a.now.Now()) {
		w := a.working
		bar := BaseData{
			Kind:    DataKindTradeBar,
			Symbol:  a.symbol,
			Time:    w.startLocal,
			EndTime: endLocal,
			Bar: &TradeBar{
				Open:   w.open,
				High:   w.high,
				Low:    w.low,
				Close:  w.close,
				Volume: w.volume,
				Period: a.barSize,
			},
		}
		a.current = bar
		a.hasCur = true
		a.working = nil
		return true
	}

	a.hasCur = false
	return true
}

func (a *TickAggregator) Current() (BaseData, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, a.hasCur
}
