package feed

import "time"

// FillForwardEnumerator wraps an inner bar sequence and synthesizes a bar
// during quiet intervals while the market is open, per spec §4.4.
type FillForwardEnumerator struct {
	inner      BaseDataEnumerator
	resolution time.Duration
	exchange   ExchangeHours
	extended   bool
	now        TimeProvider
	subEndUTC  time.Time

	previous   *BaseData
	pendingNext *BaseData // retained inner value not yet due for emission
	current    BaseData
	hasCur     bool
}

func NewFillForwardEnumerator(
	inner BaseDataEnumerator,
	fillForwardResolution time.Duration,
	exchange ExchangeHours,
	extendedMarketHours bool,
	now TimeProvider,
	subscriptionEndUTC time.Time,
) *FillForwardEnumerator {
	return &FillForwardEnumerator{
		inner:      inner,
		resolution: fillForwardResolution,
		exchange:   exchange,
		extended:   extendedMarketHours,
		now:        now,
		subEndUTC:  subscriptionEndUTC,
	}
}

// Advance implements the requiresFillForward decision table from §4.4.
func (f *FillForwardEnumerator) Advance() bool {
	f.hasCur = false
	f.current = BaseData{}

	var next *BaseData
	if f.pendingNext != nil {
		v := *f.pendingNext
		next = &v
		f.pendingNext = nil
	} else if !f.inner.Advance() {
		return false
	} else if cur, ok := f.inner.Current(); ok {
		v := cur
		next = &v
	}

	if f.previous == nil {
		if next != nil {
			v := *next
			f.previous = &v
			f.current = v
			f.hasCur = true
		}
		return true
	}

	expected := f.previous.EndTime.Add(f.resolution)
	if expected.UTC().After(f.subEndUTC) {
		// Synthesis window has closed for this subscription.
		if next != nil {
			f.previous = next
			f.current = *next
			f.hasCur = true
		}
		return true
	}

	if next != nil {
		if !next.EndTime.After(expected) {
			f.previous = next
			f.current = *next
			f.hasCur = true
			return true
		}

		synthetic := f.previous.Clone()
		synthetic.Time = f.previous.Time.Add(f.resolution)
		synthetic.EndTime = expected
		f.previous = &synthetic
		f.pendingNext = next
		f.current = synthetic
		f.hasCur = true
		return true
	}

	nowLocal := f.now.Now().In(f.exchange.TimeZone())
	if expected.After(nowLocal) {
		return true
	}

	if !f.exchange.IsOpen(expected, f.extended) {
		return true
	}

	synthetic := f.previous.Clone()
	synthetic.Time = f.previous.Time.Add(f.resolution)
	synthetic.EndTime = expected
	f.previous = &synthetic
	f.current = synthetic
	f.hasCur = true
	return true
}

func (f *FillForwardEnumerator) Current() (BaseData, bool) {
	return f.current, f.hasCur
}
