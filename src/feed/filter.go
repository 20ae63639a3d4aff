package feed

import "time"

// SubscriptionFilter is the final stage of a per-symbol pipeline: it drops
// data past the subscription's end, and defensively drops data that
// doesn't match the subscription's symbol.
type SubscriptionFilter struct {
	inner  BaseDataEnumerator
	symbol Symbol
	utcEnd time.Time

	current BaseData
	hasCur  bool
}

func NewSubscriptionFilter(inner BaseDataEnumerator, symbol Symbol, utcEnd time.Time) *SubscriptionFilter {
	return &SubscriptionFilter{inner: inner, symbol: symbol, utcEnd: utcEnd}
}

func (f *SubscriptionFilter) Advance() bool {
	if !f.inner.Advance() {
		f.hasCur = false
		return false
	}

	cur, ok := f.inner.Current()
	if !ok {
		f.hasCur = false
		return true
	}

	if cur.Symbol.Key() != f.symbol.Key() {
		f.hasCur = false
		return true
	}

	if cur.EndTime.UTC().After(f.utcEnd) {
		f.hasCur = false
		return true
	}

	f.current = cur
	f.hasCur = true
	return true
}

func (f *SubscriptionFilter) Current() (BaseData, bool) {
	return f.current, f.hasCur
}
