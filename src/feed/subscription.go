package feed

import (
	"sync/atomic"
	"time"
)

// Universe identifies the universe-selection callback group a
// universe-selection subscription feeds.
type Universe struct {
	Name     string
	OnSelect CoarseSelectionFunc
}

// CoarseSelectionFunc is the algorithm-supplied universe-selection
// policy: the feed invokes it, it does not define it (spec §1 non-goal).
type CoarseSelectionFunc func([]CoarseFundamental) []Symbol

// Subscription is one symbol's data pipeline from upstream to the
// frontier (spec §3/§4.7). It has no non-trivial behavior of its own: it
// is mutated only by the frontier loop (Advance/Current) and by the
// exchange's per-symbol handler (SetRealtimePrice, feeding Source).
type Subscription struct {
	Config   SubscriptionConfig
	Security Security
	Source   BaseDataEnumerator

	UTCStart time.Time
	UTCEnd   time.Time

	IsUserDefined      bool
	IsUniverseSelection bool
	Universe           *Universe

	needsAdvance atomic.Bool
	realtime     atomic.Value // float64
}

func NewSubscription(cfg SubscriptionConfig, sec Security, source BaseDataEnumerator, utcStart, utcEnd time.Time, isUserDefined bool) *Subscription {
	s := &Subscription{
		Config:        cfg,
		Security:      sec,
		Source:        source,
		UTCStart:      utcStart,
		UTCEnd:        utcEnd,
		IsUserDefined: isUserDefined,
	}
	s.realtime.Store(float64(0))
	return s
}

// SetRealtimePrice makes the latest traded price observable without
// waiting for the next bar close. Called from the exchange's per-symbol
// handler.
func (s *Subscription) SetRealtimePrice(p float64) {
	s.realtime.Store(p)
}

func (s *Subscription) RealtimePrice() float64 {
	return s.realtime.Load().(float64)
}

func (s *Subscription) NeedsAdvance() bool   { return s.needsAdvance.Load() }
func (s *Subscription) SetNeedsAdvance(v bool) { s.needsAdvance.Store(v) }

func (s *Subscription) Symbol() Symbol { return s.Config.Symbol }

// IsTickResolution reports whether this subscription's resolution
// influences the frontier loop's rounding increment (spec §4.8 step 3).
func (s *Subscription) IsTickResolution() bool {
	return s.Config.Resolution == ResolutionTick
}
