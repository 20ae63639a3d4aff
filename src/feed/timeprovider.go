package feed

import (
	"sync"
	"time"
)

// TimeProvider abstracts "now" in UTC so the feed can be driven
// deterministically in tests instead of racing the wall clock.
type TimeProvider interface {
	Now() time.Time
}

// -----------------------------------------------------------------------------
// RealTimeProvider
// -----------------------------------------------------------------------------

// RealTimeProvider reads the system clock.
type RealTimeProvider struct{}

func NewRealTimeProvider() *RealTimeProvider { return &RealTimeProvider{} }

func (RealTimeProvider) Now() time.Time { return time.Now().UTC() }

// -----------------------------------------------------------------------------
// ManualTimeProvider
// -----------------------------------------------------------------------------

// ManualTimeProvider holds a settable instant. Every feed component asks
// "is it time to ..." through a TimeProvider, so driving this one by hand
// makes aggregation windows, fill-forward, and the frontier loop's
// heartbeat fully deterministic in tests.
type ManualTimeProvider struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualTimeProvider starts the clock at t (converted to UTC).
func NewManualTimeProvider(t time.Time) *ManualTimeProvider {
	return &ManualTimeProvider{now: t.UTC()}
}

func (m *ManualTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *ManualTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// SetTime sets the clock to t, converting from t's own zone to UTC.
func (m *ManualTimeProvider) SetTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}
