package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"livefeed/src/logger"
)

func sortSubscriptionsByKey(subs []*Subscription) {
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].Symbol().Key() < subs[j].Symbol().Key()
	})
}

// UniverseSelectionHandler is invoked when a universe-selection
// subscription's batch is non-empty, after the bridge has reported
// capacity.
type UniverseSelectionHandler func(universe *Universe, cfg SubscriptionConfig, frontier time.Time, batch []BaseData)

// Feed is the frontier loop (C8): it owns every Subscription, drives them
// under a UTC frontier, invokes universe selection, and emits
// consolidated TimeSlices to the Bridge. Grounded on the teacher's main
// processing loop (cmd/main/main.go's for-select over updatesChan plus
// its per-window aggregate/broadcast cycle), generalized from "poll once,
// aggregate windows, broadcast" to "advance every subscription up to a
// rolling wall-clock frontier, emit at least once a second".
type Feed struct {
	now      TimeProvider
	upstream DataQueueHandler
	exchange *Exchange
	bridge   Bridge
	logger   *logger.Logger

	mu            sync.RWMutex
	subscriptions map[string]*Subscription

	pendingMu      sync.Mutex
	pendingChanges SecurityChanges

	onUniverseSelection UniverseSelectionHandler

	cancel     chan struct{}
	cancelOnce sync.Once
	active     atomic.Bool
}

// NewFeed wires a Feed around exchange (fed by upstream), publishing to
// bridge, and starts the exchange's consumer with BeginConsume.
// Initialize (§4.8) is this constructor: the caller is expected to call
// AddSubscription for each security in the algorithm's current universe
// afterwards.
func NewFeed(now TimeProvider, upstream DataQueueHandler, exchange *Exchange, bridge Bridge, log *logger.Logger) *Feed {
	f := &Feed{
		now:           now,
		upstream:      upstream,
		exchange:      exchange,
		bridge:        bridge,
		logger:        log,
		subscriptions: make(map[string]*Subscription),
		cancel:        make(chan struct{}),
	}
	f.exchange.BeginConsume()
	return f
}

// SetUniverseSelectionHandler installs the callback fired per spec §4.8
// step 3 when a universe-selection subscription's batch is non-empty.
func (f *Feed) SetUniverseSelectionHandler(h UniverseSelectionHandler) {
	f.onUniverseSelection = h
}

// buildSource builds the source chain for cfg per §4.8's
// "Subscription construction": tick resolution gets a direct
// EnqueueEnumerator, non-tick resolutions get a TickAggregator, both
// optionally wrapped in fill-forward, and always wrapped in the
// subscription filter. Custom-data and universe-selection sources are
// supplied by the caller (they are not wired through the exchange).
func (f *Feed) buildSource(cfg SubscriptionConfig, utcEnd time.Time, exchangeHours ExchangeHours) (BaseDataEnumerator, HandlerFunc) {
	var source BaseDataEnumerator
	var handler HandlerFunc

	if cfg.Resolution == ResolutionTick {
		enq := NewEnqueueEnumerator()
		source = enq
		handler = func(item BaseData) {
			if item.Kind == DataKindTick && item.Tick != nil {
				enq.Enqueue(item)
			}
		}
	} else {
		agg := NewTickAggregator(cfg.Symbol, cfg.Increment, cfg.TimeZone, f.now)
		source = agg
		handler = func(item BaseData) {
			if item.Kind == DataKindTick && item.Tick != nil {
				agg.Process(*item.Tick)
			}
		}
	}

	if cfg.FillDataForward && exchangeHours != nil {
		source = NewFillForwardEnumerator(source, cfg.Increment, exchangeHours, cfg.ExtendedMarketHours, f.now, utcEnd)
	}

	source = NewSubscriptionFilter(source, cfg.Symbol, utcEnd)
	return source, handler
}

// AddSubscription constructs a subscription per cfg, registers the
// exchange handler, subscribes upstream, and records the addition in the
// pending SecurityChanges (§4.8 addSubscription). If upstream.Subscribe
// fails, the subscription is not registered and no handler is installed
// (Open Question b, resolved in SPEC_FULL §11: "no partial state").
func (f *Feed) AddSubscription(cfg SubscriptionConfig, sec Security, utcStart, utcEnd time.Time, isUserDefined bool, exchangeHours ExchangeHours) (*Subscription, error) {
	source, handler := f.buildSource(cfg, utcEnd, exchangeHours)
	sub := NewSubscription(cfg, sec, source, utcStart, utcEnd, isUserDefined)

	if handler != nil {
		wrapped := func(item BaseData) {
			if item.Kind == DataKindTick && item.Tick != nil {
				sub.SetRealtimePrice(item.Tick.LastPrice)
			}
			handler(item)
		}
		if err := f.upstream.Subscribe(map[SecurityType][]Symbol{cfg.SecurityType: {cfg.Symbol}}); err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", cfg.Symbol, err)
		}
		f.exchange.SetHandler(cfg.Symbol, wrapped)
	}

	sub.Source.Advance()
	_, hasCur := sub.Source.Current()
	sub.SetNeedsAdvance(!hasCur)

	f.mu.Lock()
	f.subscriptions[cfg.Symbol.Key()] = sub
	f.mu.Unlock()

	f.addPendingChange(SecurityChanges{Added: []Security{sec}})
	return sub, nil
}

// AddUniverseSubscription registers a universe-selection subscription
// whose Source is supplied by the caller (a bulk-payload enqueue fed
// directly by the exchange, or a custom-data reader).
func (f *Feed) AddUniverseSubscription(cfg SubscriptionConfig, sec Security, source BaseDataEnumerator, universe *Universe, utcStart, utcEnd time.Time) *Subscription {
	sub := NewSubscription(cfg, sec, source, utcStart, utcEnd, false)
	sub.IsUniverseSelection = true
	sub.Universe = universe

	sub.Source.Advance()
	_, hasCur := sub.Source.Current()
	sub.SetNeedsAdvance(!hasCur)

	f.mu.Lock()
	f.subscriptions[cfg.Symbol.Key()] = sub
	f.mu.Unlock()
	return sub
}

// RemoveSubscription tears down sec's subscription (§4.8
// removeSubscription).
func (f *Feed) RemoveSubscription(sec Security) error {
	key := sec.Symbol.Key()

	f.mu.Lock()
	sub, ok := f.subscriptions[key]
	if ok {
		delete(f.subscriptions, key)
	}
	f.mu.Unlock()

	if !ok {
		return fmt.Errorf("subscription %s not found", sec.Symbol)
	}

	f.exchange.RemoveHandler(sec.Symbol)
	if err := f.upstream.Unsubscribe(map[SecurityType][]Symbol{sub.Config.SecurityType: {sec.Symbol}}); err != nil {
		f.logger.Error("unsubscribe %s: %v", sec.Symbol, err)
	}

	f.addPendingChange(SecurityChanges{Removed: []Security{sec}})
	return nil
}

func (f *Feed) addPendingChange(c SecurityChanges) {
	f.pendingMu.Lock()
	defer f.pendingMu.Unlock()
	f.pendingChanges = f.pendingChanges.Merge(c)
}

func (f *Feed) takePendingChanges() SecurityChanges {
	f.pendingMu.Lock()
	defer f.pendingMu.Unlock()
	c := f.pendingChanges
	f.pendingChanges = NoSecurityChanges
	return c
}

// Subscriptions returns an enumerable snapshot of the current
// subscriptions.
func (f *Feed) Subscriptions() []*Subscription {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Subscription, 0, len(f.subscriptions))
	for _, s := range f.subscriptions {
		out = append(out, s)
	}
	return out
}

func (f *Feed) snapshotKeysOrdered() []*Subscription {
	// Iteration order over a Go map is randomized; the frontier needs a
	// stable order so "insertion order of the producing iteration" (spec
	// §4.9) is well-defined per tick of the loop. Subscriptions rarely
	// number more than a few hundred, so a sort by key each iteration is
	// cheap relative to the 1ms/1s loop cadence.
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Subscription, 0, len(f.subscriptions))
	for _, s := range f.subscriptions {
		out = append(out, s)
	}
	sortSubscriptionsByKey(out)
	return out
}

// IsActive reports whether Run is currently executing.
func (f *Feed) IsActive() bool { return f.active.Load() }

// Exit cancels the frontier loop and the exchange consumer. Idempotent.
func (f *Feed) Exit() {
	f.cancelOnce.Do(func() { close(f.cancel) })
	f.exchange.EndConsume()
}

// Run is the cooperative, single-threaded loop of spec §4.8. It blocks
// until Exit is called or an unrecoverable error occurs, at which point
// the cancellation signal is set so the exchange's consumer also exits
// (spec §7 item 3).
func (f *Feed) Run(ctx context.Context) error {
	f.active.Store(true)
	defer f.active.Store(false)
	defer f.Exit()

	var nextEmit time.Time

	for {
		select {
		case <-f.cancel:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		subs := f.snapshotKeysOrdered()

		sleepIncrement := time.Second
		for _, s := range subs {
			if s.IsTickResolution() {
				sleepIncrement = time.Millisecond
				break
			}
		}

		frontier := f.now.Now()
		roundingIncrement := sleepIncrement

		entries := make([]SliceEntry, 0, len(subs))
		anyData := false

		for _, sub := range subs {
			batch := f.drainSubscription(sub, frontier)
			if len(batch) == 0 {
				continue
			}

			anyData = true
			entries = append(entries, SliceEntry{Symbol: sub.Symbol(), Data: batch})

			if sub.IsTickResolution() {
				roundingIncrement = time.Millisecond
			}

			if sub.IsUniverseSelection {
				if err := f.bridge.Wait(ctx); err != nil {
					return nil
				}
				if f.onUniverseSelection != nil {
					f.onUniverseSelection(sub.Universe, sub.Config, frontier, batch)
				}
			}
		}

		select {
		case <-f.cancel:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if anyData || !frontier.Before(nextEmit) {
			emitTime := frontier.Truncate(roundingIncrement)
			changes := f.takePendingChanges()
			slice := BuildTimeSlice(emitTime, entries, changes)
			if err := f.bridge.Add(ctx, slice); err != nil {
				return nil
			}
			nextEmit = emitTime.Add(time.Second)
		}

		nextBoundary := f.now.Now().Add(sleepIncrement).Truncate(sleepIncrement)
		sleepFor := nextBoundary.Sub(f.now.Now())
		if sleepFor < time.Millisecond {
			sleepFor = time.Millisecond
		}

		select {
		case <-time.After(sleepFor):
		case <-f.cancel:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drainSubscription runs the per-subscription inner loop of §4.8 step 3:
// it advances the subscription's source until either the source is
// exhausted for now (Current absent) or the current item's UTC end time
// is past the frontier, in which case it is retained ("saved for next
// iteration") rather than consumed.
func (f *Feed) drainSubscription(sub *Subscription, frontier time.Time) []BaseData {
	var batch []BaseData

	for !sub.NeedsAdvance() || sub.Source.Advance() {
		cur, ok := sub.Source.Current()
		if !ok {
			sub.SetNeedsAdvance(true)
			break
		}

		if cur.EndTime.UTC().After(frontier) {
			sub.SetNeedsAdvance(false)
			break
		}

		batch = append(batch, cur)
		sub.SetNeedsAdvance(true)
	}

	return batch
}
