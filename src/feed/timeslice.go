package feed

import "time"

// SliceEntry is one symbol's data within a TimeSlice, in the insertion
// order the frontier loop produced it.
type SliceEntry struct {
	Symbol Symbol
	Data   []BaseData
}

// TimeSlice is an immutable snapshot of per-symbol data at one frontier
// instant (spec §4.9 / C9). Once built it is never mutated.
type TimeSlice struct {
	Time            time.Time
	Slice           []SliceEntry
	SecurityChanges SecurityChanges
}

// BuildTimeSlice is the pure function behind C9: given the emit instant
// and the per-subscription batches collected this iteration, it freezes
// them into one immutable slice. Ordering of symbols in the slice is the
// insertion order of the producing iteration over subscriptions — callers
// must pass entries already in that order.
func BuildTimeSlice(emitTime time.Time, entries []SliceEntry, changes SecurityChanges) TimeSlice {
	frozen := make([]SliceEntry, len(entries))
	for i, e := range entries {
		data := make([]BaseData, len(e.Data))
		copy(data, e.Data)
		frozen[i] = SliceEntry{Symbol: e.Symbol, Data: data}
	}
	return TimeSlice{Time: emitTime, Slice: frozen, SecurityChanges: changes}
}

// Get returns the data collected for symbol in this slice, if any.
func (t TimeSlice) Get(symbol Symbol) ([]BaseData, bool) {
	for _, e := range t.Slice {
		if e.Symbol.Key() == symbol.Key() {
			return e.Data, true
		}
	}
	return nil, false
}
