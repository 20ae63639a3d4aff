package feed

// DataQueueHandler is the upstream, vendor-specific adapter the exchange
// polls. Implementations live outside the core (spec §1) — brokerage/
// vendor adapters, e.g. src/data_source/yahoo — but the core depends on this
// shape.
type DataQueueHandler interface {
	// GetNextTicks returns whatever is currently available; it must be
	// non-blocking or briefly blocking, and may return an empty slice.
	GetNextTicks() ([]BaseData, error)

	// Subscribe is idempotent and additive.
	Subscribe(symbols map[SecurityType][]Symbol) error

	// Unsubscribe is idempotent.
	Unsubscribe(symbols map[SecurityType][]Symbol) error
}
