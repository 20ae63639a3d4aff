package feed

import "time"

// ExchangeHours is the minimal market-hours gate the fill-forward
// enumerator needs. The feed core never owns exchange-hours data itself
// (spec §1 names security/exchange-hours catalogs as an external
// collaborator); this interface is what it depends on instead.
type ExchangeHours interface {
	// IsOpen reports whether the exchange is open at t (in the exchange's
	// own timezone). extended selects regular-session-only vs.
	// regular+extended hours.
	IsOpen(t time.Time, extended bool) bool

	// TimeZone is the exchange's local timezone, used to convert the
	// "now" instant before checking IsOpen.
	TimeZone() *time.Location
}
