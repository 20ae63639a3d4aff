package interfaces

import (
	"time"

	"livefeed/src/feed"
)

// -----------------------------------------------------------------------------
// IDatabase defines the contract for operational/audit storage: the feed's
// SecurityChanges and heartbeat/queue-depth metrics, not historical market
// data (spec.md non-goal; see SPEC_FULL.md section 9.4).
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveSecurityChanges appends one row per added/removed security,
	// timestamped at the TimeSlice's frontier instant.
	SaveSecurityChanges(emittedAt time.Time, c feed.SecurityChanges) error

	// -----------------------------------------------------------------------------

	// SaveMetric appends one operational metric sample (queue depth,
	// subscription count, resource usage, ...) recorded at t.
	SaveMetric(t time.Time, metric string, value float64) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes operational rows older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
