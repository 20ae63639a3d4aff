package storage

import (
	"database/sql"
	"fmt"
	"livefeed/src/feed"
	"livefeed/src/logger"
	"livefeed/src/models"
	"time"

	_ "modernc.org/sqlite"
)

// AsyncSQLiteDB is the default operational/audit store: every
// SecurityChanges batch the frontier loop produces, and periodic
// heartbeat/queue-depth metrics, are appended here for after-the-fact
// inspection. It is not a historical-market-data store.
type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}
	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.recreateTables()
}

func (d *AsyncSQLiteDB) recreateTables() error {
	statements := []string{
		"DROP TABLE IF EXISTS security_changes",
		`CREATE TABLE security_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			emitted_at INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			security_type TEXT NOT NULL,
			change TEXT NOT NULL CHECK (change IN ('added', 'removed'))
		)`,
		"DROP TABLE IF EXISTS feed_metrics",
		`CREATE TABLE feed_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at INTEGER NOT NULL,
			metric TEXT NOT NULL,
			value REAL NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := d.DB.Exec(stmt); err != nil {
			return fmt.Errorf("recreateTables: %w", err)
		}
	}
	return nil
}

// SaveSecurityChanges appends one row per added/removed security in c,
// timestamped at emittedAt (the TimeSlice's frontier instant).
func (d *AsyncSQLiteDB) SaveSecurityChanges(emittedAt time.Time, c feed.SecurityChanges) error {
	if len(c.Added) == 0 && len(c.Removed) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO security_changes (emitted_at, symbol, security_type, change) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ts := emittedAt.UnixNano()
	for _, a := range c.Added {
		if _, err := stmt.Exec(ts, a.Symbol.Value, a.Symbol.Type.String(), "added"); err != nil {
			return err
		}
	}
	for _, r := range c.Removed {
		if _, err := stmt.Exec(ts, r.Symbol.Value, r.Symbol.Type.String(), "removed"); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMetric appends one operational metric sample (e.g. "process_memory_mb",
// "tracked_symbols") recorded at t.
func (d *AsyncSQLiteDB) SaveMetric(t time.Time, metric string, value float64) error {
	_, err := d.DB.Exec(`INSERT INTO feed_metrics (recorded_at, metric, value) VALUES (?, ?, ?)`, t.UnixNano(), metric, value)
	return err
}

// CleanupOldData trims audit rows older than the configured retention
// window, mirroring the teacher's historical-data cleanup cadence.
func (d *AsyncSQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.DataSource.DataRetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).UnixNano()

	if _, err := d.DB.Exec("DELETE FROM security_changes WHERE emitted_at < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup security_changes error: %v", err)
	}
	if _, err := d.DB.Exec("DELETE FROM feed_metrics WHERE recorded_at < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup feed_metrics error: %v", err)
	}

	d.Logger.Info("Cleanup completed")
	return nil
}

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
