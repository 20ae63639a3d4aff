package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"livefeed/src/feed"
	"livefeed/src/logger"
	"livefeed/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

// PostgresDB is the operational/audit store's Postgres backend: every
// SecurityChanges batch the frontier loop produces, and periodic
// heartbeat/queue-depth metrics, are appended under a per-binary schema. It
// is not a historical-market-data store (spec.md non-goal).
type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Use the executable name for the schema, same convention the teacher
	// used to namespace per-deployment tables.
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.recreateTables(); err != nil {
		return err
	}

	// Filter and register symbols for each configured source. This modifies
	// the shared Config object so that subsequent logic only sees classic
	// symbols, a postgres-specific resolution step unrelated to the
	// operational schema above.
	for i := range d.Config.DataSource.Sources {
		srcCfg := &d.Config.DataSource.Sources[i]
		classicSymbols, err := d.FilterAndRegisterSymbols(srcCfg.Name, srcCfg.Symbols)
		if err != nil {
			d.Logger.Error("PostgresDB: Failed to filter/register symbols for source %s: %v", srcCfg.Name, err)
		} else {
			srcCfg.Symbols = classicSymbols
		}
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) recreateTables() error {
	changesTable := fmt.Sprintf(`"%s"."security_changes"`, d.Schema)
	if _, err := d.DB.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, changesTable)); err != nil {
		return fmt.Errorf("failed to drop security_changes: %w", err)
	}
	query := fmt.Sprintf(`
		CREATE TABLE %s (
			id BIGSERIAL PRIMARY KEY,
			emitted_at BIGINT NOT NULL,
			symbol TEXT NOT NULL,
			security_type TEXT NOT NULL,
			change TEXT NOT NULL CHECK (change IN ('added', 'removed'))
		);
	`, changesTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create security_changes: %w", err)
	}

	metricsTable := fmt.Sprintf(`"%s"."feed_metrics"`, d.Schema)
	if _, err := d.DB.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, metricsTable)); err != nil {
		return fmt.Errorf("failed to drop feed_metrics: %w", err)
	}
	query = fmt.Sprintf(`
		CREATE TABLE %s (
			id BIGSERIAL PRIMARY KEY,
			recorded_at BIGINT NOT NULL,
			metric TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL
		);
	`, metricsTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create feed_metrics: %w", err)
	}

	// Symbols table: config/metadata for postgres-ref symbol resolution
	// (see postgres_symbols.go), unrelated to the feed's own tables above.
	symbolsTable := fmt.Sprintf(`"%s"."symbols"`, d.Schema)
	if _, err := d.DB.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, symbolsTable)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", symbolsTable, err)
	}
	query = fmt.Sprintf(`
		CREATE TABLE %s (
			symbol TEXT PRIMARY KEY,
			type TEXT,
			ref_schema TEXT,
			ref_table TEXT,
			ref_field TEXT,
			source_name TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`, symbolsTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create %s: %w", symbolsTable, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// SaveSecurityChanges appends one row per added/removed security in c,
// timestamped at emittedAt (the TimeSlice's frontier instant).
func (d *PostgresDB) SaveSecurityChanges(emittedAt time.Time, c feed.SecurityChanges) error {
	if len(c.Added) == 0 && len(c.Removed) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."security_changes" (emitted_at, symbol, security_type, change)
		VALUES ($1, $2, $3, $4)
	`, d.Schema)
	stmt, err := tx.Prepare(query)
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

// -----------------------------------------------------------------------------

// SaveMetric appends one operational metric sample recorded at t.
func (d *PostgresDB) SaveMetric(t time.Time, metric string, value float64) error {
	query := fmt.Sprintf(`INSERT INTO "%s"."feed_metrics" (recorded_at, metric, value) VALUES ($1, $2, $3)`, d.Schema)
	_, err := d.DB.Exec(query, t.UnixNano(), metric, value)
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.DataSource.DataRetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).UnixNano()

	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."security_changes" WHERE emitted_at < $1`, d.Schema), cutoff); err != nil {
		log.Printf("Cleanup security_changes error: %v", err)
	}
	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."feed_metrics" WHERE recorded_at < $1`, d.Schema), cutoff); err != nil {
		log.Printf("Cleanup feed_metrics error: %v", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
