package storage

import (
	"database/sql"
	"fmt"
	"time"

	"market-stream/src/logger"
	"market-stream/src/models"

	_ "github.com/lib/pq"
)

const defaultPostgresSchema = "public"

// -----------------------------------------------------------------------------

type PostgresDB struct {
	tickStore

	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	schema := cfg.Storage.Schema
	if schema == "" {
		schema = defaultPostgresSchema
	}

	return &PostgresDB{
		Config: cfg,
		Schema: schema,
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
	d.tickStore = tickStore{
		db:            db,
		ticksTable:    d.table("market_realtime_ticks"),
		calendarTable: d.table("trading_calendar"),
		rebind:        dollarParams,
		logger:        d.Logger,
	}

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.ensureTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

func (d *PostgresDB) table(name string) string {
	return fmt.Sprintf(`"%s"."%s"`, d.Schema, name)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ensureTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			ts_code TEXT NOT NULL,
			name TEXT,
			trade NUMERIC, price NUMERIC, open NUMERIC, high NUMERIC, low NUMERIC,
			pre_close NUMERIC, bid NUMERIC, ask NUMERIC, volume NUMERIC, amount NUMERIC,
			b1_v NUMERIC, b1_p NUMERIC, b2_v NUMERIC, b2_p NUMERIC, b3_v NUMERIC, b3_p NUMERIC,
			b4_v NUMERIC, b4_p NUMERIC, b5_v NUMERIC, b5_p NUMERIC,
			a1_v NUMERIC, a1_p NUMERIC, a2_v NUMERIC, a2_p NUMERIC, a3_v NUMERIC, a3_p NUMERIC,
			a4_v NUMERIC, a4_p NUMERIC, a5_v NUMERIC, a5_p NUMERIC,
			date DATE,
			time TIMESTAMP(3),
			source TEXT,
			raw_json TEXT,
			UNIQUE (ts_code, time)
		);
	`, d.ticksTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create %s: %w", d.ticksTable, err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_realtime_ticks_code_date ON %s (ts_code, date, time)`, d.ticksTable)
	if _, err := d.DB.Exec(index); err != nil {
		return fmt.Errorf("failed to index %s: %w", d.ticksTable, err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			trade_date DATE PRIMARY KEY,
			is_trading_day BOOLEAN NOT NULL
		);
	`, d.calendarTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create %s: %w", d.calendarTable, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := models.DateOf(time.Now()).AddDays(-retentionDays)

	d.Logger.Info("Cleaning up ticks older than %d days (date < %s)...", retentionDays, cutoff)

	n, err := d.deleteTicksBefore(cutoff)
	if err != nil {
		d.Logger.Error("Cleanup %s error: %v", d.ticksTable, err)
		return err
	}

	d.Logger.Info("Cleanup completed, %d ticks removed", n)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	return d.close()
}
