package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"market-stream/src/logger"
	"market-stream/src/models"

	_ "modernc.org/sqlite"
)

const (
	sqliteTicksTable    = "market_realtime_ticks"
	sqliteCalendarTable = "trading_calendar"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	tickStore

	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db
	d.tickStore = tickStore{
		db:            db,
		ticksTable:    sqliteTicksTable,
		calendarTable: sqliteCalendarTable,
		rebind:        questionMarks,
		logger:        d.Logger,
	}

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		d.Logger.Warning("Failed to set busy timeout: %v", err)
	}

	return d.ensureTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) ensureTables() error {
	// Decimals are kept as TEXT so values round-trip exactly.
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts_code TEXT NOT NULL,
			name TEXT,
			trade TEXT, price TEXT, open TEXT, high TEXT, low TEXT,
			pre_close TEXT, bid TEXT, ask TEXT, volume TEXT, amount TEXT,
			b1_v TEXT, b1_p TEXT, b2_v TEXT, b2_p TEXT, b3_v TEXT, b3_p TEXT,
			b4_v TEXT, b4_p TEXT, b5_v TEXT, b5_p TEXT,
			a1_v TEXT, a1_p TEXT, a2_v TEXT, a2_p TEXT, a3_v TEXT, a3_p TEXT,
			a4_v TEXT, a4_p TEXT, a5_v TEXT, a5_p TEXT,
			date TEXT,
			time TEXT,
			source TEXT,
			raw_json TEXT,
			UNIQUE (ts_code, time)
		);
	`, sqliteTicksTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create %s: %w", sqliteTicksTable, err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_code_date ON %s (ts_code, date, time)`,
		sqliteTicksTable, sqliteTicksTable)
	if _, err := d.DB.Exec(index); err != nil {
		return fmt.Errorf("failed to index %s: %w", sqliteTicksTable, err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			trade_date TEXT PRIMARY KEY,
			is_trading_day INTEGER NOT NULL
		);
	`, sqliteCalendarTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create %s: %w", sqliteCalendarTable, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := models.DateOf(time.Now()).AddDays(-retentionDays)

	d.Logger.Info("Cleaning up ticks older than %d days (date < %s)...", retentionDays, cutoff)

	n, err := d.deleteTicksBefore(cutoff)
	if err != nil {
		d.Logger.Error("Cleanup %s error: %v", sqliteTicksTable, err)
		return err
	}

	d.Logger.Info("Cleanup completed, %d ticks removed", n)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	return d.close()
}
