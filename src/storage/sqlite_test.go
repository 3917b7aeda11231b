package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"market-stream/src/helpers"
	"market-stream/src/logger"
	"market-stream/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var friday = models.MDate{Year: 2025, Month: time.March, Day: 14}

func newTestSQLite(t *testing.T) *AsyncSQLiteDB {
	t.Helper()
	cfg := &models.MConfig{
		Storage: models.MStorageConfig{
			DBType:        "sqlite",
			DBPath:        filepath.Join(t.TempDir(), "nested", "ticks.db"),
			RetentionDays: 30,
		},
	}
	db, err := NewAsyncSQLiteDB(cfg, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tick(t *testing.T, code, ts, price string) models.MTick {
	t.Helper()
	tt, err := models.ParseTickTime(ts)
	require.NoError(t, err)
	return models.MTick{
		TsCode: code,
		Name:   "PF Bank",
		Price:  decimal.NewNullDecimal(decimal.RequireFromString(price)),
		B1P:    decimal.NewNullDecimal(decimal.RequireFromString(price)),
		Time:   tt,
		Source: "sina",
	}
}

func TestSQLite_SaveAndQueryTicks(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, db.SaveTicks(ctx, []models.MTick{
		tick(t, "600000", "2025-03-14 10:00:04.000", "10.55"),
		tick(t, "600000", "2025-03-14 09:30:00.000", "10.50"),
		tick(t, "600000", "2025-03-14 10:00:01.500", "10.52"),
		tick(t, "000001", "2025-03-14 10:00:09.000", "12.00"),
		tick(t, "600000", "2025-03-13 14:59:59.000", "10.40"),
	}))

	history, err := db.HistoricalTicks(ctx, "600000", friday)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2025-03-14 09:30:00.000", history[0].Time.String())
	assert.Equal(t, "2025-03-14 10:00:04.000", history[2].Time.String())
	assert.Equal(t, friday, *history[0].Date)
	assert.Equal(t, "PF Bank", history[0].Name)
	assert.True(t, history[1].Price.Decimal.Equal(decimal.RequireFromString("10.52")))
	assert.True(t, history[1].B1P.Valid)
	assert.False(t, history[1].Open.Valid)

	latest, err := db.LatestTick(ctx, "600000", friday)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2025-03-14 10:00:04.000", latest.Time.String())
}

func TestSQLite_DuplicateTicksIgnored(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()
	batch := []models.MTick{tick(t, "600000", "2025-03-14 10:00:00.000", "10.50")}

	require.NoError(t, db.SaveTicks(ctx, batch))
	require.NoError(t, db.SaveTicks(ctx, batch))

	history, err := db.HistoricalTicks(ctx, "600000", friday)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSQLite_EmptyResults(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	history, err := db.HistoricalTicks(ctx, "600000", friday)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	latest, err := db.LatestTick(ctx, "600000", friday)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestSQLite_TradingCalendar(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	_, err := db.LatestTradingDayOnOrBefore(ctx, friday)
	assert.ErrorIs(t, err, helpers.ErrNoCalendarData)

	require.NoError(t, db.SaveCalendarDays(ctx, []models.MCalendarDay{
		{TradeDate: friday.AddDays(-1), IsTradingDay: true},
		{TradeDate: friday, IsTradingDay: true},
		{TradeDate: friday.AddDays(1), IsTradingDay: false},
		{TradeDate: friday.AddDays(2), IsTradingDay: false},
	}))

	got, err := db.LatestTradingDayOnOrBefore(ctx, friday.AddDays(2))
	require.NoError(t, err)
	assert.Equal(t, friday, got)

	// Friday later marked as a holiday
	require.NoError(t, db.SaveCalendarDays(ctx, []models.MCalendarDay{{TradeDate: friday, IsTradingDay: false}}))
	got, err = db.LatestTradingDayOnOrBefore(ctx, friday)
	require.NoError(t, err)
	assert.Equal(t, friday.AddDays(-1), got)

	_, err = db.LatestTradingDayOnOrBefore(ctx, friday.AddDays(-2))
	assert.ErrorIs(t, err, helpers.ErrNoCalendarData)
}

func TestSQLite_CleanupOldData(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	today := models.DateOf(time.Now())
	old := today.AddDays(-45)
	recent := today.AddDays(-1)

	oldTick := tick(t, "600000", old.String()+" 10:00:00.000", "9.00")
	recentTick := tick(t, "600000", recent.String()+" 10:00:00.000", "10.00")
	require.NoError(t, db.SaveTicks(ctx, []models.MTick{oldTick, recentTick}))

	require.NoError(t, db.CleanupOldData())

	history, err := db.HistoricalTicks(ctx, "600000", old)
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = db.HistoricalTicks(ctx, "600000", recent)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDollarParams(t *testing.T) {
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", dollarParams("SELECT a FROM t WHERE x = ? AND y = ?"))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
