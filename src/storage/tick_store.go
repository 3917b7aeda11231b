package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"market-stream/src/helpers"
	"market-stream/src/logger"
	"market-stream/src/models"
)

// Column order shared by every tick query; matches tickArgs and scanTick.
var tickColumns = []string{
	"ts_code", "name",
	"trade", "price", "open", "high", "low", "pre_close", "bid", "ask", "volume", "amount",
	"b1_v", "b1_p", "b2_v", "b2_p", "b3_v", "b3_p", "b4_v", "b4_p", "b5_v", "b5_p",
	"a1_v", "a1_p", "a2_v", "a2_p", "a3_v", "a3_p", "a4_v", "a4_p", "a5_v", "a5_p",
	"date", "time", "source", "raw_json",
}

// -----------------------------------------------------------------------------

// tickStore holds the SQL shared by the sqlite and postgres backends. Queries
// are written with ? placeholders and rebound per dialect.
type tickStore struct {
	db            *sql.DB
	ticksTable    string
	calendarTable string
	rebind        func(string) string
	logger        *logger.Logger
}

// -----------------------------------------------------------------------------

func (s *tickStore) HistoricalTicks(ctx context.Context, stockCode string, date models.MDate) ([]models.MTick, error) {
	query := s.rebind(fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE ts_code = ? AND date = ?
		ORDER BY time ASC NULLS LAST
	`, strings.Join(tickColumns, ", "), s.ticksTable))

	rows, err := s.db.QueryContext(ctx, query, stockCode, date)
	if err != nil {
		return nil, helpers.NewDatabaseError("query historical ticks", err)
	}
	defer rows.Close()

	ticks := make([]models.MTick, 0)
	for rows.Next() {
		tick, err := scanTick(rows)
		if err != nil {
			return nil, helpers.NewDatabaseError("scan tick", err)
		}
		ticks = append(ticks, tick)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate ticks", err)
	}
	return ticks, nil
}

// -----------------------------------------------------------------------------

func (s *tickStore) LatestTick(ctx context.Context, stockCode string, date models.MDate) (*models.MTick, error) {
	query := s.rebind(fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE ts_code = ? AND date = ?
		ORDER BY time DESC NULLS LAST
		LIMIT 1
	`, strings.Join(tickColumns, ", "), s.ticksTable))

	tick, err := scanTick(s.db.QueryRowContext(ctx, query, stockCode, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("query latest tick", err)
	}
	return &tick, nil
}

// -----------------------------------------------------------------------------

func (s *tickStore) LatestTradingDayOnOrBefore(ctx context.Context, date models.MDate) (models.MDate, error) {
	query := s.rebind(fmt.Sprintf(`
		SELECT trade_date FROM %s
		WHERE trade_date <= ? AND is_trading_day = ?
		ORDER BY trade_date DESC
		LIMIT 1
	`, s.calendarTable))

	var day models.MDate
	err := s.db.QueryRowContext(ctx, query, date, true).Scan(&day)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MDate{}, helpers.ErrNoCalendarData
	}
	if err != nil {
		return models.MDate{}, helpers.NewDatabaseError("query trading calendar", err)
	}
	return day, nil
}

// -----------------------------------------------------------------------------

func (s *tickStore) SaveTicks(ctx context.Context, ticks []models.MTick) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return helpers.NewDatabaseError("begin tick batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		ON CONFLICT DO NOTHING
	`, s.ticksTable, strings.Join(tickColumns, ", "), placeholders(len(tickColumns)))))
	if err != nil {
		return helpers.NewDatabaseError("prepare tick insert", err)
	}
	defer stmt.Close()

	for i := range ticks {
		if _, err := stmt.ExecContext(ctx, tickArgs(&ticks[i])...); err != nil {
			return helpers.NewDatabaseError("insert tick", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("commit tick batch", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *tickStore) SaveCalendarDays(ctx context.Context, days []models.MCalendarDay) error {
	if len(days) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return helpers.NewDatabaseError("begin calendar batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(fmt.Sprintf(`
		INSERT INTO %s (trade_date, is_trading_day)
		VALUES (?, ?)
		ON CONFLICT (trade_date) DO UPDATE SET is_trading_day = excluded.is_trading_day
	`, s.calendarTable)))
	if err != nil {
		return helpers.NewDatabaseError("prepare calendar upsert", err)
	}
	defer stmt.Close()

	for _, d := range days {
		if _, err := stmt.ExecContext(ctx, d.TradeDate, d.IsTradingDay); err != nil {
			return helpers.NewDatabaseError("upsert calendar day", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("commit calendar batch", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// deleteTicksBefore removes every tick whose trading date is before cutoff.
func (s *tickStore) deleteTicksBefore(cutoff models.MDate) (int64, error) {
	res, err := s.db.Exec(s.rebind(fmt.Sprintf(`DELETE FROM %s WHERE date < ?`, s.ticksTable)), cutoff)
	if err != nil {
		return 0, helpers.NewDatabaseError("delete old ticks", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *tickStore) close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Row mapping
// -----------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func tickArgs(t *models.MTick) []interface{} {
	args := make([]interface{}, 0, len(tickColumns))
	args = append(args, t.TsCode, nullString(t.Name))
	for _, col := range t.QuoteColumns() {
		args = append(args, *col)
	}
	for _, col := range t.DepthColumns() {
		args = append(args, *col)
	}

	var date interface{}
	switch {
	case t.Date != nil:
		date = *t.Date
	case t.HasTime():
		date = models.DateOf(t.Time.Time)
	}
	var tickTime interface{}
	if t.HasTime() {
		tickTime = *t.Time
	}

	return append(args, date, tickTime, nullString(t.Source), nullString(t.RawJSON))
}

func scanTick(row rowScanner) (models.MTick, error) {
	var (
		t                     models.MTick
		name, source, rawJSON sql.NullString
	)
	dest := make([]interface{}, 0, len(tickColumns))
	dest = append(dest, &t.TsCode, &name)
	for _, col := range t.QuoteColumns() {
		dest = append(dest, col)
	}
	for _, col := range t.DepthColumns() {
		dest = append(dest, col)
	}
	dest = append(dest, &t.Date, &t.Time, &source, &rawJSON)

	if err := row.Scan(dest...); err != nil {
		return models.MTick{}, err
	}
	t.Name = name.String
	t.Source = source.String
	t.RawJSON = rawJSON.String
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// -----------------------------------------------------------------------------
// Placeholder dialects
// -----------------------------------------------------------------------------

func questionMarks(query string) string {
	return query
}

// dollarParams rewrites ? placeholders to $1, $2, ... for lib/pq.
func dollarParams(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
