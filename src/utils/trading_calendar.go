package utils

import (
	"context"
	"errors"
	"strings"
	"time"

	"market-stream/src/helpers"
	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/models"

	"github.com/scmhub/calendar"
)

// maxLookbackDays bounds the backward walk; no exchange closes for longer.
const maxLookbackDays = 30

// ExchangeCalendar answers trading-day questions from the scmhub/calendar
// holiday rules of one exchange.
type ExchangeCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// NewExchangeCalendar loads the calendar for mic (ISO 10383, e.g. "xshg").
// Unknown codes fall back to a plain Monday to Friday week.
func NewExchangeCalendar(mic string, log *logger.Logger) *ExchangeCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		log.Warning("No holiday calendar for MIC '%s'. Using Mon-Fri fallback.", mic)
		return &ExchangeCalendar{MIC: mic, Fallback: true, Timezone: time.UTC}
	}
	return &ExchangeCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (ec *ExchangeCalendar) IsTradingDay(date models.MDate) bool {
	// Noon avoids any day shift from the calendar's own location.
	t := time.Date(date.Year, date.Month, date.Day, 12, 0, 0, 0, ec.Timezone)

	if ec.Fallback {
		weekday := t.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return ec.Calendar.IsBusinessDay(t)
}

// Days lists the calendar rows for [from, to], inclusive.
func (ec *ExchangeCalendar) Days(from, to models.MDate) []models.MCalendarDay {
	var days []models.MCalendarDay
	for d := from; !d.After(to); d = d.AddDays(1) {
		days = append(days, models.MCalendarDay{TradeDate: d, IsTradingDay: ec.IsTradingDay(d)})
	}
	return days
}

// LatestTradingDayOnOrBefore walks back from date to the nearest trading day.
func (ec *ExchangeCalendar) LatestTradingDayOnOrBefore(ctx context.Context, date models.MDate) (models.MDate, error) {
	for i := 0; i <= maxLookbackDays; i++ {
		if err := ctx.Err(); err != nil {
			return models.MDate{}, err
		}
		candidate := date.AddDays(-i)
		if ec.IsTradingDay(candidate) {
			return candidate, nil
		}
	}
	return models.MDate{}, helpers.ErrNoCalendarData
}

// -----------------------------------------------------------------------------
// ChainCalendar
// -----------------------------------------------------------------------------

// ChainCalendar asks the stored calendar first and consults the exchange rules
// when the store has no row for the requested range, or when its answer lies
// further back than any exchange closes, which means the table is stale.
type ChainCalendar struct {
	primary  interfaces.ITradingCalendar
	fallback interfaces.ITradingCalendar
	logger   *logger.Logger
}

func NewChainCalendar(primary, fallback interfaces.ITradingCalendar, log *logger.Logger) *ChainCalendar {
	return &ChainCalendar{primary: primary, fallback: fallback, logger: log}
}

func (c *ChainCalendar) LatestTradingDayOnOrBefore(ctx context.Context, date models.MDate) (models.MDate, error) {
	day, err := c.primary.LatestTradingDayOnOrBefore(ctx, date)
	stale := err == nil && day.Before(date.AddDays(-maxLookbackDays))

	switch {
	case c.fallback == nil:
		if stale {
			c.logger.Warning("Calendar table looks stale: latest trading day on or before %s is %s", date, day)
		}
		return day, err
	case stale:
		c.logger.Warning("Calendar table looks stale: latest trading day on or before %s is %s, using exchange rules", date, day)
	case err == nil:
		return day, nil
	case !errors.Is(err, helpers.ErrNoCalendarData):
		return day, err
	default:
		c.logger.Warning("Calendar table has no trading day on or before %s, using exchange rules", date)
	}

	day, err = c.fallback.LatestTradingDayOnOrBefore(ctx, date)
	if err != nil {
		return models.MDate{}, helpers.NewCalendarError("exchange calendar lookup", err)
	}
	return day, nil
}
