package interfaces

import (
	"context"

	"market-stream/src/models"
)

// -----------------------------------------------------------------------------
// ITickSource supplies stored ticks for one instrument and trading date.
// -----------------------------------------------------------------------------

type ITickSource interface {

	// HistoricalTicks returns all ticks for the date, ascending by time.
	HistoricalTicks(ctx context.Context, stockCode string, date models.MDate) ([]models.MTick, error)

	// -----------------------------------------------------------------------------

	// LatestTick returns the newest tick for the date, or nil when none exists.
	LatestTick(ctx context.Context, stockCode string, date models.MDate) (*models.MTick, error)
}

// -----------------------------------------------------------------------------
// ITradingCalendar resolves exchange trading days.
// -----------------------------------------------------------------------------

type ITradingCalendar interface {

	// LatestTradingDayOnOrBefore fails with helpers.ErrNoCalendarData when no day qualifies.
	LatestTradingDayOnOrBefore(ctx context.Context, date models.MDate) (models.MDate, error)
}
