package interfaces

import (
	"context"

	"market-stream/src/models"
)

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {
	ITickSource
	ITradingCalendar

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveTicks inserts a batch of ticks, ignoring rows already stored.
	SaveTicks(ctx context.Context, ticks []models.MTick) error

	// -----------------------------------------------------------------------------

	// SaveCalendarDays upserts trading calendar rows.
	SaveCalendarDays(ctx context.Context, days []models.MCalendarDay) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes ticks older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
