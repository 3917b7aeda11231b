package stream

import (
	"time"

	"market-stream/src/models"
)

// ShouldPush decides whether latest is new enough to forward. A tick without a
// timestamp is never pushed; the first tick of a session always is.
func ShouldPush(latest *models.MTick, lastPushed *models.MTickTime, threshold time.Duration) bool {
	if !latest.HasTime() {
		return false
	}
	if lastPushed == nil {
		return true
	}
	return latest.Time.Sub(*lastPushed) >= threshold
}
