package stream

import (
	"time"

	"market-stream/src/models"
)

// -----------------------------------------------------------------------------
// Exchange session windows (exchange-local time, start inclusive, end exclusive)
// -----------------------------------------------------------------------------

type phaseWindow struct {
	start time.Duration
	end   time.Duration
	phase models.MTradingPhase
}

func clockAt(hour, minute int) time.Duration {
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute
}

// Checked in order; anything past the last window is FINISHED.
var sessionWindows = []phaseWindow{
	{start: 0, end: clockAt(9, 15), phase: models.PhaseWaiting},
	{start: clockAt(9, 15), end: clockAt(9, 25), phase: models.PhaseTrading}, // pre-open auction
	{start: clockAt(9, 25), end: clockAt(9, 30), phase: models.PhaseWaiting}, // silent period
	{start: clockAt(9, 30), end: clockAt(11, 30), phase: models.PhaseTrading},
	{start: clockAt(11, 30), end: clockAt(13, 0), phase: models.PhaseWaiting}, // lunch
	{start: clockAt(13, 0), end: clockAt(15, 0), phase: models.PhaseTrading},
}

// PhaseAt returns the trading phase of tradingDate as seen at now. now must
// already be in the exchange location.
func PhaseAt(tradingDate models.MDate, now time.Time) models.MTradingPhase {
	today := models.DateOf(now)
	if tradingDate.Before(today) {
		return models.PhaseFinished
	}
	if tradingDate.After(today) {
		return models.PhaseWaiting
	}

	tod := clockAt(now.Hour(), now.Minute()) +
		time.Duration(now.Second())*time.Second + time.Duration(now.Nanosecond())
	for _, w := range sessionWindows {
		if tod >= w.start && tod < w.end {
			return w.phase
		}
	}
	return models.PhaseFinished
}

// -----------------------------------------------------------------------------
// Status text sent with INITIAL and STATE messages
// -----------------------------------------------------------------------------

const (
	StatusTrading        = "live, continuously streaming quotes"
	StatusWaitingToday   = "waiting for the trading session to begin; updates will resume"
	StatusWaitingHistory = "returned historical data; waiting for the next trading day"
	StatusFinished       = "today's trading has ended; connection may be closed"
)

func StatusText(phase models.MTradingPhase, isToday bool) string {
	switch phase {
	case models.PhaseTrading:
		return StatusTrading
	case models.PhaseWaiting:
		if isToday {
			return StatusWaitingToday
		}
		return StatusWaitingHistory
	default:
		return StatusFinished
	}
}
