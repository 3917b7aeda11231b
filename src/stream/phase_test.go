package stream

import (
	"testing"
	"time"

	"market-stream/src/models"

	"github.com/stretchr/testify/assert"
)

var shanghai = time.FixedZone("CST", 8*3600)

func at(hour, minute, second int) time.Time {
	return time.Date(2025, time.March, 14, hour, minute, second, 0, shanghai)
}

func TestPhaseAt_SessionWindows(t *testing.T) {
	today := models.MDate{Year: 2025, Month: time.March, Day: 14}

	cases := []struct {
		name string
		now  time.Time
		want models.MTradingPhase
	}{
		{"midnight", at(0, 0, 0), models.PhaseWaiting},
		{"before auction", at(9, 14, 59), models.PhaseWaiting},
		{"auction opens", at(9, 15, 0), models.PhaseTrading},
		{"auction last second", at(9, 24, 59), models.PhaseTrading},
		{"silent period", at(9, 25, 0), models.PhaseWaiting},
		{"continuous opens", at(9, 30, 0), models.PhaseTrading},
		{"morning", at(10, 0, 0), models.PhaseTrading},
		{"lunch", at(11, 30, 0), models.PhaseWaiting},
		{"lunch end", at(12, 59, 59), models.PhaseWaiting},
		{"afternoon opens", at(13, 0, 0), models.PhaseTrading},
		{"last second", at(14, 59, 59), models.PhaseTrading},
		{"close", at(15, 0, 0), models.PhaseFinished},
		{"evening", at(23, 59, 59), models.PhaseFinished},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PhaseAt(today, tc.now))
		})
	}
}

func TestPhaseAt_SubSecondBoundary(t *testing.T) {
	today := models.MDate{Year: 2025, Month: time.March, Day: 14}
	justBefore := time.Date(2025, time.March, 14, 14, 59, 59, int(999*time.Millisecond), shanghai)

	assert.Equal(t, models.PhaseTrading, PhaseAt(today, justBefore))
	assert.Equal(t, models.PhaseFinished, PhaseAt(today, justBefore.Add(time.Millisecond)))
}

func TestPhaseAt_OtherDates(t *testing.T) {
	today := models.MDate{Year: 2025, Month: time.March, Day: 14}

	// Any time of day: a past trading date is over, a future one has not begun.
	for _, now := range []time.Time{at(8, 0, 0), at(10, 0, 0), at(16, 0, 0)} {
		assert.Equal(t, models.PhaseFinished, PhaseAt(today.AddDays(-1), now))
		assert.Equal(t, models.PhaseWaiting, PhaseAt(today.AddDays(1), now))
	}
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, StatusTrading, StatusText(models.PhaseTrading, true))
	assert.Equal(t, StatusTrading, StatusText(models.PhaseTrading, false))
	assert.Equal(t, StatusWaitingToday, StatusText(models.PhaseWaiting, true))
	assert.Equal(t, StatusWaitingHistory, StatusText(models.PhaseWaiting, false))
	assert.Equal(t, StatusFinished, StatusText(models.PhaseFinished, true))
	assert.Equal(t, StatusFinished, StatusText(models.PhaseFinished, false))
}
