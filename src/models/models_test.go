package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMDate_Ordering(t *testing.T) {
	d := MDate{Year: 2025, Month: time.March, Day: 14}

	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-1)))
	assert.False(t, d.Before(d))
	assert.Equal(t, MDate{Year: 2025, Month: time.March, Day: 1}, MDate{Year: 2025, Month: time.February, Day: 28}.AddDays(1))
	assert.Equal(t, "2025-03-14", d.String())
}

func TestMDate_Scan(t *testing.T) {
	var d MDate
	require.NoError(t, d.Scan("2025-03-14"))
	assert.Equal(t, "2025-03-14", d.String())

	require.NoError(t, d.Scan(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-12-31", d.String())

	require.NoError(t, d.Scan([]byte("2024-01-02T00:00:00Z")))
	assert.Equal(t, "2024-01-02", d.String())

	assert.Error(t, d.Scan(42))
}

func TestMTickTime_ParseAndSub(t *testing.T) {
	a, err := ParseTickTime("2025-03-14 09:59:58.000")
	require.NoError(t, err)
	b, err := ParseTickTime("2025-03-14 10:00:02")
	require.NoError(t, err)

	assert.Equal(t, 4*time.Second, b.Sub(*a))
	assert.Equal(t, "2025-03-14 10:00:02.000", b.String())

	_, err = ParseTickTime("yesterday")
	assert.Error(t, err)
}

func TestNewTickTime_KeepsWallClock(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	tt := NewTickTime(time.Date(2025, 3, 14, 9, 30, 0, 0, shanghai))
	assert.Equal(t, "2025-03-14 09:30:00.000", tt.String())
}

func TestStreamMessage_PayloadFields(t *testing.T) {
	date := MDate{Year: 2025, Month: time.March, Day: 14}

	initial, err := json.Marshal(&MStreamMessage{
		Type:        MessageInitial,
		Phase:       PhaseWaiting,
		StockCode:   "600000",
		TradingDate: &date,
		Ticks:       []MTick{},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"INITIAL","phase":"WAITING","stockCode":"600000","tradingDate":"2025-03-14","tradingFinished":false,"ticks":[]}`, string(initial))

	state, err := json.Marshal(&MStreamMessage{
		Type:            MessageState,
		Phase:           PhaseFinished,
		Message:         "done",
		StockCode:       "600000",
		TradingDate:     &date,
		TradingFinished: true,
	})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(state, &decoded))
	assert.NotContains(t, decoded, "ticks")
	assert.NotContains(t, decoded, "tick")
	assert.Equal(t, true, decoded["tradingFinished"])
}

func TestMTick_JSONRoundTripKeepsTimeFormat(t *testing.T) {
	tt, err := ParseTickTime("2025-03-14 10:00:02.500")
	require.NoError(t, err)
	tick := MTick{
		TsCode: "600000",
		Price:  decimal.NewNullDecimal(decimal.RequireFromString("10.52")),
		Time:   tt,
	}

	raw, err := json.Marshal(tick)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"time":"2025-03-14 10:00:02.500"`)
	assert.Contains(t, string(raw), `"open":null`)

	var back MTick
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.HasTime())
	assert.True(t, back.Price.Decimal.Equal(decimal.RequireFromString("10.52")))
	assert.False(t, back.Open.Valid)
}
