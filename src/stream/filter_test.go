package stream

import (
	"testing"
	"time"

	"market-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickAt(t *testing.T, clock string) *models.MTick {
	t.Helper()
	tt, err := models.ParseTickTime("2025-03-14 " + clock)
	require.NoError(t, err)
	return &models.MTick{TsCode: "600000", Time: tt}
}

func TestShouldPush(t *testing.T) {
	threshold := 3 * time.Second
	last := tickAt(t, "09:59:58").Time

	assert.True(t, ShouldPush(tickAt(t, "10:00:00"), nil, threshold), "first tick of a session")
	assert.False(t, ShouldPush(tickAt(t, "10:00:00"), last, threshold), "2s apart")
	assert.True(t, ShouldPush(tickAt(t, "10:00:01"), last, threshold), "exactly 3s apart")
	assert.True(t, ShouldPush(tickAt(t, "10:05:00"), last, threshold))
	assert.False(t, ShouldPush(tickAt(t, "09:59:58"), last, threshold), "same tick again")
	assert.False(t, ShouldPush(tickAt(t, "09:59:00"), last, threshold), "older tick")
}

func TestShouldPush_RequiresTime(t *testing.T) {
	noTime := &models.MTick{TsCode: "600000"}

	assert.False(t, ShouldPush(noTime, nil, 3*time.Second))
	assert.False(t, ShouldPush(noTime, tickAt(t, "09:59:58").Time, 3*time.Second))
	assert.False(t, ShouldPush(&models.MTick{TsCode: "600000", Time: &models.MTickTime{}}, nil, 3*time.Second))
}
