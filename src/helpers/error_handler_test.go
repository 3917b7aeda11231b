package helpers

import (
	"context"
	"errors"
	"testing"
	"time"

	"market-stream/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamError_WrapsCause(t *testing.T) {
	err := NewPollError(ErrConnectionClosed)

	assert.Equal(t, "Tick polling interrupted: connection closed", err.Error())
	assert.ErrorIs(t, err, ErrConnectionClosed)

	var pe *PollError
	assert.True(t, errors.As(err, &pe))

	var se *SessionStartError
	assert.False(t, errors.As(err, &se))
}

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), logger.NewNop(), "ping", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	boom := errors.New("boom")
	err := RetryWithBackoff(context.Background(), logger.NewNop(), "ping", 2, time.Millisecond, func() error {
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "ping failed after 2 attempts")
}

func TestRetryWithBackoff_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, logger.NewNop(), "ping", 5, time.Hour, func() error {
		return errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
