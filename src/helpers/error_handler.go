package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-stream/src/logger"
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrNoCalendarData is returned when no trading day exists on or before the requested date.
	ErrNoCalendarData = errors.New("no trading calendar data found")
	// ErrConnectionClosed is returned by a transport for an unknown or closed connection.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrQueueFull is returned when the worker pool cannot accept another task.
	ErrQueueFull = errors.New("worker queue full")
	// ErrPoolStopped is returned when submitting to a stopped worker pool.
	ErrPoolStopped = errors.New("worker pool stopped")
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type StreamError struct {
	Message string
	Cause   error
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ StreamError }
type DatabaseError struct{ StreamError }
type CalendarError struct{ StreamError }
type SessionStartError struct{ StreamError }
type PollError struct{ StreamError }
type TransportError struct{ StreamError }

func NewConfigurationError(op string, cause error) error {
	return &ConfigurationError{StreamError{Message: op, Cause: cause}}
}

func NewDatabaseError(op string, cause error) error {
	return &DatabaseError{StreamError{Message: op, Cause: cause}}
}

func NewCalendarError(op string, cause error) error {
	return &CalendarError{StreamError{Message: op, Cause: cause}}
}

func NewSessionStartError(cause error) error {
	return &SessionStartError{StreamError{Message: "Failed to initialize tick stream", Cause: cause}}
}

func NewPollError(cause error) error {
	return &PollError{StreamError{Message: "Tick polling interrupted", Cause: cause}}
}

func NewTransportError(op string, cause error) error {
	return &TransportError{StreamError{Message: op, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with
// exponential backoff. Only used while wiring dependencies at startup.
func RetryWithBackoff(ctx context.Context, log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &StreamError{Message: fmt.Sprintf("%s failed after %d attempts", operation, maxRetries), Cause: lastErr}
}
