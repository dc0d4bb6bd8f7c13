package storage

import (
	"context"
	"errors"
	"time"

	"talentmatch/internal/logging"
)

// RetryPolicy retries transient storage failures with exponential backoff.
// ErrNotFound and context cancellation are never retried.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy matches the backoff used against the object store:
// three retries starting at 500ms, doubling each attempt
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

// Do runs fn up to MaxRetries+1 times, sleeping between attempts. The op
// name is only used for logging.
func (p RetryPolicy) Do(ctx context.Context, logger logging.Logger, op string, fn func() error) error {
	delay := p.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		lastErr = err
		if attempt == p.MaxRetries {
			break
		}

		logger.Warn("Storage operation failed, retrying", map[string]interface{}{
			"operation": op,
			"attempt":   attempt + 1,
			"delay":     delay.String(),
			"error":     err.Error(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * p.BackoffFactor)
	}

	logger.Error("Storage operation failed after retries", map[string]interface{}{
		"operation": op,
		"attempts":  p.MaxRetries + 1,
		"error":     lastErr.Error(),
	})
	return lastErr
}
