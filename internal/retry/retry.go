// Package retry runs operations with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// Config configures retry behavior.
type Config struct {
	MaxAttempts int           // Maximum number of attempts (including initial)
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries

	// Retryable decides whether an error triggers another attempt.
	// Nil means IsRetryable.
	Retryable func(error) bool
}

// DefaultConfig returns the default retry configuration.
// 3 attempts total with delays of about 1s and 2s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    4 * time.Second,
	}
}

// Do executes op with the default configuration.
func Do[T any](ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	return DoWithConfig(ctx, DefaultConfig(), op)
}

// DoWithConfig executes op until it succeeds, returns a non-retryable error,
// or MaxAttempts is reached. The last error is wrapped with the attempt count.
func DoWithConfig[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error)) (T, error) {
	var result T
	var err error

	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	attempts := max(cfg.MaxAttempts, 1)

	for attempt := 0; attempt < attempts; attempt++ {
		result, err = op(ctx)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return result, err
		}

		// No delay after the last attempt
		if attempt < attempts-1 {
			timer := time.NewTimer(delay(attempt, cfg.BaseDelay, cfg.MaxDelay))
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return result, fmt.Errorf("operation failed after %d attempts: %w", attempts, err)
}

// delay returns the backoff for attempt, jittered into [d/2, d).
func delay(attempt int, base, maxDelay time.Duration) time.Duration {
	d := base * (1 << attempt)
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + rand.N(half) //nolint:gosec // G404: jitter does not need crypto randomness
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, walleterr.ErrRetryable) ||
		errors.Is(err, walleterr.ErrTimeout) ||
		errors.Is(err, walleterr.ErrNetwork) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Mark wraps err so that IsRetryable reports true.
func Mark(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", walleterr.ErrRetryable, err)
}
