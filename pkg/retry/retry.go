package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"go.uber.org/zap"
)

// Config describes exponential backoff for one kind of call
type Config struct {
	MaxRetries   int           // attempts after the first one
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool // +/-25% on every delay
	// RetryableErrors decides whether err deserves another attempt; nil retries everything
	RetryableErrors func(error) bool
}

// DefaultConfig: three retries, doubling from 100ms up to 5s, with jitter
func DefaultConfig() Config {
	return Config{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 2, Jitter: true}
}

// DatabaseConfig is used while waiting for Postgres at startup.
// Containers often start before the database accepts connections.
func DatabaseConfig() Config {
	c := DefaultConfig()
	c.MaxRetries, c.InitialDelay, c.MaxDelay = 6, 500*time.Millisecond, 8*time.Second
	return c
}

// ArchiveConfig is used for spreadsheet archive uploads
func ArchiveConfig() Config {
	c := DefaultConfig()
	c.InitialDelay, c.MaxDelay = 200*time.Millisecond, 3*time.Second
	c.RetryableErrors = IsRetryable
	return c
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. The original error stays
// reachable through errors.Is and errors.As.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable reports whether err is worth another attempt. Cancellation,
// expired deadlines, open circuit breakers and Permanent errors are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var permanent *permanentError
	switch {
	case errors.As(err, &permanent):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	}
	return true
}

// Do executes fn until it succeeds, fails with a non-retryable error or
// runs out of attempts
func Do(ctx context.Context, config Config, operation string, fn func() error) error {
	_, err := DoWithResult(ctx, config, operation, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for operations that produce a value
func DoWithResult[T any](ctx context.Context, config Config, operation string, fn func() (T, error)) (T, error) {
	var zero T
	log := logger.Log.With(zap.String("operation", operation))

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res, err := fn()
		switch {
		case err == nil:
			if attempt > 0 {
				log.Info("Recovered after retrying", zap.Int("attempts", attempt+1))
			}
			return res, nil
		case config.RetryableErrors != nil && !config.RetryableErrors(err):
			log.Warn("Giving up on non-retryable error", zap.Error(err))
			return zero, err
		case attempt >= config.MaxRetries:
			log.Error("Retries exhausted", zap.Int("attempts", attempt+1), zap.Error(err))
			return zero, fmt.Errorf("operation failed after %d retries: %w", config.MaxRetries, err)
		}

		wait := config.backoff(attempt)
		log.Warn("Attempt failed, backing off",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", config.MaxRetries),
			zap.Duration("wait", wait),
			zap.Error(err))
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

// backoff is InitialDelay * Multiplier^attempt, capped at MaxDelay
func (c Config) backoff(attempt int) time.Duration {
	multiplier := c.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := math.Min(float64(c.InitialDelay)*math.Pow(multiplier, float64(attempt)), float64(c.MaxDelay))

	if c.Jitter {
		//nolint:gosec // G404: math/rand is sufficient for retry jitter
		delay += delay * 0.25 * (rand.Float64()*2 - 1)
	}
	return time.Duration(delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
