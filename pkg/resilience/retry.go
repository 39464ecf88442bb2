package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// ErrNotRetryable marks an error that Retry gave up on without backing off
// because another attempt could not succeed.
var ErrNotRetryable = errors.New("not retryable")

type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	// Retryable reports whether an attempt's error is worth another try.
	// Nil treats every error as transient.
	Retryable func(error) bool
	// Logger receives one line per failed attempt. Nil uses slog.Default.
	Logger *slog.Logger
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFraction <= 0 {
		c.JitterFraction = 0.1
	}
	if c.Logger == nil {
		c.Logger = slog.Default().With("component", "retry")
	}
	return c
}

// Retry calls fn until it succeeds, cfg.MaxAttempts is reached, ctx ends or
// cfg.Retryable rejects the error. op names the operation in logs and in
// the returned error. A rejected error is returned wrapped with
// ErrNotRetryable after a single attempt.
func Retry(ctx context.Context, op string, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With("op", op)

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("recovered after retry", "attempt", attempt)
			}
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(lastErr) {
			logger.Warn("permanent failure, not retrying", "attempt", attempt, "error", lastErr)
			return fmt.Errorf("%s: %w: %w", op, ErrNotRetryable, lastErr)
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: retry aborted: %w", op, ctx.Err())
		}
		delay := backoff(attempt, cfg)
		logger.Warn("attempt failed, backing off",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"backoff", delay,
			"error", lastErr,
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: retry aborted during backoff: %w", op, ctx.Err())
		}
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", op, cfg.MaxAttempts, lastErr)
}

// backoff is the exponential delay before attempt+1, with symmetric jitter,
// capped at cfg.MaxDelay.
func backoff(attempt int, cfg RetryConfig) time.Duration {
	d := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	d += d * cfg.JitterFraction * (2*rand.Float64() - 1)
	if d <= 0 {
		return cfg.InitialDelay
	}
	return min(time.Duration(d), cfg.MaxDelay)
}
