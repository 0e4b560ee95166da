package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int `validate:"gte=1,lte=10"`

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration `validate:"gte=0"`

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration `validate:"gtefield=InitialBackoff"`

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64 `validate:"gte=1"`
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ForClass scales the configuration for an error class.
func (c RetryConfig) ForClass(errorClass ErrorClass) RetryConfig {
	switch errorClass {
	case ErrorClassRateLimit:
		// 429 - longer backoff unless Retry-After says otherwise
		c.InitialBackoff *= 5
		c.MaxBackoff *= 2
	case ErrorClassNetwork:
		c.InitialBackoff *= 2
	}
	if c.InitialBackoff > c.MaxBackoff {
		c.InitialBackoff = c.MaxBackoff
	}
	return c
}

// Backoff returns the un-jittered delay before retry number attempt (1-based).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	backoff := float64(c.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= c.BackoffMultiplier
		if backoff >= float64(c.MaxBackoff) {
			return c.MaxBackoff
		}
	}
	return time.Duration(backoff)
}

// attemptOutcome describes one failed attempt. With handBack set the
// attempt produced an error response that the caller decodes itself, and
// err is ignored.
type attemptOutcome struct {
	class      ErrorClass
	retryAfter time.Duration
	err        error
	handBack   bool
}

// retryWithBackoff calls fn until it succeeds, hands back a response,
// returns a non-retryable outcome, or runs out of attempts. fn receives
// the 1-based attempt number and whether it is the last one. It respects
// context cancellation and adds ±20% jitter to computed backoffs. A
// server-provided Retry-After is used as-is.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, fn func(attempt int, last bool) *attemptOutcome) error {
	var last *attemptOutcome

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		outcome := fn(attempt, attempt == cfg.MaxAttempts)
		if outcome == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}
		last = outcome

		if outcome.handBack {
			if shouldRetry(outcome.class) {
				retryExhaustedTotal.WithLabelValues(string(outcome.class)).Inc()
				logger.Warn().
					Str("error_class", string(outcome.class)).
					Int("max_attempts", cfg.MaxAttempts).
					Msg("Retry attempts exhausted, returning last response")
			}
			return nil
		}
		if !shouldRetry(outcome.class) {
			return outcome.err
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(outcome.class)).Inc()

		wait := outcome.retryAfter
		if wait <= 0 {
			base := cfg.ForClass(outcome.class).Backoff(attempt)
			wait = time.Duration(float64(base) * (0.8 + rand.Float64()*0.4))
		}
		retryBackoffSeconds.WithLabelValues(string(outcome.class)).Observe(wait.Seconds())

		logger.Debug().
			Str("error_class", string(outcome.class)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("error_class", string(outcome.class)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	retryExhaustedTotal.WithLabelValues(string(last.class)).Inc()
	logger.Warn().
		Str("error_class", string(last.class)).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, cfg.MaxAttempts, last.err)
}
