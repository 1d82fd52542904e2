package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const defaultDelay = 100 * time.Millisecond

// ErrExhausted is joined to the last error when every attempt failed
// with a retryable error.
var ErrExhausted = errors.New("retry attempts exhausted")

// A Backoff returns the delay before the next call.
// The retry argument is zero-based: 0 is the wait after the first failure.
type Backoff func(retry int) time.Duration

type ShouldRetry func(error) bool

// An OnRetry is called once per scheduled retry, before sleeping.
type OnRetry func(retry int, maxAttempts int, err error)

type RetryConfig struct {
	MaxAttempts int
	Backoff     Backoff
	ShouldRetry ShouldRetry
	OnRetry     OnRetry
}

func (s *RetryConfig) normalize() {
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = 1
	}

	if s.Backoff == nil {
		s.Backoff = defaultBackoff()
	}

	if s.ShouldRetry == nil {
		s.ShouldRetry = alwaysRetry
	}

	if s.OnRetry == nil {
		s.OnRetry = func(int, int, error) {}
	}
}

func defaultBackoff() Backoff {
	return ExponentialBackoff(defaultDelay)
}

func alwaysRetry(error) bool {
	return true
}

// ExponentialBackoff waits delay*2^retry.
func ExponentialBackoff(delay time.Duration) Backoff {
	return func(retry int) time.Duration {
		return delay << retry
	}
}

// JitterBackoff adds up to half of the base delay on top of [ExponentialBackoff].
func JitterBackoff(delay time.Duration) Backoff {
	exp := ExponentialBackoff(delay)
	return func(retry int) time.Duration {
		base := exp(retry)
		if base < 2 {
			return base
		}
		jitter := time.Duration(rand.IntN(int(base/2)) + 1)
		return base + jitter
	}
}

func LinearBackoff(delay time.Duration) Backoff {
	return func(int) time.Duration {
		return delay
	}
}

func Do(ctx context.Context, c RetryConfig, fn func() error) error {
	_, err := DoWithResult(ctx, c, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult calls fn until it succeeds, returns a non-retryable error
// or runs out of attempts. Non-retryable errors are returned as is.
func DoWithResult[T any](ctx context.Context, c RetryConfig, fn func() (T, error)) (T, error) {
	var (
		zero, result T
		err          error
	)

	err = ctx.Err()
	if err != nil {
		return zero, err
	}

	c.normalize()
	var timer *time.Timer

	for attempt := 0; attempt < c.MaxAttempts; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}
		if !c.ShouldRetry(err) {
			return zero, err
		}
		if attempt == c.MaxAttempts-1 {
			break
		}

		c.OnRetry(attempt+1, c.MaxAttempts, err)

		wait := c.Backoff(attempt)
		if timer == nil {
			timer = time.NewTimer(wait)
			defer timer.Stop()
		} else {
			timer.Reset(wait)
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("%w: %w", ErrExhausted, err)
}
