package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/niksmo/chatshop/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errPermanent = errors.New("permanent")
)

func onlyTransient(err error) bool {
	return errors.Is(err, errTransient)
}

func TestExponentialBackoff(t *testing.T) {
	b := retry.ExponentialBackoff(time.Second)
	assert.Equal(t, time.Second, b(0))
	assert.Equal(t, 2*time.Second, b(1))
	assert.Equal(t, 4*time.Second, b(2))
}

func TestJitterBackoff(t *testing.T) {
	b := retry.JitterBackoff(10 * time.Millisecond)
	for i := range 3 {
		d := b(i)
		base := (10 * time.Millisecond) << i
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/2+1)
	}
}

func TestDoWithResult(t *testing.T) {
	t.Run("FirstAttemptSucceeds", func(t *testing.T) {
		calls := 0
		v, err := retry.DoWithResult(t.Context(), retry.RetryConfig{MaxAttempts: 3},
			func() (int, error) {
				calls++
				return 42, nil
			})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 1, calls)
	})

	t.Run("RetriesTransientThenSucceeds", func(t *testing.T) {
		calls := 0
		var retries []int
		cfg := retry.RetryConfig{
			MaxAttempts: 3,
			Backoff:     retry.LinearBackoff(time.Millisecond),
			ShouldRetry: onlyTransient,
			OnRetry: func(n, max int, err error) {
				retries = append(retries, n)
				assert.Equal(t, 3, max)
				assert.ErrorIs(t, err, errTransient)
			},
		}
		v, err := retry.DoWithResult(t.Context(), cfg, func() (string, error) {
			calls++
			if calls < 3 {
				return "", errTransient
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{1, 2}, retries)
	})

	t.Run("PermanentErrorIsNotRetried", func(t *testing.T) {
		calls := 0
		cfg := retry.RetryConfig{
			MaxAttempts: 3,
			Backoff:     retry.LinearBackoff(time.Millisecond),
			ShouldRetry: onlyTransient,
		}
		_, err := retry.DoWithResult(t.Context(), cfg, func() (int, error) {
			calls++
			return 0, errPermanent
		})
		require.ErrorIs(t, err, errPermanent)
		assert.NotErrorIs(t, err, retry.ErrExhausted)
		assert.Equal(t, 1, calls)
	})

	t.Run("Exhausted", func(t *testing.T) {
		calls := 0
		retries := 0
		cfg := retry.RetryConfig{
			MaxAttempts: 3,
			Backoff:     retry.LinearBackoff(time.Millisecond),
			ShouldRetry: onlyTransient,
			OnRetry:     func(int, int, error) { retries++ },
		}
		err := retry.Do(t.Context(), cfg, func() error {
			calls++
			return errTransient
		})
		require.ErrorIs(t, err, retry.ErrExhausted)
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, retries)
	})

	t.Run("CanceledWhileWaiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cfg := retry.RetryConfig{
			MaxAttempts: 5,
			Backoff:     retry.LinearBackoff(time.Hour),
			OnRetry:     func(int, int, error) { cancel() },
		}
		err := retry.Do(ctx, cfg, func() error { return errTransient })
		require.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, errTransient)
	})

	t.Run("CanceledBeforeStart", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		calls := 0
		err := retry.Do(ctx, retry.RetryConfig{}, func() error {
			calls++
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})
}
