package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/port"
	"github.com/niksmo/chatshop/pkg/retry"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

var _ port.RecordStore = (*RetryingStore)(nil)

// RetryingStore retries record store calls that failed on a transient
// error with exponential backoff. Writes that are not idempotent are only
// retried when the request provably never reached the server.
type RetryingStore struct {
	next        port.RecordStore
	maxAttempts int
	backoff     retry.Backoff
}

type RetryOpt func(*RetryingStore)

func MaxAttemptsOpt(n int) RetryOpt {
	return func(s *RetryingStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func BaseDelayOpt(d time.Duration) RetryOpt {
	return func(s *RetryingStore) {
		if d > 0 {
			s.backoff = retry.ExponentialBackoff(d)
		}
	}
}

func NewRetryingStore(next port.RecordStore, opts ...RetryOpt) RetryingStore {
	s := RetryingStore{
		next:        next,
		maxAttempts: DefaultMaxAttempts,
		backoff:     retry.ExponentialBackoff(DefaultBaseDelay),
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

func (s RetryingStore) CatalogVersion(ctx context.Context) (string, error) {
	return withRetry(ctx, s, "CatalogVersion", Transient, func() (string, error) {
		return s.next.CatalogVersion(ctx)
	})
}

func (s RetryingStore) ListProducts(ctx context.Context) ([]domain.ProductRow, error) {
	return withRetry(ctx, s, "ListProducts", Transient, func() ([]domain.ProductRow, error) {
		return s.next.ListProducts(ctx)
	})
}

// CompareAndSwapStock is resent only when the batch never reached the
// server. A lost commit acknowledgement would otherwise read as a conflict
// and the caller would re-plan on top of its own decrement.
func (s RetryingStore) CompareAndSwapStock(ctx context.Context, swaps []domain.StockSwap) error {
	_, err := withRetry(ctx, s, "CompareAndSwapStock", safeWrite, func() (struct{}, error) {
		return struct{}{}, s.next.CompareAndSwapStock(ctx, swaps)
	})
	return err
}

func (s RetryingStore) ListDiscounts(ctx context.Context) ([]domain.DiscountRow, error) {
	return withRetry(ctx, s, "ListDiscounts", Transient, func() ([]domain.DiscountRow, error) {
		return s.next.ListDiscounts(ctx)
	})
}

func (s RetryingStore) AppendOrder(ctx context.Context, o domain.Order) error {
	_, err := withRetry(ctx, s, "AppendOrder", safeWrite, func() (struct{}, error) {
		return struct{}{}, s.next.AppendOrder(ctx, o)
	})
	return err
}

func (s RetryingStore) AppendAbandoned(
	ctx context.Context, userID string, cart domain.Cart, at time.Time,
) error {
	_, err := withRetry(ctx, s, "AppendAbandoned", safeWrite, func() (struct{}, error) {
		return struct{}{}, s.next.AppendAbandoned(ctx, userID, cart, at)
	})
	return err
}

func (s RetryingStore) ListAbandoned(ctx context.Context) ([]domain.AbandonedCart, error) {
	return withRetry(ctx, s, "ListAbandoned", Transient, func() ([]domain.AbandonedCart, error) {
		return s.next.ListAbandoned(ctx)
	})
}

func (s RetryingStore) ClearAbandoned(ctx context.Context, userID string) error {
	_, err := withRetry(ctx, s, "ClearAbandoned", Transient, func() (struct{}, error) {
		return struct{}{}, s.next.ClearAbandoned(ctx, userID)
	})
	return err
}

func (s RetryingStore) DeleteAbandonedUpTo(ctx context.Context, maxID int64) error {
	_, err := withRetry(ctx, s, "DeleteAbandonedUpTo", Transient, func() (struct{}, error) {
		return struct{}{}, s.next.DeleteAbandonedUpTo(ctx, maxID)
	})
	return err
}

func withRetry[T any](
	ctx context.Context,
	s RetryingStore,
	method string,
	classify retry.ShouldRetry,
	fn func() (T, error),
) (T, error) {
	op := "RetryingStore." + method
	log := slog.With("op", op)

	cfg := retry.RetryConfig{
		MaxAttempts: s.maxAttempts,
		Backoff:     s.backoff,
		ShouldRetry: classify,
		OnRetry: func(n, max int, err error) {
			log.Warn("record store call failed, retrying",
				"retry", n, "maxAttempts", max, "err", err)
		},
	}

	v, err := retry.DoWithResult(ctx, cfg, fn)
	if err == nil {
		return v, nil
	}

	var zero T
	if errors.Is(err, retry.ErrExhausted) || Transient(err) {
		log.Error("record store unavailable", "err", err)
		return zero, fmt.Errorf("%s: %w: %w", op, domain.ErrRemoteService, err)
	}
	return zero, fmt.Errorf("%s: %w", op, err)
}

// Transient reports whether err looks like a connectivity or server
// availability problem worth another attempt.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientSQLState(pgErr.Code)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// SafeToRetry reports whether err occurred before any data reached the
// server, so even a non-idempotent statement can be resent.
func SafeToRetry(err error) bool {
	if err == nil {
		return false
	}
	return pgconn.SafeToRetry(err) || errors.Is(err, driver.ErrBadConn)
}

// safeWrite accepts errors that guarantee nothing was applied: the
// request never left the client or the server rolled the transaction back.
func safeWrite(err error) bool {
	if SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "40")
}

// transientSQLState matches connection exceptions (08), transaction
// rollbacks (40), insufficient resources (53) and admin shutdown.
func transientSQLState(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"),
		strings.HasPrefix(code, "40"),
		strings.HasPrefix(code, "53"),
		code == "57P01":
		return true
	}
	return false
}
