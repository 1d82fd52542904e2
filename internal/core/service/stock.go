package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/port"
)

const DefaultCommitAttempts = 3

type stockCache interface {
	SetStock(productID string, stock int)
}

// A StockCommitter decrements authoritative stock once, at order
// confirmation. It validates every line against a fresh read before
// writing anything and writes with a compare-and-swap batch, so a
// concurrent checkout of the same product either loses the swap and
// re-validates or finds the stock already gone.
type StockCommitter struct {
	store    port.StockStore
	cache    stockCache
	attempts int
}

func NewStockCommitter(
	store port.StockStore, cache stockCache, attempts int,
) StockCommitter {
	if attempts <= 0 {
		attempts = DefaultCommitAttempts
	}
	return StockCommitter{store: store, cache: cache, attempts: attempts}
}

// Commit fails with [domain.ErrInsufficientStock] when any line exceeds the
// authoritative stock; no stock is altered in that case.
func (s StockCommitter) Commit(ctx context.Context, cart domain.Cart) error {
	const op = "StockCommitter.Commit"
	log := slog.With("op", op)

	if cart.Empty() {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		swaps, err := s.plan(ctx, cart)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		err = s.store.CompareAndSwapStock(ctx, swaps)
		if err == nil {
			for _, sw := range swaps {
				s.cache.SetStock(sw.ProductID, sw.New)
				log.Info("stock updated", "productID", sw.ProductID, "stock", sw.New)
			}
			return nil
		}

		if !errors.Is(err, domain.ErrStockConflict) {
			return fmt.Errorf("%s: %w", op, err)
		}

		lastErr = err
		log.Warn("stock changed during commit, re-validating", "attempt", attempt)
	}

	return fmt.Errorf(
		"%s: %w: %w", op, domain.ErrInsufficientStock, lastErr,
	)
}

// plan reads stock fresh from the store and computes the swaps for cart.
func (s StockCommitter) plan(
	ctx context.Context, cart domain.Cart,
) ([]domain.StockSwap, error) {
	const op = "StockCommitter.plan"
	log := slog.With("op", op)

	rows, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stock := make(map[string]int, len(rows))
	for _, row := range rows {
		p, err := domain.ParseProduct(row)
		if err != nil {
			log.Warn("skip invalid product row", "err", err)
			continue
		}
		stock[p.ID] = p.Stock
	}

	swaps := make([]domain.StockSwap, 0, len(cart.Items))
	for _, it := range cart.Items {
		current, ok := stock[it.ProductID]
		if !ok {
			return nil, fmt.Errorf(
				"%s: %w: product %q not found", op, domain.ErrInsufficientStock, it.ProductID,
			)
		}
		next := current - it.Qty
		if next < 0 {
			return nil, fmt.Errorf(
				"%s: %w: product %q has %d, want %d",
				op, domain.ErrInsufficientStock, it.ProductID, current, it.Qty,
			)
		}
		swaps = append(swaps, domain.StockSwap{
			ProductID: it.ProductID,
			Expected:  current,
			New:       next,
		})
	}
	return swaps, nil
}
