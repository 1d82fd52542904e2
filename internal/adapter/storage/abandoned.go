package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/shopspring/decimal"
)

type (
	cartJSON struct {
		Items []cartItemJSON `json:"items"`
	}

	cartItemJSON struct {
		ProductID string          `json:"product_id"`
		Name      string          `json:"name"`
		Price     decimal.Decimal `json:"price"`
		Weight    string          `json:"weight"`
		Qty       int             `json:"qty"`
	}
)

func toCartJSON(c domain.Cart) cartJSON {
	items := make([]cartItemJSON, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemJSON(it))
	}
	return cartJSON{Items: items}
}

func (c cartJSON) toDomain() domain.Cart {
	var cart domain.Cart
	for _, it := range c.Items {
		if it.Qty <= 0 {
			continue
		}
		cart.Items = append(cart.Items, domain.CartItem(it))
	}
	return cart
}

type AbandonedCartsRepository struct {
	sqldb sqldb
}

func NewAbandonedCartsRepository(sqldb sqldb) AbandonedCartsRepository {
	return AbandonedCartsRepository{sqldb}
}

func (r AbandonedCartsRepository) AppendAbandoned(
	ctx context.Context, userID string, cart domain.Cart, at time.Time,
) error {
	const op = "AbandonedCartsRepository.AppendAbandoned"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	b, err := json.Marshal(toCartJSON(cart))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = r.sqldb.ExecContext(ctx,
		`INSERT INTO abandoned_carts (created_at, user_id, cart_json) VALUES ($1, $2, $3);`,
		at, userID, string(b),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListAbandoned returns the log in id order. Records with a broken cart
// payload are skipped.
func (r AbandonedCartsRepository) ListAbandoned(
	ctx context.Context,
) ([]domain.AbandonedCart, error) {
	const op = "AbandonedCartsRepository.ListAbandoned"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sqlRows, err := r.sqldb.QueryContext(ctx, `
		SELECT id, created_at, user_id, cart_json::text
		FROM abandoned_carts
		ORDER BY id ASC;`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := sqlRows.Close(); err != nil {
			log.Error("failed to close rows", "err", err)
		}
	}()

	var records []domain.AbandonedCart
	for sqlRows.Next() {
		var (
			v       domain.AbandonedCart
			payload string
		)
		if err := sqlRows.Scan(&v.ID, &v.CreatedAt, &v.UserID, &payload); err != nil {
			return nil, fmt.Errorf("%s: failed to scan: %w", op, err)
		}

		var c cartJSON
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			log.Warn("skip broken cart record", "id", v.ID, "err", err)
			continue
		}
		v.Cart = c.toDomain()
		records = append(records, v)
	}
	if err := sqlRows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

func (r AbandonedCartsRepository) ClearAbandoned(ctx context.Context, userID string) error {
	const op = "AbandonedCartsRepository.ClearAbandoned"

	_, err := r.sqldb.ExecContext(ctx,
		`DELETE FROM abandoned_carts WHERE user_id = $1;`, userID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r AbandonedCartsRepository) DeleteAbandonedUpTo(ctx context.Context, maxID int64) error {
	const op = "AbandonedCartsRepository.DeleteAbandonedUpTo"

	_, err := r.sqldb.ExecContext(ctx,
		`DELETE FROM abandoned_carts WHERE id <= $1;`, maxID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
