package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/niksmo/chatshop/internal/core/domain"
)

type DiscountsRepository struct {
	sqldb sqldb
}

func NewDiscountsRepository(sqldb sqldb) DiscountsRepository {
	return DiscountsRepository{sqldb}
}

func (r DiscountsRepository) ListDiscounts(
	ctx context.Context,
) ([]domain.DiscountRow, error) {
	const op = "DiscountsRepository.ListDiscounts"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT
			code, discount_percent::text,
			to_char(valid_until, 'YYYY-MM-DD'), is_active
		FROM discounts
		ORDER BY code ASC;`

	sqlRows, err := r.sqldb.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := sqlRows.Close(); err != nil {
			log.Error("failed to close rows", "err", err)
		}
	}()

	var rows []domain.DiscountRow
	for n := 1; sqlRows.Next(); n++ {
		v := domain.DiscountRow{Row: n}
		if err := sqlRows.Scan(&v.Code, &v.Percent, &v.ValidUntil, &v.Active); err != nil {
			return nil, fmt.Errorf("%s: failed to scan: %w", op, err)
		}
		rows = append(rows, v)
	}
	if err := sqlRows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

type OrdersRepository struct {
	sqldb sqldb
}

func NewOrdersRepository(sqldb sqldb) OrdersRepository {
	return OrdersRepository{sqldb}
}

// AppendOrder writes one row per order line in a single transaction.
// Order-level columns repeat on every row.
func (r OrdersRepository) AppendOrder(
	ctx context.Context, o domain.Order,
) (storeErr error) {
	const op = "OrdersRepository.AppendOrder"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := r.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if storeErr == nil {
			if err := tx.Commit(); err != nil {
				storeErr = fmt.Errorf("%s: failed to commit: %w", op, err)
			}
			return
		}

		if err := tx.Rollback(); err != nil {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	query := `
		INSERT INTO orders (
			order_id, created_at, user_id, handle, customer_name,
			phone, address, destination, product_id, product_name,
			qty, unit_price, line_total, discount_code, discount_amount,
			order_total, notes, status, notified
		)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19
		);`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare stmt: %w", op, err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			log.Error("failed to close prepared stmt", "err", err)
		}
	}()

	for _, l := range o.Lines {
		_, err := stmt.ExecContext(ctx,
			o.ID, o.CreatedAt, o.UserID, o.Handle, o.Name,
			o.Phone, o.FullAddress(), string(o.Destination), l.ProductID, l.Name,
			l.Qty, l.UnitPrice.StringFixed(2), l.Subtotal.StringFixed(2),
			o.DiscountCode, o.DiscountAmount.StringFixed(2),
			o.Total.StringFixed(2), o.Notes, string(o.Status), o.Notified,
		)
		if err != nil {
			return fmt.Errorf("%s: failed to exec: %w", op, err)
		}
	}

	return nil
}
