package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/niksmo/chatshop/internal/core/domain"
)

type ProductsRepository struct {
	sqldb sqldb
}

func NewProductsRepository(sqldb sqldb) ProductsRepository {
	return ProductsRepository{sqldb}
}

func (r ProductsRepository) CatalogVersion(ctx context.Context) (string, error) {
	const op = "ProductsRepository.CatalogVersion"

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var marker string
	err := r.sqldb.QueryRowContext(ctx,
		`SELECT marker FROM catalog_version WHERE id = 1;`,
	).Scan(&marker)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w: version marker", op, domain.ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return marker, nil
}

// ListProducts returns every products row as text, ordered by id.
// Row numbers start at 1 in that order.
func (r ProductsRepository) ListProducts(
	ctx context.Context,
) (rows []domain.ProductRow, listErr error) {
	const op = "ProductsRepository.ListProducts"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT
			id, category, name_primary, name_secondary, brand,
			description, weight, price::text, stock::text,
			COALESCE(image_url, ''), is_bestseller::text, version
		FROM products
		ORDER BY id ASC;`

	sqlRows, err := r.sqldb.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := sqlRows.Close(); err != nil {
			log.Error("failed to close rows", "err", err)
		}
	}()

	for n := 1; sqlRows.Next(); n++ {
		v := domain.ProductRow{Row: n}
		err := sqlRows.Scan(
			&v.ID, &v.Category, &v.NamePrimary, &v.NameSecondary, &v.Brand,
			&v.Description, &v.Weight, &v.Price, &v.Stock,
			&v.ImageURL, &v.Bestseller, &v.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to scan: %w", op, err)
		}
		rows = append(rows, v)
	}
	if err := sqlRows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

// CompareAndSwapStock applies all swaps in one transaction. Any swap whose
// row no longer holds the expected stock rolls the whole batch back.
func (r ProductsRepository) CompareAndSwapStock(
	ctx context.Context, swaps []domain.StockSwap,
) (swapErr error) {
	const op = "ProductsRepository.CompareAndSwapStock"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := r.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if swapErr == nil {
			if err := tx.Commit(); err != nil {
				swapErr = fmt.Errorf("%s: failed to commit: %w", op, err)
			}
			return
		}

		if err := tx.Rollback(); err != nil {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	query := `
		UPDATE products
		SET stock = $1
		WHERE id = $2 AND stock = $3;`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare stmt: %w", op, err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			log.Error("failed to close prepared stmt", "err", err)
		}
	}()

	for _, sw := range swaps {
		res, err := stmt.ExecContext(ctx, sw.New, sw.ProductID, sw.Expected)
		if err != nil {
			return fmt.Errorf("%s: failed to exec: %w", op, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if n == 0 {
			return fmt.Errorf(
				"%s: %w: product %q", op, domain.ErrStockConflict, sw.ProductID,
			)
		}
	}

	return nil
}
