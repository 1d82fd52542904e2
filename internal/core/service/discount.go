package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/port"
)

// A DiscountLookup reads discount codes fresh on every call.
// Any failure degrades to "no discount available".
type DiscountLookup struct {
	store port.DiscountStore
}

func NewDiscountLookup(store port.DiscountStore) DiscountLookup {
	return DiscountLookup{store}
}

// Load returns the valid-looking discount rows keyed by code.
// It returns an empty map when the store fails.
func (d DiscountLookup) Load(ctx context.Context) map[string]domain.Discount {
	const op = "DiscountLookup.Load"
	log := slog.With("op", op)

	discounts := make(map[string]domain.Discount)

	rows, err := d.store.ListDiscounts(ctx)
	if err != nil {
		log.Error("failed to load discounts", "err", err)
		return discounts
	}

	for _, row := range rows {
		v, err := domain.ParseDiscount(row)
		if err != nil {
			log.Warn("skip invalid discount row", "err", err)
			continue
		}
		discounts[v.Code] = v
	}
	return discounts
}

// Validate reports the discount for code when it exists, is active and
// has not expired at now.
func (d DiscountLookup) Validate(
	ctx context.Context, code string, now time.Time,
) (domain.Discount, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Discount{}, false
	}
	v, ok := d.Load(ctx)[code]
	if !ok || !v.ValidAt(now) {
		return domain.Discount{}, false
	}
	return v, true
}
