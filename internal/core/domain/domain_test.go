package domain_test

import (
	"testing"
	"time"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id, price string) domain.Product {
	return domain.Product{ID: id, NamePrimary: "n-" + id, Price: decimal.RequireFromString(price)}
}

func TestCart(t *testing.T) {
	t.Run("AddKeepsOrderAndMerges", func(t *testing.T) {
		var c domain.Cart
		c.Add(product("b", "1.10"), 1)
		c.Add(product("a", "2"), 2)
		c.Add(product("b", "1.10"), 2)
		c.Add(product("c", "5"), 0)

		require.Len(t, c.Items, 2)
		assert.Equal(t, "b", c.Items[0].ProductID)
		assert.Equal(t, 3, c.Qty("b"))
		assert.Equal(t, 0, c.Qty("c"))
		assert.Equal(t, 5, c.Count())
		assert.True(t, decimal.RequireFromString("7.30").Equal(c.Total()))
	})

	t.Run("PriceCapturedAtAdd", func(t *testing.T) {
		var c domain.Cart
		p := product("a", "2")
		c.Add(p, 1)
		p.Price = decimal.NewFromInt(100)
		c.Add(p, 1)
		assert.True(t, decimal.NewFromInt(4).Equal(c.Total()))
	})

	t.Run("DecrementAndRemove", func(t *testing.T) {
		var c domain.Cart
		c.Add(product("a", "1"), 2)
		c.Add(product("b", "1"), 1)

		assert.True(t, c.Decrement("a"))
		assert.Equal(t, 1, c.Qty("a"))
		assert.True(t, c.Decrement("a"))
		assert.Equal(t, 0, c.Qty("a"))
		assert.False(t, c.Decrement("a"))

		assert.True(t, c.Remove("b"))
		assert.False(t, c.Remove("b"))
		assert.True(t, c.Empty())
	})

	t.Run("CloneIsIndependent", func(t *testing.T) {
		var c domain.Cart
		c.Add(product("a", "1"), 1)
		cp := c.Clone()
		cp.Add(product("a", "1"), 1)
		assert.Equal(t, 1, c.Qty("a"))
		assert.Equal(t, 2, cp.Qty("a"))
	})
}

func TestParseProduct(t *testing.T) {
	valid := domain.ProductRow{
		Row:           2,
		ID:            " p1 ",
		Category:      "pasta",
		NamePrimary:   "Spaghetti",
		NameSecondary: "اسپاگتی",
		Brand:         "Barilla",
		Description:   "durum wheat",
		Weight:        "500g",
		Price:         "2.50",
		Stock:         "7",
		Bestseller:    "True",
	}

	t.Run("Valid", func(t *testing.T) {
		p, err := domain.ParseProduct(valid)
		require.NoError(t, err)
		assert.Equal(t, "p1", p.ID)
		assert.Equal(t, 7, p.Stock)
		assert.Equal(t, "0", p.Version)
		assert.True(t, p.Bestseller)
		assert.True(t, decimal.RequireFromString("2.5").Equal(p.Price))
	})

	cases := []struct {
		name  string
		edit  func(*domain.ProductRow)
		field string
	}{
		{"MissingName", func(r *domain.ProductRow) { r.NamePrimary = "" }, "name_primary"},
		{"BlankWeight", func(r *domain.ProductRow) { r.Weight = "  " }, "weight"},
		{"BadPrice", func(r *domain.ProductRow) { r.Price = "2,50" }, "price"},
		{"NegativePrice", func(r *domain.ProductRow) { r.Price = "-1" }, "price"},
		{"FractionalStock", func(r *domain.ProductRow) { r.Stock = "1.5" }, "stock"},
		{"NegativeStock", func(r *domain.ProductRow) { r.Stock = "-1" }, "stock"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := valid
			tc.edit(&row)
			_, err := domain.ParseProduct(row)
			require.ErrorIs(t, err, domain.ErrValidation)

			var rowErr *domain.RowError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, tc.field, rowErr.Field)
			assert.Equal(t, 2, rowErr.Row)
		})
	}
}

func TestDiscount(t *testing.T) {
	d, err := domain.ParseDiscount(domain.DiscountRow{
		Code: "SAVE10", Percent: "10", ValidUntil: "2025-03-10", Active: "true",
	})
	require.NoError(t, err)

	t.Run("ExpiresAtMidnight", func(t *testing.T) {
		assert.True(t, d.ValidAt(time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)))
		assert.True(t, d.ValidAt(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
		assert.False(t, d.ValidAt(time.Date(2025, 3, 10, 0, 0, 1, 0, time.UTC)))
		assert.False(t, d.ValidAt(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("Inactive", func(t *testing.T) {
		off := d
		off.Active = false
		assert.False(t, off.ValidAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("Apply", func(t *testing.T) {
		total, amount := d.Apply(decimal.RequireFromString("19.90"))
		assert.True(t, decimal.RequireFromString("1.99").Equal(amount))
		assert.True(t, decimal.RequireFromString("17.91").Equal(total))
	})

	t.Run("PercentOutOfRange", func(t *testing.T) {
		_, err := domain.ParseDiscount(domain.DiscountRow{
			Code: "X", Percent: "101", ValidUntil: "2025-03-10",
		})
		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("BadDate", func(t *testing.T) {
		_, err := domain.ParseDiscount(domain.DiscountRow{
			Code: "X", Percent: "5", ValidUntil: "10/03/2025",
		})
		require.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestLatestPerUser(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	records := []domain.AbandonedCart{
		{ID: 1, CreatedAt: t0, UserID: "b"},
		{ID: 2, CreatedAt: t0.Add(time.Minute), UserID: "a"},
		{ID: 3, CreatedAt: t0, UserID: "a"},
		{ID: 4, CreatedAt: t0, UserID: "b"},
	}

	got := domain.LatestPerUser(records)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].UserID)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, "b", got[1].UserID)
	assert.Equal(t, int64(4), got[1].ID)
}

func TestCheckoutState(t *testing.T) {
	s := domain.StateAwaitingName
	var path []domain.CheckoutState
	for !s.Terminal() && s != domain.StateConfirming {
		s = s.Next()
		path = append(path, s)
	}
	assert.Equal(t, []domain.CheckoutState{
		domain.StateAwaitingPhone,
		domain.StateAwaitingAddress,
		domain.StateAwaitingPostal,
		domain.StateAwaitingDiscount,
		domain.StateAwaitingNotes,
		domain.StateConfirming,
	}, path)
	assert.True(t, domain.StateFailed.Terminal())
}

func TestCatalogSnapshotFresh(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	snap := domain.CatalogSnapshot{
		Version:   "3",
		ExpiresAt: now.Add(time.Minute),
		Products:  map[string]domain.Product{},
	}
	assert.True(t, snap.Fresh(now, "3"))
	assert.False(t, snap.Fresh(now, "4"))
	assert.False(t, snap.Fresh(now.Add(time.Minute), "3"))
	assert.False(t, domain.CatalogSnapshot{}.Fresh(now, ""))
}
