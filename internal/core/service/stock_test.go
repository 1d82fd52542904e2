package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartOf(t *testing.T, items map[string]int) domain.Cart {
	t.Helper()
	var c domain.Cart
	for id, qty := range items {
		c.Add(domain.Product{ID: id, NamePrimary: id}, qty)
	}
	return c
}

func TestStockCommitter(t *testing.T) {
	t.Run("Decrements", func(t *testing.T) {
		store := newMemRecords(
			productRow("p1", "pasta", "1", 5),
			productRow("p2", "pasta", "1", 2),
		)
		catalog := service.NewCatalogCache(store, newFakeClock(), time.Minute)
		_, err := catalog.Get(t.Context())
		require.NoError(t, err)

		sc := service.NewStockCommitter(store, catalog, 0)
		err = sc.Commit(t.Context(), cartOf(t, map[string]int{"p1": 3, "p2": 2}))
		require.NoError(t, err)

		assert.Equal(t, 2, store.stock("p1"))
		assert.Equal(t, 0, store.stock("p2"))
		assert.Equal(t, 2, catalog.Snapshot().Products["p1"].Stock)
		assert.Equal(t, 0, catalog.Snapshot().Products["p2"].Stock)
	})

	t.Run("InsufficientWritesNothing", func(t *testing.T) {
		store := newMemRecords(
			productRow("p1", "pasta", "1", 5),
			productRow("p2", "pasta", "1", 1),
		)
		catalog := service.NewCatalogCache(store, newFakeClock(), time.Minute)

		sc := service.NewStockCommitter(store, catalog, 0)
		err := sc.Commit(t.Context(), cartOf(t, map[string]int{"p1": 1, "p2": 2}))
		require.ErrorIs(t, err, domain.ErrInsufficientStock)

		assert.Equal(t, 5, store.stock("p1"))
		assert.Equal(t, 1, store.stock("p2"))
		assert.Zero(t, store.casCalls)
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		store := newMemRecords(productRow("p1", "pasta", "1", 5))
		sc := service.NewStockCommitter(store, service.NewCatalogCache(store, nil, 0), 0)

		err := sc.Commit(t.Context(), cartOf(t, map[string]int{"gone": 1}))
		require.ErrorIs(t, err, domain.ErrInsufficientStock)
	})

	t.Run("ConflictRevalidates", func(t *testing.T) {
		store := newMemRecords(productRow("p1", "pasta", "1", 5))
		store.conflicts = 1
		sc := service.NewStockCommitter(store, service.NewCatalogCache(store, nil, 0), 3)

		err := sc.Commit(t.Context(), cartOf(t, map[string]int{"p1": 2}))
		require.NoError(t, err)
		assert.Equal(t, 2, store.casCalls)
		assert.Equal(t, 3, store.stock("p1"))
	})

	t.Run("ConcurrentCheckoutTakesLastUnits", func(t *testing.T) {
		store := newMemRecords(productRow("p1", "pasta", "1", 3))
		sc := service.NewStockCommitter(store, service.NewCatalogCache(store, nil, 0), 3)

		require.NoError(t, sc.Commit(t.Context(), cartOf(t, map[string]int{"p1": 2})))

		err := sc.Commit(t.Context(), cartOf(t, map[string]int{"p1": 2}))
		require.ErrorIs(t, err, domain.ErrInsufficientStock)
		assert.Equal(t, 1, store.stock("p1"))
	})

	t.Run("PersistentConflict", func(t *testing.T) {
		store := newMemRecords(productRow("p1", "pasta", "1", 5))
		store.conflicts = 10
		sc := service.NewStockCommitter(store, service.NewCatalogCache(store, nil, 0), 3)

		err := sc.Commit(t.Context(), cartOf(t, map[string]int{"p1": 1}))
		require.ErrorIs(t, err, domain.ErrInsufficientStock)
		assert.ErrorIs(t, err, domain.ErrStockConflict)
		assert.Equal(t, 3, store.casCalls)
		assert.Equal(t, 5, store.stock("p1"))
	})

	t.Run("StoreFailure", func(t *testing.T) {
		errDown := errors.New("store down")
		store := newMemRecords(productRow("p1", "pasta", "1", 5))
		store.casErr = errDown
		sc := service.NewStockCommitter(store, service.NewCatalogCache(store, nil, 0), 3)

		err := sc.Commit(t.Context(), cartOf(t, map[string]int{"p1": 1}))
		require.ErrorIs(t, err, errDown)
		assert.NotErrorIs(t, err, domain.ErrInsufficientStock)
		assert.Equal(t, 1, store.casCalls)
	})

	t.Run("EmptyCart", func(t *testing.T) {
		store := newMemRecords(productRow("p1", "pasta", "1", 5))
		sc := service.NewStockCommitter(store, service.NewCatalogCache(store, nil, 0), 3)

		require.NoError(t, sc.Commit(t.Context(), domain.Cart{}))
		assert.Zero(t, store.listCalls)
	})
}

func TestDiscountLookup(t *testing.T) {
	store := newMemRecords()
	store.discounts = []domain.DiscountRow{
		{Row: 2, Code: "SAVE10", Percent: "10", ValidUntil: "2025-03-11", Active: "true"},
		{Row: 3, Code: "OLD", Percent: "10", ValidUntil: "2025-03-09", Active: "true"},
		{Row: 6, Code: "TODAY", Percent: "10", ValidUntil: "2025-03-10", Active: "true"},
		{Row: 4, Code: "OFF", Percent: "10", ValidUntil: "2030-01-01", Active: "false"},
		{Row: 5, Code: "BAD", Percent: "ten", ValidUntil: "2030-01-01", Active: "true"},
	}
	d := service.NewDiscountLookup(store)
	now := newFakeClock().Now()

	t.Run("ValidBeforeExpiry", func(t *testing.T) {
		v, ok := d.Validate(t.Context(), " SAVE10 ", now)
		require.True(t, ok)
		assert.Equal(t, "SAVE10", v.Code)
	})

	t.Run("ExpiredEarlierToday", func(t *testing.T) {
		// now is 12:00 on the valid_until date
		_, ok := d.Validate(t.Context(), "TODAY", now)
		assert.False(t, ok)
	})

	t.Run("Rejected", func(t *testing.T) {
		for _, code := range []string{"OLD", "OFF", "BAD", "NOPE", ""} {
			_, ok := d.Validate(t.Context(), code, now)
			assert.False(t, ok, code)
		}
	})

	t.Run("LoadSkipsInvalid", func(t *testing.T) {
		assert.Len(t, d.Load(t.Context()), 4)
	})
}
