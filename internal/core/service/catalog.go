package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/port"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCatalogTTL = 60 * time.Second
	searchLimit       = 5

	catalogLoadTimeout = 30 * time.Second
)

var _ port.CatalogBrowser = (*CatalogCache)(nil)

// A CatalogCache holds the process-wide product snapshot.
//
// Every [CatalogCache.Get] reads the store's version marker. The snapshot
// is reloaded when it is missing, expired or the marker moved. Concurrent
// reloads for the same marker are coalesced into one store call.
// The products map handed out is never mutated afterwards.
type CatalogCache struct {
	store port.CatalogStore
	clock port.Clock
	ttl   time.Duration

	group singleflight.Group

	mu   sync.RWMutex
	snap domain.CatalogSnapshot
}

func NewCatalogCache(
	store port.CatalogStore, clock port.Clock, ttl time.Duration,
) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &CatalogCache{store: store, clock: clock, ttl: ttl}
}

// Get returns the current products keyed by id.
//
// A failed reload is returned to the caller; a stale snapshot is never
// served once a reload was deemed necessary.
func (c *CatalogCache) Get(ctx context.Context) (map[string]domain.Product, error) {
	const op = "CatalogCache.Get"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	marker, err := c.store.CatalogVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read version marker: %w", op, err)
	}

	snap := c.snapshot()
	if snap.Fresh(c.clock.Now(), marker) {
		return snap.Products, nil
	}

	products, err := c.reload(ctx, marker)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

// Refresh reloads the snapshot regardless of its freshness.
func (c *CatalogCache) Refresh(ctx context.Context) error {
	const op = "CatalogCache.Refresh"

	marker, err := c.store.CatalogVersion(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to read version marker: %w", op, err)
	}

	if _, err := c.reload(ctx, marker); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetStock updates the cached stock of one product so reads in this
// process see a committed decrement before the next reload.
func (c *CatalogCache) SetStock(productID string, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.snap.Products[productID]
	if !ok {
		return
	}
	products := maps.Clone(c.snap.Products)
	p.Stock = stock
	products[productID] = p
	c.snap.Products = products
}

func (c *CatalogCache) Snapshot() domain.CatalogSnapshot {
	return c.snapshot()
}

func (c *CatalogCache) snapshot() domain.CatalogSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *CatalogCache) reload(
	ctx context.Context, marker string,
) (map[string]domain.Product, error) {
	// The load is shared by every waiter, so it must outlive the caller
	// that happened to start it.
	ch := c.group.DoChan(marker, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogLoadTimeout)
		defer cancel()
		return c.load(loadCtx, marker)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]domain.Product), nil
	}
}

func (c *CatalogCache) load(
	ctx context.Context, marker string,
) (map[string]domain.Product, error) {
	const op = "CatalogCache.load"
	log := slog.With("op", op)

	rows, err := c.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	products := make(map[string]domain.Product, len(rows))
	for _, row := range rows {
		p, err := domain.ParseProduct(row)
		if err != nil {
			log.Warn("skip invalid product row", "err", err)
			continue
		}
		products[p.ID] = p
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrEmptyCatalog)
	}

	c.mu.Lock()
	c.snap = domain.CatalogSnapshot{
		Version:   marker,
		ExpiresAt: c.clock.Now().Add(c.ttl),
		Products:  products,
	}
	c.mu.Unlock()

	log.Info("catalog loaded", "products", len(products), "version", marker)
	return products, nil
}

func (c *CatalogCache) Products(ctx context.Context) (map[string]domain.Product, error) {
	return c.Get(ctx)
}

// Product fails with [domain.ErrNotFound] for an unknown id.
func (c *CatalogCache) Product(ctx context.Context, id string) (domain.Product, error) {
	const op = "CatalogCache.Product"

	products, err := c.Get(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	p, ok := products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%s: %w: product %q", op, domain.ErrNotFound, id)
	}
	return p, nil
}

func (c *CatalogCache) Categories(ctx context.Context) ([]string, error) {
	products, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, p := range products {
		seen[p.Category] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

func (c *CatalogCache) ByCategory(
	ctx context.Context, category string,
) ([]domain.Product, error) {
	return c.filter(ctx, func(p domain.Product) bool {
		return p.Category == category
	}, 0)
}

func (c *CatalogCache) Bestsellers(ctx context.Context) ([]domain.Product, error) {
	return c.filter(ctx, func(p domain.Product) bool {
		return p.Bestseller
	}, 0)
}

// Search matches query against both display names, case-insensitively.
func (c *CatalogCache) Search(
	ctx context.Context, query string,
) ([]domain.Product, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	return c.filter(ctx, func(p domain.Product) bool {
		return strings.Contains(strings.ToLower(p.NamePrimary), q) ||
			strings.Contains(strings.ToLower(p.NameSecondary), q)
	}, searchLimit)
}

func (c *CatalogCache) filter(
	ctx context.Context, keep func(domain.Product) bool, limit int,
) ([]domain.Product, error) {
	products, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.Product
	for _, id := range slices.Sorted(maps.Keys(products)) {
		p := products[id]
		if !keep(p) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
