package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/niksmo/chatshop/internal/core/port"
)

type Deps struct {
	Records  port.RecordStore
	Sessions port.SessionStore
	Notifier port.Notifier
	Clock    port.Clock
}

type Config struct {
	CatalogTTL        time.Duration
	LowStockThreshold int
	CommitAttempts    int
	ReminderInterval  time.Duration
	Checkout          CheckoutConfig
}

// Service assembles the core components over shared stores. Cart and
// checkout share one set of per-user locks.
type Service struct {
	Catalog   *CatalogCache
	Cart      *CartService
	Checkout  *Checkout
	Discounts DiscountLookup
	Reminder  ReminderSweep

	wg *sync.WaitGroup
}

func New(deps Deps, cfg Config) Service {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}

	locks := newUserLocks()
	catalog := NewCatalogCache(deps.Records, deps.Clock, cfg.CatalogTTL)
	discounts := NewDiscountLookup(deps.Records)
	stock := NewStockCommitter(deps.Records, catalog, cfg.CommitAttempts)

	cart := NewCartService(
		catalog,
		deps.Sessions,
		deps.Records,
		deps.Notifier,
		deps.Clock,
		locks,
		cfg.LowStockThreshold,
	)

	checkout := NewCheckout(CheckoutDeps{
		Sessions:  deps.Sessions,
		Discounts: discounts,
		Stock:     stock,
		Orders:    deps.Records,
		Abandoned: deps.Records,
		Notifier:  deps.Notifier,
		Clock:     deps.Clock,
	}, locks, cfg.Checkout)

	return Service{
		Catalog:   catalog,
		Cart:      cart,
		Checkout:  checkout,
		Discounts: discounts,
		Reminder:  NewReminderSweep(deps.Records, deps.Notifier, cfg.ReminderInterval),
		wg:        new(sync.WaitGroup),
	}
}

// Run warms the catalog and starts the reminder sweep in a separate
// goroutine. A failed warm-up is not fatal; the next read retries it.
func (s Service) Run(ctx context.Context) {
	const op = "Service.Run"
	log := slog.With("op", op)

	if err := s.Catalog.Refresh(ctx); err != nil {
		log.Warn("catalog warm-up failed", "err", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Reminder.Run(ctx)
	}()
}

// Close waits for background work started by Run. The context passed to
// Run must be done before calling it.
func (s Service) Close() {
	s.wg.Wait()
}
