package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/port"
)

const DefaultLowStockThreshold = 3

var _ port.CartManager = (*CartService)(nil)

type productSource interface {
	Get(context.Context) (map[string]domain.Product, error)
}

// A CartService mutates per-user carts. Additions are bounded by the
// cached stock figure at the moment of the call; later stock drops are
// not enforced retroactively.
type CartService struct {
	catalog           productSource
	sessions          port.SessionStore
	abandoned         port.AbandonedCartLog
	notifier          port.Notifier
	clock             port.Clock
	locks             *userLocks
	lowStockThreshold int
}

func NewCartService(
	catalog productSource,
	sessions port.SessionStore,
	abandoned port.AbandonedCartLog,
	notifier port.Notifier,
	clock port.Clock,
	locks *userLocks,
	lowStockThreshold int,
) *CartService {
	if locks == nil {
		locks = newUserLocks()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &CartService{
		catalog:           catalog,
		sessions:          sessions,
		abandoned:         abandoned,
		notifier:          notifier,
		clock:             clock,
		locks:             locks,
		lowStockThreshold: lowStockThreshold,
	}
}

func (s *CartService) Cart(ctx context.Context, userID string) (domain.Session, error) {
	const op = "CartService.Cart"

	sess, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return sess, nil
}

func (s *CartService) SetDestination(
	ctx context.Context, userID string, d domain.Destination,
) (domain.Session, error) {
	const op = "CartService.SetDestination"

	if _, err := domain.ParseDestination(string(d)); err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	sess, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	sess.Destination = d
	if err := s.save(ctx, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return sess, nil
}

// AddToCart adds qty units of productID. An unknown product or a quantity
// above the cached stock fails with [domain.ErrOutOfStock] and leaves the
// cart unchanged.
func (s *CartService) AddToCart(
	ctx context.Context, userID, productID string, qty int,
) (domain.CartResult, error) {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.addToCart(ctx, userID, productID, qty)
}

// Increment adds a single unit with the same stock check as [CartService.AddToCart].
func (s *CartService) Increment(
	ctx context.Context, userID, productID string,
) (domain.CartResult, error) {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.addToCart(ctx, userID, productID, 1)
}

func (s *CartService) Decrement(
	ctx context.Context, userID, productID string,
) (domain.CartResult, error) {
	const op = "CartService.Decrement"

	unlock := s.locks.lock(userID)
	defer unlock()

	sess, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return domain.CartResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if sess.Cart.Qty(productID) == 0 {
		return domain.CartResult{
			Message: domain.MsgCartItemNotFound,
			Reason:  domain.ErrNotFound,
			Cart:    sess.Cart,
		}, nil
	}

	sess.Cart.Decrement(productID)
	msg := domain.MsgCartDecreased
	if sess.Cart.Qty(productID) == 0 {
		msg = domain.MsgCartItemRemoved
	}

	if err := s.commit(ctx, &sess); err != nil {
		return domain.CartResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return domain.CartResult{OK: true, Message: msg, Cart: sess.Cart}, nil
}

// Remove drops the item whether or not it is present.
func (s *CartService) Remove(
	ctx context.Context, userID, productID string,
) (domain.CartResult, error) {
	const op = "CartService.Remove"

	unlock := s.locks.lock(userID)
	defer unlock()

	sess, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return domain.CartResult{}, fmt.Errorf("%s: %w", op, err)
	}

	sess.Cart.Remove(productID)

	if err := s.commit(ctx, &sess); err != nil {
		return domain.CartResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return domain.CartResult{
		OK:      true,
		Message: domain.MsgCartItemRemoved,
		Cart:    sess.Cart,
	}, nil
}

func (s *CartService) addToCart(
	ctx context.Context, userID, productID string, qty int,
) (domain.CartResult, error) {
	const op = "CartService.addToCart"

	if qty <= 0 {
		return domain.CartResult{
			Message: domain.MsgErrorGeneric,
			Reason:  fmt.Errorf("%w: quantity %d", domain.ErrValidation, qty),
		}, nil
	}

	products, err := s.catalog.Get(ctx)
	if err != nil {
		return domain.CartResult{}, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return domain.CartResult{}, fmt.Errorf("%s: %w", op, err)
	}

	outOfStock := domain.CartResult{
		Message: domain.MsgStockEmpty,
		Reason:  domain.ErrOutOfStock,
		Cart:    sess.Cart,
	}

	p, ok := products[productID]
	if !ok {
		return outOfStock, nil
	}
	if p.Stock < sess.Cart.Qty(productID)+qty {
		return outOfStock, nil
	}

	sess.Cart.Add(p, qty)

	if err := s.commit(ctx, &sess); err != nil {
		return domain.CartResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if p.Stock <= s.lowStockThreshold {
		s.notifier.NotifyLowStock(ctx, p, p.Stock)
	}

	return domain.CartResult{
		OK:      true,
		Message: domain.MsgCartAdded,
		Cart:    sess.Cart,
	}, nil
}

// commit saves the session and appends the cart to the abandoned-cart log.
// The log append is best effort.
func (s *CartService) commit(ctx context.Context, sess *domain.Session) error {
	const op = "CartService.commit"
	log := slog.With("op", op)

	if err := s.save(ctx, sess); err != nil {
		return err
	}

	err := s.abandoned.AppendAbandoned(ctx, sess.UserID, sess.Cart, sess.UpdatedAt)
	if err != nil {
		log.Error("failed to append abandoned cart", "userID", sess.UserID, "err", err)
	}
	return nil
}

func (s *CartService) save(ctx context.Context, sess *domain.Session) error {
	sess.UpdatedAt = s.clock.Now()
	if err := s.sessions.Save(ctx, *sess); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}
