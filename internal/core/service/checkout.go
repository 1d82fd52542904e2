package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/port"
	"github.com/shopspring/decimal"
)

const (
	DefaultSkipToken           = "/skip"
	DefaultCancelToken         = "/cancel"
	DefaultMaxDiscountAttempts = 5
	DefaultSessionTTL          = 30 * time.Minute

	postCommitTimeout = 30 * time.Second
)

var _ port.CheckoutDriver = (*Checkout)(nil)

type CheckoutConfig struct {
	SkipToken   string
	CancelToken string
	// MaxDiscountAttempts caps rejected discount codes; on the cap the
	// discount is skipped and the dialogue moves on.
	MaxDiscountAttempts int
	// SessionTTL auto-cancels a checkout idle for longer.
	SessionTTL time.Duration
	Promo      string
}

func (c *CheckoutConfig) normalize() {
	if c.SkipToken == "" {
		c.SkipToken = DefaultSkipToken
	}
	if c.CancelToken == "" {
		c.CancelToken = DefaultCancelToken
	}
	if c.MaxDiscountAttempts <= 0 {
		c.MaxDiscountAttempts = DefaultMaxDiscountAttempts
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = DefaultSessionTTL
	}
}

type stockCommitter interface {
	Commit(context.Context, domain.Cart) error
}

// Checkout drives the order dialogue:
//
//	AwaitingName -> AwaitingPhone -> AwaitingAddress -> AwaitingPostal ->
//	AwaitingDiscount -> AwaitingNotes -> Confirming -> Completed|Cancelled|Failed
//
// Every path out of a handler ends in a stored state; a failing handler
// clears the checkout instead of leaving it mid-flow.
type Checkout struct {
	sessions  port.SessionStore
	discounts DiscountLookup
	stock     stockCommitter
	orders    port.OrderStore
	abandoned port.AbandonedCartLog
	notifier  port.Notifier
	clock     port.Clock
	locks     *userLocks
	newID     func() string
	cfg       CheckoutConfig
}

type CheckoutDeps struct {
	Sessions  port.SessionStore
	Discounts DiscountLookup
	Stock     stockCommitter
	Orders    port.OrderStore
	Abandoned port.AbandonedCartLog
	Notifier  port.Notifier
	Clock     port.Clock
}

func NewCheckout(deps CheckoutDeps, locks *userLocks, cfg CheckoutConfig) *Checkout {
	cfg.normalize()
	if locks == nil {
		locks = newUserLocks()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	return &Checkout{
		sessions:  deps.Sessions,
		discounts: deps.Discounts,
		stock:     deps.Stock,
		orders:    deps.Orders,
		abandoned: deps.Abandoned,
		notifier:  deps.Notifier,
		clock:     deps.Clock,
		locks:     locks,
		newID:     uuid.NewString,
		cfg:       cfg,
	}
}

// Start opens a checkout. Without a destination the cart is handed back
// for destination selection and no state is entered.
func (c *Checkout) Start(ctx context.Context, userID, handle string) domain.CheckoutResult {
	const op = "Checkout.Start"

	unlock := c.locks.lock(userID)
	defer unlock()

	sess, err := c.sessions.Load(ctx, userID)
	if err != nil {
		return c.fail(ctx, op, domain.NewSession(userID), err)
	}

	if sess.Destination == "" {
		return domain.CheckoutResult{
			Kind:    domain.ResultNeedsDestination,
			Message: domain.MsgCartGuide,
			Cart:    sess.Cart,
		}
	}

	if handle = strings.TrimSpace(handle); handle == "" {
		handle = "-"
	}
	sess.Handle = handle
	sess.Checkout = &domain.CheckoutSession{
		State:     domain.StateAwaitingName,
		StartedAt: c.clock.Now(),
	}

	if err := c.save(ctx, &sess); err != nil {
		return c.fail(ctx, op, sess, err)
	}
	return needsInput(domain.StateAwaitingName, domain.MsgInputName)
}

// Handle feeds one free-text input to the user's checkout.
func (c *Checkout) Handle(ctx context.Context, userID, text string) (res domain.CheckoutResult) {
	const op = "Checkout.Handle"

	unlock := c.locks.lock(userID)
	defer unlock()

	sess, err := c.sessions.Load(ctx, userID)
	if err != nil {
		return c.fail(ctx, op, domain.NewSession(userID), err)
	}

	if sess.Checkout == nil {
		return domain.CheckoutResult{Kind: domain.ResultNoCheckout, Message: domain.MsgNoCheckout}
	}

	defer func() {
		if r := recover(); r != nil {
			res = c.fail(ctx, op, sess, fmt.Errorf("panic: %v", r))
		}
	}()

	text = strings.TrimSpace(text)

	if text == c.cfg.CancelToken {
		return c.cancel(ctx, sess, domain.MsgOrderCancelled, "")
	}

	if c.clock.Now().Sub(sess.UpdatedAt) > c.cfg.SessionTTL {
		return c.cancel(ctx, sess, domain.MsgOrderCancelled, domain.MsgSessionExpired)
	}

	res, err = c.handle(ctx, &sess, text)
	if err != nil {
		return c.fail(ctx, op, sess, err)
	}
	return res
}

func (c *Checkout) handle(
	ctx context.Context, sess *domain.Session, text string,
) (domain.CheckoutResult, error) {
	co := sess.Checkout

	switch co.State {
	case domain.StateAwaitingName:
		co.Name = text
		return c.advance(ctx, sess, domain.MsgInputPhone, "")
	case domain.StateAwaitingPhone:
		co.Phone = text
		return c.advance(ctx, sess, domain.MsgInputAddress, "")
	case domain.StateAwaitingAddress:
		co.Address = text
		return c.advance(ctx, sess, domain.MsgInputPostal, "")
	case domain.StateAwaitingPostal:
		co.Postal = text
		return c.advance(ctx, sess, domain.MsgInputDiscount, "")
	case domain.StateAwaitingDiscount:
		return c.handleDiscount(ctx, sess, text)
	case domain.StateAwaitingNotes:
		if text == c.cfg.SkipToken {
			text = ""
		}
		co.Notes = text
		co.State = domain.StateConfirming
		return c.confirm(ctx, sess)
	}

	return domain.CheckoutResult{}, fmt.Errorf("unexpected checkout state %q", co.State)
}

func (c *Checkout) handleDiscount(
	ctx context.Context, sess *domain.Session, text string,
) (domain.CheckoutResult, error) {
	co := sess.Checkout

	if text == c.cfg.SkipToken {
		co.DiscountCode = ""
		return c.advance(ctx, sess, domain.MsgInputNotes, "")
	}

	if d, ok := c.discounts.Validate(ctx, text, c.clock.Now()); ok {
		co.DiscountCode = d.Code
		return c.advance(ctx, sess, domain.MsgInputNotes, "")
	}

	co.DiscountAttempts++
	if co.DiscountAttempts >= c.cfg.MaxDiscountAttempts {
		co.DiscountCode = ""
		return c.advance(ctx, sess, domain.MsgInputNotes, domain.MsgDiscountSkipped)
	}

	if err := c.save(ctx, sess); err != nil {
		return domain.CheckoutResult{}, err
	}
	return needsInput(domain.StateAwaitingDiscount, domain.MsgDiscountInvalid), nil
}

func (c *Checkout) advance(
	ctx context.Context, sess *domain.Session, msg, notice string,
) (domain.CheckoutResult, error) {
	sess.Checkout.State = sess.Checkout.State.Next()
	if err := c.save(ctx, sess); err != nil {
		return domain.CheckoutResult{}, err
	}
	res := needsInput(sess.Checkout.State, msg)
	res.Notice = notice
	return res, nil
}

func (c *Checkout) confirm(
	ctx context.Context, sess *domain.Session,
) (domain.CheckoutResult, error) {
	const op = "Checkout.confirm"
	log := slog.With("op", op, "userID", sess.UserID)

	co := sess.Checkout
	cart := sess.Cart.Clone()

	if cart.Empty() {
		return c.cancel(ctx, *sess, domain.MsgCartEmpty, ""), nil
	}

	if err := c.stock.Commit(ctx, cart); err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			log.Warn("stock commit rejected", "err", err)
			c.notifier.NotifyError(ctx, op+": stock commit rejected", err)
			return c.cancel(ctx, *sess, domain.MsgStockEmpty, ""), nil
		}
		c.notifier.NotifyError(ctx, op+": stock commit", err)
		return c.terminate(ctx, *sess, domain.MsgErrorSheet, err), nil
	}

	// Stock is already taken; the order must be recorded even if the
	// caller goes away.
	ctx, stop := context.WithTimeout(context.WithoutCancel(ctx), postCommitTimeout)
	defer stop()

	now := c.clock.Now()
	subtotal := cart.Total()
	total, discountAmount := subtotal, decimal.Zero
	var notice string

	if co.DiscountCode != "" {
		d, ok := c.discounts.Validate(ctx, co.DiscountCode, now)
		if ok {
			total, discountAmount = d.Apply(subtotal)
		} else {
			log.Warn("discount no longer valid at commit", "code", co.DiscountCode)
			co.DiscountCode = ""
			notice = domain.MsgDiscountExpired
		}
	}

	order := domain.Order{
		ID:             c.newID(),
		CreatedAt:      now,
		UserID:         sess.UserID,
		Handle:         sess.Handle,
		Name:           co.Name,
		Phone:          co.Phone,
		Address:        co.Address,
		Postal:         co.Postal,
		Destination:    sess.Destination,
		Lines:          domain.OrderLines(cart),
		Notes:          co.Notes,
		DiscountCode:   co.DiscountCode,
		DiscountAmount: discountAmount,
		Subtotal:       subtotal,
		Total:          total,
		Status:         domain.OrderPreparing,
		Notified:       false,
	}

	if err := c.orders.AppendOrder(ctx, order); err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		c.notifier.NotifyError(ctx, op+": save order "+order.ID, err)
		return c.terminate(ctx, *sess, domain.MsgErrorSheet, err), nil
	}
	log.Info("order saved", "orderID", order.ID, "handle", order.Handle)

	c.notifier.NotifyNewOrder(ctx, order)

	if err := c.abandoned.ClearAbandoned(ctx, sess.UserID); err != nil {
		log.Error("failed to clear abandoned carts", "err", err)
	}

	if err := c.sessions.Delete(ctx, sess.UserID); err != nil {
		log.Error("failed to clear session", "err", err)
	}

	return domain.CheckoutResult{
		Kind:    domain.ResultCompleted,
		State:   domain.StateCompleted,
		Message: domain.MsgOrderConfirmed,
		Notice:  notice,
		Promo:   c.cfg.Promo,
		Order:   &order,
	}, nil
}

// cancel drops the checkout and keeps the cart.
func (c *Checkout) cancel(
	ctx context.Context, sess domain.Session, msg, notice string,
) domain.CheckoutResult {
	const op = "Checkout.cancel"

	sess.Checkout = nil
	if err := c.save(ctx, &sess); err != nil {
		slog.Error("failed to clear checkout", "op", op, "userID", sess.UserID, "err", err)
	}
	return domain.CheckoutResult{
		Kind:    domain.ResultCancelled,
		State:   domain.StateCancelled,
		Message: msg,
		Notice:  notice,
		Cart:    sess.Cart,
	}
}

// terminate clears the whole session after a failure past the stock commit,
// so a retry cannot decrement the same cart twice.
func (c *Checkout) terminate(
	ctx context.Context, sess domain.Session, msg string, cause error,
) domain.CheckoutResult {
	const op = "Checkout.terminate"

	slog.Error("checkout failed", "op", op, "userID", sess.UserID, "err", cause)
	if err := c.sessions.Delete(ctx, sess.UserID); err != nil {
		slog.Error("failed to clear session", "op", op, "userID", sess.UserID, "err", err)
	}
	return domain.CheckoutResult{
		Kind:    domain.ResultFailed,
		State:   domain.StateFailed,
		Message: msg,
	}
}

// fail handles unexpected errors: the checkout is dropped and the user
// gets a generic message.
func (c *Checkout) fail(
	ctx context.Context, op string, sess domain.Session, cause error,
) domain.CheckoutResult {
	slog.Error("checkout handler failed", "op", op, "userID", sess.UserID, "err", cause)

	if sess.Checkout != nil {
		sess.Checkout = nil
		if err := c.save(ctx, &sess); err != nil {
			slog.Error("failed to clear checkout", "op", op, "userID", sess.UserID, "err", err)
		}
	}
	return domain.CheckoutResult{
		Kind:    domain.ResultFailed,
		State:   domain.StateFailed,
		Message: domain.MsgErrorGeneric,
	}
}

func (c *Checkout) save(ctx context.Context, sess *domain.Session) error {
	sess.UpdatedAt = c.clock.Now()
	if err := c.sessions.Save(ctx, *sess); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func needsInput(state domain.CheckoutState, msg string) domain.CheckoutResult {
	return domain.CheckoutResult{
		Kind:    domain.ResultNeedsInput,
		State:   state,
		Message: msg,
	}
}
