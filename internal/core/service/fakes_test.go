package service_test

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/port"
	"github.com/stretchr/testify/mock"
)

var _ port.RecordStore = (*memRecords)(nil)

// memRecords is an in-memory record store.
type memRecords struct {
	mu sync.Mutex

	version   string
	products  []domain.ProductRow
	discounts []domain.DiscountRow
	orders    []domain.Order
	abandoned []domain.AbandonedCart
	nextID    int64

	versionCalls int
	listCalls    int
	casCalls     int

	versionErr error
	listErr    error
	casErr     error
	orderErr   error
	// conflicts makes the next n swaps fail as if stock moved.
	conflicts int

	// onList and onSwap run before a product listing and after a
	// successful swap.
	onList func()
	onSwap func()
}

func newMemRecords(rows ...domain.ProductRow) *memRecords {
	return &memRecords{version: "1", products: rows}
}

func productRow(id, category, price string, stock int) domain.ProductRow {
	return domain.ProductRow{
		ID:            id,
		Category:      category,
		NamePrimary:   "Name " + id,
		NameSecondary: "Nome " + id,
		Brand:         "Brand",
		Description:   "Description",
		Weight:        "500g",
		Price:         price,
		Stock:         strconv.Itoa(stock),
		Version:       "1",
	}
}

func (m *memRecords) CatalogVersion(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versionCalls++
	if m.versionErr != nil {
		return "", m.versionErr
	}
	return m.version, nil
}

func (m *memRecords) ListProducts(ctx context.Context) ([]domain.ProductRow, error) {
	if m.onList != nil {
		m.onList()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return slices.Clone(m.products), nil
}

func (m *memRecords) CompareAndSwapStock(_ context.Context, swaps []domain.StockSwap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	if m.casErr != nil {
		return m.casErr
	}
	if m.conflicts > 0 {
		m.conflicts--
		return domain.ErrStockConflict
	}

	idx := make([]int, len(swaps))
	for i, sw := range swaps {
		j := slices.IndexFunc(m.products, func(r domain.ProductRow) bool {
			return r.ID == sw.ProductID
		})
		if j < 0 || m.products[j].Stock != strconv.Itoa(sw.Expected) {
			return domain.ErrStockConflict
		}
		idx[i] = j
	}
	for i, sw := range swaps {
		m.products[idx[i]].Stock = strconv.Itoa(sw.New)
	}
	if m.onSwap != nil {
		m.onSwap()
	}
	return nil
}

func (m *memRecords) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.products {
		if r.ID == id {
			n, _ := strconv.Atoi(r.Stock)
			return n
		}
	}
	return -1
}

func (m *memRecords) setStock(id string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.products {
		if r.ID == id {
			m.products[i].Stock = strconv.Itoa(n)
		}
	}
}

func (m *memRecords) ListDiscounts(context.Context) ([]domain.DiscountRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.discounts), nil
}

func (m *memRecords) AppendOrder(ctx context.Context, o domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orderErr != nil {
		return m.orderErr
	}
	m.orders = append(m.orders, o)
	return nil
}

func (m *memRecords) savedOrders() []domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.orders)
}

func (m *memRecords) AppendAbandoned(
	_ context.Context, userID string, cart domain.Cart, at time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.abandoned = append(m.abandoned, domain.AbandonedCart{
		ID: m.nextID, CreatedAt: at, UserID: userID, Cart: cart.Clone(),
	})
	return nil
}

func (m *memRecords) ListAbandoned(context.Context) ([]domain.AbandonedCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.abandoned), nil
}

func (m *memRecords) ClearAbandoned(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abandoned = slices.DeleteFunc(m.abandoned, func(r domain.AbandonedCart) bool {
		return r.UserID == userID
	})
	return nil
}

func (m *memRecords) DeleteAbandonedUpTo(_ context.Context, maxID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abandoned = slices.DeleteFunc(m.abandoned, func(r domain.AbandonedCart) bool {
		return r.ID <= maxID
	})
	return nil
}

var _ port.SessionStore = (*memSessions)(nil)

type memSessions struct {
	mu      sync.Mutex
	m       map[string]domain.Session
	saveErr error
}

func newMemSessions() *memSessions {
	return &memSessions{m: make(map[string]domain.Session)}
}

func (s *memSessions) Load(_ context.Context, userID string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[userID]
	if !ok {
		return domain.NewSession(userID), nil
	}
	return copySession(sess), nil
}

func (s *memSessions) Save(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.m[sess.UserID] = copySession(sess)
	return nil
}

func (s *memSessions) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
	return nil
}

func (s *memSessions) get(userID string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[userID]
	return copySession(sess), ok
}

func copySession(s domain.Session) domain.Session {
	s.Cart = s.Cart.Clone()
	if s.Checkout != nil {
		co := *s.Checkout
		s.Checkout = &co
	}
	return s
}

var _ port.Notifier = (*MockNotifier)(nil)

type MockNotifier struct {
	mock.Mock
}

func newMockNotifier() *MockNotifier {
	n := new(MockNotifier)
	n.On("NotifyLowStock", mock.Anything, mock.Anything, mock.Anything).Maybe()
	n.On("NotifyNewOrder", mock.Anything, mock.Anything).Maybe()
	n.On("NotifyError", mock.Anything, mock.Anything, mock.Anything).Maybe()
	n.On("RemindCart", mock.Anything, mock.Anything, mock.Anything).Maybe()
	return n
}

func (n *MockNotifier) NotifyLowStock(ctx context.Context, p domain.Product, stock int) {
	n.Called(ctx, p, stock)
}

func (n *MockNotifier) NotifyNewOrder(ctx context.Context, o domain.Order) {
	n.Called(ctx, o)
}

func (n *MockNotifier) NotifyError(ctx context.Context, where string, err error) {
	n.Called(ctx, where, err)
}

func (n *MockNotifier) RemindCart(ctx context.Context, userID string, cart domain.Cart) {
	n.Called(ctx, userID, cart)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
