package port

import (
	"context"
	"time"

	"github.com/niksmo/chatshop/internal/core/domain"
)

// Record store tables. Every call is a blocking remote round trip.

type CatalogStore interface {
	// CatalogVersion reads the single version-marker cell.
	CatalogVersion(context.Context) (string, error)
	ListProducts(context.Context) ([]domain.ProductRow, error)
}

type StockStore interface {
	ListProducts(context.Context) ([]domain.ProductRow, error)
	// CompareAndSwapStock applies every swap or none of them.
	// A swap whose expected value no longer matches yields [domain.ErrStockConflict].
	CompareAndSwapStock(context.Context, []domain.StockSwap) error
}

type DiscountStore interface {
	ListDiscounts(context.Context) ([]domain.DiscountRow, error)
}

type OrderStore interface {
	AppendOrder(context.Context, domain.Order) error
}

type AbandonedCartLog interface {
	AppendAbandoned(ctx context.Context, userID string, cart domain.Cart, at time.Time) error
	ListAbandoned(context.Context) ([]domain.AbandonedCart, error)
	ClearAbandoned(ctx context.Context, userID string) error
	// DeleteAbandonedUpTo removes records with id <= maxID.
	DeleteAbandonedUpTo(ctx context.Context, maxID int64) error
}

type RecordStore interface {
	CatalogStore
	StockStore
	DiscountStore
	OrderStore
	AbandonedCartLog
}

type SessionStore interface {
	// Load returns a fresh session when none is stored.
	Load(ctx context.Context, userID string) (domain.Session, error)
	Save(context.Context, domain.Session) error
	Delete(ctx context.Context, userID string) error
}

// A Notifier delivers admin and user notifications. Calls never block on
// delivery and never fail the caller.
type Notifier interface {
	NotifyLowStock(ctx context.Context, p domain.Product, stock int)
	NotifyNewOrder(ctx context.Context, o domain.Order)
	NotifyError(ctx context.Context, where string, err error)
	RemindCart(ctx context.Context, userID string, cart domain.Cart)
}

type Clock interface {
	Now() time.Time
}

// Inbound ports used by the transport.

type CatalogBrowser interface {
	Products(context.Context) (map[string]domain.Product, error)
	Product(ctx context.Context, id string) (domain.Product, error)
	Categories(context.Context) ([]string, error)
	ByCategory(ctx context.Context, category string) ([]domain.Product, error)
	Bestsellers(context.Context) ([]domain.Product, error)
	Search(ctx context.Context, query string) ([]domain.Product, error)
}

type CartManager interface {
	Cart(ctx context.Context, userID string) (domain.Session, error)
	AddToCart(ctx context.Context, userID, productID string, qty int) (domain.CartResult, error)
	Increment(ctx context.Context, userID, productID string) (domain.CartResult, error)
	Decrement(ctx context.Context, userID, productID string) (domain.CartResult, error)
	Remove(ctx context.Context, userID, productID string) (domain.CartResult, error)
	SetDestination(ctx context.Context, userID string, d domain.Destination) (domain.Session, error)
}

type CheckoutDriver interface {
	Start(ctx context.Context, userID, handle string) domain.CheckoutResult
	Handle(ctx context.Context, userID, text string) domain.CheckoutResult
}
