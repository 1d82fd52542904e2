package kafka

import (
	"context"
	"log/slog"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/port"
)

var _ port.Notifier = LogNotifier{}

// LogNotifier writes notifications to the log. It stands in for
// [Notifier] when no brokers are configured.
type LogNotifier struct{}

func (LogNotifier) NotifyLowStock(_ context.Context, p domain.Product, stock int) {
	slog.Warn("low stock",
		"op", "LogNotifier.NotifyLowStock", "productID", p.ID, "name", p.NamePrimary, "stock", stock)
}

func (LogNotifier) NotifyNewOrder(_ context.Context, o domain.Order) {
	slog.Info("new order",
		"op", "LogNotifier.NotifyNewOrder",
		"orderID", o.ID, "userID", o.UserID, "lines", len(o.Lines), "total", o.Total.StringFixed(2))
}

func (LogNotifier) NotifyError(_ context.Context, where string, err error) {
	slog.Error("admin alert", "op", "LogNotifier.NotifyError", "where", where, "err", err)
}

func (LogNotifier) RemindCart(_ context.Context, userID string, cart domain.Cart) {
	slog.Info("cart reminder",
		"op", "LogNotifier.RemindCart", "userID", userID, "items", cart.Count())
}
