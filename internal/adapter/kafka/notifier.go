package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/port"
	"github.com/niksmo/chatshop/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

const flushTimeout = 5 * time.Second

var _ port.Notifier = (*Notifier)(nil)

// A Notifier produces [schema.NotificationV1] records. Produce is
// asynchronous, delivery failures are only logged.
type Notifier struct {
	cl       ProducerClient
	encoder  Encoder
	now      func() time.Time
	opPrefix string
}

func NewNotifier(opts ...ProducerOpt) (*Notifier, error) {
	const op = "NewNotifier"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, opErr(err, op)
		}
	}

	return &Notifier{
		cl:       options.cl,
		encoder:  options.encoder,
		now:      time.Now,
		opPrefix: "Notifier",
	}, nil
}

// Close waits for buffered records and closes the client.
func (n *Notifier) Close() {
	const op = "Close"
	log := slog.With("op", makeOp(n.opPrefix, op))

	log.Info("closing notifier...")
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := n.cl.Flush(ctx); err != nil {
		log.Warn("failed to flush notifications", "err", err)
	}
	n.cl.Close()
	log.Info("notifier is closed")
}

func (n *Notifier) NotifyLowStock(ctx context.Context, p domain.Product, stock int) {
	n.produce(ctx, p.ID, schema.NotificationV1{
		Kind:        schema.KindLowStock,
		ProductID:   p.ID,
		ProductName: p.NamePrimary,
		Stock:       int64(stock),
	})
}

func (n *Notifier) NotifyNewOrder(ctx context.Context, o domain.Order) {
	items := make([]schema.NotificationItemV1, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, schema.NotificationItemV1{
			ProductID: l.ProductID,
			Name:      l.Name,
			Qty:       int64(l.Qty),
			Price:     l.UnitPrice.StringFixed(2),
		})
	}

	n.produce(ctx, o.UserID, schema.NotificationV1{
		Kind:         schema.KindNewOrder,
		UserID:       o.UserID,
		OrderID:      o.ID,
		Handle:       o.Handle,
		Customer:     o.Name,
		Phone:        o.Phone,
		Address:      o.FullAddress(),
		Destination:  string(o.Destination),
		Notes:        o.Notes,
		Items:        items,
		DiscountCode: o.DiscountCode,
		Discount:     o.DiscountAmount.StringFixed(2),
		Total:        o.Total.StringFixed(2),
	})
}

func (n *Notifier) NotifyError(ctx context.Context, where string, err error) {
	v := schema.NotificationV1{Kind: schema.KindError, Text: where}
	if err != nil {
		v.Text = where + ": " + err.Error()
	}
	n.produce(ctx, where, v)
}

func (n *Notifier) RemindCart(ctx context.Context, userID string, cart domain.Cart) {
	items := make([]schema.NotificationItemV1, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, schema.NotificationItemV1{
			ProductID: it.ProductID,
			Name:      it.Name,
			Qty:       int64(it.Qty),
			Price:     it.Price.StringFixed(2),
		})
	}

	n.produce(ctx, userID, schema.NotificationV1{
		Kind:   schema.KindCartReminder,
		UserID: userID,
		Items:  items,
		Total:  cart.Total().StringFixed(2),
	})
}

// produce detaches from the caller's cancellation so a finished request
// does not abort the record it queued.
func (n *Notifier) produce(ctx context.Context, key string, v schema.NotificationV1) {
	const op = "produce"
	log := slog.With("op", makeOp(n.opPrefix, op), "kind", v.Kind)

	if v.Items == nil {
		v.Items = []schema.NotificationItemV1{}
	}
	if v.Discount == "" {
		v.Discount = "0"
	}
	if v.Total == "" {
		v.Total = "0"
	}
	v.CreatedAt = n.now().UTC()

	b, err := n.encoder.Encode(v)
	if err != nil {
		log.Error("failed to encode notification", "err", err)
		return
	}

	r := &kgo.Record{Key: []byte(key), Value: b}
	n.cl.Produce(context.WithoutCancel(ctx), r, func(_ *kgo.Record, err error) {
		if err != nil {
			log.Error("failed to deliver notification", "key", key, "err", err)
		}
	})
}
