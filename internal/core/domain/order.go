package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPreparing OrderStatus = "preparing"
	OrderShipped   OrderStatus = "shipped"
)

type Destination string

const (
	DestinationPerugia Destination = "Perugia"
	DestinationItaly   Destination = "Italy"
)

func ParseDestination(s string) (Destination, error) {
	switch d := Destination(s); d {
	case DestinationPerugia, DestinationItaly:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDestination, s)
}

type (
	OrderLine struct {
		ProductID string
		Name      string
		Qty       int
		UnitPrice decimal.Decimal
		Subtotal  decimal.Decimal
	}

	// An Order is append-only. Status and Notified belong to the
	// status poller and are never rewritten here.
	Order struct {
		ID             string
		CreatedAt      time.Time
		UserID         string
		Handle         string
		Name           string
		Phone          string
		Address        string
		Postal         string
		Destination    Destination
		Lines          []OrderLine
		Notes          string
		DiscountCode   string
		DiscountAmount decimal.Decimal
		Subtotal       decimal.Decimal
		Total          decimal.Decimal
		Status         OrderStatus
		Notified       bool
	}
)

func OrderLines(c Cart) []OrderLine {
	lines := make([]OrderLine, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, OrderLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Qty:       it.Qty,
			UnitPrice: it.Price,
			Subtotal:  it.Subtotal(),
		})
	}
	return lines
}

// FullAddress is the address column value as the order sheet stores it.
func (o Order) FullAddress() string {
	return o.Address + " | " + o.Postal
}
