package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

type Discount struct {
	Code       string
	Percent    decimal.Decimal
	ValidUntil time.Time
	Active     bool
}

// ValidAt reports whether the code can be used at now. ValidUntil is
// midnight UTC of its date, so the code expires as that day begins.
func (d Discount) ValidAt(now time.Time) bool {
	if !d.Active {
		return false
	}
	return !d.ValidUntil.Before(now)
}

// Apply returns the discounted total and the amount taken off.
func (d Discount) Apply(total decimal.Decimal) (discounted, amount decimal.Decimal) {
	amount = total.Mul(d.Percent).Div(hundred)
	return total.Sub(amount), amount
}
