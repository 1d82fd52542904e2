package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	Product struct {
		ID            string
		Category      string
		NamePrimary   string
		NameSecondary string
		Brand         string
		Description   string
		Weight        string
		Price         decimal.Decimal
		Stock         int
		ImageURL      string
		Bestseller    bool
		Version       string
	}

	// A CatalogSnapshot is authoritative only while now < ExpiresAt and
	// Version equals the store's current marker.
	CatalogSnapshot struct {
		Version   string
		ExpiresAt time.Time
		Products  map[string]Product
	}
)

func (s CatalogSnapshot) Fresh(now time.Time, marker string) bool {
	return s.Products != nil && s.Version == marker && now.Before(s.ExpiresAt)
}

// StockSwap is a conditional stock write: the row is updated to New only
// when its current value still equals Expected.
type StockSwap struct {
	ProductID string
	Expected  int
	New       int
}
