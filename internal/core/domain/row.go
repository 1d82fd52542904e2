package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	errRequired = errors.New("required")
	errNegative = errors.New("must not be negative")
	errRange    = errors.New("out of range")
)

type (
	// A ProductRow is a products record as text, exactly as the store holds it.
	ProductRow struct {
		Row           int
		ID            string
		Category      string
		NamePrimary   string
		NameSecondary string
		Brand         string
		Description   string
		Weight        string
		Price         string
		Stock         string
		ImageURL      string
		Bestseller    string
		Version       string
	}

	DiscountRow struct {
		Row        int
		Code       string
		Percent    string
		ValidUntil string
		Active     string
	}
)

// ParseProduct validates the required fields of r and converts it.
// The returned error is a [*RowError].
func ParseProduct(r ProductRow) (Product, error) {
	required := []struct {
		name, value string
	}{
		{"id", r.ID},
		{"category", r.Category},
		{"name_primary", r.NamePrimary},
		{"name_secondary", r.NameSecondary},
		{"brand", r.Brand},
		{"description", r.Description},
		{"weight", r.Weight},
		{"price", r.Price},
		{"stock", r.Stock},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return Product{}, &RowError{Row: r.Row, Field: f.name, Err: errRequired}
		}
	}

	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return Product{}, &RowError{Row: r.Row, Field: "price", Err: err}
	}
	if price.IsNegative() {
		return Product{}, &RowError{Row: r.Row, Field: "price", Err: errNegative}
	}

	stock, err := strconv.Atoi(strings.TrimSpace(r.Stock))
	if err != nil {
		return Product{}, &RowError{Row: r.Row, Field: "stock", Err: err}
	}
	if stock < 0 {
		return Product{}, &RowError{Row: r.Row, Field: "stock", Err: errNegative}
	}

	version := strings.TrimSpace(r.Version)
	if version == "" {
		version = "0"
	}

	return Product{
		ID:            strings.TrimSpace(r.ID),
		Category:      strings.TrimSpace(r.Category),
		NamePrimary:   r.NamePrimary,
		NameSecondary: r.NameSecondary,
		Brand:         r.Brand,
		Description:   r.Description,
		Weight:        r.Weight,
		Price:         price,
		Stock:         stock,
		ImageURL:      strings.TrimSpace(r.ImageURL),
		Bestseller:    parseBool(r.Bestseller),
		Version:       version,
	}, nil
}

// ParseDiscount converts a discounts record. The returned error is a [*RowError].
func ParseDiscount(r DiscountRow) (Discount, error) {
	code := strings.TrimSpace(r.Code)
	if code == "" {
		return Discount{}, &RowError{Row: r.Row, Field: "code", Err: errRequired}
	}

	percent, err := decimal.NewFromString(strings.TrimSpace(r.Percent))
	if err != nil {
		return Discount{}, &RowError{Row: r.Row, Field: "discount_percent", Err: err}
	}
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return Discount{}, &RowError{Row: r.Row, Field: "discount_percent", Err: errRange}
	}

	validUntil, err := time.Parse(DateLayout, strings.TrimSpace(r.ValidUntil))
	if err != nil {
		return Discount{}, &RowError{Row: r.Row, Field: "valid_until", Err: err}
	}

	return Discount{
		Code:       code,
		Percent:    percent,
		ValidUntil: validUntil,
		Active:     parseBool(r.Active),
	}, nil
}

func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}
