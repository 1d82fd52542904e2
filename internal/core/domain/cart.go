package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

// A CartItem keeps the display fields captured when the product was added,
// so later catalog edits do not change what the customer saw.
type CartItem struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Weight    string
	Qty       int
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// A Cart is insertion-ordered and unique by product id.
// It never holds an item with Qty <= 0.
type Cart struct {
	Items []CartItem
}

func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// Qty returns the quantity held for productID, 0 when absent.
func (c Cart) Qty(productID string) int {
	if i := c.index(productID); i >= 0 {
		return c.Items[i].Qty
	}
	return 0
}

// Count returns the number of units across all items.
func (c Cart) Count() (n int) {
	for _, it := range c.Items {
		n += it.Qty
	}
	return n
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Add merges qty units of p into the cart. Stock is checked by the caller.
func (c *Cart) Add(p Product, qty int) {
	if qty <= 0 {
		return
	}
	if i := c.index(p.ID); i >= 0 {
		c.Items[i].Qty += qty
		return
	}
	c.Items = append(c.Items, CartItem{
		ProductID: p.ID,
		Name:      p.NamePrimary,
		Price:     p.Price,
		Weight:    p.Weight,
		Qty:       qty,
	})
}

// Decrement lowers the quantity by one and drops the item at zero.
// It reports whether the item was present.
func (c *Cart) Decrement(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.Items[i].Qty--
	if c.Items[i].Qty <= 0 {
		c.Items = slices.Delete(c.Items, i, i+1)
	}
	return true
}

func (c *Cart) Remove(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.Items = slices.Delete(c.Items, i, i+1)
	return true
}

func (c Cart) Clone() Cart {
	return Cart{Items: slices.Clone(c.Items)}
}

func (c Cart) index(productID string) int {
	return slices.IndexFunc(c.Items, func(it CartItem) bool {
		return it.ProductID == productID
	})
}
