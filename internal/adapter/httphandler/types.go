package httphandler

import (
	"github.com/niksmo/chatshop/internal/core/domain"
)

type (
	Product struct {
		ID            string `json:"id"`
		Category      string `json:"category"`
		NamePrimary   string `json:"name_primary"`
		NameSecondary string `json:"name_secondary"`
		Brand         string `json:"brand"`
		Description   string `json:"description"`
		Weight        string `json:"weight"`
		Price         string `json:"price"`
		Stock         int    `json:"stock"`
		ImageURL      string `json:"image_url,omitempty"`
		Bestseller    bool   `json:"bestseller"`
	}

	CartItem struct {
		ProductID string `json:"product_id"`
		Name      string `json:"name"`
		Weight    string `json:"weight"`
		Price     string `json:"price"`
		Qty       int    `json:"qty"`
		Subtotal  string `json:"subtotal"`
	}

	Cart struct {
		Items []CartItem `json:"items"`
		Total string     `json:"total"`
	}

	Session struct {
		UserID      string `json:"user_id"`
		Destination string `json:"destination,omitempty"`
		Cart        Cart   `json:"cart"`
		Checkout    string `json:"checkout_state,omitempty"`
	}

	CartResult struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
		Reason  string `json:"reason,omitempty"`
		Cart    Cart   `json:"cart"`
	}

	OrderLine struct {
		ProductID string `json:"product_id"`
		Name      string `json:"name"`
		Qty       int    `json:"qty"`
		UnitPrice string `json:"unit_price"`
		Subtotal  string `json:"subtotal"`
	}

	Order struct {
		ID             string      `json:"id"`
		Destination    string      `json:"destination"`
		Lines          []OrderLine `json:"lines"`
		DiscountCode   string      `json:"discount_code,omitempty"`
		DiscountAmount string      `json:"discount_amount"`
		Subtotal       string      `json:"subtotal"`
		Total          string      `json:"total"`
		Status         string      `json:"status"`
	}

	CheckoutResult struct {
		Kind    string `json:"kind"`
		State   string `json:"state,omitempty"`
		Message string `json:"message"`
		Notice  string `json:"notice,omitempty"`
		Promo   string `json:"promo,omitempty"`
		Order   *Order `json:"order,omitempty"`
		Cart    Cart   `json:"cart"`
	}

	AddItemRequest struct {
		ProductID string `json:"product_id"`
		Qty       int    `json:"qty"`
	}

	DestinationRequest struct {
		Destination string `json:"destination"`
	}

	CheckoutRequest struct {
		Handle string `json:"handle"`
	}

	EventRequest struct {
		Text string `json:"text"`
	}

	Error struct {
		Error string `json:"error"`
	}
)

func toProduct(p domain.Product) Product {
	return Product{
		ID:            p.ID,
		Category:      p.Category,
		NamePrimary:   p.NamePrimary,
		NameSecondary: p.NameSecondary,
		Brand:         p.Brand,
		Description:   p.Description,
		Weight:        p.Weight,
		Price:         p.Price.StringFixed(2),
		Stock:         p.Stock,
		ImageURL:      p.ImageURL,
		Bestseller:    p.Bestseller,
	}
}

func toProducts(ps []domain.Product) []Product {
	out := make([]Product, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProduct(p))
	}
	return out
}

func toCart(c domain.Cart) Cart {
	out := Cart{
		Items: make([]CartItem, 0, len(c.Items)),
		Total: c.Total().StringFixed(2),
	}
	for _, it := range c.Items {
		out.Items = append(out.Items, CartItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Weight:    it.Weight,
			Price:     it.Price.StringFixed(2),
			Qty:       it.Qty,
			Subtotal:  it.Subtotal().StringFixed(2),
		})
	}
	return out
}

func toSession(s domain.Session) Session {
	out := Session{
		UserID:      s.UserID,
		Destination: string(s.Destination),
		Cart:        toCart(s.Cart),
	}
	if s.Checkout != nil {
		out.Checkout = string(s.Checkout.State)
	}
	return out
}

func toCartResult(r domain.CartResult) CartResult {
	out := CartResult{OK: r.OK, Message: r.Message, Cart: toCart(r.Cart)}
	if r.Reason != nil {
		out.Reason = r.Reason.Error()
	}
	return out
}

func toCheckoutResult(r domain.CheckoutResult) CheckoutResult {
	out := CheckoutResult{
		Kind:    string(r.Kind),
		State:   string(r.State),
		Message: r.Message,
		Notice:  r.Notice,
		Promo:   r.Promo,
		Cart:    toCart(r.Cart),
	}
	if o := r.Order; o != nil {
		lines := make([]OrderLine, 0, len(o.Lines))
		for _, l := range o.Lines {
			lines = append(lines, OrderLine{
				ProductID: l.ProductID,
				Name:      l.Name,
				Qty:       l.Qty,
				UnitPrice: l.UnitPrice.StringFixed(2),
				Subtotal:  l.Subtotal.StringFixed(2),
			})
		}
		out.Order = &Order{
			ID:             o.ID,
			Destination:    string(o.Destination),
			Lines:          lines,
			DiscountCode:   o.DiscountCode,
			DiscountAmount: o.DiscountAmount.StringFixed(2),
			Subtotal:       o.Subtotal.StringFixed(2),
			Total:          o.Total.StringFixed(2),
			Status:         string(o.Status),
		}
	}
	return out
}
