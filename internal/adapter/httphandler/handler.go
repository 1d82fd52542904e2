package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/port"
)

// GET v1/products?category=&q=&bestsellers=true (200 OK, 503 Service unavailable)
// GET v1/categories (200 OK)

type CatalogHandler struct {
	catalog port.CatalogBrowser
}

func RegisterCatalog(mux *http.ServeMux, catalog port.CatalogBrowser) {
	h := CatalogHandler{catalog}
	mux.HandleFunc("GET /v1/products", h.GetProducts)
	mux.HandleFunc("GET /v1/products/{productID}", h.GetProduct)
	mux.HandleFunc("GET /v1/categories", h.GetCategories)
}

func (h CatalogHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetProducts"
	log := slog.With("op", op)

	var (
		ps  []domain.Product
		err error
		q   = r.URL.Query()
	)
	switch {
	case q.Get("q") != "":
		ps, err = h.catalog.Search(r.Context(), q.Get("q"))
	case q.Get("category") != "":
		ps, err = h.catalog.ByCategory(r.Context(), q.Get("category"))
	case q.Get("bestsellers") == "true":
		ps, err = h.catalog.Bestsellers(r.Context())
	default:
		var all map[string]domain.Product
		all, err = h.catalog.Products(r.Context())
		for _, id := range slices.Sorted(maps.Keys(all)) {
			ps = append(ps, all[id])
		}
	}
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, toProducts(ps))
}

func (h CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetProduct"
	log := slog.With("op", op)

	p, err := h.catalog.Product(r.Context(), r.PathValue("productID"))
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, toProduct(p))
}

func (h CatalogHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetCategories"
	log := slog.With("op", op)

	cs, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeError(w, log, err)
		return
	}
	if cs == nil {
		cs = []string{}
	}
	writeJSON(w, log, http.StatusOK, cs)
}

// GET v1/users/{userID}/cart (200 OK)
// POST v1/users/{userID}/cart/items JSON {"product_id" string, "qty" int} (200 OK, 409 Conflict)
// POST v1/users/{userID}/cart/items/{productID}/increment|decrement
// DELETE v1/users/{userID}/cart/items/{productID}
// PUT v1/users/{userID}/destination JSON {"destination" string} (200 OK, 400 Bad request)

type CartHandler struct {
	cart port.CartManager
}

func RegisterCart(mux *http.ServeMux, cart port.CartManager) {
	h := CartHandler{cart}
	mux.HandleFunc("GET /v1/users/{userID}/cart", h.GetCart)
	mux.HandleFunc("POST /v1/users/{userID}/cart/items", h.PostItem)
	mux.HandleFunc("POST /v1/users/{userID}/cart/items/{productID}/increment", h.PostIncrement)
	mux.HandleFunc("POST /v1/users/{userID}/cart/items/{productID}/decrement", h.PostDecrement)
	mux.HandleFunc("DELETE /v1/users/{userID}/cart/items/{productID}", h.DeleteItem)
	mux.HandleFunc("PUT /v1/users/{userID}/destination", h.PutDestination)
}

func (h CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.GetCart"
	log := slog.With("op", op)

	sess, err := h.cart.Cart(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, toSession(sess))
}

func (h CartHandler) PostItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PostItem"
	log := slog.With("op", op)

	var req AddItemRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	res, err := h.cart.AddToCart(r.Context(), r.PathValue("userID"), req.ProductID, req.Qty)
	writeCartResult(w, log, res, err)
}

func (h CartHandler) PostIncrement(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PostIncrement"
	log := slog.With("op", op)

	res, err := h.cart.Increment(r.Context(), r.PathValue("userID"), r.PathValue("productID"))
	writeCartResult(w, log, res, err)
}

func (h CartHandler) PostDecrement(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PostDecrement"
	log := slog.With("op", op)

	res, err := h.cart.Decrement(r.Context(), r.PathValue("userID"), r.PathValue("productID"))
	writeCartResult(w, log, res, err)
}

func (h CartHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.DeleteItem"
	log := slog.With("op", op)

	res, err := h.cart.Remove(r.Context(), r.PathValue("userID"), r.PathValue("productID"))
	writeCartResult(w, log, res, err)
}

func (h CartHandler) PutDestination(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PutDestination"
	log := slog.With("op", op)

	var req DestinationRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}

	sess, err := h.cart.SetDestination(
		r.Context(), r.PathValue("userID"), domain.Destination(req.Destination),
	)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, toSession(sess))
}

// POST v1/users/{userID}/checkout JSON {"handle" string} (200 OK)
// POST v1/users/{userID}/events JSON {"text" string} (200 OK)
//
// Checkout outcomes, including failures, are answered with 200 and a
// result kind; the gateway renders them.

type CheckoutHandler struct {
	checkout port.CheckoutDriver
}

func RegisterCheckout(mux *http.ServeMux, checkout port.CheckoutDriver) {
	h := CheckoutHandler{checkout}
	mux.HandleFunc("POST /v1/users/{userID}/checkout", h.PostCheckout)
	mux.HandleFunc("POST /v1/users/{userID}/events", h.PostEvent)
}

func (h CheckoutHandler) PostCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.PostCheckout"
	log := slog.With("op", op)

	var req CheckoutRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, log, &req) {
		return
	}

	res := h.checkout.Start(r.Context(), r.PathValue("userID"), req.Handle)
	writeJSON(w, log, http.StatusOK, toCheckoutResult(res))
}

func (h CheckoutHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.PostEvent"
	log := slog.With("op", op)

	var req EventRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}

	res := h.checkout.Handle(r.Context(), r.PathValue("userID"), req.Text)
	writeJSON(w, log, http.StatusOK, toCheckoutResult(res))
}

func writeCartResult(w http.ResponseWriter, log *slog.Logger, res domain.CartResult, err error) {
	if err != nil {
		writeError(w, log, err)
		return
	}

	status := http.StatusOK
	switch {
	case res.OK:
	case errors.Is(res.Reason, domain.ErrOutOfStock):
		status = http.StatusConflict
	case errors.Is(res.Reason, domain.ErrNotFound):
		status = http.StatusNotFound
	default:
		status = http.StatusBadRequest
	}
	writeJSON(w, log, status, toCartResult(res))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, log, http.StatusBadRequest, Error{"invalid JSON data"})
		log.Warn("failed to parse JSON", "err", err)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidDestination),
		errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRemoteService),
		errors.Is(err, domain.ErrEmptyCatalog):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "err", err)
	} else {
		log.Warn("request rejected", "err", err)
	}
	writeJSON(w, log, status, Error{http.StatusText(status)})
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write response body", "err", err)
	}
}
