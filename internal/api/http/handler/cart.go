package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

// CatalogService reads products. FetchProduct bypasses any cache.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	FetchProduct(ctx context.Context, id int64) (model.Product, error)
}

// CheckoutService places orders from the cart.
type CheckoutService interface {
	Checkout(ctx context.Context, notes string) (model.Order, error)
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type checkoutRequest struct {
	Notes string `json:"notes"`
}

// CartLine is one cart item with its subtotal.
type CartLine struct {
	Product  model.ProductSnapshot `json:"product"`
	Quantity int                   `json:"quantity"`
	Subtotal decimal.Decimal       `json:"subtotal"`
}

// CartResponse is the cart as the cart page and the navbar badge read it.
type CartResponse struct {
	Authenticated bool            `json:"authenticated"`
	Identity      string          `json:"identity,omitempty"`
	Items         []CartLine      `json:"items"`
	TotalItems    int             `json:"totalItems"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

// Cart handles cart and checkout endpoints.
type Cart struct {
	cart     model.CartStore
	catalog  CatalogService
	checkout CheckoutService
	logger   *logger.Logger
}

func NewCart(cart model.CartStore, catalog CatalogService, checkout CheckoutService, logger *logger.Logger) *Cart {
	return &Cart{
		cart:     cart,
		catalog:  catalog,
		checkout: checkout,
		logger:   logger,
	}
}

// Get returns the cart of the current identity.
func (h *Cart) Get(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.view())
}

// AddItem snapshots the product as the storefront API reports it now and adds it
// to the cart, so the stock ceiling checked is the current one.
func (h *Cart) AddItem(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}
	var req addItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity <= 0 {
		handleError(w, r, h.logger, model.ErrInvalidQuantity)
		return
	}

	product, err := h.catalog.FetchProduct(r.Context(), req.ProductID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	if err := h.cart.AddItem(r.Context(), product.Snapshot(), req.Quantity); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view())
}

// UpdateItem sets a line's quantity. Zero or less removes the line.
func (h *Cart) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	var req updateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.cart.UpdateQuantity(r.Context(), productID, req.Quantity); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view())
}

// RemoveItem drops a line.
func (h *Cart) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	if err := h.cart.RemoveItem(r.Context(), productID); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view())
}

// Clear empties the cart.
func (h *Cart) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}
	if err := h.cart.ClearCart(r.Context()); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view())
}

// Checkout places the order and returns it.
func (h *Cart) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	order, err := h.checkout.Checkout(r.Context(), req.Notes)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Cart handler: checkout completed",
		"order_id", order.ID,
		"reference", order.Reference.String())
	writeJSON(w, http.StatusCreated, order)
}

func (h *Cart) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if h.cart.IsAuthenticated() {
		return true
	}
	handleError(w, r, h.logger, model.ErrUnauthenticated)
	return false
}

// view builds the response from one copy of the items, so totals match the lines.
func (h *Cart) view() CartResponse {
	items := h.cart.Items()
	resp := CartResponse{
		Authenticated: h.cart.IsAuthenticated(),
		Identity:      string(h.cart.Identity()),
		Items:         make([]CartLine, 0, len(items)),
		TotalPrice:    decimal.Zero,
	}
	for _, it := range items {
		sub := it.Subtotal()
		resp.Items = append(resp.Items, CartLine{Product: it.Product, Quantity: it.Quantity, Subtotal: sub})
		resp.TotalItems += it.Quantity
		resp.TotalPrice = resp.TotalPrice.Add(sub)
	}
	return resp
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return 0, false
	}
	return id, true
}
