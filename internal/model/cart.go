package model

import (
	"context"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a cart. Quantity is always positive.
type CartItem struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
}

// Subtotal is the snapshot unit price times quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Product.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartView is what UI regions read from the cart store.
type CartView interface {
	Items() []CartItem
	IsAuthenticated() bool
	TotalItems() int
	TotalPrice() decimal.Decimal
}

// CartStore is the per-identity cart with stock-bound mutations.
type CartStore interface {
	CartView
	Identity() Identity
	AddItem(ctx context.Context, product ProductSnapshot, quantity int) error
	RemoveItem(ctx context.Context, productID int64) error
	UpdateQuantity(ctx context.Context, productID int64, quantity int) error
	ClearCart(ctx context.Context) error
	Revalidate(ctx context.Context) bool
	Reload(ctx context.Context) bool
}
