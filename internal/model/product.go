package model

import "github.com/shopspring/decimal"

// Product is a live catalog entry as served by the storefront API.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Image    string          `json:"image,omitempty"`
	Category string          `json:"category,omitempty"`
}

// Snapshot copies the catalog data a cart item keeps for its whole lifetime.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:           p.ID,
		Name:         p.Name,
		UnitPrice:    p.Price,
		StockCeiling: p.Stock,
		ImageRef:     p.Image,
	}
}

// ProductSnapshot is the immutable copy of a product taken when it is added to a cart.
type ProductSnapshot struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"price"`
	StockCeiling int             `json:"stock"`
	ImageRef     string          `json:"image,omitempty"`
}
