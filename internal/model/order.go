package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus enumerates order lifecycle states reported by the storefront API.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderLine is one product line of an order, priced at the cart snapshot.
type OrderLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderDraft is what checkout submits.
type OrderDraft struct {
	Reference uuid.UUID   `json:"reference"`
	Items     []OrderLine `json:"items"`
	Notes     string      `json:"notes,omitempty"`
}

// Order is a placed order.
type Order struct {
	ID        int64           `json:"id"`
	Reference uuid.UUID       `json:"reference"`
	Status    OrderStatus     `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Items     []OrderLine     `json:"items"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OrderNotification records an observed status change of one order.
type OrderNotification struct {
	OrderID   int64       `json:"order_id"`
	Reference uuid.UUID   `json:"reference"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	At        time.Time   `json:"at"`
}
