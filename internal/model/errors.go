package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrInvalidQuantity    = errors.New("quantity must be a positive integer")
	ErrStockExceeded      = errors.New("stock exceeded")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// StockExceededError rejects a cart mutation that would push a quantity above the
// product's stock ceiling. The cart is left unchanged.
type StockExceededError struct {
	ProductID int64
	Ceiling   int
	Requested int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("stock exceeded for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Ceiling)
}

// Is makes errors.Is(err, ErrStockExceeded) match.
func (e *StockExceededError) Is(target error) bool {
	return target == ErrStockExceeded
}
