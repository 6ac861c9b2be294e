package devapi

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/pastry-storefront/internal/model"
)

func TestCatalog_Authenticate(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, Seed(c))

	user, err := c.Authenticate(" Aurora@Pastry.test ", SeedPassword)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)

	_, err = c.Authenticate("aurora@pastry.test", "wrong")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	_, err = c.Authenticate("nobody@pastry.test", SeedPassword)
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestCatalog_PlaceOrderIsAllOrNothing(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, Seed(c))

	draft := model.OrderDraft{
		Reference: uuid.New(),
		Items: []model.OrderLine{
			{ProductID: 1, Quantity: 5, UnitPrice: decimal.RequireFromString("1.20")},
			{ProductID: 6, Quantity: 1, UnitPrice: decimal.RequireFromString("1.75")},
		},
	}
	_, _, err := c.PlaceOrder(42, draft)
	var stockErr *model.StockExceededError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(6), stockErr.ProductID)
	assert.Equal(t, 0, stockErr.Ceiling)

	p, err := c.Product(1)
	require.NoError(t, err)
	assert.Equal(t, 200, p.Stock)
}

func TestCatalog_PlaceOrderSumsDuplicateLines(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, Seed(c))

	draft := model.OrderDraft{
		Reference: uuid.New(),
		Items: []model.OrderLine{
			{ProductID: 5, Quantity: 20, UnitPrice: decimal.RequireFromString("3.10")},
			{ProductID: 5, Quantity: 5, UnitPrice: decimal.RequireFromString("3.10")},
		},
	}
	_, _, err := c.PlaceOrder(42, draft)
	assert.ErrorIs(t, err, model.ErrStockExceeded)
}

func TestCatalog_PlaceOrderValidation(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, Seed(c))

	_, _, err := c.PlaceOrder(42, model.OrderDraft{Reference: uuid.New()})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = c.PlaceOrder(42, model.OrderDraft{Items: []model.OrderLine{{ProductID: 1, Quantity: 1}}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = c.PlaceOrder(42, model.OrderDraft{Reference: uuid.New(), Items: []model.OrderLine{{ProductID: 1, Quantity: 0}}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = c.PlaceOrder(42, model.OrderDraft{Reference: uuid.New(), Items: []model.OrderLine{{ProductID: 99, Quantity: 1}}})
	assert.ErrorIs(t, err, model.ErrNotFound)
}
