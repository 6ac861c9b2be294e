// Package devapi is an in-memory stand-in of the storefront REST API for local
// development and client tests.
package devapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/pastry-storefront/internal/model"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

// Account is a seeded API user.
type Account struct {
	User         model.UserRecord
	PasswordHash []byte
}

// ProductPatch is an admin edit of a catalog entry. Nil fields are left unchanged.
type ProductPatch struct {
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock *int             `json:"stock,omitempty"`
}

// Catalog holds users, products and orders. It is safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	accounts map[string]Account
	users    map[int64]model.UserRecord
	products map[int64]model.Product
	orders   map[int64]model.Order
	owners   map[int64]int64
	nextID   int64
	now      func() time.Time
}

func NewCatalog() *Catalog {
	return &Catalog{
		accounts: map[string]Account{},
		users:    map[int64]model.UserRecord{},
		products: map[int64]model.Product{},
		orders:   map[int64]model.Order{},
		owners:   map[int64]int64{},
		nextID:   1,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddUser registers user with a bcrypt hash of password.
func (c *Catalog) AddUser(user model.UserRecord, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	email := strings.ToLower(user.Email)
	c.accounts[email] = Account{User: user, PasswordHash: hash}
	c.users[user.ID] = user
	return nil
}

// AddProduct inserts or replaces p.
func (c *Catalog) AddProduct(p model.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

// Authenticate checks email and password.
func (c *Catalog) Authenticate(email, password string) (model.UserRecord, error) {
	c.mu.RLock()
	acc, ok := c.accounts[strings.ToLower(strings.TrimSpace(email))]
	c.mu.RUnlock()
	if !ok {
		return model.UserRecord{}, model.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return model.UserRecord{}, model.ErrInvalidCredentials
	}
	return acc.User, nil
}

func (c *Catalog) User(id int64) (model.UserRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	if !ok {
		return model.UserRecord{}, model.ErrNotFound
	}
	return u, nil
}

// Products lists the catalog ordered by id.
func (c *Catalog) Products() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) Product(id int64) (model.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return model.Product{}, model.ErrNotFound
	}
	return p, nil
}

// UpdateProduct applies patch to product id.
func (c *Catalog) UpdateProduct(id int64, patch ProductPatch) (model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return model.Product{}, model.ErrNotFound
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return model.Product{}, ErrInvalidInput
		}
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			return model.Product{}, ErrInvalidInput
		}
		p.Stock = *patch.Stock
	}
	c.products[id] = p
	return p, nil
}

// PlaceOrder checks every line against live stock and decrements it. Either the
// whole order is accepted or nothing changes. Resubmitting a reference already
// placed by the same user returns the existing order.
func (c *Catalog) PlaceOrder(userID int64, draft model.OrderDraft) (model.Order, bool, error) {
	if len(draft.Items) == 0 || draft.Reference == uuid.Nil {
		return model.Order{}, false, ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, o := range c.orders {
		if o.Reference == draft.Reference && c.owners[id] == userID {
			return o, false, nil
		}
	}

	wanted := map[int64]int{}
	for _, line := range draft.Items {
		if line.Quantity <= 0 {
			return model.Order{}, false, ErrInvalidInput
		}
		if _, ok := c.products[line.ProductID]; !ok {
			return model.Order{}, false, model.ErrNotFound
		}
		wanted[line.ProductID] += line.Quantity
	}
	for id, qty := range wanted {
		if p := c.products[id]; qty > p.Stock {
			return model.Order{}, false, &model.StockExceededError{ProductID: id, Ceiling: p.Stock, Requested: qty}
		}
	}

	total := decimal.Zero
	lines := make([]model.OrderLine, len(draft.Items))
	copy(lines, draft.Items)
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	for id, qty := range wanted {
		p := c.products[id]
		p.Stock -= qty
		c.products[id] = p
	}

	now := c.now()
	order := model.Order{
		ID:        c.nextID,
		Reference: draft.Reference,
		Status:    model.OrderStatusPending,
		Total:     total,
		Items:     lines,
		Notes:     draft.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.orders[order.ID] = order
	c.owners[order.ID] = userID
	c.nextID++
	return order, true, nil
}

// Orders lists userID's orders, newest first.
func (c *Catalog) Orders(userID int64) []model.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []model.Order{}
	for id, o := range c.orders {
		if c.owners[id] == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// SetOrderStatus moves order id to status. Cancelling returns the stock.
func (c *Catalog) SetOrderStatus(id int64, status model.OrderStatus) (model.Order, error) {
	if !status.Valid() {
		return model.Order{}, ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.orders[id]
	if !ok {
		return model.Order{}, model.ErrNotFound
	}
	if o.Status == status {
		return o, nil
	}
	if status == model.OrderStatusCancelled {
		for _, line := range o.Items {
			if p, ok := c.products[line.ProductID]; ok {
				p.Stock += line.Quantity
				c.products[line.ProductID] = p
			}
		}
	}
	o.Status = status
	o.UpdatedAt = c.now()
	c.orders[id] = o
	return o, nil
}
