package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dtroode/pastry-storefront/internal/broadcast"
	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

var _ model.CartStore = (*Cart)(nil)

// Cart is the cart of the currently resolved identity.
//
// The in-memory items are always the persisted cart of that identity. While no
// identity is resolved the cart is empty and nothing is read from or written to
// storage. Mutations are persisted before cart-changed is published, and signals
// are published after the lock is released so subscribers may read the cart.
type Cart struct {
	mu       sync.Mutex
	store    model.KeyValueStore
	resolver *IdentityResolver
	hub      *broadcast.Hub
	logger   *logger.Logger

	identity model.Identity
	items    []model.CartItem
}

// NewCart creates an anonymous cart. Call Revalidate to bind it to the stored identity.
func NewCart(
	store model.KeyValueStore,
	resolver *IdentityResolver,
	hub *broadcast.Hub,
	logger *logger.Logger,
) *Cart {
	return &Cart{
		store:    store,
		resolver: resolver,
		hub:      hub,
		logger:   logger,
	}
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []model.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneItems(c.items)
}

func (c *Cart) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.identity.Anonymous()
}

func (c *Cart) Identity() model.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// TotalItems is the sum of quantities, not the number of lines.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, it := range c.items {
		total += it.Quantity
	}
	return total
}

// TotalPrice sums snapshot unit prices, so later catalog price changes do not move it.
func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Subscribe registers fn for signals on ch of the hub this cart publishes to.
func (c *Cart) Subscribe(ch model.Channel, fn broadcast.Handler) func() {
	return c.hub.Subscribe(ch, fn)
}

// AddItem adds quantity units of product. If the product is already in the cart the
// quantities are summed and the original snapshot is kept. A total above the
// product's stock ceiling rejects the whole mutation with *model.StockExceededError.
func (c *Cart) AddItem(ctx context.Context, product model.ProductSnapshot, quantity int) error {
	if quantity <= 0 {
		return model.ErrInvalidQuantity
	}

	c.mu.Lock()
	if c.identity.Anonymous() {
		c.mu.Unlock()
		c.logger.Debug("Cart: ignoring add while anonymous", "product_id", product.ID)
		return nil
	}

	idx := c.indexOf(product.ID)
	if idx >= 0 {
		next := c.items[idx].Quantity + quantity
		if next > product.StockCeiling {
			c.mu.Unlock()
			return c.rejected(product.ID, product.StockCeiling, next)
		}
		c.items[idx].Quantity = next
	} else {
		if quantity > product.StockCeiling {
			c.mu.Unlock()
			return c.rejected(product.ID, product.StockCeiling, quantity)
		}
		c.items = append(c.items, model.CartItem{Product: product, Quantity: quantity})
	}

	c.persistLocked(ctx)
	c.mu.Unlock()

	c.logger.Debug("Cart: item added",
		"product_id", product.ID,
		"quantity", quantity)
	c.hub.Publish(model.ChannelCartChanged)
	return nil
}

// RemoveItem drops the line of productID. A missing line is not an error.
func (c *Cart) RemoveItem(ctx context.Context, productID int64) error {
	c.mu.Lock()
	if c.identity.Anonymous() {
		c.mu.Unlock()
		return nil
	}

	if idx := c.indexOf(productID); idx >= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	}

	c.persistLocked(ctx)
	c.mu.Unlock()

	c.hub.Publish(model.ChannelCartChanged)
	return nil
}

// UpdateQuantity sets the quantity of productID's line. Zero or less removes it.
// A quantity above the snapshot's stock ceiling is rejected and the line is left unchanged.
func (c *Cart) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(ctx, productID)
	}

	c.mu.Lock()
	if c.identity.Anonymous() {
		c.mu.Unlock()
		return nil
	}

	idx := c.indexOf(productID)
	if idx < 0 {
		c.mu.Unlock()
		return nil
	}
	if ceiling := c.items[idx].Product.StockCeiling; quantity > ceiling {
		c.mu.Unlock()
		return c.rejected(productID, ceiling, quantity)
	}
	c.items[idx].Quantity = quantity

	c.persistLocked(ctx)
	c.mu.Unlock()

	c.hub.Publish(model.ChannelCartChanged)
	return nil
}

// ClearCart empties the cart and persists the empty state.
func (c *Cart) ClearCart(ctx context.Context) error {
	c.mu.Lock()
	c.items = nil
	if !c.identity.Anonymous() {
		c.persistLocked(ctx)
	}
	c.mu.Unlock()

	c.hub.Publish(model.ChannelCartChanged)
	return nil
}

// Revalidate re-resolves the identity. When it differs from the bound one, the
// in-memory cart is replaced by the new identity's persisted cart (or emptied
// when anonymous) and cart-changed is published. It reports whether the identity changed.
func (c *Cart) Revalidate(ctx context.Context) bool {
	id, _ := c.resolver.Resolve(ctx)

	c.mu.Lock()
	if id == c.identity {
		c.mu.Unlock()
		return false
	}

	prev := c.identity
	c.identity = id
	if id.Anonymous() {
		c.items = nil
	} else {
		c.items = c.loadLocked(ctx, id)
	}
	c.mu.Unlock()

	c.logger.Info("Cart: identity changed",
		"from", string(prev),
		"to", string(id))
	c.hub.Publish(model.ChannelCartChanged)
	return true
}

// Reload re-reads the bound identity's persisted cart, picking up writes made by
// other agents sharing the storage. cart-changed is published when the lines differ.
func (c *Cart) Reload(ctx context.Context) bool {
	c.mu.Lock()
	if c.identity.Anonymous() {
		c.mu.Unlock()
		return false
	}
	items := c.loadLocked(ctx, c.identity)
	changed := !itemsEqual(c.items, items)
	c.items = items
	c.mu.Unlock()

	if changed {
		c.hub.Publish(model.ChannelCartChanged)
	}
	return changed
}

func (c *Cart) indexOf(productID int64) int {
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) rejected(productID int64, ceiling, requested int) error {
	c.logger.Info("Cart: stock exceeded",
		"product_id", productID,
		"requested", requested,
		"ceiling", ceiling)
	return &model.StockExceededError{
		ProductID: productID,
		Ceiling:   ceiling,
		Requested: requested,
	}
}

// loadLocked reads id's persisted cart. Missing, unreadable or malformed data
// yields an empty cart.
func (c *Cart) loadLocked(ctx context.Context, id model.Identity) []model.CartItem {
	key := model.CartKey(id)

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			c.logger.Warn("Cart: failed to read persisted cart",
				"key", key,
				"error", err.Error())
		}
		return nil
	}

	var items []model.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		c.logger.Warn("Cart: discarding malformed persisted cart",
			"key", key,
			"error", err.Error())
		return nil
	}
	items, dropped := normalizeItems(items)
	if dropped > 0 {
		c.logger.Warn("Cart: dropped persisted lines above stock ceiling",
			"key", key,
			"dropped", dropped)
	}
	return items
}

// persistLocked writes the cart of the bound identity. A failed write is logged
// and the in-memory cart stays authoritative.
func (c *Cart) persistLocked(ctx context.Context) {
	key := model.CartKey(c.identity)

	items := c.items
	if items == nil {
		items = []model.CartItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		c.logger.Error("Cart: failed to encode cart",
			"key", key,
			"error", err.Error())
		return
	}

	if err := c.store.Set(ctx, key, string(b)); err != nil {
		c.logger.Warn("Cart: failed to persist cart",
			"key", key,
			"error", err.Error())
	}
}

// normalizeItems drops non-positive lines and merges duplicate product ids,
// keeping first-seen order and the first snapshot. A line, or a merge, that would
// exceed the kept snapshot's stock ceiling is rejected the way AddItem rejects it
// and counted in dropped.
func normalizeItems(src []model.CartItem) (items []model.CartItem, dropped int) {
	if len(src) == 0 {
		return nil, 0
	}

	out := make([]model.CartItem, 0, len(src))
	pos := make(map[int64]int, len(src))
	for _, it := range src {
		if it.Quantity <= 0 {
			continue
		}
		if i, ok := pos[it.Product.ID]; ok {
			if out[i].Quantity+it.Quantity > out[i].Product.StockCeiling {
				dropped++
				continue
			}
			out[i].Quantity += it.Quantity
			continue
		}
		if it.Quantity > it.Product.StockCeiling {
			dropped++
			continue
		}
		pos[it.Product.ID] = len(out)
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, dropped
	}
	return out, dropped
}

func itemsEqual(a, b []model.CartItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Product.ID != b[i].Product.ID ||
			a[i].Quantity != b[i].Quantity ||
			!a[i].Product.UnitPrice.Equal(b[i].Product.UnitPrice) {
			return false
		}
	}
	return true
}

func cloneItems(items []model.CartItem) []model.CartItem {
	out := make([]model.CartItem, len(items))
	copy(out, items)
	return out
}
