package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

// Notifications derives order status notifications from successive order listings.
type Notifications struct {
	api      model.StorefrontAPI
	resolver *IdentityResolver
	logger   *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	identity model.Identity
	baseline bool
	seen     map[int64]model.OrderStatus
	unread   []model.OrderNotification
}

func NewNotifications(api model.StorefrontAPI, resolver *IdentityResolver, logger *logger.Logger) *Notifications {
	return &Notifications{
		api:      api,
		resolver: resolver,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		seen:     map[int64]model.OrderStatus{},
	}
}

// Refresh lists the current identity's orders. The first listing after an identity
// change only records statuses; later listings add one notification per status change.
func (n *Notifications) Refresh(ctx context.Context) error {
	id, _ := n.resolver.Resolve(ctx)
	token, hasToken := n.resolver.Token(ctx)

	n.mu.Lock()
	if id != n.identity {
		n.resetLocked(id)
	}
	n.mu.Unlock()

	if id.Anonymous() || !hasToken {
		return nil
	}

	orders, err := n.api.ListOrders(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if id != n.identity {
		// identity moved on while listing
		return nil
	}

	added := 0
	for _, o := range orders {
		prev, known := n.seen[o.ID]
		n.seen[o.ID] = o.Status
		if !n.baseline || !known || prev == o.Status {
			continue
		}
		n.unread = append(n.unread, model.OrderNotification{
			OrderID:   o.ID,
			Reference: o.Reference,
			From:      prev,
			To:        o.Status,
			At:        n.now(),
		})
		added++
	}
	n.baseline = true

	if added > 0 {
		n.logger.Info("Notifications: order status changed",
			"identity", string(id),
			"count", added)
	}
	return nil
}

// List returns unread notifications, oldest first.
func (n *Notifications) List() []model.OrderNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.OrderNotification, len(n.unread))
	copy(out, n.unread)
	return out
}

// MarkRead clears unread notifications.
func (n *Notifications) MarkRead() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unread = nil
}

func (n *Notifications) resetLocked(id model.Identity) {
	n.identity = id
	n.baseline = false
	n.seen = map[int64]model.OrderStatus{}
	n.unread = nil
}
