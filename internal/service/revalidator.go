package service

import (
	"context"
	"time"

	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

// Revalidator reconciles in-memory state with storage for changes no signal announced,
// such as another agent logging in or out on shared storage.
type Revalidator struct {
	cart          model.CartStore
	notifications *Notifications
	publisher     model.Publisher
	logger        *logger.Logger
}

func NewRevalidator(
	cart model.CartStore,
	notifications *Notifications,
	publisher model.Publisher,
	logger *logger.Logger,
) *Revalidator {
	return &Revalidator{
		cart:          cart,
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
	}
}

// Tick re-resolves the identity, publishing auth-changed when it drifted, reloads
// the persisted cart otherwise, and refreshes order notifications.
func (r *Revalidator) Tick(ctx context.Context) {
	if r.cart.Revalidate(ctx) {
		r.publisher.Publish(model.ChannelAuthChanged)
	} else {
		r.cart.Reload(ctx)
	}

	if r.notifications == nil {
		return
	}
	if err := r.notifications.Refresh(ctx); err != nil {
		r.logger.Warn("Revalidator: failed to refresh notifications",
			"error", err.Error())
	}
}

// Run calls Tick every interval until ctx is done.
func (r *Revalidator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}
