package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

// Session signs the storefront origin in and out and places orders from the cart.
type Session struct {
	api       model.StorefrontAPI
	store     model.KeyValueStore
	resolver  *IdentityResolver
	cart      model.CartStore
	publisher model.Publisher
	logger    *logger.Logger
}

func NewSession(
	api model.StorefrontAPI,
	store model.KeyValueStore,
	resolver *IdentityResolver,
	cart model.CartStore,
	publisher model.Publisher,
	logger *logger.Logger,
) *Session {
	return &Session{
		api:       api,
		store:     store,
		resolver:  resolver,
		cart:      cart,
		publisher: publisher,
		logger:    logger,
	}
}

// Login authenticates against the storefront API and stores the token and user
// record. The cart is then rebound to the new identity and auth-changed is published.
func (s *Session) Login(ctx context.Context, email, password string) (model.UserRecord, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.UserRecord{}, model.ErrInvalidCredentials
	}

	s.logger.Debug("Session service: logging in", "email", email)

	creds, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.logger.Info("Session service: login rejected",
			"email", email,
			"error", err.Error())
		return model.UserRecord{}, fmt.Errorf("failed to log in: %w", err)
	}

	user, err := json.Marshal(creds.User)
	if err != nil {
		return model.UserRecord{}, fmt.Errorf("failed to encode user record: %w", err)
	}
	// The user record decides the identity, so it goes in before the token and a
	// concurrent resolve never sees a token-only identity.
	if err := s.store.Set(ctx, model.UserRecordKey, string(user)); err != nil {
		s.logger.Error("Session service: failed to store user record",
			"email", email,
			"error", err.Error())
		return model.UserRecord{}, fmt.Errorf("failed to store user record: %w", err)
	}
	if err := s.store.Set(ctx, model.CredentialKey, creds.Token); err != nil {
		s.logger.Error("Session service: failed to store token",
			"email", email,
			"error", err.Error())
		_ = s.store.Remove(ctx, model.UserRecordKey)
		return model.UserRecord{}, fmt.Errorf("failed to store token: %w", err)
	}

	s.cart.Revalidate(ctx)
	s.publisher.Publish(model.ChannelAuthChanged)

	s.logger.Info("Session service: logged in",
		"user_id", creds.User.ID,
		"identity", string(s.cart.Identity()))

	return creds.User, nil
}

// Logout drops the stored credentials. The persisted cart stays in storage and is
// restored on the next login of the same identity.
func (s *Session) Logout(ctx context.Context) error {
	if token, ok := s.resolver.Token(ctx); ok {
		if err := s.api.Logout(ctx, token); err != nil {
			s.logger.Warn("Session service: remote logout failed",
				"error", err.Error())
		}
	}

	var errs []error
	if err := s.store.Remove(ctx, model.CredentialKey); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove token: %w", err))
	}
	if err := s.store.Remove(ctx, model.UserRecordKey); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove user record: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("Session service: failed to clear credentials",
			"error", err.Error())
		return err
	}

	s.cart.Revalidate(ctx)
	s.publisher.Publish(model.ChannelAuthChanged)

	s.logger.Info("Session service: logged out")
	return nil
}

// CurrentUser returns the signed-in user record, if any.
func (s *Session) CurrentUser(ctx context.Context) (model.UserRecord, bool) {
	return s.resolver.CurrentUser(ctx)
}

// Checkout places an order priced at the cart snapshots and empties the cart once
// the storefront API has accepted it.
func (s *Session) Checkout(ctx context.Context, notes string) (model.Order, error) {
	if !s.cart.IsAuthenticated() {
		return model.Order{}, model.ErrUnauthenticated
	}
	token, ok := s.resolver.Token(ctx)
	if !ok {
		return model.Order{}, model.ErrUnauthenticated
	}

	items := s.cart.Items()
	if len(items) == 0 {
		return model.Order{}, model.ErrEmptyCart
	}

	draft := model.OrderDraft{
		Reference: uuid.New(),
		Items:     make([]model.OrderLine, 0, len(items)),
		Notes:     strings.TrimSpace(notes),
	}
	for _, it := range items {
		draft.Items = append(draft.Items, model.OrderLine{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.Product.UnitPrice,
		})
	}

	order, err := s.api.PlaceOrder(ctx, token, draft)
	if err != nil {
		s.logger.Error("Session service: failed to place order",
			"reference", draft.Reference.String(),
			"error", err.Error())
		return model.Order{}, fmt.Errorf("failed to place order: %w", err)
	}

	if err := s.cart.ClearCart(ctx); err != nil {
		return model.Order{}, fmt.Errorf("failed to clear cart: %w", err)
	}

	s.logger.Info("Session service: order placed",
		"order_id", order.ID,
		"reference", order.Reference.String(),
		"lines", len(draft.Items))

	return order, nil
}
