package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/pastry-storefront/internal/broadcast"
	"github.com/dtroode/pastry-storefront/internal/mocks"
	"github.com/dtroode/pastry-storefront/internal/model"
	"github.com/dtroode/pastry-storefront/internal/storage/memory"
	"github.com/dtroode/pastry-storefront/internal/testutil"
)

func newTestSession(t *testing.T) (*Session, *mocks.StorefrontAPI, *cartFixture) {
	t.Helper()
	f := newCartFixture(t)
	api := mocks.NewStorefrontAPI(t)
	s := NewSession(api, f.store, f.resolver, f.cart, f.hub, testutil.MakeNoopLogger())
	return s, api, f
}

func TestSession_Login(t *testing.T) {
	ctx := context.Background()
	s, api, f := newTestSession(t)

	creds := model.Credentials{
		Token: "tok-1234567890abcdef",
		User:  model.UserRecord{ID: 42, Name: "Baker", Email: "baker@example.com", Role: "customer"},
	}
	api.On("Login", mock.Anything, "baker@example.com", "secret").Return(creds, nil).Once()

	user, err := s.Login(ctx, "  baker@example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, creds.User, user)

	assert.True(t, f.cart.IsAuthenticated())
	assert.Equal(t, model.Identity("42"), f.cart.Identity())
	assert.Equal(t, 1, f.signals.get(model.ChannelAuthChanged))
	assert.Equal(t, 1, f.signals.get(model.ChannelCartChanged))

	token, err := f.store.Get(ctx, model.CredentialKey)
	require.NoError(t, err)
	assert.Equal(t, creds.Token, token)

	current, ok := s.CurrentUser(ctx)
	require.True(t, ok)
	assert.Equal(t, creds.User, current)
}

// resolvingStore resolves the identity after every write, the way a concurrent
// revalidation tick could.
type resolvingStore struct {
	*memory.Store
	resolver *IdentityResolver
	seen     []model.Identity
}

func (s *resolvingStore) Set(ctx context.Context, key, value string) error {
	if err := s.Store.Set(ctx, key, value); err != nil {
		return err
	}
	id, _ := s.resolver.Resolve(ctx)
	s.seen = append(s.seen, id)
	return nil
}

func TestSession_Login_NeverExposesTokenIdentity(t *testing.T) {
	ctx := context.Background()
	log := testutil.MakeNoopLogger()
	store := &resolvingStore{Store: memory.NewStore()}
	store.resolver = NewIdentityResolver(store, log)
	hub := broadcast.NewHub(log)
	cart := NewCart(store, store.resolver, hub, log)
	api := mocks.NewStorefrontAPI(t)
	s := NewSession(api, store, store.resolver, cart, hub, log)

	creds := model.Credentials{Token: "tok-1234567890abcdef", User: model.UserRecord{ID: 42, Name: "Baker"}}
	api.On("Login", mock.Anything, "baker@example.com", "secret").Return(creds, nil).Once()

	_, err := s.Login(ctx, "baker@example.com", "secret")
	require.NoError(t, err)

	require.NotEmpty(t, store.seen)
	for _, id := range store.seen {
		assert.Equal(t, model.Identity("42"), id)
	}
}

func TestSession_Login_TokenWriteFailure(t *testing.T) {
	ctx := context.Background()
	log := testutil.MakeNoopLogger()
	store := mocks.NewKeyValueStore(t)
	resolver := NewIdentityResolver(store, log)
	hub := broadcast.NewHub(log)
	cart := NewCart(store, resolver, hub, log)
	api := mocks.NewStorefrontAPI(t)
	s := NewSession(api, store, resolver, cart, hub, log)

	creds := model.Credentials{Token: "tok-1234567890abcdef", User: model.UserRecord{ID: 42}}
	api.On("Login", mock.Anything, "baker@example.com", "secret").Return(creds, nil).Once()
	store.On("Set", mock.Anything, model.UserRecordKey, mock.Anything).Return(nil).Once()
	store.On("Set", mock.Anything, model.CredentialKey, creds.Token).Return(errors.New("disk full")).Once()
	store.On("Remove", mock.Anything, model.UserRecordKey).Return(nil).Once()

	_, err := s.Login(ctx, "baker@example.com", "secret")
	require.Error(t, err)
	assert.False(t, cart.IsAuthenticated())
}

func TestSession_Login_MissingCredentials(t *testing.T) {
	ctx := context.Background()
	s, _, f := newTestSession(t)

	_, err := s.Login(ctx, " ", "secret")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	_, err = s.Login(ctx, "baker@example.com", "")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	assert.Equal(t, 0, f.store.Keys())
	assert.Equal(t, 0, f.signals.get(model.ChannelAuthChanged))
}

func TestSession_Login_Rejected(t *testing.T) {
	ctx := context.Background()
	s, api, f := newTestSession(t)

	api.On("Login", mock.Anything, "baker@example.com", "wrong").
		Return(model.Credentials{}, model.ErrInvalidCredentials).Once()

	_, err := s.Login(ctx, "baker@example.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	assert.False(t, f.cart.IsAuthenticated())
	assert.Equal(t, 0, f.store.Keys())
	assert.Equal(t, 0, f.signals.get(model.ChannelAuthChanged))
}

func TestSession_LogoutKeepsPersistedCart(t *testing.T) {
	ctx := context.Background()
	s, api, f := newTestSession(t)

	setUser(t, f.store, 42)
	f.cart.Revalidate(ctx)
	require.NoError(t, f.cart.AddItem(ctx, croissant(20), 3))

	api.On("Logout", mock.Anything, "tok-abcdefghijklmnop").Return(errors.New("backend down")).Once()

	require.NoError(t, s.Logout(ctx))
	assert.False(t, f.cart.IsAuthenticated())
	assert.Empty(t, f.cart.Items())
	assert.Equal(t, 1, f.signals.get(model.ChannelAuthChanged))

	_, ok := s.CurrentUser(ctx)
	assert.False(t, ok)
	assert.Len(t, f.persisted(t, "42"), 1)

	setUser(t, f.store, 42)
	f.cart.Revalidate(ctx)
	assert.Equal(t, 3, f.cart.TotalItems())
}

func TestSession_LogoutWhileAnonymous(t *testing.T) {
	ctx := context.Background()
	s, _, f := newTestSession(t)

	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, 1, f.signals.get(model.ChannelAuthChanged))
	assert.Equal(t, 0, f.signals.get(model.ChannelCartChanged))
}

func TestSession_Checkout(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous", func(t *testing.T) {
		s, _, _ := newTestSession(t)
		_, err := s.Checkout(ctx, "")
		assert.ErrorIs(t, err, model.ErrUnauthenticated)
	})

	t.Run("empty cart", func(t *testing.T) {
		s, _, f := newTestSession(t)
		setUser(t, f.store, 42)
		f.cart.Revalidate(ctx)

		_, err := s.Checkout(ctx, "")
		assert.ErrorIs(t, err, model.ErrEmptyCart)
	})

	t.Run("places order at snapshot prices and clears cart", func(t *testing.T) {
		s, api, f := newTestSession(t)
		setUser(t, f.store, 42)
		f.cart.Revalidate(ctx)
		require.NoError(t, f.cart.AddItem(ctx, croissant(20), 2))
		require.NoError(t, f.cart.AddItem(ctx, eclair(5), 1))

		placed := model.Order{ID: 7, Reference: uuid.New(), Status: model.OrderStatusPending}
		api.On("PlaceOrder", mock.Anything, "tok-abcdefghijklmnop", mock.MatchedBy(func(d model.OrderDraft) bool {
			return d.Reference != uuid.Nil &&
				d.Notes == "ring twice" &&
				len(d.Items) == 2 &&
				d.Items[0].ProductID == 1 &&
				d.Items[0].Quantity == 2 &&
				d.Items[0].UnitPrice.Equal(decimal.NewFromInt(1000)) &&
				d.Items[1].ProductID == 2
		})).Return(placed, nil).Once()

		order, err := s.Checkout(ctx, " ring twice ")
		require.NoError(t, err)
		assert.Equal(t, placed.ID, order.ID)
		assert.Empty(t, f.cart.Items())
		assert.Empty(t, f.persisted(t, "42"))
	})

	t.Run("rejected order keeps cart", func(t *testing.T) {
		s, api, f := newTestSession(t)
		setUser(t, f.store, 42)
		f.cart.Revalidate(ctx)
		require.NoError(t, f.cart.AddItem(ctx, croissant(20), 2))

		api.On("PlaceOrder", mock.Anything, mock.Anything, mock.Anything).
			Return(model.Order{}, &model.StockExceededError{ProductID: 1, Ceiling: 1, Requested: 2}).Once()

		_, err := s.Checkout(ctx, "")
		assert.ErrorIs(t, err, model.ErrStockExceeded)
		assert.Equal(t, 2, f.cart.TotalItems())
	})
}
