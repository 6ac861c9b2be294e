package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/pastry-storefront/internal/broadcast"
	"github.com/dtroode/pastry-storefront/internal/model"
	"github.com/dtroode/pastry-storefront/internal/storage/memory"
	"github.com/dtroode/pastry-storefront/internal/testutil"
)

// signalCounter counts signals per channel.
type signalCounter struct {
	mu     sync.Mutex
	counts map[model.Channel]int
}

func newSignalCounter(hub *broadcast.Hub) *signalCounter {
	c := &signalCounter{counts: map[model.Channel]int{}}
	for _, ch := range model.Channels {
		hub.Subscribe(ch, func(ch model.Channel) {
			c.mu.Lock()
			c.counts[ch]++
			c.mu.Unlock()
		})
	}
	return c
}

func (c *signalCounter) get(ch model.Channel) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[ch]
}

func setUser(t *testing.T, store model.KeyValueStore, id int64) {
	t.Helper()
	b, err := json.Marshal(model.UserRecord{ID: id, Name: "Baker", Email: "baker@example.com"})
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), model.UserRecordKey, string(b)))
	require.NoError(t, store.Set(context.Background(), model.CredentialKey, "tok-abcdefghijklmnop"))
}

func clearUser(t *testing.T, store model.KeyValueStore) {
	t.Helper()
	require.NoError(t, store.Remove(context.Background(), model.UserRecordKey))
	require.NoError(t, store.Remove(context.Background(), model.CredentialKey))
}

func croissant(stock int) model.ProductSnapshot {
	return model.ProductSnapshot{
		ID:           1,
		Name:         "Croissant",
		UnitPrice:    decimal.NewFromInt(1000),
		StockCeiling: stock,
	}
}

func eclair(stock int) model.ProductSnapshot {
	return model.ProductSnapshot{
		ID:           2,
		Name:         "Eclair",
		UnitPrice:    decimal.RequireFromString("350.50"),
		StockCeiling: stock,
	}
}

type cartFixture struct {
	store    *memory.Store
	hub      *broadcast.Hub
	resolver *IdentityResolver
	cart     *Cart
	signals  *signalCounter
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	log := testutil.MakeNoopLogger()
	store := memory.NewStore()
	hub := broadcast.NewHub(log)
	resolver := NewIdentityResolver(store, log)
	return &cartFixture{
		store:    store,
		hub:      hub,
		resolver: resolver,
		cart:     NewCart(store, resolver, hub, log),
		signals:  newSignalCounter(hub),
	}
}

func (f *cartFixture) persisted(t *testing.T, id model.Identity) []model.CartItem {
	t.Helper()
	raw, err := f.store.Get(context.Background(), model.CartKey(id))
	require.NoError(t, err)
	var items []model.CartItem
	require.NoError(t, json.Unmarshal([]byte(raw), &items))
	return items
}
