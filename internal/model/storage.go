package model

import (
	"context"
)

// KeyValueStore is the namespaced key/value storage of one storefront origin.
// Get returns ErrNotFound when the key is absent.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
