package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dtroode/pastry-storefront/internal/model"
)

var _ model.KeyValueStore = (*KVRepository)(nil)

// KVRepository stores one origin's keys in the storefront_kv table, scoped by namespace.
type KVRepository struct {
	db        *sql.DB
	namespace string
}

func NewKVRepository(db *sql.DB, namespace string) *KVRepository {
	return &KVRepository{
		db:        db,
		namespace: namespace,
	}
}

func (r *KVRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	query := `SELECT value FROM storefront_kv WHERE namespace = $1 AND key = $2`

	err := r.db.QueryRowContext(ctx, query, r.namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("failed to get key: %w", err)
	}

	return value, nil
}

func (r *KVRepository) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO storefront_kv (namespace, key, value, updated_at)
			  VALUES ($1, $2, $3, now())
			  ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, r.namespace, key, value); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

func (r *KVRepository) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM storefront_kv WHERE namespace = $1 AND key = $2`

	if _, err := r.db.ExecContext(ctx, query, r.namespace, key); err != nil {
		return fmt.Errorf("failed to remove key: %w", err)
	}

	return nil
}
