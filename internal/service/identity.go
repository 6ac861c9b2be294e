package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

// tokenPrefixLen is how many leading token characters form a token-derived identity.
const tokenPrefixLen = 10

// IdentityResolver derives the current identity from the stored credentials.
type IdentityResolver struct {
	store  model.KeyValueStore
	logger *logger.Logger
}

func NewIdentityResolver(store model.KeyValueStore, logger *logger.Logger) *IdentityResolver {
	return &IdentityResolver{store: store, logger: logger}
}

// Resolve returns the identity for the current storage contents and whether one was found.
//
// A stored user record with a positive id wins. Otherwise a bearer token yields
// "token_" followed by its first characters. Unreadable or malformed entries are
// treated as absent, so Resolve never fails.
func (r *IdentityResolver) Resolve(ctx context.Context) (model.Identity, bool) {
	if user, ok := r.readUser(ctx); ok {
		return model.Identity(strconv.FormatInt(user.ID, 10)), true
	}

	token, ok := r.read(ctx, model.CredentialKey)
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	if len(token) > tokenPrefixLen {
		token = token[:tokenPrefixLen]
	}
	return model.Identity("token_" + token), true
}

// CurrentUser returns the stored user record, if it is present and well formed.
func (r *IdentityResolver) CurrentUser(ctx context.Context) (model.UserRecord, bool) {
	return r.readUser(ctx)
}

// Token returns the stored bearer token.
func (r *IdentityResolver) Token(ctx context.Context) (string, bool) {
	token, ok := r.read(ctx, model.CredentialKey)
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func (r *IdentityResolver) readUser(ctx context.Context) (model.UserRecord, bool) {
	raw, ok := r.read(ctx, model.UserRecordKey)
	if !ok {
		return model.UserRecord{}, false
	}

	var user model.UserRecord
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		r.logger.Debug("Identity resolver: ignoring malformed user record",
			"error", err.Error())
		return model.UserRecord{}, false
	}
	if user.ID <= 0 {
		r.logger.Debug("Identity resolver: ignoring user record without id")
		return model.UserRecord{}, false
	}
	return user, true
}

func (r *IdentityResolver) read(ctx context.Context, key string) (string, bool) {
	v, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			r.logger.Warn("Identity resolver: failed to read storage",
				"key", key,
				"error", err.Error())
		}
		return "", false
	}
	return v, true
}
