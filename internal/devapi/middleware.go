package devapi

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

var (
	errMissingToken = errors.New("missing authorization token")
	errInvalidToken = errors.New("invalid authorization token")
)

// revocations remembers logged out tokens until the process exits.
type revocations struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

func (r *revocations) revoke(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = struct{}{}
}

func (r *revocations) revoked(token string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tokens[token]
	return ok
}

// Authenticate validates bearer tokens and injects the user ID into the request context.
type Authenticate struct {
	tokens  model.TokenManager
	revoked *revocations
	logger  *logger.Logger
}

func NewAuthenticate(tokens model.TokenManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{
		tokens:  tokens,
		revoked: &revocations{tokens: map[string]struct{}{}},
		logger:  logger,
	}
}

// Handler rejects requests without a valid, unrevoked bearer token.
func (m *Authenticate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.authenticateUser(bearerToken(r))
		if err != nil {
			m.logger.Debug("Dev API: rejected request",
				"path", r.URL.Path,
				"error", err.Error())
			writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (m *Authenticate) authenticateUser(tokenString string) (int64, error) {
	if tokenString == "" {
		return 0, errMissingToken
	}
	if m.revoked.revoked(tokenString) {
		return 0, errInvalidToken
	}
	userID, err := m.tokens.ParseAccessToken(tokenString)
	if err != nil || userID <= 0 {
		return 0, errInvalidToken
	}
	return userID, nil
}

// Revoke invalidates tokenString.
func (m *Authenticate) Revoke(tokenString string) {
	if tokenString != "" {
		m.revoked.revoke(tokenString)
	}
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, prefix))
}
