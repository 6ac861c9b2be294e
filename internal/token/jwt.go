package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/pastry-storefront/internal/model"
)

// Claims represents JWT claims with token type and user ID.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"uid"`
	TokenType string `json:"typ"`
}

// JWT implements TokenManager backed by symmetric HMAC.
type JWT struct {
	secretKey string
	ttl       time.Duration
}

// NewJWT creates a new JWT token manager with the provided secret key.
// Tokens expire after ttl; a non-positive ttl falls back to defaultTTL.
func NewJWT(secretKey string, ttl time.Duration) model.TokenManager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &JWT{secretKey: secretKey, ttl: ttl}
}

const (
	defaultTTL = 12 * time.Hour
	typeAccess = "access"
)

// GenerateAccessToken creates a bearer token for userID. Every token carries a
// fresh JTI, so two tokens of the same user never collide.
func (j *JWT) GenerateAccessToken(userID int64) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
		UserID:    userID,
		TokenType: typeAccess,
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ParseAccessToken validates and extracts the user ID from an access token.
func (j *JWT) ParseAccessToken(tokenString string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to parse access token: %w", err)
	}
	if !token.Valid {
		return 0, fmt.Errorf("access token is invalid")
	}
	if claims.TokenType != typeAccess {
		return 0, fmt.Errorf("token type mismatch: %s", claims.TokenType)
	}
	if claims.UserID <= 0 {
		return 0, fmt.Errorf("access token has no user")
	}
	return claims.UserID, nil
}
