package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_AccessToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret", time.Hour)

	access, err := j.GenerateAccessToken(42)
	require.NoError(t, err)
	got, err := j.ParseAccessToken(access)
	require.NoError(t, err)
	require.Equal(t, int64(42), got)
}

func TestJWT_TokensAreUnique(t *testing.T) {
	j := NewJWT("secret", time.Hour)

	a, err := j.GenerateAccessToken(42)
	require.NoError(t, err)
	b, err := j.GenerateAccessToken(42)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestJWT_WrongSecret(t *testing.T) {
	access, err := NewJWT("secret", time.Hour).GenerateAccessToken(42)
	require.NoError(t, err)

	_, err = NewJWT("other", time.Hour).ParseAccessToken(access)
	require.Error(t, err)
}

func TestJWT_TokenType_Mismatch(t *testing.T) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UserID:    42,
		TokenType: "refresh",
	})
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWT("secret", time.Hour).ParseAccessToken(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token type mismatch")
}

func TestJWT_ExpiryValidation(t *testing.T) {
	j := &JWT{secretKey: "secret", ttl: -time.Minute}

	access, err := j.GenerateAccessToken(42)
	require.NoError(t, err)
	_, err = j.ParseAccessToken(access)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWT_Garbage(t *testing.T) {
	_, err := NewJWT("secret", 0).ParseAccessToken("not-a-token")
	require.Error(t, err)
}
