package token

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	Configure("test-secret", time.Hour)

	tok, err := Generate("u1", "+221781234567", "Awa Diop")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "+221781234567", claims.Phone)
	assert.Equal(t, "Awa Diop", claims.Name)
}

func TestParseRejectsGarbage(t *testing.T) {
	Configure("test-secret", time.Hour)

	_, err := Parse("not-a-token")
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	// Configure refuses non-positive lifetimes, so an expired token has
	// to be signed by hand.
	Configure("test-secret", time.Hour)

	claims := &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
	require.NoError(t, err)

	_, err = Parse(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestConfigureKeepsTTLOnNonPositiveInput(t *testing.T) {
	Configure("test-secret", time.Hour)
	Configure("test-secret", -time.Minute)
	assert.Equal(t, time.Hour, tokenTTL)
	Configure("test-secret", 0)
	assert.Equal(t, time.Hour, tokenTTL)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	Configure("secret-a", time.Hour)
	tok, err := Generate("u1", "+221781234567", "Awa Diop")
	require.NoError(t, err)

	Configure("secret-b", time.Hour)
	_, err = Parse(tok)
	assert.Error(t, err)

	Configure("test-secret", time.Hour)
}
