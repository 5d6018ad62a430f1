package jwtx

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewAccessClaims(t *testing.T) {
	now := time.Now().UTC()
	c := NewAccessClaims("https://auth.example.com", "did:plc:abc", "app-web", "atproto", "thumb", 15*time.Minute, now)

	require.Equal(t, "https://auth.example.com", c.Issuer)
	require.Equal(t, "did:plc:abc", c.Subject)
	require.Equal(t, "app-web", c.ClientID)
	require.Equal(t, "atproto", c.Scope)
	require.NotNil(t, c.Confirmation)
	require.Equal(t, "thumb", c.Confirmation.JKT)
	require.Equal(t, now.Add(15*time.Minute).Unix(), c.ExpiresAt.Unix())
	require.NotEmpty(t, c.ID)
}

func TestNewJTI_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		jti := NewJTI()
		require.NotEmpty(t, jti)
		require.False(t, seen[jti], "jti must be unique")
		seen[jti] = true
	}
}

func TestValidateIssuer(t *testing.T) {
	c := Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "https://auth.example.com"}}

	require.NoError(t, c.ValidateIssuer(""))
	require.NoError(t, c.ValidateIssuer("https://auth.example.com"))
	require.ErrorIs(t, c.ValidateIssuer("https://other.example.com"), ErrIssuer)
}

func TestValidateExpiry(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		c := Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(time.Minute)),
		}}
		require.NoError(t, c.ValidateExpiry())
	})

	t.Run("expired token", func(t *testing.T) {
		c := Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(-time.Second)),
		}}
		require.ErrorIs(t, c.ValidateExpiry(), ErrExpired)
	})

	t.Run("missing exp", func(t *testing.T) {
		c := Claims{}
		require.ErrorIs(t, c.ValidateExpiry(), ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(time.Hour)),
			NotBefore: jwt.NewNumericDate(time.Now().UTC().Add(time.Minute)),
		}}
		require.ErrorIs(t, c.ValidateExpiry(), ErrNotYetValid)
	})
}

func TestValidateConfirmation(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		c := Claims{Confirmation: &Confirmation{JKT: "thumb"}}
		require.NoError(t, c.ValidateConfirmation())
	})

	t.Run("nil cnf", func(t *testing.T) {
		c := Claims{}
		require.ErrorIs(t, c.ValidateConfirmation(), ErrNoConfirmation)
	})

	t.Run("empty jkt", func(t *testing.T) {
		c := Claims{Confirmation: &Confirmation{}}
		require.ErrorIs(t, c.ValidateConfirmation(), ErrNoConfirmation)
	})
}
