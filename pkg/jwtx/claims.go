package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTL constants for the DPoP-bound token flows.
// These provide sensible security defaults but can be overridden per-service.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 14 * 24 * time.Hour
)

// Confirmation is the RFC 7800 "cnf" claim. For DPoP-bound tokens the only
// member is "jkt", the RFC 7638 thumbprint of the client's proof key.
type Confirmation struct {
	JKT string `json:"jkt"`
}

// Claims are the access-token claims issued by the authorization server.
// The subject is the account DID; cnf.jkt binds the token to the DPoP key
// that must accompany every use of it.
type Claims struct {
	jwt.RegisteredClaims

	// ClientID identifies the app the token was issued to.
	ClientID string `json:"client_id,omitempty"`

	// Scope is the space-delimited granted scope set.
	Scope string `json:"scope,omitempty"`

	// Confirmation carries the DPoP key thumbprint binding.
	Confirmation *Confirmation `json:"cnf,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for a sender-constrained
// access token.
func NewAccessClaims(issuer, subject, clientID, scope, jkt string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		ClientID:     clientID,
		Scope:        scope,
		Confirmation: &Confirmation{JKT: jkt},
	}
}

// NewJTI returns a random identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired. A token whose exp is in
// the past, or exactly now, is rejected.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt == nil || !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateConfirmation ensures the token carries a DPoP key binding.
func (c *Claims) ValidateConfirmation() error {
	if c.Confirmation == nil || c.Confirmation.JKT == "" {
		return ErrNoConfirmation
	}
	return nil
}
