package domain

import "time"

// TokenPair represents what the token endpoint returns: the short-lived
// DPoP-bound access token (JWT) and the opaque rotating refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // always "DPoP"
	ExpiresIn    time.Duration `json:"expires_in"`           // seconds until expiry
	Scope        string        `json:"scope,omitempty"`      // space-delimited
	Sub          string        `json:"sub,omitempty"`        // account DID
}

// RefreshToken models the stored refresh token record. The raw token never
// touches the database; TokenHash is its deterministic SHA-256 fingerprint.
// DPoPJKT pins the grant to the proof key that redeemed the original code.
type RefreshToken struct {
	ID         string
	SessionID  string
	ClientID   string
	SubjectDID string
	TokenHash  string
	DPoPJKT    string
	Scope      string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// Revoked reports whether the token has been explicitly killed.
func (t RefreshToken) Revoked() bool { return t.RevokedAt != nil }

// Usable reports whether the token can still be redeemed at the given time.
func (t RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked() && now.Before(t.ExpiresAt)
}
