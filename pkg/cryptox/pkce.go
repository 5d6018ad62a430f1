package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// PKCE verifier length bounds from RFC 7636 section 4.1.
const (
	MinVerifierLength = 43
	MaxVerifierLength = 128
)

// S256Challenge derives the PKCE code challenge for a verifier using the
// S256 method: base64url(SHA-256(verifier)) without padding.
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyS256Challenge reports whether the verifier matches a previously
// committed S256 challenge. The comparison is constant time so the stored
// challenge value cannot be probed byte by byte.
func VerifyS256Challenge(verifier, challenge string) bool {
	derived := S256Challenge(verifier)
	return subtle.ConstantTimeCompare([]byte(derived), []byte(challenge)) == 1
}
