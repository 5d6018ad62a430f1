package authsdk

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// ProofType is the JOSE typ header carried by every DPoP proof.
const ProofType = "dpop+jwt"

// ProofSigner mints DPoP proofs for a single ES256 keypair. The public key
// rides along in every proof's header; the private key never leaves the
// client.
type ProofSigner struct {
	key       *ecdsa.PrivateKey
	publicJWK map[string]any
	jkt       string
}

// NewProofSigner generates a fresh P-256 keypair and wraps it in a signer.
func NewProofSigner() (*ProofSigner, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("authsdk: generate proof key: %w", err)
	}
	return NewProofSignerFromKey(key)
}

// NewProofSignerFromKey wraps an existing P-256 private key. Useful when the
// client persists its proof key between runs, since the jkt binding of any
// previously issued token only holds for the original key.
func NewProofSignerFromKey(key *ecdsa.PrivateKey) (*ProofSigner, error) {
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("authsdk: proof key must be P-256")
	}

	pub, err := jwk.FromRaw(key.Public())
	if err != nil {
		return nil, fmt.Errorf("authsdk: wrap public key: %w", err)
	}
	thumb, err := pub.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("authsdk: thumbprint: %w", err)
	}

	// Coordinates padded to 32 bytes so the embedded JWK is stable.
	xBytes := key.PublicKey.X.Bytes()
	yBytes := key.PublicKey.Y.Bytes()
	x := make([]byte, 32)
	y := make([]byte, 32)
	copy(x[32-len(xBytes):], xBytes)
	copy(y[32-len(yBytes):], yBytes)

	return &ProofSigner{
		key: key,
		publicJWK: map[string]any{
			"kty": "EC",
			"crv": "P-256",
			"x":   base64.RawURLEncoding.EncodeToString(x),
			"y":   base64.RawURLEncoding.EncodeToString(y),
		},
		jkt: base64.RawURLEncoding.EncodeToString(thumb),
	}, nil
}

// Thumbprint returns the RFC 7638 thumbprint of the proof key, base64url
// encoded. Issued access tokens carry this value in cnf.jkt.
func (p *ProofSigner) Thumbprint() string { return p.jkt }

// Proof builds a signed DPoP proof for an HTTP method and URL. The nonce is
// embedded when non-empty; pass the most recent DPoP-Nonce header value.
func (p *ProofSigner) Proof(method, url, nonce string) (string, error) {
	claims := jwt.MapClaims{
		"jti": uuid.NewString(),
		"htm": method,
		"htu": url,
		"iat": time.Now().UTC().Unix(),
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}

	t := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	t.Header["typ"] = ProofType
	t.Header["jwk"] = p.publicJWK

	signed, err := t.SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("authsdk: sign proof: %w", err)
	}
	return signed, nil
}
