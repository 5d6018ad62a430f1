// Package dpopx verifies DPoP proofs (RFC 9449) and manages the server
// nonce and replay state that proof checking depends on.
package dpopx

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// ProofType is the required JOSE typ header for DPoP proofs.
const ProofType = "dpop+jwt"

// DefaultMaxDrift is how far a proof's iat may sit from server time.
const DefaultMaxDrift = 300 * time.Second

// RejectReason classifies why a proof failed verification. Reasons are
// ordered: a proof failing several checks reports the first one hit.
type RejectReason string

const (
	ReasonMalformedProof RejectReason = "malformed_proof"
	ReasonInvalidTyp     RejectReason = "invalid_typ"
	ReasonUnsupportedAlg RejectReason = "unsupported_alg"
	ReasonMissingJWK     RejectReason = "missing_jwk"
	ReasonMethodMismatch RejectReason = "htm_mismatch"
	ReasonURLMismatch    RejectReason = "htu_mismatch"
	ReasonStaleProof     RejectReason = "iat_out_of_window"
	ReasonReplayedJTI    RejectReason = "jti_replay"
	ReasonBadSignature   RejectReason = "invalid_signature"
)

// ProofError carries the classified rejection reason for a failed proof.
type ProofError struct {
	Reason RejectReason
	detail string
}

func (e *ProofError) Error() string {
	if e.detail == "" {
		return "dpopx: " + string(e.Reason)
	}
	return "dpopx: " + string(e.Reason) + ": " + e.detail
}

func reject(reason RejectReason, detail string) error {
	return &ProofError{Reason: reason, detail: detail}
}

// Result is what a successfully verified proof yields. JKT is the RFC 7638
// thumbprint of the proof key and is only produced after the signature
// checks out.
type Result struct {
	JKT   string
	JTI   string
	Nonce string
}

// Verifier checks DPoP proofs against an expected method and URL.
type Verifier struct {
	replay   *ReplayCache
	maxDrift time.Duration
	now      func() time.Time
}

// NewVerifier builds a Verifier. A nil replay cache disables replay
// detection, which is only acceptable in tests.
func NewVerifier(replay *ReplayCache, maxDrift time.Duration) *Verifier {
	if maxDrift <= 0 {
		maxDrift = DefaultMaxDrift
	}
	return &Verifier{
		replay:   replay,
		maxDrift: maxDrift,
		now:      time.Now,
	}
}

type proofHeader struct {
	Typ string          `json:"typ"`
	Alg string          `json:"alg"`
	JWK json.RawMessage `json:"jwk"`
}

type proofPayload struct {
	JTI   string `json:"jti"`
	HTM   string `json:"htm"`
	HTU   string `json:"htu"`
	IAT   int64  `json:"iat"`
	Nonce string `json:"nonce,omitempty"`
}

// VerifyProof checks a compact DPoP proof against the expected HTTP method
// and URL. Checks run in a fixed order so every malformed proof maps to a
// single stable rejection reason. The jti is recorded in the replay cache
// before the signature is checked, so two concurrent copies of the same
// proof can never both pass.
func (v *Verifier) VerifyProof(proof, method, url string) (*Result, error) {
	parts := strings.Split(proof, ".")
	if len(parts) != 3 {
		return nil, reject(ReasonMalformedProof, "expected three segments")
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, reject(ReasonMalformedProof, "undecodable header")
	}
	var hdr proofHeader
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return nil, reject(ReasonMalformedProof, "unparsable header")
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, reject(ReasonMalformedProof, "undecodable payload")
	}
	var body proofPayload
	if err := json.Unmarshal(payloadJSON, &body); err != nil {
		return nil, reject(ReasonMalformedProof, "unparsable payload")
	}
	if body.JTI == "" {
		return nil, reject(ReasonMalformedProof, "missing jti")
	}

	if hdr.Typ != ProofType {
		return nil, reject(ReasonInvalidTyp, fmt.Sprintf("typ %q", hdr.Typ))
	}
	if hdr.Alg != jwa.ES256.String() {
		return nil, reject(ReasonUnsupportedAlg, fmt.Sprintf("alg %q", hdr.Alg))
	}
	if len(hdr.JWK) == 0 {
		return nil, reject(ReasonMissingJWK, "no embedded key")
	}

	var rawKey struct {
		Kty string `json:"kty"`
		Crv string `json:"crv"`
		X   string `json:"x"`
		Y   string `json:"y"`
	}
	if err := json.Unmarshal(hdr.JWK, &rawKey); err != nil {
		return nil, reject(ReasonMissingJWK, "unparsable embedded key")
	}
	if rawKey.Kty != "EC" || rawKey.Crv != "P-256" || rawKey.X == "" || rawKey.Y == "" {
		return nil, reject(ReasonMissingJWK, "embedded key is not EC P-256")
	}

	if body.HTM != method {
		return nil, reject(ReasonMethodMismatch, fmt.Sprintf("htm %q, want %q", body.HTM, method))
	}
	if body.HTU != url {
		return nil, reject(ReasonURLMismatch, fmt.Sprintf("htu %q, want %q", body.HTU, url))
	}

	now := v.now().UTC()
	iat := time.Unix(body.IAT, 0).UTC()
	drift := now.Sub(iat)
	if drift < 0 {
		drift = -drift
	}
	if drift > v.maxDrift {
		return nil, reject(ReasonStaleProof, fmt.Sprintf("iat %ds away from server time", int(drift.Seconds())))
	}

	// Record the jti before verifying the signature. The first presenter
	// of a jti wins regardless of whether its signature later fails, so a
	// replayed proof can never race its original past this point.
	if v.replay != nil && !v.replay.Remember(body.JTI) {
		return nil, reject(ReasonReplayedJTI, "jti already seen")
	}

	key, err := jwk.ParseKey(hdr.JWK)
	if err != nil {
		return nil, reject(ReasonMissingJWK, "unusable embedded key")
	}

	if _, err := jws.Verify([]byte(proof), jws.WithKey(jwa.ES256, key)); err != nil {
		return nil, reject(ReasonBadSignature, "signature check failed")
	}

	thumb, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, reject(ReasonBadSignature, "thumbprint failed")
	}

	return &Result{
		JKT:   base64.RawURLEncoding.EncodeToString(thumb),
		JTI:   body.JTI,
		Nonce: body.Nonce,
	}, nil
}
