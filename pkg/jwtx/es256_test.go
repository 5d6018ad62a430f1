package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/driftwoodlabs/didauth/pkg/cryptox"
	"github.com/driftwoodlabs/didauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://auth.example.com"

func newTestSigner(t *testing.T, kid string) jwtx.Signer {
	t.Helper()

	pemKey, err := cryptox.GenerateES256Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerES256(kid, pemKey)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())

	return signer
}

func TestES256SignAndVerify(t *testing.T) {
	signer := newTestSigner(t, "test-key-es256")
	require.Equal(t, "ES256", signer.Alg())
	require.Equal(t, "test-key-es256", signer.KID())

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims(
		exampleIssuer,
		"did:plc:abc123",
		"app-web",
		"atproto chess",
		"jkt-thumbprint-value",
		10*time.Minute,
		now,
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Build KeySet for verification
	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	jwks := keyset.PublicJWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "EC", jwks.Keys[0].Kty)
	require.Equal(t, "P-256", jwks.Keys[0].Crv)
	require.NotEmpty(t, jwks.Keys[0].X)
	require.NotEmpty(t, jwks.Keys[0].Y)

	verifier := jwtx.NewVerifierES256(keyset, exampleIssuer)
	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "did:plc:abc123", got.Subject)
	require.Equal(t, "app-web", got.ClientID)
	require.Equal(t, "atproto chess", got.Scope)
	require.NotNil(t, got.Confirmation)
	require.Equal(t, "jkt-thumbprint-value", got.Confirmation.JKT)
	require.NotEmpty(t, got.ID, "jti should be set")
	require.NoError(t, got.ValidateConfirmation())
}

func TestES256TypHeader(t *testing.T) {
	signer := newTestSigner(t, "typ-check")

	claims := jwtx.NewAccessClaims(exampleIssuer, "did:plc:xyz", "app", "atproto", "jkt", time.Minute, time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &jwtx.Claims{})
	require.NoError(t, err)
	require.Equal(t, jwtx.AccessTokenType, parsed.Header["typ"])
	require.Equal(t, "typ-check", parsed.Header["kid"])
}

func TestES256RejectsExpired(t *testing.T) {
	signer := newTestSigner(t, "expired-key")

	claims := jwtx.NewAccessClaims(
		exampleIssuer, "did:plc:abc", "app-web", "atproto", "jkt",
		-time.Minute, time.Now().UTC().Add(-time.Hour),
	)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	_, err = jwtx.NewVerifierES256(keyset, exampleIssuer).Verify(token)
	require.Error(t, err)
}

func TestES256RejectsWrongIssuer(t *testing.T) {
	signer := newTestSigner(t, "issuer-key")

	claims := jwtx.NewAccessClaims(
		"https://evil.example.com", "did:plc:abc", "app-web", "atproto", "jkt",
		time.Minute, time.Now().UTC(),
	)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	_, err = jwtx.NewVerifierES256(keyset, exampleIssuer).Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestES256RejectsUnknownKid(t *testing.T) {
	signer := newTestSigner(t, "key-a")
	other := newTestSigner(t, "key-b")

	claims := jwtx.NewAccessClaims(exampleIssuer, "did:plc:abc", "app-web", "atproto", "jkt", time.Minute, time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	// KeySet only trusts key-b
	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(other))

	_, err = jwtx.NewVerifierES256(keyset, exampleIssuer).Verify(token)
	require.Error(t, err)
}

func TestES256RejectsAlgNone(t *testing.T) {
	signer := newTestSigner(t, "pin-key")
	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	// Forge an unsigned token claiming alg "none"
	noneToken := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss": exampleIssuer,
		"sub": "did:plc:abc",
	})
	noneToken.Header["kid"] = "pin-key"
	forged, err := noneToken.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwtx.NewVerifierES256(keyset, exampleIssuer).Verify(forged)
	require.Error(t, err)
}

func TestES256RejectsTamperedPayload(t *testing.T) {
	signer := newTestSigner(t, "tamper-key")
	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	claims := jwtx.NewAccessClaims(exampleIssuer, "did:plc:abc", "app-web", "atproto", "jkt", time.Minute, time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	tampered := strings.Join(parts, ".")

	_, err = jwtx.NewVerifierES256(keyset, exampleIssuer).Verify(tampered)
	require.Error(t, err)
}
