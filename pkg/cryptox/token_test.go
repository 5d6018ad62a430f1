package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	for _, size := range []int{TokenSize128, TokenSize256, TokenSize512, 24} {
		token, err := GenerateToken(size)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		// base64url with no padding, so the raw bytes round-trip.
		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Len(t, raw, size)

		again, err := GenerateToken(size)
		require.NoError(t, err)
		require.NotEqual(t, token, again)
	}
}

func TestGenerateTokenRejectsBadSizes(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestMustGenerateToken(t *testing.T) {
	require.NotEmpty(t, MustGenerateToken(TokenSize256))
	require.Panics(t, func() { MustGenerateToken(0) })
}

func TestFingerprintToken(t *testing.T) {
	fp := FingerprintToken("some-authorization-code")

	// Deterministic, and always the 43-character base64url form of a
	// SHA-256 digest regardless of input length.
	require.Equal(t, fp, FingerprintToken("some-authorization-code"))
	require.Len(t, fp, 43)
	require.Len(t, FingerprintToken(""), 43)
	require.NotEqual(t, fp, FingerprintToken("some-authorization-codf"))
}

func TestGenerateTokenNoCollisions(t *testing.T) {
	const count = 100
	seen := make(map[string]bool, count)

	for range count {
		token, err := GenerateToken(TokenSize256)
		require.NoError(t, err)
		require.False(t, seen[token])
		seen[token] = true
	}
}
