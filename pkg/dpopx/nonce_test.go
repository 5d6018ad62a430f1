package dpopx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNonceAuthority_CurrentStable(t *testing.T) {
	n := NewNonceAuthority(5 * time.Minute)

	first := n.Current()
	require.NotEmpty(t, first)
	require.Equal(t, first, n.Current(), "nonce must be stable within its TTL")
}

func TestNonceAuthority_Accepts(t *testing.T) {
	n := NewNonceAuthority(5 * time.Minute)
	nonce := n.Current()

	require.True(t, n.Accepts(nonce))
	require.False(t, n.Accepts(""))
	require.False(t, n.Accepts("never-issued"))
}

func TestNonceAuthority_LazyRotation(t *testing.T) {
	n := NewNonceAuthority(5 * time.Minute)

	now := time.Now().UTC()
	n.now = func() time.Time { return now }

	first := n.Current()

	// Advance past the TTL; the next access rotates.
	now = now.Add(6 * time.Minute)
	second := n.Current()
	require.NotEqual(t, first, second)

	// Both current and the immediately previous nonce are acceptable.
	require.True(t, n.Accepts(second))
	require.True(t, n.Accepts(first))

	// Another rotation pushes the first nonce out entirely.
	now = now.Add(6 * time.Minute)
	third := n.Current()
	require.NotEqual(t, second, third)
	require.True(t, n.Accepts(second))
	require.False(t, n.Accepts(first))
}
