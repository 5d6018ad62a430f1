package dpopx

import (
	"sync"
	"time"

	"github.com/driftwoodlabs/didauth/pkg/cryptox"
)

// DefaultNonceTTL is how long a server nonce stays current before the
// authority rotates it.
const DefaultNonceTTL = 5 * time.Minute

// NonceAuthority hands out the server DPoP nonce and decides which client
// nonces are still acceptable. Rotation is lazy: the nonce rolls over on
// the first access after its TTL elapses, and the immediately previous
// nonce stays acceptable for one more TTL so in-flight requests don't fail.
type NonceAuthority struct {
	mu        sync.Mutex
	ttl       time.Duration
	current   string
	previous  string
	rotatedAt time.Time
	now       func() time.Time
}

// NewNonceAuthority builds an authority with the given rotation TTL.
func NewNonceAuthority(ttl time.Duration) *NonceAuthority {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &NonceAuthority{
		ttl: ttl,
		now: time.Now,
	}
}

// Current returns the nonce clients should use, rotating first if the
// active nonce has outlived its TTL.
func (n *NonceAuthority) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rotateLocked()
	return n.current
}

// Accepts reports whether a client-presented nonce is the current or the
// immediately previous server nonce.
func (n *NonceAuthority) Accepts(nonce string) bool {
	if nonce == "" {
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.rotateLocked()
	return nonce == n.current || nonce == n.previous
}

func (n *NonceAuthority) rotateLocked() {
	now := n.now().UTC()
	if n.current != "" && now.Sub(n.rotatedAt) < n.ttl {
		return
	}
	n.previous = n.current
	n.current = cryptox.MustGenerateToken(cryptox.TokenSize128)
	n.rotatedAt = now
}
