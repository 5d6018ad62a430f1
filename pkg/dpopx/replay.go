package dpopx

import (
	"time"

	cache "github.com/patrickmn/go-cache"
)

// ReplayCache tracks proof jti values for the window in which a replayed
// proof could still carry a valid iat. Entries expire on their own; the
// janitor sweeps expired entries once a minute.
type ReplayCache struct {
	c *cache.Cache
}

// NewReplayCache builds a cache holding jtis for the given window. The
// window should be at least twice the verifier's max iat drift so a proof
// minted at the edge of the window still collides with its replay.
func NewReplayCache(window time.Duration) *ReplayCache {
	return &ReplayCache{c: cache.New(window, time.Minute)}
}

// Remember records a jti and reports whether it was previously unseen.
// Add fails when the key exists, which gives a single atomic
// first-writer-wins insert.
func (r *ReplayCache) Remember(jti string) bool {
	return r.c.Add(jti, struct{}{}, cache.DefaultExpiration) == nil
}

// Seen reports whether a jti is currently recorded, without recording it.
func (r *ReplayCache) Seen(jti string) bool {
	_, ok := r.c.Get(jti)
	return ok
}
