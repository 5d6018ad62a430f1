package domain

import "time"

// Subject is a token-holding account, keyed by its DID. Rows appear lazily:
// the first successful code exchange for a DID creates one.
type Subject struct {
	ID        string
	DID       string
	Handle    string
	CreatedAt time.Time
}
