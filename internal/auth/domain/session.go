package domain

import "time"

// SessionState is the lifecycle state of an authorization session. A
// session only ever moves forward: created at PAR time, authorized when
// consent completes, code_issued when the front channel hands out a code,
// exchanged when the token endpoint consumes it. Expiry is a property of
// the clock, not a stored state.
type SessionState string

const (
	SessionCreated    SessionState = "created"
	SessionAuthorized SessionState = "authorized"
	SessionCodeIssued SessionState = "code_issued"
	SessionExchanged  SessionState = "exchanged"
)

// sessionTransitions is the full set of legal forward edges.
var sessionTransitions = map[SessionState]SessionState{
	SessionCreated:    SessionAuthorized,
	SessionAuthorized: SessionCodeIssued,
	SessionCodeIssued: SessionExchanged,
}

// CanTransitionTo reports whether moving from s to next is a legal step.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	return sessionTransitions[s] == next
}

// Valid reports whether s is one of the defined states.
func (s SessionState) Valid() bool {
	switch s {
	case SessionCreated, SessionAuthorized, SessionCodeIssued, SessionExchanged:
		return true
	}
	return false
}

// AuthorizationSession is one pushed authorization request and everything
// that happens to it before (and including) code exchange. The authorization
// code itself is never stored; only its fingerprint is.
type AuthorizationSession struct {
	ID          string
	RequestURI  string
	ClientID    string
	RedirectURI string
	Scope       string
	State       string

	CodeChallenge       string
	CodeChallengeMethod string

	// DPoPJKT is the thumbprint of the proof key presented at PAR time.
	// The token endpoint refuses to exchange this session's code for any
	// other key.
	DPoPJKT string

	// LoginHint is an optional identifier the login flow may use to
	// pre-fill the account picker.
	LoginHint string

	Status SessionState

	// SubjectDID is set when consent completes.
	SubjectDID string

	// CodeHash is the fingerprint of the issued authorization code,
	// set when the session reaches code_issued.
	CodeHash string

	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the session's TTL has lapsed. Expired sessions
// are unusable in any state.
func (s AuthorizationSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
