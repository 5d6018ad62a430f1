package store

import (
	"context"
	"errors"

	"github.com/driftwoodlabs/didauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement this. It exposes sub-repositories to keep concerns tidy
// and testable, and a Tx escape hatch for multi-step operations that must
// be atomic (code exchange, refresh rotation).
type Store interface {
	Sessions() Sessions
	RefreshTokens() RefreshTokens
	Subjects() Subjects

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Sessions interface {
	// CreateSession stores a freshly pushed authorization session.
	CreateSession(ctx context.Context, s domain.AuthorizationSession) error

	// GetSessionByRequestURI fetches a session by its request_uri handle.
	GetSessionByRequestURI(ctx context.Context, requestURI string) (domain.AuthorizationSession, error)

	// GetSessionByID fetches a session by id.
	GetSessionByID(ctx context.Context, id string) (domain.AuthorizationSession, error)

	// AuthorizeSession moves a session from created to authorized and
	// records the consenting subject. Returns ErrNotFound if the session
	// is not currently in the created state.
	AuthorizeSession(ctx context.Context, id, subjectDID string) error

	// BindAuthorizationCode moves a session from authorized to code_issued
	// and records the code fingerprint. Returns ErrNotFound if the session
	// is not currently in the authorized state, so a code can be bound at
	// most once.
	BindAuthorizationCode(ctx context.Context, id, codeHash string) error

	// ConsumeAuthorizationCode atomically moves the session holding this
	// code fingerprint from code_issued to exchanged and returns it. Only
	// one caller can ever win; every other presenter of the same code gets
	// ErrNotFound.
	ConsumeAuthorizationCode(ctx context.Context, codeHash string) (domain.AuthorizationSession, error)

	// DeleteExpiredSessions removes sessions past their TTL (housekeeping).
	DeleteExpiredSessions(ctx context.Context) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its SHA-256 fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken marks a live token revoked. It reports whether a
	// row actually flipped: false means the token was already revoked or
	// never existed, which a rotating caller must treat as replay.
	RevokeRefreshToken(ctx context.Context, hash string) (bool, error)

	// RevokeSessionRefreshTokens revokes every live token descended from a
	// session (revocation cascade).
	RevokeSessionRefreshTokens(ctx context.Context, sessionID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type Subjects interface {
	// GetSubjectByDID returns the account row for a DID.
	GetSubjectByDID(ctx context.Context, did string) (domain.Subject, error)

	// CreateSubject inserts a new subject (id is provided by app via ULID).
	CreateSubject(ctx context.Context, s domain.Subject) error
}
