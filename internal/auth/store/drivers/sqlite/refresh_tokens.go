package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/driftwoodlabs/didauth/internal/auth/domain"
)

type refreshTokensRepo struct {
	q querier
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, session_id, client_id, subject_did,
			token_hash, dpop_jkt, scope, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
		t.ID, t.SessionID, t.ClientID, t.SubjectDID,
		t.TokenHash, t.DPoPJKT, t.Scope, t.ExpiresAt, t.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, session_id, client_id, subject_did, token_hash, dpop_jkt,
			scope, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE token_hash = ?`,
		hash,
	)

	var t domain.RefreshToken
	var revokedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.SessionID, &t.ClientID, &t.SubjectDID, &t.TokenHash,
		&t.DPoPJKT, &t.Scope, &t.ExpiresAt, &revokedAt, &t.CreatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.RevokedAt = mapNullTimePtr(revokedAt)
	return t, nil
}

// RevokeRefreshToken only flips tokens that are still live. A false return
// means someone already spent this token, which rotation treats as replay.
func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = ?
		WHERE token_hash = ? AND revoked_at IS NULL`,
		time.Now().UTC(), hash,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *refreshTokensRepo) RevokeSessionRefreshTokens(ctx context.Context, sessionID string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = ?
		WHERE session_id = ? AND revoked_at IS NULL`,
		time.Now().UTC(), sessionID,
	)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM refresh_tokens
		WHERE expires_at <= ?`,
		time.Now().UTC(),
	)
	return err
}
