package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/driftwoodlabs/didauth/internal/auth/domain"
	"github.com/driftwoodlabs/didauth/internal/auth/store"
)

type sessionsRepo struct {
	q querier
}

const sessionColumns = `id, request_uri, client_id, redirect_uri, scope, state,
	code_challenge, code_challenge_method, dpop_jkt, login_hint, status,
	subject_did, code_hash, expires_at, created_at, updated_at`

func scanSession(row *sql.Row) (domain.AuthorizationSession, error) {
	var s domain.AuthorizationSession
	var status string
	err := row.Scan(
		&s.ID, &s.RequestURI, &s.ClientID, &s.RedirectURI, &s.Scope, &s.State,
		&s.CodeChallenge, &s.CodeChallengeMethod, &s.DPoPJKT, &s.LoginHint,
		&status, &s.SubjectDID, &s.CodeHash, &s.ExpiresAt, &s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return domain.AuthorizationSession{}, mapNotFound(err)
	}
	s.Status = domain.SessionState(status)
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.AuthorizationSession) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO authorization_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.RequestURI, s.ClientID, s.RedirectURI, s.Scope, s.State,
		s.CodeChallenge, s.CodeChallengeMethod, s.DPoPJKT, s.LoginHint,
		string(s.Status), s.SubjectDID, s.CodeHash, s.ExpiresAt, s.CreatedAt,
		s.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByRequestURI(ctx context.Context, requestURI string) (domain.AuthorizationSession, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM authorization_sessions
		WHERE request_uri = ?`,
		requestURI,
	)
	return scanSession(row)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.AuthorizationSession, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM authorization_sessions
		WHERE id = ?`,
		id,
	)
	return scanSession(row)
}

func (r *sessionsRepo) AuthorizeSession(ctx context.Context, id, subjectDID string) error {
	return r.conditionalUpdate(ctx, `
		UPDATE authorization_sessions
		SET status = 'authorized', subject_did = ?, updated_at = ?
		WHERE id = ? AND status = 'created'`,
		subjectDID, time.Now().UTC(), id,
	)
}

func (r *sessionsRepo) BindAuthorizationCode(ctx context.Context, id, codeHash string) error {
	return r.conditionalUpdate(ctx, `
		UPDATE authorization_sessions
		SET status = 'code_issued', code_hash = ?, updated_at = ?
		WHERE id = ? AND status = 'authorized'`,
		codeHash, time.Now().UTC(), id,
	)
}

// conditionalUpdate runs a guarded UPDATE and maps "no row matched the
// guard" to ErrNotFound, which is how state machine violations surface.
func (r *sessionsRepo) conditionalUpdate(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ConsumeAuthorizationCode flips code_issued to exchanged in a single
// UPDATE ... RETURNING, so concurrent presenters of the same code race on
// one row and exactly one of them gets it back.
func (r *sessionsRepo) ConsumeAuthorizationCode(ctx context.Context, codeHash string) (domain.AuthorizationSession, error) {
	row := r.q.QueryRowContext(ctx, `
		UPDATE authorization_sessions
		SET status = 'exchanged', updated_at = ?
		WHERE code_hash = ? AND code_hash != '' AND status = 'code_issued'
		RETURNING `+sessionColumns,
		time.Now().UTC(), codeHash,
	)
	return scanSession(row)
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM authorization_sessions
		WHERE expires_at <= ?`,
		time.Now().UTC(),
	)
	return err
}
