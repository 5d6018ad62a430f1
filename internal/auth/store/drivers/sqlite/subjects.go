package sqlite

import (
	"context"

	"github.com/driftwoodlabs/didauth/internal/auth/domain"
)

type subjectsRepo struct {
	q querier
}

func (r *subjectsRepo) GetSubjectByDID(ctx context.Context, did string) (domain.Subject, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, did, handle, created_at
		FROM subjects
		WHERE did = ?`,
		did,
	)

	var s domain.Subject
	if err := row.Scan(&s.ID, &s.DID, &s.Handle, &s.CreatedAt); err != nil {
		return domain.Subject{}, mapNotFound(err)
	}
	return s, nil
}

func (r *subjectsRepo) CreateSubject(ctx context.Context, s domain.Subject) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO subjects (id, did, handle, created_at)
		VALUES (?, ?, ?, ?)`,
		s.ID, s.DID, s.Handle, s.CreatedAt,
	)
	return mapConstraint(err)
}
