package repository

import (
	"context"
	"time"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
)

type verificationRepo struct{ repos }

func (r verificationRepo) Put(ctx context.Context, p models.PendingVerification) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	const query = `
		INSERT INTO pending_verifications (user_id, purpose, code_hash, expires_at, staged_password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			purpose = excluded.purpose,
			code_hash = excluded.code_hash,
			expires_at = excluded.expires_at,
			staged_password_hash = excluded.staged_password_hash,
			created_at = excluded.created_at`

	_, err := r.q.Exec(ctx, query,
		p.UserID,
		string(p.Purpose),
		p.CodeHash,
		p.ExpiresAt.UTC(),
		p.StagedPasswordHash,
		p.CreatedAt.UTC(),
	)
	return err
}

func (r verificationRepo) Get(ctx context.Context, userID int64) (models.PendingVerification, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	const query = `
		SELECT user_id, purpose, code_hash, expires_at, staged_password_hash, created_at
		FROM pending_verifications WHERE user_id = ?`

	var p models.PendingVerification
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Purpose,
		&p.CodeHash,
		&p.ExpiresAt,
		&p.StagedPasswordHash,
		&p.CreatedAt,
	)
	return p, err
}

func (r verificationRepo) Delete(ctx context.Context, userID int64) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	_, err := r.q.Exec(ctx, `DELETE FROM pending_verifications WHERE user_id = ?`, userID)
	return err
}

func (r verificationRepo) Consume(ctx context.Context, userID int64, codeHash []byte) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	n, err := r.q.Exec(ctx, `DELETE FROM pending_verifications WHERE user_id = ? AND code_hash = ?`, userID, codeHash)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r verificationRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return r.q.Exec(ctx, `DELETE FROM pending_verifications WHERE expires_at < ?`, before.UTC())
}
