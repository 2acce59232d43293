package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
)

type userRepo struct{ repos }

const userColumns = `id, username, email, password_hash, verified, created_at, updated_at`

func scanUser(row Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Verified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (r userRepo) Create(ctx context.Context, user models.User) (models.User, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	const query = `
		INSERT INTO users (username, email, password_hash, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`

	var id int64
	err := r.q.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Verified,
		user.CreatedAt.UTC(),
		user.UpdatedAt.UTC(),
	).Scan(&id)
	if errors.Is(err, ErrUniqueViolation) {
		return models.User{}, ErrDuplicateEmail
	}
	if err != nil {
		return models.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r userRepo) GetByID(ctx context.Context, id int64) (models.User, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r userRepo) SetVerified(ctx context.Context, id int64, at time.Time) error {
	return r.update(ctx, `UPDATE users SET verified = ?, updated_at = ? WHERE id = ?`, true, at.UTC(), id)
}

func (r userRepo) SetPassword(ctx context.Context, id int64, hash []byte, at time.Time) error {
	return r.update(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, at.UTC(), id)
}

func (r userRepo) SetUsername(ctx context.Context, id int64, username string, at time.Time) error {
	return r.update(ctx, `UPDATE users SET username = ?, updated_at = ? WHERE id = ?`, username, at.UTC(), id)
}

func (r userRepo) update(ctx context.Context, query string, args ...any) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	n, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
