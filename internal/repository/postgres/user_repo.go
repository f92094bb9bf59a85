package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Warden/internal/domain"
	"github.com/NordCoder/Warden/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, COALESCE(password_hash, ''), first_name, last_name,
       is_verified, email_verified_at, role, last_login_at, created_at, updated_at`

const (
	qUserInsert = `
INSERT INTO users (id, email, password_hash, first_name, last_name, is_verified, role, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $8);`

	qUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1;`

	qUserByEmail = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1;`

	qUserMarkVerified = `
UPDATE users
SET is_verified       = TRUE,
    email_verified_at = $2,
    updated_at        = $2
WHERE id = $1;`

	qUserUpdatePassword = `
UPDATE users
SET password_hash = $2,
    updated_at    = $3
WHERE id = $1;`

	qUserTouchLogin = `
UPDATE users
SET last_login_at = $2
WHERE id = $1;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.execQueryer(ctx).Exec(ctx, qUserInsert,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsVerified, string(u.Role), u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user insert: %w", domain.ErrConflict)
		}
		return fmt.Errorf("user insert: %w", err)
	}
	u.UpdatedAt = u.CreatedAt
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByEmail, email), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) MarkVerified(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qUserMarkVerified, id, at)
	if err != nil {
		return fmt.Errorf("user mark verified: %w", err)
	}
	return expectOne(tag, "user mark verified")
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qUserUpdatePassword, id, hash, at)
	if err != nil {
		return fmt.Errorf("user update password: %w", err)
	}
	return expectOne(tag, "user update password")
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qUserTouchLogin, id, at)
	if err != nil {
		return fmt.Errorf("user touch login: %w", err)
	}
	return expectOne(tag, "user touch login")
}

func scanUser(row pgx.Row, out *user.User) error {
	var role string
	if err := row.Scan(
		&out.ID, &out.Email, &out.PasswordHash, &out.FirstName, &out.LastName,
		&out.IsVerified, &out.EmailVerifiedAt, &role, &out.LastLoginAt, &out.CreatedAt, &out.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("scan user: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("scan user: %w", err)
	}
	out.Role = user.Role(role)
	return nil
}
