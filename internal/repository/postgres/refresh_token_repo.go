package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Warden/internal/domain"
	"github.com/NordCoder/Warden/internal/domain/auth"
)

var _ auth.RefreshTokenRepo = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct{ db *DB }

func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

const (
	qRTCreate = `
INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at)
VALUES ($1, $2, $3, $4);`

	qRTGet = `
SELECT token_hash, user_id, expires_at, created_at
FROM refresh_tokens
WHERE token_hash = $1;`

	qRTConsume = `
DELETE FROM refresh_tokens
WHERE token_hash = $1 AND expires_at > $2
RETURNING token_hash, user_id, expires_at, created_at;`

	qRTDelete = `
DELETE FROM refresh_tokens WHERE token_hash = $1;`

	qRTDeleteByUser = `
DELETE FROM refresh_tokens WHERE user_id = $1;`
)

func (r *RefreshTokenRepo) Create(ctx context.Context, t *auth.RefreshToken) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qRTCreate, t.TokenHash, t.UserID, t.ExpiresAt, t.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("refresh insert: %w", domain.ErrConflict)
		}
		return fmt.Errorf("refresh insert: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) Get(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanRefresh(r.db.execQueryer(ctx).QueryRow(ctx, qRTGet, tokenHash))
}

func (r *RefreshTokenRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (*auth.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanRefresh(r.db.execQueryer(ctx).QueryRow(ctx, qRTConsume, tokenHash, now))
}

func (r *RefreshTokenRepo) Delete(ctx context.Context, tokenHash string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qRTDelete, tokenHash); err != nil {
		return fmt.Errorf("refresh delete: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) DeleteByUser(ctx context.Context, userID string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qRTDeleteByUser, userID); err != nil {
		return fmt.Errorf("refresh delete by user: %w", err)
	}
	return nil
}

func scanRefresh(row pgx.Row) (*auth.RefreshToken, error) {
	var t auth.RefreshToken
	if err := row.Scan(&t.TokenHash, &t.UserID, &t.ExpiresAt, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("refresh token: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &t, nil
}
