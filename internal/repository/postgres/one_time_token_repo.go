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

var _ auth.OneTimeTokenRepo = (*OneTimeTokenRepo)(nil)

// OneTimeTokenRepo serves both email_verification_tokens and password_reset_tokens.
type OneTimeTokenRepo struct {
	db       *DB
	table    string
	qCreate  string
	qConsume string
}

func NewVerificationTokenRepo(db *DB) *OneTimeTokenRepo {
	return newOneTimeTokenRepo(db, "email_verification_tokens")
}

func NewResetTokenRepo(db *DB) *OneTimeTokenRepo {
	return newOneTimeTokenRepo(db, "password_reset_tokens")
}

func newOneTimeTokenRepo(db *DB, table string) *OneTimeTokenRepo {
	return &OneTimeTokenRepo{
		db:    db,
		table: table,
		qCreate: `
INSERT INTO ` + table + ` (token_hash, user_id, email, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5);`,
		qConsume: `
DELETE FROM ` + table + `
WHERE token_hash = $1 AND expires_at > $2
RETURNING token_hash, user_id, email, expires_at, created_at;`,
	}
}

func (r *OneTimeTokenRepo) Create(ctx context.Context, t *auth.OneTimeToken) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, r.qCreate, t.TokenHash, t.UserID, t.Email, t.ExpiresAt, t.CreatedAt); err != nil {
		return fmt.Errorf("%s insert: %w", r.table, err)
	}
	return nil
}

func (r *OneTimeTokenRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (*auth.OneTimeToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var t auth.OneTimeToken
	err := r.db.execQueryer(ctx).QueryRow(ctx, r.qConsume, tokenHash, now).
		Scan(&t.TokenHash, &t.UserID, &t.Email, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s consume: %w", r.table, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%s consume: %w", r.table, err)
	}
	return &t, nil
}
