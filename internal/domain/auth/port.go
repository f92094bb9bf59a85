package auth

import (
	"context"
	"time"
)

type RefreshTokenRepo interface {
	Create(ctx context.Context, t *RefreshToken) error
	Get(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// Consume deletes the record if it exists and is unexpired at now, returning it.
	// Absent or expired records yield domain.ErrNotFound.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*RefreshToken, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type OneTimeTokenRepo interface {
	Create(ctx context.Context, t *OneTimeToken) error
	Consume(ctx context.Context, tokenHash string, now time.Time) (*OneTimeToken, error)
}
