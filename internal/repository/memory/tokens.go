package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Warden/internal/domain"
	"github.com/NordCoder/Warden/internal/domain/auth"
)

var _ auth.RefreshTokenRepo = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct{ s *Store }

func (r *RefreshTokenRepo) Create(ctx context.Context, t *auth.RefreshToken) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.d.refresh[t.TokenHash]; ok {
		return fmt.Errorf("refresh insert: %w", domain.ErrConflict)
	}
	r.s.d.refresh[t.TokenHash] = *t
	return nil
}

func (r *RefreshTokenRepo) Get(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.d.refresh[tokenHash]
	if !ok {
		return nil, fmt.Errorf("refresh token: %w", domain.ErrNotFound)
	}
	return &t, nil
}

func (r *RefreshTokenRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (*auth.RefreshToken, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.d.refresh[tokenHash]
	if !ok || t.Expired(now) {
		return nil, fmt.Errorf("refresh token: %w", domain.ErrNotFound)
	}
	delete(r.s.d.refresh, tokenHash)
	return &t, nil
}

func (r *RefreshTokenRepo) Delete(ctx context.Context, tokenHash string) error {
	defer r.s.lock(ctx)()
	delete(r.s.d.refresh, tokenHash)
	return nil
}

func (r *RefreshTokenRepo) DeleteByUser(ctx context.Context, userID string) error {
	defer r.s.lock(ctx)()
	for k, t := range r.s.d.refresh {
		if t.UserID == userID {
			delete(r.s.d.refresh, k)
		}
	}
	return nil
}

var _ auth.OneTimeTokenRepo = (*OneTimeTokenRepo)(nil)

type OneTimeTokenRepo struct {
	s    *Store
	pick func(*data) map[string]auth.OneTimeToken
}

func pickVerify(d *data) map[string]auth.OneTimeToken { return d.verify }
func pickReset(d *data) map[string]auth.OneTimeToken  { return d.reset }

func (r *OneTimeTokenRepo) Create(ctx context.Context, t *auth.OneTimeToken) error {
	defer r.s.lock(ctx)()
	r.pick(r.s.d)[t.TokenHash] = *t
	return nil
}

func (r *OneTimeTokenRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (*auth.OneTimeToken, error) {
	defer r.s.lock(ctx)()
	m := r.pick(r.s.d)
	t, ok := m[tokenHash]
	if !ok || !now.Before(t.ExpiresAt) {
		return nil, fmt.Errorf("one-time token: %w", domain.ErrNotFound)
	}
	delete(m, tokenHash)
	return &t, nil
}
