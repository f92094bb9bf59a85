package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Warden/internal/domain"
	"github.com/NordCoder/Warden/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	defer r.s.lock(ctx)()
	d := r.s.d
	if _, ok := d.byEmail[u.Email]; ok {
		return fmt.Errorf("user insert: %w", domain.ErrConflict)
	}
	if _, ok := d.users[u.ID]; ok {
		return fmt.Errorf("user insert: %w", domain.ErrConflict)
	}
	u.UpdatedAt = u.CreatedAt
	d.users[u.ID] = *u
	d.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.d.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	defer r.s.lock(ctx)()
	id, ok := r.s.d.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user by email: %w", domain.ErrNotFound)
	}
	u := r.s.d.users[id]
	return &u, nil
}

func (r *UserRepo) MarkVerified(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, func(u *user.User) {
		u.IsVerified = true
		u.EmailVerifiedAt = &at
		u.UpdatedAt = at
	})
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	return r.update(ctx, id, func(u *user.User) {
		u.PasswordHash = hash
		u.UpdatedAt = at
	})
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, func(u *user.User) {
		u.LastLoginAt = &at
	})
}

func (r *UserRepo) update(ctx context.Context, id string, fn func(u *user.User)) error {
	defer r.s.lock(ctx)()
	u, ok := r.s.d.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	fn(&u)
	r.s.d.users[id] = u
	return nil
}
