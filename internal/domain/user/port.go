package user

import (
	"context"
	"time"
)

type Repo interface {
	// Create fails with domain.ErrConflict when the email is taken.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	MarkVerified(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
