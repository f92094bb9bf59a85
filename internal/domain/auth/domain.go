package auth

import "time"

// RefreshToken is a ledger row. Presence means valid until ExpiresAt.
type RefreshToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// OneTimeToken backs email verification and password reset links.
type OneTimeToken struct {
	TokenHash string
	UserID    string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
