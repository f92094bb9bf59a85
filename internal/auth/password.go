package auth

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinBcryptCost = 10
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

var ErrBcryptCost = errors.New("bcrypt cost out of range")

type PasswordHasher struct {
	cost  int
	dummy []byte
}

func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < MinBcryptCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d", ErrBcryptCost, cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("warden-timing-equalizer"), cost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &PasswordHasher{cost: cost, dummy: dummy}, nil
}

func (h *PasswordHasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(digest), nil
}

func (h *PasswordHasher) Verify(plain, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// Burn runs a comparison against a fixed digest so a missing account costs
// as much as a wrong password.
func (h *PasswordHasher) Burn(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}

type PasswordPolicy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:      8,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
	}
}

// Check returns a message suitable for the client, or nil.
func (p PasswordPolicy) Check(pw string) error {
	if len([]rune(pw)) < p.MinLength {
		return fmt.Errorf("Password must be at least %d characters", p.MinLength)
	}
	if len(pw) > MaxPasswordBytes {
		return fmt.Errorf("Password must be at most %d bytes", MaxPasswordBytes)
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			special = true
		}
	}
	switch {
	case p.RequireUpper && !upper:
		return errors.New("Password must contain at least one uppercase letter")
	case p.RequireLower && !lower:
		return errors.New("Password must contain at least one lowercase letter")
	case p.RequireDigit && !digit:
		return errors.New("Password must contain at least one number")
	case p.RequireSpecial && !special:
		return errors.New("Password must contain at least one special character")
	}
	return nil
}
