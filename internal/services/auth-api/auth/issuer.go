package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/domain"
	auditdomain "github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/domain/notification"
	"github.com/NordCoder/Warden/internal/domain/user"
	"github.com/NordCoder/Warden/internal/obs"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgUserExists         = "User already exists"
	msgUnverified         = "Please verify your email before logging in"
)

type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// SignUp creates an unverified account and opens its first session.
func (uc *Usecase) SignUp(ctx context.Context, in SignUpInput, m Meta) (s *Session, err error) {
	ctx, span := startSpan(ctx, "auth.signup")
	defer func() {
		signups.WithLabelValues(outcome(err)).Inc()
		endSpan(span, err)
	}()

	if err := uc.limit(ctx, "signup", m.IP, "Too many signup attempts. Please try again later."); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(in.Email)
	if err := uc.cfg.Policy.Check(in.Password); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	if _, err := uc.d.Users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict(msgUserExists)
	} else if !isNotFound(err) {
		return nil, apperr.Internal(err)
	}

	hash, err := uc.d.Hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := uc.cfg.Now()
	u := &user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         user.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var verifyToken string
	err = uc.d.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.d.Users.Create(ctx, u); err != nil {
			return err
		}
		tok, err := uc.newOneTimeToken(ctx, uc.d.VerifyTokens, u, uc.cfg.VerifyTTL)
		if err != nil {
			return err
		}
		verifyToken = tok
		s, err = uc.issue(ctx, u)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, apperr.Conflict(msgUserExists)
		}
		return nil, apperr.Internal(fmt.Errorf("signup: %w", err))
	}

	uc.notify(ctx, notification.Email{
		Kind:  notification.KindVerification,
		To:    u.Email,
		Name:  u.FirstName,
		Token: verifyToken,
	})
	uc.record(ctx, auditdomain.ActionUserSignup, ptr(u.ID), "User signed up with email "+u.Email, m)
	obs.WithTrace(ctx, uc.log).Info("user signed up", zap.String("user_id", u.ID))
	return s, nil
}

// Login answers every unknown-account and wrong-password case with the same
// error after the same amount of hashing work.
func (uc *Usecase) Login(ctx context.Context, email, password string, m Meta) (s *Session, err error) {
	ctx, span := startSpan(ctx, "auth.login")
	defer func() {
		logins.WithLabelValues(outcome(err)).Inc()
		endSpan(span, err)
	}()

	if err := uc.limit(ctx, "login", m.IP, "Too many login attempts. Please try again in a minute."); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)

	u, err := uc.d.Users.GetByEmail(ctx, email)
	if err != nil && !isNotFound(err) {
		return nil, apperr.Internal(err)
	}
	if u == nil || u.PasswordHash == "" {
		uc.d.Hasher.Burn(password)
		uc.record(ctx, auditdomain.ActionLoginFailed, nil, "Failed login attempt for email "+email, m)
		return nil, apperr.Unauthenticated(msgInvalidCredentials)
	}
	if !uc.d.Hasher.Verify(password, u.PasswordHash) {
		uc.record(ctx, auditdomain.ActionLoginFailed, ptr(u.ID), "Failed login attempt for email "+email, m)
		return nil, apperr.Unauthenticated(msgInvalidCredentials)
	}
	if !u.IsVerified {
		uc.record(ctx, auditdomain.ActionLoginFailed, ptr(u.ID), "Login blocked, email not verified: "+email, m)
		return nil, apperr.Forbidden(msgUnverified)
	}

	now := uc.cfg.Now()
	err = uc.d.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.d.Users.TouchLastLogin(ctx, u.ID, now); err != nil {
			return err
		}
		u.LastLoginAt = &now
		s, err = uc.issue(ctx, u)
		return err
	})
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("login: %w", err))
	}

	uc.record(ctx, auditdomain.ActionUserLogin, ptr(u.ID), "User logged in: "+u.ID, m)
	return s, nil
}
