package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/auth"
	auditdomain "github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/domain/user"
	"github.com/NordCoder/Warden/internal/obs"
)

const (
	msgRefreshMissing = "Refresh token missing"
	msgRefreshInvalid = "Invalid refresh token"
	msgRefreshExpired = "Refresh token expired or invalid"
)

// Refresh rotates raw: its ledger record is deleted and a successor inserted
// in one transaction, so a rotated token can never be replayed.
func (uc *Usecase) Refresh(ctx context.Context, raw string, m Meta) (s *Session, err error) {
	ctx, span := startSpan(ctx, "auth.refresh")
	defer func() {
		refreshes.WithLabelValues(outcome(err)).Inc()
		endSpan(span, err)
	}()

	if raw == "" {
		return nil, apperr.Unauthenticated(msgRefreshMissing)
	}
	claims, err := uc.d.Refresh.Verify(raw)
	if err != nil {
		uc.record(ctx, auditdomain.ActionTokenRefreshFailed, nil, "Refresh token failed verification", m)
		return nil, apperr.Unauthenticated(msgRefreshInvalid)
	}

	hash := auth.HashToken(raw)
	now := uc.cfg.Now()

	rec, err := uc.d.RefreshTokens.Get(ctx, hash)
	switch {
	case isNotFound(err):
		uc.record(ctx, auditdomain.ActionTokenRefreshFailed, ptr(claims.UserID), "Refresh token not in ledger", m)
		return nil, apperr.Unauthenticated(msgRefreshExpired)
	case err != nil:
		return nil, apperr.Internal(err)
	case rec.UserID != claims.UserID:
		return nil, apperr.Unauthenticated(msgRefreshExpired)
	case rec.Expired(now):
		if derr := uc.d.RefreshTokens.Delete(ctx, hash); derr != nil {
			obs.WithTrace(ctx, uc.log).Warn("stale refresh token not deleted", zap.Error(derr))
		}
		return nil, apperr.Unauthenticated(msgRefreshExpired)
	}

	err = uc.d.Tx.WithTx(ctx, func(ctx context.Context) error {
		consumed, err := uc.d.RefreshTokens.Consume(ctx, hash, now)
		if err != nil {
			return err
		}
		u, err := uc.d.Users.GetByID(ctx, consumed.UserID)
		if err != nil {
			return err
		}
		s, err = uc.issue(ctx, u)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			// Lost a race with a concurrent rotation or logout.
			uc.record(ctx, auditdomain.ActionTokenRefreshFailed, ptr(claims.UserID), "Refresh token already consumed", m)
			return nil, apperr.Unauthenticated(msgRefreshExpired)
		}
		return nil, apperr.Internal(fmt.Errorf("rotate refresh token: %w", err))
	}
	return s, nil
}

// Logout deletes the ledger record behind raw, if any. It succeeds for
// missing, malformed and already revoked tokens.
func (uc *Usecase) Logout(ctx context.Context, raw string, m Meta) error {
	ctx, span := startSpan(ctx, "auth.logout")
	var err error
	defer func() { endSpan(span, err) }()

	if raw == "" {
		return nil
	}
	if err = uc.d.RefreshTokens.Delete(ctx, auth.HashToken(raw)); err != nil {
		err = apperr.Internal(fmt.Errorf("logout: %w", err))
		return err
	}
	if claims, verr := uc.d.Refresh.Verify(raw); verr == nil {
		uc.record(ctx, auditdomain.ActionUserLogout, ptr(claims.UserID), "User logged out: "+claims.UserID, m)
	}
	return nil
}

// VerifyToken resolves a bearer access token to the current user.
func (uc *Usecase) VerifyToken(ctx context.Context, token string) (*user.View, error) {
	if token == "" {
		return nil, apperr.Unauthenticated("Missing or invalid authorization header")
	}
	claims, err := uc.d.Access.Verify(token)
	if err != nil {
		return nil, apperr.Unauthenticated("Invalid or expired access token")
	}
	u, err := uc.d.Users.GetByID(ctx, claims.UserID)
	if isNotFound(err) {
		return nil, apperr.Unauthenticated("User not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	v := u.View()
	return &v, nil
}
