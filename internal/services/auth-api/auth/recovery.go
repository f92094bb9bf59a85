package auth

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/auth"
	auditdomain "github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/domain/notification"
	"github.com/NordCoder/Warden/internal/domain/user"
	"github.com/NordCoder/Warden/internal/obs"
)

// ForgotPasswordMessage is returned for every well-formed request, whether or
// not the account exists.
const ForgotPasswordMessage = "If an account exists with that email, a password reset link has been sent."

const (
	msgVerifyInvalid = "Invalid or expired verification token"
	msgResetInvalid  = "Invalid or expired reset token"
)

// VerifyEmail consumes a verification token and marks its account verified.
func (uc *Usecase) VerifyEmail(ctx context.Context, raw string, m Meta) (err error) {
	ctx, span := startSpan(ctx, "auth.verify_email")
	defer func() {
		emailFlows.WithLabelValues("verify_email", outcome(err)).Inc()
		endSpan(span, err)
	}()

	if raw == "" {
		return apperr.Validation("Token is required")
	}

	now := uc.cfg.Now()
	var u *user.User
	err = uc.d.Tx.WithTx(ctx, func(ctx context.Context) error {
		tok, err := uc.d.VerifyTokens.Consume(ctx, auth.HashToken(raw), now)
		if err != nil {
			return err
		}
		if err := uc.d.Users.MarkVerified(ctx, tok.UserID, now); err != nil {
			return err
		}
		u, err = uc.d.Users.GetByID(ctx, tok.UserID)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			uc.record(ctx, auditdomain.ActionEmailVerificationFailed, nil, "Invalid or expired verification token", m)
			return apperr.Validation(msgVerifyInvalid)
		}
		return apperr.Internal(fmt.Errorf("verify email: %w", err))
	}

	uc.record(ctx, auditdomain.ActionEmailVerificationSuccess, ptr(u.ID), "Email verified: "+u.Email, m)
	uc.notify(ctx, notification.Email{Kind: notification.KindWelcome, To: u.Email, Name: u.FirstName})
	return nil
}

// ForgotPassword issues a reset token when the account exists. The caller
// cannot tell whether it did: storage and dispatch failures are only logged.
func (uc *Usecase) ForgotPassword(ctx context.Context, email string, m Meta) (err error) {
	ctx, span := startSpan(ctx, "auth.forgot_password")
	defer func() {
		emailFlows.WithLabelValues("forgot_password", outcome(err)).Inc()
		endSpan(span, err)
	}()

	if err := uc.limit(ctx, "forgot", m.IP, "Too many requests. Please try again in a minute."); err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.Validation("Email is required")
	}

	log := obs.WithTrace(ctx, uc.log)
	u, lerr := uc.d.Users.GetByEmail(ctx, email)
	switch {
	case isNotFound(lerr):
		uc.record(ctx, auditdomain.ActionPasswordResetRequested, nil, "Password reset requested for unknown email", m)
		return nil
	case lerr != nil:
		log.Error("forgot password lookup failed", zap.Error(lerr))
		return nil
	}

	raw, terr := uc.newOneTimeToken(ctx, uc.d.ResetTokens, u, uc.cfg.ResetTTL)
	if terr != nil {
		log.Error("reset token not stored", zap.String("user_id", u.ID), zap.Error(terr))
		return nil
	}
	uc.notify(ctx, notification.Email{
		Kind:  notification.KindPasswordReset,
		To:    u.Email,
		Name:  u.FirstName,
		Token: raw,
	})
	uc.record(ctx, auditdomain.ActionPasswordResetRequested, ptr(u.ID), "Password reset requested", m)
	return nil
}

// ResetPassword consumes a reset token, replaces the password and revokes
// every refresh token of the account, all in one transaction.
func (uc *Usecase) ResetPassword(ctx context.Context, raw, newPassword string, m Meta) (err error) {
	ctx, span := startSpan(ctx, "auth.reset_password")
	defer func() {
		emailFlows.WithLabelValues("reset_password", outcome(err)).Inc()
		endSpan(span, err)
	}()

	if raw == "" || newPassword == "" {
		return apperr.Validation("Token and new password are required")
	}
	if err := uc.cfg.Policy.Check(newPassword); err != nil {
		return apperr.Validation(err.Error())
	}
	hash, err := uc.d.Hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}

	now := uc.cfg.Now()
	var userID string
	err = uc.d.Tx.WithTx(ctx, func(ctx context.Context) error {
		tok, err := uc.d.ResetTokens.Consume(ctx, auth.HashToken(raw), now)
		if err != nil {
			return err
		}
		userID = tok.UserID
		if err := uc.d.Users.UpdatePassword(ctx, tok.UserID, hash, now); err != nil {
			return err
		}
		return uc.d.RefreshTokens.DeleteByUser(ctx, tok.UserID)
	})
	if err != nil {
		if isNotFound(err) {
			uc.record(ctx, auditdomain.ActionPasswordResetFailed, nil, "Invalid or expired reset token", m)
			return apperr.Validation(msgResetInvalid)
		}
		return apperr.Internal(fmt.Errorf("reset password: %w", err))
	}

	uc.record(ctx, auditdomain.ActionPasswordResetSuccess, ptr(userID), "Password reset for user: "+userID, m)
	return nil
}
