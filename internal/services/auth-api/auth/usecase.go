// Package auth is the session lifecycle: signup and login issue token pairs,
// refresh rotates them, and the email flows verify accounts and reset
// passwords. The Controller exposes it under /auth/.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/audit"
	"github.com/NordCoder/Warden/internal/auth"
	"github.com/NordCoder/Warden/internal/domain"
	auditdomain "github.com/NordCoder/Warden/internal/domain/audit"
	domainauth "github.com/NordCoder/Warden/internal/domain/auth"
	"github.com/NordCoder/Warden/internal/domain/notification"
	"github.com/NordCoder/Warden/internal/domain/user"
	"github.com/NordCoder/Warden/internal/obs"
	"github.com/NordCoder/Warden/internal/ratelimit"
)

// Transactor runs fn so that every repository call made with its ctx commits
// or rolls back together.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Meta is the request origin recorded with audit events.
type Meta struct {
	IP        string
	UserAgent string
}

type Config struct {
	VerifyTTL  time.Duration
	ResetTTL   time.Duration
	RateLimit  int
	RateWindow time.Duration
	Policy     auth.PasswordPolicy
	Now        func() time.Time
}

type Deps struct {
	Tx            Transactor
	Users         user.Repo
	RefreshTokens domainauth.RefreshTokenRepo
	VerifyTokens  domainauth.OneTimeTokenRepo
	ResetTokens   domainauth.OneTimeTokenRepo
	Hasher        *auth.PasswordHasher
	Access        *auth.Codec
	Refresh       *auth.Codec
	Limiter       ratelimit.Limiter
	Audit         audit.Recorder
	Notifier      notification.Notifier
	Log           *zap.Logger
}

type Usecase struct {
	d   Deps
	cfg Config
	log *zap.Logger
}

func NewUsecase(d Deps, cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.VerifyTTL <= 0 {
		cfg.VerifyTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{d: d, cfg: cfg, log: log.With(zap.String("component", "auth.usecase"))}
}

// Session is an issued token pair. The refresh token only ever leaves through
// the cookie.
type Session struct {
	User           user.View
	AccessToken    string
	AccessExpires  time.Time
	RefreshToken   string
	RefreshExpires time.Time
}

const oneTimeTokenBytes = 32

var tracer = otel.Tracer("auth.uc")

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil && apperr.KindOf(err) == apperr.KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// issue signs a pair for u and records the refresh token in the ledger.
// It runs inside the caller's transaction.
func (uc *Usecase) issue(ctx context.Context, u *user.User) (*Session, error) {
	id := auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
	access, accessExp, err := uc.d.Access.Sign(id)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := uc.d.Refresh.Sign(id)
	if err != nil {
		return nil, err
	}
	rec := &domainauth.RefreshToken{
		TokenHash: auth.HashToken(refresh),
		UserID:    u.ID,
		ExpiresAt: refreshExp,
		CreatedAt: uc.cfg.Now(),
	}
	if err := uc.d.RefreshTokens.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Session{
		User:           u.View(),
		AccessToken:    access,
		AccessExpires:  accessExp,
		RefreshToken:   refresh,
		RefreshExpires: refreshExp,
	}, nil
}

// newOneTimeToken stores a hashed single-use token and returns the raw value.
func (uc *Usecase) newOneTimeToken(ctx context.Context, repo domainauth.OneTimeTokenRepo, u *user.User, ttl time.Duration) (string, error) {
	raw, err := auth.GenerateRawToken(oneTimeTokenBytes)
	if err != nil {
		return "", err
	}
	now := uc.cfg.Now()
	err = repo.Create(ctx, &domainauth.OneTimeToken{
		TokenHash: auth.HashToken(raw),
		UserID:    u.ID,
		Email:     u.Email,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("store one-time token: %w", err)
	}
	return raw, nil
}

// limit consults the limiter. A limiter failure lets the request through.
func (uc *Usecase) limit(ctx context.Context, scope, ip, msg string) error {
	limited, err := uc.d.Limiter.IsLimited(ctx, scope+":"+ip, uc.cfg.RateLimit, uc.cfg.RateWindow)
	if err != nil {
		obs.WithTrace(ctx, uc.log).Warn("rate limiter unavailable, allowing",
			zap.String("scope", scope), zap.Error(err))
		return nil
	}
	if limited {
		return apperr.RateLimited(msg)
	}
	return nil
}

func (uc *Usecase) record(ctx context.Context, action auditdomain.Action, userID *string, desc string, m Meta) {
	uc.d.Audit.Record(ctx, auditdomain.Event{
		UserID:      userID,
		Action:      action,
		Description: desc,
		IPAddress:   orUnknown(m.IP),
		UserAgent:   orUnknown(m.UserAgent),
	})
}

// notify hands e to the notifier after the triggering change committed.
// Delivery problems are logged and never surface to the caller.
func (uc *Usecase) notify(ctx context.Context, e notification.Email) {
	if uc.d.Notifier == nil {
		return
	}
	e.At = uc.cfg.Now()
	if err := uc.d.Notifier.Notify(context.WithoutCancel(ctx), e); err != nil {
		obs.WithTrace(ctx, uc.log).Error("notification dispatch failed",
			zap.String("kind", string(e.Kind)), zap.Error(err))
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func ptr(s string) *string { return &s }

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }
