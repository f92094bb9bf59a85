package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/audit"
	"github.com/NordCoder/Warden/internal/auth"
	"github.com/NordCoder/Warden/internal/domain/notification"
	"github.com/NordCoder/Warden/internal/ratelimit"
	"github.com/NordCoder/Warden/internal/repository/memory"
)

const (
	goodPassword = "Abc123!@"
	newPassword  = "Xyz789#$"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mailbox struct {
	mu     sync.Mutex
	emails []notification.Email
}

func (o *mailbox) Notify(_ context.Context, e notification.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emails = append(o.emails, e)
	return nil
}

func (o *mailbox) last(t *testing.T, kind notification.Kind, to string) notification.Email {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.emails) - 1; i >= 0; i-- {
		if o.emails[i].Kind == kind && o.emails[i].To == to {
			return o.emails[i]
		}
	}
	t.Fatalf("no %s email for %s", kind, to)
	return notification.Email{}
}

type harness struct {
	store  *memory.Store
	clock  *clock
	mail   *mailbox
	hasher *auth.PasswordHasher
	uc     *Usecase
}

type harnessOpt func(*Deps, *Config, *auth.CodecConfig)

func withLeeway(d time.Duration) harnessOpt {
	return func(_ *Deps, _ *Config, cc *auth.CodecConfig) { cc.Leeway = d }
}

func withLimiter(l ratelimit.Limiter) harnessOpt {
	return func(d *Deps, _ *Config, _ *auth.CodecConfig) { d.Limiter = l }
}

func withNotifier(n notification.Notifier) harnessOpt {
	return func(d *Deps, _ *Config, _ *auth.CodecConfig) { d.Notifier = n }
}

func withAudit(r audit.Recorder) harnessOpt {
	return func(d *Deps, _ *Config, _ *auth.CodecConfig) { d.Audit = r }
}

func newHarness(t *testing.T, opts ...harnessOpt) *harness {
	t.Helper()
	h := &harness{
		store: memory.New(),
		clock: &clock{now: t0},
		mail:  &mailbox{},
	}
	hasher, err := auth.NewPasswordHasher(auth.MinBcryptCost)
	require.NoError(t, err)
	h.hasher = hasher

	d := Deps{
		Tx:            h.store,
		Users:         h.store.Users(),
		RefreshTokens: h.store.RefreshTokens(),
		VerifyTokens:  h.store.VerificationTokens(),
		ResetTokens:   h.store.ResetTokens(),
		Hasher:        hasher,
		Limiter:       ratelimit.NewMemory(ratelimit.WithClock(h.clock.Now)),
		Audit:         audit.NewRecorder(h.store.Audit(), zap.NewNop()),
		Notifier:      h.mail,
		Log:           zap.NewNop(),
	}
	cfg := Config{
		VerifyTTL:  24 * time.Hour,
		ResetTTL:   time.Hour,
		RateLimit:  5,
		RateWindow: time.Minute,
		Policy:     auth.DefaultPasswordPolicy(),
		Now:        h.clock.Now,
	}
	cc := auth.CodecConfig{Now: h.clock.Now}
	for _, o := range opts {
		o(&d, &cfg, &cc)
	}

	ac := cc
	ac.Secret, ac.TTL = "access-secret", 15*time.Minute
	d.Access, err = auth.NewCodec(auth.TokenAccess, ac)
	require.NoError(t, err)
	rc := cc
	rc.Secret, rc.TTL = "refresh-secret", 7*24*time.Hour
	d.Refresh, err = auth.NewCodec(auth.TokenRefresh, rc)
	require.NoError(t, err)

	h.uc = NewUsecase(d, cfg)
	return h
}

func meta(ip string) Meta { return Meta{IP: ip, UserAgent: "go-test"} }

func (h *harness) signUp(t *testing.T, email string) *Session {
	t.Helper()
	s, err := h.uc.SignUp(context.Background(), SignUpInput{
		Email: email, Password: goodPassword, FirstName: "A", LastName: "B",
	}, meta("198.51.100.1"))
	require.NoError(t, err)
	return s
}

// verifiedUser signs up and verifies email, returning a fresh login session.
func (h *harness) verifiedUser(t *testing.T, email string) *Session {
	t.Helper()
	h.signUp(t, email)
	tok := h.mail.last(t, notification.KindVerification, email).Token
	require.NoError(t, h.uc.VerifyEmail(context.Background(), tok, meta("198.51.100.1")))
	s, err := h.uc.Login(context.Background(), email, goodPassword, meta("198.51.100.2"))
	require.NoError(t, err)
	return s
}
