package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/auth"
	auditdomain "github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/domain/notification"
)

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), err.Error())
}

func TestSignUp_DuplicateEmailAndHashing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	s := h.signUp(t, "a@x.com")
	assert.False(t, s.User.IsVerified)
	assert.NotEmpty(t, s.AccessToken)
	assert.NotEmpty(t, s.RefreshToken)

	_, err := h.uc.SignUp(ctx, SignUpInput{Email: "a@x.com", Password: goodPassword, FirstName: "C", LastName: "D"}, meta("198.51.100.9"))
	requireKind(t, err, apperr.KindConflict)

	u, err := h.store.Users().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, goodPassword, u.PasswordHash)
	assert.True(t, h.hasher.Verify(goodPassword, u.PasswordHash))
	assert.False(t, h.hasher.Verify("Wrong123!", u.PasswordHash))
	assert.Equal(t, 1, h.store.RefreshTokenCount(u.ID))
}

func TestSignUp_EmailIsCaseSensitive(t *testing.T) {
	h := newHarness(t)
	h.signUp(t, "a@x.com")
	h.signUp(t, "A@x.com")
}

func TestSignUp_WeakPassword(t *testing.T) {
	h := newHarness(t)
	for _, pw := range []string{"short1!", "alllower1!", "ALLUPPER1!", "NoDigits!!", "NoSpecial11"} {
		_, err := h.uc.SignUp(context.Background(), SignUpInput{Email: "w@x.com", Password: pw, FirstName: "A", LastName: "B"}, meta("198.51.100.3"))
		requireKind(t, err, apperr.KindValidation)
	}
}

func TestSignUp_QueuesVerificationEmailAndAudits(t *testing.T) {
	h := newHarness(t)
	s := h.signUp(t, "v@x.com")

	e := h.mail.last(t, notification.KindVerification, "v@x.com")
	assert.NotEmpty(t, e.Token)
	assert.Equal(t, "A", e.Name)

	events := h.store.AuditEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, auditdomain.ActionUserSignup, events[len(events)-1].Action)
	require.NotNil(t, events[len(events)-1].UserID)
	assert.Equal(t, s.User.ID, *events[len(events)-1].UserID)
}

type failingNotifier struct{ mock.Mock }

func (f *failingNotifier) Notify(ctx context.Context, e notification.Email) error {
	return f.Called(ctx, e).Error(0)
}

type failingAudit struct{ mock.Mock }

func (f *failingAudit) Record(ctx context.Context, e auditdomain.Event) {
	f.Called(ctx, e)
}

func TestSignUp_NotificationFailureDoesNotFail(t *testing.T) {
	n := new(failingNotifier)
	n.On("Notify", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	h := newHarness(t, withNotifier(n))

	s := h.signUp(t, "n@x.com")
	assert.NotEmpty(t, s.AccessToken)
	n.AssertExpectations(t)
}

func TestLogin_AuditSinkIsCalledPerAttempt(t *testing.T) {
	a := new(failingAudit)
	a.On("Record", mock.Anything, mock.Anything).Return()
	h := newHarness(t, withAudit(a))

	_, err := h.uc.Login(context.Background(), "ghost@x.com", "Whatever1!", meta("198.51.100.4"))
	requireKind(t, err, apperr.KindAuthentication)
	a.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e auditdomain.Event) bool {
		return e.Action == auditdomain.ActionLoginFailed && e.UserID == nil &&
			strings.Contains(e.Description, "ghost@x.com") && !strings.Contains(e.Description, "Whatever1!")
	}))
}

func TestLogin_Paths(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "p@x.com")

	_, errUnknown := h.uc.Login(ctx, "nobody@x.com", goodPassword, meta("203.0.113.1"))
	requireKind(t, errUnknown, apperr.KindAuthentication)

	_, errWrong := h.uc.Login(ctx, "p@x.com", "Wrong123!", meta("203.0.113.2"))
	requireKind(t, errWrong, apperr.KindAuthentication)

	_, msgUnknown := apperr.Public(errUnknown)
	_, msgWrong := apperr.Public(errWrong)
	assert.Equal(t, msgUnknown, msgWrong)

	_, err := h.uc.Login(ctx, "p@x.com", goodPassword, meta("203.0.113.3"))
	requireKind(t, err, apperr.KindForbidden)

	tok := h.mail.last(t, notification.KindVerification, "p@x.com").Token
	require.NoError(t, h.uc.VerifyEmail(ctx, tok, meta("203.0.113.3")))

	s, err := h.uc.Login(ctx, "  p@x.com ", goodPassword, meta("203.0.113.4"))
	require.NoError(t, err)
	assert.True(t, s.User.IsVerified)

	u, err := h.store.Users().GetByEmail(ctx, "p@x.com")
	require.NoError(t, err)
	require.NotNil(t, u.LastLoginAt)
	assert.True(t, u.LastLoginAt.Equal(t0))

	var failed int
	for _, e := range h.store.AuditEvents() {
		assert.NotContains(t, e.Description, goodPassword)
		assert.NotContains(t, e.Description, "Wrong123!")
		if e.Action == auditdomain.ActionLoginFailed {
			failed++
		}
	}
	assert.Equal(t, 3, failed)
}

func TestLogin_RateLimited(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := h.uc.Login(ctx, "x@x.com", "Wrong123!", meta("203.0.113.50"))
		requireKind(t, err, apperr.KindAuthentication)
	}
	_, err := h.uc.Login(ctx, "x@x.com", "Wrong123!", meta("203.0.113.50"))
	requireKind(t, err, apperr.KindRateLimited)

	_, err = h.uc.Login(ctx, "x@x.com", "Wrong123!", meta("203.0.113.51"))
	requireKind(t, err, apperr.KindAuthentication)

	h.clock.Advance(time.Minute)
	_, err = h.uc.Login(ctx, "x@x.com", "Wrong123!", meta("203.0.113.50"))
	requireKind(t, err, apperr.KindAuthentication)
}

type brokenLimiter struct{}

func (brokenLimiter) IsLimited(context.Context, string, int, time.Duration) (bool, error) {
	return true, errors.New("redis: connection refused")
}

func TestLogin_LimiterFailureFailsOpen(t *testing.T) {
	h := newHarness(t, withLimiter(brokenLimiter{}))
	_, err := h.uc.Login(context.Background(), "x@x.com", "Wrong123!", meta("203.0.113.60"))
	requireKind(t, err, apperr.KindAuthentication)
}

func TestRefresh_RotationRejectsReplay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s1 := h.verifiedUser(t, "r@x.com")

	h.clock.Advance(time.Second)
	s2, err := h.uc.Refresh(ctx, s1.RefreshToken, meta("203.0.113.7"))
	require.NoError(t, err)
	assert.NotEqual(t, s1.RefreshToken, s2.RefreshToken)
	assert.NotEmpty(t, s2.AccessToken)

	_, err = h.uc.Refresh(ctx, s1.RefreshToken, meta("203.0.113.7"))
	requireKind(t, err, apperr.KindAuthentication)

	s3, err := h.uc.Refresh(ctx, s2.RefreshToken, meta("203.0.113.7"))
	require.NoError(t, err)
	assert.Equal(t, 2, h.store.RefreshTokenCount(s3.User.ID), "verify-time login plus the rotated lineage")
}

func TestRefresh_SameSecondRotationStillDistinct(t *testing.T) {
	h := newHarness(t)
	s1 := h.verifiedUser(t, "same@x.com")
	s2, err := h.uc.Refresh(context.Background(), s1.RefreshToken, meta("203.0.113.8"))
	require.NoError(t, err)
	assert.NotEqual(t, s1.RefreshToken, s2.RefreshToken)
	_, err = h.uc.Refresh(context.Background(), s1.RefreshToken, meta("203.0.113.8"))
	requireKind(t, err, apperr.KindAuthentication)
}

func TestRefresh_Rejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.verifiedUser(t, "rj@x.com")

	_, err := h.uc.Refresh(ctx, "", meta("203.0.113.9"))
	requireKind(t, err, apperr.KindAuthentication)

	_, err = h.uc.Refresh(ctx, "not-a-jwt", meta("203.0.113.9"))
	requireKind(t, err, apperr.KindAuthentication)

	_, err = h.uc.Refresh(ctx, s.AccessToken, meta("203.0.113.9"))
	requireKind(t, err, apperr.KindAuthentication)

	require.NoError(t, h.uc.Logout(ctx, s.RefreshToken, meta("203.0.113.9")))
	_, err = h.uc.Refresh(ctx, s.RefreshToken, meta("203.0.113.9"))
	requireKind(t, err, apperr.KindAuthentication)
}

func TestRefresh_ExpiredRecordIsDeleted(t *testing.T) {
	h := newHarness(t, withLeeway(time.Minute))
	ctx := context.Background()
	s := h.verifiedUser(t, "exp@x.com")
	before := h.store.RefreshTokenCount(s.User.ID)

	// Past the record's expiry but inside the codec's leeway.
	h.clock.Advance(7*24*time.Hour + 10*time.Second)
	_, err := h.uc.Refresh(ctx, s.RefreshToken, meta("203.0.113.10"))
	requireKind(t, err, apperr.KindAuthentication)

	_, err = h.store.RefreshTokens().Get(ctx, auth.HashToken(s.RefreshToken))
	assert.Error(t, err)
	assert.Equal(t, before-1, h.store.RefreshTokenCount(s.User.ID))
}

func TestLogout_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.verifiedUser(t, "lo@x.com")

	require.NoError(t, h.uc.Logout(ctx, "", meta("203.0.113.11")))
	require.NoError(t, h.uc.Logout(ctx, "garbage", meta("203.0.113.11")))
	require.NoError(t, h.uc.Logout(ctx, s.RefreshToken, meta("203.0.113.11")))
	require.NoError(t, h.uc.Logout(ctx, s.RefreshToken, meta("203.0.113.11")))

	var logouts int
	for _, e := range h.store.AuditEvents() {
		if e.Action == auditdomain.ActionUserLogout {
			logouts++
		}
	}
	assert.Equal(t, 2, logouts)
}

func TestVerifyEmail_SingleUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "once@x.com")
	tok := h.mail.last(t, notification.KindVerification, "once@x.com").Token

	require.NoError(t, h.uc.VerifyEmail(ctx, tok, meta("203.0.113.12")))
	requireKind(t, h.uc.VerifyEmail(ctx, tok, meta("203.0.113.12")), apperr.KindValidation)
	requireKind(t, h.uc.VerifyEmail(ctx, "", meta("203.0.113.12")), apperr.KindValidation)

	h.mail.last(t, notification.KindWelcome, "once@x.com")
}

func TestVerifyEmail_Expired(t *testing.T) {
	h := newHarness(t)
	h.signUp(t, "late@x.com")
	tok := h.mail.last(t, notification.KindVerification, "late@x.com").Token

	h.clock.Advance(24 * time.Hour)
	err := h.uc.VerifyEmail(context.Background(), tok, meta("203.0.113.13"))
	requireKind(t, err, apperr.KindValidation)
}

func TestForgotPassword_AntiEnumeration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "known@x.com")

	require.NoError(t, h.uc.ForgotPassword(ctx, "known@x.com", meta("203.0.113.14")))
	require.NoError(t, h.uc.ForgotPassword(ctx, "unknown@x.com", meta("203.0.113.14")))
	requireKind(t, h.uc.ForgotPassword(ctx, "  ", meta("203.0.113.14")), apperr.KindValidation)

	e := h.mail.last(t, notification.KindPasswordReset, "known@x.com")
	assert.NotEmpty(t, e.Token)

	var requested int
	for _, ev := range h.store.AuditEvents() {
		if ev.Action == auditdomain.ActionPasswordResetRequested {
			requested++
		}
	}
	assert.Equal(t, 2, requested)
}

func TestForgotPassword_RateLimited(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, h.uc.ForgotPassword(ctx, "unknown@x.com", meta("203.0.113.15")))
	}
	requireKind(t, h.uc.ForgotPassword(ctx, "unknown@x.com", meta("203.0.113.15")), apperr.KindRateLimited)
}

func TestResetPassword_InvalidatesSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.verifiedUser(t, "reset@x.com")

	require.NoError(t, h.uc.ForgotPassword(ctx, "reset@x.com", meta("203.0.113.16")))
	tok := h.mail.last(t, notification.KindPasswordReset, "reset@x.com").Token

	requireKind(t, h.uc.ResetPassword(ctx, tok, "weak", meta("203.0.113.16")), apperr.KindValidation)
	require.NoError(t, h.uc.ResetPassword(ctx, tok, newPassword, meta("203.0.113.16")))
	assert.Zero(t, h.store.RefreshTokenCount(a.User.ID))

	_, err := h.uc.Refresh(ctx, a.RefreshToken, meta("203.0.113.16"))
	requireKind(t, err, apperr.KindAuthentication)

	_, err = h.uc.Login(ctx, "reset@x.com", goodPassword, meta("203.0.113.17"))
	requireKind(t, err, apperr.KindAuthentication)
	_, err = h.uc.Login(ctx, "reset@x.com", newPassword, meta("203.0.113.18"))
	require.NoError(t, err)

	requireKind(t, h.uc.ResetPassword(ctx, tok, newPassword, meta("203.0.113.16")), apperr.KindValidation)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "slow@x.com")
	require.NoError(t, h.uc.ForgotPassword(ctx, "slow@x.com", meta("203.0.113.19")))
	tok := h.mail.last(t, notification.KindPasswordReset, "slow@x.com").Token

	h.clock.Advance(time.Hour)
	requireKind(t, h.uc.ResetPassword(ctx, tok, newPassword, meta("203.0.113.19")), apperr.KindValidation)
}

func TestVerifyToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.verifiedUser(t, "vt@x.com")

	v, err := h.uc.VerifyToken(ctx, s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "vt@x.com", v.Email)
	assert.True(t, v.IsVerified)

	_, err = h.uc.VerifyToken(ctx, s.RefreshToken)
	requireKind(t, err, apperr.KindAuthentication)

	h.clock.Advance(15 * time.Minute)
	_, err = h.uc.VerifyToken(ctx, s.AccessToken)
	requireKind(t, err, apperr.KindAuthentication)
}
