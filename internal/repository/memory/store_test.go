package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Warden/internal/domain"
	"github.com/NordCoder/Warden/internal/domain/auth"
	"github.com/NordCoder/Warden/internal/domain/user"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s *Store, id, email string) {
	t.Helper()
	require.NoError(t, s.Users().Create(context.Background(), &user.User{
		ID: id, Email: email, PasswordHash: "h", Role: user.RoleUser, CreatedAt: t0,
	}))
}

func TestUserUniqueEmail(t *testing.T) {
	s := New()
	seedUser(t, s, "u1", "a@x.com")

	err := s.Users().Create(context.Background(), &user.User{ID: "u2", Email: "a@x.com"})
	require.ErrorIs(t, err, domain.ErrConflict)

	err = s.Users().Create(context.Background(), &user.User{ID: "u3", Email: "A@x.com"})
	require.NoError(t, err, "emails compare byte-exactly")
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedUser(t, s, "u1", "a@x.com")
	require.NoError(t, s.RefreshTokens().Create(ctx, &auth.RefreshToken{TokenHash: "old", UserID: "u1", ExpiresAt: t0.Add(time.Hour)}))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.RefreshTokens().Consume(ctx, "old", t0)
		require.NoError(t, err)
		require.NoError(t, s.RefreshTokens().Create(ctx, &auth.RefreshToken{TokenHash: "new", UserID: "u1", ExpiresAt: t0.Add(time.Hour)}))
		require.NoError(t, s.Users().UpdatePassword(ctx, "u1", "h2", t0))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.RefreshTokens().Get(ctx, "old")
	assert.NoError(t, err, "consumed record restored")
	_, err = s.RefreshTokens().Get(ctx, "new")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	u, err := s.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "h", u.PasswordHash)
}

func TestWithTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedUser(t, s, "u1", "a@x.com")

	err := s.WithTx(ctx, func(ctx context.Context) error {
		return s.WithTx(ctx, func(ctx context.Context) error {
			return s.Users().MarkVerified(ctx, "u1", t0)
		})
	})
	require.NoError(t, err)

	u, err := s.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.IsVerified)
	require.NotNil(t, u.EmailVerifiedAt)
}

func TestConsumeIsSingleUse(t *testing.T) {
	s := New()
	ctx := context.Background()
	repo := s.RefreshTokens()
	require.NoError(t, repo.Create(ctx, &auth.RefreshToken{TokenHash: "h", UserID: "u1", ExpiresAt: t0.Add(time.Hour)}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Consume(ctx, "h", t0); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestConsumeRejectsExpired(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.ResetTokens().Create(ctx, &auth.OneTimeToken{TokenHash: "r", UserID: "u1", ExpiresAt: t0}))

	_, err := s.ResetTokens().Consume(ctx, "r", t0)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.VerificationTokens().Consume(ctx, "r", t0.Add(-time.Minute))
	require.ErrorIs(t, err, domain.ErrNotFound, "tables are separate")
}

func TestDeleteByUser(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, h := range []string{"a", "b"} {
		require.NoError(t, s.RefreshTokens().Create(ctx, &auth.RefreshToken{TokenHash: h, UserID: "u1", ExpiresAt: t0.Add(time.Hour)}))
	}
	require.NoError(t, s.RefreshTokens().Create(ctx, &auth.RefreshToken{TokenHash: "c", UserID: "u2", ExpiresAt: t0.Add(time.Hour)}))

	require.NoError(t, s.RefreshTokens().DeleteByUser(ctx, "u1"))
	assert.Equal(t, 0, s.RefreshTokenCount("u1"))
	assert.Equal(t, 1, s.RefreshTokenCount("u2"))
}

func TestOutboxPickAndMark(t *testing.T) {
	s := New()
	ctx := context.Background()
	repo := s.Outbox()

	require.NoError(t, repo.Enqueue(ctx, "k1", 1, []byte("a")))
	require.NoError(t, repo.Enqueue(ctx, "k1", 1, []byte("dup")))
	require.NoError(t, repo.Enqueue(ctx, "k2", 1, []byte("b")))

	batch, err := repo.PickBatch(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	again, err := repo.PickBatch(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again, "claimed messages are not re-picked before ttl")

	require.NoError(t, repo.MarkSuccess(ctx, []string{"k1", "k2"}))
	stale, err := repo.PickBatch(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, stale)
}
