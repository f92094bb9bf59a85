package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRedisAddr = "localhost:6379"

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "warden:test:"+uuid.NewString()+":")
}

func TestRedisFixedWindow(t *testing.T) {
	l := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		limited, err := l.IsLimited(ctx, "1.2.3.4", 5, 300*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, limited)
	}
	limited, err := l.IsLimited(ctx, "1.2.3.4", 5, 300*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, limited)

	time.Sleep(400 * time.Millisecond)

	limited, err = l.IsLimited(ctx, "1.2.3.4", 5, 300*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, limited)
}
