package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestMemoryFixedWindow(t *testing.T) {
	ctx := context.Background()
	clk := &stepClock{t: time.Unix(1_700_000_000, 0)}
	l := NewMemory(WithClock(clk.Now))

	for i := 0; i < 5; i++ {
		limited, err := l.IsLimited(ctx, "1.2.3.4", 5, 60*time.Second)
		require.NoError(t, err)
		assert.False(t, limited, "attempt %d", i+1)
		clk.Advance(time.Second)
	}

	limited, err := l.IsLimited(ctx, "1.2.3.4", 5, 60*time.Second)
	require.NoError(t, err)
	assert.True(t, limited, "6th attempt inside the window")

	clk.Advance(60 * time.Second)
	limited, err = l.IsLimited(ctx, "1.2.3.4", 5, 60*time.Second)
	require.NoError(t, err)
	assert.False(t, limited, "window elapsed")

	for i := 0; i < 4; i++ {
		limited, _ = l.IsLimited(ctx, "1.2.3.4", 5, 60*time.Second)
		assert.False(t, limited)
	}
	limited, _ = l.IsLimited(ctx, "1.2.3.4", 5, 60*time.Second)
	assert.True(t, limited, "counter restarted at one")
}

func TestMemoryKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()

	for i := 0; i < 3; i++ {
		_, _ = l.IsLimited(ctx, "a", 3, time.Minute)
	}
	limited, _ := l.IsLimited(ctx, "a", 3, time.Minute)
	assert.True(t, limited)

	limited, _ = l.IsLimited(ctx, "b", 3, time.Minute)
	assert.False(t, limited)
}

func TestMemoryEvictsLeastRecentlyAttempted(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(WithMaxKeys(2))

	_, _ = l.IsLimited(ctx, "a", 1, time.Minute)
	_, _ = l.IsLimited(ctx, "b", 1, time.Minute)

	limited, _ := l.IsLimited(ctx, "a", 1, time.Minute)
	assert.True(t, limited, "a is now most recent")

	_, _ = l.IsLimited(ctx, "c", 1, time.Minute)
	assert.Equal(t, 2, l.Len())

	limited, _ = l.IsLimited(ctx, "a", 1, time.Minute)
	assert.True(t, limited, "a survived eviction")

	limited, _ = l.IsLimited(ctx, "b", 1, time.Minute)
	assert.False(t, limited, "b was evicted and starts fresh")
}

func TestMemoryConcurrentNeverOverLimits(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()

	const limit = 50
	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limited, err := l.IsLimited(ctx, "shared", limit, time.Hour)
			if err == nil && !limited {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(limit), allowed.Load())
}

func BenchmarkMemoryIsLimited(b *testing.B) {
	ctx := context.Background()
	l := NewMemory(WithMaxKeys(1024))
	for i := 0; i < b.N; i++ {
		_, _ = l.IsLimited(ctx, fmt.Sprintf("k%d", i%2048), 5, time.Minute)
	}
}
