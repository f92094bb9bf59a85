package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// INCR the window counter and start its TTL on the first hit. The counter
// expiring is what resets the window.
var fixedWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// Redis shares counters between instances.
type Redis struct {
	client    redis.Scripter
	keyPrefix string
}

func NewRedis(client redis.Scripter, keyPrefix string) *Redis {
	return &Redis{client: client, keyPrefix: keyPrefix}
}

var _ Limiter = (*Redis)(nil)

func (r *Redis) IsLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	count, err := fixedWindow.Run(ctx, r.client, []string{r.keyPrefix + key}, ms).Int64()
	if err != nil {
		return false, fmt.Errorf("redis rate limit script: %w", err)
	}
	limited := count > int64(limit)
	observe("redis", limited)
	return limited, nil
}
