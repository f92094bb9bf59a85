package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/Warden/internal/config/auth-api"
	"github.com/NordCoder/Warden/internal/ratelimit"
	redisinfra "github.com/NordCoder/Warden/internal/repository/redis"
)

// initLimiter returns the shared redis limiter when enabled, else the
// in-process one. The probe is nil for the in-process limiter.
func initLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ratelimit.Limiter, func(context.Context) error, func(), error) {
	if !cfg.Redis.Enable {
		logger.Info("rate limiter: in-memory", zap.Int("max_keys", cfg.RateLimit.MaxKeys))
		return ratelimit.NewMemory(ratelimit.WithMaxKeys(cfg.RateLimit.MaxKeys)), nil, func() {}, nil
	}
	client, err := redisinfra.New(ctx, cfg.Redis.AsClientConfig())
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("rate limiter: redis", zap.String("addr", cfg.Redis.Addr))
	return ratelimit.NewRedis(client, cfg.Redis.KeyPrefix), redisinfra.Pinger(client), func() { _ = client.Close() }, nil
}
