package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/audit"
	"github.com/NordCoder/Warden/internal/auth"
	config "github.com/NordCoder/Warden/internal/config/auth-api"
	"github.com/NordCoder/Warden/internal/outbox"
	authsvc "github.com/NordCoder/Warden/internal/services/auth-api/auth"
	"github.com/NordCoder/Warden/internal/services/auth-api/gate"
)

func main() {
	cfgPath := flag.String("config", os.Getenv(config.EnvConfigPath), "path to yaml config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting auth-api",
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
		zap.String("storage", cfg.Storage.Driver),
	)

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	store, err := initStorage(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("storage init", zap.Error(err))
	}
	defer store.close()

	limiter, redisProbe, closeLimiter, err := initLimiter(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("rate limiter init", zap.Error(err))
	}
	defer closeLimiter()

	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("password hasher", zap.Error(err))
	}
	access, err := auth.NewCodec(auth.TokenAccess, auth.CodecConfig{
		Secret: cfg.Auth.AccessSecret, TTL: cfg.Auth.AccessTTL, Leeway: cfg.Auth.ClockSkew,
	})
	if err != nil {
		logger.Fatal("access codec", zap.Error(err))
	}
	refresh, err := auth.NewCodec(auth.TokenRefresh, auth.CodecConfig{
		Secret: cfg.Auth.RefreshSecret, TTL: cfg.Auth.RefreshTTL, Leeway: cfg.Auth.ClockSkew,
	})
	if err != nil {
		logger.Fatal("refresh codec", zap.Error(err))
	}

	uc := authsvc.NewUsecase(authsvc.Deps{
		Tx:            store.tx,
		Users:         store.users,
		RefreshTokens: store.refresh,
		VerifyTokens:  store.verify,
		ResetTokens:   store.reset,
		Hasher:        hasher,
		Access:        access,
		Refresh:       refresh,
		Limiter:       limiter,
		Audit:         audit.NewRecorder(store.audit, logger),
		Notifier:      outbox.NewNotifier(store.outbox),
		Log:           logger,
	}, authsvc.Config{
		VerifyTTL:  cfg.Auth.VerifyTTL,
		ResetTTL:   cfg.Auth.ResetTTL,
		RateLimit:  cfg.RateLimit.Limit,
		RateWindow: cfg.RateLimit.Window,
		Policy:     cfg.Password.AsPolicy(),
	})
	ctrl := authsvc.NewController(uc, authsvc.Opts{
		Logger: logger,
		Cookies: authsvc.CookieOpts{
			Name:         cfg.Auth.CookieName,
			Domain:       cfg.Auth.CookieDomain,
			Path:         cfg.Auth.CookiePath,
			Secure:       cfg.Auth.CookieSecure,
			RefreshTTL:   cfg.Auth.RefreshTTL,
			MirrorAccess: cfg.Auth.MirrorAccessCookie,
			AccessName:   cfg.Auth.AccessCookieName,
			AccessTTL:    cfg.Auth.AccessTTL,
		},
		TrustProxy: cfg.Server.TrustProxy,
	})
	g := gate.New(cfg.Gate.AsGateConfig(cfg.Auth), access, logger)

	runner, closeOutbox := initOutbox(cfg, store.outbox, logger)
	defer closeOutbox()
	runner.Start(rootCtx)

	grpcServer, hs, grpcLn, err := buildGRPCServer(cfg)
	if err != nil {
		logger.Fatal("build grpc", zap.Error(err))
	}
	probes := map[string]func(context.Context) error{"storage": store.ping}
	if redisProbe != nil {
		probes["redis"] = redisProbe
	}
	go runProber(rootCtx, hs, logger, probes)

	grpcErrCh := make(chan error, 1)
	go func() { grpcErrCh <- serveGRPC(grpcServer, grpcLn, logger) }()

	httpSrv, healthConn, err := buildHTTPServer(cfg, logger, ctrl, g)
	if err != nil {
		logger.Fatal("build http", zap.Error(err))
	}
	defer func() { _ = healthConn.Close() }()

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-grpcErrCh:
		if err != nil {
			logger.Error("grpc serve", zap.Error(err))
		}
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}
	stop()

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := shutdownHTTP(shCtx, httpSrv); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	runner.Wait()

	time.Sleep(100 * time.Millisecond)
	logger.Info("bye")
}
