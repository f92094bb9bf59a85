package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	config "github.com/NordCoder/Warden/internal/config/auth-api"
	auditdomain "github.com/NordCoder/Warden/internal/domain/audit"
	domainauth "github.com/NordCoder/Warden/internal/domain/auth"
	"github.com/NordCoder/Warden/internal/domain/outbox"
	"github.com/NordCoder/Warden/internal/domain/user"
	"github.com/NordCoder/Warden/internal/repository/memory"
	pg "github.com/NordCoder/Warden/internal/repository/postgres"
	authsvc "github.com/NordCoder/Warden/internal/services/auth-api/auth"
)

// storage is the set of repositories behind one transactor.
type storage struct {
	tx      authsvc.Transactor
	users   user.Repo
	refresh domainauth.RefreshTokenRepo
	verify  domainauth.OneTimeTokenRepo
	reset   domainauth.OneTimeTokenRepo
	audit   auditdomain.Repo
	outbox  outbox.Repository
	ping    func(context.Context) error
	close   func()
}

func initStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; state is lost on restart")
		s := memory.New()
		return &storage{
			tx:      s,
			users:   s.Users(),
			refresh: s.RefreshTokens(),
			verify:  s.VerificationTokens(),
			reset:   s.ResetTokens(),
			audit:   s.Audit(),
			outbox:  s.Outbox(),
			ping:    s.Ping,
			close:   func() {},
		}, nil
	case config.DriverPostgres:
		db, err := pg.New(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		return &storage{
			tx:      pg.NewTransactor(db, logger),
			users:   pg.NewUserRepo(db),
			refresh: pg.NewRefreshTokenRepo(db),
			verify:  pg.NewVerificationTokenRepo(db),
			reset:   pg.NewResetTokenRepo(db),
			audit:   pg.NewAuditRepo(db),
			outbox:  pg.NewOutboxRepo(db),
			ping:    db.Ping,
			close:   db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
