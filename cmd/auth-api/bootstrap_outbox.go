package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/Warden/internal/config/auth-api"
	"github.com/NordCoder/Warden/internal/domain/notification"
	domainoutbox "github.com/NordCoder/Warden/internal/domain/outbox"
	"github.com/NordCoder/Warden/internal/obs/retry"
	"github.com/NordCoder/Warden/internal/outbox"
	"github.com/NordCoder/Warden/internal/repository/kafka"
)

// logPublisher stands in for kafka in local runs. Tokens are never logged.
type logPublisher struct{ log *zap.Logger }

func (p logPublisher) PublishEmailRequested(_ context.Context, _ string, e notification.Email) error {
	p.log.Info("email requested (kafka disabled)",
		zap.String("kind", string(e.Kind)),
		zap.String("to", e.To),
	)
	return nil
}

func initOutbox(cfg *config.Config, repo domainoutbox.Repository, logger *zap.Logger) (*outbox.Runner, func()) {
	var pub outbox.EmailPublisher = logPublisher{log: logger.With(zap.String("component", "outbox.log_publisher"))}
	closeFn := func() {}
	if cfg.Kafka.Enable {
		p := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
		pub = kafka.NewEmailEvents(p)
		closeFn = func() { _ = p.Close() }
	}
	dispatch := outbox.MakeGlobalOutboxHandler(pub, retry.DefaultKafkaPolicy(logger))
	return outbox.NewOutboxRunner(logger, repo, dispatch, cfg.Outbox), closeFn
}
