package main

import (
	"go.uber.org/zap"

	config "github.com/NordCoder/Warden/internal/config/auth-api"
	"github.com/NordCoder/Warden/internal/obs"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.AsLoggerConfig())
}
