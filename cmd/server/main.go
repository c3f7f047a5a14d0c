package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"w9-search/internal/config"
	"w9-search/internal/infrastructure/logger"
	"w9-search/internal/infrastructure/observability"
)

func init() {
	logger.GetLogger()
}

func main() {
	log := logger.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	if lg, err := logger.New(cfg.LogLevel, cfg.LogFormat); err == nil {
		log = lg
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("initialize observability")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown telemetry")
			}
		}()
	}

	application, err := buildApplication(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build application")
	}

	log.Info().
		Int("http_port", cfg.HTTPPort).
		Int("metrics_port", cfg.MetricsPort).
		Str("environment", cfg.Environment).
		Msg("query engine starting")

	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped")
	}
}
