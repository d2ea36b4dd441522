package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/luanatech/storefront/internal/app"
	"github.com/luanatech/storefront/internal/config"
	"github.com/luanatech/storefront/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("storefront exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; the process environment always wins.
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.NewWithFormat("storefront", cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(log)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("storefront starting",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("api_url", cfg.APIURL),
		slog.Bool("kafka_enabled", cfg.KafkaEnabled),
		slog.Bool("circuit_breaker_enabled", cfg.CBEnabled),
	)
	if err := application.Run(ctx); err != nil {
		return err
	}
	log.Info("storefront stopped")
	return nil
}
