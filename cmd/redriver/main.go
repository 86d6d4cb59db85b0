// Package main provides the re-drive job that retries pending outbox events.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jnst/fan-notification-outbox/internal/app"
	"github.com/jnst/fan-notification-outbox/internal/config"
	"github.com/jnst/fan-notification-outbox/internal/logger"
	"github.com/jnst/fan-notification-outbox/internal/service"
)

const (
	closeTimeout = 30 * time.Second
	exitCode     = 1
)

func redriveOnce(ctx context.Context, outbox service.OutboxService, maxAgeHours int, log *slog.Logger) {
	result, err := outbox.RedrivePending(ctx, maxAgeHours)
	if err != nil {
		log.Error("failed to re-drive pending events", slog.String("error", err.Error()))
		return
	}

	log.Info("re-drive pass finished",
		slog.Int("total", result.Total),
		slog.Int("sent", result.Sent),
		slog.Int("processed", result.Processed),
		slog.Int("failed", result.Failed))
}

func runRedriveLoop(ctx context.Context, outbox service.OutboxService, cfg config.RedriveConfig, log *slog.Logger) {
	redriveOnce(ctx, outbox, cfg.MaxAgeHours, log)

	if cfg.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("redriver stopped")
			return
		case <-ticker.C:
			redriveOnce(ctx, outbox, cfg.MaxAgeHours, log)
		}
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outbox, err := app.NewOutbox(ctx, cfg, log)
	if err != nil {
		log.Error("failed to set up outbox", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	log.Info("starting redriver",
		slog.Duration("interval", cfg.Redrive.Interval),
		slog.Int("max_age_hours", cfg.Redrive.MaxAgeHours))

	runRedriveLoop(ctx, outbox.Service, cfg.Redrive, log)

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := outbox.Close(closeCtx); err != nil {
		log.Error("failed to close outbox", slog.String("error", err.Error()))
	}
}
