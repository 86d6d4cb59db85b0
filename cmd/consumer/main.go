// Package main provides the Redis Streams consumer that stands in for the
// downstream notify service and acknowledges delivered events.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jnst/fan-notification-outbox/internal/app"
	"github.com/jnst/fan-notification-outbox/internal/config"
	"github.com/jnst/fan-notification-outbox/internal/consumer"
	"github.com/jnst/fan-notification-outbox/internal/database"
	"github.com/jnst/fan-notification-outbox/internal/logger"
	"github.com/jnst/fan-notification-outbox/internal/repository"
)

const exitCode = 1

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("consumer failed", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := app.NewRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	acker := consumer.NewEventStoreAcknowledger(repository.NewEventRepositoryImpl(pool))
	streamConsumer := consumer.NewStreamConsumer(
		redisClient,
		cfg.Notify.Stream,
		cfg.Consumer.Group,
		cfg.Consumer.Name,
		acker,
		log,
		consumer.WithClaimIdle(cfg.Consumer.ClaimIdle),
	)

	return streamConsumer.Run(ctx)
}
