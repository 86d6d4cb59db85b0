// Package main provides the HTTP API server for the fan notification outbox.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jnst/fan-notification-outbox/internal/app"
	"github.com/jnst/fan-notification-outbox/internal/config"
	"github.com/jnst/fan-notification-outbox/internal/database"
	"github.com/jnst/fan-notification-outbox/internal/handler"
	"github.com/jnst/fan-notification-outbox/internal/logger"
)

const (
	shutdownTimeout = 30 * time.Second
	exitCode        = 1
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("api server failed", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := database.RunMigrations(cfg.DatabaseURL, log); err != nil {
			return err
		}
	}

	outbox, err := app.NewOutbox(ctx, cfg, log)
	if err != nil {
		return err
	}

	checks := map[string]handler.PingFunc{
		"database": func(ctx context.Context) error { return database.Ping(ctx, outbox.Pool) },
	}
	if outbox.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return outbox.Redis.Do(ctx, outbox.Redis.B().Ping().Build()).Error()
		}
	}

	server := handler.NewApp(os.Stdout)
	handler.SetupRoutes(server,
		handler.NewHealthHandler(checks),
		handler.NewEventsHandler(outbox.Service, log),
		handler.NewMatchesHandler(outbox.Matches, log),
		cfg.EventsAPIToken,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting API server", slog.String("service", "api"), slog.String("port", cfg.Port))
		return server.Listen(":" + cfg.Port)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down API server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(
			server.ShutdownWithContext(shutdownCtx),
			outbox.Close(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("API server stopped")

	return nil
}
