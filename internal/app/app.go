// Package app wires configuration into a ready-to-use outbox service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/rueidis"

	"github.com/jnst/fan-notification-outbox/internal/config"
	"github.com/jnst/fan-notification-outbox/internal/database"
	"github.com/jnst/fan-notification-outbox/internal/repository"
	"github.com/jnst/fan-notification-outbox/internal/service"
	"github.com/jnst/fan-notification-outbox/internal/telemetry"
	"github.com/jnst/fan-notification-outbox/internal/transport"
)

// Outbox holds the outbox service, the match service publishing through it
// and the connections they share.
type Outbox struct {
	Pool    *pgxpool.Pool
	Redis   rueidis.Client
	Service service.OutboxService
	Matches service.MatchService

	telemetry *telemetry.Telemetry
	logger    *slog.Logger
}

// NewOutbox connects to the database (and Redis when the stream transport is
// selected) and assembles the outbox service.
func NewOutbox(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Outbox, error) {
	pool, err := database.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}

	o := &Outbox{Pool: pool, logger: logger}

	if cfg.Notify.Transport == config.TransportRedis {
		o.Redis, err = NewRedisClient(cfg.Redis)
		if err != nil {
			pool.Close()
			return nil, err
		}
	}

	sender, err := NewTransport(cfg, o.Redis, logger)
	if err != nil {
		o.closeConnections()
		return nil, err
	}

	o.telemetry, err = telemetry.Setup(ctx, cfg.Telemetry, logger)
	if err != nil {
		o.closeConnections()
		return nil, err
	}

	events := repository.NewEventRepositoryImpl(pool)
	resolver := service.NewRecipientResolverImpl(repository.NewRecipientRepositoryImpl(pool))

	dispatcher, err := service.NewDispatcherImpl(events, resolver, sender, logger,
		service.WithTracer(o.telemetry.Tracer()),
		service.WithMeterProvider(o.telemetry.MeterProvider))
	if err != nil {
		o.shutdownTelemetry(ctx)
		o.closeConnections()
		return nil, err
	}

	o.Service = service.NewOutboxServiceImpl(
		events,
		repository.NewTransactionManagerImpl(pool),
		resolver,
		dispatcher,
		service.NewDeliveryQueue(cfg.DispatchConcurrency, logger),
		logger,
	)
	o.Matches = service.NewMatchServiceImpl(repository.NewMatchRepositoryImpl(pool), o.Service)

	logger.Info("outbox ready",
		slog.String("transport", sender.Name()),
		slog.Int("dispatch_concurrency", cfg.DispatchConcurrency))

	return o, nil
}

// Close waits for in-flight deliveries, flushes telemetry, then releases the connections.
func (o *Outbox) Close(ctx context.Context) error {
	err := o.Service.Close(ctx)
	o.shutdownTelemetry(ctx)
	o.closeConnections()

	return err
}

func (o *Outbox) shutdownTelemetry(ctx context.Context) {
	if err := o.telemetry.Shutdown(ctx); err != nil {
		o.logger.Warn("failed to flush telemetry", slog.String("error", err.Error()))
	}
}

func (o *Outbox) closeConnections() {
	if o.Redis != nil {
		o.Redis.Close()
	}

	o.Pool.Close()
}

// NewRedisClient creates a rueidis client for cfg.
func NewRedisClient(cfg config.RedisConfig) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.Addr},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewTransport selects the delivery transport. The HTTP transport falls back
// to logging when no endpoint is configured.
func NewTransport(cfg *config.Config, redisClient rueidis.Client, logger *slog.Logger) (transport.Transport, error) {
	switch cfg.Notify.Transport {
	case config.TransportRedis:
		if redisClient == nil {
			return nil, errors.New("redis transport requires a Redis client")
		}

		return transport.NewRedisStreamTransport(redisClient, cfg.Notify.Stream), nil
	case config.TransportLog:
		return transport.NewLogTransport(logger), nil
	case config.TransportHTTP:
		if cfg.Notify.Endpoint == "" {
			logger.Warn("NOTIFY_ENDPOINT not set, notifications will only be logged")
			return transport.NewLogTransport(logger), nil
		}

		return transport.NewHTTPTransport(cfg.Notify.Endpoint, cfg.Notify.Timeout, logger, httpOptions(cfg)...), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Notify.Transport)
	}
}

func httpOptions(cfg *config.Config) []transport.HTTPOption {
	opts := []transport.HTTPOption{
		transport.WithSigningSecret(cfg.Notify.SigningSecret),
		transport.WithCircuitBreaker(transport.BreakerSettings{
			MaxRequests:         cfg.Breaker.MaxRequests,
			Interval:            cfg.Breaker.Interval,
			Timeout:             cfg.Breaker.Timeout,
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		}),
	}

	if cfg.Notify.AuthScheme == config.AuthSchemeHeader {
		return append(opts, transport.WithSharedSecretHeader(cfg.Notify.AuthHeader, cfg.Notify.Token))
	}

	return append(opts, transport.WithBearerToken(cfg.Notify.Token))
}
