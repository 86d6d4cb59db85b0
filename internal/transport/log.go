package transport

import (
	"context"
	"log/slog"

	"github.com/jnst/fan-notification-outbox/internal/model"
)

// LogTransport only logs the envelope. It stands in for the downstream when
// no endpoint is configured, so every attempt succeeds.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a log-only transport.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Name identifies the transport in logs.
func (*LogTransport) Name() string { return "log" }

// Send logs the notification and reports success.
func (t *LogTransport) Send(_ context.Context, notification *model.Notification) error {
	t.logger.Info("notify endpoint not configured, logging notification",
		slog.String("event_id", notification.OutboxID),
		slog.String("event_type", string(notification.EventType)),
		slog.String("channel", string(notification.Channel)),
		slog.String("message", notification.Message),
		slog.Int("recipients", len(notification.Recipients)),
	)

	return nil
}
