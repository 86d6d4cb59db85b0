package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/jnst/fan-notification-outbox/internal/config"
	"github.com/jnst/fan-notification-outbox/internal/logger"
)

func TestSetup_WithoutEndpoint(t *testing.T) {
	ctx := context.Background()

	tel, err := Setup(ctx, config.TelemetryConfig{ServiceName: "outbox-test", ServiceVersion: "dev"}, logger.Discard())
	require.NoError(t, err)

	require.Same(t, tel.MeterProvider, otel.GetMeterProvider())

	_, span := tel.Tracer().Start(ctx, "unit")
	require.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, tel.Shutdown(ctx))
}
