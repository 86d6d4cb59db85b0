package service

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/jnst/fan-notification-outbox/internal/service"

type dispatcherMetrics struct {
	deliveries      metric.Int64Counter
	statusFailed    metric.Int64Counter
	deliveryLatency metric.Float64Histogram
}

func newDispatcherMetrics(provider metric.MeterProvider) (dispatcherMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter(instrumentationName)

	var (
		metrics dispatcherMetrics
		err     error
	)

	metrics.deliveries, err = meter.Int64Counter(
		"outbox.deliveries",
		metric.WithDescription("Number of delivery attempts by outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create outbox.deliveries counter: %w", err)
	}

	metrics.statusFailed, err = meter.Int64Counter(
		"outbox.deliveries.status_update_failed",
		metric.WithDescription("Number of delivery outcomes that could not be recorded in the event store"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create outbox.deliveries.status_update_failed counter: %w", err)
	}

	metrics.deliveryLatency, err = meter.Float64Histogram(
		"outbox.delivery.latency",
		metric.WithDescription("Time taken per delivery attempt"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create outbox.delivery.latency histogram: %w", err)
	}

	return metrics, nil
}
