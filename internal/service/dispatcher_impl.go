package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jnst/fan-notification-outbox/internal/model"
	"github.com/jnst/fan-notification-outbox/internal/repository"
	"github.com/jnst/fan-notification-outbox/internal/transport"
)

// DispatcherOption configures a DispatcherImpl.
type DispatcherOption func(*DispatcherImpl)

// WithTracer sets the tracer used for delivery spans.
func WithTracer(tracer trace.Tracer) DispatcherOption {
	return func(d *DispatcherImpl) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithMeterProvider sets the provider for delivery metrics. The global provider is used by default.
func WithMeterProvider(provider metric.MeterProvider) DispatcherOption {
	return func(d *DispatcherImpl) {
		d.meterProvider = provider
	}
}

// DispatcherImpl resolves recipients, sends the notification and records the outcome.
// Delivery failures are logged and recorded, never returned.
type DispatcherImpl struct {
	events        repository.EventRepository
	resolver      RecipientResolver
	transport     transport.Transport
	logger        *slog.Logger
	tracer        trace.Tracer
	meterProvider metric.MeterProvider
	metrics       dispatcherMetrics
}

// NewDispatcherImpl creates a new Dispatcher implementation.
func NewDispatcherImpl(
	events repository.EventRepository,
	resolver RecipientResolver,
	sender transport.Transport,
	logger *slog.Logger,
	opts ...DispatcherOption,
) (*DispatcherImpl, error) {
	d := &DispatcherImpl{
		events:    events,
		resolver:  resolver,
		transport: sender,
		logger:    logger,
		tracer:    noop.NewTracerProvider().Tracer("outbox.noop"),
	}

	for _, opt := range opts {
		opt(d)
	}

	metrics, err := newDispatcherMetrics(d.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to init dispatcher metrics: %w", err)
	}

	d.metrics = metrics

	return d, nil
}

// Deliver runs one delivery attempt for the event.
// No recipients marks the event PROCESSED without calling the transport.
// A successful send marks it SENT, any failure marks it FAILED.
func (d *DispatcherImpl) Deliver(
	ctx context.Context, eventID string, eventType model.EventType, payload *model.Payload,
) *model.DeliveryResult {
	ctx, span := d.tracer.Start(ctx, "outbox.deliver", trace.WithAttributes(
		attribute.String("outbox.event_id", eventID),
		attribute.String("outbox.event_type", eventType.String()),
		attribute.String("outbox.transport", d.transport.Name()),
	))
	defer span.End()

	start := time.Now()
	result := &model.DeliveryResult{EventID: eventID}

	defer func() {
		d.metrics.deliveryLatency.Record(ctx, time.Since(start).Seconds())
		d.metrics.deliveries.Add(ctx, 1, metric.WithAttributes(
			attribute.String("event_type", eventType.String()),
			attribute.String("outcome", outcome(result)),
		))

		span.SetAttributes(
			attribute.Int("outbox.recipients", result.Recipients),
			attribute.String("outbox.status", result.Status.String()),
		)

		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, "delivery failed")
		}
	}()

	if payload == nil || payload.Data == nil {
		d.fail(ctx, result, fmt.Errorf("%w: nothing to deliver", model.ErrInvalidPayload))

		return result
	}

	recipients, err := d.resolver.Resolve(ctx, eventType, payload.Data)
	if err != nil {
		d.fail(ctx, result, fmt.Errorf("failed to resolve recipients: %w", err))

		return result
	}

	result.Recipients = len(recipients)

	if len(recipients) == 0 {
		d.logger.InfoContext(ctx, "no recipients for event",
			slog.String("event_id", eventID),
			slog.String("event_type", eventType.String()))
		d.record(ctx, result, model.StatusProcessed)

		return result
	}

	notification := model.NewNotification(eventID, payload, recipients)

	if err := d.transport.Send(ctx, notification); err != nil {
		d.fail(ctx, result, err)

		return result
	}

	d.logger.InfoContext(ctx, "notification sent",
		slog.String("event_id", eventID),
		slog.String("event_type", eventType.String()),
		slog.Int("recipients", len(recipients)),
		slog.String("channel", string(notification.Channel)))
	d.record(ctx, result, model.StatusSent)

	return result
}

func (d *DispatcherImpl) fail(ctx context.Context, result *model.DeliveryResult, cause error) {
	attrs := []any{
		slog.String("event_id", result.EventID),
		slog.String("transport", d.transport.Name()),
		slog.String("error", cause.Error()),
	}

	var deliveryErr *model.DeliveryError
	if errors.As(cause, &deliveryErr) && deliveryErr.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status_code", deliveryErr.StatusCode))
	}

	d.logger.ErrorContext(ctx, "failed to deliver notification", attrs...)

	result.Err = cause
	d.record(ctx, result, model.StatusFailed)
}

func (d *DispatcherImpl) record(ctx context.Context, result *model.DeliveryResult, status model.EventStatus) {
	if err := d.events.UpdateStatus(ctx, result.EventID, status); err != nil {
		d.metrics.statusFailed.Add(ctx, 1)

		level := slog.LevelError
		if errors.Is(err, model.ErrInvalidTransition) {
			// Typically an acknowledgement that raced ahead of this attempt.
			level = slog.LevelWarn
		}

		d.logger.Log(ctx, level, "failed to record delivery outcome",
			slog.String("event_id", result.EventID),
			slog.String("status", status.String()),
			slog.String("error", err.Error()))

		if result.Err == nil {
			result.Err = fmt.Errorf("failed to record status %s: %w", status, err)
		}

		return
	}

	result.Status = status
}

func outcome(result *model.DeliveryResult) string {
	switch {
	case result.Status == "":
		return "unrecorded"
	case result.Err != nil:
		return "failed"
	default:
		return strings.ToLower(string(result.Status))
	}
}
