package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jnst/fan-notification-outbox/internal/model"
	"github.com/jnst/fan-notification-outbox/internal/repository"
)

// DefaultMaxAgeHours is the pending window used when callers pass a non-positive age.
const DefaultMaxAgeHours = 24

// ErrNestedTransaction is returned by PublishWithin when ctx already carries a transaction.
var ErrNestedTransaction = errors.New("publish must own its transaction")

// OutboxServiceImpl implements OutboxService on top of the event store and a Dispatcher.
type OutboxServiceImpl struct {
	events         repository.EventRepository
	transactionMgr repository.TransactionManager
	resolver       RecipientResolver
	dispatcher     Dispatcher
	queue          *DeliveryQueue
	logger         *slog.Logger
}

// NewOutboxServiceImpl creates a new OutboxService implementation.
func NewOutboxServiceImpl(
	events repository.EventRepository,
	transactionMgr repository.TransactionManager,
	resolver RecipientResolver,
	dispatcher Dispatcher,
	queue *DeliveryQueue,
	logger *slog.Logger,
) OutboxService {
	return &OutboxServiceImpl{
		events:         events,
		transactionMgr: transactionMgr,
		resolver:       resolver,
		dispatcher:     dispatcher,
		queue:          queue,
		logger:         logger,
	}
}

// Publish records the event as NEW and schedules its delivery. When ctx
// carries a transaction the insert joins it and delivery waits for its commit.
func (s *OutboxServiceImpl) Publish(
	ctx context.Context, eventType model.EventType, payload *model.Payload,
) (string, error) {
	params, err := createParams(eventType, payload)
	if err != nil {
		return "", err
	}

	id, err := s.events.Create(ctx, params)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record outbox event",
			slog.String("event_type", eventType.String()),
			slog.String("error", err.Error()))

		return "", fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	if _, inTx := repository.TxFromContext(ctx); inTx {
		// Deliver only what the caller's transaction actually commits.
		if !repository.AfterCommit(ctx, func() { s.schedule(ctx, id, payload) }) {
			s.logger.InfoContext(ctx, "delivery deferred to re-drive",
				slog.String("event_id", id),
				slog.String("reason", "transaction has no commit hooks"))
		}

		return id, nil
	}

	s.schedule(ctx, id, payload)

	return id, nil
}

// PublishWithin records the payload produced by fn in the same transaction as
// fn's own writes. Delivery is scheduled only after the transaction commits.
func (s *OutboxServiceImpl) PublishWithin(
	ctx context.Context, fn func(ctx context.Context) (*model.Payload, error),
) (string, error) {
	if _, ok := repository.TxFromContext(ctx); ok {
		return "", ErrNestedTransaction
	}

	var (
		id      string
		payload *model.Payload
	)

	err := s.transactionMgr.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := fn(ctx)
		if err != nil {
			return err
		}

		if p == nil {
			return fmt.Errorf("%w: payload is required", model.ErrInvalidPayload)
		}

		params, err := createParams(p.Type, p)
		if err != nil {
			return err
		}

		id, err = s.events.Create(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to publish %s event: %w", p.Type, err)
		}

		payload = p

		return nil
	})
	if err != nil {
		return "", err
	}

	s.schedule(ctx, id, payload)

	return id, nil
}

// Acknowledge marks the event PROCESSED. Acknowledging twice is not an error.
func (s *OutboxServiceImpl) Acknowledge(ctx context.Context, eventID string) error {
	if err := s.events.UpdateStatus(ctx, eventID, model.StatusProcessed); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "event acknowledged", slog.String("event_id", eventID))

	return nil
}

// Get returns the event or ErrEventNotFound.
func (s *OutboxServiceImpl) Get(ctx context.Context, eventID string) (*model.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if event == nil {
		return nil, model.ErrEventNotFound
	}

	return event, nil
}

// GetPending lists NEW and FAILED events younger than maxAgeHours, oldest first.
func (s *OutboxServiceImpl) GetPending(ctx context.Context, maxAgeHours int) ([]*model.Event, error) {
	if maxAgeHours <= 0 {
		maxAgeHours = DefaultMaxAgeHours
	}

	return s.events.ListPending(ctx, maxAgeHours)
}

// Recipients resolves who the event is addressed to.
func (s *OutboxServiceImpl) Recipients(ctx context.Context, event *model.Event) ([]model.Recipient, error) {
	if event.Payload == nil || event.Payload.Data == nil {
		return []model.Recipient{}, nil
	}

	return s.resolver.Resolve(ctx, event.Type, event.Payload.Data)
}

// Redeliver synchronously retries delivery of a NEW or FAILED event.
func (s *OutboxServiceImpl) Redeliver(ctx context.Context, eventID string) (*model.DeliveryResult, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if !event.Status.IsPending() {
		return nil, fmt.Errorf("%w: event %s is %s", model.ErrInvalidTransition, event.ID, event.Status)
	}

	return s.dispatcher.Deliver(ctx, event.ID, event.Type, event.Payload), nil
}

// RedrivePending retries every pending event inside the window, oldest first.
func (s *OutboxServiceImpl) RedrivePending(ctx context.Context, maxAgeHours int) (*model.RedriveResult, error) {
	events, err := s.GetPending(ctx, maxAgeHours)
	if err != nil {
		return nil, err
	}

	result := &model.RedriveResult{}

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Add(s.dispatcher.Deliver(ctx, event.ID, event.Type, event.Payload))
	}

	if result.Total > 0 {
		s.logger.InfoContext(ctx, "pending events re-driven",
			slog.Int("total", result.Total),
			slog.Int("sent", result.Sent),
			slog.Int("processed", result.Processed),
			slog.Int("failed", result.Failed))
	}

	return result, nil
}

// Close waits for scheduled deliveries to finish.
func (s *OutboxServiceImpl) Close(ctx context.Context) error {
	return s.queue.Close(ctx)
}

func (s *OutboxServiceImpl) schedule(ctx context.Context, eventID string, payload *model.Payload) {
	ctx = repository.ContextWithoutTx(ctx)

	err := s.queue.Submit(ctx, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.ErrorContext(ctx, "delivery panicked",
					slog.String("event_id", eventID),
					slog.Any("panic", r))

				if err := s.events.UpdateStatus(ctx, eventID, model.StatusFailed); err != nil {
					s.logger.ErrorContext(ctx, "failed to mark event as failed",
						slog.String("event_id", eventID),
						slog.String("error", err.Error()))
				}
			}
		}()

		s.dispatcher.Deliver(ctx, eventID, payload.Type, payload)
	})
	if err != nil {
		// The event stays NEW and is picked up by the next re-drive.
		s.logger.WarnContext(ctx, "delivery not scheduled",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()))
	}
}

func createParams(eventType model.EventType, payload *model.Payload) (*model.CreateEventParams, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	if payload.Type != eventType {
		return nil, fmt.Errorf("%w: payload type %s does not match %s", model.ErrInvalidPayload, payload.Type, eventType)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &model.CreateEventParams{Type: eventType, Payload: body}, nil
}
