// Package consumer reads delivered notifications from a Redis stream and
// acknowledges the matching outbox events.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/jnst/fan-notification-outbox/internal/model"
	"github.com/jnst/fan-notification-outbox/internal/repository"
	"github.com/jnst/fan-notification-outbox/internal/transport"
)

const (
	defaultBlock     = time.Second
	defaultBatchSize = 10
	defaultClaimIdle = 30 * time.Second
	errorRetryDelay  = time.Second
	claimCursorStart = "0-0"
)

// Acknowledger closes the lifecycle of an outbox event.
type Acknowledger interface {
	Acknowledge(ctx context.Context, eventID string) error
}

// EventStoreAcknowledger acknowledges directly against the event store.
type EventStoreAcknowledger struct {
	events repository.EventRepository
}

// NewEventStoreAcknowledger creates an Acknowledger backed by events.
func NewEventStoreAcknowledger(events repository.EventRepository) *EventStoreAcknowledger {
	return &EventStoreAcknowledger{events: events}
}

// Acknowledge marks the event PROCESSED.
func (a *EventStoreAcknowledger) Acknowledge(ctx context.Context, eventID string) error {
	return a.events.UpdateStatus(ctx, eventID, model.StatusProcessed)
}

// envelope is the part of the notification the consumer needs.
type envelope struct {
	OutboxID   string          `json:"outboxId"`
	EventType  model.EventType `json:"eventType"`
	Channel    model.Channel   `json:"channel"`
	Message    string          `json:"message"`
	Recipients []string        `json:"recipients"`
}

// StreamConsumer processes notification stream entries as a member of a consumer group.
type StreamConsumer struct {
	client    rueidis.Client
	stream    string
	group     string
	name      string
	acker     Acknowledger
	logger    *slog.Logger
	block     time.Duration
	batchSize int64

	claimIdle   time.Duration
	claimCursor string
	lastClaim   time.Time
}

// Option configures a StreamConsumer.
type Option func(*StreamConsumer)

// WithBlock sets how long a read waits for new entries.
func WithBlock(block time.Duration) Option {
	return func(c *StreamConsumer) { c.block = block }
}

// WithBatchSize sets the maximum entries read at once.
func WithBatchSize(size int64) Option {
	return func(c *StreamConsumer) { c.batchSize = size }
}

// WithClaimIdle sets how long an entry stays pending before Reclaim takes it
// over from the consumer that read it.
func WithClaimIdle(idle time.Duration) Option {
	return func(c *StreamConsumer) { c.claimIdle = idle }
}

// NewStreamConsumer creates a consumer named name in group.
func NewStreamConsumer(
	client rueidis.Client,
	stream, group, name string,
	acker Acknowledger,
	logger *slog.Logger,
	opts ...Option,
) *StreamConsumer {
	c := &StreamConsumer{
		client:    client,
		stream:    stream,
		group:     group,
		name:      name,
		acker:     acker,
		logger:    logger,
		block:     defaultBlock,
		batchSize: defaultBatchSize,

		claimIdle:   defaultClaimIdle,
		claimCursor: claimCursorStart,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// EnsureGroup creates the consumer group and the stream if missing.
func (c *StreamConsumer) EnsureGroup(ctx context.Context) error {
	cmd := c.client.B().XgroupCreate().Key(c.stream).Group(c.group).Id("0").Mkstream().Build()

	err := c.client.Do(ctx, cmd).Error()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", c.group, err)
	}

	return nil
}

// Run polls until ctx is cancelled.
func (c *StreamConsumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("starting stream consumer",
		slog.String("stream", c.stream),
		slog.String("group", c.group),
		slog.String("consumer", c.name))

	for {
		if ctx.Err() != nil {
			c.logger.Info("consumer stopped")
			return nil
		}

		if time.Since(c.lastClaim) >= c.claimIdle {
			c.lastClaim = time.Now()

			if _, err := c.Reclaim(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("error reclaiming pending messages", slog.String("error", err.Error()))
			}
		}

		if _, err := c.Poll(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("error consuming messages", slog.String("error", err.Error()))

			select {
			case <-ctx.Done():
			case <-time.After(errorRetryDelay):
			}
		}
	}
}

// Poll reads one batch of new entries and processes it, returning how many
// entries were acknowledged on the stream.
func (c *StreamConsumer) Poll(ctx context.Context) (int, error) {
	cmd := c.client.B().Xreadgroup().Group(c.group, c.name).
		Count(c.batchSize).
		Block(c.block.Milliseconds()).
		Streams().
		Key(c.stream).
		Id(">").
		Build()

	streams, err := c.client.Do(ctx, cmd).AsXRead()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to read stream %s: %w", c.stream, err)
	}

	return c.handle(ctx, streams[c.stream]), nil
}

// Reclaim claims one batch of entries left pending for at least the claim
// idle time, by this or any other consumer of the group, and processes them
// again. Successive calls walk the pending list and wrap around at its end.
func (c *StreamConsumer) Reclaim(ctx context.Context) (int, error) {
	cmd := c.client.B().Xautoclaim().Key(c.stream).Group(c.group).Consumer(c.name).
		MinIdleTime(strconv.FormatInt(c.claimIdle.Milliseconds(), 10)).
		Start(c.claimCursor).
		Count(c.batchSize).
		Build()

	reply, err := c.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return 0, fmt.Errorf("failed to claim pending entries on %s: %w", c.stream, err)
	}

	if len(reply) < 2 {
		return 0, fmt.Errorf("unexpected XAUTOCLAIM reply of %d elements", len(reply))
	}

	next, err := reply[0].ToString()
	if err != nil {
		return 0, fmt.Errorf("failed to read XAUTOCLAIM cursor: %w", err)
	}

	entries, err := reply[1].AsXRange()
	if err != nil {
		return 0, fmt.Errorf("failed to read claimed entries: %w", err)
	}

	c.claimCursor = next

	if len(entries) > 0 {
		c.logger.Info("reclaimed pending messages", slog.Int("count", len(entries)))
	}

	return c.handle(ctx, entries), nil
}

// handle processes entries and XACKs the ones that succeeded. Failed entries
// stay pending for Reclaim.
func (c *StreamConsumer) handle(ctx context.Context, entries []rueidis.XRangeEntry) int {
	acked := 0

	for _, entry := range entries {
		if err := c.process(ctx, entry); err != nil {
			c.logger.Error("failed to process message",
				slog.String("message_id", entry.ID),
				slog.String("error", err.Error()))

			continue
		}

		if err := c.client.Do(ctx, c.client.B().Xack().Key(c.stream).Group(c.group).Id(entry.ID).Build()).Error(); err != nil {
			c.logger.Error("failed to ACK message",
				slog.String("message_id", entry.ID),
				slog.String("error", err.Error()))

			continue
		}

		acked++
	}

	return acked
}

// process hands the entry to the sender and acknowledges the outbox event.
// Entries that can never succeed return nil so they are not redelivered.
func (c *StreamConsumer) process(ctx context.Context, entry rueidis.XRangeEntry) error {
	eventID, ok := entry.FieldValues[transport.FieldEventID]
	if !ok {
		c.logger.Warn("dropping message without event id", slog.String("message_id", entry.ID))
		return nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(entry.FieldValues[transport.FieldPayload]), &env); err != nil {
		c.logger.Warn("dropping message with malformed payload",
			slog.String("message_id", entry.ID),
			slog.String("event_id", eventID),
			slog.String("error", err.Error()))

		return nil
	}

	c.logger.Info("notification handed to sender",
		slog.String("event_id", eventID),
		slog.String("event_type", env.EventType.String()),
		slog.String("channel", string(env.Channel)),
		slog.Int("recipients", len(env.Recipients)),
		slog.String("message", env.Message))

	err := c.acker.Acknowledge(ctx, eventID)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrEventNotFound):
		c.logger.Warn("acknowledged message for unknown event", slog.String("event_id", eventID))
		return nil
	default:
		return fmt.Errorf("failed to acknowledge event %s: %w", eventID, err)
	}
}
