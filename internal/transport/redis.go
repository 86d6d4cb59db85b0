package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/jnst/fan-notification-outbox/internal/model"
)

// Stream entry field names shared with the stream consumer.
const (
	FieldEventID   = "event_id"
	FieldEventType = "event_type"
	FieldPayload   = "payload"
)

// RedisStreamTransport appends the notification envelope to a Redis stream.
type RedisStreamTransport struct {
	client rueidis.Client
	stream string
}

// NewRedisStreamTransport creates a transport writing to stream.
func NewRedisStreamTransport(client rueidis.Client, stream string) *RedisStreamTransport {
	return &RedisStreamTransport{
		client: client,
		stream: stream,
	}
}

// Name identifies the transport in logs.
func (*RedisStreamTransport) Name() string { return "redis" }

// Send issues a single XADD.
func (t *RedisStreamTransport) Send(ctx context.Context, notification *model.Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	cmd := t.client.B().Xadd().Key(t.stream).Id("*").
		FieldValue().FieldValue(FieldEventID, notification.OutboxID).
		FieldValue(FieldEventType, string(notification.EventType)).
		FieldValue(FieldPayload, string(body)).
		Build()

	if err := t.client.Do(ctx, cmd).Error(); err != nil {
		return &model.DeliveryError{Err: err}
	}

	return nil
}
