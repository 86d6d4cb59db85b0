// Package transport implements the outbound call that hands a notification
// envelope to the downstream notification pipeline.
package transport

import (
	"context"

	"github.com/jnst/fan-notification-outbox/internal/model"
)

// Transport performs exactly one outbound delivery attempt per Send call.
// A nil error means the downstream acknowledged the delivery.
type Transport interface {
	Send(ctx context.Context, notification *model.Notification) error
	Name() string
}
