// Package service provides the outbox orchestration: recipient resolution,
// delivery dispatch and the publish/acknowledge/re-drive operations.
package service

import (
	"context"

	"github.com/jnst/fan-notification-outbox/internal/model"
)

// OutboxService records domain events and relays them to the notification pipeline.
type OutboxService interface {
	// Publish durably records the event, schedules its delivery in the
	// background and returns the event id without waiting for delivery.
	Publish(ctx context.Context, eventType model.EventType, payload *model.Payload) (string, error)
	// PublishWithin runs the business write fn and records the event it returns
	// in one transaction, then schedules delivery after commit.
	PublishWithin(ctx context.Context, fn func(ctx context.Context) (*model.Payload, error)) (string, error)
	Acknowledge(ctx context.Context, eventID string) error
	Get(ctx context.Context, eventID string) (*model.Event, error)
	GetPending(ctx context.Context, maxAgeHours int) ([]*model.Event, error)
	Recipients(ctx context.Context, event *model.Event) ([]model.Recipient, error)
	Redeliver(ctx context.Context, eventID string) (*model.DeliveryResult, error)
	RedrivePending(ctx context.Context, maxAgeHours int) (*model.RedriveResult, error)
	Close(ctx context.Context) error
}

// MatchService records match, goal and alert changes together with their outbox events.
type MatchService interface {
	ScheduleMatch(ctx context.Context, params *model.ScheduleMatchParams) (*MatchResult, error)
	GetMatch(ctx context.Context, id string) (*model.Match, error)
	ScoreGoal(ctx context.Context, matchID string, params *model.ScoreGoalParams) (*GoalResult, error)
	EndMatch(ctx context.Context, matchID string) (*MatchResult, error)
	PublishAlert(ctx context.Context, params *model.PublishAlertParams) (*AlertResult, error)
}

// MatchResult is a match write and the id of the event it recorded.
type MatchResult struct {
	Match   *model.Match `json:"match"`
	EventID string       `json:"eventId"`
}

// GoalResult is a recorded goal, the score after it and the id of its event.
type GoalResult struct {
	Goal    *model.Goal  `json:"goal"`
	Match   *model.Match `json:"match"`
	EventID string       `json:"eventId"`
}

// AlertResult is a recorded alert and the id of its event.
type AlertResult struct {
	Alert   *model.Alert `json:"alert"`
	EventID string       `json:"eventId"`
}

// Dispatcher delivers one event to the downstream endpoint and records the outcome.
type Dispatcher interface {
	Deliver(ctx context.Context, eventID string, eventType model.EventType, payload *model.Payload) *model.DeliveryResult
}

// RecipientResolver lists who should be notified about an event.
type RecipientResolver interface {
	Resolve(ctx context.Context, eventType model.EventType, data model.EventData) ([]model.Recipient, error)
}
