// Package repository provides data access interfaces and implementations.
package repository

import (
	"context"

	"github.com/jnst/fan-notification-outbox/internal/model"
)

// EventRepository defines the durable outbox event store.
type EventRepository interface {
	// Create persists a NEW event and returns its id. It joins the transaction
	// carried by ctx when there is one.
	Create(ctx context.Context, params *model.CreateEventParams) (string, error)
	// UpdateStatus moves an event to status, stamping processed_at on the first
	// transition into PROCESSED.
	UpdateStatus(ctx context.Context, id string, status model.EventStatus) error
	// FindByID returns nil without error when the event does not exist.
	FindByID(ctx context.Context, id string) (*model.Event, error)
	// ListPending returns NEW and FAILED events created within the last
	// maxAgeHours, oldest first.
	ListPending(ctx context.Context, maxAgeHours int) ([]*model.Event, error)
}

// RecipientRepository defines read-only queries over fan subscriptions.
type RecipientRepository interface {
	FindByTeams(ctx context.Context, teamIDs []string) ([]model.Recipient, error)
	FindAll(ctx context.Context) ([]model.Recipient, error)
	FindByCity(ctx context.Context, city string) ([]model.Recipient, error)
}

// MatchRepository defines data access methods for matches, goals and alerts.
type MatchRepository interface {
	FindTeams(ctx context.Context, ids []string) ([]model.Team, error)
	CreateMatch(ctx context.Context, params *model.ScheduleMatchParams) (string, error)
	// FindMatch returns ErrMatchNotFound when the match does not exist.
	FindMatch(ctx context.Context, id string) (*model.Match, error)
	// LockMatch serializes writes to one match for the rest of the transaction.
	LockMatch(ctx context.Context, id string) error
	UpdateMatchStatus(ctx context.Context, id string, status model.MatchStatus) error
	CreateGoal(ctx context.Context, matchID string, params *model.ScoreGoalParams) (*model.Goal, error)
	CreateAlert(ctx context.Context, params *model.PublishAlertParams) (*model.Alert, error)
}

// TransactionManager defines methods for database transaction management.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
