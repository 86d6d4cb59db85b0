package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jnst/fan-notification-outbox/internal/model"
)

const (
	insertEventSQL = `
INSERT INTO outbox_events (id, type, payload_json, status, created_at)
VALUES ($1, $2, $3, 'NEW', now())`

	updateEventStatusSQL = `
UPDATE outbox_events
SET status = $2,
    processed_at = CASE WHEN $2 = 'PROCESSED' THEN COALESCE(processed_at, now()) ELSE processed_at END
WHERE id = $1 AND status = ANY($3::text[])`

	selectEventStatusSQL = `SELECT status FROM outbox_events WHERE id = $1`

	selectEventSQL = `
SELECT id::text, type, payload_json::text, status, created_at, processed_at
FROM outbox_events
WHERE id = $1`

	listPendingEventsSQL = `
SELECT id::text, type, payload_json::text, status, created_at, processed_at
FROM outbox_events
WHERE status IN ('NEW', 'FAILED')
  AND created_at > now() - ($1::int * interval '1 hour')
ORDER BY created_at ASC, id ASC`
)

// EventRepositoryImpl implements EventRepository using PostgreSQL.
type EventRepositoryImpl struct {
	db DBTX
}

// NewEventRepositoryImpl creates a new EventRepository implementation.
func NewEventRepositoryImpl(db DBTX) EventRepository {
	return &EventRepositoryImpl{db: db}
}

// Create persists a new event with status NEW.
func (r *EventRepositoryImpl) Create(ctx context.Context, params *model.CreateEventParams) (string, error) {
	id := params.ID
	if id == "" {
		id = uuid.NewString()
	} else if !isUUID(id) {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidEventID, id)
	}

	if !params.Type.IsValid() {
		return "", fmt.Errorf("%w: %q", model.ErrUnknownEventType, params.Type)
	}

	if len(params.Payload) == 0 {
		return "", fmt.Errorf("%w: payload is required", model.ErrInvalidPayload)
	}

	if _, err := querier(ctx, r.db).Exec(ctx, insertEventSQL, id, string(params.Type), string(params.Payload)); err != nil {
		return "", model.NewPersistenceError("create outbox event", err)
	}

	return id, nil
}

// UpdateStatus moves the event to status when the lifecycle allows it.
func (r *EventRepositoryImpl) UpdateStatus(ctx context.Context, id string, status model.EventStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidStatus, status)
	}

	if !isUUID(id) {
		return model.ErrEventNotFound
	}

	db := querier(ctx, r.db)

	tag, err := db.Exec(ctx, updateEventStatusSQL, id, string(status), statusStrings(model.TransitionSources(status)))
	if err != nil {
		return model.NewPersistenceError("update outbox event status", err)
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	if err := db.QueryRow(ctx, selectEventStatusSQL, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrEventNotFound
		}

		return model.NewPersistenceError("read outbox event status", err)
	}

	return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, current, status)
}

// FindByID retrieves an event and decodes its payload.
func (r *EventRepositoryImpl) FindByID(ctx context.Context, id string) (*model.Event, error) {
	if !isUUID(id) {
		return nil, nil //nolint:nilnil // absence is not an error for lookups
	}

	event, err := scanEvent(querier(ctx, r.db).QueryRow(ctx, selectEventSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // absence is not an error for lookups
		}

		return nil, err
	}

	return event, nil
}

// ListPending retrieves NEW and FAILED events inside the trailing window.
func (r *EventRepositoryImpl) ListPending(ctx context.Context, maxAgeHours int) ([]*model.Event, error) {
	rows, err := querier(ctx, r.db).Query(ctx, listPendingEventsSQL, maxAgeHours)
	if err != nil {
		return nil, model.NewPersistenceError("list pending outbox events", err)
	}
	defer rows.Close()

	events := make([]*model.Event, 0)

	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, model.NewPersistenceError("list pending outbox events", err)
	}

	return events, nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		id          string
		eventType   string
		payloadJSON string
		status      string
		createdAt   time.Time
		processedAt *time.Time
	)

	if err := row.Scan(&id, &eventType, &payloadJSON, &status, &createdAt, &processedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		return nil, model.NewPersistenceError("read outbox event", err)
	}

	payload, err := model.DecodePayload([]byte(payloadJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload of event %s: %w", id, err)
	}

	return &model.Event{
		ID:          id,
		Type:        model.EventType(eventType),
		Payload:     payload,
		Status:      model.EventStatus(status),
		CreatedAt:   createdAt,
		ProcessedAt: processedAt,
	}, nil
}

func statusStrings(statuses []model.EventStatus) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}

	return out
}

func isUUID(id string) bool {
	return uuid.Validate(id) == nil
}
