package model

import (
	"fmt"
	"time"
)

// EventType identifies the kind of domain event recorded in the outbox.
type EventType string

const (
	// EventTypeMatchScheduled is recorded when a match is created.
	EventTypeMatchScheduled EventType = "match.scheduled"
	// EventTypeGoalScored is recorded when a goal is added to a match.
	EventTypeGoalScored EventType = "goal.scored"
	// EventTypeMatchEnded is recorded when a match reaches full time.
	EventTypeMatchEnded EventType = "match.ended"
	// EventTypeAlertPublished is recorded when an operator publishes an alert.
	EventTypeAlertPublished EventType = "alert.published"
)

// EventTypes lists every supported event type.
var EventTypes = []EventType{
	EventTypeMatchScheduled,
	EventTypeGoalScored,
	EventTypeMatchEnded,
	EventTypeAlertPublished,
}

// IsValid reports whether t is one of the supported event types.
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeMatchScheduled, EventTypeGoalScored, EventTypeMatchEnded, EventTypeAlertPublished:
		return true
	default:
		return false
	}
}

func (t EventType) String() string {
	return string(t)
}

// EventStatus is the delivery state of an outbox event.
type EventStatus string

const (
	// StatusNew is the state of a freshly persisted event.
	StatusNew EventStatus = "NEW"
	// StatusSent means the downstream endpoint accepted the delivery.
	StatusSent EventStatus = "SENT"
	// StatusFailed means the last delivery attempt failed.
	StatusFailed EventStatus = "FAILED"
	// StatusProcessed is terminal: the event was acknowledged or had nobody to notify.
	StatusProcessed EventStatus = "PROCESSED"
)

// ParseEventStatus validates and converts a raw status string.
func ParseEventStatus(raw string) (EventStatus, error) {
	status := EventStatus(raw)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}

	return status, nil
}

// IsValid reports whether the status is part of the event lifecycle.
func (s EventStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusSent, StatusFailed, StatusProcessed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition may leave the status.
func (s EventStatus) IsTerminal() bool {
	return s == StatusProcessed
}

// IsPending reports whether the event still waits for a successful delivery.
func (s EventStatus) IsPending() bool {
	return s == StatusNew || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Writing the current status again is always allowed except from NEW,
// which only the store itself assigns.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	switch s {
	case StatusNew:
		return next == StatusSent || next == StatusFailed || next == StatusProcessed
	case StatusFailed:
		return next == StatusSent || next == StatusFailed || next == StatusProcessed
	case StatusSent:
		return next == StatusSent || next == StatusProcessed
	case StatusProcessed:
		return next == StatusProcessed
	default:
		return false
	}
}

// TransitionSources returns every status from which next can be reached.
func TransitionSources(next EventStatus) []EventStatus {
	sources := make([]EventStatus, 0, 4)
	for _, status := range []EventStatus{StatusNew, StatusSent, StatusFailed, StatusProcessed} {
		if status.CanTransitionTo(next) {
			sources = append(sources, status)
		}
	}

	return sources
}

func (s EventStatus) String() string {
	return string(s)
}

// Event is an outbox record.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	Payload     *Payload    `json:"payload"`
	Status      EventStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	ProcessedAt *time.Time  `json:"processedAt"`
}

// CreateEventParams represents parameters for persisting a new outbox event.
type CreateEventParams struct {
	ID      string
	Type    EventType
	Payload []byte
}
