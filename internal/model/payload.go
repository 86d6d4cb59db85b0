package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventData is the type-specific part of a payload.
type EventData interface {
	EventType() EventType
	Validate() error
	Summary() string
}

// TeamScoped is implemented by match-related data whose audience is the
// fans of the participating teams.
type TeamScoped interface {
	TeamIDs() []string
}

// Payload is the serialized document stored with every event.
type Payload struct {
	EventID   string    `json:"eventId"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// NewPayload wraps data into a payload with a fresh event id and the current UTC time.
func NewPayload(data EventData) *Payload {
	payload := &Payload{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	if data != nil {
		payload.Type = data.EventType()
	}

	return payload
}

// Validate checks that the payload is complete and that its data variant matches its type.
func (p *Payload) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}

	if !p.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, p.Type)
	}

	if p.EventID == "" {
		return fmt.Errorf("%w: eventId is required", ErrInvalidPayload)
	}

	if p.Data == nil {
		return fmt.Errorf("%w: data is required", ErrInvalidPayload)
	}

	if p.Data.EventType() != p.Type {
		return fmt.Errorf("%w: data of type %s does not match %s", ErrInvalidPayload, p.Data.EventType(), p.Type)
	}

	return p.Data.Validate()
}

// UnmarshalJSON decodes the envelope and selects the data variant from the type field.
func (p *Payload) UnmarshalJSON(b []byte) error {
	var raw struct {
		EventID   string          `json:"eventId"`
		Type      EventType       `json:"type"`
		Timestamp time.Time       `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	data, err := newEventData(raw.Type)
	if err != nil {
		return err
	}

	if len(raw.Data) > 0 && !bytes.Equal(raw.Data, []byte("null")) {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			return fmt.Errorf("%w: data: %w", ErrInvalidPayload, err)
		}
	} else {
		data = nil
	}

	p.EventID = raw.EventID
	p.Type = raw.Type
	p.Timestamp = raw.Timestamp
	p.Data = data

	return nil
}

// DecodePayload parses a stored payload document.
func DecodePayload(b []byte) (*Payload, error) {
	var payload Payload
	if err := json.Unmarshal(b, &payload); err != nil {
		if errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrUnknownEventType) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return &payload, nil
}

func newEventData(eventType EventType) (EventData, error) {
	switch eventType {
	case EventTypeMatchScheduled:
		return &MatchScheduledData{}, nil
	case EventTypeGoalScored:
		return &GoalScoredData{}, nil
	case EventTypeMatchEnded:
		return &MatchEndedData{}, nil
	case EventTypeAlertPublished:
		return &AlertPublishedData{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
}
