package model

import "time"

// Channel is the medium the downstream sender should use.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelMixed Channel = "mixed"
)

// Notification is the envelope sent to the downstream endpoint for one delivery attempt.
type Notification struct {
	EventID    string    `json:"eventId"`
	OutboxID   string    `json:"outboxId"`
	EventType  EventType `json:"eventType"`
	Timestamp  time.Time `json:"timestamp"`
	Channel    Channel   `json:"channel"`
	Message    string    `json:"message"`
	Data       EventData `json:"data"`
	Recipients []string  `json:"recipients"`
	Locales    []string  `json:"locales,omitempty"`
}

// NewNotification builds the envelope for an outbox event and its resolved recipients.
func NewNotification(outboxID string, payload *Payload, recipients []Recipient) *Notification {
	notification := &Notification{
		EventID:    payload.EventID,
		OutboxID:   outboxID,
		EventType:  payload.Type,
		Timestamp:  payload.Timestamp,
		Data:       payload.Data,
		Recipients: make([]string, 0, len(recipients)),
	}

	if payload.Data != nil {
		notification.Message = payload.Data.Summary()
	}

	emails, phones := 0, 0
	seenLocales := make(map[string]struct{})

	for _, recipient := range recipients {
		notification.Recipients = append(notification.Recipients, recipient.Address())

		if recipient.Email != "" {
			emails++
		} else {
			phones++
		}

		if recipient.Language == "" {
			continue
		}

		if _, ok := seenLocales[recipient.Language]; !ok {
			seenLocales[recipient.Language] = struct{}{}
			notification.Locales = append(notification.Locales, recipient.Language)
		}
	}

	switch {
	case phones == 0:
		notification.Channel = ChannelEmail
	case emails == 0:
		notification.Channel = ChannelSMS
	default:
		notification.Channel = ChannelMixed
	}

	return notification
}

// DeliveryResult is the outcome of one Dispatcher run for an event.
type DeliveryResult struct {
	EventID    string      `json:"eventId"`
	Status     EventStatus `json:"status"`
	Recipients int         `json:"recipients"`
	Err        error       `json:"-"`
}

// Succeeded reports whether the event ended the attempt as SENT or PROCESSED.
func (r *DeliveryResult) Succeeded() bool {
	return r.Err == nil && (r.Status == StatusSent || r.Status == StatusProcessed)
}

// RedriveResult summarizes one pass over the pending events.
type RedriveResult struct {
	Total     int `json:"total"`
	Sent      int `json:"sent"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Add counts the outcome of one delivery.
func (r *RedriveResult) Add(result *DeliveryResult) {
	r.Total++

	switch {
	case !result.Succeeded():
		r.Failed++
	case result.Status == StatusProcessed:
		r.Processed++
	default:
		r.Sent++
	}
}
