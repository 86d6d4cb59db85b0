package model

import (
	"errors"
	"fmt"
)

var (
	// ErrEventNotFound is returned when no event exists for the given id.
	ErrEventNotFound = errors.New("event not found")
	// ErrInvalidTransition is returned when a status change violates the event lifecycle.
	ErrInvalidTransition = errors.New("invalid event status transition")
	// ErrInvalidStatus is returned for a status outside the event lifecycle.
	ErrInvalidStatus = errors.New("invalid event status")
	// ErrInvalidPayload is returned when a payload is missing or malformed.
	ErrInvalidPayload = errors.New("invalid event payload")
	// ErrUnknownEventType is returned for an event type without a payload variant.
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrInvalidEventID is returned when an event id is not UUID-shaped.
	ErrInvalidEventID = errors.New("invalid event id")
)

// PersistenceError reports that the event store was unreachable or rejected a write.
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError wraps err as a failure of the named store operation.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DeliveryError reports a failed outbound call: a transport error, a timeout
// or a non-2xx response. StatusCode is zero when no response was received.
type DeliveryError struct {
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("delivery rejected with status %d: %v", e.StatusCode, e.Err)
		}

		return fmt.Sprintf("delivery rejected with status %d", e.StatusCode)
	}

	return fmt.Sprintf("delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err originates from the event store.
func IsPersistenceError(err error) bool {
	var persistenceErr *PersistenceError
	return errors.As(err, &persistenceErr)
}
