package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jnst/fan-notification-outbox/internal/model"
	"github.com/jnst/fan-notification-outbox/internal/service"
)

// EventsHandler serves event lookup, acknowledgement and re-drive.
type EventsHandler struct {
	outbox service.OutboxService
	logger *slog.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(outbox service.OutboxService, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		outbox: outbox,
		logger: logger,
	}
}

// EventResponse is the body of GET /events/:id.
type EventResponse struct {
	Event      *model.Event      `json:"event"`
	Recipients []model.Recipient `json:"recipients"`
}

// PendingResponse is the body of GET /events/status/pending.
type PendingResponse struct {
	Count  int            `json:"count"`
	Events []*model.Event `json:"events"`
}

// GetEvent handles GET /events/:id.
func (h *EventsHandler) GetEvent(c *fiber.Ctx) error {
	ctx := c.UserContext()

	event, err := h.outbox.Get(ctx, c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, err)
	}

	recipients, err := h.outbox.Recipients(ctx, event)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(EventResponse{Event: event, Recipients: recipients})
}

// Acknowledge handles POST /events/:id/ack.
func (h *EventsHandler) Acknowledge(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.outbox.Acknowledge(c.UserContext(), id); err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"message": "Event acknowledged",
		"eventId": id,
	})
}

// Pending handles GET /events/status/pending.
// Query parameters:
//   - maxAgeHours (optional, default 24): trailing window in hours
func (h *EventsHandler) Pending(c *fiber.Ctx) error {
	maxAgeHours, err := maxAgeQuery(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	events, err := h.outbox.GetPending(c.UserContext(), maxAgeHours)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(PendingResponse{Count: len(events), Events: events})
}

// Redeliver handles POST /events/:id/redeliver.
func (h *EventsHandler) Redeliver(c *fiber.Ctx) error {
	result, err := h.outbox.Redeliver(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, err)
	}

	body := fiber.Map{
		"eventId":    result.EventID,
		"status":     result.Status,
		"recipients": result.Recipients,
	}
	if result.Err != nil {
		body["error"] = result.Err.Error()
	}

	return c.JSON(body)
}

// RedrivePending handles POST /events/status/pending/redrive.
func (h *EventsHandler) RedrivePending(c *fiber.Ctx) error {
	maxAgeHours, err := maxAgeQuery(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	result, err := h.outbox.RedrivePending(c.UserContext(), maxAgeHours)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(result)
}

var errInvalidMaxAge = errors.New("maxAgeHours must be a positive integer")

func maxAgeQuery(c *fiber.Ctx) (int, error) {
	raw := c.Query("maxAgeHours")
	if raw == "" {
		return service.DefaultMaxAgeHours, nil
	}

	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return 0, errInvalidMaxAge
	}

	return hours, nil
}
