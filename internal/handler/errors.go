package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/jnst/fan-notification-outbox/internal/model"
)

// writeError renders err with the status it maps to. Internal errors are
// logged and replaced by a generic message.
func writeError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	status := statusFor(err)

	if status == fiber.StatusInternalServerError {
		logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))

		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrEventNotFound),
		errors.Is(err, model.ErrMatchNotFound),
		errors.Is(err, model.ErrTeamNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrMatchClosed):
		return fiber.StatusConflict
	case errors.Is(err, model.ErrInvalidPayload),
		errors.Is(err, model.ErrUnknownEventType),
		errors.Is(err, model.ErrInvalidEventID),
		errors.Is(err, model.ErrInvalidMatch),
		errors.Is(err, errInvalidMaxAge),
		errors.Is(err, errInvalidBody):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
