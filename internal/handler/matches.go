package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/jnst/fan-notification-outbox/internal/model"
	"github.com/jnst/fan-notification-outbox/internal/service"
)

var errInvalidBody = errors.New("invalid JSON body")

// MatchesHandler serves the match, goal and alert writes that emit outbox events.
type MatchesHandler struct {
	matches service.MatchService
	logger  *slog.Logger
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(matches service.MatchService, logger *slog.Logger) *MatchesHandler {
	return &MatchesHandler{
		matches: matches,
		logger:  logger,
	}
}

// ScheduleMatch handles POST /matches.
func (h *MatchesHandler) ScheduleMatch(c *fiber.Ctx) error {
	var params model.ScheduleMatchParams
	if err := c.BodyParser(&params); err != nil {
		return writeError(c, h.logger, errInvalidBody)
	}

	result, err := h.matches.ScheduleMatch(c.UserContext(), &params)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetMatch handles GET /matches/:id.
func (h *MatchesHandler) GetMatch(c *fiber.Ctx) error {
	match, err := h.matches.GetMatch(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(match)
}

// ScoreGoal handles POST /matches/:id/goals.
func (h *MatchesHandler) ScoreGoal(c *fiber.Ctx) error {
	var params model.ScoreGoalParams
	if err := c.BodyParser(&params); err != nil {
		return writeError(c, h.logger, errInvalidBody)
	}

	result, err := h.matches.ScoreGoal(c.UserContext(), c.Params("id"), &params)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// EndMatch handles POST /matches/:id/end.
func (h *MatchesHandler) EndMatch(c *fiber.Ctx) error {
	result, err := h.matches.EndMatch(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(result)
}

// PublishAlert handles POST /alerts.
func (h *MatchesHandler) PublishAlert(c *fiber.Ctx) error {
	var params model.PublishAlertParams
	if err := c.BodyParser(&params); err != nil {
		return writeError(c, h.logger, errInvalidBody)
	}

	result, err := h.matches.PublishAlert(c.UserContext(), &params)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}
