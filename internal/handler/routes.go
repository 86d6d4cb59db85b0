package handler

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SetupRoutes registers every endpoint on app.
func SetupRoutes(
	app *fiber.App, health *HealthHandler, events *EventsHandler, matches *MatchesHandler, apiToken string,
) {
	app.Get("/health", health.HealthCheck)

	auth := RequireToken(apiToken)

	app.Get("/matches/:id", matches.GetMatch)
	app.Post("/matches", auth, matches.ScheduleMatch)
	app.Post("/matches/:id/goals", auth, matches.ScoreGoal)
	app.Post("/matches/:id/end", auth, matches.EndMatch)
	app.Post("/alerts", auth, matches.PublishAlert)

	group := app.Group("/events")

	// Registered before /:id so that "status" is not taken for an id.
	group.Get("/status/pending", events.Pending)

	group.Post("/status/pending/redrive", auth, events.RedrivePending)
	group.Get("/:id", auth, events.GetEvent)
	group.Post("/:id/ack", auth, events.Acknowledge)
	group.Post("/:id/redeliver", auth, events.Redeliver)
}

// NewApp creates the fiber app with its middleware stack. Access logs go to
// requestLog; nil disables them.
func NewApp(requestLog io.Writer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Fan Notification Outbox",
	})

	app.Use(recover.New())

	if requestLog != nil {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
			Output: requestLog,
		}))
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	return app
}
