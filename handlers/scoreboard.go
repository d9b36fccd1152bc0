package handlers

import (
	"github.com/gofiber/fiber/v2"

	"boulder-scoring-system/services"
)

// SetupScoreboardRoutes wires the read-only scoreboard. The endpoint is
// cached and cheap, so the hall display may poll it aggressively.
func SetupScoreboardRoutes(app *fiber.App, scoreboardService *services.ScoreboardService) {
	app.Get("/api/scoreboard/:id", scoreboardService.GetScoreboard)
}

// SetupHealthRoutes registers the liveness probe. It must be called before
// the gateway auth middleware: orchestrators probe without credentials.
func SetupHealthRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
