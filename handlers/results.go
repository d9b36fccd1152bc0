package handlers

import (
	"github.com/gofiber/fiber/v2"

	"boulder-scoring-system/middleware"
	"boulder-scoring-system/services"
)

// SetupResultRoutes wires the participant-facing submission and
// reconciliation endpoints. Everything here runs behind the participant
// context middleware — the gateway has already authenticated the session.
func SetupResultRoutes(app *fiber.App, resultService *services.ResultService, windowService *services.WindowService, broadcastService *services.BroadcastService) {
	secured := app.Group("/api", middleware.ParticipantContextMiddleware(resultService.DB))

	// Submission + reconciliation (sync protocol)
	secured.Post("/results", resultService.SubmitResults)
	secured.Get("/results", resultService.GetResults)

	// Window countdown polling
	secured.Get("/window", windowService.GetWindow)

	// Broadcast singleton, picked up on the regular poll
	secured.Get("/broadcast", broadcastService.GetBroadcast)
}
