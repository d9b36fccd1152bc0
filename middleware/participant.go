package middleware

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"boulder-scoring-system/models"
)

const participantLocalKey = "participant"

// ParticipantContextMiddleware resolves the participant identity forwarded by
// the session layer. Authentication itself happens upstream; by the time a
// request lands here, X-Participant-ID names an already-authenticated
// competitor. The participant row (with its age group) is loaded once per
// request and attached to the context.
func ParticipantContextMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		participantID := c.Get("X-Participant-ID")
		if participantID == "" {
			log.Printf("[PARTICIPANT_CTX] missing X-Participant-ID on %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Participant-ID — request must come through the session gateway",
			})
		}

		var participant models.Participant
		err := db.Preload("AgeGroup").First(&participant, "id = ?", participantID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[PARTICIPANT_CTX] unknown participant %s on %s", participantID, c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unknown participant",
			})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load participant",
			})
		}

		c.Locals(participantLocalKey, &participant)
		return c.Next()
	}
}

// ParticipantFromCtx returns the participant attached by
// ParticipantContextMiddleware. Only valid on routes behind it.
func ParticipantFromCtx(c *fiber.Ctx) *models.Participant {
	participant, _ := c.Locals(participantLocalKey).(*models.Participant)
	return participant
}
