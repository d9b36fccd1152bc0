package services

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"boulder-scoring-system/models"
)

// BroadcastService exposes the singleton announcement. Delivery is plain
// polling off the participants' regular refresh; there is no push channel.
type BroadcastService struct {
	DB *gorm.DB
}

func NewBroadcastService(db *gorm.DB) *BroadcastService {
	return &BroadcastService{DB: db}
}

// GetBroadcast handles GET /api/broadcast.
func (s *BroadcastService) GetBroadcast(c *fiber.Ctx) error {
	var msg models.BroadcastMessage
	err := s.DB.Where("active = ?", true).Order("updated_at DESC").First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(fiber.Map{"ok": true, "message": ""})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load broadcast message",
		})
	}
	return c.JSON(fiber.Map{
		"ok":         true,
		"message":    msg.Message,
		"updated_at": float64(msg.UpdatedAt.UnixNano()) / float64(time.Second),
	})
}
