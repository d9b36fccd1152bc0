package models

import (
	"time"
)

// Boulder is one route in the competition. ZoneCount says how many
// intermediate zone holds exist before the top: 0, 1 or 2. Boulders are
// immutable while a competition is running.
type Boulder struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Label     string    `json:"label" gorm:"not null;index"`
	Color     string    `json:"color"`
	ZoneCount int       `json:"zone_count" gorm:"default:0"` // 0, 1 or 2
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	AgeGroups []AgeGroup `json:"age_groups,omitempty" gorm:"many2many:boulder_age_groups"`
}
