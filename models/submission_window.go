package models

import (
	"time"
)

// SubmissionWindow is an admin-configured interval during which the age
// groups attached to it may enter results. Windows for the same age group
// must not overlap; the scheduling UI enforces that, the gate assumes it.
type SubmissionWindow struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at" gorm:"not null;index"`
	EndsAt    time.Time `json:"ends_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	AgeGroups []AgeGroup `json:"age_groups,omitempty" gorm:"many2many:submission_window_age_groups"`
}

// BroadcastMessage is a singleton announcement shown to all participants.
// Clients pick it up on their regular poll; there is no push channel.
type BroadcastMessage struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Message   string    `json:"message" gorm:"type:text"`
	Active    bool      `json:"active" gorm:"default:false"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
