package models

import (
	"time"
)

// AgeGroup represents a tournament age bracket. Participants are ranked
// independently inside their bracket.
type AgeGroup struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	MinAge    int       `json:"min_age" gorm:"not null"`
	MaxAge    int       `json:"max_age" gorm:"not null"`
	Gender    string    `json:"gender" gorm:"default:'mixed'"` // male, female, mixed
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	// Relationships
	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:AgeGroupID"`
}

// Matches reports whether a participant of the given age and gender belongs
// in this bracket. Mixed groups accept every gender.
func (g *AgeGroup) Matches(age int, gender string) bool {
	inRange := g.MinAge <= age && age <= g.MaxAge
	genderOK := g.Gender == "mixed" || g.Gender == gender
	return inRange && genderOK
}
