package models

import (
	"time"
)

// Participant is a competitor account. Identity resolution (login, session)
// happens upstream in the gateway; this service only ever sees an
// authenticated participant ID.
type Participant struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"not null"`
	DateOfBirth time.Time `json:"date_of_birth" gorm:"not null"`
	Gender      string    `json:"gender" gorm:"not null"`
	AgeGroupID  *string   `json:"age_group_id,omitempty" gorm:"index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`

	AgeGroup *AgeGroup `json:"age_group,omitempty" gorm:"foreignKey:AgeGroupID"`
}

// Age returns the participant's age in full years as of today.
func (p *Participant) Age() int {
	return p.AgeAt(time.Now())
}

// AgeAt returns the participant's age in full years at the given instant.
func (p *Participant) AgeAt(when time.Time) int {
	years := when.Year() - p.DateOfBirth.Year()
	if when.Month() < p.DateOfBirth.Month() ||
		(when.Month() == p.DateOfBirth.Month() && when.Day() < p.DateOfBirth.Day()) {
		years--
	}
	return years
}
