package models

import (
	"time"
)

// Result is one participant's record for one boulder. It is created lazily on
// the first submission and mutated in place afterwards; corrections are new
// versions, never deletions.
//
// Invariants (enforced by normalization before any write):
//   - Top implies Zone2 (two-zone boulders) implies Zone1
//   - AttemptsTop >= AttemptsZone2 >= AttemptsZone1 >= 1 for achieved levels
//   - Version grows by exactly 1 on every accepted write
type Result struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	ParticipantID string    `json:"participant_id" gorm:"not null;uniqueIndex:idx_result_participant_boulder"`
	BoulderID     string    `json:"boulder_id" gorm:"not null;uniqueIndex:idx_result_participant_boulder"`
	Zone1         bool      `json:"zone1" gorm:"default:false"`
	Zone2         bool      `json:"zone2" gorm:"default:false"`
	Top           bool      `json:"top" gorm:"default:false"`
	AttemptsZone1 int       `json:"attempts_zone1" gorm:"default:0"`
	AttemptsZone2 int       `json:"attempts_zone2" gorm:"default:0"`
	AttemptsTop   int       `json:"attempts_top" gorm:"default:0"`
	Version       int64     `json:"version" gorm:"default:0"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	// UpdatedAt is stamped by the service with the server clock at accept
	// time, so device clock skew cannot make a stale write look fresh.
	// autoUpdateTime is off so the ORM never restamps it on save.
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`

	Participant *Participant `json:"participant,omitempty" gorm:"foreignKey:ParticipantID"`
	Boulder     *Boulder     `json:"boulder,omitempty" gorm:"foreignKey:BoulderID"`
}

// Flash reports whether the top was reached on the very first attempt, with
// every applicable lower level also done in one attempt. Flash is derived,
// never stored.
func (r *Result) Flash(zoneCount int) bool {
	if !r.Top || r.AttemptsTop != 1 {
		return false
	}
	if zoneCount >= 1 && r.AttemptsZone1 != 1 {
		return false
	}
	if zoneCount >= 2 && r.AttemptsZone2 != 1 {
		return false
	}
	return true
}
