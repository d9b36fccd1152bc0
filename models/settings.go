package models

import (
	"time"
)

// Grading systems supported by the scoring engine.
const (
	GradingIFSC         = "ifsc"
	GradingPointBased   = "point_based"
	GradingPointDynamic = "point_based_dynamic"
)

// CompetitionSettings is a singleton holding the active grading system and
// the parameters used by the point-based strategies. SingletonGuard carries a
// unique index so a second row can never be inserted.
type CompetitionSettings struct {
	ID             string `json:"id" gorm:"primaryKey"`
	SingletonGuard bool   `json:"-" gorm:"uniqueIndex;default:true"`
	GradingSystem  string `json:"grading_system" gorm:"default:'ifsc'"`

	// Fixed point values
	TopPoints      int `json:"top_points" gorm:"default:25"`
	FlashPoints    int `json:"flash_points" gorm:"default:30"`
	MinTopPoints   int `json:"min_top_points" gorm:"default:5"`
	ZonePoints     int `json:"zone_points" gorm:"default:10"`  // single-zone boulders
	Zone1Points    int `json:"zone1_points" gorm:"default:8"`  // lower zone on two-zone boulders
	Zone2Points    int `json:"zone2_points" gorm:"default:12"` // upper zone on two-zone boulders
	MinZonePoints  int `json:"min_zone_points" gorm:"default:2"`
	MinZone1Points int `json:"min_zone1_points" gorm:"default:2"`
	MinZone2Points int `json:"min_zone2_points" gorm:"default:3"`
	AttemptPenalty int `json:"attempt_penalty" gorm:"default:1"`

	// Dynamic top value per success-rate bucket. TopPoints50 applies when
	// more than 40% and at most 50% of the age group topped the boulder.
	TopPoints100 int `json:"top_points_100" gorm:"default:10"`
	TopPoints90  int `json:"top_points_90" gorm:"default:15"`
	TopPoints80  int `json:"top_points_80" gorm:"default:20"`
	TopPoints70  int `json:"top_points_70" gorm:"default:25"`
	TopPoints60  int `json:"top_points_60" gorm:"default:30"`
	TopPoints50  int `json:"top_points_50" gorm:"default:35"`
	TopPoints40  int `json:"top_points_40" gorm:"default:40"`
	TopPoints30  int `json:"top_points_30" gorm:"default:45"`
	TopPoints20  int `json:"top_points_20" gorm:"default:50"`
	TopPoints10  int `json:"top_points_10" gorm:"default:55"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// IsPointBased reports whether the active grading system needs point
// parameters at all.
func (s *CompetitionSettings) IsPointBased() bool {
	return s.GradingSystem == GradingPointBased || s.GradingSystem == GradingPointDynamic
}
