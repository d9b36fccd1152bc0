// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"boulder-scoring-system/models"
)

// StartWarmupScheduler keeps the scoreboard cache primed so the public
// scoreboard never pays a cold recompute during a busy window. Recompute
// runs per age group and simply overwrites the cache entry; write-triggered
// invalidation between runs still takes effect immediately.
func (s *ScoreboardService) StartWarmupScheduler(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			var ageGroups []models.AgeGroup
			if err := s.DB.Find(&ageGroups).Error; err != nil {
				log.Printf("[Warmup] DB error: %v", err)
				return
			}

			for _, group := range ageGroups {
				if _, err := s.ScoreboardForAgeGroup(group.ID); err != nil {
					log.Printf("[Warmup] failed to warm scoreboard for %s: %v", group.Name, err)
				}
			}
		}),
	)
}
