package services

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"boulder-scoring-system/models"
)

// ScoreboardService serves ranked standings per age group. Computation runs
// against a plain snapshot read — scoring never blocks the write path — and
// the result is cached for a few seconds, so the endpoint is safe to poll at
// display-refresh frequency. Accepted writes invalidate the cache; staleness
// within the TTL is the deliberate trade against recomputation cost.
type ScoreboardService struct {
	DB       *gorm.DB
	Settings *SettingsService
	cache    *memoryCache
}

func NewScoreboardService(db *gorm.DB, settings *SettingsService) *ScoreboardService {
	return &ScoreboardService{DB: db, Settings: settings, cache: newMemoryCache()}
}

func scoreboardCacheKey(ageGroupID, gradingSystem string) string {
	return fmt.Sprintf("scoreboard_%s_%s", ageGroupID, gradingSystem)
}

// InvalidateAgeGroup drops every cached scoreboard for the age group. Called
// after each accepted write.
func (s *ScoreboardService) InvalidateAgeGroup(ageGroupID string) {
	s.cache.Delete(
		scoreboardCacheKey(ageGroupID, models.GradingIFSC),
		scoreboardCacheKey(ageGroupID, models.GradingPointBased),
		scoreboardCacheKey(ageGroupID, models.GradingPointDynamic),
	)
}

// GetScoreboard handles GET /api/scoreboard/:id.
func (s *ScoreboardService) GetScoreboard(c *fiber.Ctx) error {
	ageGroupID := c.Params("id")

	response, err := s.ScoreboardForAgeGroup(ageGroupID)
	if err != nil {
		if IsConfiguration(err) {
			log.Printf("[SCOREBOARD] %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
				"code":  "configuration_error",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to compute scoreboard",
		})
	}
	return c.JSON(response)
}

// ScoreboardForAgeGroup returns the ranked standings, from cache when fresh.
func (s *ScoreboardService) ScoreboardForAgeGroup(ageGroupID string) (*models.ScoreboardResponse, error) {
	gradingSystem, settings, err := s.Settings.GradingSystem()
	if err != nil {
		return nil, err
	}

	key := scoreboardCacheKey(ageGroupID, gradingSystem)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*models.ScoreboardResponse), nil
	}

	response, err := s.computeScoreboard(ageGroupID, gradingSystem, settings)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, response, scoreboardCacheTTL)
	return response, nil
}

func (s *ScoreboardService) computeScoreboard(ageGroupID, gradingSystem string, settings *models.CompetitionSettings) (*models.ScoreboardResponse, error) {
	var participants []models.Participant
	if err := s.DB.Where("age_group_id = ?", ageGroupID).Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}

	zoneCounts, err := s.zoneCountsForAgeGroup(ageGroupID)
	if err != nil {
		return nil, err
	}

	participantIDs := make([]string, 0, len(participants))
	for _, p := range participants {
		participantIDs = append(participantIDs, p.ID)
	}

	var results []models.Result
	if len(participantIDs) > 0 {
		if err := s.DB.Where("participant_id IN ?", participantIDs).Find(&results).Error; err != nil {
			return nil, fmt.Errorf("load results: %w", err)
		}
	}
	results = FilterToBoulderSet(results, zoneCounts)

	resultsByID := make(map[string][]models.Result)
	for _, res := range results {
		resultsByID[res.ParticipantID] = append(resultsByID[res.ParticipantID], res)
	}

	entries, err := BuildStandings(participants, resultsByID, zoneCounts, gradingSystem, settings)
	if err != nil {
		return nil, err
	}

	return &models.ScoreboardResponse{
		OK:            true,
		AgeGroupID:    ageGroupID,
		GradingSystem: gradingSystem,
		Entries:       entries,
		GeneratedAt:   float64(time.Now().UnixNano()) / float64(time.Second),
	}, nil
}

func (s *ScoreboardService) zoneCountsForAgeGroup(ageGroupID string) (map[string]int, error) {
	var boulders []models.Boulder
	err := s.DB.
		Joins("JOIN boulder_age_groups bag ON bag.boulder_id = boulders.id").
		Where("bag.age_group_id = ?", ageGroupID).
		Find(&boulders).Error
	if err != nil {
		return nil, fmt.Errorf("load boulders: %w", err)
	}

	zoneCounts := make(map[string]int, len(boulders))
	for _, b := range boulders {
		zoneCounts[b.ID] = b.ZoneCount
	}
	return zoneCounts, nil
}
