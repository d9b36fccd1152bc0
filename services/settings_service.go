package services

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"boulder-scoring-system/models"
)

const settingsCacheKey = "competition_settings"

// SettingsService resolves the singleton CompetitionSettings row. Scoring
// always receives an explicit settings snapshot from here; nothing reads the
// singleton ambiently.
type SettingsService struct {
	DB    *gorm.DB
	cache *memoryCache
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{DB: db, cache: newMemoryCache()}
}

// Active returns the current settings snapshot, or nil when none is
// configured yet. Cached for a few minutes; admin edits call Invalidate.
func (s *SettingsService) Active() (*models.CompetitionSettings, error) {
	if cached, ok := s.cache.Get(settingsCacheKey); ok {
		return cached.(*models.CompetitionSettings), nil
	}

	var settings models.CompetitionSettings
	err := s.DB.Order("updated_at DESC, id DESC").First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.cache.Set(settingsCacheKey, &settings, settingsCacheTTL)
	return &settings, nil
}

// GradingSystem returns the active grading system plus its settings. Without
// a settings row the competition runs plain IFSC; a point-based system
// without parameters is a configuration error surfaced to the caller.
func (s *SettingsService) GradingSystem() (string, *models.CompetitionSettings, error) {
	settings, err := s.Active()
	if err != nil {
		return "", nil, err
	}
	if settings == nil {
		return models.GradingIFSC, nil, nil
	}
	return settings.GradingSystem, settings, nil
}

// Invalidate drops the cached snapshot after an admin edit.
func (s *SettingsService) Invalidate() {
	s.cache.Delete(settingsCacheKey)
	log.Printf("[SETTINGS] cache invalidated")
}
