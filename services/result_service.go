package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"boulder-scoring-system/middleware"
	"boulder-scoring-system/models"
)

// Tolerance when comparing a device edit timestamp against the stored
// updated_at. Microsecond jitter between serialization layers must not flip
// a merge decision.
const timestampEpsilon = 0.0001

// ResultService owns the per-(participant, boulder) result records and the
// server half of the sync protocol: re-validate every incoming draft, gate on
// the submission window, and reconcile concurrent edits through the version
// counter. Human-entered competition data is never silently discarded — a
// stale write loses to a fresher one by recency, not by a flat CAS failure.
type ResultService struct {
	DB         *gorm.DB
	Windows    *WindowService
	Scoreboard *ScoreboardService
	Clock      clockwork.Clock
}

func NewResultService(db *gorm.DB, windows *WindowService, scoreboard *ScoreboardService) *ResultService {
	return &ResultService{
		DB:         db,
		Windows:    windows,
		Scoreboard: scoreboard,
		Clock:      clockwork.NewRealClock(),
	}
}

// SubmitResults handles POST /api/results: a batch of full per-boulder
// drafts with the device's last-known version each.
func (s *ResultService) SubmitResults(c *fiber.Ctx) error {
	participant := middleware.ParticipantFromCtx(c)

	status, err := s.Windows.StatusForParticipant(participant)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to evaluate submission window",
		})
	}
	if !status.CanSubmit() {
		log.Printf("[RESULTS] rejected write from %s: window state %s", participant.ID, status.State)
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{
			"error":  ErrWindowClosed.Error(),
			"code":   "window_closed",
			"window": status.Payload(),
		})
	}

	var req models.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "malformed submission payload",
			"code":  "validation_error",
		})
	}

	boulders, err := s.bouldersForParticipant(participant)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load boulders",
		})
	}

	// Validate the whole batch before touching a single row: a rejected
	// draft never leaves a partial write behind.
	normalized := make([]models.BoulderDraft, 0, len(req.Results))
	for _, draft := range req.Results {
		boulder, ok := boulders[draft.BoulderID]
		if !ok {
			log.Printf("[RESULTS] ignoring draft from %s: boulder %s is not in their boulder set", participant.ID, draft.BoulderID)
			continue
		}
		clean, err := NormalizeDraft(boulder, draft)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
				"code":  "validation_error",
			})
		}
		normalized = append(normalized, clean)
	}

	payloads, err := s.applySubmission(participant, normalized)
	if err != nil {
		log.Printf("[RESULTS] submission failed for %s: %v", participant.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to store results",
		})
	}

	if participant.AgeGroupID != nil {
		s.Scoreboard.InvalidateAgeGroup(*participant.AgeGroupID)
	}

	return c.JSON(models.SubmitResponse{OK: true, Results: payloads, Window: status.Payload()})
}

// GetResults handles GET /api/results: the resolved state of every boulder
// record plus the current window state. Devices poll this to converge even
// without local edits.
func (s *ResultService) GetResults(c *fiber.Ctx) error {
	participant := middleware.ParticipantFromCtx(c)

	status, err := s.Windows.StatusForParticipant(participant)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to evaluate submission window",
		})
	}

	var results []models.Result
	if err := s.DB.Where("participant_id = ?", participant.ID).Find(&results).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load results",
		})
	}

	payloads := make([]models.ResultPayload, 0, len(results))
	for i := range results {
		payloads = append(payloads, resultToPayload(&results[i]))
	}

	return c.JSON(models.ResultsResponse{OK: true, Results: payloads, Window: status.Payload()})
}

// applySubmission writes the normalized batch inside one transaction. Each
// record row is locked for the duration of its merge, so concurrent devices
// of the same participant serialize on the row.
func (s *ResultService) applySubmission(participant *models.Participant, drafts []models.BoulderDraft) ([]models.ResultPayload, error) {
	payloads := make([]models.ResultPayload, 0, len(drafts))
	now := s.Clock.Now()

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, draft := range drafts {
			var current models.Result
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("participant_id = ? AND boulder_id = ?", participant.ID, draft.BoulderID).
				First(&current).Error

			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				created := models.Result{
					ID:            uuid.NewString(),
					ParticipantID: participant.ID,
					BoulderID:     draft.BoulderID,
					UpdatedAt:     now,
				}
				applyDraft(&created, draft)
				created.Version = 1
				if err := tx.Create(&created).Error; err != nil {
					return fmt.Errorf("create result: %w", err)
				}
				payloads = append(payloads, resultToPayload(&created))

			case err != nil:
				return fmt.Errorf("load result: %w", err)

			default:
				resolved := resolveSubmission(&current, draft, now)
				if resolved {
					if err := tx.Save(&current).Error; err != nil {
						return fmt.Errorf("save result: %w", err)
					}
				}
				payloads = append(payloads, resultToPayload(&current))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payloads, nil
}

// resolveSubmission decides one boulder's merge and mutates current in place
// when the incoming draft wins. It returns true when the draft was accepted
// (version bumped, fields replaced, updated_at stamped with the server
// clock) and false when the stored record stands.
//
// A draft carrying the current version is a plain write. A draft carrying a
// stale version raced another device: the fresher edit wins, judged by the
// device's edit timestamp against the stored updated_at. The losing value is
// returned to the device, whose version then catches up.
func resolveSubmission(current *models.Result, draft models.BoulderDraft, now time.Time) bool {
	if draft.Version < current.Version && draft.EditedAt > 0 {
		storedAt := float64(current.UpdatedAt.UnixNano()) / float64(time.Second)
		if storedAt-draft.EditedAt > timestampEpsilon {
			// The stored write is fresher; keep it.
			return false
		}
	}

	applyDraft(current, draft)
	current.Version++
	current.UpdatedAt = now
	return true
}

func applyDraft(result *models.Result, draft models.BoulderDraft) {
	result.Zone1 = draft.Zone1
	result.Zone2 = draft.Zone2
	result.Top = draft.Top
	result.AttemptsZone1 = draft.AttemptsZone1
	result.AttemptsZone2 = draft.AttemptsZone2
	result.AttemptsTop = draft.AttemptsTop
}

func resultToPayload(result *models.Result) models.ResultPayload {
	return models.ResultPayload{
		BoulderID:     result.BoulderID,
		Zone1:         result.Zone1,
		Zone2:         result.Zone2,
		Top:           result.Top,
		AttemptsZone1: result.AttemptsZone1,
		AttemptsZone2: result.AttemptsZone2,
		AttemptsTop:   result.AttemptsTop,
		Version:       result.Version,
		UpdatedAt:     float64(result.UpdatedAt.UnixNano()) / float64(time.Second),
	}
}

// bouldersForParticipant loads the boulder set of the participant's age
// group, keyed by ID. No age group means no boulders.
func (s *ResultService) bouldersForParticipant(participant *models.Participant) (map[string]*models.Boulder, error) {
	byID := make(map[string]*models.Boulder)
	if participant.AgeGroupID == nil {
		return byID, nil
	}

	var boulders []models.Boulder
	err := s.DB.
		Joins("JOIN boulder_age_groups bag ON bag.boulder_id = boulders.id").
		Where("bag.age_group_id = ?", *participant.AgeGroupID).
		Order("label ASC").
		Find(&boulders).Error
	if err != nil {
		return nil, err
	}
	for i := range boulders {
		byID[boulders[i].ID] = &boulders[i]
	}
	return byID, nil
}
