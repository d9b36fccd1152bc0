package services

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"boulder-scoring-system/middleware"
	"boulder-scoring-system/models"
)

// Gate states. There is no persisted "current state"; the gate is a pure
// function of the wall clock and the configured windows, so every client and
// server recomputes it independently and lands on the same answer.
const (
	StateNoWindow = "no_window" // nothing configured, writes denied until an admin acts
	StateLocked   = "locked"    // a future window exists, countdown to NextOpenAt
	StateOpen     = "open"      // now is inside [start, end), writes allowed
	StateClosed   = "closed"    // all windows are over, writes denied
)

// WindowStatus is the evaluated gate state for one participant at one
// instant.
type WindowStatus struct {
	State      string
	ClosesAt   *time.Time // set while open
	NextOpenAt *time.Time // set while locked
}

// CanSubmit reports whether writes are allowed in this state.
func (ws WindowStatus) CanSubmit() bool {
	return ws.State == StateOpen
}

// Payload converts the status to its wire form.
func (ws WindowStatus) Payload() models.WindowStatusPayload {
	payload := models.WindowStatusPayload{State: ws.State, CanSubmit: ws.CanSubmit()}
	if ws.ClosesAt != nil {
		ts := float64(ws.ClosesAt.UnixNano()) / float64(time.Second)
		payload.ClosesAt = &ts
	}
	if ws.NextOpenAt != nil {
		ts := float64(ws.NextOpenAt.UnixNano()) / float64(time.Second)
		payload.NextOpenAt = &ts
	}
	return payload
}

// EvaluateWindows computes the gate state for a set of windows at the given
// instant. Windows are half-open: now == start is already open, now == end
// is already closed. Grace extends the closing edge only, for judges who hit
// save a breath too late.
func EvaluateWindows(now time.Time, windows []models.SubmissionWindow, grace time.Duration) WindowStatus {
	if len(windows) == 0 {
		return WindowStatus{State: StateNoWindow}
	}

	var nextOpen *time.Time
	for i := range windows {
		w := windows[i]
		if !now.Before(w.StartsAt) && now.Before(w.EndsAt.Add(grace)) {
			end := w.EndsAt
			return WindowStatus{State: StateOpen, ClosesAt: &end}
		}
		if now.Before(w.StartsAt) && (nextOpen == nil || w.StartsAt.Before(*nextOpen)) {
			start := w.StartsAt
			nextOpen = &start
		}
	}

	if nextOpen != nil {
		return WindowStatus{State: StateLocked, NextOpenAt: nextOpen}
	}
	return WindowStatus{State: StateClosed}
}

// WindowService loads the windows applying to a participant's age group and
// evaluates the gate against an injectable clock, so tests can freeze time.
type WindowService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
	Grace time.Duration
}

func NewWindowService(db *gorm.DB, grace time.Duration) *WindowService {
	return &WindowService{DB: db, Clock: clockwork.NewRealClock(), Grace: grace}
}

// StatusForParticipant evaluates the gate for the participant's age group.
// Participants without an age group have no windows and therefore no write
// access.
func (s *WindowService) StatusForParticipant(participant *models.Participant) (WindowStatus, error) {
	if participant.AgeGroupID == nil {
		return WindowStatus{State: StateNoWindow}, nil
	}
	return s.StatusForAgeGroup(*participant.AgeGroupID)
}

// StatusForAgeGroup evaluates the gate for one age group.
func (s *WindowService) StatusForAgeGroup(ageGroupID string) (WindowStatus, error) {
	windows, err := s.windowsForAgeGroup(ageGroupID)
	if err != nil {
		return WindowStatus{}, err
	}
	return EvaluateWindows(s.Clock.Now(), windows, s.Grace), nil
}

func (s *WindowService) windowsForAgeGroup(ageGroupID string) ([]models.SubmissionWindow, error) {
	var windows []models.SubmissionWindow
	err := s.DB.
		Joins("JOIN submission_window_age_groups swag ON swag.submission_window_id = submission_windows.id").
		Where("swag.age_group_id = ?", ageGroupID).
		Order("starts_at ASC").
		Find(&windows).Error
	return windows, err
}

// GetWindow serves GET /api/window: the gate state alone, polled by clients
// driving countdown timers.
func (s *WindowService) GetWindow(c *fiber.Ctx) error {
	participant := middleware.ParticipantFromCtx(c)
	status, err := s.StatusForParticipant(participant)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to evaluate submission window",
		})
	}
	return c.JSON(fiber.Map{"ok": true, "window": status.Payload()})
}
