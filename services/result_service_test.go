package services

import (
	"testing"
	"time"

	"boulder-scoring-system/models"
)

func epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func storedResult(version int64, updatedAt time.Time) *models.Result {
	return &models.Result{
		ID:            "r1",
		ParticipantID: "p1",
		BoulderID:     "b1",
		Zone1:         true,
		AttemptsZone1: 2,
		Version:       version,
		UpdatedAt:     updatedAt,
	}
}

func TestResolveSubmissionCurrentVersionIsPlainWrite(t *testing.T) {
	stored := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	now := stored.Add(5 * time.Second)
	current := storedResult(3, stored)
	draft := models.BoulderDraft{
		BoulderID: "b1",
		Zone1:     true, Zone2: true, Top: true,
		AttemptsZone1: 2, AttemptsZone2: 3, AttemptsTop: 4,
		Version:  3,
		EditedAt: epoch(stored.Add(2 * time.Second)),
	}

	if !resolveSubmission(current, draft, now) {
		t.Fatal("matching version must be accepted")
	}
	if !current.Top || current.AttemptsTop != 4 {
		t.Fatalf("draft fields not applied: %+v", current)
	}
	if current.Version != 4 {
		t.Fatalf("version = %d, want 4", current.Version)
	}
	// updated_at carries the server clock, never the device's.
	if !current.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at = %v, want %v", current.UpdatedAt, now)
	}
}

func TestResolveSubmissionStaleVersionOlderEditLoses(t *testing.T) {
	stored := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	current := storedResult(5, stored)
	draft := models.BoulderDraft{
		BoulderID: "b1",
		Top:       true, Zone1: true, Zone2: true,
		AttemptsZone1: 1, AttemptsZone2: 1, AttemptsTop: 1,
		Version:  3,
		EditedAt: epoch(stored.Add(-10 * time.Second)),
	}

	if resolveSubmission(current, draft, stored.Add(time.Minute)) {
		t.Fatal("a stale draft older than the stored write must lose")
	}
	if current.Top {
		t.Fatal("losing draft must not touch the stored fields")
	}
	// No bump: the stored version already exceeds the device's, which is
	// enough for the device to adopt the returned record.
	if current.Version != 5 {
		t.Fatalf("version = %d, want 5", current.Version)
	}
	if !current.UpdatedAt.Equal(stored) {
		t.Fatalf("updated_at must be untouched, got %v", current.UpdatedAt)
	}
}

func TestResolveSubmissionStaleVersionNewerEditWins(t *testing.T) {
	stored := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	now := stored.Add(time.Minute)
	current := storedResult(5, stored)
	draft := models.BoulderDraft{
		BoulderID: "b1",
		Top:       true, Zone1: true, Zone2: true,
		AttemptsZone1: 1, AttemptsZone2: 1, AttemptsTop: 1,
		Version:  3,
		EditedAt: epoch(stored.Add(10 * time.Second)),
	}

	if !resolveSubmission(current, draft, now) {
		t.Fatal("a stale draft fresher than the stored write must win")
	}
	if !current.Top {
		t.Fatal("winning draft fields not applied")
	}
	if current.Version != 6 {
		t.Fatalf("version = %d, want 6", current.Version)
	}
	if !current.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at = %v, want %v", current.UpdatedAt, now)
	}
}

func TestResolveSubmissionStaleVersionWithoutTimestampWins(t *testing.T) {
	// A device that never recorded an edit time still gets its write in:
	// human-entered data beats a tiebreak we cannot judge.
	stored := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	current := storedResult(5, stored)
	draft := models.BoulderDraft{BoulderID: "b1", Zone1: true, AttemptsZone1: 3, Version: 2}

	if !resolveSubmission(current, draft, stored.Add(time.Minute)) {
		t.Fatal("stale draft without an edit timestamp must be accepted")
	}
	if current.AttemptsZone1 != 3 || current.Version != 6 {
		t.Fatalf("current = %+v", current)
	}
}

func TestResolveSubmissionEpsilonSwallowsJitter(t *testing.T) {
	// An edit a fraction of a millisecond older than the stored write is a
	// serialization artifact, not a lost race.
	stored := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	current := storedResult(5, stored)
	draft := models.BoulderDraft{
		BoulderID: "b1",
		Zone1:     true, AttemptsZone1: 3,
		Version:  3,
		EditedAt: epoch(stored) - 0.00005,
	}

	if !resolveSubmission(current, draft, stored.Add(time.Second)) {
		t.Fatal("sub-epsilon skew must not flip the merge")
	}
}

func TestResolveSubmissionVersionNeverDecreases(t *testing.T) {
	stored := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	current := storedResult(1, stored)
	now := stored

	for i := 0; i < 5; i++ {
		before := current.Version
		now = now.Add(time.Second)
		draft := models.BoulderDraft{
			BoulderID: "b1",
			Zone1:     true, AttemptsZone1: i + 1,
			Version:  before,
			EditedAt: epoch(now),
		}
		resolveSubmission(current, draft, now)
		if current.Version < before {
			t.Fatalf("version went backwards: %d -> %d", before, current.Version)
		}
	}
	if current.Version != 6 {
		t.Fatalf("version = %d, want 6 after five accepted writes", current.Version)
	}
}
