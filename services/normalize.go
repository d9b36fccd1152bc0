package services

import (
	"boulder-scoring-system/models"
)

// NormalizeDraft enforces the achievement hierarchy and attempt cascade for
// one boulder record. It is pure: the input draft is taken by value and a
// fully consistent copy (or a ValidationError) comes back, never a partial
// write.
//
// Rules, per the boulder's zone count:
//   - an achieved level has at least one attempt
//   - top implies zone2 (two-zone boulders) implies zone1
//   - clearing a lower level clears every level above it
//   - attempt counts never shrink going up the chain
//
// Both the device (pre-check) and the server (on every submission, since
// client-side validation is never trusted) run the same function.
func NormalizeDraft(boulder *models.Boulder, draft models.BoulderDraft) (models.BoulderDraft, error) {
	if draft.AttemptsZone1 < 0 || draft.AttemptsZone2 < 0 || draft.AttemptsTop < 0 {
		return models.BoulderDraft{}, &ValidationError{
			BoulderID: boulder.ID,
			Reason:    "attempt counts must not be negative",
		}
	}

	switch boulder.ZoneCount {
	case 0:
		return normalizeNoZones(draft), nil
	case 1:
		return normalizeSingleZone(draft), nil
	default:
		return normalizeTwoZones(draft), nil
	}
}

func normalizeNoZones(d models.BoulderDraft) models.BoulderDraft {
	d.Zone1 = false
	d.Zone2 = false
	d.AttemptsZone1 = 0
	d.AttemptsZone2 = 0
	if d.Top && d.AttemptsTop < 1 {
		d.AttemptsTop = 1
	}
	return d
}

func normalizeSingleZone(d models.BoulderDraft) models.BoulderDraft {
	d.Zone2 = false
	d.AttemptsZone2 = 0

	if d.Top {
		d.Zone1 = true
	}
	if !d.Zone1 {
		d.Top = false
	}

	if d.Zone1 && d.AttemptsZone1 < 1 {
		d.AttemptsZone1 = 1
	}
	if d.Top && d.AttemptsTop < 1 {
		d.AttemptsTop = 1
	}
	if d.Top && d.AttemptsTop < d.AttemptsZone1 {
		d.AttemptsTop = d.AttemptsZone1
	}
	return d
}

func normalizeTwoZones(d models.BoulderDraft) models.BoulderDraft {
	if d.Top {
		d.Zone2 = true
		d.Zone1 = true
	}
	if d.Zone2 {
		d.Zone1 = true
	}
	if !d.Zone1 {
		d.Zone2 = false
		d.Top = false
	}

	if d.Zone1 && d.AttemptsZone1 < 1 {
		d.AttemptsZone1 = 1
	}
	if d.Zone2 && d.AttemptsZone2 < 1 {
		d.AttemptsZone2 = 1
	}
	if d.Top && d.AttemptsTop < 1 {
		d.AttemptsTop = 1
	}

	// Monotone cascade: attempts never shrink going up.
	if d.Zone2 && d.AttemptsZone2 < d.AttemptsZone1 {
		d.AttemptsZone2 = d.AttemptsZone1
	}
	if d.Top {
		baseline := d.AttemptsZone1
		if d.Zone2 {
			baseline = d.AttemptsZone2
		}
		if d.AttemptsTop < baseline {
			d.AttemptsTop = baseline
		}
	}
	return d
}
