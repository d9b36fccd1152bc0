package services

import (
	"errors"
	"fmt"
)

// Error taxonomy at the write and scoring boundaries. Handlers map these to
// HTTP statuses plus a machine-readable code so clients can tell "refresh"
// apart from "fix your input".

// ValidationError rejects a malformed or internally inconsistent draft. A
// draft failing validation is never partially applied.
type ValidationError struct {
	BoulderID string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.BoulderID == "" {
		return fmt.Sprintf("invalid submission: %s", e.Reason)
	}
	return fmt.Sprintf("invalid submission for boulder %s: %s", e.BoulderID, e.Reason)
}

// ConfigurationError means the scoring parameters for the active grading
// system are missing or unusable. Scoring must fail loudly instead of
// substituting defaults that would misrank participants.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("scoring configuration error: %s", e.Reason)
}

// ErrWindowClosed rejects a write attempted outside an open submission
// window. The client must refresh its page state, not retry blindly.
var ErrWindowClosed = errors.New("submission window is not open")

// IsValidation reports whether err is a draft validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfiguration reports whether err is a scoring configuration failure.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
