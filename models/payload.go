package models

// Wire types shared by the HTTP handlers and the device sync client. Records
// travel as full state, never diffs: the server re-validates and merges, the
// client adopts whatever resolved state comes back.

// BoulderDraft is the client-side value for one boulder: the full draft
// state plus the last server version the device has seen. EditedAt is the
// device wall clock of the last local edit, in unix seconds; it only matters
// when the carried version turns out to be stale and the server has to pick
// a winner by recency.
type BoulderDraft struct {
	BoulderID     string  `json:"boulder_id"`
	Zone1         bool    `json:"zone1"`
	Zone2         bool    `json:"zone2"`
	Top           bool    `json:"top"`
	AttemptsZone1 int     `json:"attempts_zone1"`
	AttemptsZone2 int     `json:"attempts_zone2"`
	AttemptsTop   int     `json:"attempts_top"`
	Version       int64   `json:"version"`
	EditedAt      float64 `json:"edited_at,omitempty"`
}

// ResultPayload is the server-resolved state of one boulder record.
type ResultPayload struct {
	BoulderID     string  `json:"boulder_id"`
	Zone1         bool    `json:"zone1"`
	Zone2         bool    `json:"zone2"`
	Top           bool    `json:"top"`
	AttemptsZone1 int     `json:"attempts_zone1"`
	AttemptsZone2 int     `json:"attempts_zone2"`
	AttemptsTop   int     `json:"attempts_top"`
	Version       int64   `json:"version"`
	UpdatedAt     float64 `json:"updated_at"` // unix seconds, server clock
}

// SubmitRequest is the batch a device sends after its debounce interval.
type SubmitRequest struct {
	Results []BoulderDraft `json:"results"`
}

// WindowStatusPayload mirrors the gate state so clients can react to
// open/close transitions without a separate request.
type WindowStatusPayload struct {
	State      string   `json:"state"` // no_window, locked, open, closed
	CanSubmit  bool     `json:"can_submit"`
	ClosesAt   *float64 `json:"closes_at,omitempty"`    // unix seconds, set while open
	NextOpenAt *float64 `json:"next_open_at,omitempty"` // unix seconds, set while locked
}

// SubmitResponse carries the resolved record for every boulder touched.
type SubmitResponse struct {
	OK      bool                `json:"ok"`
	Results []ResultPayload     `json:"results"`
	Window  WindowStatusPayload `json:"window"`
}

// ResultsResponse is the read/reconciliation payload: same resolved records,
// plus the current window state for countdown display.
type ResultsResponse struct {
	OK      bool                `json:"ok"`
	Results []ResultPayload     `json:"results"`
	Window  WindowStatusPayload `json:"window"`
}

// ScoreboardEntry is one ranked row of an age group's standings.
type ScoreboardEntry struct {
	Rank            int    `json:"rank"`
	ParticipantID   string `json:"participant_id"`
	ParticipantName string `json:"participant_name"`
	Tops            int    `json:"tops"`
	Zones           int    `json:"zones"`
	TopAttempts     int    `json:"top_attempts"`
	ZoneAttempts    int    `json:"zone_attempts"`
	Points          int    `json:"points,omitempty"`
	Attempts        int    `json:"attempts,omitempty"`
}

// ScoreboardResponse is the cached ranked output for one age group.
type ScoreboardResponse struct {
	OK            bool              `json:"ok"`
	AgeGroupID    string            `json:"age_group_id"`
	GradingSystem string            `json:"grading_system"`
	Entries       []ScoreboardEntry `json:"entries"`
	GeneratedAt   float64           `json:"generated_at"` // unix seconds
}
