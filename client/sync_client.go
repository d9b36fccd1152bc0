package client

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"boulder-scoring-system/models"
)

const (
	// Edits settle before a round-trip is attempted. Bounds request volume
	// on bursty input like repeated attempt-counter taps.
	defaultDebounce = 800 * time.Millisecond
	// Low-frequency read-only pull so a phone and a tablet of the same
	// participant converge even without local edits.
	defaultPollInterval = 30 * time.Second
)

// Config wires a SyncClient. Only Transport is required.
type Config struct {
	Transport    Transport
	Store        *DraftStore // optional draft persistence
	Clock        clockwork.Clock
	Debounce     time.Duration
	PollInterval time.Duration
	// OnWindowClosed fires when the server reports the window shut. The app
	// must refresh its page state; local editing is already disabled by then.
	OnWindowClosed func()
}

// SyncClient is the device half of the sync protocol. One goroutine owns all
// state: edits, debounce firings, submission responses and poll results are
// serialized onto it, so "apply server update" can never race "apply local
// edit" on the same device.
//
// Convergence rules:
//   - a response record is adopted only when its version is strictly newer
//     than the local one; a version never regresses
//   - a dirty draft keeps its content across adoption (it will win the
//     server-side merge by recency) but carries the newest known version
//   - network failure keeps the dirty flag set; the next debounce tick or
//     poll retries
type SyncClient struct {
	transport    Transport
	store        *DraftStore
	clock        clockwork.Clock
	debounce     time.Duration
	pollInterval time.Duration
	onClosed     func()

	cmds chan func()

	// Everything below is touched only from the run loop.
	records     map[string]models.ResultPayload
	drafts      map[string]models.BoulderDraft
	dirty       map[string]uint64 // boulder ID -> edit sequence at last change
	editSeq     uint64
	editing     bool
	windowState string
	timer       clockwork.Timer
	inFlight    bool
	flushQueued bool
}

// New builds a SyncClient and requeues any drafts persisted by a previous
// session.
func New(cfg Config) *SyncClient {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	c := &SyncClient{
		transport:    cfg.Transport,
		store:        cfg.Store,
		clock:        cfg.Clock,
		debounce:     cfg.Debounce,
		pollInterval: cfg.PollInterval,
		onClosed:     cfg.OnWindowClosed,
		cmds:         make(chan func()),
		records:      make(map[string]models.ResultPayload),
		drafts:       make(map[string]models.BoulderDraft),
		dirty:        make(map[string]uint64),
		editing:      true,
	}

	if c.store != nil {
		saved, err := c.store.LoadAll()
		if err != nil {
			log.Printf("[SYNC] failed to load persisted drafts: %v", err)
		}
		for _, draft := range saved {
			c.editSeq++
			c.drafts[draft.BoulderID] = draft
			c.dirty[draft.BoulderID] = c.editSeq
		}
	}
	return c
}

// Run drives the event loop until ctx is cancelled. Call it from exactly one
// goroutine.
func (c *SyncClient) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.pollInterval)
	defer ticker.Stop()

	// Anything left over from the previous session goes out once the first
	// debounce interval passes.
	if len(c.dirty) > 0 {
		c.resetDebounce()
	}

	for {
		var timerC <-chan time.Time
		if c.timer != nil {
			timerC = c.timer.Chan()
		}

		select {
		case <-ctx.Done():
			return
		case fn := <-c.cmds:
			fn()
		case <-timerC:
			c.timer = nil
			c.flush(ctx)
		case <-ticker.Chan():
			c.poll(ctx)
		}
	}
}

// Edit records a local draft change. Returns false when editing is disabled
// because the window has closed; the caller should refresh instead.
func (c *SyncClient) Edit(boulderID string, draft models.BoulderDraft) bool {
	accepted := make(chan bool, 1)
	c.cmds <- func() {
		if !c.editing {
			accepted <- false
			return
		}
		draft.BoulderID = boulderID
		if rec, ok := c.records[boulderID]; ok {
			draft.Version = rec.Version
		}
		draft.EditedAt = c.unixNow()

		c.editSeq++
		c.drafts[boulderID] = draft
		c.dirty[boulderID] = c.editSeq
		c.persist(draft)
		c.resetDebounce()
		accepted <- true
	}
	return <-accepted
}

// Record returns the last adopted server state for a boulder.
func (c *SyncClient) Record(boulderID string) (models.ResultPayload, bool) {
	type answer struct {
		rec models.ResultPayload
		ok  bool
	}
	reply := make(chan answer, 1)
	c.cmds <- func() {
		rec, ok := c.records[boulderID]
		reply <- answer{rec, ok}
	}
	a := <-reply
	return a.rec, a.ok
}

// Editing reports whether local edits are currently accepted.
func (c *SyncClient) Editing() bool {
	reply := make(chan bool, 1)
	c.cmds <- func() { reply <- c.editing }
	return <-reply
}

// resetDebounce supersedes any pending debounce timer. Earlier timers are
// discarded, not executed: only the latest settles into a submission.
func (c *SyncClient) resetDebounce() {
	if c.timer != nil {
		stopAndDrainTimer(c.timer)
	}
	c.timer = c.clock.NewTimer(c.debounce)
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// flush snapshots the full draft state and submits it off-loop. The loop
// stays responsive; the response comes back as a command.
func (c *SyncClient) flush(ctx context.Context) {
	if len(c.dirty) == 0 {
		return
	}
	if c.inFlight {
		c.flushQueued = true
		return
	}
	c.inFlight = true

	// Full current state for all known boulders, not just the dirty ones:
	// the server merges, it does not patch diffs.
	req := models.SubmitRequest{}
	for _, draft := range c.drafts {
		req.Results = append(req.Results, draft)
	}
	for id, rec := range c.records {
		if _, isDraft := c.drafts[id]; !isDraft {
			req.Results = append(req.Results, payloadToDraft(rec))
		}
	}

	snapshot := make(map[string]uint64, len(c.dirty))
	for id, seq := range c.dirty {
		snapshot[id] = seq
	}

	go func() {
		resp, err := c.transport.Submit(ctx, req)
		select {
		case c.cmds <- func() { c.handleSubmitResult(resp, err, snapshot) }:
		case <-ctx.Done():
		}
	}()
}

func (c *SyncClient) handleSubmitResult(resp *models.SubmitResponse, err error, snapshot map[string]uint64) {
	c.inFlight = false

	if err != nil {
		if errors.Is(err, ErrWindowClosed) {
			c.disableEditing()
			return
		}
		// Transient or otherwise: the dirty flags stay set and the next
		// debounce tick retries.
		log.Printf("[SYNC] submission failed, will retry: %v", err)
		c.resetDebounce()
		return
	}

	for _, rec := range resp.Results {
		c.adopt(rec, snapshot)
	}
	c.applyWindow(resp.Window)

	if c.flushQueued {
		c.flushQueued = false
		c.resetDebounce()
	}
}

// adopt applies one resolved record under the "strictly newer version only"
// rule. snapshot is nil for poll results, which never clear dirty flags.
func (c *SyncClient) adopt(rec models.ResultPayload, snapshot map[string]uint64) {
	local, known := c.records[rec.BoulderID]
	if known && rec.Version <= local.Version {
		return
	}
	c.records[rec.BoulderID] = rec

	seqAtSubmit, wasDirty := snapshot[rec.BoulderID]
	if wasDirty && c.dirty[rec.BoulderID] == seqAtSubmit {
		// No further local edit happened during the round trip: the server
		// state is authoritative and the draft is clean.
		delete(c.dirty, rec.BoulderID)
		c.drafts[rec.BoulderID] = payloadToDraft(rec)
		if c.store != nil {
			if err := c.store.Delete(rec.BoulderID); err != nil {
				log.Printf("[SYNC] failed to drop persisted draft %s: %v", rec.BoulderID, err)
			}
		}
		return
	}

	// A newer local edit exists; keep its content but carry the freshest
	// version so the next submission merges instead of looking ancient.
	_, stillDirty := c.dirty[rec.BoulderID]
	if draft, ok := c.drafts[rec.BoulderID]; ok && stillDirty {
		draft.Version = rec.Version
		c.drafts[rec.BoulderID] = draft
		c.persist(draft)
	}
}

// poll runs the low-frequency read-only reconciliation pull.
func (c *SyncClient) poll(ctx context.Context) {
	go func() {
		resp, err := c.transport.Fetch(ctx)
		select {
		case c.cmds <- func() { c.handleFetchResult(resp, err) }:
		case <-ctx.Done():
		}
	}()
}

func (c *SyncClient) handleFetchResult(resp *models.ResultsResponse, err error) {
	if err != nil {
		log.Printf("[SYNC] poll failed: %v", err)
		return
	}
	for _, rec := range resp.Results {
		c.adopt(rec, nil)
	}
	c.applyWindow(resp.Window)

	// Regaining connectivity counts as a retry trigger for anything dirty.
	if len(c.dirty) > 0 && c.editing && c.timer == nil && !c.inFlight {
		c.resetDebounce()
	}
}

// applyWindow reacts to gate transitions reported by the server. Window
// bounds cached locally are never trusted across a transition — admins may
// reshape windows at any point.
func (c *SyncClient) applyWindow(window models.WindowStatusPayload) {
	previous := c.windowState
	c.windowState = window.State

	if !window.CanSubmit {
		if c.editing {
			c.disableEditing()
		}
		return
	}
	if previous != "" && previous != window.State {
		// Locked -> Open boundary: resume editing against fresh state.
		c.editing = true
	}
}

func (c *SyncClient) disableEditing() {
	c.editing = false
	log.Printf("[SYNC] submission window closed, editing disabled")
	if c.onClosed != nil {
		c.onClosed()
	}
}

func (c *SyncClient) persist(draft models.BoulderDraft) {
	if c.store == nil {
		return
	}
	if err := c.store.Put(draft); err != nil {
		log.Printf("[SYNC] failed to persist draft %s: %v", draft.BoulderID, err)
	}
}

func (c *SyncClient) unixNow() float64 {
	return float64(c.clock.Now().UnixNano()) / float64(time.Second)
}

func payloadToDraft(rec models.ResultPayload) models.BoulderDraft {
	return models.BoulderDraft{
		BoulderID:     rec.BoulderID,
		Zone1:         rec.Zone1,
		Zone2:         rec.Zone2,
		Top:           rec.Top,
		AttemptsZone1: rec.AttemptsZone1,
		AttemptsZone2: rec.AttemptsZone2,
		AttemptsTop:   rec.AttemptsTop,
		Version:       rec.Version,
		EditedAt:      rec.UpdatedAt,
	}
}
