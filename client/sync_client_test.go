package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"boulder-scoring-system/models"
)

var openWindow = models.WindowStatusPayload{State: "open", CanSubmit: true}

// fakeTransport records submissions on a channel and answers with
// swappable handler funcs.
type fakeTransport struct {
	mu         sync.Mutex
	submits    chan models.SubmitRequest
	submitResp func(models.SubmitRequest) (*models.SubmitResponse, error)
	fetchResp  func() (*models.ResultsResponse, error)
}

func newFakeTransport() *fakeTransport {
	ft := &fakeTransport{submits: make(chan models.SubmitRequest, 16)}
	ft.submitResp = func(req models.SubmitRequest) (*models.SubmitResponse, error) {
		return acceptAll(req), nil
	}
	ft.fetchResp = func() (*models.ResultsResponse, error) {
		return &models.ResultsResponse{OK: true, Window: openWindow}, nil
	}
	return ft
}

func (f *fakeTransport) Submit(ctx context.Context, req models.SubmitRequest) (*models.SubmitResponse, error) {
	f.mu.Lock()
	fn := f.submitResp
	f.mu.Unlock()
	f.submits <- req
	return fn(req)
}

func (f *fakeTransport) Fetch(ctx context.Context) (*models.ResultsResponse, error) {
	f.mu.Lock()
	fn := f.fetchResp
	f.mu.Unlock()
	return fn()
}

func (f *fakeTransport) setSubmitResp(fn func(models.SubmitRequest) (*models.SubmitResponse, error)) {
	f.mu.Lock()
	f.submitResp = fn
	f.mu.Unlock()
}

func (f *fakeTransport) setFetchResp(fn func() (*models.ResultsResponse, error)) {
	f.mu.Lock()
	f.fetchResp = fn
	f.mu.Unlock()
}

// acceptAll plays the server's happy path: every draft accepted, version
// bumped by one.
func acceptAll(req models.SubmitRequest) *models.SubmitResponse {
	resp := &models.SubmitResponse{OK: true, Window: openWindow}
	for _, draft := range req.Results {
		resp.Results = append(resp.Results, models.ResultPayload{
			BoulderID:     draft.BoulderID,
			Zone1:         draft.Zone1,
			Zone2:         draft.Zone2,
			Top:           draft.Top,
			AttemptsZone1: draft.AttemptsZone1,
			AttemptsZone2: draft.AttemptsZone2,
			AttemptsTop:   draft.AttemptsTop,
			Version:       draft.Version + 1,
			UpdatedAt:     draft.EditedAt,
		})
	}
	return resp
}

func waitSubmit(t *testing.T, ft *fakeTransport) models.SubmitRequest {
	t.Helper()
	select {
	case req := <-ft.submits:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("no submission arrived")
		return models.SubmitRequest{}
	}
}

func expectNoSubmit(t *testing.T, ft *fakeTransport) {
	t.Helper()
	select {
	case req := <-ft.submits:
		t.Fatalf("unexpected submission: %+v", req)
	case <-time.After(100 * time.Millisecond):
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func findDraft(t *testing.T, req models.SubmitRequest, boulderID string) models.BoulderDraft {
	t.Helper()
	for _, draft := range req.Results {
		if draft.BoulderID == boulderID {
			return draft
		}
	}
	t.Fatalf("submission misses boulder %s: %+v", boulderID, req.Results)
	return models.BoulderDraft{}
}

func startClient(t *testing.T, cfg Config) (*SyncClient, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	cfg.Clock = clock
	c := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)
	return c, clock
}

func TestDebounceBatchesEditsIntoOneSubmission(t *testing.T) {
	ft := newFakeTransport()
	c, clock := startClient(t, Config{
		Transport:    ft,
		Debounce:     time.Second,
		PollInterval: time.Hour,
	})

	// Three edits inside one debounce interval, the second superseding the
	// first on the same boulder.
	c.Edit("b1", models.BoulderDraft{Zone1: true, AttemptsZone1: 1})
	c.Edit("b1", models.BoulderDraft{Zone1: true, AttemptsZone1: 2})
	c.Edit("b2", models.BoulderDraft{Zone1: true, Zone2: true, AttemptsZone1: 1, AttemptsZone2: 3})

	clock.Advance(time.Second)
	req := waitSubmit(t, ft)

	if len(req.Results) != 2 {
		t.Fatalf("submitted %d drafts, want 2", len(req.Results))
	}
	if d := findDraft(t, req, "b1"); d.AttemptsZone1 != 2 {
		t.Fatalf("b1 must carry the latest edit, got attempts %d", d.AttemptsZone1)
	}
	findDraft(t, req, "b2")

	waitFor(t, "b1 adoption", func() bool {
		rec, ok := c.Record("b1")
		return ok && rec.Version == 1
	})

	// Nothing dirty anymore: another interval passes without a request.
	clock.Advance(time.Second)
	expectNoSubmit(t, ft)
}

func TestEditCarriesKnownVersionAndClockTimestamp(t *testing.T) {
	ft := newFakeTransport()
	c, clock := startClient(t, Config{
		Transport:    ft,
		Debounce:     time.Second,
		PollInterval: time.Hour,
	})

	c.Edit("b1", models.BoulderDraft{Zone1: true, AttemptsZone1: 1})
	clock.Advance(time.Second)
	waitSubmit(t, ft)
	waitFor(t, "first adoption", func() bool {
		rec, ok := c.Record("b1")
		return ok && rec.Version == 1
	})

	editTime := clock.Now()
	c.Edit("b1", models.BoulderDraft{Zone1: true, AttemptsZone1: 2})
	clock.Advance(time.Second)
	req := waitSubmit(t, ft)

	d := findDraft(t, req, "b1")
	if d.Version != 1 {
		t.Fatalf("draft version = %d, want the adopted record's 1", d.Version)
	}
	want := float64(editTime.UnixNano()) / float64(time.Second)
	if d.EditedAt != want {
		t.Fatalf("edited at = %f, want %f", d.EditedAt, want)
	}
}

func TestTransientFailureRetriesWithDirtyState(t *testing.T) {
	ft := newFakeTransport()
	ft.setSubmitResp(func(models.SubmitRequest) (*models.SubmitResponse, error) {
		return nil, &TransientError{Err: context.DeadlineExceeded}
	})
	c, clock := startClient(t, Config{
		Transport:    ft,
		Debounce:     time.Second,
		PollInterval: time.Hour,
	})

	c.Edit("b1", models.BoulderDraft{Zone1: true, AttemptsZone1: 4})
	clock.Advance(time.Second)
	waitSubmit(t, ft)

	// The failure re-arms the debounce; wait for the retry timer plus the
	// poll ticker to be registered before advancing again.
	ft.setSubmitResp(func(req models.SubmitRequest) (*models.SubmitResponse, error) {
		return acceptAll(req), nil
	})
	clock.BlockUntil(2)
	clock.Advance(time.Second)

	retry := waitSubmit(t, ft)
	if d := findDraft(t, retry, "b1"); d.AttemptsZone1 != 4 {
		t.Fatalf("retry lost the dirty draft: %+v", d)
	}
	if !c.Editing() {
		t.Fatal("a transient failure must not disable editing")
	}
}

func TestWindowClosedStopsEditing(t *testing.T) {
	closed := make(chan struct{}, 1)
	ft := newFakeTransport()
	ft.setSubmitResp(func(models.SubmitRequest) (*models.SubmitResponse, error) {
		return nil, ErrWindowClosed
	})
	c, clock := startClient(t, Config{
		Transport:      ft,
		Debounce:       time.Second,
		PollInterval:   time.Hour,
		OnWindowClosed: func() { closed <- struct{}{} },
	})

	if !c.Edit("b1", models.BoulderDraft{Top: true, Zone1: true, Zone2: true, AttemptsZone1: 1, AttemptsZone2: 1, AttemptsTop: 1}) {
		t.Fatal("edit must be accepted while the window is open")
	}
	clock.Advance(time.Second)
	waitSubmit(t, ft)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("window-closed callback never fired")
	}
	if c.Editing() {
		t.Fatal("editing must be disabled after a window rejection")
	}
	if c.Edit("b1", models.BoulderDraft{Top: true}) {
		t.Fatal("edits must be rejected while the window is closed")
	}
}

func TestWindowReopeningResumesEditing(t *testing.T) {
	ft := newFakeTransport()
	ft.setFetchResp(func() (*models.ResultsResponse, error) {
		return &models.ResultsResponse{OK: true, Window: models.WindowStatusPayload{State: "locked"}}, nil
	})
	c, clock := startClient(t, Config{
		Transport:    ft,
		Debounce:     time.Hour,
		PollInterval: time.Minute,
	})

	// Wait for the run loop to register its poll ticker before advancing.
	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	waitFor(t, "editing disabled while locked", func() bool { return !c.Editing() })

	ft.setFetchResp(func() (*models.ResultsResponse, error) {
		return &models.ResultsResponse{OK: true, Window: openWindow}, nil
	})
	clock.Advance(time.Minute)
	waitFor(t, "editing resumed after reopening", func() bool { return c.Editing() })
}

func TestAdoptOnlyStrictlyNewerVersions(t *testing.T) {
	ft := newFakeTransport()
	ft.setFetchResp(func() (*models.ResultsResponse, error) {
		return &models.ResultsResponse{
			OK:      true,
			Window:  openWindow,
			Results: []models.ResultPayload{{BoulderID: "b1", Top: true, Zone1: true, Zone2: true, AttemptsZone1: 1, AttemptsZone2: 1, AttemptsTop: 2, Version: 5}},
		}, nil
	})
	c, clock := startClient(t, Config{
		Transport:    ft,
		Debounce:     time.Hour,
		PollInterval: time.Minute,
	})

	// Wait for the run loop to register its poll ticker before advancing.
	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	waitFor(t, "version 5 adopted", func() bool {
		rec, ok := c.Record("b1")
		return ok && rec.Version == 5
	})

	// A later poll delivering an older version must not roll the record back.
	ft.setFetchResp(func() (*models.ResultsResponse, error) {
		return &models.ResultsResponse{
			OK:      true,
			Window:  openWindow,
			Results: []models.ResultPayload{{BoulderID: "b1", Zone1: true, AttemptsZone1: 1, Version: 4}},
		}, nil
	})
	clock.Advance(time.Minute)
	time.Sleep(100 * time.Millisecond)

	rec, _ := c.Record("b1")
	if rec.Version != 5 || !rec.Top {
		t.Fatalf("record regressed: %+v", rec)
	}
}

func TestDirtyDraftSurvivesPollAndCarriesNewestVersion(t *testing.T) {
	ft := newFakeTransport()
	ft.setFetchResp(func() (*models.ResultsResponse, error) {
		return &models.ResultsResponse{
			OK:      true,
			Window:  openWindow,
			Results: []models.ResultPayload{{BoulderID: "b1", Top: true, Zone1: true, Zone2: true, AttemptsZone1: 1, AttemptsZone2: 1, AttemptsTop: 1, Version: 7}},
		}, nil
	})
	c, clock := startClient(t, Config{
		Transport:    ft,
		Debounce:     10 * time.Minute,
		PollInterval: time.Minute,
	})

	// Local edit first, then a poll result from the other device lands.
	c.Edit("b1", models.BoulderDraft{Zone1: true, AttemptsZone1: 2})
	clock.Advance(time.Minute)
	waitFor(t, "version 7 adopted", func() bool {
		rec, ok := c.Record("b1")
		return ok && rec.Version == 7
	})

	clock.Advance(9 * time.Minute)
	req := waitSubmit(t, ft)

	// The local content stands, stamped with the newest known version so the
	// server merges by recency instead of treating the device as ancient.
	d := findDraft(t, req, "b1")
	if d.Top || d.AttemptsZone1 != 2 {
		t.Fatalf("poll overwrote the dirty draft: %+v", d)
	}
	if d.Version != 7 {
		t.Fatalf("draft version = %d, want the adopted 7", d.Version)
	}
}

func TestPersistedDraftsRequeueAtStartup(t *testing.T) {
	store, err := OpenDraftStore(t.TempDir() + "/drafts.db")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	saved := models.BoulderDraft{BoulderID: "b9", Zone1: true, Zone2: true, AttemptsZone1: 2, AttemptsZone2: 4, Version: 3, EditedAt: 1700000000}
	if err := store.Put(saved); err != nil {
		t.Fatal(err)
	}

	ft := newFakeTransport()
	_, clock := startClient(t, Config{
		Transport:    ft,
		Store:        store,
		Debounce:     time.Second,
		PollInterval: time.Hour,
	})

	// The run loop registers the poll ticker plus the requeue debounce
	// timer; advance only once both exist.
	clock.BlockUntil(2)
	clock.Advance(time.Second)
	req := waitSubmit(t, ft)
	if d := findDraft(t, req, "b9"); d.AttemptsZone2 != 4 || d.Version != 3 {
		t.Fatalf("requeued draft mangled: %+v", d)
	}

	// Acceptance clears the persisted copy.
	waitFor(t, "persisted draft cleared", func() bool {
		drafts, err := store.LoadAll()
		return err == nil && len(drafts) == 0
	})
}
