package client

import (
	"path/filepath"
	"testing"

	"boulder-scoring-system/models"
)

func TestDraftStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")
	store, err := OpenDraftStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	first := models.BoulderDraft{BoulderID: "b1", Zone1: true, AttemptsZone1: 2, Version: 1, EditedAt: 1700000000.5}
	second := models.BoulderDraft{BoulderID: "b2", Top: true, Zone1: true, Zone2: true, AttemptsZone1: 1, AttemptsZone2: 2, AttemptsTop: 3, Version: 4}
	if err := store.Put(first); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(second); err != nil {
		t.Fatal(err)
	}

	drafts, err := store.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 2 {
		t.Fatalf("loaded %d drafts, want 2", len(drafts))
	}

	if err := store.Delete("b1"); err != nil {
		t.Fatal(err)
	}
	drafts, err = store.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 1 || drafts[0].BoulderID != "b2" {
		t.Fatalf("after delete: %+v", drafts)
	}
}

func TestDraftStorePutReplacesByBoulder(t *testing.T) {
	store, err := OpenDraftStore(filepath.Join(t.TempDir(), "drafts.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.Put(models.BoulderDraft{BoulderID: "b1", AttemptsZone1: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(models.BoulderDraft{BoulderID: "b1", Zone1: true, AttemptsZone1: 2}); err != nil {
		t.Fatal(err)
	}

	drafts, err := store.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 1 || drafts[0].AttemptsZone1 != 2 || !drafts[0].Zone1 {
		t.Fatalf("drafts = %+v", drafts)
	}
}

func TestDraftStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")
	store, err := OpenDraftStore(path)
	if err != nil {
		t.Fatal(err)
	}
	draft := models.BoulderDraft{BoulderID: "b7", Zone1: true, Zone2: true, AttemptsZone1: 3, AttemptsZone2: 5, Version: 2, EditedAt: 1700000042}
	if err := store.Put(draft); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenDraftStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	drafts, err := reopened.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 1 || drafts[0] != draft {
		t.Fatalf("drafts = %+v, want %+v", drafts, draft)
	}
}
