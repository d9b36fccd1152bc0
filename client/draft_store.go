package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"boulder-scoring-system/models"
)

// BoltDB bucket name for storing unsent drafts
const draftsBucket = "drafts"

// DraftStore persists dirty drafts on the device, so an app force-closed
// mid-window does not lose attempt data that was typed but never sent.
type DraftStore struct {
	db *bbolt.DB
}

// OpenDraftStore opens (or creates) the BoltDB-backed draft store.
func OpenDraftStore(dbPath string) (*DraftStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create draft store directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open draft store at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(draftsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create drafts bucket: %w", err)
	}

	return &DraftStore{db: db}, nil
}

// Put saves one dirty draft keyed by its boulder ID.
func (s *DraftStore) Put(draft models.BoulderDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(draftsBucket)).Put([]byte(draft.BoulderID), data)
	})
}

// Delete removes a draft once the server has acknowledged it.
func (s *DraftStore) Delete(boulderID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(draftsBucket)).Delete([]byte(boulderID))
	})
}

// LoadAll returns every unsent draft, for requeueing at startup.
func (s *DraftStore) LoadAll() ([]models.BoulderDraft, error) {
	var drafts []models.BoulderDraft
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(draftsBucket)).ForEach(func(k, v []byte) error {
			var draft models.BoulderDraft
			if err := json.Unmarshal(v, &draft); err != nil {
				return fmt.Errorf("failed to unmarshal draft %s: %w", k, err)
			}
			drafts = append(drafts, draft)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// Close releases the underlying database.
func (s *DraftStore) Close() error {
	return s.db.Close()
}
