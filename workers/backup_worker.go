package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"boulder-scoring-system/models"
	"boulder-scoring-system/utils"
)

// BackupWorker periodically exports the competition tables as a JSON
// snapshot and uploads it to R2. Result rows are the one dataset that cannot
// be re-entered after the event, so snapshots run throughout the day.
type BackupWorker struct {
	DB              *gorm.DB
	CompetitionName string
}

func NewBackupWorker(db *gorm.DB) *BackupWorker {
	name := os.Getenv("COMPETITION_NAME")
	if name == "" {
		name = "competition"
	}
	return &BackupWorker{DB: db, CompetitionName: name}
}

type backupSnapshot struct {
	TakenAt           time.Time                    `json:"taken_at"`
	AgeGroups         []models.AgeGroup            `json:"age_groups"`
	Participants      []models.Participant         `json:"participants"`
	Boulders          []models.Boulder             `json:"boulders"`
	Results           []models.Result              `json:"results"`
	SubmissionWindows []models.SubmissionWindow    `json:"submission_windows"`
	Settings          []models.CompetitionSettings `json:"settings"`
}

// Run polls on the given interval until the context is cancelled.
func (w *BackupWorker) Run(ctx context.Context, interval time.Duration) {
	log.Println("Starting backup worker...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Backup worker stopped.")
			return
		case <-ticker.C:
			if err := w.backupOnce(ctx); err != nil {
				log.Printf("[BACKUP] snapshot failed: %v", err)
			}
		}
	}
}

func (w *BackupWorker) backupOnce(ctx context.Context) error {
	snapshot := backupSnapshot{TakenAt: time.Now().UTC()}

	if err := w.DB.WithContext(ctx).Find(&snapshot.AgeGroups).Error; err != nil {
		return fmt.Errorf("export age groups: %w", err)
	}
	if err := w.DB.WithContext(ctx).Find(&snapshot.Participants).Error; err != nil {
		return fmt.Errorf("export participants: %w", err)
	}
	if err := w.DB.WithContext(ctx).Find(&snapshot.Boulders).Error; err != nil {
		return fmt.Errorf("export boulders: %w", err)
	}
	if err := w.DB.WithContext(ctx).Find(&snapshot.Results).Error; err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	if err := w.DB.WithContext(ctx).Find(&snapshot.SubmissionWindows).Error; err != nil {
		return fmt.Errorf("export submission windows: %w", err)
	}
	if err := w.DB.WithContext(ctx).Find(&snapshot.Settings).Error; err != nil {
		return fmt.Errorf("export settings: %w", err)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("backups/%s/%s.json",
		slug.Make(w.CompetitionName),
		snapshot.TakenAt.Format("2006-01-02T15-04-05Z"),
	)
	url, err := utils.UploadBytesToR2(ctx, data, key, "application/json")
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	log.Printf("[BACKUP] snapshot with %d result(s) uploaded to %s", len(snapshot.Results), url)
	return nil
}
