package corpus

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// IngestionRun records one bootstrap attempt and its counters.
type IngestionRun struct {
	ID     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Status string         `gorm:"column:status;type:text;not null;index" json:"status"`
	Error  string         `gorm:"column:error;type:text;not null;default:''" json:"error,omitempty"`
	Stats  datatypes.JSON `gorm:"column:stats" json:"stats"`

	StartedAt  time.Time  `gorm:"not null;index" json:"started_at"`
	FinishedAt *time.Time `gorm:"index" json:"finished_at,omitempty"`
}

func (IngestionRun) TableName() string { return "ingestion_run" }

func (r *IngestionRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RunStats is the JSON shape stored in IngestionRun.Stats.
type RunStats struct {
	URLs          int `json:"urls"`
	PagesFetched  int `json:"pages_fetched"`
	PagesSkipped  int `json:"pages_skipped"`
	CorpusChars   int `json:"corpus_chars"`
	Chunks        int `json:"chunks"`
	ChunksStored  int `json:"chunks_stored"`
	ChunksSkipped int `json:"chunks_skipped"`
}
