package corpus

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// TextChunk is one embedded segment of the scraped corpus. Rows are written
// once during bootstrap and never updated.
type TextChunk struct {
	ID   uuid.UUID `gorm:"column:chunk_id;type:uuid;primaryKey" json:"chunk_id"`
	Text string    `gorm:"column:text;type:text;not null" json:"text"`

	Embedding pgvector.Vector `gorm:"column:embedding;type:vector" json:"-"`

	IngestionRunID *uuid.UUID `gorm:"column:ingestion_run_id;type:uuid;index" json:"ingestion_run_id,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (TextChunk) TableName() string { return "text_chunk" }

func (c *TextChunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Vector returns the stored embedding as a plain slice.
func (c *TextChunk) Vector() []float32 {
	if c == nil {
		return nil
	}
	return c.Embedding.Slice()
}
