package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/pitwall/internal/domain/conversation"
	"github.com/yungbote/pitwall/internal/domain/corpus"
)

// AutoMigrateAll creates missing tables and columns. It never drops anything,
// so it is safe to run on every start.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&corpus.TextChunk{},
		&corpus.IngestionRun{},
		&conversation.Turn{},
	)
}
