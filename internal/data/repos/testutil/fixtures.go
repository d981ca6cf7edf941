package testutil

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/yungbote/pitwall/internal/domain/corpus"
)

func SeedChunk(tb testing.TB, ctx context.Context, tx *gorm.DB, text string, vec []float32) *corpus.TextChunk {
	tb.Helper()
	c := &corpus.TextChunk{
		Text:      text,
		Embedding: pgvector.NewVector(vec),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed chunk: %v", err)
	}
	return c
}
