package corpus

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/pitwall/internal/domain/corpus"
	"github.com/yungbote/pitwall/internal/platform/dbctx"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

const createBatchSize = 100

type ChunkRepo interface {
	Create(dbc dbctx.Context, rows []*domain.TextChunk) ([]*domain.TextChunk, error)
	Count(dbc dbctx.Context) (int64, error)
	// ListAll returns every stored chunk. There is no pagination; the corpus is
	// expected to fit in memory.
	ListAll(dbc dbctx.Context) ([]*domain.TextChunk, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.TextChunk, error)
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, log *logger.Logger) ChunkRepo {
	return &chunkRepo{db: db, log: log.With("repo", "ChunkRepo")}
}

func (r *chunkRepo) tx(dbc dbctx.Context) *gorm.DB {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx)
}

func (r *chunkRepo) Create(dbc dbctx.Context, rows []*domain.TextChunk) ([]*domain.TextChunk, error) {
	if len(rows) == 0 {
		return []*domain.TextChunk{}, nil
	}
	for _, row := range rows {
		// Ids are always fresh; callers never choose them.
		row.ID = uuid.New()
	}
	if err := r.tx(dbc).CreateInBatches(&rows, createBatchSize).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chunkRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := r.tx(dbc).Model(&domain.TextChunk{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *chunkRepo) ListAll(dbc dbctx.Context) ([]*domain.TextChunk, error) {
	var out []*domain.TextChunk
	if err := r.tx(dbc).Model(&domain.TextChunk{}).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chunkRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.TextChunk, error) {
	var out []*domain.TextChunk
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).Where("chunk_id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
