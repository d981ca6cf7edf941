package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	corpusrepo "github.com/yungbote/pitwall/internal/data/repos/corpus"
	"github.com/yungbote/pitwall/internal/domain/corpus"
	"github.com/yungbote/pitwall/internal/platform/dbctx"
	"github.com/yungbote/pitwall/internal/platform/logger"
	"github.com/yungbote/pitwall/internal/platform/qdrant"
)

const DefaultTopK = 5

// Result is a retrieved chunk and its cosine similarity to the query.
type Result struct {
	Chunk *corpus.TextChunk
	Score float64
}

// Index finds the k stored chunks most similar to a query vector, best first.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
}

// ScanIndex compares the query against every stored chunk.
type ScanIndex struct {
	log    *logger.Logger
	chunks corpusrepo.ChunkRepo
}

func NewScanIndex(log *logger.Logger, chunks corpusrepo.ChunkRepo) *ScanIndex {
	return &ScanIndex{log: log.With("index", "ScanIndex"), chunks: chunks}
}

func (s *ScanIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	rows, err := s.chunks.ListAll(dbctx.New(ctx))
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	candidates := make([]Candidate[*corpus.TextChunk], 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, Candidate[*corpus.TextChunk]{Item: row, Vector: row.Vector()})
	}
	scored, skipped := TopK(query, candidates, k)
	if skipped > 0 {
		s.log.Warn("Invalid embedding format; pairs skipped", "skipped", skipped, "scanned", len(rows))
	}
	out := make([]Result, len(scored))
	for i, sc := range scored {
		out[i] = Result{Chunk: sc.Item, Score: sc.Score}
	}
	return out, nil
}

// QdrantIndex delegates the nearest-neighbour search to Qdrant and hydrates
// chunk text from the relational store. It also mirrors chunks into Qdrant
// during ingestion.
type QdrantIndex struct {
	log    *logger.Logger
	client *qdrant.Client
	chunks corpusrepo.ChunkRepo
}

func NewQdrantIndex(log *logger.Logger, client *qdrant.Client, chunks corpusrepo.ChunkRepo) *QdrantIndex {
	return &QdrantIndex{log: log.With("index", "QdrantIndex"), client: client, chunks: chunks}
}

func (q *QdrantIndex) Index(ctx context.Context, rows []*corpus.TextChunk) error {
	points := make([]qdrant.Point, 0, len(rows))
	for _, row := range rows {
		vec := row.Vector()
		if len(vec) == 0 {
			continue
		}
		points = append(points, qdrant.Point{ID: row.ID, Vector: vec})
	}
	if len(points) == 0 {
		return nil
	}
	if err := q.client.EnsureCollection(ctx, len(points[0].Vector)); err != nil {
		return err
	}
	return q.client.Upsert(ctx, points)
}

func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) == 0 {
		return nil, nil
	}
	matches, err := q.client.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	rows, err := q.chunks.GetByIDs(dbctx.New(ctx), ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate chunks: %w", err)
	}
	byID := make(map[uuid.UUID]*corpus.TextChunk, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		row, ok := byID[m.ID]
		if !ok {
			q.log.Warn("Qdrant point without chunk row", "chunk_id", m.ID.String())
			continue
		}
		out = append(out, Result{Chunk: row, Score: m.Score})
	}
	return out, nil
}
