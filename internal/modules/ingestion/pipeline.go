package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/singleflight"

	corpusrepo "github.com/yungbote/pitwall/internal/data/repos/corpus"
	"github.com/yungbote/pitwall/internal/domain/corpus"
	"github.com/yungbote/pitwall/internal/platform/dbctx"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

const (
	bootstrapKey   = "pitwall:bootstrap"
	defaultLockTTL = 15 * time.Minute
	storeBatchSize = 32
)

// ErrLockHeld is returned by Locker.Acquire when another process owns the lock.
var ErrLockHeld = errors.New("bootstrap lock held elsewhere")

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type Lease interface {
	Release(ctx context.Context) error
}

// Locker guards the bootstrap across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Archiver keeps a copy of the raw corpus.
type Archiver interface {
	Put(ctx context.Context, runID uuid.UUID, text string) (string, error)
}

// Indexer receives stored chunks, e.g. to mirror them into an external
// nearest-neighbour index.
type Indexer interface {
	Index(ctx context.Context, chunks []*corpus.TextChunk) error
}

type Deps struct {
	Chunks   corpusrepo.ChunkRepo
	Runs     corpusrepo.RunRepo
	Scraper  *Scraper
	Splitter *Splitter
	Embedder Embedder
	// Optional.
	Locker   Locker
	Archiver Archiver
	Indexer  Indexer
}

// Result describes one EnsureCorpus call.
type Result struct {
	RunID uuid.UUID
	Stats corpus.RunStats
	// Skipped is true when no scrape ran: the corpus already existed or
	// another process holds the bootstrap lock.
	Skipped       bool
	HeldElsewhere bool
}

type Pipeline struct {
	log     *logger.Logger
	deps    Deps
	urls    []string
	lockTTL time.Duration
	group   singleflight.Group
}

func NewPipeline(log *logger.Logger, urls []string, deps Deps) (*Pipeline, error) {
	if deps.Chunks == nil || deps.Runs == nil || deps.Scraper == nil || deps.Embedder == nil {
		return nil, fmt.Errorf("ingestion pipeline: missing dependency")
	}
	if deps.Splitter == nil {
		deps.Splitter = NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	}
	return &Pipeline{
		log:     log.With("service", "IngestionPipeline"),
		deps:    deps,
		urls:    append([]string(nil), urls...),
		lockTTL: defaultLockTTL,
	}, nil
}

// HasCorpus reports whether any chunk is stored. A failed count reads as an
// empty corpus.
func (p *Pipeline) HasCorpus(ctx context.Context) bool {
	n, err := p.deps.Chunks.Count(dbctx.New(ctx))
	if err != nil {
		p.log.Warn("Chunk count failed; treating corpus as empty", "error", err)
		return false
	}
	return n > 0
}

// EnsureCorpus runs the bootstrap when the corpus is empty. Concurrent calls
// in this process share one run; other processes are kept out by Locker.
func (p *Pipeline) EnsureCorpus(ctx context.Context) (Result, error) {
	if p.HasCorpus(ctx) {
		return Result{Skipped: true}, nil
	}
	ch := p.group.DoChan(bootstrapKey, func() (interface{}, error) {
		// Shared by every waiter, so it must not die with the first caller.
		return p.bootstrap(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	}
}

func (p *Pipeline) bootstrap(ctx context.Context) (Result, error) {
	if p.deps.Locker != nil {
		lease, err := p.deps.Locker.Acquire(ctx, bootstrapKey, p.lockTTL)
		switch {
		case errors.Is(err, ErrLockHeld):
			p.log.Info("Bootstrap running in another process; not scraping")
			return Result{Skipped: true, HeldElsewhere: true}, nil
		case err != nil:
			p.log.Warn("Bootstrap lock unavailable; continuing unlocked", "error", err)
		default:
			defer func() {
				if err := lease.Release(ctx); err != nil {
					p.log.Warn("Bootstrap lock release failed", "error", err)
				}
			}()
		}
	}

	// Another process may have finished while we waited for the lock.
	if p.HasCorpus(ctx) {
		return Result{Skipped: true}, nil
	}
	return p.Run(ctx)
}

// Run scrapes, splits, embeds and stores unconditionally. Failures on single
// pages or chunks are logged and skipped; the run record captures counters.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	dbc := dbctx.New(ctx)
	run, err := p.deps.Runs.Start(dbc)
	if err != nil {
		return Result{}, fmt.Errorf("start ingestion run: %w", err)
	}
	log := p.log.With("run_id", run.ID.String())
	log.Info("No data found, scraping and storing new data", "urls", len(p.urls))

	stats := corpus.RunStats{URLs: len(p.urls)}
	runErr := p.run(ctx, log, run.ID, &stats)
	res := Result{RunID: run.ID, Stats: stats}

	status := corpus.RunStatusSucceeded
	if runErr != nil {
		status = corpus.RunStatusFailed
	}
	if err := p.deps.Runs.Finish(dbc, run.ID, status, stats, runErr); err != nil {
		log.Warn("Failed to record ingestion run", "error", err)
	}
	if runErr != nil {
		return res, runErr
	}
	log.Info("Bootstrap finished",
		"pages_fetched", stats.PagesFetched,
		"pages_skipped", stats.PagesSkipped,
		"chunks", stats.Chunks,
		"chunks_stored", stats.ChunksStored,
		"chunks_skipped", stats.ChunksSkipped,
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log *logger.Logger, runID uuid.UUID, stats *corpus.RunStats) error {
	text, pages := p.deps.Scraper.Scrape(ctx, p.urls)
	for _, pg := range pages {
		if pg.Err == nil && pg.Text != "" {
			stats.PagesFetched++
		} else {
			stats.PagesSkipped++
		}
	}
	stats.CorpusChars = runeLen(text)
	if text == "" {
		log.Warn("Corpus is empty; nothing to store")
		return nil
	}

	if p.deps.Archiver != nil {
		if key, err := p.deps.Archiver.Put(ctx, runID, text); err != nil {
			log.Warn("Corpus archive failed", "error", err)
		} else {
			log.Info("Corpus archived", "key", key)
		}
	}

	chunks := p.deps.Splitter.Split(text)
	stats.Chunks = len(chunks)

	batch := make([]*corpus.TextChunk, 0, storeBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		stored, err := p.deps.Chunks.Create(dbctx.New(ctx), batch)
		if err != nil {
			return fmt.Errorf("store chunks: %w", err)
		}
		stats.ChunksStored += len(stored)
		if p.deps.Indexer != nil {
			if err := p.deps.Indexer.Index(ctx, stored); err != nil {
				log.Warn("Chunk indexing failed", "chunks", len(stored), "error", err)
			}
		}
		batch = make([]*corpus.TextChunk, 0, storeBatchSize)
		return nil
	}

	rid := runID
	for i, chunk := range chunks {
		vec, err := p.embedOne(ctx, chunk)
		if err != nil {
			stats.ChunksSkipped++
			log.Warn("Embedding failed; chunk skipped", "chunk", i+1, "error", err)
			continue
		}
		batch = append(batch, &corpus.TextChunk{
			Text:           chunk,
			Embedding:      pgvector.NewVector(vec),
			IngestionRunID: &rid,
		})
		if len(batch) >= storeBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (p *Pipeline) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.deps.Embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, errors.New("embedding format error, expected a non-empty vector")
	}
	return vecs[0], nil
}
