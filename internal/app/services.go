package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/pitwall/internal/platform/redis"
	"github.com/yungbote/pitwall/internal/modules/chat"
	"github.com/yungbote/pitwall/internal/modules/ingestion"
	"github.com/yungbote/pitwall/internal/modules/retrieval"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

type Services struct {
	Pipeline  *ingestion.Pipeline
	Retriever *retrieval.Retriever
	Chat      chat.Usecases
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, repos Repos) (Services, error) {
	log.Info("Wiring services...")

	urls, err := ingestion.LoadAllowlist(cfg.AllowlistFile)
	if err != nil {
		return Services{}, err
	}

	deps := ingestion.Deps{
		Chunks:   repos.Chunks,
		Runs:     repos.Runs,
		Scraper:  ingestion.NewScraper(log, cfg.Scraper),
		Splitter: ingestion.NewSplitter(ingestion.DefaultChunkSize, ingestion.DefaultChunkOverlap),
		Embedder: clients.Embedder,
	}
	if clients.Locker != nil {
		deps.Locker = redisLocker{inner: clients.Locker}
	}
	if clients.Archive != nil {
		deps.Archiver = clients.Archive
	}

	var index retrieval.Index = retrieval.NewScanIndex(log, repos.Chunks)
	if clients.Qdrant != nil {
		q := retrieval.NewQdrantIndex(log, clients.Qdrant, repos.Chunks)
		deps.Indexer = q
		index = q
	}

	pipeline, err := ingestion.NewPipeline(log, urls, deps)
	if err != nil {
		return Services{}, fmt.Errorf("init ingestion pipeline: %w", err)
	}
	retriever := retrieval.NewRetriever(log, index, retrieval.DefaultTopK)

	return Services{
		Pipeline:  pipeline,
		Retriever: retriever,
		Chat: chat.New(chat.UsecasesDeps{
			Log:          log,
			Embedder:     clients.Embedder,
			Retriever:    retriever,
			LLM:          clients.LLM,
			Turns:        repos.Turns,
			Corpus:       pipeline,
			HistoryLimit: cfg.HistoryLimit,
		}),
	}, nil
}

type leaseAcquirer interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*redis.Lease, error)
}

// redisLocker adapts the redis client to ingestion.Locker.
type redisLocker struct {
	inner leaseAcquirer
}

func (l redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (ingestion.Lease, error) {
	lease, err := l.inner.Acquire(ctx, key, ttl)
	if errors.Is(err, redis.ErrNotHeld) {
		return nil, ingestion.ErrLockHeld
	}
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// chatAnswerer lets the Discord bot call the chat flow in-process.
type chatAnswerer struct {
	chat chat.Usecases
}

func (a chatAnswerer) Ask(ctx context.Context, query, userID string) (string, error) {
	out, err := a.chat.Answer(ctx, chat.AnswerInput{Query: query, UserID: userID})
	if err != nil {
		return "", err
	}
	return out.Answer, nil
}
