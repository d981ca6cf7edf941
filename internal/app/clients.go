package app

import (
	"context"
	"fmt"

	"github.com/yungbote/pitwall/internal/platform/redis"
	"github.com/yungbote/pitwall/internal/data/db"
	"github.com/yungbote/pitwall/internal/platform/gcp"
	"github.com/yungbote/pitwall/internal/platform/logger"
	"github.com/yungbote/pitwall/internal/platform/ollama"
	"github.com/yungbote/pitwall/internal/platform/openai"
	"github.com/yungbote/pitwall/internal/platform/qdrant"
)

// Embedder is satisfied by both the Ollama and the OpenAI-compatible clients.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type Clients struct {
	DB       *db.Service
	Embedder Embedder
	LLM      openai.Client

	// Optional; nil when not configured.
	Qdrant  *qdrant.Client
	Locker  *redis.Locker
	Archive *gcp.CorpusArchive
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Datastore
	dbs, err := db.NewService(log, cfg.DB)
	if err != nil {
		return out, fmt.Errorf("init database: %w", err)
	}
	if err := dbs.AutoMigrateAll(); err != nil {
		_ = dbs.Close()
		return out, fmt.Errorf("automigrate: %w", err)
	}
	out.DB = dbs

	// Embeddings
	emb, err := newEmbedder(log, cfg)
	if err != nil {
		out.Close(log)
		return Clients{}, err
	}
	out.Embedder = emb

	// LLM
	llm, err := openai.NewClient(log, openai.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
		MaxRetries:  cfg.LLMMaxRetries,
		Service:     "llm",
	})
	if err != nil {
		out.Close(log)
		return Clients{}, fmt.Errorf("init llm client: %w", err)
	}
	out.LLM = llm

	// Qdrant
	icfg, err := resolveVectorIndexConfig(cfg)
	if err != nil {
		out.Close(log)
		return Clients{}, err
	}
	if icfg.Mode == VectorIndexQdrant {
		qc, err := qdrant.NewClient(log, icfg.Qdrant)
		if err != nil {
			out.Close(log)
			return Clients{}, fmt.Errorf("init qdrant client: %w", err)
		}
		out.Qdrant = qc
	}

	// Redis
	if cfg.RedisAddr != "" {
		locker, err := redis.NewLocker(log, redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			out.Close(log)
			return Clients{}, fmt.Errorf("init redis locker: %w", err)
		}
		out.Locker = locker
	}

	// Gcs
	if cfg.ArchiveBucket != "" {
		archive, err := gcp.NewCorpusArchive(ctx, log, gcp.ArchiveConfig{Bucket: cfg.ArchiveBucket, EmulatorHost: cfg.ArchiveEmulatorHost})
		if err != nil {
			out.Close(log)
			return Clients{}, fmt.Errorf("init corpus archive: %w", err)
		}
		out.Archive = archive
	}

	return out, nil
}

func newEmbedder(log *logger.Logger, cfg Config) (Embedder, error) {
	switch cfg.EmbedProvider {
	case "", EmbedProviderOllama:
		return ollama.NewClient(log, cfg.OllamaHost, cfg.EmbedModel, cfg.EmbedTimeout), nil
	case EmbedProviderOpenAI:
		model := cfg.EmbedModel
		if model == "" {
			model = "text-embedding-3-small"
		}
		c, err := openai.NewClient(log, openai.Config{
			BaseURL:    cfg.EmbedBaseURL,
			APIKey:     cfg.EmbedAPIKey,
			EmbedModel: model,
			Timeout:    cfg.EmbedTimeout,
			MaxRetries: 2,
			Service:    "embeddings",
		})
		if err != nil {
			return nil, fmt.Errorf("init embeddings client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported EMBED_PROVIDER %q", cfg.EmbedProvider)
	}
}

// Close releases every client that was opened.
func (c Clients) Close(log *logger.Logger) {
	if c.Archive != nil {
		if err := c.Archive.Close(); err != nil {
			log.Warn("Corpus archive close failed", "error", err)
		}
	}
	if c.Locker != nil {
		if err := c.Locker.Close(); err != nil {
			log.Warn("Redis close failed", "error", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			log.Warn("Database close failed", "error", err)
		}
	}
}
