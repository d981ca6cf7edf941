package app

import (
	"strings"
	"time"

	"github.com/yungbote/pitwall/internal/data/db"
	"github.com/yungbote/pitwall/internal/modules/ingestion"
	"github.com/yungbote/pitwall/internal/platform/envutil"
)

const (
	EmbedProviderOllama = "ollama"
	EmbedProviderOpenAI = "openai"

	defaultLLMBaseURL = "https://api.groq.com/openai"
	defaultLLMModel   = "llama-3.3-70b-versatile"
)

type Config struct {
	Port        string
	LogMode     string
	ServiceName string
	Environment string
	CORSOrigins []string

	DB db.Config

	EmbedProvider string
	OllamaHost    string
	EmbedModel    string
	EmbedBaseURL  string
	EmbedAPIKey   string
	EmbedTimeout  time.Duration

	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTemperature float64
	LLMMaxRetries  int
	LLMTimeout     time.Duration

	VectorIndex      string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ArchiveBucket       string
	ArchiveEmulatorHost string

	AllowlistFile string
	Scraper       ingestion.ScraperConfig

	DiscordToken    string
	DiscordEmbedded bool
	ChatAPIURL      string
	ChatAPITimeout  time.Duration

	HistoryLimit     int
	BootstrapOnStart bool
}

// LoadConfig reads the process environment. Call godotenv first if a .env
// file should be honoured.
func LoadConfig() Config {
	dsn := envutil.String("POSTGRES_DSN", "")
	if dsn == "" && envutil.String("POSTGRES_HOST", "") != "" {
		dsn = db.PostgresDSN(
			envutil.String("POSTGRES_HOST", ""),
			envutil.String("POSTGRES_PORT", "5432"),
			envutil.String("POSTGRES_USER", "postgres"),
			envutil.String("POSTGRES_PASSWORD", ""),
			envutil.String("POSTGRES_NAME", "pitwall"),
			envutil.String("POSTGRES_SSLMODE", "disable"),
		)
	}

	return Config{
		Port:        envutil.String("PORT", "3001"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "pitwall"),
		Environment: envutil.String("APP_ENV", "development"),
		CORSOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		DB: db.Config{
			Driver:     strings.ToLower(envutil.String("DB_DRIVER", db.DriverPostgres)),
			DSN:        dsn,
			SQLitePath: envutil.String("SQLITE_PATH", ""),
		},

		EmbedProvider: strings.ToLower(envutil.String("EMBED_PROVIDER", EmbedProviderOllama)),
		OllamaHost:    envutil.String("OLLAMA_HOST", ""),
		EmbedModel:    envutil.String("EMBED_MODEL", ""),
		EmbedBaseURL:  envutil.String("EMBED_BASE_URL", ""),
		EmbedAPIKey:   envutil.String("EMBED_API_KEY", ""),
		EmbedTimeout:  envutil.Duration("EMBED_TIMEOUT_SECONDS", 120),

		LLMBaseURL:     envutil.String("LLM_BASE_URL", defaultLLMBaseURL),
		LLMAPIKey:      envutil.String("LLM_API_KEY", envutil.String("GROQ_API_KEY", "")),
		LLMModel:       envutil.String("LLM_MODEL", defaultLLMModel),
		LLMTemperature: envutil.Float("LLM_TEMPERATURE", 0.5),
		LLMMaxRetries:  envutil.Int("LLM_MAX_RETRIES", 0),
		LLMTimeout:     envutil.Duration("LLM_TIMEOUT_SECONDS", 60),

		VectorIndex:      strings.ToLower(envutil.String("VECTOR_INDEX", string(VectorIndexScan))),
		QdrantURL:        envutil.String("QDRANT_URL", ""),
		QdrantAPIKey:     envutil.String("QDRANT_API_KEY", ""),
		QdrantCollection: envutil.String("QDRANT_COLLECTION", ""),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),

		ArchiveBucket:       envutil.String("CORPUS_ARCHIVE_BUCKET", ""),
		ArchiveEmulatorHost: envutil.String("GCS_EMULATOR_HOST", ""),

		AllowlistFile: envutil.String("ALLOWLIST_FILE", ""),
		Scraper: ingestion.ScraperConfig{
			Concurrency: envutil.Int("SCRAPE_CONCURRENCY", 4),
			MaxBytes:    int64(envutil.Int("SCRAPE_MAX_BYTES", 8<<20)),
			Timeout:     envutil.Duration("SCRAPE_TIMEOUT_SECONDS", 30),
		},

		DiscordToken:    envutil.String("DISCORD_TOKEN", ""),
		DiscordEmbedded: envutil.Bool("DISCORD_EMBEDDED", false),
		ChatAPIURL:      envutil.String("CHAT_API_URL", ""),
		ChatAPITimeout:  envutil.Duration("CHAT_API_TIMEOUT_SECONDS", 120),

		HistoryLimit:     envutil.Int("CHAT_HISTORY_LIMIT", 0),
		BootstrapOnStart: envutil.Bool("BOOTSTRAP_ON_START", true),
	}
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
