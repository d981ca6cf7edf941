package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/yungbote/pitwall/internal/platform/logger"
)

const corpusPrefix = "corpus/"

type ArchiveConfig struct {
	Bucket string
	// EmulatorHost points the client at a fake-gcs-server style emulator.
	EmulatorHost string
}

// CorpusArchive keeps a copy of each scraped corpus in a GCS bucket.
type CorpusArchive struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

func NewCorpusArchive(ctx context.Context, log *logger.Logger, cfg ArchiveConfig) (*CorpusArchive, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("missing env var CORPUS_ARCHIVE_BUCKET")
	}

	var opts []option.ClientOption
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog := log.With("service", "CorpusArchive")
	serviceLog.Info("Corpus archive enabled", "bucket", bucket, "emulator", cfg.EmulatorHost != "")
	return &CorpusArchive{log: serviceLog, client: client, bucket: bucket}, nil
}

// ObjectKey is where the corpus of run runID is stored.
func ObjectKey(runID uuid.UUID) string {
	return corpusPrefix + runID.String() + ".txt"
}

// Put uploads text under ObjectKey(runID) and returns the key.
func (a *CorpusArchive) Put(ctx context.Context, runID uuid.UUID, text string) (string, error) {
	if a == nil || a.client == nil {
		return "", fmt.Errorf("corpus archive not initialized")
	}
	key := ObjectKey(runID)
	w := a.client.Bucket(a.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"
	if _, err := w.Write([]byte(text)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", a.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close gs://%s/%s: %w", a.bucket, key, err)
	}
	return key, nil
}

func (a *CorpusArchive) Close() error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Close()
}
