package gcp

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/pitwall/internal/platform/logger"
)

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("0f1705d1-2c3f-4e40-b2f4-f855f7d3c8e8")
	assert.Equal(t, "corpus/0f1705d1-2c3f-4e40-b2f4-f855f7d3c8e8.txt", ObjectKey(id))
}

func TestNewCorpusArchive_RequiresBucket(t *testing.T) {
	_, err := NewCorpusArchive(context.Background(), logger.Nop(), ArchiveConfig{})
	assert.Error(t, err)
}

func TestClientOptionsFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	assert.Nil(t, ClientOptionsFromEnv())

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/sa.json")
	assert.Len(t, ClientOptionsFromEnv(), 1)
}

func TestCorpusArchiveEmulator(t *testing.T) {
	host := strings.TrimSpace(os.Getenv("TEST_GCS_EMULATOR_HOST"))
	bucket := strings.TrimSpace(os.Getenv("TEST_GCS_BUCKET"))
	if host == "" || bucket == "" {
		t.Skip("set TEST_GCS_EMULATOR_HOST and TEST_GCS_BUCKET to run emulator integration tests")
	}
	ctx := context.Background()
	a, err := NewCorpusArchive(ctx, logger.Nop(), ArchiveConfig{Bucket: bucket, EmulatorHost: host})
	require.NoError(t, err)
	defer a.Close()

	runID := uuid.New()
	key, err := a.Put(ctx, runID, "Lewis Hamilton is a British racing driver.")
	require.NoError(t, err)

	r, err := a.client.Bucket(bucket).Object(key).NewReader(ctx)
	require.NoError(t, err)
	defer r.Close()
	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Lewis Hamilton is a British racing driver.", string(raw))
}
