package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/pitwall/internal/platform/redis"
	"github.com/yungbote/pitwall/internal/data/db"
	"github.com/yungbote/pitwall/internal/modules/ingestion"
)

// fakeUpstreams serves the allowlisted page, an Ollama embed endpoint and an
// OpenAI-compatible chat endpoint.
type fakeUpstreams struct {
	srv      *httptest.Server
	llmCalls int32
	lastBody atomic.Value
}

func newFakeUpstreams(t *testing.T) *fakeUpstreams {
	t.Helper()
	f := &fakeUpstreams{}
	mux := http.NewServeMux()
	mux.HandleFunc("/f1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><h1>Abu Dhabi</h1><p>Lewis Hamilton won.</p></body></html>"))
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		out := make([][]float32, len(req.Input))
		for i, in := range req.Input {
			out[i] = []float32{1, float32(len(in) % 7)}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.llmCalls, 1)
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.lastBody.Store(req)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Lewis Hamilton."}}]}`))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func testConfig(t *testing.T, up *fakeUpstreams) Config {
	t.Helper()
	allowlist := filepath.Join(t.TempDir(), "allowlist.yaml")
	require.NoError(t, os.WriteFile(allowlist, []byte("urls:\n  - "+up.srv.URL+"/f1\n"), 0o600))
	return Config{
		Port:        "0",
		LogMode:     "nop",
		ServiceName: "pitwall-test",
		DB: db.Config{
			Driver:     db.DriverSQLite,
			SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		},
		EmbedProvider:  EmbedProviderOllama,
		OllamaHost:     up.srv.URL,
		EmbedTimeout:   5 * time.Second,
		LLMBaseURL:     up.srv.URL,
		LLMModel:       "test-model",
		LLMTemperature: 0.5,
		LLMTimeout:     5 * time.Second,
		VectorIndex:    string(VectorIndexScan),
		AllowlistFile:  allowlist,
	}
}

func TestApp_IngestAndChat(t *testing.T) {
	up := newFakeUpstreams(t)
	ctx := context.Background()
	a, err := New(ctx, testConfig(t, up))
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Ingest(ctx)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.Stats.PagesFetched)
	assert.Equal(t, 1, res.Stats.ChunksStored)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"query":"Who won?","userId":"fan-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"answer":"Lewis Hamilton."}`, rec.Body.String())
	assert.EqualValues(t, 1, atomic.LoadInt32(&up.llmCalls))

	body := up.lastBody.Load().(map[string]any)
	assert.InDelta(t, 0.5, body["temperature"], 1e-9)
	msgs := body["messages"].([]any)
	system := msgs[len(msgs)-2].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], "Lewis Hamilton won.")

	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"chunkCount":1`)

	// A second ingest finds the corpus and does nothing.
	res, err = a.Ingest(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestApp_MissingQuery(t *testing.T) {
	up := newFakeUpstreams(t)
	a, err := New(context.Background(), testConfig(t, up))
	require.NoError(t, err)
	defer a.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"query":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Query is required."}`, rec.Body.String())
	assert.Zero(t, atomic.LoadInt32(&up.llmCalls))
}

func TestNew_InvalidConfig(t *testing.T) {
	up := newFakeUpstreams(t)

	cfg := testConfig(t, up)
	cfg.EmbedProvider = "word2vec"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig(t, up)
	cfg.VectorIndex = "qdrant"
	_, err = New(context.Background(), cfg)
	var ierr *VectorIndexConfigError
	assert.ErrorAs(t, err, &ierr)
}

type fakeAcquirer struct{ err error }

func (f fakeAcquirer) Acquire(ctx context.Context, key string, ttl time.Duration) (*redis.Lease, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &redis.Lease{}, nil
}

func TestRedisLocker(t *testing.T) {
	_, err := redisLocker{inner: fakeAcquirer{err: redis.ErrNotHeld}}.Acquire(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ingestion.ErrLockHeld)

	boom := errors.New("connection refused")
	_, err = redisLocker{inner: fakeAcquirer{err: boom}}.Acquire(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ingestion.ErrLockHeld)

	lease, err := redisLocker{inner: fakeAcquirer{}}.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	assert.NoError(t, lease.Release(context.Background()))
}
