package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corpusrepo "github.com/yungbote/pitwall/internal/data/repos/corpus"
	"github.com/yungbote/pitwall/internal/data/repos/testutil"
	"github.com/yungbote/pitwall/internal/domain/corpus"
	"github.com/yungbote/pitwall/internal/platform/dbctx"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

type fakeEmbedder struct {
	calls int32
	fail  func(text string) bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	atomic.AddInt32(&f.calls, 1)
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		if f.fail != nil && f.fail(in) {
			return nil, errors.New("embed down")
		}
		out[i] = []float32{float32(len(in)), 1}
	}
	return out, nil
}

type fakeLocker struct {
	held     bool
	err      error
	released int32
}

type fakeLease struct{ l *fakeLocker }

func (f fakeLease) Release(ctx context.Context) error {
	atomic.AddInt32(&f.l.released, 1)
	return nil
}

func (f *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.held {
		return nil, ErrLockHeld
	}
	return fakeLease{l: f}, nil
}

type fakeArchiver struct {
	mu   sync.Mutex
	puts map[uuid.UUID]string
}

func (f *fakeArchiver) Put(ctx context.Context, runID uuid.UUID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.puts == nil {
		f.puts = map[uuid.UUID]string{}
	}
	f.puts[runID] = text
	return "corpus/" + runID.String() + ".txt", nil
}

type fakeIndexer struct{ n int32 }

func (f *fakeIndexer) Index(ctx context.Context, chunks []*corpus.TextChunk) error {
	atomic.AddInt32(&f.n, int32(len(chunks)))
	return nil
}

type pipelineFixture struct {
	pipeline *Pipeline
	chunks   corpusrepo.ChunkRepo
	runs     corpusrepo.RunRepo
	embedder *fakeEmbedder
}

func newFixture(t *testing.T, urls []string, mod func(*Deps)) pipelineFixture {
	t.Helper()
	db := testutil.SQLite(t)
	log := logger.Nop()
	f := pipelineFixture{
		chunks:   corpusrepo.NewChunkRepo(db, log),
		runs:     corpusrepo.NewRunRepo(db, log),
		embedder: &fakeEmbedder{},
	}
	deps := Deps{
		Chunks:   f.chunks,
		Runs:     f.runs,
		Scraper:  NewScraper(log, ScraperConfig{}),
		Embedder: f.embedder,
	}
	if mod != nil {
		mod(&deps)
	}
	p, err := NewPipeline(log, urls, deps)
	require.NoError(t, err)
	f.pipeline = p
	return f
}

func pageServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		_, _ = w.Write([]byte("<html><body>" + body + "</body></html>"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnsureCorpus_BootstrapsEmptyStore(t *testing.T) {
	srv := pageServer(t, "<p>Lewis Hamilton won.</p>", nil)
	archive := &fakeArchiver{}
	index := &fakeIndexer{}
	f := newFixture(t, []string{srv.URL + "/f1"}, func(d *Deps) {
		d.Archiver = archive
		d.Indexer = index
	})
	ctx := context.Background()

	res, err := f.pipeline.EnsureCorpus(ctx)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.Stats.PagesFetched)
	assert.Equal(t, 1, res.Stats.ChunksStored)

	rows, err := f.chunks.ListAll(dbctx.New(ctx))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Text, "Lewis Hamilton won.")
	require.NotNil(t, rows[0].IngestionRunID)
	assert.Equal(t, res.RunID, *rows[0].IngestionRunID)

	assert.Equal(t, "Lewis Hamilton won.", archive.puts[res.RunID])
	assert.EqualValues(t, 1, atomic.LoadInt32(&index.n))

	run, err := f.runs.Latest(dbctx.New(ctx))
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, corpus.RunStatusSucceeded, run.Status)

	// Second call sees a populated store and does nothing.
	calls := atomic.LoadInt32(&f.embedder.calls)
	res, err = f.pipeline.EnsureCorpus(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, calls, atomic.LoadInt32(&f.embedder.calls))
}

func TestEnsureCorpus_ConcurrentCallersShareOneRun(t *testing.T) {
	var hits int32
	srv := pageServer(t, "Monaco Grand Prix", &hits)
	f := newFixture(t, []string{srv.URL}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pipeline.EnsureCorpus(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
	n, err := f.chunks.Count(dbctx.New(context.Background()))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestEnsureCorpus_LockHeldElsewhere(t *testing.T) {
	var hits int32
	srv := pageServer(t, "Silverstone", &hits)
	f := newFixture(t, []string{srv.URL}, func(d *Deps) {
		d.Locker = &fakeLocker{held: true}
	})

	res, err := f.pipeline.EnsureCorpus(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.True(t, res.HeldElsewhere)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestEnsureCorpus_LockReleased(t *testing.T) {
	srv := pageServer(t, "Spa", nil)
	lock := &fakeLocker{}
	f := newFixture(t, []string{srv.URL}, func(d *Deps) { d.Locker = lock })

	_, err := f.pipeline.EnsureCorpus(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&lock.released))
}

func TestEnsureCorpus_LockErrorFallsBackToUnlocked(t *testing.T) {
	srv := pageServer(t, "Suzuka", nil)
	f := newFixture(t, []string{srv.URL}, func(d *Deps) {
		d.Locker = &fakeLocker{err: errors.New("redis down")}
	})

	res, err := f.pipeline.EnsureCorpus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.ChunksStored)
}

func TestRun_SkipsChunksThatFailToEmbed(t *testing.T) {
	words := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		words = append(words, "word")
	}
	words[249] = "poison"
	srv := pageServer(t, strings.Join(words, " "), nil)
	f := newFixture(t, []string{srv.URL}, nil)
	f.embedder.fail = func(text string) bool { return strings.Contains(text, "poison") }

	res, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.Chunks)
	assert.Equal(t, 1, res.Stats.ChunksSkipped)
	assert.Equal(t, 1, res.Stats.ChunksStored)
}

func TestRun_EmptyCorpusStoresNothing(t *testing.T) {
	f := newFixture(t, []string{"http://127.0.0.1:1/down"}, nil)

	res, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.PagesSkipped)
	assert.Zero(t, res.Stats.Chunks)
	assert.False(t, f.pipeline.HasCorpus(context.Background()))
}

func TestNewPipeline_RequiresDeps(t *testing.T) {
	_, err := NewPipeline(logger.Nop(), nil, Deps{})
	assert.Error(t, err)
}
