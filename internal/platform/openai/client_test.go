package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/pitwall/internal/platform/httpx"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

func newTestClient(t *testing.T, srv *httptest.Server, retries int) Client {
	t.Helper()
	c, err := NewClient(logger.Nop(), Config{
		BaseURL:     srv.URL + "/",
		APIKey:      "sk-test",
		Model:       "llama-3.3-70b-versatile",
		EmbedModel:  "text-embedding-3-small",
		Temperature: 0.5,
		MaxRetries:  retries,
		Service:     "groq",
	})
	require.NoError(t, err)
	return c
}

func TestComplete_SendsMessagesAndTemperature(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Hamilton drives for Ferrari.  "}}]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv, 0).Complete(context.Background(), []Message{
		{Role: "user", Content: "earlier"},
		{Role: "system", Content: "prompt"},
		{Role: "user", Content: "Who is Lewis Hamilton?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "  Hamilton drives for Ferrari.  ", out)
	assert.Equal(t, "llama-3.3-70b-versatile", got.Model)
	assert.InDelta(t, 0.5, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[1].Role)
}

func TestComplete_NoRetryByDefault(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0).Complete(context.Background(), []Message{{Role: "user", Content: "q"}})
	require.Error(t, err)
	var se *httpx.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestComplete_RetriesRetryableStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv, 1).Complete(context.Background(), []Message{{Role: "user", Content: "q"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0).Complete(context.Background(), []Message{{Role: "user", Content: "q"}})
	assert.Error(t, err)
}

func TestEmbed_MapsByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var req embeddingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"a", " ", "c"}, req.Input)
		_, _ = w.Write([]byte(`{"data":[{"index":2,"embedding":[3,3]},{"index":0,"embedding":[1,1]}]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv, 0).Embed(context.Background(), []string{"a", "  ", "c"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []float32{1, 1}, out[0])
	assert.Empty(t, out[1])
	assert.Equal(t, []float32{3, 3}, out[2])
}

func TestNewClient_RequiresAModel(t *testing.T) {
	_, err := NewClient(logger.Nop(), Config{BaseURL: "http://x"})
	assert.Error(t, err)
}
