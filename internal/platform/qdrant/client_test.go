package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/pitwall/internal/platform/logger"
)

func TestValidateConfig(t *testing.T) {
	var ce *ConfigError
	require.ErrorAs(t, ValidateConfig(Config{}), &ce)
	assert.Equal(t, ConfigErrorMissingURL, ce.Code)

	require.ErrorAs(t, ValidateConfig(Config{URL: "qdrant:6333"}), &ce)
	assert.Equal(t, ConfigErrorInvalidURL, ce.Code)

	assert.NoError(t, ValidateConfig(Config{URL: "http://qdrant:6333"}))
}

func TestEnsureCollection_CreatesWhenMissing(t *testing.T) {
	var created map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/pitwall_chunks", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":{"error":"Not found"}}`))
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
		}
	}))
	defer srv.Close()

	c, err := NewClient(logger.Nop(), Config{URL: srv.URL, APIKey: "secret"})
	require.NoError(t, err)
	require.NoError(t, c.EnsureCollection(context.Background(), 384))
	assert.Equal(t, map[string]any{"size": float64(384), "distance": "Cosine"}, created["vectors"])

	// Cached after the first success.
	srv.Close()
	assert.NoError(t, c.EnsureCollection(context.Background(), 384))
}

func TestEnsureCollection_SizeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"config":{"params":{"vectors":{"size":768,"distance":"Cosine"}}}},"status":"ok"}`))
	}))
	defer srv.Close()

	c, err := NewClient(logger.Nop(), Config{URL: srv.URL})
	require.NoError(t, err)
	err = c.EnsureCollection(context.Background(), 384)
	var oe *OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, OperationErrorValidation, oe.Code)
}

func TestUpsertAndSearch(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	var upserted struct {
		Points []struct {
			ID     string    `json:"id"`
			Vector []float32 `json:"vector"`
		} `json:"points"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/pitwall_chunks/points":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&upserted))
			_, _ = w.Write([]byte(`{"result":{"status":"completed"},"status":"ok"}`))
		case "/collections/pitwall_chunks/points/search":
			_, _ = w.Write([]byte(`{"result":[{"id":"` + b.String() + `","score":0.9},{"id":42,"score":0.8},{"id":"` + a.String() + `","score":0.1}],"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient(logger.Nop(), Config{URL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, c.Upsert(context.Background(), []Point{{ID: a, Vector: []float32{1, 0}}, {ID: b, Vector: []float32{0, 1}}}))
	require.Len(t, upserted.Points, 2)
	assert.Equal(t, a.String(), upserted.Points[0].ID)

	matches, err := c.Search(context.Background(), []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, b, matches[0].ID)
	assert.InDelta(t, 0.9, matches[0].Score, 1e-9)

	err = c.Upsert(context.Background(), []Point{{ID: a}})
	var oe *OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, OperationErrorValidation, oe.Code)
}
