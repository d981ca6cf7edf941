package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/pitwall/internal/platform/ctxutil"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

const maxErrorBodyBytes = 1024

// Point is one chunk vector keyed by the chunk id.
type Point struct {
	ID     uuid.UUID
	Vector []float32
}

type Match struct {
	ID    uuid.UUID
	Score float64
}

// Client is a small REST client for a single cosine collection.
type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	collection string
	http       *http.Client

	mu    sync.Mutex
	ready bool
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

func NewClient(log *logger.Logger, cfg Config) (*Client, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		collection = DefaultCollection
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		log:        log.With("client", "QdrantClient"),
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		collection: collection,
		http:       &http.Client{Timeout: timeout},
	}
	c.log.Info("Qdrant index selected", "url", c.baseURL, "collection", collection)
	return c, nil
}

// EnsureCollection creates the collection with cosine distance when missing.
// An existing collection with another size is an error.
func (c *Client) EnsureCollection(ctx context.Context, dim int) error {
	const op = "ensure_collection"
	if dim <= 0 {
		return opErr(op, OperationErrorValidation, "vector size must be positive", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}

	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := c.doJSON(ctx, op, http.MethodGet, c.collectionPath(""), nil, &info)
	if err == nil {
		if size := info.Config.Params.Vectors.Size; size != 0 && size != dim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("collection %q vector size mismatch: expected=%d actual=%d", c.collection, dim, size), nil)
		}
		c.ready = true
		return nil
	}
	var oe *OperationError
	if !errors.As(err, &oe) || oe.StatusCode != http.StatusNotFound {
		return err
	}

	req := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	if err := c.doJSON(ctx, op, http.MethodPut, c.collectionPath(""), req, nil); err != nil {
		return err
	}
	c.log.Info("Qdrant collection created", "collection", c.collection, "vector_dim", dim)
	c.ready = true
	return nil
}

func (c *Client) Upsert(ctx context.Context, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}
	body := make([]map[string]any, 0, len(points))
	for _, p := range points {
		if p.ID == uuid.Nil {
			return opErr(op, OperationErrorValidation, "point id is required", nil)
		}
		if len(p.Vector) == 0 {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point %s has an empty vector", p.ID), nil)
		}
		body = append(body, map[string]any{
			"id":     p.ID.String(),
			"vector": p.Vector,
		})
	}
	return c.doJSON(ctx, op, http.MethodPut, c.collectionPath("/points?wait=true"), map[string]any{"points": body}, nil)
}

// Search returns up to k matches, best first.
func (c *Client) Search(ctx context.Context, vec []float32, k int) ([]Match, error) {
	const op = "search"
	if len(vec) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if k <= 0 {
		k = 5
	}
	req := map[string]any{
		"vector":       vec,
		"limit":        k,
		"with_payload": false,
		"with_vector":  false,
	}
	var raw []struct {
		ID    json.RawMessage `json:"id"`
		Score float64         `json:"score"`
	}
	if err := c.doJSON(ctx, op, http.MethodPost, c.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item.ID, &s); err != nil {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		out = append(out, Match{ID: id, Score: item.Score})
	}
	return out, nil
}

func (c *Client) collectionPath(suffix string) string {
	return "/collections/" + c.collection + suffix
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorRejected,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    truncateBody(raw),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode envelope failed", err)
	}
	if msg := envelopeStatusError(env.Status); msg != "" {
		return &OperationError{Code: OperationErrorRejected, Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode result failed", err)
	}
	return nil
}

// envelopeStatusError returns "" for "ok" or an absent status.
func envelopeStatusError(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(s, "ok") {
			return ""
		}
		return "status=" + s
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return "status=" + status
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}
