package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/pitwall/internal/platform/httpx"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

const DefaultChatAPIURL = "http://localhost:3001/api/chat"

type chatRequest struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
}

type chatResponse struct {
	Answer string `json:"answer"`
	Error  string `json:"error,omitempty"`
}

// APIClient forwards questions to a running chat API.
type APIClient struct {
	log        *logger.Logger
	url        string
	httpClient *http.Client
}

func NewAPIClient(log *logger.Logger, url string, timeout time.Duration) *APIClient {
	url = strings.TrimSpace(url)
	if url == "" {
		url = DefaultChatAPIURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &APIClient{
		log:        log.With("client", "ChatAPIClient"),
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) Ask(ctx context.Context, query, userID string) (string, error) {
	body, err := json.Marshal(chatRequest{Query: query, UserID: userID})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &httpx.StatusError{Service: "chat api", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return out.Answer, nil
}
