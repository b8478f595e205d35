// Package embedsvc talks to the external sentence-embedding model server.
package embedsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/allii5/TextInsight/core"
	"github.com/allii5/TextInsight/core/analysis"
)

type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ analysis.Embedder = (*Client)(nil)

func NewClient(conf core.ClientConfig) *Client {
	return &Client{
		endpoint: conf.URL,
		apiKey:   conf.APIKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Embed sends the texts for encoding and returns one vector per text, in
// input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	payload := map[string]interface{}{"texts": texts}

	var resp struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := c.post(ctx, "/embed", payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, v interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
