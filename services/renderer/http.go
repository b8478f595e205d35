// Package rendersvc talks to the external visualization renderer. The core
// treats the renderer as a black box returning stable artifact references.
package rendersvc

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

var _ analysis.Renderer = (*Client)(nil)

func NewClient(conf core.ClientConfig) *Client {
	return &Client{
		endpoint: conf.URL,
		apiKey:   conf.APIKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Render asks for one artifact of the given kind (radar, bar, venn,
// wordcloud, keyword_graph) and returns its stable reference.
func (c *Client) Render(ctx context.Context, kind string, data interface{}) (string, error) {
	body, err := json.Marshal(map[string]interface{}{"kind": kind, "data": data})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/render", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	var out struct {
		Ref string `json:"ref"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Ref, nil
}
