// Package embedding provides a batched client for OpenAI-compatible
// embedding endpoints.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync/atomic"
	"time"
)

// Embedder converts texts into numeric vector representations.
// Embed is batched: one call, one vector per input text, same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Dimension() int
}

// Client is an OpenAI-compatible embeddings client.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  atomic.Int64
	client     *http.Client
	maxRetries int
}

// Config configures the embeddings client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		client:     &http.Client{Timeout: timeout},
		maxRetries: 3,
	}, nil
}

// Dimension returns the dimensionality of produced vectors.
// Zero until the first successful Embed call. Safe for concurrent use: one
// client is shared by the search executor, the retriever and the ingestor.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one embedding vector per input text, in input order, using a
// single batched request. Retries transient failures (429 and 5xx) with
// exponential backoff, honoring Retry-After when present.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding request: %w", err)
	}

	url := c.baseURL + "/embeddings"
	var lastErr error
	var delay time.Duration

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			delay = retryDelay(attempt + 1)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("embeddings request failed: %s", resp.Status)
			delay = retryDelay(attempt + 1)
			// Respect Retry-After when the server provides one.
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				delay = time.Duration(secs) * time.Second
			}
			_ = resp.Body.Close()
			continue
		}

		if resp.StatusCode >= 300 {
			payload, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return nil, fmt.Errorf("embeddings request failed: %s: %s", resp.Status, string(payload))
		}

		vectors, err := c.decodeResponse(resp.Body, len(texts))
		_ = resp.Body.Close()
		if err != nil {
			return nil, err
		}
		return vectors, nil
	}

	return nil, fmt.Errorf("embeddings request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// decodeResponse parses the API payload and restores input order via the
// per-item index field.
func (c *Client) decodeResponse(r io.Reader, want int) ([][]float64, error) {
	var parsed embedResponse
	if err := json.NewDecoder(r).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}
	if len(parsed.Data) != want {
		return nil, fmt.Errorf("embeddings response has %d vectors, want %d", len(parsed.Data), want)
	}

	sort.Slice(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})

	vectors := make([][]float64, len(parsed.Data))
	for i, d := range parsed.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("embeddings response contains an empty vector at index %d", d.Index)
		}
		vectors[i] = d.Embedding
	}
	c.dimension.CompareAndSwap(0, int64(len(vectors[0])))
	return vectors, nil
}

// retryDelay returns the backoff before the given attempt: 1s, 2s, 4s, ...
func retryDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}
