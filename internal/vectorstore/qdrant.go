// Package vectorstore provides a minimal Qdrant REST client for transcript
// chunk vectors. It assumes cosine distance and creates the collection if
// missing.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bartek-filipiuk/youtube-talker/internal/types"
	"github.com/google/uuid"
)

// Payload is the metadata stored alongside each chunk vector. It carries
// enough to identify the owning video and to scope searches.
type Payload struct {
	VideoID    string `json:"video_id"`
	OwnerID    string `json:"owner_id"`
	Channel    string `json:"channel,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkText  string `json:"chunk_text,omitempty"`
}

// Point is one vector plus its payload, keyed by a stable ID.
type Point struct {
	ID      string
	Vector  []float64
	Payload Payload
}

// Hit is one similarity-search result, ordered by descending score.
type Hit struct {
	ID      string
	Score   float64
	Payload Payload
}

// Searcher is the read side of the store, consumed by the search executor.
type Searcher interface {
	Search(ctx context.Context, vector []float64, scope types.Scope, topK int) ([]Hit, error)
}

// Store is a Qdrant REST client.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// Config configures the Qdrant client.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewStore creates a Qdrant client for the configured collection.
func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "transcripts"
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection if it does not exist.
// Qdrant returns 200 for an existing collection with the same schema.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

// Upsert writes the given points, waiting for them to be indexed.
func (s *Store) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	qdrantPoints := make([]map[string]any, len(points))
	for i, p := range points {
		qdrantPoints[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}
	body := map[string]any{"points": qdrantPoints}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

// Search returns up to topK hits ordered by descending similarity, restricted
// to the given scope (owner's library or a named channel).
func (s *Store) Search(ctx context.Context, vector []float64, scope types.Scope, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"filter":       scopeFilter(scope),
	}

	var resp struct {
		Result []struct {
			ID      any     `json:"id"`
			Score   float64 `json:"score"`
			Payload Payload `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, Hit{
			ID:      fmt.Sprintf("%v", r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return hits, nil
}

// DeleteVideo removes all chunk vectors belonging to one video.
func (s *Store) DeleteVideo(ctx context.Context, videoID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "video_id", "match": map[string]any{"value": videoID}},
			},
		},
	}
	return s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.url, s.collection), body, nil)
}

// scopeFilter translates a search scope into a Qdrant payload filter.
func scopeFilter(scope types.Scope) map[string]any {
	if scope.Channel != "" {
		return map[string]any{
			"must": []map[string]any{
				{"key": "channel", "match": map[string]any{"value": scope.Channel}},
			},
		}
	}
	if scope.OwnerID != uuid.Nil {
		return map[string]any{
			"must": []map[string]any{
				{"key": "owner_id", "match": map[string]any{"value": scope.OwnerID.String()}},
			},
		}
	}
	return map[string]any{}
}

func (s *Store) putJSON(ctx context.Context, url string, body any) error {
	return s.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	return s.doJSON(ctx, http.MethodPost, url, body, out)
}

func (s *Store) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode qdrant request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s failed: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, string(payload))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode qdrant response: %w", err)
		}
	}
	return nil
}
