package search

import (
	"context"
	"errors"
	"testing"

	"github.com/bartek-filipiuk/youtube-talker/internal/types"
	"github.com/bartek-filipiuk/youtube-talker/internal/vectorstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct {
	embedFunc func(ctx context.Context, texts []string) ([][]float64, error)
	calls     int
	lastTexts []string
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	m.calls++
	m.lastTexts = texts
	if m.embedFunc != nil {
		return m.embedFunc(ctx, texts)
	}
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{float64(i), 1.0}
	}
	return vectors, nil
}

func (m *mockEmbedder) Dimension() int { return 2 }

type mockSearcher struct {
	searchFunc func(ctx context.Context, vector []float64, scope types.Scope, topK int) ([]vectorstore.Hit, error)
}

func (m *mockSearcher) Search(ctx context.Context, vector []float64, scope types.Scope, topK int) ([]vectorstore.Hit, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, vector, scope, topK)
	}
	return nil, nil
}

type mockResolver struct {
	videos       []types.VideoRecord
	listCalls    int
	resolveCalls int
	lastResolved []string
	listErr      error
	resolveErr   error
}

func (m *mockResolver) ListVideos(_ context.Context, _ types.Scope) ([]types.VideoRecord, error) {
	m.listCalls++
	return m.videos, m.listErr
}

func (m *mockResolver) ResolveVideos(_ context.Context, videoIDs []string, _ types.Scope) ([]types.VideoRecord, error) {
	m.resolveCalls++
	m.lastResolved = videoIDs
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	var out []types.VideoRecord
	for _, record := range m.videos {
		for _, id := range videoIDs {
			if record.VideoID == id {
				out = append(out, record)
			}
		}
	}
	return out, m.resolveErr
}

func semanticHit(videoID string, score float64) vectorstore.Hit {
	return vectorstore.Hit{
		ID:      uuid.NewString(),
		Score:   score,
		Payload: vectorstore.Payload{VideoID: videoID},
	}
}

func testScope() types.Scope {
	return types.UserScope(uuid.New())
}

func TestExecute_FusedCandidateOutranksSemanticOnly(t *testing.T) {
	// Scope has "Intro to Testing" and "Advanced Testing Patterns"; the user
	// asked for "Testing Patterns". Fuzzy keeps only the second; semantic
	// finds both; the fused candidate must rank first.
	resolver := &mockResolver{videos: []types.VideoRecord{
		{VideoID: "vid-intro", Title: "Intro to Testing"},
		{VideoID: "vid-adv", Title: "Advanced Testing Patterns"},
	}}
	searcher := &mockSearcher{
		searchFunc: func(_ context.Context, _ []float64, _ types.Scope, _ int) ([]vectorstore.Hit, error) {
			return []vectorstore.Hit{
				semanticHit("vid-adv", 0.55),
				semanticHit("vid-intro", 0.50),
			}, nil
		},
	}

	executor := NewExecutor(&mockEmbedder{}, searcher, resolver, DefaultConfig())
	analysis := &types.QueryAnalysis{
		TitleKeywords: []string{"Testing Patterns"},
		TopicKeywords: []string{"testing"},
	}

	result := executor.Execute(context.Background(), analysis, "Testing Patterns video", testScope())

	require.Empty(t, result.Metadata.SearchError)
	require.Len(t, result.Candidates, 2)

	first := result.Candidates[0]
	assert.Equal(t, "vid-adv", first.VideoID)
	assert.Equal(t, types.StrategyCombined, first.Strategy)
	// fuzzy token-set: {testing,patterns}/{advanced,testing,patterns} = 2/3
	expectedFused := 0.6*(2.0/3.0) + 0.4*0.55
	assert.InDelta(t, expectedFused, first.Score, 0.001)
	assert.Greater(t, first.Score, 0.50)

	second := result.Candidates[1]
	assert.Equal(t, "vid-intro", second.VideoID)
	assert.Equal(t, types.StrategySemantic, second.Strategy)
	assert.InDelta(t, 0.50, second.Score, 0.001)
	assert.Equal(t, "Intro to Testing", second.Title, "semantic-only candidate gets its title resolved")

	// Title resolution must be one batched call for the unresolved IDs only.
	assert.Equal(t, 1, resolver.resolveCalls)
	assert.Equal(t, []string{"vid-intro"}, resolver.lastResolved)
}

func TestExecute_DedupOneEntryPerVideo(t *testing.T) {
	resolver := &mockResolver{videos: []types.VideoRecord{
		{VideoID: "vid-1", Title: "Go Concurrency Patterns"},
	}}
	searcher := &mockSearcher{
		searchFunc: func(_ context.Context, _ []float64, _ types.Scope, _ int) ([]vectorstore.Hit, error) {
			return []vectorstore.Hit{
				semanticHit("vid-1", 0.9),
				semanticHit("vid-1", 0.8), // second chunk of the same video
			}, nil
		},
	}

	executor := NewExecutor(&mockEmbedder{}, searcher, resolver, DefaultConfig())
	analysis := &types.QueryAnalysis{
		TitleKeywords:        []string{"Go Concurrency Patterns"},
		AlternativePhrasings: []string{"goroutines talk", "channels video"},
	}

	result := executor.Execute(context.Background(), analysis, "concurrency", testScope())

	seen := map[string]int{}
	for _, c := range result.Candidates {
		seen[c.VideoID]++
	}
	for videoID, count := range seen {
		assert.Equal(t, 1, count, "video %s appears %d times", videoID, count)
	}
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, types.StrategyCombined, result.Candidates[0].Strategy)
}

func TestExecute_FusionArithmetic(t *testing.T) {
	resolver := &mockResolver{videos: []types.VideoRecord{
		{VideoID: "vid-1", Title: "Kubernetes Networking"},
	}}
	searcher := &mockSearcher{
		searchFunc: func(_ context.Context, _ []float64, _ types.Scope, _ int) ([]vectorstore.Hit, error) {
			return []vectorstore.Hit{semanticHit("vid-1", 0.70)}, nil
		},
	}

	executor := NewExecutor(&mockEmbedder{}, searcher, resolver, DefaultConfig())
	analysis := &types.QueryAnalysis{TitleKeywords: []string{"Kubernetes Networking"}}

	result := executor.Execute(context.Background(), analysis, "k8s networking", testScope())

	require.Len(t, result.Candidates, 1)
	// Exact title match: fuzzy score 1.0. Fused = 0.6*1.0 + 0.4*0.70.
	assert.InDelta(t, 0.6*1.0+0.4*0.70, result.Candidates[0].Score, 1e-9)
	assert.Equal(t, types.StrategyCombined, result.Candidates[0].Strategy)
}

func TestExecute_SortOrderNonIncreasing(t *testing.T) {
	resolver := &mockResolver{videos: []types.VideoRecord{
		{VideoID: "vid-a", Title: "Alpha"},
		{VideoID: "vid-b", Title: "Beta"},
		{VideoID: "vid-c", Title: "Gamma"},
	}}
	searcher := &mockSearcher{
		searchFunc: func(_ context.Context, _ []float64, _ types.Scope, _ int) ([]vectorstore.Hit, error) {
			return []vectorstore.Hit{
				semanticHit("vid-b", 0.61),
				semanticHit("vid-a", 0.87),
				semanticHit("vid-c", 0.42),
			}, nil
		},
	}

	executor := NewExecutor(&mockEmbedder{}, searcher, resolver, DefaultConfig())
	result := executor.Execute(context.Background(), &types.QueryAnalysis{}, "query", testScope())

	require.Len(t, result.Candidates, 3)
	for i := 1; i < len(result.Candidates); i++ {
		assert.GreaterOrEqual(t, result.Candidates[i-1].Score, result.Candidates[i].Score)
	}
}

func TestExecute_FuzzySkippedWithoutTitleKeywords(t *testing.T) {
	resolver := &mockResolver{}
	searcher := &mockSearcher{}

	executor := NewExecutor(&mockEmbedder{}, searcher, resolver, DefaultConfig())
	result := executor.Execute(context.Background(), &types.QueryAnalysis{}, "query", testScope())

	assert.Equal(t, 0, resolver.listCalls, "title scan must not run without title keywords")
	assert.Equal(t, []types.Strategy{types.StrategySemantic}, result.Metadata.StrategiesUsed)
}

func TestExecute_MeanAcrossRetrievingVariantsOnly(t *testing.T) {
	// vid-1 is retrieved by 2 of 3 query variants; its score must be the mean
	// of those 2 observations, not divided by 3. Variants run concurrently,
	// so responses key off the variant's vector (mockEmbedder sets vector[0]
	// to the query index).
	searcher := &mockSearcher{
		searchFunc: func(_ context.Context, vector []float64, _ types.Scope, _ int) ([]vectorstore.Hit, error) {
			switch vector[0] {
			case 0:
				return []vectorstore.Hit{semanticHit("vid-1", 0.6)}, nil
			case 1:
				return []vectorstore.Hit{semanticHit("vid-1", 0.8)}, nil
			default:
				return nil, nil
			}
		},
	}
	resolver := &mockResolver{videos: []types.VideoRecord{{VideoID: "vid-1", Title: "Only Video"}}}

	cfg := DefaultConfig()
	executor := NewExecutor(&mockEmbedder{}, searcher, resolver, cfg)
	analysis := &types.QueryAnalysis{AlternativePhrasings: []string{"variant two", "variant three"}}

	result := executor.Execute(context.Background(), analysis, "raw query", testScope())

	require.Len(t, result.Candidates, 1)
	assert.InDelta(t, 0.7, result.Candidates[0].Score, 0.001)
}

func TestExecute_BestChunkPerVariant(t *testing.T) {
	// One variant returning three chunks of the same video contributes a
	// single observation: the best chunk score.
	searcher := &mockSearcher{
		searchFunc: func(_ context.Context, _ []float64, _ types.Scope, _ int) ([]vectorstore.Hit, error) {
			return []vectorstore.Hit{
				semanticHit("vid-1", 0.9),
				semanticHit("vid-1", 0.5),
				semanticHit("vid-1", 0.3),
			}, nil
		},
	}
	resolver := &mockResolver{videos: []types.VideoRecord{{VideoID: "vid-1", Title: "Only Video"}}}

	executor := NewExecutor(&mockEmbedder{}, searcher, resolver, DefaultConfig())
	result := executor.Execute(context.Background(), &types.QueryAnalysis{}, "query", testScope())

	require.Len(t, result.Candidates, 1)
	assert.InDelta(t, 0.9, result.Candidates[0].Score, 0.001)
}

func TestExecute_OneBatchedEmbeddingCall(t *testing.T) {
	embedder := &mockEmbedder{}
	executor := NewExecutor(embedder, &mockSearcher{}, &mockResolver{}, DefaultConfig())
	analysis := &types.QueryAnalysis{
		AlternativePhrasings: []string{"p1", "p2", "p3", "p4"}, // one over the cap
	}

	executor.Execute(context.Background(), analysis, "raw", testScope())

	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, []string{"raw", "p1", "p2", "p3"}, embedder.lastTexts)
}

func TestExecute_DegradesOnVectorSearchFailure(t *testing.T) {
	searcher := &mockSearcher{
		searchFunc: func(_ context.Context, _ []float64, _ types.Scope, _ int) ([]vectorstore.Hit, error) {
			return nil, errors.New("qdrant unreachable")
		},
	}

	executor := NewExecutor(&mockEmbedder{}, searcher, &mockResolver{}, DefaultConfig())
	result := executor.Execute(context.Background(), &types.QueryAnalysis{}, "query", testScope())

	assert.Empty(t, result.Candidates)
	assert.Contains(t, result.Metadata.SearchError, "qdrant unreachable")
}

func TestExecute_DegradesOnEmbeddingFailure(t *testing.T) {
	embedder := &mockEmbedder{
		embedFunc: func(_ context.Context, _ []string) ([][]float64, error) {
			return nil, errors.New("embedding provider down")
		},
	}

	executor := NewExecutor(embedder, &mockSearcher{}, &mockResolver{}, DefaultConfig())
	result := executor.Execute(context.Background(), &types.QueryAnalysis{}, "query", testScope())

	assert.Empty(t, result.Candidates)
	assert.Contains(t, result.Metadata.SearchError, "embedding provider down")
}

func TestExecute_DegradesOnMetadataFailure(t *testing.T) {
	resolver := &mockResolver{resolveErr: errors.New("database gone")}
	searcher := &mockSearcher{
		searchFunc: func(_ context.Context, _ []float64, _ types.Scope, _ int) ([]vectorstore.Hit, error) {
			return []vectorstore.Hit{semanticHit("vid-1", 0.8)}, nil
		},
	}

	executor := NewExecutor(&mockEmbedder{}, searcher, resolver, DefaultConfig())
	result := executor.Execute(context.Background(), &types.QueryAnalysis{}, "query", testScope())

	assert.Empty(t, result.Candidates)
	assert.Contains(t, result.Metadata.SearchError, "database gone")
}

func TestExecute_DegradesOnInvalidScope(t *testing.T) {
	executor := NewExecutor(&mockEmbedder{}, &mockSearcher{}, &mockResolver{}, DefaultConfig())
	result := executor.Execute(context.Background(), &types.QueryAnalysis{}, "query", types.Scope{})

	assert.Empty(t, result.Candidates)
	assert.NotEmpty(t, result.Metadata.SearchError)
}

func TestExecute_FuzzyOnlyCandidateKeepsFuzzyStrategy(t *testing.T) {
	resolver := &mockResolver{videos: []types.VideoRecord{
		{VideoID: "vid-1", Title: "Rust Ownership Explained"},
	}}

	executor := NewExecutor(&mockEmbedder{}, &mockSearcher{}, resolver, DefaultConfig())
	analysis := &types.QueryAnalysis{TitleKeywords: []string{"Rust Ownership"}}

	result := executor.Execute(context.Background(), analysis, "rust ownership", testScope())

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, types.StrategyFuzzyTitle, result.Candidates[0].Strategy)
	assert.Equal(t, "Rust Ownership Explained", result.Candidates[0].Title)
	require.NotNil(t, result.Candidates[0].Source)
	assert.Equal(t, 0, resolver.resolveCalls, "fuzzy candidates already carry titles")
}
