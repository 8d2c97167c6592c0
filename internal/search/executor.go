// Package search implements the multi-strategy content search executor:
// fuzzy title matching and multi-query semantic search, fused into a single
// deduplicated, score-ordered candidate list.
package search

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/bartek-filipiuk/youtube-talker/internal/embedding"
	"github.com/bartek-filipiuk/youtube-talker/internal/fuzzy"
	"github.com/bartek-filipiuk/youtube-talker/internal/types"
	"github.com/bartek-filipiuk/youtube-talker/internal/vectorstore"
)

// MetadataResolver provides batched access to video metadata for a scope.
// Implemented by the db package; kept as an interface so the executor can be
// tested against in-memory fakes.
type MetadataResolver interface {
	// ListVideos returns every video record in scope (the fuzzy-match corpus).
	ListVideos(ctx context.Context, scope types.Scope) ([]types.VideoRecord, error)
	// ResolveVideos returns records for the given video IDs, one batched call.
	ResolveVideos(ctx context.Context, videoIDs []string, scope types.Scope) ([]types.VideoRecord, error)
}

// Default tunables. The fuzzy threshold is deliberately permissive: partial
// title recall matters more than precision, since ranking reorders later.
const (
	DefaultFuzzyThreshold = 0.40
	DefaultTopK           = 10
)

// Config holds the executor's tunables.
type Config struct {
	// FuzzyThreshold is the minimum 0-1 title similarity to keep a candidate.
	FuzzyThreshold float64
	// TopK is the per-query-variant vector search depth.
	TopK int
	// FuzzyWeight and SemanticWeight fuse scores for videos found by both
	// strategies. Title evidence is weighted higher than semantic evidence.
	FuzzyWeight    float64
	SemanticWeight float64
	// MaxPhrasings caps how many alternative phrasings join the query set.
	MaxPhrasings int
}

// DefaultConfig returns the standard executor configuration.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold: DefaultFuzzyThreshold,
		TopK:           DefaultTopK,
		FuzzyWeight:    0.6,
		SemanticWeight: 0.4,
		MaxPhrasings:   3,
	}
}

// Result is the executor's output: the fused candidate list plus execution
// metadata.
type Result struct {
	Candidates []types.ScoredCandidate
	Metadata   types.SearchMetadata
}

// Executor runs both retrieval strategies and fuses their outputs.
type Executor struct {
	embedder embedding.Embedder
	store    vectorstore.Searcher
	metadata MetadataResolver
	cfg      Config
}

// NewExecutor creates a search executor over the given collaborators.
func NewExecutor(embedder embedding.Embedder, store vectorstore.Searcher, metadata MetadataResolver, cfg Config) *Executor {
	if cfg.FuzzyThreshold == 0 && cfg.TopK == 0 {
		cfg = DefaultConfig()
	}
	return &Executor{
		embedder: embedder,
		store:    store,
		metadata: metadata,
		cfg:      cfg,
	}
}

// Execute runs the search. It never fails: any error during fuzzy matching,
// embedding, vector search or metadata resolution degrades to an empty
// candidate list with the error recorded in metadata, so the pipeline always
// reaches a routing decision.
func (e *Executor) Execute(ctx context.Context, analysis *types.QueryAnalysis, rawQuery string, scope types.Scope) Result {
	result, err := e.execute(ctx, analysis, rawQuery, scope)
	if err != nil {
		return Result{
			Candidates: []types.ScoredCandidate{},
			Metadata: types.SearchMetadata{
				StrategiesUsed: result.Metadata.StrategiesUsed,
				SearchError:    err.Error(),
			},
		}
	}
	return result
}

func (e *Executor) execute(ctx context.Context, analysis *types.QueryAnalysis, rawQuery string, scope types.Scope) (Result, error) {
	var result Result

	if err := scope.Validate(); err != nil {
		return result, err
	}

	// Strategy A: fuzzy title matching, only when the user named a title.
	fuzzyMatches := map[string]fuzzyMatch{}
	var fuzzyOrder []string
	if len(analysis.TitleKeywords) > 0 {
		result.Metadata.StrategiesUsed = append(result.Metadata.StrategiesUsed, types.StrategyFuzzyTitle)

		matches, order, err := e.fuzzyTitleMatch(ctx, analysis.TitleKeywords, scope)
		if err != nil {
			return result, fmt.Errorf("fuzzy title matching failed: %w", err)
		}
		fuzzyMatches, fuzzyOrder = matches, order
	}
	result.Metadata.FuzzyMatches = len(fuzzyMatches)

	// Strategy B: multi-query semantic search, always attempted.
	result.Metadata.StrategiesUsed = append(result.Metadata.StrategiesUsed, types.StrategySemantic)
	semanticScores, semanticOrder, err := e.semanticSearch(ctx, analysis, rawQuery, scope)
	if err != nil {
		return result, fmt.Errorf("semantic search failed: %w", err)
	}
	result.Metadata.SemanticMatches = len(semanticScores)

	// Fusion: merge the two score maps, at most one candidate per video.
	candidates := e.fuse(fuzzyMatches, fuzzyOrder, semanticScores, semanticOrder)

	// One batched lookup resolves titles for semantic-only candidates.
	if err := e.resolveTitles(ctx, candidates, scope); err != nil {
		return result, fmt.Errorf("metadata resolution failed: %w", err)
	}

	// Non-increasing by score; ties keep insertion order (fuzzy before
	// semantic, each in discovery order).
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	result.Candidates = candidates
	return result, nil
}

// fuzzyMatch is a fuzzy-strategy hit before fusion.
type fuzzyMatch struct {
	score  float64
	record types.VideoRecord
}

// fuzzyTitleMatch scans every title in scope and keeps videos whose best
// keyword similarity meets the threshold. When several keywords reach the
// same video only the highest score is kept.
func (e *Executor) fuzzyTitleMatch(ctx context.Context, keywords []string, scope types.Scope) (map[string]fuzzyMatch, []string, error) {
	videos, err := e.metadata.ListVideos(ctx, scope)
	if err != nil {
		return nil, nil, err
	}

	matches := make(map[string]fuzzyMatch)
	var order []string
	for _, video := range videos {
		score := fuzzy.BestScore(keywords, video.Title)
		if score < e.cfg.FuzzyThreshold {
			continue
		}
		if existing, ok := matches[video.VideoID]; ok && existing.score >= score {
			continue
		}
		if _, ok := matches[video.VideoID]; !ok {
			order = append(order, video.VideoID)
		}
		matches[video.VideoID] = fuzzyMatch{score: score, record: video}
	}
	return matches, order, nil
}

// semanticSearch embeds the raw query plus its alternative phrasings in one
// batched call, runs one top-K vector search per variant (concurrently; each
// is an independent read), and averages per-video scores across the variants
// that retrieved the video.
func (e *Executor) semanticSearch(ctx context.Context, analysis *types.QueryAnalysis, rawQuery string, scope types.Scope) (map[string]float64, []string, error) {
	queries := []string{rawQuery}
	phrasings := analysis.AlternativePhrasings
	if len(phrasings) > e.cfg.MaxPhrasings {
		phrasings = phrasings[:e.cfg.MaxPhrasings]
	}
	queries = append(queries, phrasings...)

	vectors, err := e.embedder.Embed(ctx, queries)
	if err != nil {
		return nil, nil, err
	}
	if len(vectors) != len(queries) {
		return nil, nil, fmt.Errorf("embedder returned %d vectors for %d queries", len(vectors), len(queries))
	}

	g, gctx := errgroup.WithContext(ctx)
	perVariant := make([][]vectorstore.Hit, len(vectors))
	for i, vector := range vectors {
		g.Go(func() error {
			hits, err := e.store.Search(gctx, vector, scope, e.cfg.TopK)
			if err != nil {
				return err
			}
			perVariant[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// A variant that retrieves several chunks of one video contributes a
	// single score for it (the best chunk), so the mean is over variants,
	// not chunks.
	sums := make(map[string]float64)
	counts := make(map[string]int)
	var order []string
	for _, hits := range perVariant {
		best := make(map[string]float64)
		for _, hit := range hits {
			videoID := hit.Payload.VideoID
			if videoID == "" {
				continue
			}
			if s, ok := best[videoID]; !ok || hit.Score > s {
				best[videoID] = hit.Score
			}
		}
		for videoID, score := range best {
			if counts[videoID] == 0 {
				order = append(order, videoID)
			}
			sums[videoID] += score
			counts[videoID]++
		}
	}

	means := make(map[string]float64, len(sums))
	for videoID, sum := range sums {
		means[videoID] = sum / float64(counts[videoID])
	}
	// Deterministic order regardless of goroutine completion interleaving.
	sort.Strings(order)
	return means, order, nil
}

// fuse merges both strategies' scores into one candidate per video.
func (e *Executor) fuse(fuzzyMatches map[string]fuzzyMatch, fuzzyOrder []string, semantic map[string]float64, semanticOrder []string) []types.ScoredCandidate {
	candidates := make([]types.ScoredCandidate, 0, len(fuzzyMatches)+len(semantic))

	for _, videoID := range fuzzyOrder {
		match := fuzzyMatches[videoID]
		record := match.record
		candidate := types.ScoredCandidate{
			VideoID:  videoID,
			Title:    record.Title,
			Score:    match.score,
			Strategy: types.StrategyFuzzyTitle,
			Source:   &record,
		}
		if semScore, ok := semantic[videoID]; ok {
			candidate.Score = e.cfg.FuzzyWeight*match.score + e.cfg.SemanticWeight*semScore
			candidate.Strategy = types.StrategyCombined
		}
		candidates = append(candidates, candidate)
	}

	for _, videoID := range semanticOrder {
		if _, ok := fuzzyMatches[videoID]; ok {
			continue // already fused above
		}
		candidates = append(candidates, types.ScoredCandidate{
			VideoID:  videoID,
			Score:    semantic[videoID],
			Strategy: types.StrategySemantic,
		})
	}

	return candidates
}

// resolveTitles fills in titles for candidates discovered only through the
// vector store, using a single batched metadata lookup.
func (e *Executor) resolveTitles(ctx context.Context, candidates []types.ScoredCandidate, scope types.Scope) error {
	var unresolved []string
	for _, c := range candidates {
		if c.Title == "" {
			unresolved = append(unresolved, c.VideoID)
		}
	}
	if len(unresolved) == 0 {
		return nil
	}

	records, err := e.metadata.ResolveVideos(ctx, unresolved, scope)
	if err != nil {
		return err
	}

	byID := make(map[string]types.VideoRecord, len(records))
	for _, r := range records {
		byID[r.VideoID] = r
	}
	for i := range candidates {
		if candidates[i].Title != "" {
			continue
		}
		if record, ok := byID[candidates[i].VideoID]; ok {
			candidates[i].Title = record.Title
			candidates[i].Source = &record
		}
	}
	return nil
}
