// Package pipeline provides the high-level orchestration of the query
// search-and-route flow: analyze, search, rank, route. A strictly linear
// pipeline with exactly one terminal decision per run.
package pipeline

import (
	"context"
	"fmt"

	"github.com/bartek-filipiuk/youtube-talker/internal/ranking"
	"github.com/bartek-filipiuk/youtube-talker/internal/search"
	"github.com/bartek-filipiuk/youtube-talker/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Stage names emitted in progress events.
const (
	StageAnalyze = "analyze"
	StageSearch  = "search"
	StageRank    = "rank"
	StageRoute   = "route"
)

// QueryAnalyzer turns a raw query into structured search signals.
type QueryAnalyzer interface {
	Analyze(ctx context.Context, query string, history []types.ConversationTurn) (*types.QueryAnalysis, error)
}

// SearchExecutor runs the multi-strategy search. Never fails: errors degrade
// into an empty candidate list with metadata.
type SearchExecutor interface {
	Execute(ctx context.Context, analysis *types.QueryAnalysis, rawQuery string, scope types.Scope) search.Result
}

// ResultRanker optionally re-orders candidates via the LLM.
type ResultRanker interface {
	Rank(ctx context.Context, candidates []types.ScoredCandidate, query string) ranking.Result
}

// ContentRouter makes the terminal generate-or-fallback decision.
type ContentRouter interface {
	Route(ranked []types.RankedCandidate) types.RoutingDecision
}

// Options holds per-run configuration.
type Options struct {
	OnProgress ProgressCallback
}

// Result is everything the caller needs to pick a downstream generation path.
type Result struct {
	Analysis   *types.QueryAnalysis    `json:"analysis"`
	Candidates []types.RankedCandidate `json:"candidates"`
	Search     types.SearchMetadata    `json:"search"`
	Ranking    types.RankingMetadata   `json:"ranking"`
	Decision   types.RoutingDecision   `json:"decision"`
}

// Pipeline wires the four stages together.
type Pipeline struct {
	analyzer QueryAnalyzer
	executor SearchExecutor
	ranker   ResultRanker
	router   ContentRouter
}

// New creates a pipeline over the given stages.
func New(analyzer QueryAnalyzer, executor SearchExecutor, ranker ResultRanker, router ContentRouter) *Pipeline {
	return &Pipeline{
		analyzer: analyzer,
		executor: executor,
		ranker:   ranker,
		router:   router,
	}
}

// SearchAndRoute runs the full pipeline for one query. Only an analysis
// failure is returned as an error: without query signals no meaningful search
// can proceed. Search and ranking failures degrade inside their stages and
// surface through the result metadata, so the caller always receives a
// routing decision below the analysis stage.
func (p *Pipeline) SearchAndRoute(ctx context.Context, query string, history []types.ConversationTurn, scope types.Scope, opts Options) (*Result, error) {
	emit := func(stage, message string, content any) {
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressEvent{Stage: stage, Message: message, Content: content})
		}
	}

	emit(StageAnalyze, "analyzing query", nil)
	queryAnalysis, err := p.analyzer.Analyze(ctx, query, history)
	if err != nil {
		return nil, fmt.Errorf("query analysis failed: %w", err)
	}
	emit(StageAnalyze, "query analyzed", queryAnalysis)

	emit(StageSearch, "executing multi-strategy search", nil)
	searchResult := p.executor.Execute(ctx, queryAnalysis, query, scope)
	emit(StageSearch, fmt.Sprintf("search found %d candidates", len(searchResult.Candidates)), searchResult.Metadata)

	emit(StageRank, "ranking candidates", nil)
	rankResult := p.ranker.Rank(ctx, searchResult.Candidates, query)
	if rankResult.Metadata.Skipped {
		emit(StageRank, "ranking skipped", nil)
	} else {
		emit(StageRank, "candidates ranked", rankResult.Metadata)
	}

	decision := p.router.Route(rankResult.Candidates)
	emit(StageRoute, fmt.Sprintf("routing to %s", decision.Outcome), decision)

	return &Result{
		Analysis:   queryAnalysis,
		Candidates: rankResult.Candidates,
		Search:     searchResult.Metadata,
		Ranking:    rankResult.Metadata,
		Decision:   decision,
	}, nil
}
