package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/bartek-filipiuk/youtube-talker/internal/ranking"
	"github.com/bartek-filipiuk/youtube-talker/internal/search"
	"github.com/bartek-filipiuk/youtube-talker/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAnalyzer struct {
	analysis   *types.QueryAnalysis
	err        error
	calls      int
	gotQuery   string
	gotHistory []types.ConversationTurn
}

func (m *mockAnalyzer) Analyze(_ context.Context, query string, history []types.ConversationTurn) (*types.QueryAnalysis, error) {
	m.calls++
	m.gotQuery = query
	m.gotHistory = history
	return m.analysis, m.err
}

type mockExecutor struct {
	result      search.Result
	calls       int
	gotAnalysis *types.QueryAnalysis
	gotRaw      string
	gotScope    types.Scope
}

func (m *mockExecutor) Execute(_ context.Context, analysis *types.QueryAnalysis, rawQuery string, scope types.Scope) search.Result {
	m.calls++
	m.gotAnalysis = analysis
	m.gotRaw = rawQuery
	m.gotScope = scope
	return m.result
}

type mockRanker struct {
	result        ranking.Result
	calls         int
	gotCandidates []types.ScoredCandidate
}

func (m *mockRanker) Rank(_ context.Context, candidates []types.ScoredCandidate, _ string) ranking.Result {
	m.calls++
	m.gotCandidates = candidates
	return m.result
}

type mockRouter struct {
	decision  types.RoutingDecision
	gotRanked []types.RankedCandidate
}

func (m *mockRouter) Route(ranked []types.RankedCandidate) types.RoutingDecision {
	m.gotRanked = ranked
	return m.decision
}

func testScope() types.Scope {
	return types.UserScope(uuid.New())
}

func testAnalysis() *types.QueryAnalysis {
	return &types.QueryAnalysis{
		TitleKeywords:        []string{"testing patterns"},
		TopicKeywords:        []string{"testing"},
		AlternativePhrasings: []string{"how do I test"},
		QueryIntent:          types.IntentSearch,
		Confidence:           0.9,
	}
}

func rankedList(scores ...float64) []types.RankedCandidate {
	out := make([]types.RankedCandidate, len(scores))
	for i, s := range scores {
		out[i] = types.RankedCandidate{
			ScoredCandidate: types.ScoredCandidate{VideoID: "vid", Score: s},
			OriginalScore:   s,
		}
	}
	return out
}

func TestSearchAndRoute_HappyPath(t *testing.T) {
	analyzer := &mockAnalyzer{analysis: testAnalysis()}
	scored := []types.ScoredCandidate{
		{VideoID: "vid-1", Title: "Advanced Testing Patterns", Score: 0.62, Strategy: types.StrategyCombined},
		{VideoID: "vid-2", Title: "Intro to Testing", Score: 0.50, Strategy: types.StrategySemantic},
	}
	executor := &mockExecutor{result: search.Result{
		Candidates: scored,
		Metadata:   types.SearchMetadata{StrategiesUsed: []types.Strategy{types.StrategyFuzzyTitle, types.StrategySemantic}},
	}}
	ranker := &mockRanker{result: ranking.Result{
		Candidates: rankedList(0.9, 0.4),
		Metadata:   types.RankingMetadata{OverallConfidence: 0.8},
	}}
	router := &mockRouter{decision: types.RoutingDecision{
		Outcome:        types.OutcomeGenerate,
		TopScore:       0.9,
		CandidateCount: 2,
	}}

	p := New(analyzer, executor, ranker, router)
	scope := testScope()
	result, err := p.SearchAndRoute(context.Background(), "show me testing videos", nil, scope, Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, "show me testing videos", analyzer.gotQuery)

	assert.Equal(t, 1, executor.calls)
	assert.Equal(t, testAnalysis(), executor.gotAnalysis)
	assert.Equal(t, "show me testing videos", executor.gotRaw, "executor receives the raw query, not a rewrite")
	assert.Equal(t, scope, executor.gotScope)

	assert.Equal(t, 1, ranker.calls)
	assert.Equal(t, scored, ranker.gotCandidates)
	assert.Equal(t, ranker.result.Candidates, router.gotRanked, "router sees the post-ranking list")

	assert.Equal(t, testAnalysis(), result.Analysis)
	assert.Equal(t, types.OutcomeGenerate, result.Decision.Outcome)
	assert.InDelta(t, 0.8, result.Ranking.OverallConfidence, 0.001)
	assert.Contains(t, result.Search.StrategiesUsed, types.StrategyFuzzyTitle)
}

func TestSearchAndRoute_AnalysisErrorPropagates(t *testing.T) {
	analyzer := &mockAnalyzer{err: errors.New("model unavailable")}
	executor := &mockExecutor{}
	ranker := &mockRanker{}
	router := &mockRouter{}

	p := New(analyzer, executor, ranker, router)
	result, err := p.SearchAndRoute(context.Background(), "query", nil, testScope(), Options{})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "query analysis failed")
	assert.Equal(t, 0, executor.calls, "no search after a failed analysis")
	assert.Equal(t, 0, ranker.calls)
}

func TestSearchAndRoute_SearchFailureStillRoutes(t *testing.T) {
	analyzer := &mockAnalyzer{analysis: testAnalysis()}
	executor := &mockExecutor{result: search.Result{
		Metadata: types.SearchMetadata{SearchError: "vector store unreachable"},
	}}
	ranker := &mockRanker{result: ranking.Result{Metadata: types.RankingMetadata{Skipped: true}}}
	router := &mockRouter{decision: types.RoutingDecision{Outcome: types.OutcomeFallback}}

	p := New(analyzer, executor, ranker, router)
	result, err := p.SearchAndRoute(context.Background(), "query", nil, testScope(), Options{})

	require.NoError(t, err, "a degraded search never aborts the pipeline")
	assert.Equal(t, "vector store unreachable", result.Search.SearchError)
	assert.True(t, result.Ranking.Skipped)
	assert.Equal(t, types.OutcomeFallback, result.Decision.Outcome)
	assert.Empty(t, result.Candidates)
}

func TestSearchAndRoute_RankingFailureStillRoutes(t *testing.T) {
	analyzer := &mockAnalyzer{analysis: testAnalysis()}
	scored := []types.ScoredCandidate{
		{VideoID: "vid-1", Score: 0.62},
		{VideoID: "vid-2", Score: 0.50},
	}
	executor := &mockExecutor{result: search.Result{Candidates: scored}}
	ranker := &mockRanker{result: ranking.Result{
		Candidates: rankedList(0.62, 0.50),
		Metadata:   types.RankingMetadata{RankingError: "ranking call failed"},
	}}
	router := &mockRouter{decision: types.RoutingDecision{Outcome: types.OutcomeGenerate, TopScore: 0.62, CandidateCount: 2}}

	p := New(analyzer, executor, ranker, router)
	result, err := p.SearchAndRoute(context.Background(), "query", nil, testScope(), Options{})

	require.NoError(t, err)
	assert.Equal(t, "ranking call failed", result.Ranking.RankingError)
	assert.Equal(t, types.OutcomeGenerate, result.Decision.Outcome)
	require.Len(t, result.Candidates, 2)
}

func TestSearchAndRoute_ProgressEvents(t *testing.T) {
	analyzer := &mockAnalyzer{analysis: testAnalysis()}
	executor := &mockExecutor{}
	ranker := &mockRanker{result: ranking.Result{Metadata: types.RankingMetadata{Skipped: true}}}
	router := &mockRouter{decision: types.RoutingDecision{Outcome: types.OutcomeFallback}}

	var stages []string
	p := New(analyzer, executor, ranker, router)
	_, err := p.SearchAndRoute(context.Background(), "query", nil, testScope(), Options{
		OnProgress: func(event ProgressEvent) {
			stages = append(stages, event.Stage)
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{
		StageAnalyze, StageAnalyze,
		StageSearch, StageSearch,
		StageRank, StageRank,
		StageRoute,
	}, stages)
}

func TestSearchAndRoute_HistoryForwarded(t *testing.T) {
	analyzer := &mockAnalyzer{analysis: testAnalysis()}
	executor := &mockExecutor{}
	ranker := &mockRanker{result: ranking.Result{Metadata: types.RankingMetadata{Skipped: true}}}
	router := &mockRouter{}

	p := New(analyzer, executor, ranker, router)
	history := []types.ConversationTurn{{Role: "user", Content: "earlier question"}}
	_, err := p.SearchAndRoute(context.Background(), "follow up", history, testScope(), Options{})

	require.NoError(t, err)
	assert.Equal(t, history, analyzer.gotHistory)
}
