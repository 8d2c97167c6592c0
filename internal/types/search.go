// Package types provides type definitions for structured data used throughout the youtube-talker system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// QueryIntent classifies what the user is trying to do with a query.
type QueryIntent string

// Query intent values produced by the query analyzer.
const (
	IntentSummary    QueryIntent = "summary"
	IntentQuestion   QueryIntent = "question"
	IntentComparison QueryIntent = "comparison"
	IntentSearch     QueryIntent = "search"
	IntentOther      QueryIntent = "other"
)

// ValidIntent reports whether s is one of the known query intents.
func ValidIntent(s QueryIntent) bool {
	switch s {
	case IntentSummary, IntentQuestion, IntentComparison, IntentSearch, IntentOther:
		return true
	}
	return false
}

// QueryAnalysis is the structured interpretation of a user query, produced
// once per query by the analyzer and treated as immutable afterwards.
type QueryAnalysis struct {
	// TitleKeywords are literal title fragments the user mentioned (may be empty).
	TitleKeywords []string `json:"title_keywords"`
	// TopicKeywords are subject/concept strings for semantic search.
	TopicKeywords []string `json:"topic_keywords"`
	// AlternativePhrasings are 0-3 rewordings used to diversify semantic search.
	AlternativePhrasings []string `json:"alternative_phrasings"`
	// QueryIntent is one of summary|question|comparison|search|other.
	QueryIntent QueryIntent `json:"query_intent"`
	// Confidence is the analyzer's self-reported confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Reasoning is a short justification. Diagnostic only, never used in control flow.
	Reasoning string `json:"reasoning"`
}

// Strategy identifies the retrieval method that produced a candidate.
type Strategy string

// Retrieval strategies.
const (
	// StrategyFuzzyTitle means the candidate was found by fuzzy title matching only.
	StrategyFuzzyTitle Strategy = "fuzzy_title_match"
	// StrategySemantic means the candidate was found by semantic search only.
	StrategySemantic Strategy = "semantic_search"
	// StrategyCombined means both strategies found the candidate and their scores were fused.
	StrategyCombined Strategy = "title+semantic"
)

// ScoredCandidate is one video discovered during search. The executor emits
// at most one ScoredCandidate per video ID; hits from multiple strategies are
// merged before emission.
type ScoredCandidate struct {
	// VideoID is the stable external identifier and the dedup key.
	VideoID string `json:"video_id"`
	// Title may be empty until metadata resolution completes.
	Title string `json:"title,omitempty"`
	// Score is in [0,1]; its semantics depend on Strategy.
	Score float64 `json:"score"`
	// Strategy is the retrieval method that produced this candidate.
	Strategy Strategy `json:"strategy"`
	// Source references the owning video record when resolved.
	Source *VideoRecord `json:"source_record,omitempty"`
}

// RankedCandidate is a ScoredCandidate enriched by the LLM re-ranking pass.
// When ranking is skipped the LLM fields stay zero and Score equals OriginalScore.
type RankedCandidate struct {
	ScoredCandidate
	// OriginalScore preserves the pre-ranking score verbatim for auditability.
	OriginalScore float64 `json:"original_score"`
	// LLMReasoning explains the assigned relevance, when ranking ran.
	LLMReasoning string `json:"llm_reasoning,omitempty"`
	// LLMKeyMatches lists up to 5 phrases the ranker matched on.
	LLMKeyMatches []string `json:"llm_key_matches,omitempty"`
}

// SearchMetadata describes how a search execution went.
type SearchMetadata struct {
	// StrategiesUsed lists the strategies that actually ran.
	StrategiesUsed []Strategy `json:"strategies_used"`
	// FuzzyMatches is the number of candidates kept by fuzzy title matching.
	FuzzyMatches int `json:"fuzzy_matches"`
	// SemanticMatches is the number of distinct videos found by semantic search.
	SemanticMatches int `json:"semantic_matches"`
	// SearchError is set when execution degraded to an empty result.
	SearchError string `json:"search_error,omitempty"`
}

// RankingMetadata describes the outcome of the re-ranking pass.
type RankingMetadata struct {
	// Skipped is true when ranking was bypassed (0 or 1 candidates).
	Skipped bool `json:"ranking_skipped"`
	// OverallConfidence is the ranker's confidence across the whole list.
	OverallConfidence float64 `json:"overall_confidence,omitempty"`
	// StrategyExplanation summarizes how the ranker weighed the candidates.
	StrategyExplanation string `json:"strategy_explanation,omitempty"`
	// RankingError is set when the ranking call failed and the
	// pre-ranking order was kept.
	RankingError string `json:"ranking_error,omitempty"`
}

// Outcome is the terminal decision of the content router.
type Outcome string

// Routing outcomes.
const (
	// OutcomeGenerate means enough relevant content exists for a grounded answer.
	OutcomeGenerate Outcome = "generate"
	// OutcomeFallback means no sufficiently relevant content was found.
	OutcomeFallback Outcome = "fallback"
)

// RoutingDecision is the terminal artifact of the search pipeline. It is
// created once per query and consumed immediately by the caller.
type RoutingDecision struct {
	Outcome Outcome `json:"outcome"`
	// TopScore is the score of the first ranked candidate, 0.0 when the list is empty.
	TopScore float64 `json:"top_score"`
	// CandidateCount is the size of the final ranked list.
	CandidateCount int `json:"candidate_count"`
}
