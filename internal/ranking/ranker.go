// Package ranking provides the optional LLM re-ranking pass over search
// candidates, with per-video explainability.
package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bartek-filipiuk/youtube-talker/internal/llm"
	"github.com/bartek-filipiuk/youtube-talker/internal/prompts"
	"github.com/bartek-filipiuk/youtube-talker/internal/schemas"
	"github.com/bartek-filipiuk/youtube-talker/internal/types"
)

// maxKeyMatches caps the explainability phrases kept per video.
const maxKeyMatches = 5

// Result is the ranker's output: the (possibly reordered) candidate list plus
// ranking metadata.
type Result struct {
	Candidates []types.RankedCandidate
	Metadata   types.RankingMetadata
}

// Ranker re-orders and re-scores candidates with one structured LLM call.
type Ranker struct {
	client llm.Client
}

// NewRanker creates a result ranker backed by the given LLM client.
func NewRanker(client llm.Client) *Ranker {
	return &Ranker{client: client}
}

// rankingResponse is the expected JSON shape from the LLM.
type rankingResponse struct {
	Rankings []struct {
		VideoID        string   `json:"video_id"`
		RelevanceScore float64  `json:"relevance_score"`
		Reasoning      string   `json:"reasoning"`
		KeyMatches     []string `json:"key_matches"`
	} `json:"rankings"`
	OverallConfidence   float64 `json:"overall_confidence"`
	StrategyExplanation string  `json:"strategy_explanation"`
}

// Rank asks the LLM for an explicit relevance judgment per candidate.
// Skipped entirely for 0 or 1 candidates: re-ranking a single item has no
// value, and the LLM is never invoked. Re-ranking reorders and rescales but
// never filters; every candidate keeps its pre-ranking score in
// OriginalScore. A ranking failure returns the pre-ranking list annotated
// with the error, so ranking is an enhancement, never a hard dependency.
func (r *Ranker) Rank(ctx context.Context, candidates []types.ScoredCandidate, query string) Result {
	if len(candidates) <= 1 {
		return Result{
			Candidates: wrapUnranked(candidates),
			Metadata:   types.RankingMetadata{Skipped: true},
		}
	}

	ranked, meta, err := r.rank(ctx, candidates, query)
	if err != nil {
		return Result{
			Candidates: wrapUnranked(candidates),
			Metadata:   types.RankingMetadata{RankingError: err.Error()},
		}
	}
	return Result{Candidates: ranked, Metadata: meta}
}

func (r *Ranker) rank(ctx context.Context, candidates []types.ScoredCandidate, query string) ([]types.RankedCandidate, types.RankingMetadata, error) {
	var meta types.RankingMetadata

	prompt := buildRankingPrompt(candidates, query)

	raw, err := r.client.GenerateJSON(ctx, prompt, llm.TierStandard, llm.RankingTemperature)
	if err != nil {
		return nil, meta, fmt.Errorf("ranking call failed: %w", err)
	}

	raw = llm.CleanJSONBlock(raw)
	if err := schemas.Validate(schemas.Ranking, []byte(raw)); err != nil {
		return nil, meta, fmt.Errorf("ranking returned malformed output: %w", err)
	}

	var response rankingResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return nil, meta, fmt.Errorf("failed to parse ranking response: %w", err)
	}

	byID := make(map[string]types.ScoredCandidate, len(candidates))
	for _, c := range candidates {
		byID[c.VideoID] = c
	}

	ranked := make([]types.RankedCandidate, 0, len(candidates))
	used := make(map[string]bool, len(candidates))
	for _, entry := range response.Rankings {
		candidate, ok := byID[entry.VideoID]
		if !ok || used[entry.VideoID] {
			// Hallucinated or duplicated IDs are ignored rather than trusted.
			continue
		}
		used[entry.VideoID] = true

		keyMatches := entry.KeyMatches
		if len(keyMatches) > maxKeyMatches {
			keyMatches = keyMatches[:maxKeyMatches]
		}

		rc := types.RankedCandidate{
			ScoredCandidate: candidate,
			OriginalScore:   candidate.Score,
			LLMReasoning:    entry.Reasoning,
			LLMKeyMatches:   keyMatches,
		}
		rc.Score = clampScore(entry.RelevanceScore)
		ranked = append(ranked, rc)
	}

	// Ranking never filters: candidates the LLM omitted keep their original
	// score and relative order at the end of the list.
	for _, c := range candidates {
		if !used[c.VideoID] {
			ranked = append(ranked, types.RankedCandidate{
				ScoredCandidate: c,
				OriginalScore:   c.Score,
			})
		}
	}

	meta.OverallConfidence = clampScore(response.OverallConfidence)
	meta.StrategyExplanation = response.StrategyExplanation
	return ranked, meta, nil
}

// wrapUnranked converts candidates without mutating order or score.
func wrapUnranked(candidates []types.ScoredCandidate) []types.RankedCandidate {
	ranked := make([]types.RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = types.RankedCandidate{
			ScoredCandidate: c,
			OriginalScore:   c.Score,
		}
	}
	return ranked
}

// buildRankingPrompt renders the rank-candidates template with one line per
// candidate: title, pre-ranking score and the strategy that found it.
func buildRankingPrompt(candidates []types.ScoredCandidate, query string) string {
	var lines []string
	for i, c := range candidates {
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		lines = append(lines, fmt.Sprintf("%d. video_id=%s title=%q score=%.3f strategy=%s",
			i+1, c.VideoID, title, c.Score, c.Strategy))
	}

	template := prompts.MustGet("ranking.json", "rank-candidates")
	return prompts.Format(template, map[string]string{
		"Query":      query,
		"Candidates": strings.Join(lines, "\n"),
	})
}

func clampScore(s float64) float64 {
	if s < 0.0 {
		return 0.0
	}
	if s > 1.0 {
		return 1.0
	}
	return s
}
