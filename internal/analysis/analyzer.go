// Package analysis turns a raw user query into structured search signals.
package analysis

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

// maxHistoryTurns bounds how much conversation context is sent to the model.
const maxHistoryTurns = 6

// Analyzer produces a QueryAnalysis from a raw query via one structured LLM call.
type Analyzer struct {
	client llm.Client
}

// NewAnalyzer creates a query analyzer backed by the given LLM client.
func NewAnalyzer(client llm.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze extracts title keywords, topic keywords, alternative phrasings and
// intent from the query. Failures are not recovered here: without query
// signals no meaningful search can proceed, so errors propagate to the caller.
// Retry, if desired, belongs to the LLM client.
func (a *Analyzer) Analyze(ctx context.Context, query string, history []types.ConversationTurn) (*types.QueryAnalysis, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty")
	}

	prompt := buildAnalysisPrompt(query, history)

	raw, err := a.client.GenerateJSON(ctx, prompt, llm.TierLite, llm.AnalysisTemperature)
	if err != nil {
		return nil, fmt.Errorf("query analysis failed: %w", err)
	}

	raw = llm.CleanJSONBlock(raw)
	if err := schemas.Validate(schemas.QueryAnalysis, []byte(raw)); err != nil {
		return nil, fmt.Errorf("query analysis returned malformed output: %w", err)
	}

	var result types.QueryAnalysis
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to parse query analysis: %w", err)
	}

	return &result, nil
}

// buildAnalysisPrompt renders the analyze-query template with the raw query
// and the most recent conversation turns.
func buildAnalysisPrompt(query string, history []types.ConversationTurn) string {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	historyStr := "(no prior conversation)"
	if len(history) > 0 {
		var lines []string
		for _, turn := range history {
			lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
		}
		historyStr = strings.Join(lines, "\n")
	}

	template := prompts.MustGet("analysis.json", "analyze-query")
	return prompts.Format(template, map[string]string{
		"Query":   query,
		"History": historyStr,
	})
}
