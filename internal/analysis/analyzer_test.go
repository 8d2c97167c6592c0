package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bartek-filipiuk/youtube-talker/internal/llm"
	"github.com/bartek-filipiuk/youtube-talker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier, temperature float32) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier, temperature float32) (string, error)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier, temperature float32) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier, temperature)
	}
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier, temperature float32) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier, temperature)
	}
	return "{}", nil
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

const validAnalysisJSON = `{
	"title_keywords": ["Testing Patterns"],
	"topic_keywords": ["testing", "go"],
	"alternative_phrasings": ["videos about testing patterns"],
	"query_intent": "search",
	"confidence": 0.85,
	"reasoning": "user named a specific title"
}`

func TestAnalyze_Success(t *testing.T) {
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier, _ float32) (string, error) {
			return validAnalysisJSON, nil
		},
	}

	analyzer := NewAnalyzer(mockClient)
	result, err := analyzer.Analyze(context.Background(), "find the testing patterns video", nil)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []string{"Testing Patterns"}, result.TitleKeywords)
	assert.Equal(t, []string{"testing", "go"}, result.TopicKeywords)
	assert.Len(t, result.AlternativePhrasings, 1)
	assert.Equal(t, types.IntentSearch, result.QueryIntent)
	assert.InDelta(t, 0.85, result.Confidence, 0.001)
}

func TestAnalyze_UsesAnalysisTemperature(t *testing.T) {
	var gotTemp float32
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier, temperature float32) (string, error) {
			gotTemp = temperature
			return validAnalysisJSON, nil
		},
	}

	analyzer := NewAnalyzer(mockClient)
	_, err := analyzer.Analyze(context.Background(), "anything", nil)

	require.NoError(t, err)
	assert.InDelta(t, 0.3, float64(gotTemp), 0.001)
}

func TestAnalyze_LLMErrorPropagates(t *testing.T) {
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier, _ float32) (string, error) {
			return "", errors.New("rate limit exceeded")
		},
	}

	analyzer := NewAnalyzer(mockClient)
	result, err := analyzer.Analyze(context.Background(), "anything", nil)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "query analysis failed")
}

func TestAnalyze_MalformedOutputPropagates(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "this is not json"},
		{"missing required fields", `{"title_keywords": []}`},
		{"bad intent", `{"title_keywords":[],"topic_keywords":[],"alternative_phrasings":[],"query_intent":"nonsense","confidence":0.5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &MockLLMClient{
				GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier, _ float32) (string, error) {
					return tt.payload, nil
				},
			}

			analyzer := NewAnalyzer(mockClient)
			result, err := analyzer.Analyze(context.Background(), "anything", nil)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.Contains(t, err.Error(), "malformed output")
		})
	}
}

func TestAnalyze_MarkdownWrappedJSONAccepted(t *testing.T) {
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier, _ float32) (string, error) {
			return "```json\n" + validAnalysisJSON + "\n```", nil
		},
	}

	analyzer := NewAnalyzer(mockClient)
	result, err := analyzer.Analyze(context.Background(), "anything", nil)

	require.NoError(t, err)
	assert.Equal(t, types.IntentSearch, result.QueryIntent)
}

func TestAnalyze_EmptyQuery(t *testing.T) {
	analyzer := NewAnalyzer(&MockLLMClient{})
	_, err := analyzer.Analyze(context.Background(), "   ", nil)
	require.Error(t, err)
}

func TestAnalyze_HistoryInPrompt(t *testing.T) {
	var gotPrompt string
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier, _ float32) (string, error) {
			gotPrompt = prompt
			return validAnalysisJSON, nil
		},
	}

	history := []types.ConversationTurn{
		{Role: "user", Content: "tell me about the kubernetes video"},
		{Role: "assistant", Content: "It covers cluster networking."},
	}

	analyzer := NewAnalyzer(mockClient)
	_, err := analyzer.Analyze(context.Background(), "and what about storage?", history)

	require.NoError(t, err)
	assert.Contains(t, gotPrompt, "user: tell me about the kubernetes video")
	assert.Contains(t, gotPrompt, "assistant: It covers cluster networking.")
	assert.Contains(t, gotPrompt, "and what about storage?")
}

func TestAnalyze_HistoryTruncatedToRecentTurns(t *testing.T) {
	var gotPrompt string
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier, _ float32) (string, error) {
			gotPrompt = prompt
			return validAnalysisJSON, nil
		},
	}

	var history []types.ConversationTurn
	for i := 0; i < 10; i++ {
		history = append(history, types.ConversationTurn{Role: "user", Content: fmt.Sprintf("turn-%d", i)})
	}

	analyzer := NewAnalyzer(mockClient)
	_, err := analyzer.Analyze(context.Background(), "latest question", history)

	require.NoError(t, err)
	assert.NotContains(t, gotPrompt, "turn-3")
	assert.Contains(t, gotPrompt, "turn-4")
	assert.Contains(t, gotPrompt, "turn-9")
}
