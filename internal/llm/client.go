package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client abstracts the LLM provider behind the pipeline's three call shapes:
// free text, and structured JSON at a pinned temperature.
type Client interface {
	// GenerateContent generates free-form text using the given model tier.
	GenerateContent(ctx context.Context, prompt string, tier ModelTier, temperature float32) (string, error)
	// GenerateJSON generates a JSON document using the given model tier.
	// Temperature is explicit because the structured pipeline calls pin
	// specific values (0.3 for query analysis, 0.2 for ranking).
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier, temperature float32) (string, error)
	// GetModel returns the provider model name backing a tier.
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client.
	Close() error
}

// NewClient creates an LLM client for the configured provider. Only Gemini
// is implemented; unknown providers fall back to it.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	return NewGeminiClient(ctx, config, apiKey)
}

// GeminiClient implements Client on Google Gemini.
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a Gemini-backed client.
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, config: config}, nil
}

// generate runs one model call. jsonMIME constrains the response to a JSON
// document via the response MIME type, which is more reliable than prompt
// instructions alone.
func (c *GeminiClient) generate(ctx context.Context, prompt string, tier ModelTier, temperature float32, jsonMIME bool) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	if jsonMIME {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return responseText(resp)
}

// GenerateContent generates free-form text using the given model tier.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier, temperature float32) (string, error) {
	return c.generate(ctx, prompt, tier, temperature, false)
}

// GenerateJSON generates a JSON document using the given model tier.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier, temperature float32) (string, error) {
	text, err := c.generate(ctx, prompt, tier, temperature, true)
	if err != nil {
		return "", err
	}
	// Some models still wrap the document in a markdown fence.
	return CleanJSONBlock(text), nil
}

// GetModel returns the provider model name backing a tier.
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases the underlying genai client.
func (c *GeminiClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// responseText flattens the first candidate's text parts.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
