// Package config provides configuration loading and validation for the
// youtube-talker service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bartek-filipiuk/youtube-talker/internal/routing"
	"github.com/bartek-filipiuk/youtube-talker/internal/search"
)

// Config represents the service configuration, loadable from a JSON file with
// environment variables layered on top. All fields are optional; missing
// values use defaults or must be provided via CLI flags.
type Config struct {
	// LLM
	APIKey string `json:"api_key,omitempty"` // Gemini API key

	// Embeddings (OpenAI-compatible endpoint)
	EmbeddingBaseURL string `json:"embedding_base_url,omitempty"`
	EmbeddingAPIKey  string `json:"embedding_api_key,omitempty"`
	EmbeddingModel   string `json:"embedding_model,omitempty"`

	// Vector store
	QdrantURL        string `json:"qdrant_url,omitempty"`
	QdrantAPIKey     string `json:"qdrant_api_key,omitempty"`
	QdrantCollection string `json:"qdrant_collection,omitempty"`

	// Storage
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Search behavior
	FuzzyThreshold     float64 `json:"fuzzy_threshold,omitempty"`     // Min title similarity (0.0-1.0)
	RelevanceThreshold float64 `json:"relevance_threshold,omitempty"` // Min top score to generate (0.0-1.0)
	TopK               int     `json:"top_k,omitempty"`               // Chunks per semantic query variant

	// Server
	Port    int  `json:"port,omitempty"`
	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv returns a Config populated from environment variables.
func FromEnv() Config {
	return Config{
		APIKey:           os.Getenv("GEMINI_API_KEY"),
		EmbeddingBaseURL: os.Getenv("EMBEDDING_BASE_URL"),
		EmbeddingAPIKey:  os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingModel:   os.Getenv("EMBEDDING_MODEL"),
		QdrantURL:        os.Getenv("QDRANT_URL"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantCollection: os.Getenv("QDRANT_COLLECTION"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
	}
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("config error: 'fuzzy_threshold' must be in [0, 1]")
	}
	if c.RelevanceThreshold < 0 || c.RelevanceThreshold > 1 {
		return fmt.Errorf("config error: 'relevance_threshold' must be in [0, 1]")
	}
	if c.TopK < 0 {
		return fmt.Errorf("config error: 'top_k' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be a valid port number")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to layer config sources: flags over env over file.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.EmbeddingBaseURL == "" {
		result.EmbeddingBaseURL = defaults.EmbeddingBaseURL
	}
	if result.EmbeddingAPIKey == "" {
		result.EmbeddingAPIKey = defaults.EmbeddingAPIKey
	}
	if result.EmbeddingModel == "" {
		result.EmbeddingModel = defaults.EmbeddingModel
	}
	if result.QdrantURL == "" {
		result.QdrantURL = defaults.QdrantURL
	}
	if result.QdrantAPIKey == "" {
		result.QdrantAPIKey = defaults.QdrantAPIKey
	}
	if result.QdrantCollection == "" {
		result.QdrantCollection = defaults.QdrantCollection
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Numeric fields: use default if zero, falling back to the package
	// defaults so an empty config still yields a working pipeline.
	if result.FuzzyThreshold == 0 {
		if defaults.FuzzyThreshold > 0 {
			result.FuzzyThreshold = defaults.FuzzyThreshold
		} else {
			result.FuzzyThreshold = search.DefaultFuzzyThreshold
		}
	}
	if result.RelevanceThreshold == 0 {
		if defaults.RelevanceThreshold > 0 {
			result.RelevanceThreshold = defaults.RelevanceThreshold
		} else {
			result.RelevanceThreshold = routing.DefaultThreshold
		}
	}
	if result.TopK == 0 {
		if defaults.TopK > 0 {
			result.TopK = defaults.TopK
		} else {
			result.TopK = search.DefaultTopK
		}
	}
	if result.Port == 0 {
		if defaults.Port > 0 {
			result.Port = defaults.Port
		} else {
			result.Port = 8080
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
