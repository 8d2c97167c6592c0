package main

import (
	"context"
	"fmt"
	"log"

	"github.com/bartek-filipiuk/youtube-talker/internal/analysis"
	"github.com/bartek-filipiuk/youtube-talker/internal/config"
	"github.com/bartek-filipiuk/youtube-talker/internal/db"
	"github.com/bartek-filipiuk/youtube-talker/internal/embedding"
	"github.com/bartek-filipiuk/youtube-talker/internal/generation"
	"github.com/bartek-filipiuk/youtube-talker/internal/ingestion"
	"github.com/bartek-filipiuk/youtube-talker/internal/llm"
	"github.com/bartek-filipiuk/youtube-talker/internal/pipeline"
	"github.com/bartek-filipiuk/youtube-talker/internal/ranking"
	"github.com/bartek-filipiuk/youtube-talker/internal/routing"
	"github.com/bartek-filipiuk/youtube-talker/internal/search"
	"github.com/bartek-filipiuk/youtube-talker/internal/vectorstore"
)

// app bundles the long-lived clients and the components assembled over them.
// Built once per command invocation; Close releases the clients.
type app struct {
	cfg       config.Config
	llmClient llm.Client
	database  *db.DB
	pipeline  *pipeline.Pipeline
	generator *generation.Generator
	retriever *generation.Retriever
	ingestor  *ingestion.Ingestor
}

// resolveConfig layers config sources: env over file, flags applied by the
// caller afterwards via cmd.Flags().Changed().
func resolveConfig(configPath string) (config.Config, error) {
	var fileCfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		fileCfg = *loaded
	}

	env := config.FromEnv()
	merged := env.MergeWithDefaults(fileCfg)

	if err := merged.Validate(); err != nil {
		return config.Config{}, err
	}
	return merged, nil
}

// buildApp constructs every component from configuration. Required secrets
// are checked here rather than in Validate so that read-only commands built
// on a partial config fail with a pointed message.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or 'api_key' in the config file)")
	}
	if cfg.EmbeddingAPIKey == "" {
		return nil, fmt.Errorf("embedding API key is required (set EMBEDDING_API_KEY or 'embedding_api_key' in the config file)")
	}
	if cfg.QdrantURL == "" {
		return nil, fmt.Errorf("Qdrant URL is required (set QDRANT_URL or 'qdrant_url' in the config file)")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required (set DATABASE_URL or 'database_url' in the config file)")
	}

	llmClient, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	embedder, err := embedding.NewClient(embedding.Config{
		BaseURL: cfg.EmbeddingBaseURL,
		APIKey:  cfg.EmbeddingAPIKey,
		Model:   cfg.EmbeddingModel,
	})
	if err != nil {
		_ = llmClient.Close()
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	store := vectorstore.NewStore(vectorstore.Config{
		URL:        cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
	})

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = llmClient.Close()
		return nil, err
	}

	searchCfg := search.DefaultConfig()
	searchCfg.FuzzyThreshold = cfg.FuzzyThreshold
	searchCfg.TopK = cfg.TopK

	analyzer := analysis.NewAnalyzer(llmClient)
	executor := search.NewExecutor(embedder, store, database, searchCfg)
	ranker := ranking.NewRanker(llmClient)
	router := routing.NewRouter(cfg.RelevanceThreshold)

	fetcher := ingestion.NewFetcher(0)

	return &app{
		cfg:       cfg,
		llmClient: llmClient,
		database:  database,
		pipeline:  pipeline.New(analyzer, executor, ranker, router),
		generator: generation.NewGenerator(llmClient),
		retriever: generation.NewRetriever(embedder, store),
		ingestor:  ingestion.NewIngestor(fetcher, embedder, store, database),
	}, nil
}

// Close releases the database pool and the LLM client.
func (a *app) Close() {
	a.database.Close()
	if err := a.llmClient.Close(); err != nil {
		log.Printf("Warning: failed to close LLM client: %v", err)
	}
}
