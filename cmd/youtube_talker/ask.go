package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bartek-filipiuk/youtube-talker/internal/observability"
	"github.com/bartek-filipiuk/youtube-talker/internal/pipeline"
	"github.com/bartek-filipiuk/youtube-talker/internal/types"
)

var (
	askConfigPath         string
	askUserID             string
	askChannel            string
	askVerbose            bool
	askFuzzyThreshold     float64
	askRelevanceThreshold float64
	askTopK               int
)

// askAnswerVideos caps how many candidates ground a CLI answer, mirroring the
// chat endpoint.
const askAnswerVideos = 3

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Run one query through the search pipeline and print the answer",
	Long: `Run a single query through the full pipeline: analyze, search, rank,
route, then generate a grounded answer (or a plain reply when no relevant
content was found). Exactly one of --user-id or --channel selects the scope.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askConfigPath, "config", "", "Path to JSON config file")
	askCmd.Flags().StringVar(&askUserID, "user-id", "", "Scope: owner UUID whose videos to search")
	askCmd.Flags().StringVar(&askChannel, "channel", "", "Scope: channel whose videos to search")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "Print pipeline internals")
	askCmd.Flags().Float64Var(&askFuzzyThreshold, "fuzzy-threshold", 0, "Min title similarity to keep a fuzzy match (0.0-1.0)")
	askCmd.Flags().Float64Var(&askRelevanceThreshold, "relevance-threshold", 0, "Min top score to generate a grounded answer (0.0-1.0)")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "Chunks per semantic query variant")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(askConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("fuzzy-threshold") {
		cfg.FuzzyThreshold = askFuzzyThreshold
	}
	if cmd.Flags().Changed("relevance-threshold") {
		cfg.RelevanceThreshold = askRelevanceThreshold
	}
	if cmd.Flags().Changed("top-k") {
		cfg.TopK = askTopK
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = askVerbose
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	scope, err := scopeFromFlags(askUserID, askChannel)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var opts pipeline.Options
	if cfg.Verbose {
		opts.OnProgress = func(event pipeline.ProgressEvent) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", event.Stage, event.Message)
		}
	}

	query := args[0]
	result, err := a.pipeline.SearchAndRoute(ctx, query, nil, scope, opts)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		printer := observability.NewPrinter(os.Stderr)
		printer.PrintQueryAnalysis(result.Analysis)
		printer.PrintCandidates(result.Candidates, result.Search)
		printer.PrintRoutingDecision(result.Decision)
	}

	reply, err := renderAnswer(ctx, a, query, result, scope)
	if err != nil {
		return err
	}

	fmt.Println(reply)
	return nil
}

// renderAnswer mirrors the chat endpoint's generation path: grounded answer
// over retrieved transcript excerpts when routing says generate, a plain
// reply otherwise.
func renderAnswer(ctx context.Context, a *app, query string, result *pipeline.Result, scope types.Scope) (string, error) {
	if result.Decision.Outcome != types.OutcomeGenerate {
		return a.generator.Chitchat(ctx, query)
	}

	candidates := result.Candidates
	if len(candidates) > askAnswerVideos {
		candidates = candidates[:askAnswerVideos]
	}

	contexts, err := a.retriever.Retrieve(ctx, query, candidates, scope)
	if err != nil {
		return "", err
	}
	return a.generator.GroundedAnswer(ctx, query, contexts)
}

// scopeFromFlags builds the search scope from --user-id / --channel.
// Exactly one must be set.
func scopeFromFlags(userID, channel string) (types.Scope, error) {
	if (userID == "") == (channel == "") {
		return types.Scope{}, fmt.Errorf("exactly one of --user-id or --channel is required")
	}
	if channel != "" {
		return types.ChannelScope(channel), nil
	}
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return types.Scope{}, fmt.Errorf("invalid --user-id: %w", err)
	}
	return types.UserScope(ownerID), nil
}
