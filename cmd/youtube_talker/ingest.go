package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bartek-filipiuk/youtube-talker/internal/types"
)

var (
	ingestConfigPath string
	ingestOwnerID    string
	ingestChannel    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [url]",
	Short: "Fetch, chunk, embed and store one video transcript",
	Long: `Ingest a single YouTube video: fetch its transcript page, split the
transcript into chunks, embed all chunks in one batched call and store the
vectors and metadata. Re-ingesting the same URL replaces the stored content.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestConfigPath, "config", "", "Path to JSON config file")
	ingestCmd.Flags().StringVar(&ingestOwnerID, "owner-id", "", "Owner UUID the video belongs to (required)")
	ingestCmd.Flags().StringVar(&ingestChannel, "channel", "", "Optional channel grouping for the video")
	_ = ingestCmd.MarkFlagRequired("owner-id")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(ingestConfigPath)
	if err != nil {
		return err
	}

	ownerID, err := uuid.Parse(ingestOwnerID)
	if err != nil {
		return fmt.Errorf("invalid --owner-id: %w", err)
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.ingestor.Ingest(ctx, types.IngestRequest{
		URL:     args[0],
		OwnerID: ownerID,
		Channel: ingestChannel,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %q (%s): %d chunks stored\n", result.Video.Title, result.Video.VideoID, result.ChunkCount)
	return nil
}
