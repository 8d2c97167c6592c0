// Package main provides the entry point for the youtube-talker chat backend.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "youtube_talker",
	Short: "Chat backend over ingested YouTube video transcripts",
	Long:  "youtube-talker ingests YouTube video transcripts and answers chat questions about them using fuzzy title matching, multi-query semantic search and LLM re-ranking.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
