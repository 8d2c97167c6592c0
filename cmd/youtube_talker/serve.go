package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bartek-filipiuk/youtube-talker/internal/server"
)

var (
	serveConfigPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat and ingestion server",
	Long: `Start the HTTP server exposing the chat, ingestion and video listing
endpoints. Configuration is layered: flags override environment variables,
which override the optional JSON config file.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to JSON config file")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port to listen on (default 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(serveConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{Port: cfg.Port}, server.Dependencies{
		Pipeline:  a.pipeline,
		Generator: a.generator,
		Ingestor:  a.ingestor,
		Videos:    a.database,
		History:   a.database,
		Retriever: a.retriever,
		Shutdown:  a.Close,
	})

	return srv.Start()
}
