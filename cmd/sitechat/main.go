// Package main provides the CLI entry point for sitechat, a Telegram bot that
// answers customer questions from a company's website and documents.
//
// # Basic Usage
//
// Run the bot:
//
//	sitechat serve --config sitechat.yaml
//
// Build the knowledge base and print its statistics:
//
//	sitechat ingest --config sitechat.yaml
//
// Ask a single question, or chat in the terminal:
//
//	sitechat ask "What are your opening hours?"
//	sitechat chat
//
// # Environment Variables
//
// Settings can be provided through the environment or a .env file:
//
//   - TELEGRAM_BOT_TOKEN (or MY_BOT_TOKEN): Telegram bot token
//   - GEMINI_API_KEY (or GEMINI_API): Gemini API key
//   - OPENAI_API_KEY, ANTHROPIC_API_KEY: keys for the other providers
//   - SITECHAT_WEBSITE_URL (or WEBSITE_URL): website to crawl
//   - SITECHAT_DOCUMENTS_DIR (or TRAINING_DATA_DIR): directory of .txt and .pdf files
//   - AWS_S3_BUCKET, AWS_S3_PREFIX: bucket of .txt and .pdf files
//   - UNIDOC_LICENSE_API_KEY: PDF extraction license key
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Persistent flags shared by every subcommand.
var (
	configPath string
	envFile    string
	debug      bool
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sitechat",
		Short: "sitechat - answer customer questions from your website",
		Long: `sitechat crawls a website and reads text and PDF documents, indexes them
for semantic search, and answers questions over Telegram with a hosted
language model grounded in what it found.

Supported LLM providers: Gemini, OpenAI, Anthropic
Supported sources: website crawl, local directory, S3 bucket`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to YAML or JSON5 configuration file (optional; environment variables also configure sitechat)")
	flags.StringVar(&envFile, "env-file", ".env", "Path to a .env file loaded before the configuration")
	flags.BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	rootCmd.AddCommand(
		buildServeCmd(),
		buildIngestCmd(),
		buildSearchCmd(),
		buildAskCmd(),
		buildChatCmd(),
		buildExtractCmd(),
		buildConfigCmd(),
		buildVersionCmd(),
	)
	return rootCmd
}
