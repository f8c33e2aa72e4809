package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// =============================================================================
// Command Builders
// =============================================================================

func buildServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Build the knowledge base and run the Telegram bot",
		Long: `Build the knowledge base from every configured source, then answer
Telegram messages until interrupted.

An admin HTTP server exposes /healthz, /readyz and /metrics unless
server.disabled is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, envFile, debug)
		},
	}
}

func buildIngestCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build the knowledge base and print its statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd.OutOrStdout(), configPath, envFile, debug, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")
	return cmd
}

func buildSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Show the chunks retrieved for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd.OutOrStdout(), configPath, envFile, debug, strings.Join(args, " "), limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "k", 0, "Chunks per segment (defaults to knowledge.retrieval.top_k)")
	return cmd
}

func buildAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cmd.OutOrStdout(), configPath, envFile, debug, strings.Join(args, " "))
		},
	}
}

func buildChatCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the bot in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), configPath, envFile, debug, name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name used in the greeting (defaults to $USER)")
	return cmd
}

func buildExtractCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "extract <url-or-file>",
		Short: "Print the text sitechat extracts from one page or document",
		Long: `Print the text the knowledge base would ingest from a single web page,
.txt file or .pdf file. No crawl is performed and nothing is embedded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), cmd.OutOrStdout(), configPath, envFile, args[0], raw)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Skip normalization")
	return cmd
}

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect sitechat configuration",
	}

	schema := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSchema(cmd.OutOrStdout())
		},
	}

	var mode string
	check := &cobra.Command{
		Use:   "check",
		Short: "Load and validate the configuration without starting anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigCheck(cmd.OutOrStdout(), configPath, envFile, mode)
		},
	}
	check.Flags().StringVar(&mode, "mode", "serve", "Command to validate for: serve, ingest or ask")

	cmd.AddCommand(schema, check)
	return cmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sitechat %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
		},
	}
}
