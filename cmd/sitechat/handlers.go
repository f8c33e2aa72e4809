package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/haasonsaas/sitechat/internal/channels"
	"github.com/haasonsaas/sitechat/internal/channels/console"
	"github.com/haasonsaas/sitechat/internal/channels/telegram"
	"github.com/haasonsaas/sitechat/internal/config"
	"github.com/haasonsaas/sitechat/internal/rag/kb"
	"github.com/haasonsaas/sitechat/internal/rag/normalize"
	"github.com/haasonsaas/sitechat/internal/rag/page"
	"github.com/haasonsaas/sitechat/pkg/models"
)

// shutdownTimeout bounds how long serve waits for in-flight replies.
const shutdownTimeout = 30 * time.Second

// =============================================================================
// Serve Command Handler
// =============================================================================

// runServe builds the knowledge base and runs the Telegram bot until a
// signal arrives.
func runServe(ctx context.Context, configPath, envFile string, debug bool) error {
	cfg, err := loadConfig(configPath, envFile, config.ModeServe)
	if err != nil {
		return err
	}
	a := newApp(cfg, debug, os.Stderr)
	defer a.close()

	a.logger.Info("starting sitechat",
		"version", version,
		"commit", commit,
		"config", configPath,
		"telegram_mode", cfg.Telegram.Mode,
		"llm_provider", cfg.LLM.Provider,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var admin *adminServer
	if !cfg.Server.Disabled {
		admin = newAdminServer(cfg.Server.Addr, a.registry, a.logger)
		if err := admin.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			admin.Shutdown(shutdownCtx)
		}()
	}

	knowledge, err := a.buildKnowledgeBase(ctx)
	if err != nil {
		return fmt.Errorf("build knowledge base: %w", err)
	}
	engine, err := a.buildEngine(ctx, knowledge)
	if err != nil {
		return err
	}
	adapter, err := telegram.NewAdapter(cfg.Telegram, engine, telegram.Options{
		Logger:  a.logger,
		Metrics: a.metrics,
		Tracer:  a.tracer,
	})
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	admin.SetReady(knowledge.Stats())

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	errCh := make(chan error, 1)
	go func() {
		errCh <- adapter.Run(runCtx)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received, stopping bot")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		return nil
	}

	// Stop receiving, then give in-flight replies the shutdown budget.
	cancelRun()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("telegram: %w", err)
		}
	case <-time.After(shutdownTimeout):
		return fmt.Errorf("shutdown timed out after %s", shutdownTimeout)
	}
	a.logger.Info("sitechat stopped")
	return nil
}

// =============================================================================
// Knowledge Base Command Handlers
// =============================================================================

func runIngest(ctx context.Context, out io.Writer, configPath, envFile string, debug, asJSON bool) error {
	cfg, err := loadConfig(configPath, envFile, config.ModeIngest)
	if err != nil {
		return err
	}
	a := newApp(cfg, debug, os.Stderr)
	defer a.close()

	knowledge, err := a.buildKnowledgeBase(ctx)
	if err != nil {
		return fmt.Errorf("build knowledge base: %w", err)
	}
	return printStats(out, knowledge.Stats(), asJSON)
}

func printStats(out io.Writer, stats kb.Stats, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Build:\t%s\n", stats.BuildID)
	fmt.Fprintf(w, "Embedder:\t%s (dim %d)\n", stats.Embedder, stats.Dimension)
	fmt.Fprintf(w, "Segment mode:\t%s\n", stats.Mode)
	fmt.Fprintf(w, "Sources:\t%d\n", stats.Sources)
	fmt.Fprintf(w, "Pages:\t%d\n", stats.Pages)
	fmt.Fprintf(w, "Documents:\t%d\n", stats.Documents)
	fmt.Fprintf(w, "Segments:\t%d\n", stats.Segments)
	fmt.Fprintf(w, "Chunks:\t%d\n", stats.Chunks)
	fmt.Fprintf(w, "Duration:\t%s\n", stats.Duration.Round(time.Millisecond))
	return w.Flush()
}

func runSearch(ctx context.Context, out io.Writer, configPath, envFile string, debug bool, query string, limit int) error {
	cfg, err := loadConfig(configPath, envFile, config.ModeIngest)
	if err != nil {
		return err
	}
	a := newApp(cfg, debug, os.Stderr)
	defer a.close()

	knowledge, err := a.buildKnowledgeBase(ctx)
	if err != nil {
		return fmt.Errorf("build knowledge base: %w", err)
	}
	if limit <= 0 {
		limit = knowledge.TopK()
	}
	results, err := knowledge.Search(ctx, query, limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "[%d] %.4f  %s #%d\n", i+1, r.Score, r.Origin, r.Index)
		fmt.Fprintf(out, "%s\n\n", strings.TrimSpace(r.Text))
	}
	return nil
}

// =============================================================================
// Conversation Command Handlers
// =============================================================================

func runAsk(ctx context.Context, out io.Writer, configPath, envFile string, debug bool, question string) error {
	cfg, err := loadConfig(configPath, envFile, config.ModeAsk)
	if err != nil {
		return err
	}
	a := newApp(cfg, debug, os.Stderr)
	defer a.close()

	knowledge, err := a.buildKnowledgeBase(ctx)
	if err != nil {
		return fmt.Errorf("build knowledge base: %w", err)
	}
	engine, err := a.buildEngine(ctx, knowledge)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, engine.Handle(ctx, 0, question))
	return nil
}

func runChat(ctx context.Context, configPath, envFile string, debug bool, name string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("chat needs an interactive terminal; use \"sitechat ask\" from scripts")
	}
	cfg, err := loadConfig(configPath, envFile, config.ModeAsk)
	if err != nil {
		return err
	}
	// The terminal belongs to the chat view; only debug runs keep logging.
	var logOutput io.Writer = io.Discard
	if debug {
		logOutput = os.Stderr
	}
	a := newApp(cfg, debug, logOutput)
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(os.Stderr, "Building knowledge base...")
	knowledge, err := a.buildKnowledgeBase(ctx)
	if err != nil {
		return fmt.Errorf("build knowledge base: %w", err)
	}
	engine, err := a.buildEngine(ctx, knowledge)
	if err != nil {
		return err
	}

	if name == "" {
		name = os.Getenv("USER")
	}
	stats := knowledge.Stats()
	summary := fmt.Sprintf("%d chunks from %d sources | %s", stats.Chunks, stats.Sources, cfg.LLM.Provider)
	dispatcher := &channels.Dispatcher{Responder: engine, Metrics: a.metrics, Tracer: a.tracer}
	return console.Run(ctx, dispatcher, name, summary)
}

// =============================================================================
// Extract Command Handler
// =============================================================================

// runExtract prints the text of one page or document. The configuration is
// optional here and only supplies crawler and PDF settings.
func runExtract(ctx context.Context, out io.Writer, configPath, envFile, target string, raw bool) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a := newApp(cfg, false, os.Stderr)
	defer a.close()

	text, err := extractText(ctx, a, target)
	if err != nil {
		return err
	}
	if !raw {
		text = normalize.Text(text)
	}
	if strings.TrimSpace(text) == "" {
		slog.Warn("no text extracted", "target", target)
		return nil
	}
	fmt.Fprintln(out, text)
	return nil
}

func extractText(ctx context.Context, a *app, target string) (string, error) {
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		p, err := page.NewExtractor(a.fetcher).Extract(ctx, target)
		if err != nil {
			return "", err
		}
		return p.Content(), nil
	}

	src := models.FileSource(target)
	if src.Format == models.FormatUnknown {
		return "", fmt.Errorf("unsupported document %q: only .txt and .pdf files are extracted", target)
	}
	a.applyPDFLicense()
	doc, err := kb.DefaultParsers().Extract(ctx, src)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// =============================================================================
// Config Command Handlers
// =============================================================================

func runConfigSchema(out io.Writer) error {
	schema, err := config.JSONSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	_, err = fmt.Fprintln(out, string(schema))
	return err
}

// runConfigCheck reports the effective sources and providers, never the
// credentials.
func runConfigCheck(out io.Writer, configPath, envFile, mode string) error {
	m := config.Mode(strings.ToLower(strings.TrimSpace(mode)))
	switch m {
	case config.ModeServe, config.ModeIngest, config.ModeAsk:
	default:
		return fmt.Errorf("unknown mode %q (want serve, ingest or ask)", mode)
	}
	cfg, err := loadConfig(configPath, envFile, m)
	if err != nil {
		return err
	}

	k := cfg.Knowledge
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Mode:\t%s\n", m)
	fmt.Fprintf(w, "Website:\t%s\n", orNone(k.Website))
	fmt.Fprintf(w, "Documents dir:\t%s\n", orNone(k.DocumentsDir))
	fmt.Fprintf(w, "S3 bucket:\t%s\n", orNone(k.S3.Bucket))
	fmt.Fprintf(w, "Embeddings:\t%s\n", cfg.Embeddings.Provider)
	fmt.Fprintf(w, "Chunking:\t%d/%d\n", k.Chunking.ChunkSize, k.Chunking.ChunkOverlap)
	fmt.Fprintf(w, "Retrieval:\ttop %d, %s\n", k.Retrieval.TopK, k.Retrieval.SegmentMode)
	if m != config.ModeIngest {
		fmt.Fprintf(w, "LLM:\t%s %s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	if m == config.ModeServe {
		fmt.Fprintf(w, "Telegram:\t%s\n", cfg.Telegram.Mode)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, "configuration OK")
	return err
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
