package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/haasonsaas/sitechat/internal/agent/providers"
	"github.com/haasonsaas/sitechat/internal/config"
	"github.com/haasonsaas/sitechat/internal/conversation"
	"github.com/haasonsaas/sitechat/internal/memory/embeddings"
	"github.com/haasonsaas/sitechat/internal/memory/embeddings/gemini"
	"github.com/haasonsaas/sitechat/internal/memory/embeddings/hashing"
	"github.com/haasonsaas/sitechat/internal/memory/embeddings/ollama"
	"github.com/haasonsaas/sitechat/internal/memory/embeddings/openai"
	"github.com/haasonsaas/sitechat/internal/observability"
	"github.com/haasonsaas/sitechat/internal/rag/chunker"
	"github.com/haasonsaas/sitechat/internal/rag/crawler"
	"github.com/haasonsaas/sitechat/internal/rag/kb"
	"github.com/haasonsaas/sitechat/internal/rag/page"
	"github.com/haasonsaas/sitechat/internal/rag/parser/pdf"
	"github.com/haasonsaas/sitechat/internal/rag/source"
	"github.com/haasonsaas/sitechat/pkg/models"
)

// =============================================================================
// Application Wiring
// =============================================================================

// app holds the process-wide dependencies every command shares.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	fetcher  *page.Fetcher

	shutdownTracing func(context.Context) error
}

// loadConfig loads the configuration and validates it for mode.
func loadConfig(path, envFile string, mode config.Mode) (*config.Config, error) {
	cfg, err := config.Load(path, envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp builds the logger, metrics, tracer and page fetcher for cfg. Logs
// go to logOutput; the returned logger is also installed as the default.
func newApp(cfg *config.Config, debug bool, logOutput io.Writer) *app {
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:          level,
		Format:         cfg.Logging.Format,
		Output:         logOutput,
		AddSource:      cfg.Logging.AddSource,
		RedactPatterns: secretPatterns(cfg),
	})
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	traceCfg := cfg.Tracing
	traceCfg.ServiceVersion = version
	tracer, shutdown := observability.NewTracer(traceCfg)

	crawl := cfg.Knowledge.Crawler
	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  observability.NewMetrics(registry),
		tracer:   tracer,
		fetcher: page.NewFetcher(page.FetcherConfig{
			UserAgent:         crawl.UserAgent,
			Timeout:           crawl.Timeout,
			MaxBodyBytes:      crawl.MaxBodyBytes,
			RequestsPerSecond: crawl.RequestsPerSecond,
			Burst:             crawl.Burst,
		}),
		shutdownTracing: shutdown,
	}
}

// close flushes pending spans.
func (a *app) close() {
	if a.shutdownTracing == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdownTracing(ctx); err != nil {
		a.logger.Warn("tracer shutdown failed", "error", err)
	}
}

// secretPatterns returns patterns matching the configured credentials
// verbatim, so they never reach the logs even when they fit no default
// pattern.
func secretPatterns(cfg *config.Config) []string {
	secrets := []string{
		cfg.Telegram.Token,
		cfg.Telegram.WebhookSecret,
		cfg.LLM.APIKey,
		cfg.Embeddings.APIKey,
		cfg.Knowledge.S3.SecretAccessKey,
		cfg.Knowledge.PDFLicenseKey,
	}
	var patterns []string
	for _, s := range secrets {
		if len(strings.TrimSpace(s)) < 8 {
			continue
		}
		patterns = append(patterns, regexp.QuoteMeta(s))
	}
	return patterns
}

// buildEmbedder creates the embedding provider named by cfg.Provider.
func buildEmbedder(ctx context.Context, cfg embeddings.Config) (embeddings.Provider, error) {
	var (
		provider embeddings.Provider
		err      error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "hashing", "":
		provider = hashing.New(cfg.Dimension)
	case "gemini", "google":
		provider, err = gemini.New(ctx, gemini.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		})
	case "openai":
		provider, err = openai.New(openai.Config{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		})
	case "ollama":
		provider, err = ollama.New(ollama.Config{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			KeepAlive: cfg.KeepAlive,
		})
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return provider, nil
}

// buildSources chains the configured website, documents directory and S3
// bucket, in that order.
func buildSources(ctx context.Context, k config.KnowledgeConfig, logger *slog.Logger) (source.Collection, error) {
	var collections []source.Collection
	if k.Website != "" {
		collections = append(collections, source.Static{models.WebsiteSource(k.Website)})
	}
	if k.DocumentsDir != "" {
		collections = append(collections, source.Directory{Path: k.DocumentsDir})
	}
	if k.S3.Bucket != "" {
		client, err := source.NewS3Client(ctx, k.S3)
		if err != nil {
			return nil, err
		}
		bucket, err := source.NewS3Bucket(client, k.S3, logger)
		if err != nil {
			return nil, err
		}
		collections = append(collections, bucket)
	}
	return source.Multi{Collections: collections, Logger: logger}, nil
}

// applyPDFLicense installs the PDF license key. A rejected key is not fatal;
// PDF sources then fail individually and are skipped.
func (a *app) applyPDFLicense() {
	if err := pdf.SetLicenseKey(a.cfg.Knowledge.PDFLicenseKey); err != nil {
		a.logger.Warn("pdf license rejected; pdf extraction may fail", "error", err)
	}
}

// buildKnowledgeBase ingests every configured source.
func (a *app) buildKnowledgeBase(ctx context.Context) (*kb.KnowledgeBase, error) {
	k := a.cfg.Knowledge
	a.applyPDFLicense()

	chunks, err := chunker.New(k.Chunking)
	if err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}
	embedder, err := buildEmbedder(ctx, a.cfg.Embeddings)
	if err != nil {
		return nil, err
	}
	sources, err := buildSources(ctx, k, a.logger)
	if err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}

	batch := k.Retrieval.BatchSize
	if batch == 0 {
		batch = a.cfg.Embeddings.BatchSize
	}

	a.logger.Info("building knowledge base",
		"website", k.Website,
		"documents_dir", k.DocumentsDir,
		"s3_bucket", k.S3.Bucket,
		"embedder", embedder.Name(),
	)
	return kb.Build(ctx, kb.Options{
		Sources: sources,
		Crawler: crawler.New(a.fetcher, crawler.Config{
			MaxPages: k.Crawler.MaxPages,
			Logger:   a.logger,
			Metrics:  a.metrics,
		}),
		Chunker:     chunks,
		Embedder:    embedder,
		SegmentMode: kb.SegmentMode(k.Retrieval.SegmentMode),
		TopK:        k.Retrieval.TopK,
		BatchSize:   batch,
		Logger:      a.logger,
		Metrics:     a.metrics,
		Tracer:      a.tracer,
	})
}

// buildEngine creates the generator and the conversation engine over
// knowledge.
func (a *app) buildEngine(ctx context.Context, knowledge conversation.Retriever) (*conversation.Engine, error) {
	generator, err := providers.New(ctx, a.cfg.LLM, providers.Options{
		Metrics: a.metrics,
		Tracer:  a.tracer,
	})
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}
	a.logger.Info("language model ready", "provider", generator.Name(), "model", a.cfg.LLM.Model)
	return conversation.NewEngine(knowledge, generator, a.cfg.Conversation, a.logger), nil
}
