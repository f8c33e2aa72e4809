// Package kb builds the searchable knowledge base a conversation draws its
// context from.
//
// Build runs once at startup: every source is crawled or extracted, the text
// is normalized and chunked, the chunks are embedded and stored in an
// in-memory index. After Build returns the knowledge base is read-only and
// safe for concurrent queries.
package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/sitechat/internal/memory/embeddings"
	"github.com/haasonsaas/sitechat/internal/observability"
	"github.com/haasonsaas/sitechat/internal/rag/chunker"
	"github.com/haasonsaas/sitechat/internal/rag/crawler"
	"github.com/haasonsaas/sitechat/internal/rag/index"
	"github.com/haasonsaas/sitechat/internal/rag/parser"
	"github.com/haasonsaas/sitechat/internal/rag/parser/pdf"
	"github.com/haasonsaas/sitechat/internal/rag/parser/text"
	"github.com/haasonsaas/sitechat/internal/rag/source"
	"github.com/haasonsaas/sitechat/pkg/models"
)

// SegmentMode selects how extracted text is grouped in the index.
type SegmentMode string

const (
	// SegmentCombined merges every source into one segment.
	SegmentCombined SegmentMode = "combined"

	// SegmentPerSource gives each source its own segment. Queries then
	// return up to TopK chunks per source.
	SegmentPerSource SegmentMode = "per_source"
)

// CombinedKey is the segment key used in SegmentCombined mode.
const CombinedKey = "combined"

// DefaultTopK is the number of chunks retrieved per segment.
const DefaultTopK = 4

// Options configures Build.
type Options struct {
	// Sources yields the inputs. A nil collection builds an empty
	// knowledge base.
	Sources source.Collection

	// Crawler walks website sources. Defaults to a crawler with page
	// defaults.
	Crawler *crawler.Crawler

	// Parsers extracts document sources. Defaults to DefaultParsers().
	Parsers *parser.Registry

	// Chunker splits normalized text. Defaults to chunker.DefaultConfig().
	Chunker *chunker.Chunker

	// Embedder produces chunk and query vectors. Required.
	Embedder embeddings.Provider

	SegmentMode SegmentMode
	TopK        int

	// BatchSize caps texts per embedding request; 0 uses the provider limit.
	BatchSize int

	Logger  *slog.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Stats describes a built knowledge base.
type Stats struct {
	BuildID   string        `json:"build_id"`
	Mode      SegmentMode   `json:"mode"`
	Embedder  string        `json:"embedder"`
	Sources   int           `json:"sources"`
	Documents int           `json:"documents"`
	Pages     int           `json:"pages"`
	Segments  int           `json:"segments"`
	Chunks    int           `json:"chunks"`
	Dimension int           `json:"dimension"`
	Duration  time.Duration `json:"duration"`
}

// KnowledgeBase answers similarity queries over the ingested corpus.
type KnowledgeBase struct {
	index    *index.Index
	embedder embeddings.Provider
	topK     int
	stats    Stats
	logger   *slog.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
}

// DefaultParsers returns a registry with the text and PDF parsers.
func DefaultParsers() *parser.Registry {
	r := parser.NewRegistry()
	text.Register(r)
	pdf.Register(r)
	return r
}

// Build ingests every source and returns the knowledge base. Failures of
// individual sources, pages or segments are logged and skipped; Build only
// fails on invalid options or cancellation. An empty corpus is valid.
func Build(ctx context.Context, opts Options) (*KnowledgeBase, error) {
	start := time.Now()
	if err := opts.applyDefaults(); err != nil {
		return nil, err
	}

	b := &builder{opts: opts, logger: opts.Logger.With("component", "kb")}
	b.stats = Stats{
		BuildID:  uuid.NewString(),
		Mode:     opts.SegmentMode,
		Embedder: opts.Embedder.Name(),
	}
	b.logger = b.logger.With("build_id", b.stats.BuildID)

	docs, err := b.collect(ctx)
	if err != nil {
		return nil, err
	}

	idx := index.New()
	for _, seg := range b.segments(docs) {
		if err := b.store(ctx, idx, seg); err != nil {
			return nil, err
		}
	}

	b.stats.Segments = len(idx.Segments())
	b.stats.Chunks = idx.Len()
	b.stats.Dimension = idx.Dimension()
	b.stats.Duration = time.Since(start)
	opts.Metrics.SetChunksIndexed(b.stats.Chunks)

	b.logger.Info("knowledge base built",
		"sources", b.stats.Sources,
		"documents", b.stats.Documents,
		"segments", b.stats.Segments,
		"chunks", b.stats.Chunks,
		"duration", b.stats.Duration,
	)

	return &KnowledgeBase{
		index:    idx,
		embedder: opts.Embedder,
		topK:     opts.TopK,
		stats:    b.stats,
		logger:   b.logger,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
	}, nil
}

func (o *Options) applyDefaults() error {
	if o.Embedder == nil {
		return errors.New("kb: embedder is required")
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	switch o.SegmentMode {
	case "":
		o.SegmentMode = SegmentCombined
	case SegmentCombined, SegmentPerSource:
	default:
		return fmt.Errorf("kb: unknown segment mode %q", o.SegmentMode)
	}
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.BatchSize < 0 {
		return fmt.Errorf("kb: negative batch size %d", o.BatchSize)
	}
	if o.Sources == nil {
		o.Sources = source.Static(nil)
	}
	if o.Parsers == nil {
		o.Parsers = DefaultParsers()
	}
	if o.Chunker == nil {
		c, err := chunker.New(chunker.DefaultConfig())
		if err != nil {
			return fmt.Errorf("kb: %w", err)
		}
		o.Chunker = c
	}
	if o.Crawler == nil {
		o.Crawler = crawler.New(nil, crawler.Config{Logger: o.Logger, Metrics: o.Metrics})
	}
	return nil
}

// Query embeds text and returns the retrieved chunk texts joined by
// newlines. An empty knowledge base yields "".
func (kb *KnowledgeBase) Query(ctx context.Context, text string) (string, error) {
	results, err := kb.Search(ctx, text, kb.topK)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Text
	}
	return strings.Join(parts, "\n"), nil
}

// Search returns up to k scored chunks per segment, best first within each
// segment.
func (kb *KnowledgeBase) Search(ctx context.Context, text string, k int) ([]models.ScoredChunk, error) {
	ctx, span := kb.tracer.TraceRetrieval(ctx, k)
	defer span.End()

	start := time.Now()
	defer func() { kb.metrics.ObserveRetrieval(time.Since(start)) }()

	if kb.index.Len() == 0 || k <= 0 {
		return nil, nil
	}
	vec, err := kb.embedder.Embed(ctx, text)
	if err != nil {
		err = fmt.Errorf("embed query: %w", err)
		kb.tracer.RecordError(span, err)
		return nil, err
	}
	results, err := kb.index.Query(vec, k)
	if err != nil {
		kb.tracer.RecordError(span, err)
		return nil, err
	}
	return results, nil
}

// Stats returns build statistics.
func (kb *KnowledgeBase) Stats() Stats {
	return kb.stats
}

// TopK returns the configured number of chunks per segment.
func (kb *KnowledgeBase) TopK() int {
	return kb.topK
}
