package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/haasonsaas/sitechat/internal/memory/embeddings"
	"github.com/haasonsaas/sitechat/internal/rag/index"
	"github.com/haasonsaas/sitechat/internal/rag/normalize"
	"github.com/haasonsaas/sitechat/internal/rag/page"
	"github.com/haasonsaas/sitechat/internal/rag/parser"
	"github.com/haasonsaas/sitechat/pkg/models"
)

// Metric stage labels for ingestion failures.
const (
	stageCrawl   = "crawl"
	stageExtract = "extract"
	stageEmbed   = "embed"
	stageIndex   = "index"
)

type builder struct {
	opts   Options
	logger *slog.Logger
	stats  Stats
}

// segment is one index key and the documents merged under it.
type segment struct {
	key  string
	docs []models.RawDocument
}

// collect gathers one RawDocument per source that produced text.
func (b *builder) collect(ctx context.Context) ([]models.RawDocument, error) {
	var docs []models.RawDocument
	err := b.opts.Sources.Each(ctx, func(src models.Source) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.stats.Sources++

		ctx, span := b.opts.Tracer.TraceIngest(ctx, src.Origin())
		defer span.End()

		var (
			doc models.RawDocument
			ok  bool
		)
		switch src.Kind {
		case models.SourceWebsite:
			doc, ok = b.website(ctx, src)
		case models.SourceDocument:
			doc, ok = b.document(ctx, src)
		default:
			b.logger.Warn("skipping source of unknown kind", "origin", src.Origin(), "kind", src.Kind)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if ok {
			docs = append(docs, doc)
			b.stats.Documents++
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// A collection that fails outright is a skipped source, not a
		// failed build.
		b.opts.Metrics.IngestError(stageExtract)
		b.logger.Warn("source collection failed", "error", err)
	}
	return docs, nil
}

// website crawls the seed and renders each fetched page from the same
// response the crawler used.
func (b *builder) website(ctx context.Context, src models.Source) (models.RawDocument, bool) {
	var parts []string
	visit := func(_ context.Context, resp *page.Response) error {
		if !resp.IsHTML() {
			return nil
		}
		p, err := page.FromResponse(resp)
		if err != nil {
			b.opts.Metrics.IngestError(stageExtract)
			return err
		}
		if p.Empty() {
			return nil
		}
		parts = append(parts, p.Content())
		b.stats.Pages++
		b.opts.Metrics.DocumentIngested("html")
		return nil
	}

	urls, err := b.opts.Crawler.Walk(ctx, src.URL, visit)
	if err != nil {
		if ctx.Err() == nil {
			b.opts.Metrics.IngestError(stageCrawl)
			b.logger.Warn("skipping website", "origin", src.Origin(), "error", err)
		}
		return models.RawDocument{}, false
	}
	b.logger.Info("website ingested", "origin", src.Origin(), "urls", len(urls), "pages", len(parts))
	if len(parts) == 0 {
		return models.RawDocument{}, false
	}
	return models.RawDocument{Origin: src.Origin(), Text: strings.Join(parts, "\n\n")}, true
}

func (b *builder) document(ctx context.Context, src models.Source) (models.RawDocument, bool) {
	doc, err := b.opts.Parsers.Extract(ctx, src)
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat):
		b.logger.Info("skipping unsupported document", "origin", src.Origin())
		return doc, false
	case err != nil:
		b.opts.Metrics.IngestError(stageExtract)
		b.logger.Warn("skipping document", "origin", src.Origin(), "error", err)
		return doc, false
	case strings.TrimSpace(doc.Text) == "":
		b.logger.Info("document has no text", "origin", src.Origin())
		return doc, false
	}
	b.opts.Metrics.DocumentIngested(string(src.Format))
	return doc, true
}

// segments groups documents according to the segment mode.
func (b *builder) segments(docs []models.RawDocument) []segment {
	if len(docs) == 0 {
		return nil
	}
	if b.opts.SegmentMode == SegmentCombined {
		return []segment{{key: CombinedKey, docs: docs}}
	}

	seen := make(map[string]int, len(docs))
	segs := make([]segment, 0, len(docs))
	for _, d := range docs {
		key := d.Origin
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s#%d", key, n)
		}
		segs = append(segs, segment{key: key, docs: []models.RawDocument{{Origin: key, Text: d.Text}}})
	}
	return segs
}

// store normalizes, chunks, embeds and indexes one segment. Only
// cancellation is returned; other failures drop the segment.
func (b *builder) store(ctx context.Context, idx *index.Index, seg segment) error {
	text, starts := merge(seg.docs)
	windows := b.opts.Chunker.Windows(text)
	if len(windows) == 0 {
		return nil
	}
	chunks := make([]models.Chunk, len(windows))
	for i, w := range windows {
		// A window belongs to the document its new text starts in; the
		// overlap repeated from the previous window does not count.
		first := w.Start
		if i > 0 {
			first = windows[i-1].End
		}
		owner := sort.Search(len(starts), func(j int) bool { return starts[j] > first }) - 1
		chunks[i] = models.Chunk{Text: w.Text, Origin: seg.docs[max(owner, 0)].Origin, Index: i}
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embeddings.Batch(ctx, b.opts.Embedder, texts, b.opts.BatchSize)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		b.opts.Metrics.IngestError(stageEmbed)
		b.logger.Warn("dropping segment: embedding failed", "segment", seg.key, "chunks", len(chunks), "error", err)
		return nil
	}
	if err := idx.Add(seg.key, chunks, vectors); err != nil {
		b.opts.Metrics.IngestError(stageIndex)
		b.logger.Warn("dropping segment: index rejected it", "segment", seg.key, "error", err)
		return nil
	}
	b.logger.Debug("segment indexed", "segment", seg.key, "chunks", len(chunks))
	return nil
}

// merge joins docs with blank lines and normalizes the result, returning the
// rune offset where each document starts in it. The text equals
// normalize.Text of the joined documents: normalization never reaches across
// a blank line, so each document is normalized on its own together with the
// separator that follows it. Line breaks leading a later document fold into
// that separator and are dropped first.
func merge(docs []models.RawDocument) (string, []int) {
	var b strings.Builder
	starts := make([]int, len(docs))
	offset := 0
	for i, d := range docs {
		text := d.Text
		starts[i] = offset
		if i > 0 {
			if text = trimLeadingBreaks(text); text == "" {
				continue
			}
		}
		if i < len(docs)-1 {
			text += "\n\n"
		}
		piece := normalize.Text(text)
		offset += utf8.RuneCountInString(piece)
		b.WriteString(piece)
	}
	return b.String(), starts
}

func trimLeadingBreaks(s string) string {
	for {
		switch {
		case strings.HasPrefix(s, "\n"):
			s = s[1:]
		case strings.HasPrefix(s, "\r\n"):
			s = s[2:]
		default:
			return s
		}
	}
}
