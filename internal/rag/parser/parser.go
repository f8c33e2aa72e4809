// Package parser extracts plain text from documents.
//
// Dispatch is over the closed set of formats in models.Format. A document
// whose format has no registered parser is reported with ErrUnsupportedFormat
// so callers can skip it explicitly.
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/haasonsaas/sitechat/pkg/models"
)

// ErrUnsupportedFormat is returned for documents outside the text/pdf set.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Parser extracts raw text from a single document format.
type Parser interface {
	// Parse reads the whole document and returns its text.
	Parse(ctx context.Context, r io.Reader) (string, error)

	// Format returns the document format this parser handles.
	Format() models.Format

	// Name returns the parser name for logging and debugging.
	Name() string
}

// Registry maps formats to parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[models.Format]Parser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[models.Format]Parser)}
}

// Register adds p, replacing any parser for the same format. Parsers for
// FormatUnknown are ignored.
func (r *Registry) Register(p Parser) {
	if p == nil || p.Format() == models.FormatUnknown {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[p.Format()] = p
}

// Get returns the parser registered for f.
func (r *Registry) Get(f models.Format) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[f]
	return p, ok
}

// Extract reads src and returns its text tagged with the source origin.
// Failures are reported as *ExtractionError.
func (r *Registry) Extract(ctx context.Context, src models.Source) (models.RawDocument, error) {
	origin := src.Origin()
	doc := models.RawDocument{Origin: origin}

	p, ok := r.Get(src.Format)
	if !ok {
		return doc, &ExtractionError{Origin: origin, Format: src.Format, Err: ErrUnsupportedFormat}
	}

	reader, closeFn, err := open(src)
	if err != nil {
		return doc, &ExtractionError{Origin: origin, Format: src.Format, Err: err}
	}
	defer closeFn()

	text, err := p.Parse(ctx, reader)
	if err != nil {
		return doc, &ExtractionError{Origin: origin, Format: src.Format, Err: err}
	}
	doc.Text = text
	return doc, nil
}

func open(src models.Source) (io.Reader, func(), error) {
	if src.Data != nil {
		return bytes.NewReader(src.Data), func() {}, nil
	}
	if src.Path == "" {
		return nil, nil, errors.New("document has neither path nor data")
	}
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open document: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
