// Package pdf provides a PDF text parser backed by unipdf.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/haasonsaas/sitechat/internal/rag/parser"
	"github.com/haasonsaas/sitechat/pkg/models"
)

var (
	licenseOnce sync.Once
	licenseErr  error
)

// SetLicenseKey applies a unidoc metered license key. Only the first call
// has an effect; an empty key is a no-op.
func SetLicenseKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	licenseOnce.Do(func() {
		licenseErr = license.SetMeteredKey(key)
	})
	return licenseErr
}

// Parser extracts text page by page.
type Parser struct{}

var _ parser.Parser = (*Parser)(nil)

// New creates a new PDF parser.
func New() *Parser {
	return &Parser{}
}

// Register adds a PDF parser to r.
func Register(r *parser.Registry) {
	r.Register(New())
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "pdf"
}

// Format returns models.FormatPDF.
func (p *Parser) Format() models.Format {
	return models.FormatPDF
}

// Parse returns the text of every page, each followed by a newline.
// A page that cannot be read fails the whole document.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("count pdf pages: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page, err := reader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("page %d extractor: %w", i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}
