package pdf

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/haasonsaas/sitechat/internal/rag/parser"
	"github.com/haasonsaas/sitechat/pkg/models"
)

func TestParser_Identity(t *testing.T) {
	p := New()
	if p.Name() != "pdf" {
		t.Errorf("Name() = %q, want pdf", p.Name())
	}
	if p.Format() != models.FormatPDF {
		t.Errorf("Format() = %q, want pdf", p.Format())
	}
}

func TestParser_CorruptInput(t *testing.T) {
	_, err := New().Parse(context.Background(), strings.NewReader("this is not a pdf"))
	if err == nil {
		t.Fatal("Parse() error = nil, want error for corrupt input")
	}
}

func TestRegistry_CorruptPDFIsExtractionError(t *testing.T) {
	r := parser.NewRegistry()
	Register(r)

	_, err := r.Extract(context.Background(), models.Source{
		Kind:   models.SourceDocument,
		Name:   "broken.pdf",
		Format: models.FormatPDF,
		Data:   []byte("%PDF-1.4 truncated"),
	})
	var extErr *parser.ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("Extract() error = %v, want *ExtractionError", err)
	}
	if extErr.Origin != "broken.pdf" {
		t.Errorf("Origin = %q, want broken.pdf", extErr.Origin)
	}
}

func TestSetLicenseKey_EmptyIsNoop(t *testing.T) {
	if err := SetLicenseKey("  "); err != nil {
		t.Errorf("SetLicenseKey(empty) error = %v", err)
	}
}
