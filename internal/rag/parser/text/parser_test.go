package text

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/haasonsaas/sitechat/internal/rag/parser"
	"github.com/haasonsaas/sitechat/pkg/models"
)

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single line", "hello world", "hello world"},
		{"newlines become spaces", "line one\nline two\n\nline three", "line one line two  line three"},
		{"trailing newline", "end\n", "end "},
		{"empty", "", ""},
		{"crlf", "one\r\ntwo", "one two"},
		{"utf-8 bom stripped", "\xef\xbb\xbfcaf\xc3\xa9", "café"},
		{"utf-16le with bom", "\xff\xfeh\x00i\x00\n\x00", "hi "},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(context.Background(), strings.NewReader(tt.in))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParser_RejectsInvalidUTF8(t *testing.T) {
	_, err := New().Parse(context.Background(), strings.NewReader("bad \xff\xfe bytes"))
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("Parse() error = %v, want ErrInvalidEncoding", err)
	}
}

func TestRegister(t *testing.T) {
	r := parser.NewRegistry()
	Register(r)

	p, ok := r.Get(models.FormatText)
	if !ok {
		t.Fatal("text parser not registered")
	}
	if p.Name() != "text" {
		t.Errorf("Name() = %q, want text", p.Name())
	}
}
