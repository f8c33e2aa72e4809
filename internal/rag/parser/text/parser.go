// Package text reads plain text documents.
package text

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/haasonsaas/sitechat/internal/rag/parser"
	"github.com/haasonsaas/sitechat/pkg/models"
)

// ErrInvalidEncoding is returned for input that is neither UTF-8 nor
// BOM-marked UTF-16.
var ErrInvalidEncoding = errors.New("document is not valid UTF-8")

// lineBreaks folds each line break, CRLF included, into one space.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Parser extracts .txt documents.
type Parser struct{}

var _ parser.Parser = Parser{}

func New() Parser { return Parser{} }

// Register adds the text parser to r.
func Register(r *parser.Registry) { r.Register(New()) }

func (Parser) Name() string          { return "text" }
func (Parser) Format() models.Format { return models.FormatText }

// Parse decodes r and returns its text on a single line. A byte order mark
// selects UTF-16; without one the input must be UTF-8.
func (Parser) Parse(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	decoded := transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	data, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidEncoding
	}
	return lineBreaks.Replace(string(data)), nil
}
