package parser

import (
	"errors"
	"fmt"

	"github.com/haasonsaas/sitechat/pkg/models"
)

// ExtractionError reports an unreadable or corrupt document. Ingestion of
// other documents continues.
type ExtractionError struct {
	// Origin identifies the document (file or object name).
	Origin string

	// Format is the format the document was dispatched as.
	Format models.Format

	// Err is the underlying failure.
	Err error
}

func (e *ExtractionError) Error() string {
	format := string(e.Format)
	if format == "" {
		format = "unknown"
	}
	return fmt.Sprintf("extract %s (%s): %v", e.Origin, format, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsUnsupported reports whether err marks a document that was skipped
// because of its format rather than its content.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat)
}
