// Package source enumerates the inputs a knowledge base is built from:
// website seeds, local documents and objects in an S3 bucket.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/haasonsaas/sitechat/pkg/models"
)

// ErrStop may be returned by an Each callback to end iteration early
// without an error.
var ErrStop = errors.New("stop iteration")

// Collection yields knowledge sources one at a time.
//
// Each calls fn for every source in a stable order. An error from fn ends the
// iteration and is returned, except ErrStop which ends it cleanly. Sources
// that become unavailable mid-iteration are logged and skipped by the
// collection itself.
type Collection interface {
	Each(ctx context.Context, fn func(models.Source) error) error
}

// Static is a fixed list of sources.
type Static []models.Source

// Each yields the sources in list order.
func (s Static) Each(ctx context.Context, fn func(models.Source) error) error {
	for _, src := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(src); err != nil {
			return stopOK(err)
		}
	}
	return nil
}

// Multi chains collections. A failing collection is logged and the next
// one continues, so one unreachable bucket does not hide a website.
type Multi struct {
	Collections []Collection
	Logger      *slog.Logger
}

// Each yields the sources of every collection in turn.
func (m Multi) Each(ctx context.Context, fn func(models.Source) error) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stopped := false
	wrapped := func(src models.Source) error {
		if err := fn(src); err != nil {
			stopped = true
			return err
		}
		return nil
	}
	for _, c := range m.Collections {
		if c == nil {
			continue
		}
		err := c.Each(ctx, wrapped)
		switch {
		case err == nil:
		case stopped || ctx.Err() != nil:
			return stopOK(err)
		default:
			logger.Warn("source collection failed", "component", "source", "error", err)
		}
		if stopped {
			return nil
		}
	}
	return nil
}

// Directory yields the .txt and .pdf files directly inside Path, sorted by
// name. Subdirectories and other extensions are ignored.
type Directory struct {
	Path string
}

// Each yields one document source per supported file.
func (d Directory) Each(ctx context.Context, fn func(models.Source) error) error {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return fmt.Errorf("read documents dir: %w", err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.Type().IsRegular() {
			continue
		}
		if models.FormatForPath(e.Name()) == models.FormatUnknown {
			continue
		}
		if err := fn(models.FileSource(filepath.Join(d.Path, e.Name()))); err != nil {
			return stopOK(err)
		}
	}
	return nil
}

func stopOK(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}
