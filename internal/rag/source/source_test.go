package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/haasonsaas/sitechat/pkg/models"
)

func names(t *testing.T, c Collection) []string {
	t.Helper()
	var out []string
	err := c.Each(context.Background(), func(src models.Source) error {
		out = append(out, src.Origin())
		return nil
	})
	if err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStatic(t *testing.T) {
	c := Static{models.WebsiteSource("https://example.com"), models.FileSource("/docs/faq.txt")}
	if got, want := names(t, c), []string{"https://example.com", "faq.txt"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Each() = %v, want %v", got, want)
	}
}

func TestStatic_StopAndError(t *testing.T) {
	c := Static{models.FileSource("a.txt"), models.FileSource("b.txt")}

	calls := 0
	err := c.Each(context.Background(), func(models.Source) error {
		calls++
		return ErrStop
	})
	if err != nil || calls != 1 {
		t.Errorf("ErrStop: err = %v, calls = %d", err, calls)
	}

	boom := errors.New("boom")
	if err := c.Each(context.Background(), func(models.Source) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Each() error = %v, want boom", err)
	}
}

func TestStatic_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Static{models.FileSource("a.txt")}.Each(ctx, func(models.Source) error {
		t.Fatal("callback ran after cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Each() error = %v, want context.Canceled", err)
	}
}

func TestDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.txt", "notes.md", "C.TXT", "image.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.txt"), 0o700); err != nil {
		t.Fatal(err)
	}

	var got []models.Source
	err := Directory{Path: dir}.Each(context.Background(), func(src models.Source) error {
		got = append(got, src)
		return nil
	})
	if err != nil {
		t.Fatalf("Each() error = %v", err)
	}

	want := []struct {
		name   string
		format models.Format
	}{
		{"C.TXT", models.FormatText},
		{"a.txt", models.FormatText},
		{"b.pdf", models.FormatPDF},
	}
	if len(got) != len(want) {
		t.Fatalf("Each() yielded %d sources, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Format != w.format || got[i].Kind != models.SourceDocument {
			t.Errorf("source %d = %+v, want %s (%s)", i, got[i], w.name, w.format)
		}
		if got[i].Path != filepath.Join(dir, w.name) {
			t.Errorf("source %d path = %q", i, got[i].Path)
		}
	}
}

func TestDirectory_Missing(t *testing.T) {
	err := Directory{Path: filepath.Join(t.TempDir(), "absent")}.Each(context.Background(), func(models.Source) error { return nil })
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Each() error = %v, want not-exist", err)
	}
}

type failing struct{ err error }

func (f failing) Each(context.Context, func(models.Source) error) error { return f.err }

func TestMulti_ContinuesPastFailedCollection(t *testing.T) {
	m := Multi{
		Collections: []Collection{
			Static{models.WebsiteSource("https://example.com")},
			failing{err: errors.New("bucket unreachable")},
			nil,
			Static{models.FileSource("faq.txt")},
		},
		Logger: quietLogger(),
	}
	if got, want := names(t, m), []string{"https://example.com", "faq.txt"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Each() = %v, want %v", got, want)
	}
}

func TestMulti_CallbackErrorStops(t *testing.T) {
	m := Multi{Collections: []Collection{
		Static{models.FileSource("a.txt")},
		Static{models.FileSource("b.txt")},
	}}
	boom := errors.New("boom")
	var seen []string
	err := m.Each(context.Background(), func(src models.Source) error {
		seen = append(seen, src.Origin())
		return boom
	})
	if !errors.Is(err, boom) || len(seen) != 1 {
		t.Errorf("err = %v, seen = %v", err, seen)
	}

	seen = nil
	err = m.Each(context.Background(), func(src models.Source) error {
		seen = append(seen, src.Origin())
		return ErrStop
	})
	if err != nil || len(seen) != 1 {
		t.Errorf("ErrStop: err = %v, seen = %v", err, seen)
	}
}
