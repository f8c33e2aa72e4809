package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ChunkSize != 2048 {
		t.Errorf("ChunkSize = %d, want 2048", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 128 {
		t.Errorf("ChunkOverlap = %d, want 128", cfg.ChunkOverlap)
	}
	if len(cfg.Separators) == 0 || cfg.Separators[0] != "\n\n" {
		t.Errorf("Separators = %q, want paragraph break first", cfg.Separators)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"zero value uses defaults", Config{}, false},
		{"custom", Config{ChunkSize: 100, ChunkOverlap: 10}, false},
		{"overlap equals size", Config{ChunkSize: 10, ChunkOverlap: 10}, true},
		{"overlap larger than size", Config{ChunkSize: 10, ChunkOverlap: 20}, true},
		{"negative size", Config{ChunkSize: -1}, true},
		{"negative overlap", Config{ChunkSize: 10, ChunkOverlap: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChunk_Empty(t *testing.T) {
	c, err := New(Config{ChunkSize: 10, ChunkOverlap: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := c.Chunk(""); len(got) != 0 {
		t.Errorf("Chunk(\"\") = %q, want no chunks", got)
	}
}

func TestChunk_ShortTextIsSingleChunk(t *testing.T) {
	c, _ := New(Config{ChunkSize: 50, ChunkOverlap: 5})
	got := c.Chunk("short text")
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("Chunk() = %q, want [\"short text\"]", got)
	}
}

func TestChunk_PrefersSentenceBoundary(t *testing.T) {
	c, _ := New(Config{ChunkSize: 24, ChunkOverlap: 4, Separators: DefaultSeparators})
	text := "The first sentence. The second sentence is longer."
	got := c.Chunk(text)
	if len(got) < 2 {
		t.Fatalf("Chunk() = %q, want several chunks", got)
	}
	if got[0] != "The first sentence. " {
		t.Errorf("first chunk = %q, want cut after the sentence", got[0])
	}
	if !strings.HasPrefix(got[1], "ce. ") {
		t.Errorf("second chunk = %q, want it to start with the 4-rune overlap", got[1])
	}
}

func TestChunk_PrefersParagraphOverSentence(t *testing.T) {
	c, _ := New(Config{ChunkSize: 30, ChunkOverlap: 0})
	text := "Alpha beta. Gamma delta\n\nEpsilon zeta eta theta iota"
	got := c.Chunk(text)
	if got[0] != "Alpha beta. Gamma delta\n\n" {
		t.Errorf("first chunk = %q, want cut at the paragraph break", got[0])
	}
}

func TestChunk_HardCutWithoutSeparators(t *testing.T) {
	c, _ := New(Config{ChunkSize: 4, ChunkOverlap: 1})
	got := c.Chunk("abcdefghij")
	want := []string{"abcd", "defg", "ghij"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestChunk_CountsRunes(t *testing.T) {
	c, _ := New(Config{ChunkSize: 3, ChunkOverlap: 1})
	got := c.Chunk("日本語テキスト")
	for i, chunk := range got {
		if n := utf8.RuneCountInString(chunk); n > 3 {
			t.Errorf("chunk %d = %q has %d runes, want <= 3", i, chunk, n)
		}
	}
	if got[0] != "日本語" {
		t.Errorf("first chunk = %q, want %q", got[0], "日本語")
	}
}

func TestSplit_TagsOriginAndIndex(t *testing.T) {
	c, _ := New(Config{ChunkSize: 4, ChunkOverlap: 1})
	chunks := c.Split("faq.txt", "abcdefghij")
	for i, ch := range chunks {
		if ch.Origin != "faq.txt" {
			t.Errorf("chunk %d origin = %q, want faq.txt", i, ch.Origin)
		}
		if ch.Index != i {
			t.Errorf("chunk %d index = %d", i, ch.Index)
		}
	}
}

func TestWindows_Offsets(t *testing.T) {
	c, _ := New(Config{ChunkSize: 4, ChunkOverlap: 1})
	text := "日本語テキストです"
	runes := []rune(text)
	windows := c.Windows(text)
	if len(windows) == 0 || windows[0].Start != 0 || windows[len(windows)-1].End != len(runes) {
		t.Fatalf("Windows() = %+v", windows)
	}
	for i, w := range windows {
		if w.Text != string(runes[w.Start:w.End]) {
			t.Errorf("window %d text = %q, runes[%d:%d] = %q", i, w.Text, w.Start, w.End, string(runes[w.Start:w.End]))
		}
		if i > 0 && w.Start != windows[i-1].End-1 {
			t.Errorf("window %d starts at %d, want %d", i, w.Start, windows[i-1].End-1)
		}
	}
}

func TestChunk_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(2, 64).Draw(rt, "size")
		overlap := rapid.IntRange(0, size-1).Draw(rt, "overlap")
		text := rapid.StringMatching(`[a-zé .,!?;\n]{0,400}`).Draw(rt, "text")

		c, err := New(Config{ChunkSize: size, ChunkOverlap: overlap, Separators: DefaultSeparators})
		if err != nil {
			rt.Fatalf("New() error = %v", err)
		}
		chunks := c.Chunk(text)

		var rebuilt strings.Builder
		for i, chunk := range chunks {
			runes := []rune(chunk)
			if len(runes) > size {
				rt.Fatalf("chunk %d has %d runes, max %d", i, len(runes), size)
			}
			if len(runes) == 0 {
				rt.Fatalf("chunk %d is empty", i)
			}
			if i == 0 {
				rebuilt.WriteString(chunk)
				continue
			}
			prev := []rune(chunks[i-1])
			tail := string(prev[len(prev)-overlap:])
			if !strings.HasPrefix(chunk, tail) {
				rt.Fatalf("chunk %d = %q does not start with overlap %q", i, chunk, tail)
			}
			rebuilt.WriteString(string(runes[overlap:]))
		}
		if rebuilt.String() != text {
			rt.Fatalf("chunks do not reassemble the input: %q vs %q", rebuilt.String(), text)
		}
	})
}
