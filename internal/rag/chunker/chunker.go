// Package chunker splits normalized text into overlapping, bounded-size
// segments for embedding.
//
// Sizes and overlaps are measured in Unicode code points (runes), which keeps
// chunk bounds independent of the byte encoding and in line with the
// character-based input limits of the hosted embedding models.
package chunker

import (
	"fmt"

	"github.com/haasonsaas/sitechat/pkg/models"
)

// Config controls chunk boundaries.
type Config struct {
	// ChunkSize is the maximum chunk length in runes.
	// Default: 2048
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is the number of runes each chunk repeats from the end
	// of the previous one. Must be smaller than ChunkSize.
	// Default: 128
	ChunkOverlap int `yaml:"chunk_overlap"`

	// Separators are preferred cut points, tried in order. A cut is placed
	// right after the separator.
	Separators []string `yaml:"separators"`
}

// DefaultSeparators is the boundary hierarchy, from paragraph breaks down
// to single spaces.
var DefaultSeparators = []string{
	"\n\n",
	"\n",
	". ",
	"? ",
	"! ",
	"; ",
	": ",
	", ",
	" ",
}

// DefaultConfig returns the default chunker configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    2048,
		ChunkOverlap: 128,
		Separators:   DefaultSeparators,
	}
}

// Chunker is a sliding-window splitter that prefers semantic boundaries
// over hard cuts.
type Chunker struct {
	size       int
	overlap    int
	separators [][]rune
}

// New validates cfg and returns a Chunker. Zero values take defaults.
func New(cfg Config) (*Chunker, error) {
	def := DefaultConfig()
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.Separators == nil {
		cfg.Separators = def.Separators
	}
	if cfg.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", cfg.ChunkOverlap)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	seps := make([][]rune, 0, len(cfg.Separators))
	for _, s := range cfg.Separators {
		if s != "" {
			seps = append(seps, []rune(s))
		}
	}
	return &Chunker{size: cfg.ChunkSize, overlap: cfg.ChunkOverlap, separators: seps}, nil
}

// Name returns the chunker name for logging.
func (c *Chunker) Name() string {
	return "sliding_window"
}

// Size returns the configured maximum chunk length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Window is one chunk with its rune offsets in the chunked text.
type Window struct {
	Start, End int
	Text       string
}

// Windows splits text into windows of at most ChunkSize runes. Every window
// after the first starts ChunkOverlap runes before its predecessor ends.
// Text is never trimmed.
func (c *Chunker) Windows(text string) []Window {
	r := []rune(text)
	n := len(r)
	if n == 0 {
		return nil
	}

	var out []Window
	pos := 0
	for {
		if pos+c.size >= n {
			return append(out, Window{Start: pos, End: n, Text: string(r[pos:])})
		}
		end := c.cut(r, pos)
		out = append(out, Window{Start: pos, End: end, Text: string(r[pos:end])})
		pos = end - c.overlap
	}
}

// Chunk splits text into segments of at most ChunkSize runes. Every segment
// after the first starts with the last ChunkOverlap runes of its
// predecessor, so joining the segments with the overlaps removed
// reproduces the input.
func (c *Chunker) Chunk(text string) []string {
	windows := c.Windows(text)
	if windows == nil {
		return nil
	}
	out := make([]string, len(windows))
	for i, w := range windows {
		out[i] = w.Text
	}
	return out
}

// Split chunks text and tags each segment with origin and its sequence index.
func (c *Chunker) Split(origin, text string) []models.Chunk {
	windows := c.Windows(text)
	chunks := make([]models.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = models.Chunk{Text: w.Text, Origin: origin, Index: i}
	}
	return chunks
}

// cut picks the end of the window starting at pos. Only cuts in the back
// half of the non-overlapping part are accepted, so every step advances by
// at least one rune and chunks do not degenerate into slivers.
func (c *Chunker) cut(r []rune, pos int) int {
	end := pos + c.size
	step := (c.size - c.overlap) / 2
	if step < 1 {
		step = 1
	}
	lowest := pos + c.overlap + step

	for _, sep := range c.separators {
		for at := end; at >= lowest; at-- {
			if endsWith(r, at, sep) {
				return at
			}
		}
	}
	return end
}

func endsWith(r []rune, at int, sep []rune) bool {
	start := at - len(sep)
	if start < 0 {
		return false
	}
	for i, s := range sep {
		if r[start+i] != s {
			return false
		}
	}
	return true
}
