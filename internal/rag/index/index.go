// Package index holds chunk embeddings in memory and answers top-k
// similarity queries.
//
// The index is organized in named segments. Queries rank each segment on its
// own and concatenate the per-segment results in segment order; there is no
// global re-ranking across segments, so a query against n segments can
// return up to n*k chunks.
//
// Similarity is the raw dot product. Vectors are not normalized here, which
// means every vector in an index, and every query vector, must come from the
// same embedding model.
package index

import (
	"errors"
	"fmt"
	"sync"

	"github.com/haasonsaas/sitechat/pkg/models"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrLengthMismatch is returned when chunks and vectors are not parallel.
	ErrLengthMismatch = errors.New("chunks and embeddings differ in length")

	// ErrDuplicateSegment is returned when a segment key is added twice.
	ErrDuplicateSegment = errors.New("segment already exists")
)

type segment struct {
	key     string
	chunks  []models.Chunk
	vectors []models.Vector
}

// Index is an in-memory vector index. It is safe for concurrent queries.
type Index struct {
	mu       sync.RWMutex
	dim      int
	segments []*segment
	keys     map[string]struct{}
}

// New returns an empty index. The dimension is fixed by the first Add.
func New() *Index {
	return &Index{keys: make(map[string]struct{})}
}

// Add stores a segment. chunks and vectors must be parallel and every vector
// must match the index dimension. Empty segments are ignored.
func (x *Index) Add(key string, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("segment %q: %w (%d chunks, %d embeddings)", key, ErrLengthMismatch, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.keys[key]; ok {
		return fmt.Errorf("segment %q: %w", key, ErrDuplicateSegment)
	}

	dim := x.dim
	if dim == 0 {
		dim = len(vectors[0])
	}
	if dim == 0 {
		return fmt.Errorf("segment %q: %w (empty embedding)", key, ErrDimensionMismatch)
	}
	seg := &segment{
		key:     key,
		chunks:  make([]models.Chunk, len(chunks)),
		vectors: make([]models.Vector, len(vectors)),
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("segment %q chunk %d: %w (got %d, want %d)", key, i, ErrDimensionMismatch, len(v), dim)
		}
		seg.vectors[i] = models.Vector(v)
	}
	copy(seg.chunks, chunks)

	x.dim = dim
	x.segments = append(x.segments, seg)
	x.keys[key] = struct{}{}
	return nil
}

// Query returns up to k chunks per segment, best first. Equal scores keep
// insertion order. k <= 0 or an empty index yields no results.
func (x *Index) Query(vector []float32, k int) ([]models.ScoredChunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.segments) == 0 {
		return nil, nil
	}
	if len(vector) != x.dim {
		return nil, fmt.Errorf("query: %w (got %d, want %d)", ErrDimensionMismatch, len(vector), x.dim)
	}

	q := models.Vector(vector)
	var out []models.ScoredChunk
	for _, seg := range x.segments {
		scores := make([]float32, len(seg.vectors))
		for i, v := range seg.vectors {
			scores[i] = q.Dot(v)
		}
		for _, pos := range TopK(scores, k) {
			out = append(out, models.ScoredChunk{Chunk: seg.chunks[pos], Score: scores[pos]})
		}
	}
	return out, nil
}

// Dimension returns the embedding dimension, or 0 before the first Add.
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}

// Len returns the total number of chunks across segments.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := 0
	for _, s := range x.segments {
		n += len(s.chunks)
	}
	return n
}

// Segments returns the segment keys in insertion order.
func (x *Index) Segments() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	keys := make([]string, len(x.segments))
	for i, s := range x.segments {
		keys[i] = s.key
	}
	return keys
}
