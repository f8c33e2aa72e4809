package models

// Chunk is a bounded-length text segment, the unit of embedding and retrieval.
type Chunk struct {
	// Text is the segment content.
	Text string `json:"text"`

	// Origin is the URL or file name the text came from. Combined segments
	// carry the segment key instead.
	Origin string `json:"origin"`

	// Index is the position of the chunk within its segment.
	Index int `json:"index"`
}

// Vector is a fixed-dimension embedding produced for a single chunk.
type Vector []float32

// Dot returns the dot product of v and other. Both vectors must have the
// same dimension.
func (v Vector) Dot(other Vector) float32 {
	var sum float32
	for i := range v {
		sum += v[i] * other[i]
	}
	return sum
}

// ScoredChunk is a retrieval result.
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}
