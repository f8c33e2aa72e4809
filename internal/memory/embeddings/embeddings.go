// Package embeddings provides interfaces and implementations for embedding providers.
package embeddings

import (
	"context"
	"fmt"
)

// Provider defines the interface for embedding providers.
type Provider interface {
	// Embed generates an embedding for a single text. Providers that
	// distinguish query and document embeddings treat this as a query.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates document embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider name.
	Name() string

	// Dimension returns the embedding dimension.
	Dimension() int

	// MaxBatchSize returns the maximum number of texts per batch.
	MaxBatchSize() int
}

// Config contains common configuration for embedding providers.
type Config struct {
	Provider  string `yaml:"provider"` // gemini, openai, ollama, hashing
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`

	// KeepAlive applies to ollama only.
	KeepAlive string `yaml:"keep_alive"`
}

// Batch embeds texts in slices of at most size, bounded by the provider's
// MaxBatchSize, and returns one vector per text in order. A provider that
// returns the wrong number of vectors for a slice is an error.
func Batch(ctx context.Context, p Provider, texts []string, size int) ([][]float32, error) {
	if limit := p.MaxBatchSize(); size <= 0 || (limit > 0 && size > limit) {
		size = limit
	}
	if size <= 0 {
		size = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := p.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%s returned %d embeddings for %d texts", p.Name(), len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}
