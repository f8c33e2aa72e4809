// Package hashing provides an offline embedding provider based on feature
// hashing of word tokens. It needs no credentials or network, which makes it
// the embedder for tests and for running without a hosted model.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/haasonsaas/sitechat/internal/memory/embeddings"
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Provider hashes tokens into a fixed number of signed buckets and L2
// normalizes the result, so the dot product of two vectors is their cosine
// similarity.
type Provider struct {
	dimension int
}

var _ embeddings.Provider = (*Provider)(nil)

// New returns a hashing provider with the given dimension (default 512).
func New(dimension int) *Provider {
	if dimension <= 0 {
		dimension = 512
	}
	return &Provider{dimension: dimension}
}

// Name returns the provider name.
func (p *Provider) Name() string { return "hashing" }

// Dimension returns the vector dimension.
func (p *Provider) Dimension() int { return p.dimension }

// MaxBatchSize returns 0; batches are unbounded.
func (p *Provider) MaxBatchSize() int { return 0 }

// Embed returns the hashed vector for text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.vector(text), nil
}

// EmbedBatch returns one hashed vector per text.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.vector(t)
	}
	return out, nil
}

// Tokens returns the case-folded, NFKC-normalized word tokens of text.
func (p *Provider) Tokens(text string) []string {
	// cases.Caser is stateful, so each call gets its own.
	fold := cases.Fold()
	return tokenPattern.FindAllString(fold.String(norm.NFKC.String(text)), -1)
}

func (p *Provider) vector(text string) []float32 {
	vec := make([]float32, p.dimension)
	for _, tok := range p.Tokens(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(p.dimension))
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm2 float64
	for _, v := range vec {
		norm2 += float64(v) * float64(v)
	}
	if norm2 == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm2))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
