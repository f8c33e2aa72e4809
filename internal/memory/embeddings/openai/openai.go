// Package openai embeds text with OpenAI's embedding models, or any server
// that speaks the same API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/sitechat/internal/backoff"
	"github.com/haasonsaas/sitechat/internal/memory/embeddings"
)

const (
	DefaultModel = "text-embedding-3-small"

	// maxBatch is the API's limit on inputs per request.
	maxBatch = 2048
)

// Provider implements embeddings.Provider using OpenAI.
type Provider struct {
	client      *openai.Client
	model       string
	dimension   int
	maxAttempts int
	policy      backoff.Policy
}

var _ embeddings.Provider = (*Provider)(nil)

// Config contains configuration for the OpenAI provider.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	// Dimension shortens text-embedding-3 vectors; zero keeps the model's
	// native size.
	Dimension int

	// MaxAttempts bounds tries per batch on rate limits and server errors.
	MaxAttempts int
}

// New creates a new OpenAI embedding provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.Model,
		dimension:   cfg.Dimension,
		maxAttempts: cfg.MaxAttempts,
		policy:      backoff.Policy{Initial: time.Second, Max: 20 * time.Second, Factor: 2, Jitter: 0.2},
	}, nil
}

func (p *Provider) Name() string {
	return "openai"
}

// Dimension returns the configured dimension, or the model's native one.
func (p *Provider) Dimension() int {
	switch {
	case p.dimension > 0:
		return p.dimension
	case p.model == "text-embedding-3-large":
		return 3072
	default:
		return 1536
	}
}

func (p *Provider) MaxBatchSize() int {
	return maxBatch
}

// Embed generates an embedding for a single text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request, retrying rate limits and server
// errors. Results are placed by the index the API reports, not by arrival
// order.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dimension,
	}
	result, err := backoff.RetryWithBackoff(ctx, p.policy, p.maxAttempts, func(int) (openai.EmbeddingResponse, error) {
		resp, err := p.client.CreateEmbeddings(ctx, req)
		if err != nil && !retryable(err) {
			return resp, backoff.Permanent(err)
		}
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	data := result.Value.Data
	if len(data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range data {
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, fmt.Errorf("openai returned bad index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// retryable reports whether err is a rate limit or server failure.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}
