// Package gemini provides an embedding provider using Google's Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/haasonsaas/sitechat/internal/memory/embeddings"
)

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// embedClient is the slice of genai.Models the provider uses.
type embedClient interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Provider implements embeddings.Provider using Gemini embedding models.
// Batches are embedded as retrieval documents, single texts as queries.
type Provider struct {
	client    embedClient
	model     string
	dimension int
}

var _ embeddings.Provider = (*Provider)(nil)

// Config contains configuration for the Gemini provider.
type Config struct {
	APIKey    string
	Model     string // text-embedding-004
	Dimension int    // optional output dimensionality
}

// New creates a new Gemini embedding provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newWithClient(client.Models, cfg), nil
}

func newWithClient(client embedClient, cfg Config) *Provider {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 768
	}
	return &Provider{client: client, model: cfg.Model, dimension: cfg.Dimension}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "gemini"
}

// Dimension returns the embedding dimension.
func (p *Provider) Dimension() int {
	return p.dimension
}

// MaxBatchSize returns the maximum number of texts per batch.
func (p *Provider) MaxBatchSize() int {
	return 100
}

// Embed generates a query embedding for text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.embed(ctx, []string{text}, taskQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates document embeddings for texts.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return p.embed(ctx, texts, taskDocument)
}

func (p *Provider) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: t}},
		}
	}

	dim := int32(p.dimension)
	resp, err := p.client.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
		TaskType:             task,
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", got, len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("gemini returned empty embedding at %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}
